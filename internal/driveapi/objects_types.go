package driveapi

import "time"

// Well-known object property keys. Properties are the only correlation key
// between the local tree and remote objects: every created or updated object
// is tagged with its logical tree path, and engine-owned configuration
// objects additionally carry the config marker.
const (
	PropPath   = "path"
	PropConfig = "config"

	PropConfigTrue = "true"
)

// ObjectKind distinguishes folder-like containers from file-like leaves.
type ObjectKind string

const (
	KindFolder ObjectKind = "folder"
	KindFile   ObjectKind = "file"
)

// Object is the remote representation of one tree node.
type Object struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Kind         ObjectKind        `json:"kind"`
	ParentID     string            `json:"parentId,omitempty"`
	Size         int64             `json:"size"`
	MD5          string            `json:"md5,omitempty"`
	ModifiedTime time.Time         `json:"modifiedTime"`
	Properties   map[string]string `json:"properties,omitempty"`
}

// Path returns the logical tree path the object is tagged with, if any.
func (o *Object) Path() string {
	if o == nil || o.Properties == nil {
		return ""
	}
	return o.Properties[PropPath]
}

// IsConfig reports whether the object is tagged as engine-owned configuration.
func (o *Object) IsConfig() bool {
	return o != nil && o.Properties != nil && o.Properties[PropConfig] == PropConfigTrue
}

// ObjectMeta carries the caller-supplied metadata for create/update calls.
type ObjectMeta struct {
	Name         string            `json:"name"`
	ParentID     string            `json:"parentId,omitempty"`
	ModifiedTime time.Time         `json:"modifiedTime"`
	Properties   map[string]string `json:"properties,omitempty"`
}

// SearchParams filters a remote object listing.
type SearchParams struct {
	PathPrefix string            `json:"pathPrefix,omitempty"`
	Kind       ObjectKind        `json:"kind,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

type SearchResponse struct {
	Objects []*Object `json:"objects"`
}

type DeleteParams struct {
	IDs []string `json:"ids"`
}

// DeleteItemError reports a single failed id within a bulk delete.
type DeleteItemError struct {
	BaseError
	ID string `json:"id"`
}

func (e *DeleteItemError) Error() string {
	return "delete " + e.ID + ": " + e.Code + " - " + e.Message
}

type DeleteResponse struct {
	Deleted []string           `json:"deleted"`
	Errors  []*DeleteItemError `json:"errors,omitempty"`
}
