package driveapi

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/imroc/req/v3"
)

const (
	v1ObjectsSearch = "/api/v1/objects/search"
	v1ObjectsFolder = "/api/v1/objects/folder"
	v1ObjectsUpload = "/api/v1/objects/upload"
	v1ObjectsDelete = "/api/v1/objects/delete"
	v1Objects       = "/api/v1/objects"

	metadataCacheSize = 512
)

// ObjectsAPI talks to the drive's object endpoints. Metadata lookups are
// cached in a small LRU; any mutating call for an id evicts its entry.
type ObjectsAPI struct {
	client    *req.Client
	metaCache *lru.Cache[string, *Object]
}

func newObjectsAPI(client *req.Client) *ObjectsAPI {
	cache, _ := lru.New[string, *Object](metadataCacheSize)
	return &ObjectsAPI{
		client:    client,
		metaCache: cache,
	}
}

// Search lists remote objects matching the filter.
func (o *ObjectsAPI) Search(ctx context.Context, params *SearchParams) (*SearchResponse, error) {
	var apiResp *SearchResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(params).
		SetSuccessResult(&apiResp).
		Post(v1ObjectsSearch)

	if err := handleAPIError(resp, err, "objects search"); err != nil {
		return nil, err
	}

	return apiResp, nil
}

// CreateFolder creates a container object and returns it.
func (o *ObjectsAPI) CreateFolder(ctx context.Context, meta *ObjectMeta) (*Object, error) {
	var apiResp *Object
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(meta).
		SetSuccessResult(&apiResp).
		Post(v1ObjectsFolder)

	if err := handleAPIError(resp, err, "folder create"); err != nil {
		return nil, err
	}

	return apiResp, nil
}

// Upload creates a leaf object with the given content.
func (o *ObjectsAPI) Upload(ctx context.Context, meta *ObjectMeta, content []byte) (*Object, error) {
	metaJSON, err := jsonMarshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal meta: %w", err)
	}

	var apiResp *Object
	resp, err := o.client.R().
		SetContext(ctx).
		SetRetryCount(0).
		SetFileBytes("content", meta.Name, content).
		SetFormData(map[string]string{"meta": string(metaJSON)}).
		SetSuccessResult(&apiResp).
		Put(v1ObjectsUpload)

	if err := handleAPIError(resp, err, "object upload"); err != nil {
		return nil, err
	}

	return apiResp, nil
}

// Update replaces the content and metadata of an existing leaf object.
func (o *ObjectsAPI) Update(ctx context.Context, id string, meta *ObjectMeta, content []byte) (*Object, error) {
	if id == "" {
		return nil, ErrEmptyObjectID
	}

	metaJSON, err := jsonMarshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal meta: %w", err)
	}

	var apiResp *Object
	resp, err := o.client.R().
		SetContext(ctx).
		SetRetryCount(0).
		SetFileBytes("content", meta.Name, content).
		SetFormData(map[string]string{"meta": string(metaJSON)}).
		SetSuccessResult(&apiResp).
		Put(v1Objects + "/" + id)

	if err := handleAPIError(resp, err, "object update"); err != nil {
		return nil, err
	}

	o.metaCache.Remove(id)
	return apiResp, nil
}

// Download fetches the full content of a leaf object.
func (o *ObjectsAPI) Download(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, ErrEmptyObjectID
	}

	resp, err := o.client.R().
		SetContext(ctx).
		Get(v1Objects + "/" + id + "/content")

	if err := handleAPIError(resp, err, "object download"); err != nil {
		return nil, err
	}

	return resp.Bytes(), nil
}

// Metadata fetches an object's metadata, served from the LRU when possible.
func (o *ObjectsAPI) Metadata(ctx context.Context, id string) (*Object, error) {
	if id == "" {
		return nil, ErrEmptyObjectID
	}

	if obj, ok := o.metaCache.Get(id); ok {
		return obj, nil
	}

	var apiResp *Object
	resp, err := o.client.R().
		SetContext(ctx).
		SetSuccessResult(&apiResp).
		Get(v1Objects + "/" + id)

	if err := handleAPIError(resp, err, "object metadata"); err != nil {
		return nil, err
	}

	o.metaCache.Add(id, apiResp)
	return apiResp, nil
}

// BatchDelete deletes a set of objects in one call. Per-id failures are
// reported in the response rather than failing the whole request.
func (o *ObjectsAPI) BatchDelete(ctx context.Context, params *DeleteParams) (*DeleteResponse, error) {
	var apiResp *DeleteResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(params).
		SetSuccessResult(&apiResp).
		Post(v1ObjectsDelete)

	if err := handleAPIError(resp, err, "objects delete"); err != nil {
		return nil, err
	}

	for _, id := range apiResp.Deleted {
		o.metaCache.Remove(id)
	}
	return apiResp, nil
}
