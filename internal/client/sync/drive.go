package sync

import (
	"context"

	"github.com/vaultdrive/vaultdrive/internal/driveapi"
)

// DriveStore is the remote object surface the engine pushes to. In production
// it is *driveapi.ObjectsAPI; tests substitute an in-memory fake.
type DriveStore interface {
	Search(ctx context.Context, params *driveapi.SearchParams) (*driveapi.SearchResponse, error)
	CreateFolder(ctx context.Context, meta *driveapi.ObjectMeta) (*driveapi.Object, error)
	Upload(ctx context.Context, meta *driveapi.ObjectMeta, content []byte) (*driveapi.Object, error)
	Update(ctx context.Context, objectID string, meta *driveapi.ObjectMeta, content []byte) (*driveapi.Object, error)
	Download(ctx context.Context, objectID string) ([]byte, error)
	Metadata(ctx context.Context, objectID string) (*driveapi.Object, error)
	BatchDelete(ctx context.Context, params *driveapi.DeleteParams) (*driveapi.DeleteResponse, error)
}

var _ DriveStore = (*driveapi.ObjectsAPI)(nil)
