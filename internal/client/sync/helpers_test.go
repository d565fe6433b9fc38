package sync

import (
	"context"
	"fmt"
	"path/filepath"
	stdsync "sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/vaultdrive/vaultdrive/internal/client/vault"
	"github.com/vaultdrive/vaultdrive/internal/db"
	"github.com/vaultdrive/vaultdrive/internal/driveapi"
	"github.com/vaultdrive/vaultdrive/internal/utils"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conn, err := db.NewSqliteDB(db.WithPath(filepath.Join(t.TempDir(), "state.db")))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type engineFixture struct {
	vault   *vault.Vault
	journal *ChangeJournal
	index   *DriveIndex
	drive   *fakeDrive
	guard   *SessionGuard
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	v, err := vault.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, v.Setup())

	conn := newTestDB(t)
	journal, err := NewChangeJournal(conn)
	require.NoError(t, err)
	index, err := NewDriveIndex(conn)
	require.NoError(t, err)

	return &engineFixture{
		vault:   v,
		journal: journal,
		index:   index,
		drive:   newFakeDrive(),
		guard:   NewSessionGuard(),
	}
}

func (f *engineFixture) orchestrator(t *testing.T, opts PushOptions) *PushOrchestrator {
	t.Helper()
	ignores := NewIgnoreList(f.vault.Root)
	puller := NewDrivePuller(f.vault, f.drive, f.journal, f.index, ignores)
	return NewPushOrchestrator(f.vault, f.drive, f.journal, f.index, f.guard, puller, opts)
}

func (f *engineFixture) writeLeaf(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, f.vault.WriteLeaf(path, []byte(content), time.Now()))
}

func (f *engineFixture) record(t *testing.T, path string, kind OpKind) {
	t.Helper()
	require.NoError(t, f.journal.Record(context.Background(), Operation{Path: path, Kind: kind}))
}

// fakeDrive is an in-memory DriveStore with per-call failure injection.
type fakeDrive struct {
	mu      stdsync.Mutex
	nextID  int
	objects map[string]*fakeObject // by id
	calls   map[string]int
	deleted []string // ids in deletion order

	failSearch   bool
	failUpload   map[string]bool // by path property
	failUpdate   map[string]bool // by id
	failDelete   map[string]bool // by id
	failDownload map[string]bool // by id
}

type fakeObject struct {
	obj     driveapi.Object
	content []byte
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{
		objects:      make(map[string]*fakeObject),
		calls:        make(map[string]int),
		failUpload:   make(map[string]bool),
		failUpdate:   make(map[string]bool),
		failDelete:   make(map[string]bool),
		failDownload: make(map[string]bool),
	}
}

func (d *fakeDrive) callCount(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[op]
}

// seed adds an object directly, bypassing failure injection.
func (d *fakeDrive) seed(path string, kind driveapi.ObjectKind, content []byte) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.newID()
	d.objects[id] = &fakeObject{
		obj: driveapi.Object{
			ID:           id,
			Name:         filepath.Base(path),
			Kind:         kind,
			Size:         int64(len(content)),
			MD5:          utils.ContentHash(content),
			ModifiedTime: time.Now().UTC().Truncate(time.Second),
			Properties:   map[string]string{driveapi.PropPath: path},
		},
		content: content,
	}
	return id
}

func (d *fakeDrive) byPath(path string) *fakeObject {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, fo := range d.objects {
		if fo.obj.Path() == path {
			return fo
		}
	}
	return nil
}

func (d *fakeDrive) newID() string {
	d.nextID++
	return fmt.Sprintf("id-%d", d.nextID)
}

func (d *fakeDrive) Search(_ context.Context, params *driveapi.SearchParams) (*driveapi.SearchResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["search"]++
	if d.failSearch {
		return nil, fmt.Errorf("search unavailable")
	}

	resp := &driveapi.SearchResponse{}
	for _, fo := range d.objects {
		if params.Kind != "" && fo.obj.Kind != params.Kind {
			continue
		}
		match := true
		for k, v := range params.Properties {
			if fo.obj.Properties[k] != v {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		obj := fo.obj
		resp.Objects = append(resp.Objects, &obj)
	}
	return resp, nil
}

func (d *fakeDrive) CreateFolder(_ context.Context, meta *driveapi.ObjectMeta) (*driveapi.Object, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["createFolder"]++

	id := d.newID()
	d.objects[id] = &fakeObject{
		obj: driveapi.Object{
			ID:           id,
			Name:         meta.Name,
			Kind:         driveapi.KindFolder,
			ParentID:     meta.ParentID,
			ModifiedTime: meta.ModifiedTime,
			Properties:   meta.Properties,
		},
	}
	obj := d.objects[id].obj
	return &obj, nil
}

func (d *fakeDrive) Upload(_ context.Context, meta *driveapi.ObjectMeta, content []byte) (*driveapi.Object, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["upload"]++
	if d.failUpload[meta.Properties[driveapi.PropPath]] {
		return nil, fmt.Errorf("upload unavailable")
	}

	id := d.newID()
	d.objects[id] = &fakeObject{
		obj: driveapi.Object{
			ID:           id,
			Name:         meta.Name,
			Kind:         driveapi.KindFile,
			ParentID:     meta.ParentID,
			Size:         int64(len(content)),
			MD5:          utils.ContentHash(content),
			ModifiedTime: meta.ModifiedTime,
			Properties:   meta.Properties,
		},
		content: content,
	}
	obj := d.objects[id].obj
	return &obj, nil
}

func (d *fakeDrive) Update(_ context.Context, objectID string, meta *driveapi.ObjectMeta, content []byte) (*driveapi.Object, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["update"]++
	if d.failUpdate[objectID] {
		return nil, fmt.Errorf("update unavailable")
	}

	fo, ok := d.objects[objectID]
	if !ok {
		return nil, driveapi.ErrObjectNotFound
	}
	fo.content = content
	fo.obj.Size = int64(len(content))
	fo.obj.MD5 = utils.ContentHash(content)
	fo.obj.ModifiedTime = meta.ModifiedTime
	if meta.Properties != nil {
		fo.obj.Properties = meta.Properties
	}
	obj := fo.obj
	return &obj, nil
}

func (d *fakeDrive) Download(_ context.Context, objectID string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["download"]++
	if d.failDownload[objectID] {
		return nil, fmt.Errorf("download unavailable")
	}

	fo, ok := d.objects[objectID]
	if !ok {
		return nil, driveapi.ErrObjectNotFound
	}
	return append([]byte(nil), fo.content...), nil
}

func (d *fakeDrive) Metadata(_ context.Context, objectID string) (*driveapi.Object, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["metadata"]++

	fo, ok := d.objects[objectID]
	if !ok {
		return nil, driveapi.ErrObjectNotFound
	}
	obj := fo.obj
	return &obj, nil
}

func (d *fakeDrive) BatchDelete(_ context.Context, params *driveapi.DeleteParams) (*driveapi.DeleteResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["batchDelete"]++

	resp := &driveapi.DeleteResponse{}
	for _, id := range params.IDs {
		if d.failDelete[id] {
			resp.Errors = append(resp.Errors, &driveapi.DeleteItemError{
				BaseError: driveapi.BaseError{Code: driveapi.CodeObjectDeleteFailed, Message: "delete unavailable"},
				ID:        id,
			})
			continue
		}
		delete(d.objects, id)
		resp.Deleted = append(resp.Deleted, id)
		d.deleted = append(d.deleted, id)
	}
	return resp, nil
}
