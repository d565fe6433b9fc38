package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vaultdrive/vaultdrive/internal/client/vault"
	"github.com/vaultdrive/vaultdrive/internal/driveapi"
)

// ReversalResolver undoes recorded operations against the local tree by
// re-fetching the pre-operation state still held remotely. The inverse of a
// create is a local delete; the inverse of a delete or modify restores the
// remote object's content and timestamp locally. Reversed operations leave
// the journal, since local and remote agree again.
type ReversalResolver struct {
	vault   *vault.Vault
	store   DriveStore
	journal *ChangeJournal
	index   *DriveIndex
	width   int

	ignoreOnce func(absPath string)
}

func NewReversalResolver(v *vault.Vault, store DriveStore, journal *ChangeJournal, index *DriveIndex) *ReversalResolver {
	return &ReversalResolver{
		vault:      v,
		store:      store,
		journal:    journal,
		index:      index,
		width:      defaultPoolWidth,
		ignoreOnce: func(string) {},
	}
}

// SetWriteSuppressor installs the watcher hook called before every local
// write a reversal performs.
func (r *ReversalResolver) SetWriteSuppressor(fn func(absPath string)) {
	if fn != nil {
		r.ignoreOnce = fn
	}
}

// Reverse undoes a single operation.
func (r *ReversalResolver) Reverse(ctx context.Context, op Operation) error {
	errs := r.ReverseAll(ctx, []Operation{op})
	return errs[0]
}

// ReverseAll undoes a batch of operations, returning one error slot per
// operation. A fetch failure for one path never aborts the others. Containers
// being restored are recreated root-most first so leaves inside them always
// have a parent.
func (r *ReversalResolver) ReverseAll(ctx context.Context, ops []Operation) []error {
	errs := make([]error, len(ops))
	slot := make(map[string]int, len(ops))
	for i, op := range ops {
		slot[op.Path] = i
	}

	restoreIDs := make(map[string]string) // path -> remote id, for delete inverses
	var modifies []Operation

	for i, op := range ops {
		switch op.Kind {
		case OpCreate:
			errs[i] = r.reverseCreate(ctx, op.Path)
		case OpModify:
			modifies = append(modifies, op)
		case OpDelete:
			id, ok, err := r.index.Resolve(ctx, op.Path)
			if err != nil {
				errs[i] = err
			} else if !ok {
				errs[i] = fmt.Errorf("reverse delete %q: no remote id", op.Path)
			} else {
				restoreIDs[op.Path] = id
			}
		default:
			errs[i] = fmt.Errorf("reverse %q: unknown kind %q", op.Path, op.Kind)
		}
	}

	r.reverseDeletes(ctx, restoreIDs, slot, errs)

	tasks := make([]func(context.Context) error, len(modifies))
	for i, op := range modifies {
		op := op
		tasks[i] = func(ctx context.Context) error {
			return r.restoreFromRemote(ctx, op.Path)
		}
	}
	for i, err := range RunBatch(ctx, r.width, tasks) {
		errs[slot[modifies[i].Path]] = err
	}

	for i, op := range ops {
		if errs[i] != nil {
			continue
		}
		if err := r.journal.Remove(ctx, op.Path); err != nil {
			errs[i] = err
			continue
		}
		slog.Info("reversed", "path", op.Path, "kind", op.Kind)
	}
	return errs
}

// reverseCreate drops the local node. The remote never saw it, so no fetch
// is needed.
func (r *ReversalResolver) reverseCreate(ctx context.Context, path string) error {
	r.ignoreOnce(r.vault.AbsPath(path))
	if err := r.vault.Remove(path); err != nil {
		return fmt.Errorf("reverse create %q: %w", path, err)
	}
	return nil
}

// reverseDeletes restores locally-deleted nodes from the remote. Container
// metadata is fetched first to split containers from leaves; containers are
// recreated depth by depth before any leaf content lands.
func (r *ReversalResolver) reverseDeletes(ctx context.Context, restoreIDs map[string]string, slot map[string]int, errs []error) {
	if len(restoreIDs) == 0 {
		return
	}

	paths := make([]string, 0, len(restoreIDs))
	for p := range restoreIDs {
		paths = append(paths, p)
	}

	objs := make([]*driveapi.Object, len(paths))
	tasks := make([]func(context.Context) error, len(paths))
	for i, p := range paths {
		i, p := i, p
		tasks[i] = func(ctx context.Context) error {
			obj, err := r.store.Metadata(ctx, restoreIDs[p])
			if err != nil {
				return fmt.Errorf("reverse delete %q: %w", p, err)
			}
			objs[i] = obj
			return nil
		}
	}
	for i, err := range RunBatch(ctx, r.width, tasks) {
		if err != nil {
			errs[slot[paths[i]]] = err
		}
	}

	var containers, leaves []string
	for i, obj := range objs {
		if obj == nil {
			continue
		}
		if obj.Kind == driveapi.KindFolder {
			containers = append(containers, paths[i])
		} else {
			leaves = append(leaves, paths[i])
		}
	}

	for _, batch := range BatchForCreate(containers) {
		for _, p := range batch {
			r.ignoreOnce(r.vault.AbsPath(p))
			if err := r.vault.CreateContainer(p); err != nil {
				errs[slot[p]] = fmt.Errorf("reverse delete %q: %w", p, err)
			}
		}
	}

	leafTasks := make([]func(context.Context) error, len(leaves))
	for i, p := range leaves {
		p := p
		leafTasks[i] = func(ctx context.Context) error {
			return r.restoreFromRemote(ctx, p)
		}
	}
	for i, err := range RunBatch(ctx, r.width, leafTasks) {
		if err != nil {
			errs[slot[leaves[i]]] = err
		}
	}
}

// restoreFromRemote overwrites the local leaf with the remote object's
// current content and timestamp.
func (r *ReversalResolver) restoreFromRemote(ctx context.Context, path string) error {
	id, ok, err := r.index.Resolve(ctx, path)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("restore %q: no remote id", path)
	}

	obj, err := r.store.Metadata(ctx, id)
	if err != nil {
		return fmt.Errorf("restore %q: %w", path, err)
	}
	content, err := r.store.Download(ctx, id)
	if err != nil {
		return fmt.Errorf("restore %q: %w", path, err)
	}

	r.ignoreOnce(r.vault.AbsPath(path))
	if err := r.vault.WriteLeaf(path, content, obj.ModifiedTime); err != nil {
		return fmt.Errorf("restore %q: %w", path, err)
	}
	return nil
}
