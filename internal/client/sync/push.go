package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/vaultdrive/vaultdrive/internal/client/vault"
	"github.com/vaultdrive/vaultdrive/internal/driveapi"
	"github.com/vaultdrive/vaultdrive/internal/utils"
)

const defaultDeleteChunkSize = 50

// ErrPushDeclined is returned when the destructive-change confirmation is
// answered with no. The journal is left untouched.
var ErrPushDeclined = errors.New("push declined by user")

type PushOptions struct {
	// PoolWidth bounds concurrent remote calls within a batch.
	PoolWidth int
	// DeleteChunkSize bounds ids per bulk delete request.
	DeleteChunkSize int
	// ConfirmDestructive gates the delete phase behind the Confirmer.
	ConfirmDestructive bool
}

func (o *PushOptions) withDefaults() PushOptions {
	opts := *o
	if opts.PoolWidth < 1 {
		opts.PoolWidth = defaultPoolWidth
	}
	if opts.DeleteChunkSize < 1 {
		opts.DeleteChunkSize = defaultDeleteChunkSize
	}
	return opts
}

// PushOrchestrator drives one full push: pull precondition, then delete,
// create and modify phases, then the snapshot persist. The journal drains
// only after the persist succeeds; any earlier failure leaves it intact so
// the next push retries the same set.
type PushOrchestrator struct {
	vault     *vault.Vault
	store     DriveStore
	journal   *ChangeJournal
	index     *DriveIndex
	guard     *SessionGuard
	puller    Puller
	priority  *PriorityList
	progress  Progress
	notifier  Notifier
	confirmer Confirmer
	opts      PushOptions
}

func NewPushOrchestrator(v *vault.Vault, store DriveStore, journal *ChangeJournal, index *DriveIndex, guard *SessionGuard, puller Puller, opts PushOptions) *PushOrchestrator {
	return &PushOrchestrator{
		vault:     v,
		store:     store,
		journal:   journal,
		index:     index,
		guard:     guard,
		puller:    puller,
		priority:  NewPriorityList(),
		progress:  nopProgress{},
		notifier:  nopNotifier{},
		confirmer: AutoConfirmer{},
		opts:      opts.withDefaults(),
	}
}

func (o *PushOrchestrator) SetProgress(p Progress) {
	if p != nil {
		o.progress = p
	}
}

func (o *PushOrchestrator) SetNotifier(n Notifier) {
	if n != nil {
		o.notifier = n
	}
}

func (o *PushOrchestrator) SetConfirmer(c Confirmer) {
	if c != nil {
		o.confirmer = c
	}
}

// pushPlan is the frozen, reclassified view of the journal for one run.
type pushPlan struct {
	ops []Operation // exact snapshot to drain on success

	deletes          map[string]string // path -> remote id
	containerCreates []string
	leafCreates      []string
	modifies         map[string]string // path -> remote id
}

// Push runs one push session end to end.
func (o *PushOrchestrator) Push(ctx context.Context) error {
	token, err := o.guard.Begin()
	if err != nil {
		return err
	}
	defer o.guard.End(token)

	start := time.Now()
	slog.Info("push start", "device", o.guard.Device())

	o.progress.SetMessage("pulling remote changes")
	if err := o.puller.Pull(ctx, false); err != nil {
		return o.fail("pull", err)
	}

	ops, err := o.journal.Snapshot(ctx)
	if err != nil {
		return o.fail("journal", err)
	}
	if len(ops) == 0 {
		slog.Info("push no-op", "reason", "journal empty")
		o.progress.SetMessage("nothing to push")
		return nil
	}

	plan, err := o.partition(ctx, ops)
	if err != nil {
		return o.fail("partition", err)
	}

	if len(plan.deletes) > 0 && o.opts.ConfirmDestructive {
		desc := fmt.Sprintf("delete %d remote object(s)", len(plan.deletes))
		ok, err := o.confirmer.Confirm(ctx, desc)
		if err != nil {
			return o.fail("confirm", err)
		}
		if !ok {
			slog.Info("push declined")
			return ErrPushDeclined
		}
	}

	if err := o.deletePhase(ctx, plan); err != nil {
		return o.fail("delete phase", err)
	}
	o.progress.SetMessage(fmt.Sprintf("33%% deleted %d object(s)", len(plan.deletes)))

	if err := o.createPhase(ctx, plan); err != nil {
		return o.fail("create phase", err)
	}
	o.progress.SetMessage(fmt.Sprintf("66%% created %d object(s)", len(plan.containerCreates)+len(plan.leafCreates)))

	if err := o.modifyPhase(ctx, plan); err != nil {
		return o.fail("modify phase", err)
	}
	o.progress.SetMessage(fmt.Sprintf("99%% updated %d object(s)", len(plan.modifies)))

	if err := o.persistSnapshot(ctx, plan); err != nil {
		return o.fail("persist snapshot", err)
	}

	if err := o.journal.Drain(ctx, plan.ops); err != nil {
		return o.fail("journal drain", err)
	}

	o.progress.SetMessage(fmt.Sprintf("push complete, %d operation(s)", len(plan.ops)))
	slog.Info("push done", "ops", len(plan.ops), "took", time.Since(start))
	return nil
}

// partition freezes ops into phase buckets, reclassifying against current
// local and index state. A journaled create whose path already has a remote
// id becomes a modify so retries never duplicate uploads; a modify with no id
// becomes a create; paths gone locally become no-ops that drain anyway.
func (o *PushOrchestrator) partition(ctx context.Context, ops []Operation) (*pushPlan, error) {
	plan := &pushPlan{
		ops:      ops,
		deletes:  make(map[string]string),
		modifies: make(map[string]string),
	}

	for _, op := range o.priority.SortByPriority(ops) {
		switch op.Kind {
		case OpDelete:
			id, ok, err := o.index.Resolve(ctx, op.Path)
			if err != nil {
				return nil, err
			}
			if !ok {
				slog.Debug("push skip delete, not indexed", "path", op.Path)
				continue
			}
			plan.deletes[op.Path] = id

		case OpCreate, OpModify:
			info, err := o.vault.Stat(op.Path)
			if err != nil {
				return nil, err
			}
			if info == nil {
				slog.Debug("push skip, gone locally", "path", op.Path, "kind", op.Kind)
				continue
			}
			id, indexed, err := o.index.Resolve(ctx, op.Path)
			if err != nil {
				return nil, err
			}
			switch {
			case indexed && info.Kind == vault.KindLeaf:
				plan.modifies[op.Path] = id
			case indexed:
				// container already exists remotely, nothing to update
			case info.Kind == vault.KindContainer:
				plan.containerCreates = append(plan.containerCreates, op.Path)
			default:
				plan.leafCreates = append(plan.leafCreates, op.Path)
			}
		}
	}
	return plan, nil
}

// deletePhase bulk-deletes journaled paths plus any orphaned remote config
// objects, then forgets every confirmed id from the index.
func (o *PushOrchestrator) deletePhase(ctx context.Context, plan *pushPlan) error {
	paths := make([]string, 0, len(plan.deletes))
	for p := range plan.deletes {
		paths = append(paths, p)
	}

	orphans, err := o.orphanedConfigIDs(ctx)
	if err != nil {
		return err
	}

	// children go out before their parents, one depth batch at a time
	var idBatches [][]string
	for _, batch := range BatchForDelete(paths) {
		ids := make([]string, len(batch))
		for i, p := range batch {
			ids[i] = plan.deletes[p]
		}
		idBatches = append(idBatches, ids)
	}
	if len(orphans) > 0 {
		idBatches = append(idBatches, orphans)
	}

	for _, ids := range idBatches {
		if err := o.deleteIDs(ctx, ids); err != nil {
			// a parent delete over surviving children loses data, abort here
			return err
		}
	}
	return nil
}

func (o *PushOrchestrator) deleteIDs(ctx context.Context, ids []string) error {
	chunks := chunkIDs(ids, o.opts.DeleteChunkSize)
	responses := make([]*driveapi.DeleteResponse, len(chunks))
	tasks := make([]func(context.Context) error, len(chunks))
	for i, chunk := range chunks {
		i, chunk := i, chunk
		tasks[i] = func(ctx context.Context) error {
			resp, err := o.store.BatchDelete(ctx, &driveapi.DeleteParams{IDs: chunk})
			if err != nil {
				return err
			}
			responses[i] = resp
			return nil
		}
	}
	errs := RunBatch(ctx, o.opts.PoolWidth, tasks)

	// index mutation happens after the batch settles, never mid-flight
	var itemErrs []error
	for _, resp := range responses {
		if resp == nil {
			continue
		}
		for _, id := range resp.Deleted {
			if err := o.index.ForgetID(ctx, id); err != nil {
				return err
			}
		}
		for _, e := range resp.Errors {
			itemErrs = append(itemErrs, fmt.Errorf("delete %s: %s", e.ID, e.Message))
		}
	}

	if err := errors.Join(append(errs, itemErrs...)...); err != nil {
		return err
	}
	return nil
}

// orphanedConfigIDs finds remote config objects whose local counterpart is
// gone. Config objects are reconciled opportunistically, they never pass
// through the journal. The engine's own snapshot object is exempt.
func (o *PushOrchestrator) orphanedConfigIDs(ctx context.Context) ([]string, error) {
	resp, err := o.store.Search(ctx, &driveapi.SearchParams{
		Properties: map[string]string{driveapi.PropConfig: driveapi.PropConfigTrue},
	})
	if err != nil {
		return nil, fmt.Errorf("config sweep: %w", err)
	}

	var ids []string
	for _, obj := range resp.Objects {
		p := utils.NormalizeRelPath(obj.Path())
		if p == "" || p == vault.RemoteStatePath {
			continue
		}
		if !o.vault.Exists(p) {
			slog.Debug("push sweeping orphaned config object", "path", p, "id", obj.ID)
			ids = append(ids, obj.ID)
		}
	}
	return ids, nil
}

// createPhase creates containers depth-batch by depth-batch, recording each
// batch's ids before the next batch resolves its parents, then uploads all
// leaves concurrently.
func (o *PushOrchestrator) createPhase(ctx context.Context, plan *pushPlan) error {
	for _, batch := range BatchForCreate(plan.containerCreates) {
		created := make([]*driveapi.Object, len(batch))
		tasks := make([]func(context.Context) error, len(batch))
		for i, p := range batch {
			i, p := i, p
			tasks[i] = func(ctx context.Context) error {
				meta, err := o.objectMeta(ctx, p)
				if err != nil {
					return err
				}
				obj, err := o.store.CreateFolder(ctx, meta)
				if err != nil {
					return fmt.Errorf("create container %q: %w", p, err)
				}
				created[i] = obj
				return nil
			}
		}
		errs := RunBatch(ctx, o.opts.PoolWidth, tasks)

		for i, obj := range created {
			if obj == nil {
				continue
			}
			if err := o.index.Record(ctx, obj.ID, batch[i]); err != nil {
				return err
			}
		}
		if err := errors.Join(errs...); err != nil {
			// later batches would hit missing parents, abort here
			return err
		}
	}

	uploaded := make([]*driveapi.Object, len(plan.leafCreates))
	tasks := make([]func(context.Context) error, len(plan.leafCreates))
	for i, p := range plan.leafCreates {
		i, p := i, p
		tasks[i] = func(ctx context.Context) error {
			meta, err := o.objectMeta(ctx, p)
			if err != nil {
				return err
			}
			content, err := o.vault.ReadLeaf(p)
			if err != nil {
				return fmt.Errorf("read leaf %q: %w", p, err)
			}
			obj, err := o.store.Upload(ctx, meta, content)
			if err != nil {
				return fmt.Errorf("upload %q: %w", p, err)
			}
			uploaded[i] = obj
			return nil
		}
	}
	errs := RunBatch(ctx, o.opts.PoolWidth, tasks)

	for i, obj := range uploaded {
		if obj == nil {
			continue
		}
		if err := o.index.Record(ctx, obj.ID, plan.leafCreates[i]); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}

// modifyPhase pushes updated content for already-identified objects. No
// hierarchy ordering is needed since no identity is created or destroyed.
func (o *PushOrchestrator) modifyPhase(ctx context.Context, plan *pushPlan) error {
	paths := make([]string, 0, len(plan.modifies))
	for p := range plan.modifies {
		paths = append(paths, p)
	}

	tasks := make([]func(context.Context) error, len(paths))
	for i, p := range paths {
		p := p
		tasks[i] = func(ctx context.Context) error {
			content, err := o.vault.ReadLeaf(p)
			if err != nil {
				return fmt.Errorf("read leaf %q: %w", p, err)
			}
			if _, err := o.store.Update(ctx, plan.modifies[p], o.updateMeta(p), content); err != nil {
				return fmt.Errorf("update %q: %w", p, err)
			}
			return nil
		}
	}
	return errors.Join(RunBatch(ctx, o.opts.PoolWidth, tasks)...)
}

// persistSnapshot mirrors the updated index (plus any operations journaled
// during this run) to the remote snapshot object and to the local state file.
func (o *PushOrchestrator) persistSnapshot(ctx context.Context, plan *pushPlan) error {
	entries, err := o.index.Entries(ctx)
	if err != nil {
		return err
	}

	pushed := make(map[string]OpKind, len(plan.ops))
	for _, op := range plan.ops {
		pushed[op.Path] = op.Kind
	}
	current, err := o.journal.Snapshot(ctx)
	if err != nil {
		return err
	}
	leftover := make(map[string]OpKind)
	for _, op := range current {
		if kind, ok := pushed[op.Path]; ok && kind == op.Kind {
			continue
		}
		leftover[op.Path] = op.Kind
	}

	state := &SyncState{
		DriveIDToPath: entries,
		Operations:    leftover,
		Device:        o.guard.Device(),
		PushedAt:      time.Now().UTC(),
	}
	data, err := state.Marshal()
	if err != nil {
		return err
	}

	meta := &driveapi.ObjectMeta{
		Name:         path.Base(vault.RemoteStatePath),
		ModifiedTime: state.PushedAt,
		Properties: map[string]string{
			driveapi.PropPath:   vault.RemoteStatePath,
			driveapi.PropConfig: driveapi.PropConfigTrue,
		},
	}

	if id, ok, err := o.index.Resolve(ctx, vault.RemoteStatePath); err != nil {
		return err
	} else if ok {
		if _, err := o.store.Update(ctx, id, meta, data); err != nil {
			return fmt.Errorf("update snapshot: %w", err)
		}
	} else {
		obj, err := o.store.Upload(ctx, meta, data)
		if err != nil {
			return fmt.Errorf("upload snapshot: %w", err)
		}
		if err := o.index.Record(ctx, obj.ID, vault.RemoteStatePath); err != nil {
			return err
		}
	}

	localPath := o.vault.AbsPath(vault.RemoteStatePath)
	if err := utils.WriteFileAtomic(localPath, data, 0o644); err != nil {
		return fmt.Errorf("write local snapshot: %w", err)
	}
	return nil
}

// objectMeta builds the remote metadata for a vault path, tagging it with its
// logical path. The parent id comes from the index; a parent outside the
// index is assumed to be the remote root.
func (o *PushOrchestrator) objectMeta(ctx context.Context, p string) (*driveapi.ObjectMeta, error) {
	parentID := ""
	if parent := utils.ParentPath(p); parent != "" {
		id, ok, err := o.index.Resolve(ctx, parent)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("parent of %q has no remote id", p)
		}
		parentID = id
	}

	modTime := time.Now().UTC()
	if info, err := o.vault.Stat(p); err == nil && info != nil {
		modTime = info.ModifiedTime
	}

	return &driveapi.ObjectMeta{
		Name:         path.Base(p),
		ParentID:     parentID,
		ModifiedTime: modTime,
		Properties:   map[string]string{driveapi.PropPath: p},
	}, nil
}

// updateMeta builds metadata for an in-place content update. The object
// already has a remote identity and keeps its placement, so no parent id is
// resolved.
func (o *PushOrchestrator) updateMeta(p string) *driveapi.ObjectMeta {
	modTime := time.Now().UTC()
	if info, err := o.vault.Stat(p); err == nil && info != nil {
		modTime = info.ModifiedTime
	}

	return &driveapi.ObjectMeta{
		Name:         path.Base(p),
		ModifiedTime: modTime,
		Properties:   map[string]string{driveapi.PropPath: p},
	}
}

func (o *PushOrchestrator) fail(stage string, err error) error {
	slog.Error("push failed", "stage", stage, "error", err)
	o.notifier.Notify("Push failed", fmt.Sprintf("%s: %v", stage, err))
	return fmt.Errorf("push %s: %w", stage, err)
}

func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for len(ids) > size {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}
