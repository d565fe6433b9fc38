package sync

import (
	"context"
	"log/slog"

	"github.com/rjeczalik/notify"

	"github.com/vaultdrive/vaultdrive/internal/client/vault"
)

// ChangeRecorder turns watcher events into journal operations. Classification
// is by observed state, not event kind: a path that no longer exists is a
// delete, an indexed path is a modify, everything else is a create. That way
// editors that rename-over or truncate-then-write still journal correctly.
type ChangeRecorder struct {
	vault   *vault.Vault
	journal *ChangeJournal
	index   *DriveIndex
	ignores *IgnoreList
	status  *StatusTracker
}

func NewChangeRecorder(v *vault.Vault, journal *ChangeJournal, index *DriveIndex, ignores *IgnoreList, status *StatusTracker) *ChangeRecorder {
	return &ChangeRecorder{
		vault:   v,
		journal: journal,
		index:   index,
		ignores: ignores,
		status:  status,
	}
}

// HandleEvent records the journal operation for one watcher event.
func (r *ChangeRecorder) HandleEvent(ctx context.Context, event notify.EventInfo) {
	relPath, err := r.vault.RelPath(event.Path())
	if err != nil {
		slog.Debug("recorder skip outside vault", "path", event.Path())
		return
	}
	if relPath == "" || r.ignores.ShouldIgnore(relPath) {
		return
	}

	op, ok, err := r.classify(ctx, relPath)
	if err != nil {
		slog.Error("recorder classify", "path", relPath, "error", err)
		return
	}
	if !ok {
		return
	}

	if err := r.journal.Record(ctx, op); err != nil {
		slog.Error("recorder journal", "path", relPath, "error", err)
		return
	}
	slog.Debug("recorder journaled", "path", relPath, "kind", op.Kind)

	if r.status != nil {
		if n, err := r.journal.Count(ctx); err == nil {
			r.status.SetPending(n)
		}
	}
}

// Run consumes events until the channel closes or ctx is done.
func (r *ChangeRecorder) Run(ctx context.Context, events <-chan notify.EventInfo) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			r.HandleEvent(ctx, event)
		}
	}
}

func (r *ChangeRecorder) classify(ctx context.Context, relPath string) (Operation, bool, error) {
	info, err := r.vault.Stat(relPath)
	if err != nil {
		return Operation{}, false, err
	}

	if info == nil {
		// deleting something the remote never had cancels out entirely
		if _, indexed, err := r.index.Resolve(ctx, relPath); err != nil {
			return Operation{}, false, err
		} else if !indexed {
			if pending, ok, err := r.journal.Get(ctx, relPath); err != nil {
				return Operation{}, false, err
			} else if ok && pending.Kind == OpCreate {
				if err := r.journal.Remove(ctx, relPath); err != nil {
					return Operation{}, false, err
				}
			}
			return Operation{}, false, nil
		}
		return Operation{Path: relPath, Kind: OpDelete}, true, nil
	}

	if _, indexed, err := r.index.Resolve(ctx, relPath); err != nil {
		return Operation{}, false, err
	} else if indexed {
		return Operation{Path: relPath, Kind: OpModify}, true, nil
	}
	return Operation{Path: relPath, Kind: OpCreate}, true, nil
}
