package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/vaultdrive/vaultdrive/internal/client/vault"
	"github.com/vaultdrive/vaultdrive/internal/driveapi"
	"github.com/vaultdrive/vaultdrive/internal/utils"
)

// Puller is the pull-merge precondition the orchestrator runs before its
// phases. It must complete before any delete/create/modify runs so remote
// changes land locally first instead of being clobbered.
type Puller interface {
	Pull(ctx context.Context, forceRemoteWins bool) error
}

// DrivePuller merges the remote tree into the vault. Remote-only nodes are
// materialized locally, remote deletions of clean paths are applied locally,
// and paths with pending journal entries are left alone unless
// forceRemoteWins is set.
type DrivePuller struct {
	vault   *vault.Vault
	store   DriveStore
	journal *ChangeJournal
	index   *DriveIndex
	ignores *IgnoreList

	// ignoreOnce suppresses the watcher echo for a path the pull writes
	ignoreOnce func(absPath string)
}

func NewDrivePuller(v *vault.Vault, store DriveStore, journal *ChangeJournal, index *DriveIndex, ignores *IgnoreList) *DrivePuller {
	return &DrivePuller{
		vault:      v,
		store:      store,
		journal:    journal,
		index:      index,
		ignores:    ignores,
		ignoreOnce: func(string) {},
	}
}

// SetWriteSuppressor installs the watcher hook called before every local
// write the pull performs.
func (p *DrivePuller) SetWriteSuppressor(fn func(absPath string)) {
	if fn != nil {
		p.ignoreOnce = fn
	}
}

func (p *DrivePuller) Pull(ctx context.Context, forceRemoteWins bool) error {
	resp, err := p.store.Search(ctx, &driveapi.SearchParams{})
	if err != nil {
		return fmt.Errorf("pull search: %w", err)
	}

	remote := make(map[string]*driveapi.Object, len(resp.Objects))
	for _, obj := range resp.Objects {
		path := utils.NormalizeRelPath(obj.Path())
		if path == "" {
			continue
		}
		if obj.IsConfig() {
			// config objects carry engine state, never vault content
			if path == vault.RemoteStatePath {
				if err := p.index.Record(ctx, obj.ID, path); err != nil {
					return err
				}
			}
			continue
		}
		if p.ignores.ShouldIgnore(path) {
			continue
		}
		remote[path] = obj
	}

	if err := p.applyRemoteNodes(ctx, remote, forceRemoteWins); err != nil {
		return err
	}
	return p.applyRemoteDeletions(ctx, remote, forceRemoteWins)
}

// applyRemoteNodes materializes remote nodes locally, containers before the
// leaves inside them.
func (p *DrivePuller) applyRemoteNodes(ctx context.Context, remote map[string]*driveapi.Object, forceRemoteWins bool) error {
	paths := make([]string, 0, len(remote))
	for path := range remote {
		paths = append(paths, path)
	}
	sort.Slice(paths, func(i, j int) bool {
		return utils.PathDepth(paths[i]) < utils.PathDepth(paths[j])
	})

	for _, path := range paths {
		obj := remote[path]
		if err := p.applyRemoteNode(ctx, path, obj, forceRemoteWins); err != nil {
			return err
		}
	}
	return nil
}

func (p *DrivePuller) applyRemoteNode(ctx context.Context, path string, obj *driveapi.Object, forceRemoteWins bool) error {
	if err := p.index.Record(ctx, obj.ID, path); err != nil {
		return err
	}

	info, err := p.vault.Stat(path)
	if err != nil {
		return fmt.Errorf("pull stat %q: %w", path, err)
	}

	if obj.Kind == driveapi.KindFolder {
		if info == nil {
			p.ignoreOnce(p.vault.AbsPath(path))
			if err := p.vault.CreateContainer(path); err != nil {
				return fmt.Errorf("pull create container %q: %w", path, err)
			}
			slog.Info("pull created container", "path", path)
		}
		return nil
	}

	pending, hasPending, err := p.journal.Get(ctx, path)
	if err != nil {
		return err
	}

	switch {
	case info == nil && hasPending && pending.Kind == OpDelete && !forceRemoteWins:
		// local deletion pending, push will handle it
		return nil
	case info != nil && hasPending && !forceRemoteWins:
		// local edit pending, local wins until pushed
		return nil
	case info != nil:
		localHash, err := utils.FileHash(p.vault.AbsPath(path))
		if err != nil {
			return fmt.Errorf("pull hash %q: %w", path, err)
		}
		if localHash == obj.MD5 {
			return nil
		}
	}

	content, err := p.store.Download(ctx, obj.ID)
	if err != nil {
		return fmt.Errorf("pull download %q: %w", path, err)
	}

	p.ignoreOnce(p.vault.AbsPath(path))
	if err := p.vault.WriteLeaf(path, content, obj.ModifiedTime); err != nil {
		return fmt.Errorf("pull write %q: %w", path, err)
	}
	if hasPending && forceRemoteWins {
		if err := p.journal.Remove(ctx, path); err != nil {
			return err
		}
	}
	slog.Info("pull wrote leaf", "path", path, "size", humanize.Bytes(uint64(len(content))))
	return nil
}

// applyRemoteDeletions removes local nodes whose remote counterpart is gone.
// Paths with pending journal entries are kept unless forceRemoteWins is set.
func (p *DrivePuller) applyRemoteDeletions(ctx context.Context, remote map[string]*driveapi.Object, forceRemoteWins bool) error {
	entries, err := p.index.Entries(ctx)
	if err != nil {
		return err
	}

	// deepest first so leaves vanish before their containers
	type gone struct {
		id   string
		path string
	}
	var missing []gone
	for id, path := range entries {
		if path == vault.RemoteStatePath {
			continue
		}
		if _, ok := remote[path]; !ok {
			missing = append(missing, gone{id: id, path: path})
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		return utils.PathDepth(missing[i].path) > utils.PathDepth(missing[j].path)
	})

	for _, m := range missing {
		pending, hasPending, err := p.journal.Get(ctx, m.path)
		if err != nil {
			return err
		}
		if hasPending && !forceRemoteWins {
			if pending.Kind != OpDelete {
				// local recreated or edited it, push will re-upload
				if err := p.journal.Record(ctx, Operation{Path: m.path, Kind: OpCreate}); err != nil {
					return err
				}
			}
			if err := p.index.ForgetID(ctx, m.id); err != nil {
				return err
			}
			continue
		}

		p.ignoreOnce(p.vault.AbsPath(m.path))
		if err := p.vault.Remove(m.path); err != nil {
			return fmt.Errorf("pull remove %q: %w", m.path, err)
		}
		if err := p.index.ForgetID(ctx, m.id); err != nil {
			return err
		}
		if hasPending {
			if err := p.journal.Remove(ctx, m.path); err != nil {
				return err
			}
		}
		slog.Info("pull removed", "path", m.path)
	}
	return nil
}
