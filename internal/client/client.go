package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	stdsync "sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jmoiron/sqlx"

	"github.com/vaultdrive/vaultdrive/internal/client/config"
	"github.com/vaultdrive/vaultdrive/internal/client/sync"
	"github.com/vaultdrive/vaultdrive/internal/client/vault"
	"github.com/vaultdrive/vaultdrive/internal/db"
	"github.com/vaultdrive/vaultdrive/internal/driveapi"
)

// Client owns one vault and keeps it reconciled with the remote drive. It
// wires the watcher-fed journal to the push orchestrator, runs the periodic
// push loop, and follows the remote event feed to trigger pulls.
type Client struct {
	config  *config.Config
	vault   *vault.Vault
	sdk     *driveapi.DriveSDK
	journal *sync.ChangeJournal
	index   *sync.DriveIndex
	guard   *sync.SessionGuard
	status  *sync.StatusTracker
	watcher *sync.VaultWatcher
	ignores *sync.IgnoreList
	puller  *sync.DrivePuller

	orchestrator *sync.PushOrchestrator
	resolver     *sync.ReversalResolver
	recorder     *sync.ChangeRecorder

	conn *sqlx.DB

	// runMu serializes on-demand pulls against pushes
	runMu stdsync.Mutex
}

func New(cfg *config.Config) (*Client, error) {
	vaultDir, err := cfg.ResolveVaultDir()
	if err != nil {
		return nil, err
	}

	v, err := vault.New(vaultDir)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	if err := v.Setup(); err != nil {
		return nil, fmt.Errorf("setup vault: %w", err)
	}

	sdk, err := driveapi.New(&driveapi.Config{
		BaseURL: cfg.ServerURL,
		Token:   cfg.Token,
	})
	if err != nil {
		return nil, fmt.Errorf("create sdk: %w", err)
	}

	conn, err := db.NewSqliteDB(db.WithPath(v.StateDBPath()))
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	journal, err := sync.NewChangeJournal(conn)
	if err != nil {
		return nil, err
	}
	index, err := sync.NewDriveIndex(conn)
	if err != nil {
		return nil, err
	}

	guard := sync.NewSessionGuard()
	status := sync.NewStatusTracker()
	ignores := sync.NewIgnoreList(v.Root)
	watcher := sync.NewVaultWatcher(v.Root)
	watcher.FilterPaths(func(path string) bool {
		return strings.HasPrefix(path, v.MetadataDir)
	})

	puller := sync.NewDrivePuller(v, sdk.Objects, journal, index, ignores)
	puller.SetWriteSuppressor(watcher.IgnoreOnce)

	orchestrator := sync.NewPushOrchestrator(v, sdk.Objects, journal, index, guard, puller, sync.PushOptions{
		ConfirmDestructive: cfg.ConfirmDestructive,
	})
	orchestrator.SetProgress(status)
	orchestrator.SetNotifier(&logNotifier{})

	resolver := sync.NewReversalResolver(v, sdk.Objects, journal, index)
	resolver.SetWriteSuppressor(watcher.IgnoreOnce)

	recorder := sync.NewChangeRecorder(v, journal, index, ignores, status)

	return &Client{
		config:       cfg,
		vault:        v,
		sdk:          sdk,
		journal:      journal,
		index:        index,
		guard:        guard,
		status:       status,
		watcher:      watcher,
		ignores:      ignores,
		puller:       puller,
		orchestrator: orchestrator,
		resolver:     resolver,
		recorder:     recorder,
		conn:         conn,
	}, nil
}

// SetConfirmer installs the destructive-change confirmation used by pushes.
func (c *Client) SetConfirmer(confirmer sync.Confirmer) {
	c.orchestrator.SetConfirmer(confirmer)
}

// Start runs the client until ctx is cancelled.
func (c *Client) Start(ctx context.Context) error {
	slog.Info("client start", "vault", c.vault.Root, "server", c.config.ServerURL)

	if err := c.vault.Lock(); err != nil {
		return err
	}
	defer c.vault.Unlock()

	if err := c.adoptRemoteState(ctx); err != nil {
		slog.Warn("remote state adoption failed", "error", err)
	}

	if err := c.watcher.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer c.watcher.Stop()

	go c.recorder.Run(ctx, c.watcher.Events())
	go c.followEvents(ctx)

	if interval := c.config.PushInterval(); interval > 0 {
		go c.pushLoop(ctx, interval)
	} else {
		slog.Info("periodic push disabled")
	}

	<-ctx.Done()
	slog.Info("client stop")
	c.sdk.Close()
	c.conn.Close()
	return nil
}

// PushNow runs one push session.
func (c *Client) PushNow(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.status.SetState(sync.PushStatePushing)
	if err := c.orchestrator.Push(ctx); err != nil {
		if errors.Is(err, sync.ErrPushDeclined) {
			c.status.SetState(sync.PushStateIdle)
		} else {
			c.status.SetError(err)
		}
		return err
	}
	c.status.SetState(sync.PushStateCompleted)
	if n, err := c.journal.Count(ctx); err == nil {
		c.status.SetPending(n)
	}
	return nil
}

// PullNow runs one pull-merge outside a push session.
func (c *Client) PullNow(ctx context.Context, forceRemoteWins bool) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.puller.Pull(ctx, forceRemoteWins)
}

// Undo reverses pending operations for the given paths, or all pending
// operations when paths is empty. Returns one error per reversed operation.
func (c *Client) Undo(ctx context.Context, paths []string) ([]sync.Operation, []error, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	var ops []sync.Operation
	if len(paths) == 0 {
		snapshot, err := c.journal.Snapshot(ctx)
		if err != nil {
			return nil, nil, err
		}
		ops = snapshot
	} else {
		seen := make(map[string]bool)
		for _, p := range paths {
			matched, err := c.pendingMatching(ctx, p)
			if err != nil {
				return nil, nil, err
			}
			for _, op := range matched {
				if !seen[op.Path] {
					seen[op.Path] = true
					ops = append(ops, op)
				}
			}
		}
	}

	errs := c.resolver.ReverseAll(ctx, ops)
	if n, err := c.journal.Count(ctx); err == nil {
		c.status.SetPending(n)
	}
	return ops, errs, nil
}

// pendingMatching resolves a literal vault path or a glob pattern against
// the journal. Literal paths must have a pending operation; a glob pattern
// may match any number of entries.
func (c *Client) pendingMatching(ctx context.Context, pattern string) ([]sync.Operation, error) {
	if !strings.ContainsAny(pattern, "*?[{") {
		op, ok, err := c.journal.Get(ctx, pattern)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("no pending operation for %q", pattern)
		}
		return []sync.Operation{op}, nil
	}

	snapshot, err := c.journal.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var matched []sync.Operation
	for _, op := range snapshot {
		ok, err := doublestar.Match(pattern, op.Path)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		if ok {
			matched = append(matched, op)
		}
	}
	return matched, nil
}

// Status returns the current engine snapshot.
func (c *Client) Status() sync.StatusSnapshot {
	return c.status.Snapshot()
}

// PendingOps returns the journal contents.
func (c *Client) PendingOps(ctx context.Context) ([]sync.Operation, error) {
	return c.journal.Snapshot(ctx)
}

// adoptRemoteState seeds an empty index from the remote snapshot object, so a
// second machine attaching to an existing drive does not re-upload the world.
func (c *Client) adoptRemoteState(ctx context.Context) error {
	entries, err := c.index.Entries(ctx)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return nil
	}

	resp, err := c.sdk.Objects.Search(ctx, &driveapi.SearchParams{
		Properties: map[string]string{
			driveapi.PropPath:   vault.RemoteStatePath,
			driveapi.PropConfig: driveapi.PropConfigTrue,
		},
	})
	if err != nil {
		return err
	}
	if len(resp.Objects) == 0 {
		return nil
	}

	snap := resp.Objects[0]
	data, err := c.sdk.Objects.Download(ctx, snap.ID)
	if err != nil {
		return err
	}
	state, err := sync.UnmarshalSyncState(data)
	if err != nil {
		return err
	}

	if err := c.index.Replace(ctx, state.DriveIDToPath); err != nil {
		return err
	}
	if err := c.index.Record(ctx, snap.ID, vault.RemoteStatePath); err != nil {
		return err
	}
	slog.Info("adopted remote state", "entries", len(state.DriveIDToPath), "device", state.Device, "pushedAt", state.PushedAt)
	return nil
}

// pushLoop pushes on a fixed cadence. A push that finds the journal empty is
// a cheap no-op.
func (c *Client) pushLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.PushNow(ctx); err != nil && !errors.Is(err, sync.ErrPushInProgress) {
				slog.Error("periodic push", "error", err)
			}
		}
	}
}

// followEvents tails the remote change feed and pulls when something moves.
// The feed is best-effort: on error it backs off and reconnects.
func (c *Client) followEvents(ctx context.Context) {
	const reconnectDelay = 30 * time.Second

	for {
		if err := c.sdk.Events.Connect(ctx); err != nil {
			slog.Debug("event feed connect", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
				continue
			}
		}

	feed:
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-c.sdk.Events.Get():
				if !ok {
					slog.Debug("event feed closed, reconnecting")
					select {
					case <-ctx.Done():
						return
					case <-time.After(reconnectDelay):
					}
					break feed
				}
				slog.Debug("remote event", "type", event.Type, "path", event.Path)
				if err := c.PullNow(ctx, false); err != nil {
					slog.Error("event-driven pull", "error", err)
				}
			}
		}
	}
}

// logNotifier surfaces failure callouts through the structured log. The CLI
// replaces it with a terminal-visible notifier.
type logNotifier struct{}

func (logNotifier) Notify(title, body string) {
	slog.Warn("notice", "title", title, "body", body)
}
