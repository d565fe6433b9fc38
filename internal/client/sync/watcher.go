package sync

import (
	"context"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/rjeczalik/notify"
)

const (
	DefaultIgnoreTimeout   = time.Second
	defaultCleanupInterval = 15 * time.Second
	eventBufferSize        = 64
	defaultDebounceTimeout = 50 * time.Millisecond
)

// FilterCallback returns true if the event for path should be dropped before
// debouncing.
type FilterCallback func(path string) bool

// VaultWatcher emits debounced filesystem events for the vault tree. Paths
// the engine itself writes are suppressed via IgnoreOnce so pulls do not echo
// back into the journal.
type VaultWatcher struct {
	watchDir        string
	events          chan notify.EventInfo
	rawEvents       chan notify.EventInfo
	ignore          map[string]time.Time
	ignoreMu        stdsync.RWMutex
	cleanupInterval time.Duration
	done            chan struct{}
	wg              stdsync.WaitGroup

	pendingEvents   map[string]notify.EventInfo
	eventTimers     map[string]*time.Timer
	debounceMu      stdsync.Mutex
	debounceTimeout time.Duration

	ignoreCallback FilterCallback
	callbackMu     stdsync.RWMutex
}

func NewVaultWatcher(watchDir string) *VaultWatcher {
	return &VaultWatcher{
		watchDir:        watchDir,
		ignore:          make(map[string]time.Time),
		cleanupInterval: defaultCleanupInterval,
		done:            make(chan struct{}),
		pendingEvents:   make(map[string]notify.EventInfo),
		eventTimers:     make(map[string]*time.Timer),
		debounceTimeout: defaultDebounceTimeout,
	}
}

func (w *VaultWatcher) SetDebounceTimeout(timeout time.Duration) {
	w.debounceTimeout = timeout
}

// FilterPaths sets a callback to drop raw events before debouncing.
func (w *VaultWatcher) FilterPaths(callback FilterCallback) {
	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.ignoreCallback = callback
}

func (w *VaultWatcher) Start(ctx context.Context) error {
	slog.Info("vault watcher start", "dir", w.watchDir)

	w.rawEvents = make(chan notify.EventInfo, eventBufferSize)
	w.events = make(chan notify.EventInfo, eventBufferSize)

	recursivePath := w.watchDir + "/..."
	if err := notify.Watch(recursivePath, w.rawEvents, notify.Create, notify.Remove, notify.Rename, notify.Write); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.filterEvents(ctx)

	w.wg.Add(1)
	go w.cleanupExpiredEntries(ctx)

	return nil
}

func (w *VaultWatcher) Stop() {
	slog.Info("vault watcher stopping")

	close(w.done)
	if w.rawEvents != nil {
		notify.Stop(w.rawEvents)
	}
	w.wg.Wait()

	slog.Info("vault watcher stopped")
}

func (w *VaultWatcher) Events() <-chan notify.EventInfo {
	return w.events
}

// IgnoreOnce suppresses the next event for path within the default timeout.
func (w *VaultWatcher) IgnoreOnce(path string) {
	w.IgnoreOnceWithTimeout(path, DefaultIgnoreTimeout)
}

func (w *VaultWatcher) IgnoreOnceWithTimeout(path string, timeout time.Duration) {
	w.ignoreMu.Lock()
	defer w.ignoreMu.Unlock()
	w.ignore[path] = time.Now().Add(timeout)
}

// isPathTemporarilyIgnored consumes a pending IgnoreOnce entry for path.
func (w *VaultWatcher) isPathTemporarilyIgnored(path string) bool {
	w.ignoreMu.Lock()
	defer w.ignoreMu.Unlock()

	expiry, exists := w.ignore[path]
	if !exists {
		return false
	}
	delete(w.ignore, path)
	return !time.Now().After(expiry)
}

func (w *VaultWatcher) filterEvents(ctx context.Context) {
	defer func() {
		// flush whatever is still debouncing so shutdown loses nothing
		w.debounceMu.Lock()
		for path, timer := range w.eventTimers {
			timer.Stop()
			if event, exists := w.pendingEvents[path]; exists {
				select {
				case w.events <- event:
				default:
					slog.Warn("vault watcher channel full during exit", "path", path)
				}
			}
		}
		w.debounceMu.Unlock()

		w.wg.Done()
		close(w.events)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.rawEvents:
			if !ok {
				return
			}

			w.callbackMu.RLock()
			cb := w.ignoreCallback
			w.callbackMu.RUnlock()
			if cb != nil && cb(event.Path()) {
				continue
			}

			// inotify fires a burst of WRITE events while a file is being
			// written; debounce collapses the burst into one event
			w.debounceEvent(event)
		}
	}
}

func (w *VaultWatcher) debounceEvent(event notify.EventInfo) {
	path := event.Path()

	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, exists := w.eventTimers[path]; exists {
		timer.Stop()
		delete(w.eventTimers, path)
	}

	w.pendingEvents[path] = event

	timer := time.AfterFunc(w.debounceTimeout, func() {
		w.flushEvent(path)
	})
	w.eventTimers[path] = timer
}

func (w *VaultWatcher) flushEvent(path string) {
	w.debounceMu.Lock()
	event, exists := w.pendingEvents[path]
	if !exists {
		w.debounceMu.Unlock()
		return
	}
	delete(w.pendingEvents, path)
	delete(w.eventTimers, path)
	w.debounceMu.Unlock()

	if w.isPathTemporarilyIgnored(path) {
		return
	}

	select {
	case w.events <- event:
		slog.Debug("vault watcher", "event", event.Event(), "path", path)
	default:
		slog.Warn("vault watcher dropped", "reason", "channel full", "path", path)
	}
}

func (w *VaultWatcher) cleanupExpiredEntries(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-ticker.C:
			w.ignoreMu.Lock()
			now := time.Now()
			for path, expiry := range w.ignore {
				if now.After(expiry) {
					delete(w.ignore, path)
				}
			}
			w.ignoreMu.Unlock()
		}
	}
}
