package sync

import (
	stdsync "sync"
	"time"
)

// PushState is the lifecycle phase of the current or last push.
type PushState string

const (
	PushStateIdle      PushState = "idle"
	PushStatePushing   PushState = "pushing"
	PushStateCompleted PushState = "completed"
	PushStateError     PushState = "error"
)

// StatusSnapshot is a point-in-time view of engine activity, served by the
// control plane and the CLI.
type StatusSnapshot struct {
	State       PushState `json:"state"`
	Message     string    `json:"message"`
	Pending     int       `json:"pending"`
	LastError   string    `json:"lastError,omitempty"`
	LastPushAt  time.Time `json:"lastPushAt"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// StatusTracker accumulates engine progress. It doubles as the Progress sink
// handed to the orchestrator.
type StatusTracker struct {
	mu   stdsync.RWMutex
	snap StatusSnapshot
}

func NewStatusTracker() *StatusTracker {
	return &StatusTracker{snap: StatusSnapshot{State: PushStateIdle, LastUpdated: time.Now()}}
}

// SetMessage implements Progress.
func (t *StatusTracker) SetMessage(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Message = msg
	t.snap.LastUpdated = time.Now()
}

func (t *StatusTracker) SetState(state PushState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.State = state
	t.snap.LastUpdated = time.Now()
	if state == PushStateCompleted {
		t.snap.LastError = ""
		t.snap.LastPushAt = time.Now()
	}
}

func (t *StatusTracker) SetError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.State = PushStateError
	t.snap.LastError = err.Error()
	t.snap.LastUpdated = time.Now()
}

func (t *StatusTracker) SetPending(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Pending = n
	t.snap.LastUpdated = time.Now()
}

func (t *StatusTracker) Snapshot() StatusSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}
