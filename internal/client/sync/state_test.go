package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncStateRoundTrip(t *testing.T) {
	state := &SyncState{
		DriveIDToPath: map[string]string{"id1": "notes/a.md"},
		Operations:    map[string]OpKind{"notes/b.md": OpModify},
		Device:        "device-1",
		PushedAt:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := state.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalSyncState(data)
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestUnmarshalSyncStateFillsNilMaps(t *testing.T) {
	got, err := UnmarshalSyncState([]byte(`{"device":"d"}`))
	require.NoError(t, err)
	assert.NotNil(t, got.DriveIDToPath)
	assert.NotNil(t, got.Operations)
}

func TestStatusTrackerTransitions(t *testing.T) {
	tr := NewStatusTracker()
	assert.Equal(t, PushStateIdle, tr.Snapshot().State)

	tr.SetState(PushStatePushing)
	tr.SetMessage("33% deleted 2 object(s)")
	tr.SetPending(5)

	snap := tr.Snapshot()
	assert.Equal(t, PushStatePushing, snap.State)
	assert.Equal(t, "33% deleted 2 object(s)", snap.Message)
	assert.Equal(t, 5, snap.Pending)

	tr.SetError(assert.AnError)
	assert.Equal(t, PushStateError, tr.Snapshot().State)
	assert.NotEmpty(t, tr.Snapshot().LastError)

	tr.SetState(PushStateCompleted)
	snap = tr.Snapshot()
	assert.Equal(t, PushStateCompleted, snap.State)
	assert.Empty(t, snap.LastError)
	assert.False(t, snap.LastPushAt.IsZero())
}
