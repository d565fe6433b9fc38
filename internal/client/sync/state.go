package sync

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// SyncState is the engine snapshot mirrored to the remote as a config object.
// Another machine adopting the vault seeds its index and journal from it.
type SyncState struct {
	DriveIDToPath map[string]string `json:"driveIdToPath"`
	Operations    map[string]OpKind `json:"operations"`
	Device        string            `json:"device"`
	PushedAt      time.Time         `json:"pushedAt"`
}

func (s *SyncState) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal sync state: %w", err)
	}
	return data, nil
}

func UnmarshalSyncState(data []byte) (*SyncState, error) {
	var s SyncState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal sync state: %w", err)
	}
	if s.DriveIDToPath == nil {
		s.DriveIDToPath = map[string]string{}
	}
	if s.Operations == nil {
		s.Operations = map[string]OpKind{}
	}
	return &s, nil
}
