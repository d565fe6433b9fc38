package sync

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/vaultdrive/vaultdrive/internal/utils"
)

var ErrPushInProgress = errors.New("a push session is already in progress")

// SessionGuard serializes push sessions. Begin hands out a token that End
// must return; a second Begin while a session is live fails instead of
// blocking, so callers can surface "busy" immediately.
type SessionGuard struct {
	mu     sync.Mutex
	token  string
	device string
}

func NewSessionGuard() *SessionGuard {
	return &SessionGuard{device: utils.HWID}
}

// Begin starts a session and returns its token.
func (g *SessionGuard) Begin() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token != "" {
		return "", ErrPushInProgress
	}
	g.token = uuid.NewString()
	return g.token, nil
}

// End closes the session identified by token. Stale tokens are ignored, so a
// session is always ended exactly once no matter how its owner unwinds.
func (g *SessionGuard) End(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token == token {
		g.token = ""
	}
}

// Active reports whether a push session is live.
func (g *SessionGuard) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token != ""
}

// Device returns the stable hardware id stamped into snapshots.
func (g *SessionGuard) Device() string {
	return g.device
}
