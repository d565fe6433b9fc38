package driveapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	v1Events = "/api/v1/events"

	eventsChannelSize = 64
	eventsPingPeriod  = 15 * time.Second
	eventsPingTimeout = 5 * time.Second
)

// EventType classifies a remote change notification.
type EventType string

const (
	EventObjectChanged EventType = "object.changed"
	EventObjectDeleted EventType = "object.deleted"
)

// Event is a change notification pushed by the drive over the websocket.
// The engine uses these only as a hint to schedule a pull before the next
// push; the API is eventually consistent, so events may arrive late or not
// at all.
type Event struct {
	Type EventType `json:"type"`
	ID   string    `json:"id"`
	Path string    `json:"path,omitempty"`
}

// EventsAPI maintains the websocket change feed.
type EventsAPI struct {
	wsURL  string
	token  string
	conn   *websocket.Conn
	events chan *Event

	mu        sync.Mutex
	connected bool
	closeOnce sync.Once
}

func newEventsAPI(baseURL, token string) *EventsAPI {
	wsURL := strings.Replace(baseURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	return &EventsAPI{
		wsURL:  wsURL + v1Events,
		token:  token,
		events: make(chan *Event, eventsChannelSize),
	}
}

// Connect dials the event feed and starts the read and keepalive loops.
func (e *EventsAPI) Connect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.connected {
		return nil
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+e.token)

	conn, _, err := websocket.Dial(ctx, e.wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return err
	}

	e.conn = conn
	e.connected = true

	go e.readLoop(ctx)
	go e.pingLoop(ctx)
	return nil
}

// Get returns the channel of remote change events.
func (e *EventsAPI) Get() <-chan *Event {
	return e.events
}

func (e *EventsAPI) IsConnected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connected
}

func (e *EventsAPI) Close() {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.conn != nil {
			e.conn.Close(websocket.StatusNormalClosure, "shutdown")
		}
		e.connected = false
		close(e.events)
	})
}

func (e *EventsAPI) readLoop(ctx context.Context) {
	defer slog.Debug("event feed reader shutdown")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, raw, err := e.conn.Read(ctx)
		if err != nil {
			if !isExpectedCloseError(err) {
				slog.Warn("event feed RECV", "error", err)
			}
			return
		}

		var event Event
		if err := jsonUnmarshal(raw, &event); err != nil {
			slog.Warn("event feed RECV decode", "error", err)
			continue
		}

		select {
		case e.events <- &event:
		default:
			slog.Warn("event feed buffer full", "dropped", event.Path)
		}
	}
}

func (e *EventsAPI) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(eventsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, eventsPingTimeout)
			err := e.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				slog.Error("event feed PING", "error", err)
				return
			}
		}
	}
}

// isExpectedCloseError returns true for normal connection teardown
func isExpectedCloseError(err error) bool {
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		return true
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, net.ErrClosed)
}
