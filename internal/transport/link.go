package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messenger-client/internal/models"
	"messenger-client/internal/observability"
)

// State is the connection state observed by upper layers.
type State string

const (
	StateConnecting   State = "connecting"
	StateOpen         State = "open"
	StateClosed       State = "closed"
	StateReconnecting State = "reconnecting"
)

// ErrNotOpen is returned by Send when the link is not open.
var ErrNotOpen = errors.New("link not open")

// EventHandler receives inbound events in arrival order.
type EventHandler func(models.InboundEvent)

// StateHandler receives exactly one notification per state transition.
type StateHandler func(State)

// Conn is the live connection surface managed by the Supervisor.
type Conn interface {
	Send(models.OutboundEvent) error
	Close()
}

// Link owns one live websocket connection. It knows nothing about chats or
// users; it moves events and reports state transitions.
type Link struct {
	onEvent EventHandler
	onState StateHandler

	mu     sync.Mutex
	conn   *websocket.Conn
	state  State
	closed bool
}

var _ Conn = (*Link)(nil)

// Dial opens a connection to the given ws(s) URL and starts the read loop.
// The cause of a later drop is not distinguished here: network loss, server
// close and protocol errors all surface as a single closed transition.
func Dial(ctx context.Context, url string, onEvent EventHandler, onState StateHandler) (*Link, error) {
	ctx, span := otel.Tracer("messenger-client/transport").Start(ctx, "ws.dial")
	defer span.End()

	l := &Link{onEvent: onEvent, onState: onState}
	l.setState(StateConnecting)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		l.setState(StateClosed)
		return nil, err
	}

	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	l.setState(StateOpen)

	go l.readLoop()
	return l, nil
}

// Send writes one event, fire-and-forget. Callers check state; a send on a
// link that is not open is rejected, never queued.
func (l *Link) Send(ev models.OutboundEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.state != StateOpen {
		return ErrNotOpen
	}
	observability.IncWSEvent("out", ev.Type)
	return l.conn.WriteJSON(ev)
}

// Close shuts the link down on behalf of the caller. No events and no state
// notifications are delivered after Close returns.
func (l *Link) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.state = StateClosed
	conn := l.conn
	l.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (l *Link) readLoop() {
	for {
		_, payload, err := l.conn.ReadMessage()
		if err != nil {
			l.mu.Lock()
			callerClosed := l.closed
			l.mu.Unlock()
			if !callerClosed {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("websocket read error: %v", err)
				}
				l.setState(StateClosed)
			}
			return
		}

		var ev models.InboundEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			log.Printf("websocket decode error: %v", err)
			continue
		}

		l.mu.Lock()
		dropped := l.closed
		l.mu.Unlock()
		if dropped {
			return
		}

		observability.IncWSEvent("in", ev.Type)
		if l.onEvent != nil {
			l.onEvent(ev)
		}
	}
}

func (l *Link) setState(next State) {
	l.mu.Lock()
	if l.closed || l.state == next {
		l.mu.Unlock()
		return
	}
	l.state = next
	l.mu.Unlock()

	if l.onState != nil {
		l.onState(next)
	}
}
