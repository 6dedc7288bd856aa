package transport

import (
	"context"
	"log"
	"sync"
	"time"

	"messenger-client/internal/models"
	"messenger-client/internal/observability"
)

// SupervisorState names the supervisor state machine states.
type SupervisorState string

const (
	SupervisorIdle       SupervisorState = "idle"
	SupervisorConnecting SupervisorState = "connecting"
	SupervisorConnected  SupervisorState = "connected"
	SupervisorBackoff    SupervisorState = "backoff"
)

// DialFunc opens a live connection. Tests substitute a fake.
type DialFunc func(ctx context.Context, url string, onEvent EventHandler, onState StateHandler) (Conn, error)

// ActiveChatFunc reports the chat whose join must be replayed after a
// reconnect, so live delivery resumes without the upper layer re-opening
// the chat. ok is false when no chat is selected.
type ActiveChatFunc func() (username, chatID string, ok bool)

// Supervisor wraps a Link and keeps it alive: any unexpected drop enters a
// constant-delay backoff and reconnects, indefinitely, until Stop. A failed
// attempt is treated identically to a dropped connection; neither is ever
// surfaced as an error, only as a state change.
type Supervisor struct {
	url        string
	delay      time.Duration
	dial       DialFunc
	onEvent    EventHandler
	onState    StateHandler
	activeChat ActiveChatFunc

	// afterFunc is time.AfterFunc unless a test substitutes a fake clock.
	afterFunc func(time.Duration, func()) *time.Timer

	mu      sync.Mutex
	state   SupervisorState
	conn    Conn
	timer   *time.Timer
	stopped bool
	gen     int
}

// NewSupervisor builds an idle supervisor. Passing a nil dial uses the real
// websocket Link.
func NewSupervisor(url string, delay time.Duration, dial DialFunc, onEvent EventHandler, onState StateHandler, activeChat ActiveChatFunc) *Supervisor {
	if dial == nil {
		dial = func(ctx context.Context, url string, onEvent EventHandler, onState StateHandler) (Conn, error) {
			return Dial(ctx, url, onEvent, onState)
		}
	}
	return &Supervisor{
		url:        url,
		delay:      delay,
		dial:       dial,
		onEvent:    onEvent,
		onState:    onState,
		activeChat: activeChat,
		afterFunc:  time.AfterFunc,
		state:      SupervisorIdle,
	}
}

// Start begins connecting. Calling Start on a non-idle supervisor is a no-op.
func (s *Supervisor) Start() {
	s.mu.Lock()
	if s.stopped || s.state != SupervisorIdle {
		s.mu.Unlock()
		return
	}
	s.state = SupervisorConnecting
	s.mu.Unlock()

	go s.connect()
}

// Stop tears the connection down for good. The caller sees a single closed
// notification and no further activity.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.gen++
	conn := s.conn
	timer := s.timer
	s.conn = nil
	s.timer = nil
	s.state = SupervisorIdle
	s.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if conn != nil {
		conn.Close()
	}
	observability.SetWSConnected(false)
	if s.onState != nil {
		s.onState(StateClosed)
	}
}

// Send forwards an event to the live link. A send while the link is down is
// dropped silently; the durable HTTP path is the caller's responsibility.
func (s *Supervisor) Send(ev models.OutboundEvent) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		log.Printf("live send dropped (%s): link down", ev.Type)
		return
	}
	if err := conn.Send(ev); err != nil {
		log.Printf("live send failed (%s): %v", ev.Type, err)
	}
}

// State returns the current supervisor state.
func (s *Supervisor) State() SupervisorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) connect() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	gen := s.gen
	s.mu.Unlock()

	observability.IncReconnect()
	conn, err := s.dial(context.Background(), s.url, s.handleEvent, func(st State) {
		s.handleLinkState(gen, st)
	})
	if err != nil {
		log.Printf("connection attempt failed: %v", err)
		s.enterBackoff(gen)
		return
	}

	s.mu.Lock()
	if s.stopped || gen != s.gen {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	s.state = SupervisorConnected
	replay := s.activeChat
	s.mu.Unlock()

	observability.SetWSConnected(true)

	// Re-establish the current chat subscription so live delivery resumes.
	if replay != nil {
		if username, chatID, ok := replay(); ok {
			if err := conn.Send(models.OutboundEvent{
				Type:     models.EventUserJoin,
				Username: username,
				ChatID:   chatID,
			}); err != nil {
				log.Printf("join replay failed for chat %s: %v", chatID, err)
			}
		}
	}
}

func (s *Supervisor) handleEvent(ev models.InboundEvent) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}

func (s *Supervisor) handleLinkState(gen int, st State) {
	s.mu.Lock()
	if s.stopped || gen != s.gen {
		s.mu.Unlock()
		return
	}
	if st == StateClosed {
		s.conn = nil
		s.mu.Unlock()
		observability.SetWSConnected(false)
		s.enterBackoff(gen)
		return
	}
	s.mu.Unlock()

	if s.onState != nil {
		s.onState(st)
	}
}

func (s *Supervisor) enterBackoff(gen int) {
	s.mu.Lock()
	if s.stopped || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.gen++
	next := s.gen
	s.state = SupervisorBackoff
	s.timer = s.afterFunc(s.delay, func() {
		s.mu.Lock()
		if s.stopped || next != s.gen {
			s.mu.Unlock()
			return
		}
		s.state = SupervisorConnecting
		s.timer = nil
		s.mu.Unlock()
		s.connect()
	})
	s.mu.Unlock()

	if s.onState != nil {
		s.onState(StateReconnecting)
	}
}
