package presence

import (
	"sort"
	"sync"
	"time"
)

// Tracker maintains short-lived ephemeral state driven by push events: who
// is typing and the last-known online status per username. Nothing here is
// persisted or polled.
type Tracker struct {
	mu     sync.RWMutex
	typing map[string]time.Time
	status map[string]string
	now    func() time.Time
}

// NewTracker builds an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		typing: make(map[string]time.Time),
		status: make(map[string]string),
		now:    time.Now,
	}
}

// SetTyping records a typing signal. An explicit false is the only clear
// signal in the contract: a peer that disconnects mid-typing leaves a stale
// indicator until its next signal.
func (t *Tracker) SetTyping(username string, isTyping bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if isTyping {
		t.typing[username] = t.now()
		return
	}
	delete(t.typing, username)
}

// Typing returns the usernames currently marked as typing, sorted.
func (t *Tracker) Typing() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.typing))
	for name := range t.typing {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsTyping reports whether the username is currently marked as typing.
func (t *Tracker) IsTyping(username string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.typing[username]
	return ok
}

// ObserveStatus refreshes the last-known status for a user. Presence is
// best-effort: refreshed opportunistically whenever any event references
// the user, never actively polled.
func (t *Tracker) ObserveStatus(username, status string) {
	if username == "" || status == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status[username] = status
}

// Status returns the last-known status for a user, or "" when the user has
// never been observed.
func (t *Tracker) Status(username string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status[username]
}
