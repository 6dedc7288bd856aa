package reconcile

import (
	"sort"
	"sync"
	"time"

	"messenger-client/internal/models"
	"messenger-client/internal/observability"
)

// DefaultPendingWindow bounds how long a locally-sent message is matched
// against an incoming echo. Outside the window an echo is treated as a new
// message.
const DefaultPendingWindow = 15 * time.Second

type pendingEntry struct {
	chatID     string
	sender     string
	text       string
	recordedAt time.Time
}

// Reconciler merges message history fetched over REST with incremental live
// events into one authoritative per-chat ordered sequence, deduplicating a
// locally-sent message against its own later echo.
type Reconciler struct {
	mu        sync.Mutex
	sequences map[string][]models.Message
	pending   map[string]pendingEntry
	window    time.Duration
	now       func() time.Time
}

// NewReconciler builds an empty reconciler. A non-positive window falls back
// to DefaultPendingWindow.
func NewReconciler(window time.Duration) *Reconciler {
	if window <= 0 {
		window = DefaultPendingWindow
	}
	return &Reconciler{
		sequences: make(map[string][]models.Message),
		pending:   make(map[string]pendingEntry),
		window:    window,
		now:       time.Now,
	}
}

// LoadHistory replaces the sequence for a chat wholesale. It is the baseline:
// the only operation allowed to discard existing entries.
func (r *Reconciler) LoadHistory(chatID string, msgs []models.Message) {
	seq := make([]models.Message, len(msgs))
	copy(seq, msgs)
	sortByTimestamp(seq)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sequences[chatID] = seq
	for nonce, p := range r.pending {
		if p.chatID == chatID {
			delete(r.pending, nonce)
		}
	}
	observability.SetPendingMessages(len(r.pending))
}

// RecordPending inserts a provisional entry at the tail of the sequence at
// send time, before any server acknowledgment, and remembers it for echo
// matching.
func (r *Reconciler) RecordPending(chatID, sender, text, nonce string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sequences[chatID] = append(r.sequences[chatID], models.Message{
		ChatID:         chatID,
		SenderUsername: sender,
		Type:           models.MessageText,
		Text:           text,
		ClientNonce:    nonce,
	})
	r.pending[nonce] = pendingEntry{
		chatID:     chatID,
		sender:     sender,
		text:       text,
		recordedAt: r.now(),
	}
	observability.SetPendingMessages(len(r.pending))
}

// ApplyLive merges one live message event. A message matching a pending
// local send within the window resolves that entry in place; anything else
// appends. The sequence is re-sorted defensively on every merge: ordering by
// timestamp, ties keeping arrival order.
func (r *Reconciler) ApplyLive(msg models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seq := r.sequences[msg.ChatID]

	// A server-assigned id we already hold means a duplicate delivery.
	if msg.ID != "" {
		for _, existing := range seq {
			if existing.ID == msg.ID {
				observability.IncReconcileAnomaly("duplicate")
				return
			}
		}
	}

	if nonce, ok := r.matchPending(msg); ok {
		for i := range seq {
			if seq[i].ClientNonce == nonce {
				confirmed := msg
				confirmed.ClientNonce = ""
				seq[i] = confirmed
				break
			}
		}
		delete(r.pending, nonce)
		observability.SetPendingMessages(len(r.pending))
	} else {
		seq = append(seq, msg)
	}

	sortByTimestamp(seq)
	r.sequences[msg.ChatID] = seq
}

// SequenceFor returns a read-only snapshot of the ordered sequence for a
// chat. An unknown chat yields an empty sequence, never an error.
func (r *Reconciler) SequenceFor(chatID string) []models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	seq := r.sequences[chatID]
	out := make([]models.Message, len(seq))
	copy(out, seq)
	return out
}

// PendingCount reports how many local sends still await their echo.
func (r *Reconciler) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// matchPending finds a pending local send matching the incoming echo by
// (chatID, sender, payload) within the window. Two identical texts from the
// same sender inside the window can mis-resolve; the wire contract carries
// no client nonce, so this composite key is the best available bridge.
func (r *Reconciler) matchPending(msg models.Message) (string, bool) {
	cutoff := r.now().Add(-r.window)
	for nonce, p := range r.pending {
		if p.chatID == msg.ChatID && p.sender == msg.SenderUsername && p.text == msg.Text {
			if p.recordedAt.Before(cutoff) {
				observability.IncReconcileAnomaly("stale_pending")
				delete(r.pending, nonce)
				continue
			}
			return nonce, true
		}
	}
	return "", false
}

// sortByTimestamp orders by server timestamp ascending. Provisional entries
// have no timestamp yet and stay at the tail. The sort is stable so ties
// preserve arrival order.
func sortByTimestamp(seq []models.Message) {
	sort.SliceStable(seq, func(i, j int) bool {
		a, b := seq[i].Timestamp, seq[j].Timestamp
		if a == "" || b == "" {
			return b == "" && a != ""
		}
		return a < b
	})
}
