package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypingSetAndClear(t *testing.T) {
	tr := NewTracker()

	tr.SetTyping("bob", true)
	tr.SetTyping("carol", true)
	assert.Equal(t, []string{"bob", "carol"}, tr.Typing())
	assert.True(t, tr.IsTyping("bob"))

	tr.SetTyping("bob", false)
	assert.Equal(t, []string{"carol"}, tr.Typing())
	assert.False(t, tr.IsTyping("bob"))
}

func TestTypingStaysUntilExplicitStop(t *testing.T) {
	tr := NewTracker()

	tr.SetTyping("bob", true)
	tr.SetTyping("bob", true)

	// Repeated starts are idempotent; only an explicit stop clears.
	assert.Equal(t, []string{"bob"}, tr.Typing())
}

func TestClearUnknownUserIsNoop(t *testing.T) {
	tr := NewTracker()
	tr.SetTyping("ghost", false)
	assert.Empty(t, tr.Typing())
}

func TestObserveStatus(t *testing.T) {
	tr := NewTracker()

	tr.ObserveStatus("bob", "online")
	assert.Equal(t, "online", tr.Status("bob"))

	tr.ObserveStatus("bob", "offline")
	assert.Equal(t, "offline", tr.Status("bob"))

	assert.Equal(t, "", tr.Status("never-seen"))
}

func TestObserveStatusIgnoresEmpty(t *testing.T) {
	tr := NewTracker()

	tr.ObserveStatus("bob", "online")
	tr.ObserveStatus("bob", "")
	tr.ObserveStatus("", "online")

	assert.Equal(t, "online", tr.Status("bob"))
}
