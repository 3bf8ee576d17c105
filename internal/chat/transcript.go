// Package chat implements the chat exchange controller: it turns submitted
// input into transcript messages, hands queries to a bridge and resolves
// each pending placeholder exactly once.
package chat

import (
	"sync"

	"github.com/diogo/zai/internal/models"
)

// Handle refers to one message slot of a Transcript.
type Handle struct {
	index int
	valid bool
}

// Valid reports whether h was returned by Append.
func (h Handle) Valid() bool {
	return h.valid
}

// Transcript is the ordered, append-only list of visible messages.
// It is safe for concurrent use; bridge callbacks and timers write to it
// from their own goroutines.
type Transcript struct {
	mu       sync.RWMutex
	messages []models.Message
	byID     map[string]int
	version  uint64
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{byID: make(map[string]int)}
}

// Append adds a message at the end and returns its handle.
func (t *Transcript) Append(role models.Role, text, elementID string) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages = append(t.messages, models.Message{Role: role, Text: text, ElementID: elementID})
	idx := len(t.messages) - 1
	if elementID != "" {
		t.byID[elementID] = idx
	}
	t.version++
	return Handle{index: idx, valid: true}
}

// SetText replaces the text of the message behind h.
func (t *Transcript) SetText(h Handle, text string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !h.valid || h.index >= len(t.messages) {
		return false
	}
	t.messages[h.index].Text = text
	t.version++
	return true
}

// Text returns the current text behind h.
func (t *Transcript) Text(h Handle) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !h.valid || h.index >= len(t.messages) {
		return ""
	}
	return t.messages[h.index].Text
}

// Lookup finds a placeholder by element id.
func (t *Transcript) Lookup(elementID string) (Handle, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idx, ok := t.byID[elementID]
	if !ok {
		return Handle{}, false
	}
	return Handle{index: idx, valid: true}, true
}

// Messages returns a snapshot of all messages in order.
func (t *Transcript) Messages() []models.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Version increases on every change. Views use it to skip redundant redraws.
func (t *Transcript) Version() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}
