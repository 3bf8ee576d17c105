package history

import (
	"sync"

	"github.com/diogo/zai/internal/models"
)

// Recorder appends chat messages to a single conversation. The
// conversation file is created with the first recorded message, so a
// session that never submits anything leaves no trace.
type Recorder struct {
	store *Store

	mu     sync.Mutex
	convID string
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

// ResumeRecorder continues an existing conversation.
func ResumeRecorder(store *Store, convID string) *Recorder {
	return &Recorder{store: store, convID: convID}
}

// RecordMessage persists one message.
func (r *Recorder) RecordMessage(role models.Role, text, engine string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.convID == "" {
		conv, err := r.store.CreateConversation(engine)
		if err != nil {
			return err
		}
		r.convID = conv.ID
	}
	return r.store.AddMessage(r.convID, role, text, engine)
}

// ConversationID returns the conversation being written, or "" before the
// first message.
func (r *Recorder) ConversationID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.convID
}
