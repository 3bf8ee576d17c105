package chat

import (
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/diogo/zai/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeInput struct {
	value string
}

func (f *fakeInput) Value() string     { return f.value }
func (f *fakeInput) SetValue(v string) { f.value = v }

type fakeEngine string

func (f fakeEngine) Value() string { return string(f) }

type fakeScroller struct {
	calls int
}

func (f *fakeScroller) GotoBottom() { f.calls++ }

type recorded struct {
	role   models.Role
	text   string
	engine string
}

type memRecorder struct {
	mu   sync.Mutex
	msgs []recorded
	err  error
}

func (r *memRecorder) RecordMessage(role models.Role, text, engine string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, recorded{role: role, text: text, engine: engine})
	return r.err
}

func (r *memRecorder) snapshot() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recorded, len(r.msgs))
	copy(out, r.msgs)
	return out
}
