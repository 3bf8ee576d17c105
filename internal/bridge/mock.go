package bridge

import (
	"context"
	"sync"

	apierrors "github.com/diogo/zai/internal/errors"
	"github.com/diogo/zai/internal/models"
)

// Call records one ProcessQuery invocation on a Mock.
type Call struct {
	Query  string
	Engine string
}

// Mock is an in-memory Bridge for tests and offline demos.
//
// With Respond unset every query is held until Complete is called.
// With Respond set, queries for which it returns ok are completed
// before ProcessQuery returns.
type Mock struct {
	Respond func(query, engine string) (response string, ok bool)

	mu        sync.Mutex
	calls     []Call
	callbacks []func(string)
	done      []bool
	closed    bool
}

var _ Bridge = (*Mock)(nil)

// NewMock creates a Mock that holds every query.
func NewMock() *Mock {
	return &Mock{}
}

// NewStaticMock creates a Mock answering every query with response.
func NewStaticMock(response string) *Mock {
	return &Mock{
		Respond: func(string, string) (string, bool) { return response, true },
	}
}

// ProcessQuery records the call and completes it if Respond says so.
func (m *Mock) ProcessQuery(_ context.Context, query, engine string, onComplete func(string)) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		onComplete(models.FailureText(apierrors.ErrBridgeClosed))
		return
	}
	m.calls = append(m.calls, Call{Query: query, Engine: engine})
	m.callbacks = append(m.callbacks, onComplete)
	m.done = append(m.done, false)
	idx := len(m.calls) - 1
	respond := m.Respond
	m.mu.Unlock()

	if respond == nil {
		return
	}
	if text, ok := respond(query, engine); ok {
		m.Complete(idx, text)
	}
}

// Complete invokes the callback of call i with response.
// It returns false if i is out of range or was already completed.
func (m *Mock) Complete(i int, response string) bool {
	m.mu.Lock()
	if i < 0 || i >= len(m.callbacks) || m.done[i] {
		m.mu.Unlock()
		return false
	}
	m.done[i] = true
	cb := m.callbacks[i]
	m.mu.Unlock()

	cb(response)
	return true
}

// ForceComplete invokes the callback of call i even if it already ran.
// Used to exercise duplicate completion handling in callers.
func (m *Mock) ForceComplete(i int, response string) bool {
	m.mu.Lock()
	if i < 0 || i >= len(m.callbacks) {
		m.mu.Unlock()
		return false
	}
	m.done[i] = true
	cb := m.callbacks[i]
	m.mu.Unlock()

	cb(response)
	return true
}

// Calls returns a copy of the recorded calls.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of ProcessQuery calls.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Close marks the mock closed. Later queries fail immediately.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
