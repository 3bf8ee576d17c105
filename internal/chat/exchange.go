package chat

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// State is the lifecycle position of an Exchange.
type State int32

const (
	StateCreated State = iota
	StateAwaitingResponse
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Source tells what resolved an exchange.
type Source int

const (
	SourceNone Source = iota
	SourceBridge
	SourceFallback
	SourceTimeout
	SourceCanceled
)

func (s Source) String() string {
	switch s {
	case SourceBridge:
		return "bridge"
	case SourceFallback:
		return "fallback"
	case SourceTimeout:
		return "timeout"
	case SourceCanceled:
		return "canceled"
	default:
		return "none"
	}
}

// Resolution is the final outcome of an exchange.
type Resolution struct {
	Source Source
	Text   string
	At     time.Time
}

// Diagnostic reports whether the text came from the client rather than
// from an engine.
func (r Resolution) Diagnostic() bool {
	return r.Source == SourceFallback || r.Source == SourceTimeout || r.Source == SourceCanceled
}

// Exchange correlates one submitted query with its placeholder message.
type Exchange struct {
	ID        string
	Query     string
	Engine    string
	CreatedAt time.Time

	handle Handle
	state  atomic.Int32
	done   chan struct{}

	mu         sync.Mutex
	timer      *time.Timer
	resolution Resolution
}

func newExchange(id, query, engine string, h Handle) *Exchange {
	return &Exchange{
		ID:        id,
		Query:     query,
		Engine:    engine,
		CreatedAt: time.Now(),
		handle:    h,
		done:      make(chan struct{}),
	}
}

// Handle returns the transcript slot of the placeholder.
func (e *Exchange) Handle() Handle {
	return e.handle
}

// State returns the current lifecycle state.
func (e *Exchange) State() State {
	return State(e.state.Load())
}

// Done is closed once the exchange is resolved and the controller has
// recorded and announced the resolution.
func (e *Exchange) Done() <-chan struct{} {
	return e.done
}

// Resolution returns the outcome; ok is false while unresolved.
func (e *Exchange) Resolution() (Resolution, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolution, e.resolution.Source != SourceNone
}

// Wait blocks until the exchange resolves or ctx ends.
func (e *Exchange) Wait(ctx context.Context) (Resolution, error) {
	select {
	case <-e.done:
		r, _ := e.Resolution()
		return r, nil
	case <-ctx.Done():
		return Resolution{}, ctx.Err()
	}
}

// await moves the exchange to AwaitingResponse and arms its timer.
// A nil fire leaves it without timer.
func (e *Exchange) await(delay time.Duration, fire func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Store(int32(StateAwaitingResponse))
	if fire != nil {
		e.timer = time.AfterFunc(max(delay, 0), fire)
	}
}

// resolve applies the first resolution and reports whether this call won.
func (e *Exchange) resolve(t *Transcript, src Source, text string) bool {
	if !e.state.CompareAndSwap(int32(StateAwaitingResponse), int32(StateResolved)) {
		return false
	}

	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.resolution = Resolution{Source: src, Text: text, At: time.Now()}
	e.mu.Unlock()

	t.SetText(e.handle, text)
	return true
}

// finish closes Done. It runs after the resolution's side effects.
func (e *Exchange) finish() {
	close(e.done)
}
