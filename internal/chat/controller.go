package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/diogo/zai/internal/bridge"
	apierrors "github.com/diogo/zai/internal/errors"
	"github.com/diogo/zai/internal/models"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("chat controller is closed")

// InputField is the text input the controller reads and clears.
type InputField interface {
	Value() string
	SetValue(string)
}

// EngineSelector exposes the currently selected engine.
type EngineSelector interface {
	Value() string
}

// Scroller keeps the newest transcript entry visible.
type Scroller interface {
	GotoBottom()
}

// Recorder persists transcript messages outside the session.
type Recorder interface {
	RecordMessage(role models.Role, text, engine string) error
}

// Controller owns the lifecycle of submitted queries.
type Controller struct {
	transcript *Transcript
	input      InputField
	engines    EngineSelector
	scroller   Scroller
	bridge     bridge.Bridge

	fallbackDelay   time.Duration
	responseTimeout time.Duration
	recorder        Recorder
	onResolved      func(*Exchange)
	newID           func() string
	logger          *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending map[string]*Exchange
	closed  bool
}

// Option configures a Controller
type Option func(*Controller)

// WithBridge sets the bridge. Without one every exchange resolves through
// the fallback after the fallback delay.
func WithBridge(b bridge.Bridge) Option {
	return func(c *Controller) {
		c.bridge = b
	}
}

// WithFallbackDelay sets how long a placeholder waits when no bridge is set.
func WithFallbackDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.fallbackDelay = d
	}
}

// WithResponseTimeout bounds how long the bridge may take. 0 disables.
func WithResponseTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.responseTimeout = d
	}
}

// WithScroller sets the view scrolled after each submission.
func WithScroller(s Scroller) Option {
	return func(c *Controller) {
		c.scroller = s
	}
}

// WithRecorder sets where messages are persisted.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		c.recorder = r
	}
}

// WithOnResolved registers fn, called once per exchange after it resolves.
// It may run on any goroutine.
func WithOnResolved(fn func(*Exchange)) Option {
	return func(c *Controller) {
		c.onResolved = fn
	}
}

// WithIDGenerator replaces the exchange id generator.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTranscript makes the controller append to an existing transcript.
func WithTranscript(t *Transcript) Option {
	return func(c *Controller) {
		if t != nil {
			c.transcript = t
		}
	}
}

// NewController creates a controller reading from input and engines.
// Either may be nil when only Submit is used.
func NewController(input InputField, engines EngineSelector, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		transcript:      NewTranscript(),
		input:           input,
		engines:         engines,
		fallbackDelay:   models.DefaultFallbackDelay,
		responseTimeout: models.DefaultResponseTimeout,
		newID:           newExchangeID,
		logger:          zap.NewNop(),
		ctx:             ctx,
		cancel:          cancel,
		pending:         make(map[string]*Exchange),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newExchangeID() string {
	return models.ExchangeIDPrefix + uuid.NewString()
}

// Transcript returns the transcript the controller writes to.
func (c *Controller) Transcript() *Transcript {
	return c.transcript
}

// HasBridge reports whether a bridge was configured.
func (c *Controller) HasBridge() bool {
	return c.bridge != nil
}

// SubmitQuery reads the input field and engine selector and starts an
// exchange. Blank input is ignored: nothing is appended and the input is
// left as is.
func (c *Controller) SubmitQuery() (*Exchange, bool) {
	if c.input == nil || c.isClosed() {
		return nil, false
	}

	text := c.input.Value()
	if strings.TrimSpace(text) == "" {
		return nil, false
	}

	engine := c.selectedEngine()
	c.transcript.Append(models.RoleUser, text, "")
	c.input.SetValue("")

	return c.dispatch(text, engine), true
}

// Submit starts an exchange for query on engine without touching the
// input field.
func (c *Controller) Submit(query, engine string) (*Exchange, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apierrors.ErrEmptyQuery
	}
	if c.isClosed() {
		return nil, ErrClosed
	}
	if engine == "" {
		engine = c.selectedEngine()
	}

	c.transcript.Append(models.RoleUser, query, "")
	return c.dispatch(query, engine), nil
}

func (c *Controller) selectedEngine() string {
	if c.engines != nil {
		if v := c.engines.Value(); v != "" {
			return v
		}
	}
	return models.DefaultEngine
}

// dispatch creates the placeholder, arms the timer and calls the bridge.
func (c *Controller) dispatch(query, engine string) *Exchange {
	id := c.newID()
	h := c.transcript.Append(models.RoleAssistant, models.PlaceholderText(engine), id)
	ex := newExchange(id, query, engine, h)

	c.mu.Lock()
	closed := c.closed
	if !closed {
		c.pending[id] = ex
	}
	c.mu.Unlock()

	c.record(models.RoleUser, query, engine)

	if c.scroller != nil {
		c.scroller.GotoBottom()
	}

	// Close ran after the submit check and will not see this exchange.
	if closed {
		ex.await(0, nil)
		c.resolve(ex, SourceCanceled, models.CanceledText)
		return ex
	}

	log := c.logger.With(zap.String("exchange_id", id), zap.String("engine", engine))

	if c.bridge == nil {
		ex.await(c.fallbackDelay, func() {
			c.resolve(ex, SourceFallback, models.BridgeNotDetectedText)
		})
		log.Info("exchange submitted without bridge", zap.Duration("fallback_delay", c.fallbackDelay))
		return ex
	}

	var onTimeout func()
	if c.responseTimeout > 0 {
		timeout := c.responseTimeout
		onTimeout = func() {
			c.resolve(ex, SourceTimeout, models.ResponseTimeoutText(engine, timeout))
		}
	}
	ex.await(c.responseTimeout, onTimeout)

	log.Info("exchange submitted", zap.Int("query_len", len(query)))
	c.bridge.ProcessQuery(c.ctx, query, engine, func(response string) {
		c.resolve(ex, SourceBridge, response)
	})
	return ex
}

// resolve applies a resolution; only the first one per exchange takes effect.
func (c *Controller) resolve(ex *Exchange, src Source, text string) {
	if !ex.resolve(c.transcript, src, text) {
		c.logger.Debug("late resolution ignored",
			zap.String("exchange_id", ex.ID),
			zap.Stringer("source", src))
		return
	}

	c.mu.Lock()
	delete(c.pending, ex.ID)
	c.mu.Unlock()

	c.record(models.RoleAssistant, text, ex.Engine)

	c.logger.Info("exchange resolved",
		zap.String("exchange_id", ex.ID),
		zap.String("engine", ex.Engine),
		zap.Stringer("source", src),
		zap.Duration("latency", time.Since(ex.CreatedAt)))

	if c.onResolved != nil {
		c.onResolved(ex)
	}
	ex.finish()
}

func (c *Controller) record(role models.Role, text, engine string) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordMessage(role, text, engine); err != nil {
		c.logger.Warn("failed to record message", zap.String("role", string(role)), zap.Error(err))
	}
}

// Pending returns the number of unresolved exchanges.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// IsPending reports whether the exchange with the given id still awaits
// its response.
func (c *Controller) IsPending(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[id]
	return ok
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close resolves every pending exchange as canceled and cancels in-flight
// bridge calls. The bridge itself is owned by the caller.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := make([]*Exchange, 0, len(c.pending))
	for _, ex := range c.pending {
		pending = append(pending, ex)
	}
	c.mu.Unlock()

	for _, ex := range pending {
		c.resolve(ex, SourceCanceled, models.CanceledText)
	}
	c.cancel()
}
