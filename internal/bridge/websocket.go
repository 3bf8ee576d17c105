package bridge

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	apierrors "github.com/diogo/zai/internal/errors"
	"github.com/diogo/zai/internal/models"
)

// pendingReply is a query waiting for its reply on the socket.
type pendingReply struct {
	engine     string
	started    time.Time
	onComplete func(string)
	stop       func() bool // detaches the context watcher
}

// writeWait bounds a single write to the socket.
const writeWait = 10 * time.Second

// WebSocketBridge multiplexes queries over one websocket connection.
// Replies are matched to queries by id. The connection is dialed lazily
// and redialed on the next query after a failure.
type WebSocketBridge struct {
	endpoint string
	settings settings
	dialer   *websocket.Dialer

	// ctx ends on Close and aborts dials in flight.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	conn    *websocket.Conn
	dialing chan struct{} // non-nil while a dial runs; closed when it ends
	pending map[string]*pendingReply
	closed  bool
	wg      sync.WaitGroup

	writeMu sync.Mutex
}

var _ Bridge = (*WebSocketBridge)(nil)

// NewWebSocketBridge creates a WebSocketBridge for endpoint
func NewWebSocketBridge(endpoint string, opts ...Option) *WebSocketBridge {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocketBridge{
		endpoint: endpoint,
		settings: s,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: s.timeout,
		},
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string]*pendingReply),
	}
}

// ProcessQuery registers the query and returns. Dialing and writing run
// on a separate goroutine; the read loop completes the query.
func (b *WebSocketBridge) ProcessQuery(ctx context.Context, query, engine string, onComplete func(string)) {
	id := uuid.NewString()
	p := &pendingReply{engine: engine, started: time.Now(), onComplete: onComplete}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		onComplete(models.FailureText(apierrors.ErrBridgeClosed))
		return
	}
	b.pending[id] = p
	p.stop = context.AfterFunc(ctx, func() {
		b.finish(id, "", ctx.Err())
	})
	b.wg.Add(1)
	b.mu.Unlock()

	go b.send(ctx, id, request{ID: id, Query: query, Engine: engine})
}

// send dials if needed and writes req.
func (b *WebSocketBridge) send(ctx context.Context, id string, req request) {
	defer b.wg.Done()

	conn, err := b.connect(ctx)
	if err != nil {
		b.settings.logger.Warn("bridge dial failed",
			zap.String("transport", TransportWebSocket),
			zap.String("endpoint", b.endpoint),
			zap.Error(err))
		b.finish(id, "", b.closedOr(err))
		return
	}

	if !b.isPending(id) {
		return
	}

	b.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = conn.WriteJSON(req)
	b.writeMu.Unlock()
	if err != nil {
		b.finish(id, "", b.closedOr(apierrors.NewBridgeError(TransportWebSocket, "write query", err)))
		b.drop(conn)
	}
}

// connect returns the live connection, dialing one if needed. Only one
// dial runs at a time and b.mu is not held while it does.
func (b *WebSocketBridge) connect(ctx context.Context) (*websocket.Conn, error) {
	for {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return nil, apierrors.ErrBridgeClosed
		}
		if b.conn != nil {
			conn := b.conn
			b.mu.Unlock()
			return conn, nil
		}
		if wait := b.dialing; wait != nil {
			b.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		done := make(chan struct{})
		b.dialing = done
		b.mu.Unlock()

		conn, err := b.dial(ctx)

		b.mu.Lock()
		b.dialing = nil
		close(done)
		if err == nil && b.closed {
			b.mu.Unlock()
			_ = conn.Close()
			return nil, apierrors.ErrBridgeClosed
		}
		if err == nil {
			b.conn = conn
			b.wg.Add(1)
			go b.readLoop(conn)
		}
		b.mu.Unlock()

		if err != nil {
			return nil, err
		}
		b.settings.logger.Debug("bridge connected",
			zap.String("transport", TransportWebSocket),
			zap.String("endpoint", b.endpoint))
		return conn, nil
	}
}

// dial opens a connection; it is aborted by ctx or by Close.
func (b *WebSocketBridge) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(b.ctx, cancel)
	defer stop()

	header := http.Header{}
	if b.settings.token != "" {
		header.Set("Authorization", "Bearer "+b.settings.token)
	}

	conn, resp, err := b.dialer.DialContext(dialCtx, b.endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, apierrors.NewAPIError(resp.StatusCode, b.endpoint, "websocket handshake rejected")
		}
		return nil, apierrors.NewNetworkError("dial", b.endpoint, err)
	}
	return conn, nil
}

func (b *WebSocketBridge) isPending(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.pending[id]
	return ok
}

// closedOr reports ErrBridgeClosed once Close has started, err otherwise.
func (b *WebSocketBridge) closedOr(err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return apierrors.ErrBridgeClosed
	}
	return err
}

func (b *WebSocketBridge) readLoop(conn *websocket.Conn) {
	defer b.wg.Done()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			b.drop(conn)

			b.mu.Lock()
			closed := b.closed
			b.mu.Unlock()

			var reason error = apierrors.ErrBridgeClosed
			if !closed {
				reason = apierrors.NewBridgeError(TransportWebSocket, "connection lost", err)
			}
			b.failAll(reason)
			return
		}

		id := gjson.GetBytes(data, "id").String()
		if id == "" {
			b.settings.logger.Warn("bridge reply without id",
				zap.String("transport", TransportWebSocket),
				zap.Int("bytes", len(data)))
			continue
		}

		text, err := parseReply(TransportWebSocket, data, b.settings.responsePath)
		b.finish(id, text, err)
	}
}

// finish completes the pending query id once. Unknown ids are ignored.
func (b *WebSocketBridge) finish(id, text string, err error) {
	b.mu.Lock()
	p, ok := b.pending[id]
	var stop func() bool
	if ok {
		delete(b.pending, id)
		stop = p.stop
	}
	b.mu.Unlock()

	if !ok {
		return
	}
	if stop != nil {
		stop()
	}

	log := b.settings.logger.With(
		zap.String("transport", TransportWebSocket),
		zap.String("request_id", id),
		zap.String("engine", p.engine),
		zap.Duration("latency", time.Since(p.started)),
	)
	if err != nil {
		log.Warn("bridge request failed", zap.Error(err))
		p.onComplete(models.FailureText(err))
		return
	}
	log.Debug("bridge request completed")
	p.onComplete(text)
}

func (b *WebSocketBridge) failAll(reason error) {
	b.mu.Lock()
	ids := make([]string, 0, len(b.pending))
	for id := range b.pending {
		ids = append(ids, id)
	}
	b.mu.Unlock()

	for _, id := range ids {
		b.finish(id, "", reason)
	}
}

// drop forgets conn so the next query redials.
func (b *WebSocketBridge) drop(conn *websocket.Conn) {
	b.mu.Lock()
	if b.conn == conn {
		b.conn = nil
	}
	b.mu.Unlock()
	_ = conn.Close()
}

// Pending returns the number of queries awaiting a reply.
func (b *WebSocketBridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Close shuts the connection down. Queries still waiting are completed
// with a failure text.
func (b *WebSocketBridge) Close() error {
	b.mu.Lock()
	b.closed = true
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()
	b.cancel()

	if conn != nil {
		b.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		b.writeMu.Unlock()
		_ = conn.Close()
	}

	b.wg.Wait()
	b.failAll(apierrors.ErrBridgeClosed)
	return nil
}
