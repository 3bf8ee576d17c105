package bridge

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// engineServer is a websocket endpoint whose replies are produced by reply.
// A nil reply holds the query without answering.
type engineServer struct {
	*httptest.Server
	reply func(req request) (map[string]any, bool)

	mu       sync.Mutex
	conns    []*websocket.Conn
	received int
}

func newEngineServer(t *testing.T, reply func(req request) (map[string]any, bool)) *engineServer {
	t.Helper()

	s := &engineServer{reply: reply}
	upgrader := websocket.Upgrader{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		defer conn.Close()

		for {
			var req request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			s.mu.Lock()
			s.received++
			s.mu.Unlock()
			if out, ok := s.replyFunc()(req); ok {
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *engineServer) replyFunc() func(req request) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reply
}

func (s *engineServer) setReply(reply func(req request) (map[string]any, bool)) {
	s.mu.Lock()
	s.reply = reply
	s.mu.Unlock()
}

func (s *engineServer) receivedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received
}

func (s *engineServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

// dropAll closes every server side connection.
func (s *engineServer) dropAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.conns = nil
}

func TestWebSocketBridge_CorrelatesReplies(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := newEngineServer(t, func(req request) (map[string]any, bool) {
		return map[string]any{"id": req.ID, "response": req.Engine + ":" + req.Query}, true
	})

	b := NewWebSocketBridge(srv.wsURL())

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		i := i
		b.ProcessQuery(context.Background(), fmt.Sprintf("q%d", i), "default", func(r string) {
			results[i] = r
			wg.Done()
		})
	}

	waitGroup(t, &wg)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("default:q%d", i), r)
	}
	assert.Equal(t, 0, b.Pending())

	require.NoError(t, b.Close())
	srv.Close()
}

func TestWebSocketBridge_RemoteError(t *testing.T) {
	srv := newEngineServer(t, func(req request) (map[string]any, bool) {
		return map[string]any{"id": req.ID, "error": "unknown engine " + req.Engine}, true
	})

	b := NewWebSocketBridge(srv.wsURL())
	defer b.Close()

	text := await(t, b, context.Background(), "q", "nope")
	assert.Contains(t, text, "Error: processing failed")
	assert.Contains(t, text, "unknown engine nope")
}

func TestWebSocketBridge_ConnectionLostFailsPending(t *testing.T) {
	srv := newEngineServer(t, func(req request) (map[string]any, bool) {
		return nil, false
	})

	b := NewWebSocketBridge(srv.wsURL())
	defer b.Close()

	got := make(chan string, 1)
	b.ProcessQuery(context.Background(), "q", "default", func(r string) { got <- r })
	require.Eventually(t, func() bool { return srv.receivedCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, b.Pending())

	srv.dropAll()

	select {
	case text := <-got:
		assert.Contains(t, text, "connection lost")
	case <-time.After(5 * time.Second):
		t.Fatal("pending query was not failed after disconnect")
	}

	// the next query redials
	srv.setReply(func(req request) (map[string]any, bool) {
		return map[string]any{"id": req.ID, "response": "back"}, true
	})
	assert.Equal(t, "back", await(t, b, context.Background(), "q", "default"))
}

func TestWebSocketBridge_ContextCancel(t *testing.T) {
	srv := newEngineServer(t, func(req request) (map[string]any, bool) {
		return nil, false
	})

	b := NewWebSocketBridge(srv.wsURL())
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan string, 1)
	b.ProcessQuery(ctx, "q", "default", func(r string) { got <- r })
	cancel()

	select {
	case text := <-got:
		assert.Contains(t, text, "context canceled")
	case <-time.After(5 * time.Second):
		t.Fatal("canceled query never completed")
	}
	assert.Equal(t, 0, b.Pending())
}

func TestWebSocketBridge_CloseFailsPending(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := newEngineServer(t, func(req request) (map[string]any, bool) {
		return nil, false
	})

	b := NewWebSocketBridge(srv.wsURL())

	got := make(chan string, 1)
	b.ProcessQuery(context.Background(), "q", "default", func(r string) { got <- r })
	require.Eventually(t, func() bool { return srv.receivedCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, b.Pending())

	require.NoError(t, b.Close())

	select {
	case text := <-got:
		assert.Contains(t, text, "closed")
	default:
		t.Fatal("Close must complete pending queries")
	}

	assert.Contains(t, await(t, b, context.Background(), "q", "default"), "closed")
	srv.Close()
}

func TestWebSocketBridge_DialFailure(t *testing.T) {
	b := NewWebSocketBridge("ws://127.0.0.1:1/bridge", WithTimeout(time.Second))
	defer b.Close()

	assert.Contains(t, await(t, b, context.Background(), "q", "default"), "network error")
}

// silentListener accepts TCP connections and never answers, so a
// websocket handshake against it stalls.
func silentListener(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		<-done
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return "ws://" + ln.Addr().String()
}

func TestWebSocketBridge_ProcessQueryDoesNotWaitForHandshake(t *testing.T) {
	b := NewWebSocketBridge(silentListener(t), WithTimeout(30*time.Second))

	got := make(chan string, 2)
	start := time.Now()
	b.ProcessQuery(context.Background(), "q1", "default", func(r string) { got <- r })
	b.ProcessQuery(context.Background(), "q2", "default", func(r string) { got <- r })
	assert.Less(t, time.Since(start), time.Second)

	// the bridge stays usable while the dial is stuck
	start = time.Now()
	assert.Equal(t, 2, b.Pending())
	assert.Less(t, time.Since(start), time.Second)

	start = time.Now()
	require.NoError(t, b.Close())
	assert.Less(t, time.Since(start), 5*time.Second)

	for i := 0; i < 2; i++ {
		select {
		case text := <-got:
			assert.Contains(t, text, "closed")
		default:
			t.Fatal("Close must complete queries waiting on the dial")
		}
	}
	assert.Equal(t, 0, b.Pending())
}

func TestWebSocketBridge_CancelDuringHandshake(t *testing.T) {
	b := NewWebSocketBridge(silentListener(t), WithTimeout(30*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan string, 1)
	b.ProcessQuery(ctx, "q", "default", func(r string) { got <- r })
	cancel()

	select {
	case text := <-got:
		assert.Contains(t, text, "context canceled")
	case <-time.After(5 * time.Second):
		t.Fatal("canceled query never completed")
	}
	require.NoError(t, b.Close())
}

func waitGroup(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for replies")
	}
}
