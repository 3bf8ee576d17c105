// Package bridge connects the chat controller to the engines that answer
// queries. A Bridge is chosen once at construction; the controller never
// looks for one at runtime.
package bridge

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/diogo/zai/internal/config"
	apierrors "github.com/diogo/zai/internal/errors"
)

// Bridge turns a query plus an engine selection into a response text.
//
// ProcessQuery must not block on the remote work. It eventually invokes
// onComplete exactly once with the final text, or never. Failures are
// delivered as text built with models.FailureText.
type Bridge interface {
	ProcessQuery(ctx context.Context, query, engine string, onComplete func(response string))
	Close() error
}

// Transport names used in logs and errors
const (
	TransportHTTP      = "http"
	TransportWebSocket = "websocket"
)

// request is the payload sent to remote engines.
type request struct {
	ID     string `json:"id"`
	Query  string `json:"query"`
	Engine string `json:"engine"`
}

// FromConfig builds the bridge selected by cfg.Bridge.URL. An empty URL
// yields a nil Bridge, meaning no bridge is available.
func FromConfig(cfg config.Config, logger *zap.Logger) (Bridge, error) {
	raw := cfg.Bridge.URL
	if raw == "" {
		return nil, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, apierrors.NewConfigError("bridge.url", err.Error())
	}

	switch u.Scheme {
	case "http", "https":
		b, err := NewHTTPBridge(raw,
			WithToken(cfg.Bridge.Token),
			WithResponsePath(cfg.Bridge.ResponsePath),
			WithTimeout(cfg.BridgeTimeout()),
			WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "ws", "wss":
		return NewWebSocketBridge(raw,
			WithToken(cfg.Bridge.Token),
			WithResponsePath(cfg.Bridge.ResponsePath),
			WithTimeout(cfg.BridgeTimeout()),
			WithLogger(logger),
		), nil
	default:
		return nil, apierrors.NewConfigError("bridge.url", fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}
}

// Describe returns a short human readable description of b.
func Describe(b Bridge) string {
	switch v := b.(type) {
	case nil:
		return "no bridge"
	case *HTTPBridge:
		return "http " + v.endpoint
	case *WebSocketBridge:
		return "websocket " + v.endpoint
	case *Mock:
		return "mock"
	default:
		return fmt.Sprintf("%T", b)
	}
}
