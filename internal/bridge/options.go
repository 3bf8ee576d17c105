package bridge

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// settings holds options shared by the remote bridges.
type settings struct {
	token        string
	responsePath string
	timeout      time.Duration
	logger       *zap.Logger
	httpClient   HTTPDoer
}

func defaultSettings() settings {
	return settings{
		responsePath: "response",
		timeout:      300 * time.Second,
		logger:       zap.NewNop(),
	}
}

// Option configures a remote bridge
type Option func(*settings)

// WithToken sets the bearer token sent with every request
func WithToken(token string) Option {
	return func(s *settings) {
		s.token = strings.TrimSpace(token)
	}
}

// WithResponsePath sets the gjson path of the response text in replies
func WithResponsePath(path string) Option {
	return func(s *settings) {
		if path != "" {
			s.responsePath = path
		}
	}
}

// WithTimeout sets the transport timeout (HTTP request, websocket handshake)
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHTTPClient replaces the TLS client used by HTTPBridge
func WithHTTPClient(client HTTPDoer) Option {
	return func(s *settings) {
		s.httpClient = client
	}
}
