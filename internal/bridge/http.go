package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apierrors "github.com/diogo/zai/internal/errors"
	"github.com/diogo/zai/internal/models"
)

// maxReplyBytes caps how much of a reply body is read.
const maxReplyBytes = 4 << 20

// maxErrorSnippet caps, in runes, how much of an error body goes into an APIError.
const maxErrorSnippet = 200

// HTTPDoer is the subset of an HTTP client used by HTTPBridge.
// tls_client.HttpClient and *fhttp.Client both satisfy it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPBridge posts each query as JSON to a remote endpoint.
type HTTPBridge struct {
	endpoint string
	settings settings
	client   HTTPDoer

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

var _ Bridge = (*HTTPBridge)(nil)

// NewHTTPBridge creates an HTTPBridge for endpoint
func NewHTTPBridge(endpoint string, opts ...Option) (*HTTPBridge, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	client := s.httpClient
	if client == nil {
		options := []tls_client.HttpClientOption{
			tls_client.WithTimeoutSeconds(int(s.timeout / time.Second)),
			tls_client.WithClientProfile(profiles.Chrome_120),
			tls_client.WithNotFollowRedirects(),
		}

		tc, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		client = tc
	}

	return &HTTPBridge{
		endpoint: endpoint,
		settings: s,
		client:   client,
	}, nil
}

// ProcessQuery sends the query in the background and reports the reply
// through onComplete.
func (b *HTTPBridge) ProcessQuery(ctx context.Context, query, engine string, onComplete func(string)) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		onComplete(models.FailureText(apierrors.ErrBridgeClosed))
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()

		started := time.Now()
		id := uuid.NewString()
		log := b.settings.logger.With(
			zap.String("transport", TransportHTTP),
			zap.String("request_id", id),
			zap.String("engine", engine),
		)

		text, err := b.do(ctx, request{ID: id, Query: query, Engine: engine})
		if err != nil {
			log.Warn("bridge request failed", zap.Error(err), zap.Duration("latency", time.Since(started)))
			onComplete(models.FailureText(err))
			return
		}

		log.Debug("bridge request completed", zap.Duration("latency", time.Since(started)))
		onComplete(text)
	}()
}

func (b *HTTPBridge) do(ctx context.Context, payload request) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if b.settings.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.settings.token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", apierrors.NewNetworkError("process query", b.endpoint, err)
	}
	defer func() {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", apierrors.NewNetworkError("read reply", b.endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := errorSnippet(data)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", apierrors.NewAPIError(resp.StatusCode, b.endpoint, msg)
	}

	return parseReply(TransportHTTP, data, b.settings.responsePath)
}

// errorSnippet returns the start of an error body, cut on a rune boundary.
func errorSnippet(data []byte) string {
	r := []rune(string(data))
	if len(r) > maxErrorSnippet {
		return string(r[:maxErrorSnippet]) + "..."
	}
	return string(data)
}

// Close waits for in-flight requests and rejects new ones.
func (b *HTTPBridge) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}
