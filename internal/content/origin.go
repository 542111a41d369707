package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/dgallion1/pagedeco/internal/page"
	"github.com/dgallion1/pagedeco/internal/parser"
	"github.com/jonboulle/clockwork"
)

// OriginSource fetches pages as HTML from an upstream origin.
type OriginSource struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	clock      clockwork.Clock
	backoff    func(attempt int) time.Duration
	log        *slog.Logger
}

// OriginOption configures an OriginSource.
type OriginOption func(*OriginSource)

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) OriginOption {
	return func(o *OriginSource) { o.apiKey = key }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) OriginOption {
	return func(o *OriginSource) { o.httpClient = c }
}

// WithBackoff replaces the retry delay schedule.
func WithBackoff(f func(attempt int) time.Duration) OriginOption {
	return func(o *OriginSource) { o.backoff = f }
}

// WithOriginClock sets the clock retries wait on.
func WithOriginClock(c clockwork.Clock) OriginOption {
	return func(o *OriginSource) { o.clock = c }
}

func NewOriginSource(baseURL string, log *slog.Logger, opts ...OriginOption) *OriginSource {
	if log == nil {
		log = slog.Default()
	}
	o := &OriginSource{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		clock:   clockwork.NewRealClock(),
		backoff: Backoff,
		log:     log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Load fetches path from the origin, retrying transient failures.
func (o *OriginSource) Load(ctx context.Context, urlPath string) (*page.Page, error) {
	urlPath = path.Clean("/" + urlPath)

	var body []byte
	var lastErr error
	for attempt := range MaxRetries {
		body, lastErr = o.fetch(ctx, urlPath)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		o.log.Warn("retryable origin error", "path", urlPath, "attempt", attempt, "error", lastErr)
		if attempt == MaxRetries-1 {
			break
		}
		select {
		case <-o.clock.After(o.backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}

	name := path.Base(urlPath)
	if urlPath == "/" {
		name = "index"
	}
	p := &parser.HTMLParser{}
	pg, err := p.Parse(bytes.NewReader(body), name+".html")
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", urlPath, err)
	}
	return pg, nil
}

func (o *OriginSource) fetch(ctx context.Context, urlPath string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+urlPath, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "text/html")
	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, urlPath)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	case resp.StatusCode != http.StatusOK:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("get page %s: status %d: %s", urlPath, resp.StatusCode, string(respBody))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	return body, nil
}

// Close releases idle connections.
func (o *OriginSource) Close() {
	o.httpClient.CloseIdleConnections()
}
