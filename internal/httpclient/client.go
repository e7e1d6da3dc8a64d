package httpclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/everstacklabs/modelsync/internal/cache"
)

const userAgent = "modelsync/1.0 (+https://github.com/everstacklabs/modelsync)"

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Client is an HTTP client with rate limiting and conditional revalidation
// against a snapshot cache.
type Client struct {
	http    *http.Client
	store   *cache.Store
	limiter *rate.Limiter
}

// Option configures the Client.
type Option func(*Client)

// WithCache revalidates responses against store.
func WithCache(store *cache.Store) Option {
	return func(c *Client) { c.store = store }
}

// WithRateLimit sets requests per second. Zero or negative disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithTimeout overrides the default 30s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a new HTTP client.
func New(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response is a fully read response body.
type Response struct {
	Body       []byte
	StatusCode int
	FromCache  bool
}

// Get performs a GET, honoring the rate limit and revalidating any cached
// snapshot with If-None-Match / If-Modified-Since.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var stale *cache.Snapshot
	if c.store != nil {
		snap, fresh := c.store.Lookup(url)
		if fresh {
			slog.Debug("serving catalog from cache", "url", url)
			return &Response{Body: snap.Body, StatusCode: http.StatusOK, FromCache: true}, nil
		}
		if snap != nil && snap.Conditional() {
			stale = snap
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if stale != nil {
		if stale.ETag != "" {
			req.Header.Set("If-None-Match", stale.ETag)
		}
		if stale.LastModified != "" {
			req.Header.Set("If-Modified-Since", stale.LastModified)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotModified && stale != nil {
		slog.Debug("catalog not modified", "url", url)
		if err := c.store.Save(stale); err != nil {
			slog.Warn("refreshing cache entry failed", "error", err)
		}
		return &Response{Body: stale.Body, StatusCode: http.StatusOK, FromCache: true}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	if c.store != nil {
		err := c.store.Save(&cache.Snapshot{
			URL:          url,
			Body:         body,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		})
		if err != nil {
			slog.Warn("caching catalog response failed", "error", err)
		}
	}

	return &Response{Body: body, StatusCode: resp.StatusCode}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
