package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultInitialBackoff = 200 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second

	acceptSchemas = "application/json, application/yaml;q=0.9, */*;q=0.1"
)

// Config tunes schema fetches. Zero fields take the package defaults: a 30s
// request timeout, no retries and backoff from 200ms doubling up to 5s.
type Config struct {
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Client fetches schema documents over HTTP, retrying transient failures
// with exponential backoff.
type Client struct {
	http    *http.Client
	retries int
	base    time.Duration
	ceiling time.Duration
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) *Client {
	c := &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		retries: max(cfg.MaxRetries, 0),
		base:    cfg.InitialBackoff,
		ceiling: cfg.MaxBackoff,
	}
	if c.http.Timeout <= 0 {
		c.http.Timeout = defaultTimeout
	}
	if c.base <= 0 {
		c.base = defaultInitialBackoff
	}
	if c.ceiling <= 0 {
		c.ceiling = defaultMaxBackoff
	}
	return c
}

// Get issues a GET for url, retrying network errors, 429 and 5xx. Any other
// non-2xx status is returned as an error. The caller must close the body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("source: build request: %w", err)
		}
		req.Header.Set("Accept", acceptSchemas)

		resp, err := c.http.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case isRetryableStatus(resp.StatusCode):
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("source: retryable status %d from %s", resp.StatusCode, url)
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			_ = resp.Body.Close()
			return nil, fmt.Errorf("source: GET %s: status %d", url, resp.StatusCode)
		default:
			return resp, nil
		}

		if attempt == c.retries {
			break
		}
		if err := sleepWithContext(ctx, backoffDuration(c.base, attempt, c.ceiling)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// Remote returns a Source that fetches url with c.
func (c *Client) Remote(url string) *Remote { return &Remote{client: c, url: url} }

// Remote is an http(s) Source.
type Remote struct {
	client *Client
	url    string
}

func (r *Remote) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := r.client.Get(ctx, r.url)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// isRetryableStatus reports whether a response is worth another attempt:
// rate limiting or a server-side failure.
func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code/100 == 5
}

// backoffDuration is base doubled once per prior attempt, never above ceiling.
func backoffDuration(base time.Duration, attempt int, ceiling time.Duration) time.Duration {
	d := min(base, ceiling)
	for ; attempt > 0 && d < ceiling; attempt-- {
		d *= 2
	}
	return min(d, ceiling)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
