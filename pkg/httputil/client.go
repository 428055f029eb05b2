// Package httputil is the outbound HTTP client: retries with backoff on
// 5xx and transport errors, an optional shared request budget in Redis,
// and request logging that never prints query strings.
package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wonny/strawberry/pkg/logger"
	"github.com/wonny/strawberry/pkg/redis"
)

const (
	defaultTimeout = 30 * time.Second

	// MaxBodyBytes caps what DecodeJSON reads. Monthly adjusted series of
	// long-listed tickers are the largest payloads at a few MB.
	MaxBodyBytes = 32 << 20
)

// retryPolicy is exponential backoff capped at maxDelay
type retryPolicy struct {
	enabled    bool
	maxRetries int
	initial    time.Duration
	maxDelay   time.Duration
}

// delay returns the pause before retry n, counting from 0
func (p retryPolicy) delay(n int) time.Duration {
	d := p.initial
	for i := 0; i < n && d < p.maxDelay; i++ {
		d *= 2
	}
	if d > p.maxDelay {
		d = p.maxDelay
	}
	return d
}

// Client is an HTTP client with retries, a request budget and logging
// ⭐ SSOT: every outbound HTTP request goes through this client
type Client struct {
	http   *http.Client
	logger *logger.Logger
	retry  retryPolicy

	limiter *redis.RateLimiter
	budget  *redis.RateLimitConfig
}

// New creates a client. A non-positive timeout means 30s.
func New(log *logger.Logger, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		logger: log.Module("httputil"),
		retry: retryPolicy{
			enabled:    true,
			maxRetries: 3,
			initial:    time.Second,
			maxDelay:   10 * time.Second,
		},
	}
}

// WithRetry retries up to maxRetries times, doubling initialDelay each time
func (c *Client) WithRetry(maxRetries int, initialDelay time.Duration) *Client {
	c.retry.enabled = true
	c.retry.maxRetries = maxRetries
	c.retry.initial = initialDelay
	if c.retry.maxDelay < initialDelay {
		c.retry.maxDelay = initialDelay
	}
	return c
}

// DisableRetry sends every request once
func (c *Client) DisableRetry() *Client {
	c.retry.enabled = false
	return c
}

// WithRateLimiter shares a request budget with other processes through Redis
func (c *Client) WithRateLimiter(limiter *redis.RateLimiter, cfg redis.RateLimitConfig) *Client {
	c.limiter = limiter
	c.budget = &cfg
	return c
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create GET request: %w", err)
	}
	return c.do(req)
}

// GetQuery performs a GET request against base with params added to its query
func (c *Client) GetQuery(ctx context.Context, base string, params url.Values) (*http.Response, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	return c.Get(ctx, u.String())
}

// DecodeJSON decodes the response body into dest and closes it
func DecodeJSON(resp *http.Response, dest interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) > MaxBodyBytes {
		return fmt.Errorf("response body exceeds %d bytes", MaxBodyBytes)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	// API keys travel in the query string
	log := c.logger.WithFields(map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.Host + req.URL.Path,
	})

	if c.limiter != nil && c.budget != nil {
		if err := c.limiter.Wait(ctx, *c.budget); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	attempts := 1
	if c.retry.enabled {
		attempts += c.retry.maxRetries
	}

	start := time.Now()
	for n := 0; ; n++ {
		resp, err := c.http.Do(req)
		if !retryable(resp, err) || n+1 >= attempts {
			if err != nil {
				log.WithError(err).WithField("duration", time.Since(start)).Warn("HTTP request failed")
				return nil, err
			}
			log.WithFields(map[string]interface{}{
				"status_code": resp.StatusCode,
				"attempts":    n + 1,
				"duration":    time.Since(start),
			}).Debug("HTTP request completed")
			return resp, nil
		}

		if resp != nil {
			resp.Body.Close()
		}
		d := c.retry.delay(n)
		log.WithFields(map[string]interface{}{"attempt": n + 1, "delay": d}).Warn("Retrying HTTP request")

		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// retryable reports whether a request is worth sending again. 429 is
// excluded: an exhausted quota does not recover within a backoff.
func retryable(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode >= http.StatusInternalServerError
}
