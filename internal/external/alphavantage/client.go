package alphavantage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/wonny/strawberry/internal/contracts"
	"github.com/wonny/strawberry/pkg/config"
	"github.com/wonny/strawberry/pkg/httputil"
	"github.com/wonny/strawberry/pkg/logger"
	"github.com/wonny/strawberry/pkg/metrics"
	"github.com/wonny/strawberry/pkg/redis"
)

// ErrUnknownTable is returned for a table without a configured payload attribute
var ErrUnknownTable = errors.New("alphavantage: unknown table")

// Client fetches raw tables from the AlphaVantage query endpoint
// ⭐ SSOT: AlphaVantage API calls only go through this client
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	metrics    *metrics.Registry

	apiKey     string
	baseURL    string
	attributes map[string]string

	pacer   *rate.Limiter
	breaker *gobreaker.CircuitBreaker

	budget      *redis.RateLimiter
	budgetLimit int
	now         func() time.Time

	mu   sync.Mutex
	day  string // UTC day the local count belongs to
	used int
}

// NewClient creates a client. attributes maps each table to the payload
// key holding its records; an empty key means the payload is one record.
// budget may be nil, in which case only the in-process daily count applies.
// The local count starts over at midnight UTC.
func NewClient(
	httpClient *httputil.Client,
	cfg config.AlphaVantageConfig,
	attributes map[string]string,
	budget *redis.RateLimiter,
	m *metrics.Registry,
	log *logger.Logger,
) *Client {
	rps := cfg.RPS
	if rps <= 0 {
		rps = 1
	}

	attrs := make(map[string]string, len(attributes))
	for k, v := range attributes {
		attrs[k] = v
	}

	return &Client{
		httpClient:  httpClient,
		logger:      log.Module("alphavantage"),
		metrics:     m,
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		attributes:  attrs,
		pacer:       rate.NewLimiter(rate.Limit(rps), 1),
		breaker:     newBreaker("alphavantage"),
		budget:      budget,
		budgetLimit: cfg.DailyLimit,
		now:         time.Now,
	}
}

// newBreaker trips after consecutive transport or server failures
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
}

// Fetch requests one table for one symbol. Expected upstream conditions
// come back as a FetchResult status; err is reserved for failures that
// say nothing about the data (transport errors, unexpected responses).
func (c *Client) Fetch(ctx context.Context, table, symbol string) (contracts.FetchResult, error) {
	attribute, ok := c.attributes[table]
	if !ok {
		return contracts.FetchResult{}, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	if res, spent := c.spend(ctx); spent {
		c.metrics.RecordAPIRequest(table, res.Status.String())
		return res, nil
	}

	if err := c.pacer.Wait(ctx); err != nil {
		return contracts.FetchResult{}, fmt.Errorf("rate limit wait: %w", err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.get(ctx, table, symbol)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.metrics.RecordAPIRequest(table, contracts.FetchRateLimited.String())
		return contracts.FetchResult{Status: contracts.FetchRateLimited, Message: err.Error()}, nil
	}
	if err != nil {
		c.metrics.RecordAPIRequest(table, "error")
		return contracts.FetchResult{}, err
	}

	res := shape(out.(payload), table, symbol, attribute)
	c.metrics.RecordAPIRequest(table, res.Status.String())

	c.logger.WithFields(map[string]interface{}{
		"table":   table,
		"symbol":  symbol,
		"status":  res.Status.String(),
		"records": res.Table.Len(),
	}).Debug("Fetched table")

	return res, nil
}

// spend takes one call from the daily budget. spent is true when the
// budget is exhausted and res carries the rate-limited status.
func (c *Client) spend(ctx context.Context) (res contracts.FetchResult, spent bool) {
	if c.budgetLimit <= 0 {
		return res, false
	}

	c.mu.Lock()
	if today := c.now().UTC().Format("2006-01-02"); today != c.day {
		c.day = today
		c.used = 0
	}
	if c.used >= c.budgetLimit {
		c.mu.Unlock()
		return contracts.FetchResult{Status: contracts.FetchRateLimited, Message: "daily request budget spent"}, true
	}
	c.used++
	remaining := c.budgetLimit - c.used
	c.mu.Unlock()

	if c.budget != nil {
		allowed, shared, err := c.budget.Allow(ctx, redis.AlphaVantageDailyLimit(c.budgetLimit))
		if err != nil {
			c.logger.WithError(err).Warn("Shared budget check failed, using local count")
		} else {
			if !allowed {
				return contracts.FetchResult{Status: contracts.FetchRateLimited, Message: "shared daily request budget spent"}, true
			}
			if shared < remaining {
				remaining = shared
			}
		}
	}

	c.metrics.SetBudgetRemaining(remaining)
	return res, false
}

// Used returns the calls spent by this client today
func (c *Client) Used() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

type payload map[string]interface{}

// get performs the request. 429 responses are returned as a payload
// with a Note so they map to the rate-limited status without tripping
// the breaker.
func (c *Client) get(ctx context.Context, table, symbol string) (payload, error) {
	resp, err := c.httpClient.GetQuery(ctx, c.baseURL, url.Values{
		"function": {table},
		"symbol":   {symbol},
		"apikey":   {c.apiKey},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", table, symbol, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		resp.Body.Close()
		return payload{keyNote: "HTTP 429 Too Many Requests"}, nil
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return payload{keyError: "HTTP 404 Not Found"}, nil
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s/%s: unexpected status code %d", table, symbol, resp.StatusCode)
	}

	var body payload
	if err := httputil.DecodeJSON(resp, &body); err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", table, symbol, err)
	}
	return body, nil
}
