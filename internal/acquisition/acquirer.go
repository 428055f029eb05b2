// Package acquisition pulls raw tables from the upstream API into the
// raw table store, one ticker and one table at a time.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/strawberry/internal/contracts"
	"github.com/wonny/strawberry/pkg/logger"
	"github.com/wonny/strawberry/pkg/metrics"
)

// ErrAcquireInProgress is returned when Run is called while another acquisition is active
var ErrAcquireInProgress = errors.New("acquisition already in progress")

// Options tune one acquisition run
type Options struct {
	Force bool // refetch tables that already exist
}

// TickerReport lists what happened to each table of one ticker
type TickerReport struct {
	Symbol   string   `json:"symbol"`
	Acquired []string `json:"acquired,omitempty"`
	Skipped  []string `json:"skipped,omitempty"` // already stored
	Missing  []string `json:"missing,omitempty"` // upstream has no data
	Errors   []string `json:"errors,omitempty"`
}

// Complete reports whether every table is stored after the run
func (r TickerReport) Complete() bool {
	return len(r.Missing) == 0 && len(r.Errors) == 0
}

// Report summarizes an acquisition run
type Report struct {
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	Tickers     []TickerReport `json:"tickers"`
	RateLimited bool           `json:"rate_limited"`
	Message     string         `json:"message,omitempty"`
}

// Acquired returns the number of tables fetched in the run
func (r *Report) Acquired() int {
	n := 0
	for _, t := range r.Tickers {
		n += len(t.Acquired)
	}
	return n
}

// Status summarizes the run as ok, rate_limited or partial
func (r *Report) Status() string {
	if r.RateLimited {
		return "rate_limited"
	}
	for _, t := range r.Tickers {
		if len(t.Errors) > 0 {
			return "partial"
		}
	}
	return "ok"
}

// Acquirer drives a RawSource over a ticker list
// ⭐ SSOT: raw tables are only written here
type Acquirer struct {
	source  contracts.RawSource
	store   contracts.TableStore
	tables  []string
	metrics *metrics.Registry
	logger  *logger.Logger

	mu      sync.Mutex
	running bool
}

// New creates an Acquirer fetching tables in the given order
func New(source contracts.RawSource, store contracts.TableStore, tables []string, m *metrics.Registry, log *logger.Logger) *Acquirer {
	return &Acquirer{
		source:  source,
		store:   store,
		tables:  append([]string(nil), tables...),
		metrics: m,
		logger:  log.Module("acquisition"),
	}
}

// Tables returns the configured table order
func (a *Acquirer) Tables() []string {
	return append([]string(nil), a.tables...)
}

// Run acquires every missing table of every ticker. Requests are
// sequential: the upstream budget is per key, not per connection.
func (a *Acquirer) Run(ctx context.Context, tickers []string, opts Options) (*Report, error) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil, ErrAcquireInProgress
	}
	a.running = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	report := &Report{StartedAt: time.Now().UTC()}
	a.logger.WithFields(map[string]interface{}{
		"tickers": len(tickers),
		"tables":  len(a.tables),
		"force":   opts.Force,
	}).Info("Starting acquisition")

	for _, symbol := range tickers {
		if err := ctx.Err(); err != nil {
			report.Message = err.Error()
			break
		}

		tr, limited := a.acquireTicker(ctx, symbol, opts)
		report.Tickers = append(report.Tickers, tr)
		if limited != "" {
			report.RateLimited = true
			report.Message = limited
			a.logger.WithTicker(symbol).Warnf("Upstream limit reached: %s", limited)
			break
		}
	}

	report.FinishedAt = time.Now().UTC()
	a.metrics.RecordRun("acquisition", report.Status())

	a.logger.WithFields(map[string]interface{}{
		"tickers":      len(report.Tickers),
		"acquired":     report.Acquired(),
		"rate_limited": report.RateLimited,
		"duration":     report.FinishedAt.Sub(report.StartedAt).String(),
	}).Info("Acquisition completed")

	return report, nil
}

// acquireTicker fetches the missing tables of one ticker. limited is the
// upstream message when the run must stop.
func (a *Acquirer) acquireTicker(ctx context.Context, symbol string, opts Options) (tr TickerReport, limited string) {
	tr.Symbol = symbol
	log := a.logger.WithTicker(symbol)

	for i, table := range a.tables {
		if !opts.Force {
			ok, err := a.store.Exists(ctx, table, symbol)
			if err != nil {
				tr.Errors = append(tr.Errors, fmt.Sprintf("%s: exists: %v", table, err))
				continue
			}
			if ok {
				tr.Skipped = append(tr.Skipped, table)
				continue
			}
		}

		res, err := a.source.Fetch(ctx, table, symbol)
		if err != nil {
			log.WithError(err).WithTable(table).Error("Fetch failed")
			tr.Errors = append(tr.Errors, fmt.Sprintf("%s: %v", table, err))
			continue
		}

		switch res.Status {
		case contracts.FetchRateLimited:
			return tr, res.Message

		case contracts.FetchNotFound:
			// the upstream does not know the symbol; its other tables will not exist either
			tr.Missing = append(tr.Missing, a.tables[i:]...)
			log.WithTable(table).Warnf("No data: %s", res.Message)
			return tr, ""

		case contracts.FetchOk:
			if res.Table == nil {
				tr.Errors = append(tr.Errors, fmt.Sprintf("%s: ok status without table", table))
				continue
			}
			if err := a.store.Write(ctx, res.Table); err != nil {
				tr.Errors = append(tr.Errors, fmt.Sprintf("%s: write: %v", table, err))
				continue
			}
			tr.Acquired = append(tr.Acquired, table)
			log.WithFields(map[string]interface{}{
				"table":   table,
				"records": res.Table.Len(),
			}).Debug("Stored raw table")
		}
	}
	return tr, ""
}

// TickersNotAcquired returns the tickers lacking at least one configured table
func (a *Acquirer) TickersNotAcquired(ctx context.Context, tickers []string) ([]string, error) {
	var out []string
	for _, symbol := range tickers {
		for _, table := range a.tables {
			ok, err := a.store.Exists(ctx, table, symbol)
			if err != nil {
				return nil, fmt.Errorf("check %s/%s: %w", table, symbol, err)
			}
			if !ok {
				out = append(out, symbol)
				break
			}
		}
	}
	return out, nil
}
