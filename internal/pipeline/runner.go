// Package pipeline runs the per-ticker transform sequence over a ticker
// list and records the outcome of every ticker in a run report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/strawberry/internal/contracts"
	"github.com/wonny/strawberry/internal/pipelineconfig"
	"github.com/wonny/strawberry/pkg/logger"
	"github.com/wonny/strawberry/pkg/metrics"
)

// ErrRunInProgress is returned when Run is called while another run is active
var ErrRunInProgress = errors.New("pipeline run already in progress")

// ExceptionsPartition is the symbol key under which a run's exceptions are stored
const ExceptionsPartition = "ALL"

// Deps are the collaborators of a Runner
type Deps struct {
	Raw     contracts.TableStore // acquired tables
	Facts   contracts.TableStore // fact and exception tables
	Runs    contracts.RunStore   // optional
	Metrics *metrics.Registry    // optional
}

// Options tune one run
type Options struct {
	Workers int  // concurrent tickers; values below 1 mean 1
	Force   bool // recompute tickers whose facts are up to date
}

// Runner orchestrates pipeline runs
// ⭐ SSOT: the only place tickers are driven through the stages
type Runner struct {
	deps       Deps
	engines    *engines
	configHash string
	logger     *logger.Logger
	listeners  listeners

	mu      sync.Mutex
	running bool
}

// New validates cfg, builds every stage and returns a Runner
func New(cfg *pipelineconfig.Config, deps Deps, log *logger.Logger) (*Runner, error) {
	if deps.Raw == nil || deps.Facts == nil {
		return nil, errors.New("pipeline: raw and fact stores are required")
	}

	e, err := buildEngines(cfg)
	if err != nil {
		return nil, err
	}

	hash, err := pipelineconfig.Hash(cfg)
	if err != nil {
		return nil, err
	}

	return &Runner{
		deps:       deps,
		engines:    e,
		configHash: hash,
		logger:     log.Module("pipeline"),
	}, nil
}

// ConfigHash returns the hash stamped on every report and fact table of this runner
func (r *Runner) ConfigHash() string {
	return r.configHash
}

// Subscribe registers a listener for run events
func (r *Runner) Subscribe(fn Listener) {
	r.listeners.add(fn)
}

// Running reports whether a run is active
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Run processes every ticker and returns the report. Ticker failures are
// recorded on the report and never abort the run. Results keep the order
// of tickers.
func (r *Runner) Run(ctx context.Context, tickers []string, opts Options) (*contracts.RunReport, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrRunInProgress
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	report := &contracts.RunReport{
		RunID:      uuid.NewString(),
		ConfigHash: r.configHash,
		StartedAt:  time.Now().UTC(),
		Results:    make([]contracts.TickerResult, len(tickers)),
	}
	log := r.logger.WithRun(report.RunID)

	log.WithFields(map[string]interface{}{
		"tickers": len(tickers),
		"workers": workers,
		"force":   opts.Force,
	}).Info("Starting pipeline run")
	r.listeners.publish(Event{Kind: EventRunStarted, RunID: report.RunID, Total: len(tickers)})

	type job struct {
		idx    int
		symbol string
	}
	type done struct {
		idx        int
		result     contracts.TickerResult
		exceptions []contracts.ExceptionRecord
	}

	jobCh := make(chan job, len(tickers))
	doneCh := make(chan done, len(tickers))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				if err := ctx.Err(); err != nil {
					doneCh <- done{idx: j.idx, result: contracts.TickerResult{
						Symbol: j.symbol,
						Status: contracts.TickerFailed,
						Error:  err.Error(),
					}}
					continue
				}
				res, exc := r.safeProcess(ctx, j.symbol, opts.Force)
				doneCh <- done{idx: j.idx, result: res, exceptions: exc}
			}
		}()
	}

	for i, symbol := range tickers {
		jobCh <- job{idx: i, symbol: symbol}
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(doneCh)
	}()

	excByTicker := make([][]contracts.ExceptionRecord, len(tickers))
	for d := range doneCh {
		report.Results[d.idx] = d.result
		excByTicker[d.idx] = d.exceptions
		r.deps.Metrics.RecordTicker(string(d.result.Status))

		res := d.result
		r.listeners.publish(Event{Kind: EventTickerDone, RunID: report.RunID, Result: &res})
	}
	for _, exc := range excByTicker {
		report.Exceptions = append(report.Exceptions, exc...)
	}

	report.FinishedAt = time.Now().UTC()

	if err := r.writeExceptions(ctx, report); err != nil {
		log.WithError(err).Warn("Failed to write exceptions table")
	}
	if r.deps.Runs != nil {
		if err := r.deps.Runs.SaveRun(ctx, report); err != nil {
			log.WithError(err).Warn("Failed to save run report")
		}
	}

	r.deps.Metrics.RecordRun("pipeline", report.Status())
	r.listeners.publish(Event{Kind: EventRunFinished, RunID: report.RunID, Report: report})

	log.WithFields(map[string]interface{}{
		"ok":         report.Count(contracts.TickerOK),
		"skipped":    report.Count(contracts.TickerSkipped),
		"failed":     report.Count(contracts.TickerFailed),
		"exceptions": len(report.Exceptions),
		"duration":   report.Duration().String(),
	}).Info("Pipeline run completed")

	return report, nil
}

// safeProcess runs one ticker and turns a panic into a failed result
func (r *Runner) safeProcess(ctx context.Context, symbol string, force bool) (res contracts.TickerResult, exc []contracts.ExceptionRecord) {
	defer func() {
		if p := recover(); p != nil {
			msg := fmt.Sprintf("panic: %v", p)
			r.logger.WithTicker(symbol).Error(msg)
			res = contracts.TickerResult{Symbol: symbol, Status: contracts.TickerFailed, Error: msg}
			exc = append(exc, contracts.ExceptionRecord{Table: contracts.TableFacts, Ticker: symbol, Error: msg})
		}
	}()
	return r.processTicker(ctx, symbol, force)
}

// writeExceptions replaces the exceptions table with this run's records
func (r *Runner) writeExceptions(ctx context.Context, report *contracts.RunReport) error {
	t := &contracts.RawTable{
		Name:      contracts.TableExceptions,
		Symbol:    ExceptionsPartition,
		FetchedAt: report.FinishedAt,
		Records:   make([]contracts.Record, 0, len(report.Exceptions)),
	}
	for _, e := range report.Exceptions {
		t.Records = append(t.Records, contracts.Record{
			"table":  e.Table,
			"ticker": e.Ticker,
			"error":  e.Error,
		})
	}
	return r.deps.Facts.Write(ctx, t)
}
