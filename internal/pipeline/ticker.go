package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/strawberry/internal/consolidate"
	"github.com/wonny/strawberry/internal/contracts"
	"github.com/wonny/strawberry/internal/frame"
	"github.com/wonny/strawberry/internal/schema"
	"github.com/wonny/strawberry/internal/transform"
)

// StageError marks the stage at which a ticker failed
type StageError struct {
	Stage contracts.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage.Label(), e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Output is the computed result of one ticker before it is persisted
type Output struct {
	Table      *frame.Table
	Facts      *contracts.RawTable
	Quality    *contracts.QualitySnapshot
	Issues     []string
	Exceptions []contracts.ExceptionRecord
}

// Compute reads the ticker's raw tables and runs every stage up to the
// quality gate. A missing base table fails with a *StageError; problems
// with other sources are recorded as issues and exceptions.
func (r *Runner) Compute(ctx context.Context, symbol string) (*Output, error) {
	out := &Output{}
	e := r.engines
	base := e.consolidator.Base()

	// 1. transform
	timer := r.deps.Metrics.StartStage(contracts.StageTransform.Label())
	fragments := make(map[string]*frame.Fragment, len(e.specs))
	var fetchedAt time.Time

	for _, spec := range e.specs {
		raw, err := r.deps.Raw.Read(ctx, spec.Name, symbol)
		switch {
		case errors.Is(err, contracts.ErrTableNotFound):
			out.Issues = append(out.Issues, fmt.Sprintf("%s: %v", spec.Name, schema.ErrMissingSource))
			continue
		case err != nil:
			timer.Stop("error")
			return out, &StageError{Stage: contracts.StageTransform, Err: err}
		}
		if raw.FetchedAt.After(fetchedAt) {
			fetchedAt = raw.FetchedAt
		}

		frag, err := transform.Apply(raw, spec)
		if err != nil {
			out.Issues = append(out.Issues, fmt.Sprintf("%s: %v", spec.Name, err))
			if !errors.Is(err, schema.ErrMissingSource) {
				out.Exceptions = append(out.Exceptions, contracts.ExceptionRecord{
					Table:  spec.Name,
					Ticker: symbol,
					Error:  err.Error(),
				})
			}
			continue
		}
		fragments[spec.Name] = frag
	}
	timer.Stop("ok")

	// 2. consolidate
	timer = r.deps.Metrics.StartStage(contracts.StageConsolidate.Label())
	table, err := e.consolidator.Consolidate(symbol, fragments)
	if err != nil {
		timer.Stop("error")
		if _, ok := fragments[base]; !ok {
			err = fmt.Errorf("%w (%s)", err, strings.Join(out.Issues, "; "))
		}
		return out, &StageError{Stage: contracts.StageConsolidate, Err: err}
	}
	consolidate.EnsureColumns(table, e.numbers, e.texts)
	timer.Stop("ok")

	// 3-6. pure stages
	r.timed(contracts.StageDerive, func() { table = e.derive.Apply(table) })
	r.timed(contracts.StageValuation, func() { table = e.valuation.Apply(table) })
	r.timed(contracts.StageScoring, func() {
		table = e.dividend.Apply(table)
		table = e.alpha.Apply(table)
	})
	r.timed(contracts.StageRules, func() { table = e.rules.Apply(table) })

	out.Table = table
	out.Facts = &contracts.RawTable{
		Name:       contracts.TableFacts,
		Symbol:     symbol,
		FetchedAt:  fetchedAt,
		Records:    table.Records(),
		ConfigHash: r.configHash,
	}

	// 7. quality
	timer = r.deps.Metrics.StartStage(contracts.StageQuality.Label())
	snapshot, err := e.gate.Check(ctx, out.Facts)
	if err != nil {
		timer.Stop("error")
		return out, &StageError{Stage: contracts.StageQuality, Err: err}
	}
	timer.Stop("ok")
	out.Quality = snapshot

	return out, nil
}

// processTicker computes and persists one ticker
func (r *Runner) processTicker(ctx context.Context, symbol string, force bool) (contracts.TickerResult, []contracts.ExceptionRecord) {
	start := time.Now()
	log := r.logger.WithTicker(symbol)
	res := contracts.TickerResult{Symbol: symbol}

	if !force {
		fresh, err := r.upToDate(ctx, symbol)
		if err != nil {
			log.WithError(err).Debug("Freshness check failed, recomputing")
		}
		if fresh {
			res.Status = contracts.TickerSkipped
			res.Duration = time.Since(start)
			log.Debug("Facts up to date, skipping")
			return res, nil
		}
	}

	out, err := r.Compute(ctx, symbol)
	res.Issues = out.Issues
	exceptions := out.Exceptions

	if err == nil {
		timer := r.deps.Metrics.StartStage(contracts.StagePersist.Label())
		if werr := r.deps.Facts.Write(ctx, out.Facts); werr != nil {
			timer.Stop("error")
			err = &StageError{Stage: contracts.StagePersist, Err: werr}
		} else {
			timer.Stop("ok")
		}
	}

	res.Duration = time.Since(start)

	if err != nil {
		var se *StageError
		if errors.As(err, &se) {
			res.Stage = se.Stage
		}
		res.Status = contracts.TickerFailed
		res.Error = err.Error()
		exceptions = append(exceptions, contracts.ExceptionRecord{
			Table:  contracts.TableFacts,
			Ticker: symbol,
			Error:  err.Error(),
		})
		log.WithError(err).WithStage(string(res.Stage)).Warn("Ticker failed")
		return res, exceptions
	}

	res.Status = contracts.TickerOK
	res.Rows = out.Facts.Len()
	res.Quality = out.Quality
	for _, issue := range out.Quality.Issues {
		check, _, _ := strings.Cut(issue, ":")
		r.deps.Metrics.RecordQualityIssue(check)
	}

	log.WithFields(map[string]interface{}{
		"rows":     res.Rows,
		"issues":   len(res.Issues),
		"quality":  out.Quality.QualityScore,
		"passed":   out.Quality.Passed,
		"duration": res.Duration.String(),
	}).Info("Ticker processed")

	return res, exceptions
}

// upToDate reports whether the stored facts are newer than every raw
// table of the ticker and were computed with this runner's config.
// Stores that cannot report timestamps are never fresh.
func (r *Runner) upToDate(ctx context.Context, symbol string) (bool, error) {
	rawIdx, ok1 := r.deps.Raw.(contracts.TableIndex)
	factIdx, ok2 := r.deps.Facts.(contracts.TableIndex)
	if !ok1 || !ok2 {
		return false, nil
	}

	factsAt, err := factIdx.LastUpdate(ctx, contracts.TableFacts, symbol)
	if errors.Is(err, contracts.ErrTableNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	for _, spec := range r.engines.specs {
		rawAt, err := rawIdx.LastUpdate(ctx, spec.Name, symbol)
		if errors.Is(err, contracts.ErrTableNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}
		if rawAt.After(factsAt) {
			return false, nil
		}
	}

	facts, err := r.deps.Facts.Read(ctx, contracts.TableFacts, symbol)
	if err != nil {
		return false, err
	}
	return facts.ConfigHash == r.configHash, nil
}

// timed runs fn and records its duration under stage
func (r *Runner) timed(stage contracts.Stage, fn func()) {
	timer := r.deps.Metrics.StartStage(stage.Label())
	fn()
	timer.Stop("ok")
}
