package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/strawberry/internal/contracts"
	"github.com/wonny/strawberry/internal/pipeline"
	"github.com/wonny/strawberry/pkg/logger"
)

// Runner runs the pipeline over a ticker list
type Runner interface {
	Run(ctx context.Context, tickers []string, opts pipeline.Options) (*contracts.RunReport, error)
}

// PipelineJob recomputes the fact tables after acquisition
type PipelineJob struct {
	runner   Runner
	tickers  TickerSource
	workers  int
	schedule string
	logger   *logger.Logger
}

// NewPipelineJob creates a new pipeline job
func NewPipelineJob(runner Runner, tickers TickerSource, workers int, schedule string, log *logger.Logger) *PipelineJob {
	return &PipelineJob{
		runner:   runner,
		tickers:  tickers,
		workers:  workers,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *PipelineJob) Name() string {
	return "pipeline"
}

// Schedule returns the cron schedule
func (j *PipelineJob) Schedule() string {
	return j.schedule
}

// Run processes every ticker whose facts are stale. The job fails only
// when every ticker failed; partial runs are reported, not retried.
func (j *PipelineJob) Run(ctx context.Context) error {
	tickers, err := j.tickers()
	if err != nil {
		return fmt.Errorf("load tickers: %w", err)
	}

	report, err := j.runner.Run(ctx, tickers, pipeline.Options{Workers: j.workers})
	if errors.Is(err, pipeline.ErrRunInProgress) {
		j.logger.Warn("Pipeline already running, skipping scheduled run")
		return nil
	}
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	if len(report.Results) > 0 && report.Status() == "failed" {
		return fmt.Errorf("pipeline run %s: every ticker failed", report.RunID)
	}
	return nil
}
