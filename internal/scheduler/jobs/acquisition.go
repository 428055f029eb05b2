// Package jobs holds the scheduled jobs of the nightly refresh.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/strawberry/internal/acquisition"
	"github.com/wonny/strawberry/pkg/logger"
)

// TickerSource returns the configured ticker list
type TickerSource func() ([]string, error)

// AcquisitionJob pulls missing raw tables every day
// ⭐ SSOT: the acquisition schedule is defined by this job only
type AcquisitionJob struct {
	acquirer *acquisition.Acquirer
	tickers  TickerSource
	schedule string
	logger   *logger.Logger
}

// NewAcquisitionJob creates a new acquisition job
func NewAcquisitionJob(acq *acquisition.Acquirer, tickers TickerSource, schedule string, log *logger.Logger) *AcquisitionJob {
	return &AcquisitionJob{
		acquirer: acq,
		tickers:  tickers,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *AcquisitionJob) Name() string {
	return "acquisition"
}

// Schedule returns the cron schedule
func (j *AcquisitionJob) Schedule() string {
	return j.schedule
}

// Run acquires the missing tables. A spent request budget is the normal
// end of a free-tier day and is not a failure.
func (j *AcquisitionJob) Run(ctx context.Context) error {
	tickers, err := j.tickers()
	if err != nil {
		return fmt.Errorf("load tickers: %w", err)
	}

	report, err := j.acquirer.Run(ctx, tickers, acquisition.Options{})
	if errors.Is(err, acquisition.ErrAcquireInProgress) {
		j.logger.Warn("Acquisition already running, skipping scheduled run")
		return nil
	}
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}

	pending, err := j.acquirer.TickersNotAcquired(ctx, tickers)
	if err != nil {
		return fmt.Errorf("check acquired tickers: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"acquired":     report.Acquired(),
		"rate_limited": report.RateLimited,
		"pending":      len(pending),
	}).Info("Scheduled acquisition completed")

	return nil
}
