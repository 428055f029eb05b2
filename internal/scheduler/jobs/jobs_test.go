package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/strawberry/internal/acquisition"
	"github.com/wonny/strawberry/internal/contracts"
	"github.com/wonny/strawberry/internal/pipeline"
	"github.com/wonny/strawberry/internal/storage"
	"github.com/wonny/strawberry/pkg/logger"
	"github.com/wonny/strawberry/pkg/metrics"
)

type limitedSource struct {
	budget int
}

func (s *limitedSource) Fetch(ctx context.Context, table, symbol string) (contracts.FetchResult, error) {
	if s.budget == 0 {
		return contracts.FetchResult{Status: contracts.FetchRateLimited, Message: "daily budget spent"}, nil
	}
	s.budget--
	return contracts.FetchResult{
		Status: contracts.FetchOk,
		Table:  &contracts.RawTable{Name: table, Symbol: symbol, FetchedAt: time.Now().UTC()},
	}, nil
}

func staticTickers(tickers ...string) TickerSource {
	return func() ([]string, error) { return tickers, nil }
}

func TestAcquisitionJob_RateLimitIsNotFailure(t *testing.T) {
	store := storage.NewFileStore(t.TempDir())
	tables := []string{contracts.TableEarnings, contracts.TableDividends}
	acq := acquisition.New(&limitedSource{budget: 3}, store, tables, metrics.New(), logger.Nop())

	job := NewAcquisitionJob(acq, staticTickers("KO", "PEP"), "0 0 6 * * *", logger.Nop())
	assert.Equal(t, "acquisition", job.Name())
	assert.Equal(t, "0 0 6 * * *", job.Schedule())

	require.NoError(t, job.Run(context.Background()))

	pending, err := acq.TickersNotAcquired(context.Background(), []string{"KO", "PEP"})
	require.NoError(t, err)
	assert.Equal(t, []string{"PEP"}, pending)
}

func TestAcquisitionJob_TickerError(t *testing.T) {
	acq := acquisition.New(&limitedSource{}, storage.NewFileStore(t.TempDir()), nil, nil, logger.Nop())
	job := NewAcquisitionJob(acq, func() ([]string, error) {
		return nil, errors.New("tickers.csv missing")
	}, "@daily", logger.Nop())

	err := job.Run(context.Background())
	assert.ErrorContains(t, err, "tickers.csv missing")
}

type fakeRunner struct {
	report *contracts.RunReport
	err    error
	opts   pipeline.Options
}

func (f *fakeRunner) Run(ctx context.Context, tickers []string, opts pipeline.Options) (*contracts.RunReport, error) {
	f.opts = opts
	return f.report, f.err
}

func TestPipelineJob(t *testing.T) {
	tests := []struct {
		name    string
		report  *contracts.RunReport
		err     error
		wantErr bool
	}{
		{
			name: "ok run",
			report: &contracts.RunReport{Results: []contracts.TickerResult{
				{Symbol: "KO", Status: contracts.TickerOK},
			}},
		},
		{
			name: "partial run",
			report: &contracts.RunReport{Results: []contracts.TickerResult{
				{Symbol: "KO", Status: contracts.TickerOK},
				{Symbol: "PEP", Status: contracts.TickerFailed},
			}},
		},
		{
			name: "every ticker failed",
			report: &contracts.RunReport{RunID: "r1", Results: []contracts.TickerResult{
				{Symbol: "PEP", Status: contracts.TickerFailed},
			}},
			wantErr: true,
		},
		{
			name: "run in progress",
			err:  pipeline.ErrRunInProgress,
		},
		{
			name:    "runner error",
			err:     errors.New("boom"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{report: tt.report, err: tt.err}
			job := NewPipelineJob(runner, staticTickers("KO", "PEP"), 3, "0 30 6 * * *", logger.Nop())

			err := job.Run(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, 3, runner.opts.Workers)
			assert.False(t, runner.opts.Force)
		})
	}
}
