package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/strawberry/pkg/logger"
	"github.com/wonny/strawberry/pkg/metrics"
)

// countingJob fails its first failN runs
type countingJob struct {
	name     string
	schedule string
	failN    int32
	runs     int32
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(ctx context.Context) error {
	n := atomic.AddInt32(&j.runs, 1)
	if n <= j.failN {
		return errors.New("upstream unavailable")
	}
	return nil
}

func newScheduler() *Scheduler {
	return New(logger.Nop(), WithRetry(2, time.Millisecond), WithMetrics(metrics.New()))
}

func TestAddJob(t *testing.T) {
	s := newScheduler()

	require.NoError(t, s.AddJob(&countingJob{name: "pipeline", schedule: "0 30 6 * * *"}))
	require.NoError(t, s.AddJob(&countingJob{name: "acquisition", schedule: "0 0 6 * * *"}))
	assert.Equal(t, []string{"acquisition", "pipeline"}, s.Jobs())

	err := s.AddJob(&countingJob{name: "pipeline", schedule: "@daily"})
	assert.Error(t, err)

	err = s.AddJob(&countingJob{name: "broken", schedule: "not a schedule"})
	assert.Error(t, err)
	assert.NotContains(t, s.Jobs(), "broken")
}

func TestRemoveJob(t *testing.T) {
	s := newScheduler()
	require.NoError(t, s.AddJob(&countingJob{name: "pipeline", schedule: "@daily"}))

	require.NoError(t, s.RemoveJob("pipeline"))
	assert.Empty(t, s.Jobs())
	assert.ErrorIs(t, s.RemoveJob("pipeline"), ErrJobNotFound)
}

func TestRunJobSync(t *testing.T) {
	tests := []struct {
		name         string
		failN        int32
		wantSuccess  bool
		wantAttempts int
	}{
		{"first attempt", 0, true, 1},
		{"succeeds on retry", 2, true, 3},
		{"retries exhausted", 5, false, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScheduler()
			job := &countingJob{name: "acquisition", schedule: "@daily", failN: tt.failN}
			require.NoError(t, s.AddJob(job))

			res, err := s.RunJobSync(context.Background(), "acquisition")
			require.NoError(t, err)
			assert.Equal(t, tt.wantSuccess, res.Success)
			assert.Equal(t, tt.wantAttempts, res.Attempts)
			if !tt.wantSuccess {
				assert.Contains(t, res.Error, "upstream unavailable")
			}

			history, err := s.History("acquisition", 10)
			require.NoError(t, err)
			require.Len(t, history, 1)
			assert.Equal(t, res.Success, history[0].Success)
		})
	}
}

func TestRunJobSync_CancelledDuringRetry(t *testing.T) {
	s := New(logger.Nop(), WithRetry(3, time.Hour))
	require.NoError(t, s.AddJob(&countingJob{name: "pipeline", schedule: "@daily", failN: 10}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := s.RunJobSync(ctx, "pipeline")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.Attempts)
	assert.Contains(t, res.Error, context.DeadlineExceeded.Error())
}

func TestRunJob_UnknownJob(t *testing.T) {
	s := newScheduler()
	assert.ErrorIs(t, s.RunJob("nope"), ErrJobNotFound)

	_, err := s.RunJobSync(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = s.History("nope", 1)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestRunJob_Background(t *testing.T) {
	s := newScheduler()
	job := &countingJob{name: "pipeline", schedule: "@daily"}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("pipeline"))
	require.Eventually(t, func() bool {
		h, _ := s.History("pipeline", 1)
		return len(h) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStats(t *testing.T) {
	s := newScheduler()
	require.NoError(t, s.AddJob(&countingJob{name: "pipeline", schedule: "@daily", failN: 3}))
	require.NoError(t, s.AddJob(&countingJob{name: "acquisition", schedule: "@daily"}))

	s.Start()
	defer s.Stop()

	_, err := s.RunJobSync(context.Background(), "pipeline") // fails 3 times
	require.NoError(t, err)
	_, err = s.RunJobSync(context.Background(), "pipeline")
	require.NoError(t, err)

	stats := s.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "acquisition", stats[0].JobName)
	assert.Equal(t, 0, stats[0].TotalRuns)
	assert.Nil(t, stats[0].LastRun)
	assert.NotNil(t, stats[0].NextRun)

	p := stats[1]
	assert.Equal(t, "pipeline", p.JobName)
	assert.Equal(t, 2, p.TotalRuns)
	assert.Equal(t, 1, p.FailureCount)
	assert.InDelta(t, 0.5, p.SuccessRate, 1e-9)
	require.NotNil(t, p.LastRun)
	assert.True(t, p.LastRun.Success)
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Empty(t, h.Latest(5))
	assert.Equal(t, 0.0, h.SuccessRate())

	for i := 0; i < historySize+20; i++ {
		h.AddResult(JobResult{JobName: "x", Success: i%4 != 0, Attempts: i})
	}

	assert.Len(t, h.Results, historySize)
	assert.Equal(t, 20, h.Results[0].Attempts)

	latest := h.Latest(2)
	require.Len(t, latest, 2)
	assert.Equal(t, historySize+19, latest[1].Attempts)
	assert.Equal(t, 25, h.Failures())
	assert.InDelta(t, 0.75, h.SuccessRate(), 1e-9)
}
