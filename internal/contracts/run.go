package contracts

import "time"

// TickerStatus is the outcome of one ticker in a run
type TickerStatus string

const (
	TickerOK      TickerStatus = "ok"
	TickerSkipped TickerStatus = "skipped"
	TickerFailed  TickerStatus = "failed"
)

// TickerResult records what happened to one ticker
type TickerResult struct {
	Symbol   string           `json:"symbol"`
	Status   TickerStatus     `json:"status"`
	Stage    Stage            `json:"stage,omitempty"` // stage that failed
	Error    string           `json:"error,omitempty"`
	Rows     int              `json:"rows"`
	Issues   []string         `json:"issues,omitempty"` // non-fatal source problems
	Quality  *QualitySnapshot `json:"quality,omitempty"`
	Duration time.Duration    `json:"duration"`
}

// ExceptionRecord is one row of the EXCEPTIONS table
type ExceptionRecord struct {
	Table  string `json:"table"`
	Ticker string `json:"ticker"`
	Error  string `json:"error"`
}

// RunReport summarizes a pipeline run
// ⭐ SSOT: persisted to pipeline_runs and served on /api/runs/latest
type RunReport struct {
	RunID      string            `json:"run_id"`
	ConfigHash string            `json:"config_hash"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Results    []TickerResult    `json:"results"`
	Exceptions []ExceptionRecord `json:"exceptions,omitempty"`
}

// Count returns the number of tickers with the given status
func (r *RunReport) Count(status TickerStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// Duration returns the wall time of the run
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Status summarizes the run as ok, partial or failed
func (r *RunReport) Status() string {
	failed := r.Count(TickerFailed)
	switch {
	case failed == 0:
		return "ok"
	case failed == len(r.Results):
		return "failed"
	default:
		return "partial"
	}
}
