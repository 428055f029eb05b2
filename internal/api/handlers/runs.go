package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/wonny/strawberry/internal/contracts"
	"github.com/wonny/strawberry/internal/pipeline"
	"github.com/wonny/strawberry/internal/pipelineconfig"
	"github.com/wonny/strawberry/pkg/logger"
	"github.com/wonny/strawberry/pkg/redis"
)

// RunTrigger starts pipeline runs
type RunTrigger interface {
	Run(ctx context.Context, tickers []string, opts pipeline.Options) (*contracts.RunReport, error)
	Running() bool
}

// TickerSource returns the configured ticker list
type TickerSource func() ([]string, error)

// RunsHandler handles pipeline run endpoints
type RunsHandler struct {
	runner  RunTrigger
	runs    contracts.RunStore
	tickers TickerSource
	workers int
	cache   *redis.Cache
	logger  *logger.Logger
}

// NewRunsHandler creates a new runs handler
func NewRunsHandler(
	runner RunTrigger,
	runs contracts.RunStore,
	tickers TickerSource,
	workers int,
	cache *redis.Cache,
	log *logger.Logger,
) *RunsHandler {
	return &RunsHandler{
		runner:  runner,
		runs:    runs,
		tickers: tickers,
		workers: workers,
		cache:   cache,
		logger:  log,
	}
}

// GetLatest returns the report of the last finished run
// GET /api/runs/latest
func (h *RunsHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var report contracts.RunReport
	err := h.cache.GetOrSet(ctx, redis.LatestRunKey(), &report, redis.TTLShort, func() (interface{}, error) {
		return h.runs.LatestRun(ctx)
	})
	if errors.Is(err, contracts.ErrNoRuns) {
		respondError(w, http.StatusNotFound, "No pipeline runs recorded")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest run")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve latest run")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// TriggerRequest is the optional body of a run trigger
type TriggerRequest struct {
	Tickers []string `json:"tickers"` // empty: the configured ticker list
	Force   bool     `json:"force"`
}

// TriggerResponse acknowledges a started run
type TriggerResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Tickers int    `json:"tickers"`
}

// Trigger starts a pipeline run in the background. Progress is streamed on /ws/runs.
// POST /api/runs
func (h *RunsHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if h.runner.Running() {
		respondError(w, http.StatusConflict, pipeline.ErrRunInProgress.Error())
		return
	}

	tickers := pipelineconfig.NormalizeTickers(req.Tickers)
	if len(tickers) == 0 {
		var err error
		if tickers, err = h.tickers(); err != nil {
			h.logger.WithError(err).Error("Failed to load tickers")
			respondError(w, http.StatusInternalServerError, "Failed to load tickers")
			return
		}
	}
	if len(tickers) == 0 {
		respondError(w, http.StatusBadRequest, "No tickers to run")
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"tickers": len(tickers),
		"force":   req.Force,
	}).Info("Pipeline run triggered")

	ctx := context.WithoutCancel(r.Context())
	go func() {
		if _, err := h.runner.Run(ctx, tickers, pipeline.Options{Workers: h.workers, Force: req.Force}); err != nil {
			h.logger.WithError(err).Warn("Triggered run did not start")
		}
	}()

	respondJSON(w, http.StatusAccepted, TriggerResponse{
		Status:  "started",
		Message: "Pipeline run started",
		Tickers: len(tickers),
	})
}

// OnEvent drops the cached run report when a run finishes
func (h *RunsHandler) OnEvent(ev pipeline.Event) {
	if ev.Kind != pipeline.EventRunFinished {
		return
	}
	if err := h.cache.Delete(context.Background(), redis.LatestRunKey()); err != nil {
		h.logger.WithError(err).Warn("Failed to invalidate latest run")
	}
}
