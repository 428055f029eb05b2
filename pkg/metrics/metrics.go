// Package metrics exposes the Prometheus instruments of the pipeline and
// the read API. Every method is safe on a nil *Registry so callers can run
// with metrics disabled.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "strawberry"

// Registry holds all Prometheus metrics
// ⭐ SSOT: metric names are declared here only
type Registry struct {
	reg *prometheus.Registry

	// Acquisition
	APIRequests        *prometheus.CounterVec
	APIBudgetRemaining prometheus.Gauge

	// Pipeline
	StageDuration  *prometheus.HistogramVec
	TickersTotal   *prometheus.CounterVec
	RunsTotal      *prometheus.CounterVec
	LastRunSuccess prometheus.Gauge
	QualityIssues  *prometheus.CounterVec

	// Cache
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// API
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	WSClients    prometheus.Gauge
}

// New creates a registry with all metrics registered on a private
// prometheus.Registry plus the Go and process collectors.
func New() *Registry {
	m := &Registry{
		reg: prometheus.NewRegistry(),

		APIRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "AlphaVantage requests by table and fetch status",
			},
			[]string{"table", "status"},
		),

		APIBudgetRemaining: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "api_budget_remaining",
				Help:      "Requests left in the current daily AlphaVantage budget",
			},
		),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of each per-ticker pipeline stage in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"stage", "result"},
		),

		TickersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tickers_total",
				Help:      "Tickers processed by outcome",
			},
			[]string{"status"},
		),

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Pipeline and acquisition runs by kind and outcome",
			},
			[]string{"kind", "status"},
		),

		LastRunSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_success_timestamp_seconds",
				Help:      "Unix time of the last pipeline run that finished",
			},
		),

		QualityIssues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quality_issues_total",
				Help:      "Data quality issues found on fact tables by check",
			},
			[]string{"check"},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Cache hits by cache name",
			},
			[]string{"cache"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Cache misses by cache name",
			},
			[]string{"cache"},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),

		WSClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ws_clients",
				Help:      "Connected run-event websocket clients",
			},
		),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.APIRequests,
		m.APIBudgetRemaining,
		m.StageDuration,
		m.TickersTotal,
		m.RunsTotal,
		m.LastRunSuccess,
		m.QualityIssues,
		m.CacheHits,
		m.CacheMisses,
		m.HTTPRequests,
		m.HTTPDuration,
		m.WSClients,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Registry) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests and pushers
func (m *Registry) Gatherer() prometheus.Gatherer {
	return m.reg
}

// StageTimer tracks execution time of one pipeline stage
type StageTimer struct {
	metrics *Registry
	stage   string
	start   time.Time
}

// StartStage begins timing a pipeline stage
func (m *Registry) StartStage(stage string) *StageTimer {
	return &StageTimer{metrics: m, stage: stage, start: time.Now()}
}

// Stop records the stage duration under result ("ok" or "error")
func (t *StageTimer) Stop(result string) time.Duration {
	d := time.Since(t.start)
	if t.metrics != nil {
		t.metrics.StageDuration.WithLabelValues(t.stage, result).Observe(d.Seconds())
	}
	return d
}

// RecordAPIRequest counts one AlphaVantage call
func (m *Registry) RecordAPIRequest(table, status string) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(table, status).Inc()
}

// SetBudgetRemaining publishes the remaining daily request budget
func (m *Registry) SetBudgetRemaining(n int) {
	if m == nil {
		return
	}
	m.APIBudgetRemaining.Set(float64(n))
}

// RecordTicker counts one ticker outcome
func (m *Registry) RecordTicker(status string) {
	if m == nil {
		return
	}
	m.TickersTotal.WithLabelValues(status).Inc()
}

// RecordRun counts one finished run
func (m *Registry) RecordRun(kind, status string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(kind, status).Inc()
	if kind == "pipeline" {
		m.LastRunSuccess.SetToCurrentTime()
	}
}

// RecordQualityIssue counts one failed quality check
func (m *Registry) RecordQualityIssue(check string) {
	if m == nil {
		return
	}
	m.QualityIssues.WithLabelValues(check).Inc()
}

// RecordCache counts a cache lookup
func (m *Registry) RecordCache(cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMisses.WithLabelValues(cache).Inc()
}

// ObserveHTTP records one served request
func (m *Registry) ObserveHTTP(route, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, code).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// WSClientConnected adjusts the websocket client gauge by delta
func (m *Registry) WSClientConnected(delta int) {
	if m == nil {
		return
	}
	m.WSClients.Add(float64(delta))
}
