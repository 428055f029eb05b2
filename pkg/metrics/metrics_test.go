package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	close(ch)

	var total float64
	for metric := range ch {
		var m dto.Metric
		require.NoError(t, metric.Write(&m))
		total += m.GetCounter().GetValue() + m.GetGauge().GetValue()
	}
	return total
}

func TestRecordTickerAndRun(t *testing.T) {
	m := New()

	m.RecordTicker("ok")
	m.RecordTicker("ok")
	m.RecordTicker("failed")
	m.RecordRun("pipeline", "ok")

	assert.Equal(t, 2.0, counterValue(t, m.TickersTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, counterValue(t, m.TickersTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, counterValue(t, m.RunsTotal.WithLabelValues("pipeline", "ok")))
	assert.Greater(t, counterValue(t, m.LastRunSuccess), 0.0)
}

func TestRecordCache(t *testing.T) {
	m := New()

	m.RecordCache("facts", true)
	m.RecordCache("facts", false)
	m.RecordCache("facts", false)

	assert.Equal(t, 1.0, counterValue(t, m.CacheHits.WithLabelValues("facts")))
	assert.Equal(t, 2.0, counterValue(t, m.CacheMisses.WithLabelValues("facts")))
}

func TestNilRegistryIsNoop(t *testing.T) {
	var m *Registry

	assert.NotPanics(t, func() {
		m.RecordAPIRequest("EARNINGS", "ok")
		m.SetBudgetRemaining(3)
		m.RecordTicker("ok")
		m.RecordRun("pipeline", "ok")
		m.RecordQualityIssue("coverage")
		m.RecordCache("facts", true)
		m.ObserveHTTP("/health", "200", time.Millisecond)
		m.WSClientConnected(1)
		m.StartStage("derive").Stop("ok")
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.RecordAPIRequest("OVERVIEW", "ok")
	m.StartStage("consolidate").Stop("ok")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `strawberry_api_requests_total{status="ok",table="OVERVIEW"} 1`)
	assert.Contains(t, string(body), `strawberry_stage_duration_seconds_count{result="ok",stage="consolidate"} 1`)
}
