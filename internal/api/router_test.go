package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/strawberry/internal/api/handlers"
	"github.com/wonny/strawberry/internal/contracts"
	"github.com/wonny/strawberry/internal/pipeline"
	"github.com/wonny/strawberry/internal/storage"
	"github.com/wonny/strawberry/pkg/config"
	"github.com/wonny/strawberry/pkg/logger"
	"github.com/wonny/strawberry/pkg/metrics"
	"github.com/wonny/strawberry/pkg/redis"
)

type fakeRunner struct {
	mu      sync.Mutex
	running bool
	calls   chan []string
}

func (f *fakeRunner) Run(ctx context.Context, tickers []string, opts pipeline.Options) (*contracts.RunReport, error) {
	f.calls <- tickers
	return &contracts.RunReport{RunID: "run-1"}, nil
}

func (f *fakeRunner) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

type testServer struct {
	router http.Handler
	store  *storage.FileStore
	runner *fakeRunner
	hub    *Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	client, err := redis.New(context.Background(), &config.Config{})
	require.NoError(t, err)
	cache := redis.NewCache(client, "test")
	m := metrics.New()
	log := logger.Nop()

	store := storage.NewFileStore(t.TempDir())
	runner := &fakeRunner{calls: make(chan []string, 1)}
	hub := NewHub(m, log)
	tickers := func() ([]string, error) { return []string{"KO", "PEP"}, nil }

	router := NewRouter(Handlers{
		Facts: handlers.NewFactsHandler(storage.NewCachedStore(store, cache, m, log), cache, log),
		Runs:  handlers.NewRunsHandler(runner, store, tickers, 2, cache, log),
		Hub:   hub,
	}, m, log)

	return &testServer{router: router, store: store, runner: runner, hub: hub}
}

func (s *testServer) seedFacts(t *testing.T, symbol string, undervalued interface{}) {
	t.Helper()
	require.NoError(t, s.store.Write(context.Background(), &contracts.RawTable{
		Name:   contracts.TableFacts,
		Symbol: symbol,
		Records: []contracts.Record{
			{"qtr_end_date": "2023-09-30", "symbol": symbol, "rule_undervalued": false},
			{"qtr_end_date": "2023-12-31", "symbol": symbol, "rule_undervalued": undervalued},
		},
	}))
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = s.do(t, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetTickers(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "GET", "/api/tickers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var empty handlers.TickersResponse
	decode(t, rec, &empty)
	assert.Equal(t, 0, empty.Count)
	assert.NotNil(t, empty.Tickers)

	s.seedFacts(t, "PEP", true)
	s.seedFacts(t, "KO", false)

	rec = s.do(t, "GET", "/api/tickers", "")
	var resp handlers.TickersResponse
	decode(t, rec, &resp)
	assert.Equal(t, []string{"KO", "PEP"}, resp.Tickers)
	assert.Equal(t, 2, resp.Count)
}

func TestGetFacts(t *testing.T) {
	s := newTestServer(t)
	s.seedFacts(t, "KO", true)

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{"stored symbol", "/api/facts/KO", http.StatusOK},
		{"lower case symbol", "/api/facts/ko", http.StatusOK},
		{"unknown symbol", "/api/facts/ZZZ", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, "GET", tt.path, "")
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				var facts contracts.RawTable
				decode(t, rec, &facts)
				assert.Equal(t, "KO", facts.Symbol)
				assert.Equal(t, 2, facts.Len())
			}
		})
	}
}

func TestGetLatestFacts(t *testing.T) {
	s := newTestServer(t)
	s.seedFacts(t, "KO", true)

	rec := s.do(t, "GET", "/api/facts/KO/latest", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.LatestResponse
	decode(t, rec, &resp)
	assert.Equal(t, "KO", resp.Symbol)
	assert.Equal(t, "2023-12-31", resp.Record["qtr_end_date"])

	rec = s.do(t, "GET", "/api/facts/PEP/latest", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetScreener(t *testing.T) {
	s := newTestServer(t)
	s.seedFacts(t, "KO", true)
	s.seedFacts(t, "PEP", false)
	s.seedFacts(t, "MMM", nil)

	tests := []struct {
		name     string
		rule     string
		wantCode int
		want     []string
	}{
		{"full column name", "rule_undervalued", http.StatusOK, []string{"KO"}},
		{"short name", "undervalued", http.StatusOK, []string{"KO"}},
		{"unknown rule", "cheap", http.StatusBadRequest, nil},
		{"missing rule", "", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, "GET", "/api/screener?rule="+tt.rule, "")
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusOK {
				return
			}

			var resp handlers.ScreenerResponse
			decode(t, rec, &resp)
			assert.Equal(t, "rule_undervalued", resp.Rule)
			symbols := make([]string, 0, len(resp.Matches))
			for _, m := range resp.Matches {
				symbols = append(symbols, m.Symbol)
			}
			assert.Equal(t, tt.want, symbols)
			assert.Equal(t, len(tt.want), resp.Count)
		})
	}
}

func TestGetLatestRun(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "GET", "/api/runs/latest", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, s.store.SaveRun(context.Background(), &contracts.RunReport{
		RunID:     "abc",
		StartedAt: time.Date(2024, 6, 1, 6, 30, 0, 0, time.UTC),
	}))

	rec = s.do(t, "GET", "/api/runs/latest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report contracts.RunReport
	decode(t, rec, &report)
	assert.Equal(t, "abc", report.RunID)
}

func TestTriggerRun(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		running  bool
		wantCode int
		want     []string
	}{
		{"configured tickers", "", false, http.StatusAccepted, []string{"KO", "PEP"}},
		{"explicit tickers", `{"tickers":["msft"," ko ","MSFT"],"force":true}`, false, http.StatusAccepted, []string{"MSFT", "KO"}},
		{"bad body", `{"tickers":`, false, http.StatusBadRequest, nil},
		{"already running", "", true, http.StatusConflict, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.runner.running = tt.running

			rec := s.do(t, "POST", "/api/runs", tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.want == nil {
				return
			}

			select {
			case got := <-s.runner.calls:
				assert.Equal(t, tt.want, got)
			case <-time.After(2 * time.Second):
				t.Fatal("run was not started")
			}
		})
	}
}

func TestRunEventsStream(t *testing.T) {
	s := newTestServer(t)
	server := httptest.NewServer(s.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/runs"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.hub.Publish(pipeline.Event{
		Kind:   pipeline.EventTickerDone,
		RunID:  "run-1",
		Result: &contracts.TickerResult{Symbol: "KO", Status: contracts.TickerOK, Rows: 24},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev pipeline.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, pipeline.EventTickerDone, ev.Kind)
	require.NotNil(t, ev.Result)
	assert.Equal(t, "KO", ev.Result.Symbol)

	conn.Close()
	require.Eventually(t, func() bool { return s.hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}
