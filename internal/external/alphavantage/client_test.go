package alphavantage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/strawberry/internal/contracts"
	"github.com/wonny/strawberry/pkg/config"
	"github.com/wonny/strawberry/pkg/httputil"
	"github.com/wonny/strawberry/pkg/logger"
	"github.com/wonny/strawberry/pkg/metrics"
)

var testAttributes = map[string]string{
	contracts.TableEarnings:      "quarterlyEarnings",
	contracts.TableDividends:     "data",
	contracts.TableMonthlyPrices: "Monthly Adjusted Time Series",
	contracts.TableOverview:      "",
}

func newTestClient(t *testing.T, handler http.HandlerFunc, dailyLimit int) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	httpClient := httputil.New(logger.Nop(), time.Second).DisableRetry()
	return NewClient(httpClient, config.AlphaVantageConfig{
		APIKey:     "demo",
		BaseURL:    server.URL,
		DailyLimit: dailyLimit,
		RPS:        1000,
	}, testAttributes, nil, metrics.New(), logger.Nop())
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func TestFetch_ReportList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "EARNINGS", r.URL.Query().Get("function"))
		assert.Equal(t, "KO", r.URL.Query().Get("symbol"))
		assert.Equal(t, "demo", r.URL.Query().Get("apikey"))
		w.Write([]byte(`{"symbol":"KO","quarterlyEarnings":[
			{"fiscalDateEnding":"2024-03-31","reportedEPS":"0.74"},
			{"fiscalDateEnding":"2023-12-31","reportedEPS":"0.49"}]}`))
	}, 25)

	res, err := client.Fetch(context.Background(), contracts.TableEarnings, "KO")
	require.NoError(t, err)
	assert.Equal(t, contracts.FetchOk, res.Status)
	require.NotNil(t, res.Table)
	assert.Equal(t, contracts.TableEarnings, res.Table.Name)
	assert.Equal(t, "KO", res.Table.Symbol)
	assert.Equal(t, 2, res.Table.Len())
	assert.Equal(t, "0.74", res.Table.Records[0]["reportedEPS"])
	assert.False(t, res.Table.FetchedAt.IsZero())
	assert.Equal(t, 1, client.Used())
}

func TestFetch_MonthlySeriesIsTransposed(t *testing.T) {
	client := newTestClient(t, respond(`{
		"Meta Data": {"2. Symbol": "KO"},
		"Monthly Adjusted Time Series": {
			"2024-02-29": {"5. adjusted close": "60.10", "6. volume": "100"},
			"2024-03-28": {"5. adjusted close": "61.18", "6. volume": "120"}
		}}`), 25)

	res, err := client.Fetch(context.Background(), contracts.TableMonthlyPrices, "KO")
	require.NoError(t, err)
	require.Equal(t, contracts.FetchOk, res.Status)
	require.Equal(t, 2, res.Table.Len())

	assert.Equal(t, "2024-03-28", res.Table.Records[0][DateField])
	assert.Equal(t, "61.18", res.Table.Records[0]["5. adjusted close"])
	assert.Equal(t, "2024-02-29", res.Table.Records[1][DateField])
}

func TestFetch_OverviewIsOneRecord(t *testing.T) {
	client := newTestClient(t, respond(`{"Symbol":"KO","Sector":"CONSUMER STAPLES"}`), 25)

	res, err := client.Fetch(context.Background(), contracts.TableOverview, "KO")
	require.NoError(t, err)
	require.Equal(t, contracts.FetchOk, res.Status)
	require.Equal(t, 1, res.Table.Len())
	assert.Equal(t, "CONSUMER STAPLES", res.Table.Records[0]["Sector"])
}

func TestFetch_Statuses(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		handler http.HandlerFunc
		want    contracts.FetchStatus
	}{
		{
			name:    "information key means limit",
			table:   contracts.TableEarnings,
			handler: respond(`{"Information":"Our standard API rate limit is 25 requests per day."}`),
			want:    contracts.FetchRateLimited,
		},
		{
			name:    "note key means limit",
			table:   contracts.TableEarnings,
			handler: respond(`{"Note":"Thank you for using Alpha Vantage!"}`),
			want:    contracts.FetchRateLimited,
		},
		{
			name:  "http 429",
			table: contracts.TableEarnings,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			want: contracts.FetchRateLimited,
		},
		{
			name:    "error message means not found",
			table:   contracts.TableEarnings,
			handler: respond(`{"Error Message":"Invalid API call."}`),
			want:    contracts.FetchNotFound,
		},
		{
			name:    "empty object",
			table:   contracts.TableOverview,
			handler: respond(`{}`),
			want:    contracts.FetchNotFound,
		},
		{
			name:    "attribute absent",
			table:   contracts.TableEarnings,
			handler: respond(`{"symbol":"KO"}`),
			want:    contracts.FetchNotFound,
		},
		{
			name:  "http 404",
			table: contracts.TableEarnings,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			want: contracts.FetchNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler, 25)

			res, err := client.Fetch(context.Background(), tt.table, "KO")
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Status)
			assert.Nil(t, res.Table)
		})
	}
}

func TestFetch_EmptyListIsOk(t *testing.T) {
	client := newTestClient(t, respond(`{"symbol":"MSFT","data":[]}`), 25)

	res, err := client.Fetch(context.Background(), contracts.TableDividends, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, contracts.FetchOk, res.Status)
	assert.Equal(t, 0, res.Table.Len())
}

func TestFetch_DailyBudget(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"data":[]}`))
	}, 2)

	for i := 0; i < 2; i++ {
		res, err := client.Fetch(context.Background(), contracts.TableDividends, "KO")
		require.NoError(t, err)
		assert.Equal(t, contracts.FetchOk, res.Status)
	}

	res, err := client.Fetch(context.Background(), contracts.TableDividends, "KO")
	require.NoError(t, err)
	assert.Equal(t, contracts.FetchRateLimited, res.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetch_DailyBudgetResetsAtMidnightUTC(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"data":[]}`))
	}, 2)

	now := time.Date(2024, 6, 3, 22, 30, 0, 0, time.UTC)
	client.now = func() time.Time { return now }
	ctx := context.Background()

	tests := []struct {
		name   string
		at     time.Time
		status contracts.FetchStatus
	}{
		{"first call", now, contracts.FetchOk},
		{"second call", now.Add(time.Minute), contracts.FetchOk},
		{"budget spent", now.Add(time.Hour), contracts.FetchRateLimited},
		{"next day", time.Date(2024, 6, 4, 0, 0, 1, 0, time.UTC), contracts.FetchOk},
		{"next day again", time.Date(2024, 6, 4, 1, 0, 0, 0, time.UTC), contracts.FetchOk},
		{"next day spent", time.Date(2024, 6, 4, 2, 0, 0, 0, time.UTC), contracts.FetchRateLimited},
	}

	for _, tt := range tests {
		now = tt.at
		res, err := client.Fetch(ctx, contracts.TableDividends, "KO")
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.status, res.Status, tt.name)
	}

	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.Equal(t, 2, client.Used())
}

func TestFetch_BreakerOpensAfterFailures(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}, 0)

	for i := 0; i < 3; i++ {
		_, err := client.Fetch(context.Background(), contracts.TableEarnings, "KO")
		assert.Error(t, err)
	}

	res, err := client.Fetch(context.Background(), contracts.TableEarnings, "KO")
	require.NoError(t, err)
	assert.Equal(t, contracts.FetchRateLimited, res.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetch_UnknownTable(t *testing.T) {
	client := newTestClient(t, respond(`{}`), 25)

	_, err := client.Fetch(context.Background(), "NEWS_SENTIMENT", "KO")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestFetch_CancelledContext(t *testing.T) {
	client := newTestClient(t, respond(`{}`), 25)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Fetch(ctx, contracts.TableEarnings, "KO")
	assert.Error(t, err)
}

func TestExtract_RejectsScalars(t *testing.T) {
	_, err := extract("nope")
	assert.Error(t, err)

	_, err = extract([]interface{}{"x"})
	assert.Error(t, err)

	_, err = extract(map[string]interface{}{"2024-01-31": 3.0})
	assert.Error(t, err)
}
