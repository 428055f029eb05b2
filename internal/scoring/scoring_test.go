package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/strawberry/internal/frame"
	"github.com/wonny/strawberry/internal/series"
)

var null = series.Null()

func quarters(n int) []time.Time {
	out := make([]time.Time, n)
	k := frame.KeyOf(time.Date(2020, 3, 31, 0, 0, 0, 0, time.UTC))
	for i := range out {
		out[i] = (k + frame.QuarterKey(i)).End()
	}
	return out
}

func constant(n int, v float64) series.Series {
	return series.New(n).Fill(v)
}

func TestCalculator_Clamping(t *testing.T) {
	c, err := NewCalculator(Range{MinRatio: 0, MaxRatio: 100, MinScore: 10, MaxScore: 90, Ascending: true})
	require.NoError(t, err)

	assert.Equal(t, 10.0, c.Score(-50))
	assert.Equal(t, 90.0, c.Score(500))
	assert.Equal(t, 50.0, c.Score(50))
	assert.True(t, series.IsNull(c.Score(null)))
}

func TestCalculator_Descending(t *testing.T) {
	c, err := NewCalculator(Range{MinRatio: 0, MaxRatio: 120, MinScore: 10, MaxScore: 100})
	require.NoError(t, err)

	tests := []struct {
		ratio float64
		want  float64
	}{
		{-10, 100},
		{0, 100},
		{50, 62}, // 62.5 rounds to even
		{83.33, 38},
		{120, 10},
		{500, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Score(tt.ratio), "ratio %v", tt.ratio)
	}
}

func TestCalculator_InvalidRange(t *testing.T) {
	_, err := NewCalculator(Range{MinRatio: 5, MaxRatio: 5, MinScore: 0, MaxScore: 100})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestGrowthStreak(t *testing.T) {
	tests := []struct {
		name string
		in   series.Series
		want series.Series
	}{
		{"resets on flat", series.Of(1, 1, 2, 3, 3, 4), series.Of(0, 0, 1, 2, 0, 1)},
		{"decline", series.Of(3, 2, 1), series.Of(0, 0, 0)},
		{"null breaks run", series.Of(1, 2, null, 3, 4), series.Of(0, 1, 0, 0, 1)},
		{"empty", series.Series{}, series.Series{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GrowthStreak(tt.in))
		})
	}
}

func TestCashCoverage(t *testing.T) {
	cash := series.Of(10, 10, 0.5, 10, 10, null, 0)
	div := series.Of(1, 1, 1, 0, 2, 1, 0)

	assert.Equal(t, series.Of(1, 2, 0, 0, 1, 0, 0), CashCoverage(cash, div))
}

func TestWeightsValidate(t *testing.T) {
	keys := []string{"a", "b"}

	tests := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{"valid", Weights{"a": 0.4, "b": 0.6}, false},
		{"within tolerance", Weights{"a": 0.4, "b": 0.6 + 1e-9}, false},
		{"sums to 0.8", Weights{"a": 0.4, "b": 0.4}, true},
		{"missing key", Weights{"a": 1}, true},
		{"extra key", Weights{"a": 0.4, "b": 0.6, "c": 0}, true},
		{"negative", Weights{"a": -0.5, "b": 1.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate(keys)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidWeights)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDefaultsAreValid(t *testing.T) {
	_, err := NewDividendSafety(DefaultDividendSafetyWeights(), nil)
	assert.NoError(t, err)

	_, err = NewAlphaPulse(DefaultAlphaPulseWeights(), nil)
	assert.NoError(t, err)
}

func TestNewDividendSafety_Errors(t *testing.T) {
	w := DefaultDividendSafetyWeights()
	w[KeyQuickRatio] = 0
	_, err := NewDividendSafety(w, nil)
	assert.ErrorIs(t, err, ErrInvalidWeights)

	_, err = NewDividendSafety(DefaultDividendSafetyWeights(), map[string]Range{"bogus": {MaxRatio: 1}})
	assert.ErrorIs(t, err, ErrUnknownFactor)

	_, err = NewDividendSafety(DefaultDividendSafetyWeights(), map[string]Range{KeyQuickRatio: {MinRatio: 1, MaxRatio: 1}})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestDividendSafety_Apply(t *testing.T) {
	n := 4
	tbl := frame.New("KO", quarters(n))
	tbl.SetNumber(colDividend, constant(n, 1))
	tbl.SetNumber(colEPS, constant(n, 2))
	tbl.SetNumber(colFreeCashflow, series.Of(100, 120, 80, 100))
	tbl.SetNumber(colShares, constant(n, 100))
	tbl.SetNumber(colTotalDebt, constant(n, 100))
	tbl.SetNumber(colEquity, constant(n, 200))
	tbl.SetNumber(colEBIT, constant(n, 50))
	tbl.SetNumber(colInterestExpense, constant(n, 10))
	tbl.SetNumber(colDividendTTM, series.Of(null, null, null, 4))
	tbl.SetNumber(colCash, constant(n, 50))
	tbl.SetNumber(colReceivables, constant(n, 50))
	tbl.SetNumber(colCurrentLiab, constant(n, 100))

	ds, err := NewDividendSafety(DefaultDividendSafetyWeights(), nil)
	require.NoError(t, err)
	out := ds.Apply(tbl)

	assert.Equal(t, constant(n, 50), out.Number(KeyEarningsPayout))
	assert.Equal(t, series.Of(100, 83.33, 125, 100), out.Number(KeyFCFPayout))
	assert.Equal(t, constant(n, 16.33), out.Number(KeyFCFVolatility))
	assert.Equal(t, constant(n, 0), out.Number(KeyGrowthStreak))
	assert.Equal(t, series.Of(1, 2, 3, 4), out.Number(KeyCashCoverage))

	assert.Equal(t, series.Of(25, 38, 10, 25), out.Number(KeyFCFPayout+"_score"))
	assert.Equal(t, series.Of(36, 52, 68, 84), out.Number(KeyCashCoverage+"_score"))
	assert.Equal(t, constant(n, 78), out.Number(KeyDebtToEquity+"_score"))

	score := out.Number(ColDividendScore)
	assert.InDelta(t, 54.25, score[0], 1e-9)
	assert.False(t, tbl.Has(ColDividendScore))
}

func TestDividendSafety_PayoutRatiosArePerShare(t *testing.T) {
	tbl := frame.New("KO", quarters(2))
	tbl.SetNumber(colDividend, series.Of(0.5, 0.5))
	tbl.SetNumber(colEPS, series.Of(0.8, 1.25))
	tbl.SetNumber(colFreeCashflow, series.Of(1000, 4000))
	tbl.SetNumber(colShares, series.Of(1000, 4000))
	// aggregate earnings, far larger than one share's dividend
	tbl.SetNumber("net_income_adj", series.Of(850, 5000))

	ds, err := NewDividendSafety(DefaultDividendSafetyWeights(), nil)
	require.NoError(t, err)
	ratios := ds.Ratios(tbl)

	assert.Equal(t, series.Of(62.5, 40), ratios[KeyEarningsPayout])
	assert.Equal(t, series.Of(50, 50), ratios[KeyFCFPayout])
}

func TestDividendSafety_NoDividends(t *testing.T) {
	n := 3
	tbl := frame.New("MSFT", quarters(n))
	tbl.SetNumber(colEPS, constant(n, 2))

	ds, err := NewDividendSafety(DefaultDividendSafetyWeights(), nil)
	require.NoError(t, err)
	out := ds.Apply(tbl)

	assert.True(t, out.Number(KeyEarningsPayout).AllNull())
	assert.True(t, out.Number(ColDividendScore).AllNull())
	assert.Equal(t, n, out.Len())
}

func TestAlphaPulse_Apply(t *testing.T) {
	n := 9
	revenue := series.Of(100, 100, 100, 100, 110, 110, 110, 110, 121)

	tbl := frame.New("KO", quarters(n))
	tbl.SetNumber(colNetIncome, constant(n, 10))
	tbl.SetNumber(colTotalAssets, constant(n, 100))
	tbl.SetNumber(colRevenue, revenue)
	tbl.SetNumber(colTotalDebt, constant(n, 100))
	tbl.SetNumber(colEquity, constant(n, 100))
	tbl.SetNumber(colEPS, constant(n, 1))
	tbl.SetNumber(colSharePrice, constant(n, 20))

	ap, err := NewAlphaPulse(DefaultAlphaPulseWeights(), nil)
	require.NoError(t, err)
	out := ap.Apply(tbl)

	assert.Equal(t, 33.0, out.Number("alpha_return_on_assets_score")[8])
	assert.Equal(t, 33.0, out.Number("alpha_revenue_growth_score")[8])
	assert.Equal(t, 67.0, out.Number("alpha_debt_to_equity_score")[8])
	assert.Equal(t, 38.0, out.Number("alpha_earnings_yield_score")[8])
	assert.Equal(t, 17.0, out.Number("alpha_momentum_score")[8])
	assert.Equal(t, 100.0, out.Number("alpha_return_on_assets_volatility_score")[8])

	score := out.Number(ColAlphaPulseScore)
	assert.InDelta(t, 42.35, score[8], 1e-9)
	for i := 0; i < ROAVolatilityWindow-1; i++ {
		assert.True(t, series.IsNull(score[i]), "row %d needs a full volatility window", i)
	}

	// the dividend safety debt ratio column is left alone
	assert.False(t, out.Has(KeyDebtToEquity))
}

func TestNewAlphaPulse_WeightKeys(t *testing.T) {
	w := DefaultAlphaPulseWeights()
	delete(w, KeyMomentum)
	w["price_surge"] = 0.20

	_, err := NewAlphaPulse(w, nil)
	assert.ErrorIs(t, err, ErrInvalidWeights)
}
