package scoring

import (
	"github.com/wonny/strawberry/internal/frame"
	"github.com/wonny/strawberry/internal/series"
)

// Alpha pulse factor keys
const (
	KeyReturnOnAssets           = "return_on_assets"
	KeyRevenueGrowth            = "revenue_growth"
	KeyAlphaDebtToEquity        = "debt_to_equity"
	KeyEarningsYield            = "earnings_yield"
	KeyMomentum                 = "momentum"
	KeyReturnOnAssetsVolatility = "return_on_assets_volatility"

	ColAlphaPulseScore = "alpha_pulse_score"
)

// ROAVolatilityWindow is the rolling window of the ROA volatility factor
const ROAVolatilityWindow = 8

// AlphaPulseKeys lists the alpha pulse factors in order
var AlphaPulseKeys = []string{
	KeyReturnOnAssets, KeyRevenueGrowth, KeyAlphaDebtToEquity,
	KeyEarningsYield, KeyMomentum, KeyReturnOnAssetsVolatility,
}

// alphaColumns names the ratio and score columns of each factor. Ratios
// that would collide with derived or dividend safety columns get their
// own names.
var alphaColumns = map[string][2]string{
	KeyReturnOnAssets:           {"return_on_assets_ratio", "alpha_return_on_assets_score"},
	KeyRevenueGrowth:            {"revenue_growth", "alpha_revenue_growth_score"},
	KeyAlphaDebtToEquity:        {"alpha_debt_to_equity_ratio", "alpha_debt_to_equity_score"},
	KeyEarningsYield:            {"earnings_yield_pct", "alpha_earnings_yield_score"},
	KeyMomentum:                 {"momentum", "alpha_momentum_score"},
	KeyReturnOnAssetsVolatility: {"return_on_assets_volatility", "alpha_return_on_assets_volatility_score"},
}

// DefaultAlphaPulseWeights returns the built-in weights
func DefaultAlphaPulseWeights() Weights {
	return Weights{
		KeyReturnOnAssets:           0.20,
		KeyRevenueGrowth:            0.20,
		KeyAlphaDebtToEquity:        0.15,
		KeyEarningsYield:            0.15,
		KeyMomentum:                 0.20,
		KeyReturnOnAssetsVolatility: 0.10,
	}
}

// DefaultAlphaPulseRanges returns the built-in score ranges. Growth and
// momentum are fractions; the other ratios are percentages.
func DefaultAlphaPulseRanges() map[string]Range {
	return map[string]Range{
		KeyReturnOnAssets:           {MinRatio: 5, MaxRatio: 20, MinScore: 0, MaxScore: 100, Ascending: true},
		KeyRevenueGrowth:            {MinRatio: 0, MaxRatio: 0.3, MinScore: 0, MaxScore: 100, Ascending: true},
		KeyAlphaDebtToEquity:        {MinRatio: 50, MaxRatio: 200, MinScore: 0, MaxScore: 100},
		KeyEarningsYield:            {MinRatio: 2, MaxRatio: 10, MinScore: 0, MaxScore: 100, Ascending: true},
		KeyMomentum:                 {MinRatio: -0.1, MaxRatio: 0.5, MinScore: 0, MaxScore: 100, Ascending: true},
		KeyReturnOnAssetsVolatility: {MinRatio: 5, MaxRatio: 15, MinScore: 0, MaxScore: 100},
	}
}

// AlphaPulse computes the alpha pulse composite
type AlphaPulse struct {
	c *composite
}

// NewAlphaPulse validates weights and ranges; nil ranges use the defaults
func NewAlphaPulse(weights Weights, ranges map[string]Range) (*AlphaPulse, error) {
	c, err := buildComposite("alpha pulse", ColAlphaPulseScore, AlphaPulseKeys, alphaColumns,
		DefaultAlphaPulseRanges(), ranges, weights)
	if err != nil {
		return nil, err
	}
	return &AlphaPulse{c: c}, nil
}

// Ratios computes the unscored factor ratios of t, which must be date ordered
func (a *AlphaPulse) Ratios(t *frame.Table) map[string]series.Series {
	roa := t.Number(colNetIncome).Div(t.Number(colTotalAssets)).Scale(100)

	return map[string]series.Series{
		KeyReturnOnAssets:           roa,
		KeyRevenueGrowth:            t.Number(colRevenue).PctChange(4),
		KeyAlphaDebtToEquity:        t.Number(colTotalDebt).Div(t.Number(colEquity)).Scale(100),
		KeyEarningsYield:            t.Number(colEPS).Div(t.Number(colSharePrice)).Scale(100),
		KeyMomentum:                 t.Number(colSharePrice).PctChange(4),
		KeyReturnOnAssetsVolatility: roa.RollingStd(ROAVolatilityWindow, 0),
	}
}

// Apply returns a copy of t with every ratio, sub-score and the
// alpha_pulse_score column
func (a *AlphaPulse) Apply(t *frame.Table) *frame.Table {
	out := t.Clone()
	a.c.apply(out, a.Ratios(t))
	return out
}
