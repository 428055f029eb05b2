package scoring

import (
	"github.com/wonny/strawberry/internal/frame"
	"github.com/wonny/strawberry/internal/series"
)

// Dividend safety factor keys; each is also the ratio column name and
// the score column is the key with a _score suffix.
const (
	KeyEarningsPayout   = "earnings_payout_ratio"
	KeyFCFPayout        = "fcf_payout_ratio"
	KeyDebtToEquity     = "debt_to_equity_ratio"
	KeyInterestCoverage = "interest_coverage_ratio"
	KeyFCFVolatility    = "fcf_volatility_ratio"
	KeyGrowthStreak     = "dividend_ttm_growth_streak"
	KeyQuickRatio       = "quick_ratio"
	KeyCashCoverage     = "cash_dividend_coverage"

	ColDividendScore = "dividend_score"
)

// DividendSafetyKeys lists the dividend safety factors in order
var DividendSafetyKeys = []string{
	KeyEarningsPayout, KeyFCFPayout, KeyDebtToEquity, KeyInterestCoverage,
	KeyFCFVolatility, KeyGrowthStreak, KeyQuickRatio, KeyCashCoverage,
}

// DefaultDividendSafetyWeights returns the built-in weights
func DefaultDividendSafetyWeights() Weights {
	return Weights{
		KeyEarningsPayout:   0.1875,
		KeyFCFPayout:        0.1875,
		KeyDebtToEquity:     0.125,
		KeyInterestCoverage: 0.125,
		KeyFCFVolatility:    0.125,
		KeyGrowthStreak:     0.125,
		KeyQuickRatio:       0.0625,
		KeyCashCoverage:     0.0625,
	}
}

// DefaultDividendSafetyRanges returns the built-in score ranges, in percent
// for ratios, periods for the growth streak and years for cash coverage.
func DefaultDividendSafetyRanges() map[string]Range {
	return map[string]Range{
		KeyEarningsPayout:   {MinRatio: 0, MaxRatio: 120, MinScore: 10, MaxScore: 100},
		KeyFCFPayout:        {MinRatio: 0, MaxRatio: 120, MinScore: 10, MaxScore: 100},
		KeyDebtToEquity:     {MinRatio: 0, MaxRatio: 200, MinScore: 10, MaxScore: 100},
		KeyInterestCoverage: {MinRatio: 0, MaxRatio: 100, MinScore: 10, MaxScore: 100, Ascending: true},
		KeyFCFVolatility:    {MinRatio: 0, MaxRatio: 50, MinScore: 20, MaxScore: 100},
		KeyGrowthStreak:     {MinRatio: 0, MaxRatio: 25, MinScore: 10, MaxScore: 100, Ascending: true},
		KeyQuickRatio:       {MinRatio: 50, MaxRatio: 200, MinScore: 20, MaxScore: 100, Ascending: true},
		KeyCashCoverage:     {MinRatio: 0, MaxRatio: 5, MinScore: 20, MaxScore: 100, Ascending: true},
	}
}

// Input columns of the dividend safety score
const (
	colDividend        = "dividend"
	colDividendTTM     = "dividend_ttm"
	colEPS             = "eps"
	colFreeCashflow    = "free_cashflow"
	colShares          = "shares_outstanding"
	colTotalDebt       = "total_debt"
	colEquity          = "total_shareholder_equity"
	colEBIT            = "ebit"
	colInterestExpense = "interest_expense"
	colCash            = "cash_and_cash_equivalents"
	colReceivables     = "current_net_receivables"
	colCurrentLiab     = "current_liabilities"
	colNetIncome       = "net_income"
	colTotalAssets     = "total_assets"
	colRevenue         = "revenue"
	colSharePrice      = "share_price"
)

// DividendSafety computes the dividend safety composite
type DividendSafety struct {
	c *composite
}

// NewDividendSafety validates weights and ranges. nil ranges use the
// defaults; a partial map overrides only the factors it names.
func NewDividendSafety(weights Weights, ranges map[string]Range) (*DividendSafety, error) {
	cols := make(map[string][2]string, len(DividendSafetyKeys))
	for _, k := range DividendSafetyKeys {
		cols[k] = [2]string{k, k + "_score"}
	}
	c, err := buildComposite("dividend safety", ColDividendScore, DividendSafetyKeys, cols,
		DefaultDividendSafetyRanges(), ranges, weights)
	if err != nil {
		return nil, err
	}
	return &DividendSafety{c: c}, nil
}

// Ratios computes the unscored factor ratios of t. Both payout ratios are
// per share: the quarterly dividend over eps and over free cash flow per share.
func (d *DividendSafety) Ratios(t *frame.Table) map[string]series.Series {
	dividend := t.Number(colDividend)
	fcf := t.Number(colFreeCashflow)
	cash := t.Number(colCash)

	// whole-history coefficient of variation, repeated on every row
	vol := series.New(t.Len()).Fill(series.Round(fcf.Std()/fcf.Mean()*100, 2))

	return map[string]series.Series{
		KeyEarningsPayout:   percent(dividend.Div(t.Number(colEPS))),
		KeyFCFPayout:        percent(dividend.Div(fcf.Div(t.Number(colShares)))),
		KeyDebtToEquity:     percent(t.Number(colTotalDebt).Div(t.Number(colEquity))),
		KeyInterestCoverage: percent(t.Number(colEBIT).Div(t.Number(colInterestExpense))),
		KeyFCFVolatility:    vol,
		KeyGrowthStreak:     GrowthStreak(t.Number(colDividendTTM)),
		KeyQuickRatio:       percent(cash.Add(t.Number(colReceivables)).Div(t.Number(colCurrentLiab))),
		KeyCashCoverage:     CashCoverage(cash, dividend),
	}
}

// Apply returns a copy of t with every ratio, sub-score and the
// dividend_score column
func (d *DividendSafety) Apply(t *frame.Table) *frame.Table {
	out := t.Clone()
	d.c.apply(out, d.Ratios(t))
	return out
}

func percent(s series.Series) series.Series {
	return s.Scale(100).Round(2)
}
