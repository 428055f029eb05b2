// Package derive computes the cross-source derived columns of a
// consolidated ticker table, in dependency order.
package derive

import (
	"math"

	"github.com/wonny/strawberry/internal/frame"
	"github.com/wonny/strawberry/internal/series"
)

// Params holds the tunable inputs of the derived columns
type Params struct {
	TaxRate float64 `yaml:"tax_rate" json:"tax_rate"` // normalized tax rate for net_income_adj
}

// DefaultParams returns the built-in parameters
func DefaultParams() Params {
	return Params{TaxRate: 0.15}
}

// Calculator computes derived columns
// ⭐ SSOT: derived column formulas
type Calculator struct {
	params Params
}

// New creates a calculator
func New(p Params) *Calculator {
	return &Calculator{params: p}
}

// Apply returns a copy of t, sorted by date, with every derived column
// added. Undefined arithmetic yields null cells.
func (c *Calculator) Apply(t *frame.Table) *frame.Table {
	out := t.SortByDate()

	shares := out.Number(ColSharesOutstanding)
	price := out.Number(ColSharePrice)
	dividend := out.Number(ColDividend)
	eps := out.Number(ColEPS)

	// 1. free cash flow
	fcf := out.Number(ColOperatingCashflow).Sub(out.Number(ColCapitalExpenditures))
	fcfTTM := fcf.RollingSum(TTMWindow, 0)
	out.SetNumber(ColFreeCashflow, fcf)
	out.SetNumber(ColFreeCashflowTTM, fcfTTM)
	out.SetNumber(ColFreeCashflowPSTTM, fcfTTM.Div(shares).Round(2))

	// 2. dividend growth
	qtrGrowth := CompoundGrowth(dividend, GrowthLag, GrowthLag)
	growth5y := qtrGrowth.AddScalar(1).Pow(QuartersPerYear).AddScalar(-1)
	out.SetNumber(ColQtrGrowth, qtrGrowth)
	out.SetNumber(ColDividendGrowthRate5y, growth5y)

	// 3. trailing dividend and yield
	divTTM := dividend.RollingSum(TTMWindow, 0)
	yield := divTTM.Div(price)
	out.SetNumber(ColDividendTTM, divTTM)
	out.SetNumber(ColDividendYield, yield)

	// 4. chowder
	out.SetNumber(ColDividendChowderYield, yield.Add(growth5y))

	// 5-7. relative yield
	mean := yield.RollingMean(YieldHistory, 1)
	std := yield.RollingStd(YieldHistory, 1)
	z := yield.Sub(mean).Div(std)
	out.SetNumber(ColYieldMean5y, mean)
	out.SetNumber(ColYieldStd5y, std)
	out.SetNumber(ColYieldZScore, z)
	out.SetText(ColAction, ClassifyAll(z))

	// 8. leverage at market value
	fve := shares.Mul(price)
	totalDebt := out.Number(ColShortTermDebt).Add(out.Number(ColLongTermDebt))
	out.SetNumber(ColFairValueEquity, fve)
	out.SetNumber(ColTotalDebt, totalDebt)
	out.SetNumber(ColDebtToEquityFV, totalDebt.Div(fve))

	// 9 and 13. P/E, EPS projection, PEG
	pe := price.Div(eps)
	proj := ProjectEPS(eps)
	out.SetNumber(ColPERatio, pe)
	out.SetNumber(ColEPSYoY, proj.YoY)
	out.SetNumber(ColEPSCAGR, proj.CAGR)
	out.SetNumber(ColEPSSmoothYoY, proj.SmoothYoY)
	out.SetNumber(ColProjectedEPSGrowth, proj.Projected)
	out.SetNumber(ColPEGRatio, pe.Div(proj.Projected))

	// 10. earnings yield
	out.SetNumber(ColEarningsYield, eps.Div(price))

	// 11. cash conversion
	out.SetNumber(ColEBITDAToFCF, out.Number(ColEBITDA).Div(fcf))

	// 12. insider accumulation
	cumInsider := out.Number(ColInsiderNetShares).CumSum()
	out.SetNumber(ColCumulativeInsider, cumInsider)
	out.SetNumber(ColInsiderOwnershipPct, cumInsider.Div(shares))

	// 14. normalized net income
	out.SetNumber(ColNetIncomeAdj, out.Number(ColIncomeBeforeTax).Scale(1-c.params.TaxRate))

	return out
}

// CompoundGrowth returns the per-period compound growth rate over lag
// periods: (s[t]/s[t-lag])^(1/periods) − 1. A non-positive base or
// current value is undefined and yields null.
func CompoundGrowth(s series.Series, lag int, periods float64) series.Series {
	return s.Zip(s.Shift(lag), func(cur, prior float64) float64 {
		if prior <= 0 || cur < 0 {
			return math.NaN()
		}
		return math.Pow(cur/prior, 1/periods) - 1
	})
}

// Classify maps a yield z-score to an action; first match wins
func Classify(z float64) string {
	switch {
	case series.IsNull(z):
		return ""
	case z >= 2:
		return ActionStrongBuy
	case z >= 1:
		return ActionBuy
	case z <= -2:
		return ActionStrongSell
	case z <= -1:
		return ActionSell
	default:
		return ActionHold
	}
}

// ClassifyAll classifies every z-score; null scores stay null ("")
func ClassifyAll(z series.Series) []string {
	out := make([]string, len(z))
	for i, v := range z {
		out[i] = Classify(v)
	}
	return out
}
