// Package valuation estimates per-share fair values with a two-stage
// discounted cash flow model and a Gordon growth dividend model.
package valuation

import (
	"errors"
	"math"

	"github.com/wonny/strawberry/internal/frame"
	"github.com/wonny/strawberry/internal/series"
)

// Input columns
const (
	ColFreeCashflowTTM   = "free_cashflow_TTM"
	ColSharesOutstanding = "shares_outstanding"
	ColDividend          = "dividend"
	ColSharePrice        = "share_price"
)

// Output columns
const (
	ColFairValueDCF     = "fair_value_dcf"
	ColFairValueDDM     = "fair_value_ddm"
	ColFairValueBlended = "fair_value_blended"
	ColFairValueGapPct  = "fair_value_gap_pct"
)

// ErrInvalidParams is returned for parameters the models cannot evaluate
var ErrInvalidParams = errors.New("valuation: invalid parameters")

// Params holds the model rates
type Params struct {
	HighGrowthRate     float64 `yaml:"high_growth_rate" json:"high_growth_rate"`
	HighGrowthYears    int     `yaml:"high_growth_years" json:"high_growth_years"`
	TerminalGrowthRate float64 `yaml:"terminal_growth_rate" json:"terminal_growth_rate"`
	DiscountRate       float64 `yaml:"discount_rate" json:"discount_rate"`
	DividendGrowthRate float64 `yaml:"dividend_growth_rate" json:"dividend_growth_rate"`
}

// DefaultParams returns the built-in model rates
func DefaultParams() Params {
	return Params{
		HighGrowthRate:     0.05,
		HighGrowthYears:    10,
		TerminalGrowthRate: 0.029,
		DiscountRate:       0.0775,
		DividendGrowthRate: 0.05,
	}
}

// Validate checks that both perpetuities converge
func (p Params) Validate() error {
	if p.HighGrowthYears < 1 {
		return errors.Join(ErrInvalidParams, errors.New("high_growth_years must be at least 1"))
	}
	if p.DiscountRate <= p.TerminalGrowthRate {
		return errors.Join(ErrInvalidParams, errors.New("discount_rate must exceed terminal_growth_rate"))
	}
	if p.DiscountRate <= p.DividendGrowthRate {
		return errors.Join(ErrInvalidParams, errors.New("discount_rate must exceed dividend_growth_rate"))
	}
	return nil
}

// Engine evaluates the valuation models
// ⭐ SSOT: fair value formulas
type Engine struct {
	params Params
}

// New creates an engine. Params are not validated here so that a
// degenerate rate pair yields null values instead of an error.
func New(p Params) *Engine {
	return &Engine{params: p}
}

// Params returns the engine parameters
func (e *Engine) Params() Params { return e.params }

// DCF returns the two-stage DCF value per share, rounded to 2 decimals.
// cashflow is the total trailing free cash flow.
func (e *Engine) DCF(cashflow, shares float64) float64 {
	if series.IsNull(cashflow) || series.IsNull(shares) || shares == 0 {
		return series.Null()
	}
	p := e.params
	if p.DiscountRate == p.TerminalGrowthRate || p.HighGrowthYears < 1 {
		return series.Null()
	}

	stage1 := 0.0
	for year := 1; year <= p.HighGrowthYears; year++ {
		projected := cashflow * math.Pow(1+p.HighGrowthRate, float64(year))
		stage1 += projected / math.Pow(1+p.DiscountRate, float64(year))
	}

	horizon := float64(p.HighGrowthYears)
	finalYear := cashflow * math.Pow(1+p.HighGrowthRate, horizon)
	terminal := finalYear * (1 + p.TerminalGrowthRate) / (p.DiscountRate - p.TerminalGrowthRate)
	discountedTerminal := terminal / math.Pow(1+p.DiscountRate, horizon)

	total := series.Round(stage1+discountedTerminal, 2)
	return series.Round(total/shares, 2)
}

// DDM returns the Gordon growth value of a dividend, rounded to 2 decimals
func (e *Engine) DDM(dividend float64) float64 {
	if series.IsNull(dividend) || dividend <= 0 {
		return series.Null()
	}
	p := e.params
	if p.DiscountRate == p.DividendGrowthRate {
		return series.Null()
	}
	return series.Round(dividend*(1+p.DividendGrowthRate)/(p.DiscountRate-p.DividendGrowthRate), 2)
}

// Blend averages two model values; a missing model gives no blend
func Blend(dcf, ddm float64) float64 {
	if series.IsNull(dcf) || series.IsNull(ddm) {
		return series.Null()
	}
	return (dcf + ddm) / 2
}

// Gap is the discount of price to the blended value, as a fraction of it
func Gap(blended, price float64) float64 {
	if series.IsNull(blended) || series.IsNull(price) || blended == 0 {
		return series.Null()
	}
	return (blended - price) / blended
}

// Apply returns a copy of t with the fair value columns added
func (e *Engine) Apply(t *frame.Table) *frame.Table {
	out := t.Clone()

	fcf := out.Number(ColFreeCashflowTTM)
	shares := out.Number(ColSharesOutstanding)
	dividend := out.Number(ColDividend)
	price := out.Number(ColSharePrice)

	n := out.Len()
	dcf := series.New(n)
	ddm := series.New(n)
	blended := series.New(n)
	gap := series.New(n)
	for i := 0; i < n; i++ {
		dcf[i] = e.DCF(fcf[i], shares[i])
		ddm[i] = e.DDM(dividend[i])
		blended[i] = Blend(dcf[i], ddm[i])
		gap[i] = Gap(blended[i], price[i])
	}

	out.SetNumber(ColFairValueDCF, dcf)
	out.SetNumber(ColFairValueDDM, ddm)
	out.SetNumber(ColFairValueBlended, blended)
	out.SetNumber(ColFairValueGapPct, gap)
	return out
}
