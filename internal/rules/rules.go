// Package rules evaluates the boolean screening rules over an enriched
// ticker table. Every rule is a pure function of its input columns; a
// null input yields an unknown flag.
package rules

import (
	"github.com/wonny/strawberry/internal/frame"
	"github.com/wonny/strawberry/internal/series"
)

// Rule columns
const (
	ColDividendGrowth  = "rule_dividend_growth"
	ColDividendChowder = "rule_dividend_chowder"
	ColDividendYield   = "rule_dividend_yield"
	ColUndervalued     = "rule_undervalued"
	ColCashConversion  = "rule_cash_conversion"
	ColPEG             = "rule_peg"
	ColEarningsPremium = "rule_earnings_premium"
	ColDebtCushion     = "rule_debt_cushion"
	ColSkinInGame      = "rule_skin_in_game"
)

// Input columns
const (
	colDividendGrowth5y = "dividend_growth_rate_5y"
	colDividendYield    = "dividend_yield"
	colYieldZScore      = "yield_zscore"
	colFairValueGap     = "fair_value_gap_pct"
	colEBITDAToFCF      = "ebitda_to_fcflow"
	colPEGRatio         = "peg_ratio"
	colEarningsYield    = "earnings_yield"
	colDebtToEquityFV   = "debt_to_equity_fv"
	colInsiderOwnership = "insider_ownership_pct"
)

// Thresholds holds every overridable rule parameter
type Thresholds struct {
	DividendGrowth     float64 `yaml:"dividend_growth" json:"dividend_growth"`
	Chowder            float64 `yaml:"chowder" json:"chowder"`
	YieldZScore        float64 `yaml:"yield_zscore" json:"yield_zscore"`
	Undervalued        float64 `yaml:"undervalued_gap" json:"undervalued_gap"`
	CashConversionLow  float64 `yaml:"cash_conversion_low" json:"cash_conversion_low"`
	CashConversionHigh float64 `yaml:"cash_conversion_high" json:"cash_conversion_high"`
	PEG                float64 `yaml:"peg" json:"peg"`
	BondYield          float64 `yaml:"bond_yield" json:"bond_yield"`
	EarningsPremium    float64 `yaml:"earnings_premium" json:"earnings_premium"`
	DebtCushion        float64 `yaml:"debt_cushion" json:"debt_cushion"`
	SkinInGame         float64 `yaml:"skin_in_game" json:"skin_in_game"`
}

// DefaultThresholds returns the built-in rule parameters
func DefaultThresholds() Thresholds {
	return Thresholds{
		DividendGrowth:     0.05,
		Chowder:            0.12,
		YieldZScore:        1,
		Undervalued:        0.08,
		CashConversionLow:  0.4,
		CashConversionHigh: 0.6,
		PEG:                1.0,
		BondYield:          0.04,
		EarningsPremium:    0.02,
		DebtCushion:        0.5,
		SkinInGame:         0.05,
	}
}

// Rule evaluates one flag column from a table
type Rule struct {
	Name string
	Eval func(t *frame.Table, th Thresholds) []frame.Flag
}

// All returns every rule in column order
// ⭐ SSOT: screening rule definitions
func All() []Rule {
	return []Rule{
		{ColDividendGrowth, func(t *frame.Table, th Thresholds) []frame.Flag {
			return AtLeast(t.Number(colDividendGrowth5y), th.DividendGrowth)
		}},
		{ColDividendChowder, func(t *frame.Table, th Thresholds) []frame.Flag {
			return AtLeast(t.Number(colDividendYield).Add(t.Number(colDividendGrowth5y)), th.Chowder)
		}},
		{ColDividendYield, func(t *frame.Table, th Thresholds) []frame.Flag {
			return AtLeast(t.Number(colYieldZScore), th.YieldZScore)
		}},
		{ColUndervalued, func(t *frame.Table, th Thresholds) []frame.Flag {
			return AtMost(t.Number(colFairValueGap), th.Undervalued)
		}},
		{ColCashConversion, func(t *frame.Table, th Thresholds) []frame.Flag {
			return Between(t.Number(colEBITDAToFCF), th.CashConversionLow, th.CashConversionHigh)
		}},
		{ColPEG, func(t *frame.Table, th Thresholds) []frame.Flag {
			return Below(t.Number(colPEGRatio), th.PEG)
		}},
		{ColEarningsPremium, func(t *frame.Table, th Thresholds) []frame.Flag {
			return AtLeast(t.Number(colEarningsYield), th.BondYield+th.EarningsPremium)
		}},
		{ColDebtCushion, func(t *frame.Table, th Thresholds) []frame.Flag {
			return AtMost(t.Number(colDebtToEquityFV), th.DebtCushion)
		}},
		{ColSkinInGame, func(t *frame.Table, th Thresholds) []frame.Flag {
			return AtLeast(t.Number(colInsiderOwnership), th.SkinInGame)
		}},
	}
}

// Names returns every rule column name
func Names() []string {
	all := All()
	out := make([]string, len(all))
	for i, r := range all {
		out[i] = r.Name
	}
	return out
}

// Engine applies the rules with a fixed set of thresholds
type Engine struct {
	th    Thresholds
	rules []Rule
}

// New creates a rule engine
func New(th Thresholds) *Engine {
	return &Engine{th: th, rules: All()}
}

// Apply returns a copy of t with every rule column added
func (e *Engine) Apply(t *frame.Table) *frame.Table {
	out := t.Clone()
	for _, r := range e.rules {
		out.SetFlags(r.Name, r.Eval(t, e.th))
	}
	return out
}

func predicate(s series.Series, ok func(v float64) bool) []frame.Flag {
	out := make([]frame.Flag, len(s))
	for i, v := range s {
		if series.IsNull(v) {
			out[i] = frame.FlagUnknown
			continue
		}
		out[i] = frame.FlagOf(ok(v))
	}
	return out
}

// AtLeast flags cells ≥ x
func AtLeast(s series.Series, x float64) []frame.Flag {
	return predicate(s, func(v float64) bool { return v >= x })
}

// AtMost flags cells ≤ x
func AtMost(s series.Series, x float64) []frame.Flag {
	return predicate(s, func(v float64) bool { return v <= x })
}

// Below flags cells < x
func Below(s series.Series, x float64) []frame.Flag {
	return predicate(s, func(v float64) bool { return v < x })
}

// Between flags cells within [lo, hi]
func Between(s series.Series, lo, hi float64) []frame.Flag {
	return predicate(s, func(v float64) bool { return v >= lo && v <= hi })
}
