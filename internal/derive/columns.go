package derive

// Input columns read from the consolidated table
const (
	ColOperatingCashflow   = "operating_cashflow"
	ColCapitalExpenditures = "capital_expenditures"
	ColSharesOutstanding   = "shares_outstanding"
	ColDividend            = "dividend"
	ColSharePrice          = "share_price"
	ColShortTermDebt       = "short_term_debt"
	ColLongTermDebt        = "long_term_debt"
	ColEPS                 = "eps"
	ColEBITDA              = "ebitda"
	ColInsiderNetShares    = "insider_net_shares"
	ColIncomeBeforeTax     = "income_before_tax"
)

// Derived columns, in computation order
const (
	ColFreeCashflow         = "free_cashflow"
	ColFreeCashflowTTM      = "free_cashflow_TTM"
	ColFreeCashflowPSTTM    = "free_cashflow_ps_TTM"
	ColQtrGrowth            = "qtr_growth"
	ColDividendGrowthRate5y = "dividend_growth_rate_5y"
	ColDividendTTM          = "dividend_ttm"
	ColDividendYield        = "dividend_yield"
	ColDividendChowderYield = "dividend_chowder_yield"
	ColYieldMean5y          = "yield_historical_mean_5y"
	ColYieldStd5y           = "yield_historical_std_5y"
	ColYieldZScore          = "yield_zscore"
	ColAction               = "action_high_relative_yield"
	ColFairValueEquity      = "fair_value_equity"
	ColTotalDebt            = "total_debt"
	ColDebtToEquityFV       = "debt_to_equity_fv"
	ColPERatio              = "pe_ratio"
	ColEPSYoY               = "eps_yoy"
	ColEPSCAGR              = "eps_cagr"
	ColEPSSmoothYoY         = "eps_smooth_yoy"
	ColProjectedEPSGrowth   = "projected_eps_growth_rate"
	ColPEGRatio             = "peg_ratio"
	ColEarningsYield        = "earnings_yield"
	ColEBITDAToFCF          = "ebitda_to_fcflow"
	ColCumulativeInsider    = "cumulative_insider_shares"
	ColInsiderOwnershipPct  = "insider_ownership_pct"
	ColNetIncomeAdj         = "net_income_adj"
)

// Action labels of the relative-yield classification
const (
	ActionStrongBuy  = "strong buy"
	ActionBuy        = "buy"
	ActionHold       = "hold"
	ActionSell       = "sell"
	ActionStrongSell = "strong sell"
)

// Windows in quarters
const (
	TTMWindow       = 4
	GrowthLag       = 20 // five years of quarters
	YieldHistory    = 20
	EPSYoYLag       = 4
	EPSCAGRLag      = 20
	EPSSmoothWindow = 20
	QuartersPerYear = 4
	EPSCAGRYears    = 5
)
