package pipelineconfig

import (
	"github.com/wonny/strawberry/internal/contracts"
	"github.com/wonny/strawberry/internal/derive"
	"github.com/wonny/strawberry/internal/quality"
	"github.com/wonny/strawberry/internal/rules"
	"github.com/wonny/strawberry/internal/schema"
	"github.com/wonny/strawberry/internal/scoring"
	"github.com/wonny/strawberry/internal/valuation"
)

// Config is the complete parameter set of a pipeline run
type Config struct {
	Meta           Meta               `yaml:"meta" json:"meta"`
	Acquisition    Acquisition        `yaml:"acquisition" json:"acquisition"`
	Tables         []schema.TableSpec `yaml:"tables" json:"tables"`
	Consolidation  Consolidation      `yaml:"consolidation" json:"consolidation"`
	Derive         derive.Params      `yaml:"derive" json:"derive"`
	Valuation      valuation.Params   `yaml:"valuation" json:"valuation"`
	DividendSafety Score              `yaml:"dividend_safety" json:"dividend_safety"`
	AlphaPulse     Score              `yaml:"alpha_pulse" json:"alpha_pulse"`
	Rules          rules.Thresholds   `yaml:"rules" json:"rules"`
	Quality        quality.Config     `yaml:"quality" json:"quality"`
}

// Meta identifies the parameter set
type Meta struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
}

// Acquisition lists the upstream functions to fetch per ticker
type Acquisition struct {
	Tables []AcquisitionTable `yaml:"tables" json:"tables"`
}

// AcquisitionTable names an upstream function and the payload key that
// holds its rows. An empty attribute means the payload is one record.
type AcquisitionTable struct {
	Name      string `yaml:"name" json:"name"`
	Attribute string `yaml:"attribute" json:"attribute"`
}

// Consolidation fixes the merge order; the first table is the base
type Consolidation struct {
	Order []string `yaml:"order" json:"order"`
}

// Score holds the weights and optional range overrides of a composite
type Score struct {
	Weights scoring.Weights          `yaml:"weights" json:"weights"`
	Ranges  map[string]scoring.Range `yaml:"ranges,omitempty" json:"ranges,omitempty"`
}

// Table returns the spec of a source table
func (c *Config) Table(name string) (schema.TableSpec, bool) {
	for _, t := range c.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return schema.TableSpec{}, false
}

// AcquisitionNames returns the configured upstream function names in order
func (c *Config) AcquisitionNames() []string {
	out := make([]string, len(c.Acquisition.Tables))
	for i, t := range c.Acquisition.Tables {
		out[i] = t.Name
	}
	return out
}

// Attribute returns the payload key of an upstream function
func (c *Config) Attribute(name string) (string, bool) {
	for _, t := range c.Acquisition.Tables {
		if t.Name == name {
			return t.Attribute, true
		}
	}
	return "", false
}

func col(in, out string, typ schema.ColumnType) schema.ColumnSpec {
	return schema.ColumnSpec{InName: in, OutName: out, Type: typ}
}

func num(in, out string) schema.ColumnSpec { return col(in, out, schema.TypeNumber) }

func date(in string) schema.ColumnSpec { return col(in, "qtr_end_date", schema.TypeDate) }

// Default returns the built-in configuration
// ⭐ SSOT: default pipeline parameters
func Default() *Config {
	return &Config{
		Meta: Meta{Name: "dividend_quality", Version: "1"},
		Acquisition: Acquisition{Tables: []AcquisitionTable{
			{Name: contracts.TableBalanceSheet, Attribute: "quarterlyReports"},
			{Name: contracts.TableCashFlow, Attribute: "quarterlyReports"},
			{Name: contracts.TableIncomeStatement, Attribute: "quarterlyReports"},
			{Name: contracts.TableEarnings, Attribute: "quarterlyEarnings"},
			{Name: contracts.TableDividends, Attribute: "data"},
			{Name: contracts.TableMonthlyPrices, Attribute: "Monthly Adjusted Time Series"},
			{Name: contracts.TableInsiderTransactions, Attribute: "data"},
			{Name: contracts.TableOverview},
		}},
		Tables: []schema.TableSpec{
			{Name: contracts.TableBalanceSheet, Columns: []schema.ColumnSpec{
				date("fiscalDateEnding"),
				col("reportedCurrency", "reported_currency", schema.TypeText),
				num("totalAssets", "total_assets"),
				num("totalCurrentAssets", "total_current_assets"),
				num("cashAndCashEquivalentsAtCarryingValue", "cash_and_cash_equivalents"),
				num("currentNetReceivables", "current_net_receivables"),
				num("inventory", "inventory"),
				num("totalLiabilities", "total_liabilities"),
				num("totalCurrentLiabilities", "current_liabilities"),
				num("shortTermDebt", "short_term_debt"),
				num("longTermDebt", "long_term_debt"),
				num("totalShareholderEquity", "total_shareholder_equity"),
				num("retainedEarnings", "retained_earnings"),
				col("commonStockSharesOutstanding", "shares_outstanding", schema.TypeInteger),
			}},
			{Name: contracts.TableCashFlow, Columns: []schema.ColumnSpec{
				date("fiscalDateEnding"),
				num("operatingCashflow", "operating_cashflow"),
				num("capitalExpenditures", "capital_expenditures"),
				num("dividendPayout", "dividend_payout"),
				num("paymentsForRepurchaseOfCommonStock", "share_buyback"),
			}},
			{Name: contracts.TableIncomeStatement, Columns: []schema.ColumnSpec{
				date("fiscalDateEnding"),
				num("totalRevenue", "revenue"),
				num("grossProfit", "gross_profit"),
				num("operatingIncome", "operating_income"),
				num("interestExpense", "interest_expense"),
				num("incomeBeforeTax", "income_before_tax"),
				num("incomeTaxExpense", "income_tax_expense"),
				num("ebit", "ebit"),
				num("ebitda", "ebitda"),
				num("netIncome", "net_income"),
			}},
			{Name: contracts.TableEarnings, Columns: []schema.ColumnSpec{
				date("fiscalDateEnding"),
				num("reportedEPS", "eps"),
				num("estimatedEPS", "estimated_eps"),
				num("surprisePercentage", "eps_surprise_pct"),
			}},
			{Name: contracts.TableDividends, Columns: []schema.ColumnSpec{
				date("ex_dividend_date"),
				num("amount", "dividend"),
			}},
			{Name: contracts.TableMonthlyPrices, Columns: []schema.ColumnSpec{
				date("date"),
				num("5. adjusted close", "share_price"),
				col("6. volume", "volume", schema.TypeInteger),
			}},
			{Name: contracts.TableInsiderTransactions, Columns: []schema.ColumnSpec{
				date("transaction_date"),
				num("shares", "insider_shares"),
				col("acquisition_or_disposal", "acquisition_or_disposal", schema.TypeText),
			}},
		},
		Consolidation: Consolidation{Order: []string{
			contracts.TableBalanceSheet,
			contracts.TableCashFlow,
			contracts.TableIncomeStatement,
			contracts.TableEarnings,
			contracts.TableDividends,
			contracts.TableMonthlyPrices,
			contracts.TableInsiderTransactions,
		}},
		Derive:         derive.DefaultParams(),
		Valuation:      valuation.DefaultParams(),
		DividendSafety: Score{Weights: scoring.DefaultDividendSafetyWeights()},
		AlphaPulse:     Score{Weights: scoring.DefaultAlphaPulseWeights()},
		Rules:          rules.DefaultThresholds(),
		Quality:        quality.DefaultConfig(),
	}
}
