package transform

import (
	"github.com/wonny/strawberry/internal/contracts"
	"github.com/wonny/strawberry/internal/frame"
	"github.com/wonny/strawberry/internal/schema"
	"github.com/wonny/strawberry/internal/series"
)

// BalanceSheet passes quarterly balance sheet lines through and labels
// each row with year, quarter and year_quarter (e.g. 24QE1).
type BalanceSheet struct{}

func (BalanceSheet) Source() string { return contracts.TableBalanceSheet }

func (BalanceSheet) Outputs(spec schema.TableSpec) Columns {
	c := specColumns(spec)
	c.Numbers = append(c.Numbers, ColYear, ColQuarter)
	c.Texts = append(c.Texts, ColYearQuarter)
	return c
}

func (BalanceSheet) Transform(m *schema.Mapped) (*frame.Fragment, error) {
	t := passThrough(m)

	years := series.New(t.Len())
	quarters := series.New(t.Len())
	labels := make([]string, t.Len())
	for i, d := range t.Dates {
		k := frame.KeyOf(d)
		years[i] = float64(k.Year())
		quarters[i] = float64(k.Quarter())
		labels[i] = frame.YearQuarterLabel(d)
	}
	t.SetNumber(ColYear, years)
	t.SetNumber(ColQuarter, quarters)
	t.SetText(ColYearQuarter, labels)

	return fragment(contracts.TableBalanceSheet, t)
}

// CashFlow passes quarterly cash flow lines through and adds
// free_cashflow and its trailing-four-quarter sum.
type CashFlow struct{}

func (CashFlow) Source() string { return contracts.TableCashFlow }

func (CashFlow) Outputs(spec schema.TableSpec) Columns {
	c := specColumns(spec)
	c.Numbers = append(c.Numbers, ColFreeCashflow, ColFreeCashflowTTM)
	return c
}

func (CashFlow) Transform(m *schema.Mapped) (*frame.Fragment, error) {
	t := passThrough(m)

	fcf := t.Number(ColOperatingCashflow).Sub(t.Number(ColCapitalExpenditures))
	t.SetNumber(ColFreeCashflow, fcf)
	t.SetNumber(ColFreeCashflowTTM, fcf.RollingSum(TTMWindow, 0))

	return fragment(contracts.TableCashFlow, t)
}

// IncomeStatement passes quarterly income statement lines through
type IncomeStatement struct{}

func (IncomeStatement) Source() string { return contracts.TableIncomeStatement }

func (IncomeStatement) Outputs(spec schema.TableSpec) Columns { return specColumns(spec) }

func (IncomeStatement) Transform(m *schema.Mapped) (*frame.Fragment, error) {
	return fragment(contracts.TableIncomeStatement, passThrough(m))
}

// Earnings passes reported and estimated EPS through
type Earnings struct{}

func (Earnings) Source() string { return contracts.TableEarnings }

func (Earnings) Outputs(spec schema.TableSpec) Columns { return specColumns(spec) }

func (Earnings) Transform(m *schema.Mapped) (*frame.Fragment, error) {
	return fragment(contracts.TableEarnings, passThrough(m))
}
