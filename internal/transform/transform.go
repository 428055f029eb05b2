// Package transform reshapes mapped raw tables into quarterly fragments,
// one transformer per source table.
package transform

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/strawberry/internal/contracts"
	"github.com/wonny/strawberry/internal/frame"
	"github.com/wonny/strawberry/internal/schema"
	"github.com/wonny/strawberry/internal/series"
)

// Canonical column names the transformers depend on
const (
	ColOperatingCashflow   = "operating_cashflow"
	ColCapitalExpenditures = "capital_expenditures"
	ColFreeCashflow        = "free_cashflow"
	ColFreeCashflowTTM     = "free_cashflow_TTM"
	ColDividend            = "dividend"
	ColSharePrice          = "share_price"
	ColInsiderShares       = "insider_shares"
	ColInsiderDirection    = "acquisition_or_disposal"
	ColInsiderNetShares    = "insider_net_shares"
	ColYear                = "year"
	ColQuarter             = "quarter"
	ColYearQuarter         = "year_quarter"
)

// TTMWindow is the trailing-twelve-month window in quarters
const TTMWindow = 4

// Transformer turns one mapped source table into a quarterly fragment
type Transformer interface {
	Source() string
	Transform(m *schema.Mapped) (*frame.Fragment, error)
	Outputs(spec schema.TableSpec) Columns
}

// Columns lists the columns a transformer emits, by kind
type Columns struct {
	Numbers []string
	Texts   []string
}

// OutputsOf returns the columns the transformer registered for spec emits
func OutputsOf(spec schema.TableSpec) Columns {
	t, ok := For(spec.Name)
	if !ok {
		return Columns{}
	}
	return t.Outputs(spec)
}

// specColumns splits the non-date spec columns by kind
func specColumns(spec schema.TableSpec) Columns {
	var c Columns
	for _, col := range spec.Columns {
		switch {
		case col.OutName == frame.DateColumn || col.Type == schema.TypeDate:
		case col.Type == schema.TypeText:
			c.Texts = append(c.Texts, col.OutName)
		default:
			c.Numbers = append(c.Numbers, col.OutName)
		}
	}
	return c
}

// ⭐ SSOT: source table → transformer
var registry = map[string]Transformer{
	contracts.TableBalanceSheet:        BalanceSheet{},
	contracts.TableCashFlow:            CashFlow{},
	contracts.TableIncomeStatement:     IncomeStatement{},
	contracts.TableEarnings:            Earnings{},
	contracts.TableDividends:           Dividends{},
	contracts.TableMonthlyPrices:       MonthlyPrices{},
	contracts.TableInsiderTransactions: InsiderTransactions{},
}

// For returns the transformer registered for a source table
func For(table string) (Transformer, bool) {
	t, ok := registry[table]
	return t, ok
}

// Apply maps raw through spec and runs the registered transformer
func Apply(raw *contracts.RawTable, spec schema.TableSpec) (*frame.Fragment, error) {
	t, ok := For(spec.Name)
	if !ok {
		return nil, fmt.Errorf("no transformer for table %s", spec.Name)
	}

	m, err := schema.Map(raw, spec)
	if err != nil {
		return nil, err
	}

	return t.Transform(m)
}

// datedRow points at a mapped row with a parsed date
type datedRow struct {
	date time.Time
	idx  int
}

// datedRows returns the rows with a non-null date, ascending by date
func datedRows(m *schema.Mapped) []datedRow {
	dates := m.Dates(frame.DateColumn)
	rows := make([]datedRow, 0, len(dates))
	for i, d := range dates {
		if d == nil {
			continue
		}
		rows = append(rows, datedRow{date: *d, idx: i})
	}
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].date.Before(rows[b].date) })
	return rows
}

// valueColumns returns the non-date columns of the spec in declared order
func valueColumns(m *schema.Mapped) []schema.ColumnSpec {
	cols := make([]schema.ColumnSpec, 0, len(m.Spec.Columns))
	for _, c := range m.Spec.Columns {
		if c.OutName == frame.DateColumn || c.Type == schema.TypeDate {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

// passThrough keeps the latest-dated row of every quarter and copies all
// value columns. Used by sources already reported per quarter-end.
func passThrough(m *schema.Mapped) *frame.Table {
	rows := datedRows(m)

	// keep the last row of each quarter
	kept := make([]datedRow, 0, len(rows))
	for i, r := range rows {
		if i+1 < len(rows) && frame.KeyOf(rows[i+1].date) == frame.KeyOf(r.date) {
			continue
		}
		kept = append(kept, r)
	}

	dates := make([]time.Time, len(kept))
	for i, r := range kept {
		dates[i] = r.date
	}
	t := frame.New(m.Symbol, dates)

	for _, c := range valueColumns(m) {
		switch c.Type {
		case schema.TypeText:
			src := m.Text(c.OutName)
			v := make([]string, len(kept))
			for i, r := range kept {
				v[i] = src[r.idx]
			}
			t.SetText(c.OutName, v)
		default:
			src := m.Number(c.OutName)
			s := series.New(len(kept))
			for i, r := range kept {
				s[i] = src[r.idx]
			}
			t.SetNumber(c.OutName, s)
		}
	}
	return t
}

// quarterGroup collects mapped rows that share a target quarter-end
type quarterGroup struct {
	end  time.Time
	rows []datedRow
}

// groupBy buckets dated rows by the quarter-end returned from key,
// ascending by quarter-end; rows inside a group stay in date order.
func groupBy(rows []datedRow, key func(time.Time) time.Time) []quarterGroup {
	index := make(map[time.Time]int)
	var groups []quarterGroup
	for _, r := range rows {
		end := key(r.date)
		i, ok := index[end]
		if !ok {
			i = len(groups)
			index[end] = i
			groups = append(groups, quarterGroup{end: end})
		}
		groups[i].rows = append(groups[i].rows, r)
	}
	sort.SliceStable(groups, func(a, b int) bool { return groups[a].end.Before(groups[b].end) })
	return groups
}

func groupDates(groups []quarterGroup) []time.Time {
	dates := make([]time.Time, len(groups))
	for i, g := range groups {
		dates[i] = g.end
	}
	return dates
}

// sumNonNull adds the non-null values; all-null yields null
func sumNonNull(values []float64) float64 {
	total, seen := 0.0, false
	for _, v := range values {
		if series.IsNull(v) {
			continue
		}
		total += v
		seen = true
	}
	if !seen {
		return series.Null()
	}
	return total
}

func fragment(source string, t *frame.Table) (*frame.Fragment, error) {
	return frame.NewFragment(source, t)
}
