package transform

import (
	"strings"

	"github.com/wonny/strawberry/internal/contracts"
	"github.com/wonny/strawberry/internal/frame"
	"github.com/wonny/strawberry/internal/schema"
	"github.com/wonny/strawberry/internal/series"
)

// Dividends attributes each payment to the quarter-end preceding its
// ex-dividend date and sums payments per quarter.
type Dividends struct{}

func (Dividends) Source() string { return contracts.TableDividends }

func (Dividends) Outputs(schema.TableSpec) Columns {
	return Columns{Numbers: []string{ColDividend}}
}

func (Dividends) Transform(m *schema.Mapped) (*frame.Fragment, error) {
	groups := groupBy(datedRows(m), frame.PriorQuarterEnd)
	amounts := m.Number(ColDividend)

	t := frame.New(m.Symbol, groupDates(groups))
	out := series.New(len(groups))
	for i, g := range groups {
		vals := make([]float64, len(g.rows))
		for j, r := range g.rows {
			vals[j] = amounts[r.idx]
		}
		out[i] = sumNonNull(vals)
	}
	t.SetNumber(ColDividend, out)

	return fragment(contracts.TableDividends, t)
}

// MonthlyPrices resamples monthly observations to calendar quarter-ends
// by taking the last available observation of each quarter.
type MonthlyPrices struct{}

func (MonthlyPrices) Source() string { return contracts.TableMonthlyPrices }

func (MonthlyPrices) Outputs(spec schema.TableSpec) Columns {
	return Columns{Numbers: specColumns(spec).Numbers}
}

func (MonthlyPrices) Transform(m *schema.Mapped) (*frame.Fragment, error) {
	groups := groupBy(datedRows(m), frame.QuarterEnd)
	t := frame.New(m.Symbol, groupDates(groups))

	for _, c := range valueColumns(m) {
		if c.Type == schema.TypeText {
			continue
		}
		src := m.Number(c.OutName)
		out := series.New(len(groups))
		for i, g := range groups {
			for j := len(g.rows) - 1; j >= 0; j-- {
				if v := src[g.rows[j].idx]; !series.IsNull(v) {
					out[i] = v
					break
				}
			}
		}
		t.SetNumber(c.OutName, out)
	}

	return fragment(contracts.TableMonthlyPrices, t)
}

// InsiderTransactions nets signed insider share counts per calendar
// quarter: acquisitions add, disposals subtract.
type InsiderTransactions struct{}

func (InsiderTransactions) Source() string { return contracts.TableInsiderTransactions }

func (InsiderTransactions) Outputs(schema.TableSpec) Columns {
	return Columns{Numbers: []string{ColInsiderNetShares}}
}

func (InsiderTransactions) Transform(m *schema.Mapped) (*frame.Fragment, error) {
	groups := groupBy(datedRows(m), frame.QuarterEnd)
	shares := m.Number(ColInsiderShares)
	direction := m.Text(ColInsiderDirection)

	t := frame.New(m.Symbol, groupDates(groups))
	out := series.New(len(groups))
	for i, g := range groups {
		vals := make([]float64, len(g.rows))
		for j, r := range g.rows {
			vals[j] = SignedShares(shares[r.idx], direction[r.idx])
		}
		out[i] = sumNonNull(vals)
	}
	t.SetNumber(ColInsiderNetShares, out)

	return fragment(contracts.TableInsiderTransactions, t)
}

// SignedShares returns shares negated for a disposal ("D" or "disposal")
func SignedShares(shares float64, direction string) float64 {
	if series.IsNull(shares) {
		return shares
	}
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "d", "disposal":
		return -shares
	default:
		return shares
	}
}
