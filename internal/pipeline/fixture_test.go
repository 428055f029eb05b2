package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wonny/strawberry/internal/contracts"
	"github.com/wonny/strawberry/internal/frame"
	"github.com/wonny/strawberry/internal/pipelineconfig"
	"github.com/wonny/strawberry/internal/schema"
)

var (
	firstQuarter = frame.KeyOf(time.Date(2018, 3, 31, 0, 0, 0, 0, time.UTC))
	fetchedAt    = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
)

func quarterEnd(i int) time.Time {
	return (firstQuarter + frame.QuarterKey(i)).End()
}

func day(t time.Time) string { return t.Format("2006-01-02") }

// statementValue returns a plausible upstream cell for a canonical column in quarter i
func statementValue(out string, i int) string {
	switch out {
	case "reported_currency":
		return "USD"
	case "shares_outstanding":
		return "1000"
	case "operating_cashflow":
		return fmt.Sprint(500 + 5*i)
	case "capital_expenditures":
		return "100"
	case "interest_expense":
		return "20"
	case "eps":
		return fmt.Sprintf("%.2f", 1.0+0.02*float64(i))
	case "estimated_eps":
		return "1.00"
	case "eps_surprise_pct":
		return "None"
	default:
		return fmt.Sprint(1000 + 10*i)
	}
}

// statement builds quarterly records for a statement-like spec, newest
// first as the upstream returns them
func statement(spec schema.TableSpec, n int) []contracts.Record {
	records := make([]contracts.Record, 0, n)
	for i := n - 1; i >= 0; i-- {
		rec := contracts.Record{}
		for _, c := range spec.Columns {
			if c.OutName == frame.DateColumn {
				rec[c.InName] = day(quarterEnd(i))
				continue
			}
			rec[c.InName] = statementValue(c.OutName, i)
		}
		records = append(records, rec)
	}
	return records
}

func dividends(n int) []contracts.Record {
	records := make([]contracts.Record, 0, n)
	for i := n - 1; i >= 0; i-- {
		ex := quarterEnd(i).AddDate(0, 0, -45)
		records = append(records, contracts.Record{
			"ex_dividend_date": day(ex),
			"amount":           fmt.Sprintf("%.2f", 0.40+0.01*float64(i)),
		})
	}
	return records
}

func monthlyPrices(n int) []contracts.Record {
	var records []contracts.Record
	for i := 0; i < n; i++ {
		end := quarterEnd(i)
		for m := 2; m >= 0; m-- {
			monthEnd := time.Date(end.Year(), end.Month()-time.Month(m)+1, 0, 0, 0, 0, 0, time.UTC)
			records = append(records, contracts.Record{
				"date":              day(monthEnd),
				"5. adjusted close": fmt.Sprintf("%.2f", 40+0.5*float64(i)-0.1*float64(m)),
				"6. volume":         "250000",
			})
		}
	}
	return records
}

func insider(n int) []contracts.Record {
	records := make([]contracts.Record, 0, n)
	for i := 0; i < n; i++ {
		direction := "A"
		if i%3 == 2 {
			direction = "D"
		}
		records = append(records, contracts.Record{
			"transaction_date":        day(quarterEnd(i).AddDate(0, 0, -10)),
			"shares":                  "10",
			"acquisition_or_disposal": direction,
		})
	}
	return records
}

// seed writes n quarters of every configured source for symbol, except
// the tables listed in skip
func seed(t *testing.T, store contracts.TableStore, symbol string, n int, skip ...string) {
	t.Helper()
	cfg := pipelineconfig.Default()

	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}

	for _, spec := range cfg.Tables {
		if skipped[spec.Name] {
			continue
		}
		var records []contracts.Record
		switch spec.Name {
		case contracts.TableDividends:
			records = dividends(n)
		case contracts.TableMonthlyPrices:
			records = monthlyPrices(n)
		case contracts.TableInsiderTransactions:
			records = insider(n)
		default:
			records = statement(spec, n)
		}
		require.NoError(t, store.Write(context.Background(), &contracts.RawTable{
			Name:      spec.Name,
			Symbol:    symbol,
			FetchedAt: fetchedAt,
			Records:   records,
		}))
	}
}
