package contracts

import (
	"sort"
	"time"
)

// Raw table names served by the acquisition collaborator
const (
	TableBalanceSheet        = "BALANCE_SHEET"
	TableCashFlow            = "CASH_FLOW"
	TableIncomeStatement     = "INCOME_STATEMENT"
	TableEarnings            = "EARNINGS"
	TableDividends           = "DIVIDENDS"
	TableMonthlyPrices       = "TIME_SERIES_MONTHLY_ADJUSTED"
	TableInsiderTransactions = "INSIDER_TRANSACTIONS"
	TableOverview            = "OVERVIEW"
)

// Tables written by the pipeline
const (
	TableFacts      = "FACT_QTR_FINANCIALS"
	TableExceptions = "EXCEPTIONS"
)

// AcquisitionTables is the default acquisition order
// ⭐ SSOT: raw table list
var AcquisitionTables = []string{
	TableBalanceSheet,
	TableCashFlow,
	TableIncomeStatement,
	TableEarnings,
	TableDividends,
	TableMonthlyPrices,
	TableInsiderTransactions,
	TableOverview,
}

// Record is one source-shaped row. Values are whatever the upstream
// returned after JSON decoding (string, float64, bool, nil, nested maps).
type Record = map[string]interface{}

// RawTable is a table of records for one (table name, symbol) pair
type RawTable struct {
	Name      string    `json:"name"`
	Symbol    string    `json:"symbol"`
	FetchedAt time.Time `json:"fetched_at"`
	Records   []Record  `json:"records"`

	// ConfigHash is set on fact tables: the pipeline config they were computed with
	ConfigHash string `json:"config_hash,omitempty"`
}

// Len returns the number of records
func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// HasColumn reports whether any record carries the column
func (t *RawTable) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, r := range t.Records {
		if _, ok := r[name]; ok {
			return true
		}
	}
	return false
}

// Columns returns the sorted union of record keys
func (t *RawTable) Columns() []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, r := range t.Records {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// QualitySnapshot summarizes the output quality of one ticker's fact table
// ⭐ SSOT: quality gate result handed from the pipeline to reports and the API
type QualitySnapshot struct {
	Symbol       string             `json:"symbol"`
	Rows         int                `json:"rows"`
	Coverage     map[string]float64 `json:"coverage"`      // non-null share per column
	QualityScore float64            `json:"quality_score"` // 0.0 ~ 1.0
	Issues       []string           `json:"issues,omitempty"`
	Passed       bool               `json:"passed"`
}

// IsValid checks if the snapshot meets minimum requirements
func (q *QualitySnapshot) IsValid() bool {
	return q.Passed && q.Rows > 0
}

// CoverageRate returns the average coverage across columns
func (q *QualitySnapshot) CoverageRate() float64 {
	if len(q.Coverage) == 0 {
		return 0.0
	}

	total := 0.0
	for _, rate := range q.Coverage {
		total += rate
	}

	return total / float64(len(q.Coverage))
}
