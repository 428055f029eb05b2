package quality

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/strawberry/internal/contracts"
)

// Issue codes recorded on a snapshot
const (
	IssueTooFewRows    = "too_few_rows"
	IssueDuplicateDate = "duplicate_quarter"
	IssueUnsortedDates = "unsorted_quarters"
	IssueBadDate       = "bad_date"
	IssueMissingColumn = "missing_column"
	IssueLowCoverage   = "low_coverage"
	dateColumn         = "qtr_end_date"
	dateLayout         = "2006-01-02"
)

// QualityGate validates a ticker's fact table before it is persisted
type QualityGate struct {
	config Config
}

// Config holds quality gate thresholds
type Config struct {
	MinRows         int      `yaml:"min_rows" json:"min_rows"`
	MinCoverage     float64  `yaml:"min_coverage" json:"min_coverage"` // per required column
	RequiredColumns []string `yaml:"required_columns" json:"required_columns"`
}

// DefaultConfig returns the built-in thresholds
func DefaultConfig() Config {
	return Config{
		MinRows:         4,
		MinCoverage:     0.5,
		RequiredColumns: []string{"share_price", "eps", "free_cashflow", "shares_outstanding"},
	}
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(config Config) *QualityGate {
	return &QualityGate{config: config}
}

// Check validates a fact table
// ⭐ SSOT: fact table quality rules
func (g *QualityGate) Check(ctx context.Context, facts *contracts.RawTable) (*contracts.QualitySnapshot, error) {
	if facts == nil {
		return nil, fmt.Errorf("check quality: nil table")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snapshot := &contracts.QualitySnapshot{
		Symbol:   facts.Symbol,
		Rows:     facts.Len(),
		Coverage: g.checkCoverage(facts),
	}

	// 1. row count
	if snapshot.Rows < g.config.MinRows {
		snapshot.Issues = append(snapshot.Issues,
			fmt.Sprintf("%s: %d < %d", IssueTooFewRows, snapshot.Rows, g.config.MinRows))
	}

	// 2. quarter axis
	snapshot.Issues = append(snapshot.Issues, checkAxis(facts)...)

	// 3. required columns
	for _, col := range g.config.RequiredColumns {
		cov, ok := snapshot.Coverage[col]
		switch {
		case !ok:
			snapshot.Issues = append(snapshot.Issues, fmt.Sprintf("%s: %s", IssueMissingColumn, col))
		case cov < g.config.MinCoverage:
			snapshot.Issues = append(snapshot.Issues,
				fmt.Sprintf("%s: %s %.2f < %.2f", IssueLowCoverage, col, cov, g.config.MinCoverage))
		}
	}

	// 4. score
	snapshot.QualityScore = g.calculateScore(snapshot.Coverage)
	snapshot.Passed = len(snapshot.Issues) == 0

	return snapshot, nil
}

// checkCoverage returns the non-null share of every column
func (g *QualityGate) checkCoverage(facts *contracts.RawTable) map[string]float64 {
	coverage := make(map[string]float64)
	if facts.Len() == 0 {
		return coverage
	}

	counts := make(map[string]int)
	for _, col := range facts.Columns() {
		counts[col] = 0
	}
	for _, r := range facts.Records {
		for k, v := range r {
			if v != nil {
				counts[k]++
			}
		}
	}
	for col, n := range counts {
		coverage[col] = float64(n) / float64(facts.Len())
	}
	return coverage
}

// checkAxis verifies that quarter-end dates parse, are unique and ascend
func checkAxis(facts *contracts.RawTable) []string {
	var issues []string
	seen := make(map[string]bool, facts.Len())
	var prev time.Time

	for i, r := range facts.Records {
		raw, _ := r[dateColumn].(string)
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			issues = append(issues, fmt.Sprintf("%s: row %d %q", IssueBadDate, i, raw))
			continue
		}
		if seen[raw] {
			issues = append(issues, fmt.Sprintf("%s: %s", IssueDuplicateDate, raw))
		}
		if i > 0 && d.Before(prev) {
			issues = append(issues, fmt.Sprintf("%s: %s", IssueUnsortedDates, raw))
		}
		seen[raw] = true
		prev = d
	}
	return issues
}

// calculateScore averages coverage over the required columns, or over
// every column when none are configured
func (g *QualityGate) calculateScore(coverage map[string]float64) float64 {
	cols := g.config.RequiredColumns
	if len(cols) == 0 {
		for col := range coverage {
			cols = append(cols, col)
		}
		sort.Strings(cols)
	}
	if len(cols) == 0 {
		return 0
	}

	score := 0.0
	for _, col := range cols {
		score += coverage[col]
	}
	return score / float64(len(cols))
}
