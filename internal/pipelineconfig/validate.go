package pipelineconfig

import (
	"errors"
	"fmt"

	"github.com/wonny/strawberry/internal/scoring"
	"github.com/wonny/strawberry/internal/transform"
)

// ValidationError is a configuration error found before any ticker runs
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Acquisition ===
	if len(cfg.Acquisition.Tables) == 0 {
		return ValidationError{"acquisition.tables", "required"}
	}
	seen := make(map[string]bool)
	for i, t := range cfg.Acquisition.Tables {
		if t.Name == "" {
			return ValidationError{fmt.Sprintf("acquisition.tables[%d].name", i), "required"}
		}
		if seen[t.Name] {
			return ValidationError{fmt.Sprintf("acquisition.tables[%d].name", i), "duplicate " + t.Name}
		}
		seen[t.Name] = true
	}

	// === Tables ===
	specs := make(map[string]bool)
	for i, t := range cfg.Tables {
		if err := t.Validate(); err != nil {
			return ValidationError{fmt.Sprintf("tables[%d]", i), err.Error()}
		}
		if _, ok := transform.For(t.Name); !ok {
			return ValidationError{fmt.Sprintf("tables[%d].name", i), "no transformer for " + t.Name}
		}
		if _, ok := t.Column("qtr_end_date"); !ok {
			return ValidationError{fmt.Sprintf("tables[%d]", i), "needs a qtr_end_date column"}
		}
		if specs[t.Name] {
			return ValidationError{fmt.Sprintf("tables[%d].name", i), "duplicate " + t.Name}
		}
		specs[t.Name] = true
	}

	// === Consolidation ===
	if len(cfg.Consolidation.Order) == 0 {
		return ValidationError{"consolidation.order", "required"}
	}
	for i, name := range cfg.Consolidation.Order {
		if !specs[name] {
			return ValidationError{fmt.Sprintf("consolidation.order[%d]", i), "no table spec for " + name}
		}
	}

	// === Derive ===
	if cfg.Derive.TaxRate < 0 || cfg.Derive.TaxRate >= 1 {
		return ValidationError{"derive.tax_rate", "must be in range [0, 1)"}
	}

	// === Valuation ===
	if err := cfg.Valuation.Validate(); err != nil {
		return ValidationError{"valuation", err.Error()}
	}

	// === Scores ===
	if _, err := scoring.NewDividendSafety(cfg.DividendSafety.Weights, cfg.DividendSafety.Ranges); err != nil {
		return ValidationError{"dividend_safety", err.Error()}
	}
	if _, err := scoring.NewAlphaPulse(cfg.AlphaPulse.Weights, cfg.AlphaPulse.Ranges); err != nil {
		return ValidationError{"alpha_pulse", err.Error()}
	}

	// === Rules ===
	if cfg.Rules.CashConversionLow > cfg.Rules.CashConversionHigh {
		return ValidationError{"rules", "cash_conversion_low must be <= cash_conversion_high"}
	}

	// === Quality ===
	if err := validatePctRange(cfg.Quality.MinCoverage, "quality.min_coverage"); err != nil {
		return err
	}
	if cfg.Quality.MinRows < 0 {
		return ValidationError{"quality.min_rows", "must be >= 0"}
	}

	return nil
}

// IsValidationError reports whether err carries a ValidationError
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// validatePctRange checks that a share lies in [0, 1]
func validatePctRange(pct float64, field string) error {
	if pct < 0 || pct > 1 {
		return ValidationError{field, "must be in range [0, 1]"}
	}
	return nil
}
