package pipeline

import (
	"fmt"

	"github.com/wonny/strawberry/internal/consolidate"
	"github.com/wonny/strawberry/internal/derive"
	"github.com/wonny/strawberry/internal/pipelineconfig"
	"github.com/wonny/strawberry/internal/quality"
	"github.com/wonny/strawberry/internal/rules"
	"github.com/wonny/strawberry/internal/schema"
	"github.com/wonny/strawberry/internal/scoring"
	"github.com/wonny/strawberry/internal/transform"
	"github.com/wonny/strawberry/internal/valuation"
)

// engines holds the stage calculators built once per Runner
type engines struct {
	specs        []schema.TableSpec // in consolidation order
	consolidator *consolidate.Consolidator
	derive       *derive.Calculator
	valuation    *valuation.Engine
	dividend     *scoring.DividendSafety
	alpha        *scoring.AlphaPulse
	rules        *rules.Engine
	gate         *quality.QualityGate
	numbers      []string // every column a configured source can emit
	texts        []string
}

// buildEngines validates cfg and constructs every stage. Configuration
// errors surface here, before any ticker is read.
func buildEngines(cfg *pipelineconfig.Config) (*engines, error) {
	if err := pipelineconfig.Validate(cfg); err != nil {
		return nil, err
	}

	cons, err := consolidate.New(cfg.Consolidation.Order)
	if err != nil {
		return nil, fmt.Errorf("consolidator: %w", err)
	}

	dividend, err := scoring.NewDividendSafety(cfg.DividendSafety.Weights, cfg.DividendSafety.Ranges)
	if err != nil {
		return nil, fmt.Errorf("dividend safety: %w", err)
	}
	alpha, err := scoring.NewAlphaPulse(cfg.AlphaPulse.Weights, cfg.AlphaPulse.Ranges)
	if err != nil {
		return nil, fmt.Errorf("alpha pulse: %w", err)
	}

	e := &engines{
		consolidator: cons,
		derive:       derive.New(cfg.Derive),
		valuation:    valuation.New(cfg.Valuation),
		dividend:     dividend,
		alpha:        alpha,
		rules:        rules.New(cfg.Rules),
		gate:         quality.NewQualityGate(cfg.Quality),
	}

	for _, name := range cfg.Consolidation.Order {
		spec, ok := cfg.Table(name)
		if !ok {
			return nil, fmt.Errorf("consolidation order: no table spec for %s", name)
		}
		e.specs = append(e.specs, spec)

		cols := transform.OutputsOf(spec)
		e.numbers = append(e.numbers, cols.Numbers...)
		e.texts = append(e.texts, cols.Texts...)
	}
	return e, nil
}
