package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/wonny/strawberry/internal/frame"
	"github.com/wonny/strawberry/internal/series"
)

// WeightTolerance is the allowed distance of a weight sum from 1.0
const WeightTolerance = 1e-8

// Weights maps a factor key to its share of a composite score
type Weights map[string]float64

// Sum returns the total weight
func (w Weights) Sum() float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}

// Validate checks that w has exactly the given keys, no negative
// weight, and sums to 1.0
func (w Weights) Validate(keys []string) error {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
		if _, ok := w[k]; !ok {
			return fmt.Errorf("%w: missing key %q", ErrInvalidWeights, k)
		}
	}
	for _, k := range sortedKeys(w) {
		if !want[k] {
			return fmt.Errorf("%w: unknown key %q", ErrInvalidWeights, k)
		}
		if w[k] < 0 {
			return fmt.Errorf("%w: %s is negative (%v)", ErrInvalidWeights, k, w[k])
		}
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > WeightTolerance {
		return fmt.Errorf("%w: weights sum to %v, expected 1.0", ErrInvalidWeights, sum)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// factor is one weighted sub-score of a composite
type factor struct {
	key      string
	ratioCol string
	scoreCol string
	calc     *Calculator
}

// composite is a set of factors and their weights
type composite struct {
	name    string
	column  string
	factors []factor
	weights Weights
}

// buildComposite validates weights and ranges and constructs the factors.
// Ranges missing from overrides fall back to defaults.
func buildComposite(name, column string, keys []string, cols map[string][2]string,
	defaults map[string]Range, overrides map[string]Range, weights Weights) (*composite, error) {

	if err := weights.Validate(keys); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	for _, k := range sortedKeys(overrides) {
		if _, ok := defaults[k]; !ok {
			return nil, fmt.Errorf("%s: %w %q", name, ErrUnknownFactor, k)
		}
	}

	c := &composite{name: name, column: column, weights: weights}
	for _, k := range keys {
		r, ok := overrides[k]
		if !ok {
			r = defaults[k]
		}
		calc, err := NewCalculator(r)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", name, k, err)
		}
		c.factors = append(c.factors, factor{key: k, ratioCol: cols[k][0], scoreCol: cols[k][1], calc: calc})
	}
	return c, nil
}

// apply writes each ratio and sub-score column plus the weighted
// composite. A null sub-score leaves the composite null for that row.
func (c *composite) apply(out *frame.Table, ratios map[string]series.Series) {
	total := make(series.Series, out.Len())
	for _, f := range c.factors {
		ratio := ratios[f.key]
		score := f.calc.Apply(ratio)
		out.SetNumber(f.ratioCol, ratio)
		out.SetNumber(f.scoreCol, score)
		total = total.Add(score.Scale(c.weights[f.key]))
	}
	out.SetNumber(c.column, total)
}
