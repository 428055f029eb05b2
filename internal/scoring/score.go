// Package scoring maps financial ratios onto bounded scores and combines
// them into the dividend safety and alpha pulse composites.
package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/wonny/strawberry/internal/series"
)

var (
	// ErrInvalidRange is returned when a range has min_ratio == max_ratio
	ErrInvalidRange = errors.New("scoring: min_ratio and max_ratio must differ")
	// ErrInvalidWeights is returned for weight maps that cannot form a composite
	ErrInvalidWeights = errors.New("scoring: invalid weights")
	// ErrUnknownFactor is returned for a range keyed by an unknown factor
	ErrUnknownFactor = errors.New("scoring: unknown factor")
)

// Range describes a linear ratio-to-score mapping
type Range struct {
	MinRatio  float64 `yaml:"min_ratio" json:"min_ratio"`
	MaxRatio  float64 `yaml:"max_ratio" json:"max_ratio"`
	MinScore  float64 `yaml:"min_score" json:"min_score"`
	MaxScore  float64 `yaml:"max_score" json:"max_score"`
	Ascending bool    `yaml:"ascending" json:"ascending"`
}

// Calculator maps a ratio linearly onto [MinScore, MaxScore], clamped
// at both ends and rounded to a whole score.
type Calculator struct {
	r     Range
	slope float64
	low   float64
	high  float64
}

// NewCalculator validates r and builds a calculator
func NewCalculator(r Range) (*Calculator, error) {
	if r.MinRatio == r.MaxRatio {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, r.MinRatio)
	}

	span := r.MaxRatio - r.MinRatio
	slope := (r.MinScore - r.MaxScore) / span
	if r.Ascending {
		slope = (r.MaxScore - r.MinScore) / span
	}

	return &Calculator{
		r:     r,
		slope: slope,
		low:   math.Min(r.MinScore, r.MaxScore),
		high:  math.Max(r.MinScore, r.MaxScore),
	}, nil
}

// Range returns the mapping the calculator was built from
func (c *Calculator) Range() Range { return c.r }

// Score maps one ratio; a null ratio has no score
func (c *Calculator) Score(ratio float64) float64 {
	if series.IsNull(ratio) || math.IsInf(ratio, 0) {
		return series.Null()
	}

	start := c.r.MaxScore
	if c.r.Ascending {
		start = c.r.MinScore
	}
	raw := start + c.slope*(ratio-c.r.MinRatio)

	return math.RoundToEven(math.Max(c.low, math.Min(c.high, raw)))
}

// Apply scores every cell of s
func (c *Calculator) Apply(s series.Series) series.Series {
	return s.Map(c.Score)
}
