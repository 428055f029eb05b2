// Package series provides a null-aware float64 column and the windowed
// arithmetic used by the derived-column, valuation and scoring stages.
//
// A null cell is stored as NaN. Every operation returns a new Series and
// maps ±Inf results to null, so a division by zero can never leak into a
// score as a number.
package series

import (
	"math"

	"github.com/shopspring/decimal"
)

// Series is an ordered column of values where NaN means null
type Series []float64

// Null returns the null value
func Null() float64 { return math.NaN() }

// IsNull reports whether v is null
func IsNull(v float64) bool { return math.IsNaN(v) }

// clean maps non-finite values to null
func clean(v float64) float64 {
	if math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

// New returns an all-null series of length n
func New(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// Of builds a series from values; non-finite values become null
func Of(values ...float64) Series {
	s := make(Series, len(values))
	for i, v := range values {
		s[i] = clean(v)
	}
	return s
}

// Clone returns a copy
func (s Series) Clone() Series {
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// At returns the value at i, or null when i is out of range
func (s Series) At(i int) float64 {
	if i < 0 || i >= len(s) {
		return math.NaN()
	}
	return s[i]
}

// Ptr returns a pointer to the value at i, nil when null
func (s Series) Ptr(i int) *float64 {
	v := s.At(i)
	if IsNull(v) {
		return nil
	}
	return &v
}

// Valid counts the non-null cells
func (s Series) Valid() int {
	n := 0
	for _, v := range s {
		if !IsNull(v) {
			n++
		}
	}
	return n
}

// AllNull reports whether no cell holds a value
func (s Series) AllNull() bool {
	return s.Valid() == 0
}

// Map applies f to every non-null cell
func (s Series) Map(f func(float64) float64) Series {
	out := make(Series, len(s))
	for i, v := range s {
		if IsNull(v) {
			out[i] = v
			continue
		}
		out[i] = clean(f(v))
	}
	return out
}

// Zip combines two series cell by cell. A null on either side yields null.
// The result has the length of s; missing cells of o read as null.
func (s Series) Zip(o Series, f func(a, b float64) float64) Series {
	out := make(Series, len(s))
	for i, a := range s {
		b := o.At(i)
		if IsNull(a) || IsNull(b) {
			out[i] = math.NaN()
			continue
		}
		out[i] = clean(f(a, b))
	}
	return out
}

// Add returns s + o
func (s Series) Add(o Series) Series {
	return s.Zip(o, func(a, b float64) float64 { return a + b })
}

// Sub returns s − o
func (s Series) Sub(o Series) Series {
	return s.Zip(o, func(a, b float64) float64 { return a - b })
}

// Mul returns s × o
func (s Series) Mul(o Series) Series {
	return s.Zip(o, func(a, b float64) float64 { return a * b })
}

// Div returns s / o; a zero denominator yields null
func (s Series) Div(o Series) Series {
	return s.Zip(o, func(a, b float64) float64 {
		if b == 0 {
			return math.NaN()
		}
		return a / b
	})
}

// Scale multiplies every cell by k
func (s Series) Scale(k float64) Series {
	return s.Map(func(v float64) float64 { return v * k })
}

// AddScalar adds k to every cell
func (s Series) AddScalar(k float64) Series {
	return s.Map(func(v float64) float64 { return v + k })
}

// Pow raises every cell to exp. Undefined results (e.g. a negative base
// with a fractional exponent) are null.
func (s Series) Pow(exp float64) Series {
	return s.Map(func(v float64) float64 { return math.Pow(v, exp) })
}

// Shift lags the series by n positions; the first n cells become null.
// A negative n leads instead.
func (s Series) Shift(n int) Series {
	out := New(len(s))
	for i := range s {
		j := i - n
		if j >= 0 && j < len(s) {
			out[i] = s[j]
		}
	}
	return out
}

// PctChange returns s[t]/s[t-periods] − 1
func (s Series) PctChange(periods int) Series {
	return s.Div(s.Shift(periods)).AddScalar(-1)
}

// Round rounds every cell half away from zero to places decimals
func (s Series) Round(places int32) Series {
	return s.Map(func(v float64) float64 { return Round(v, places) })
}

// Clip bounds every cell to [lo, hi]
func (s Series) Clip(lo, hi float64) Series {
	return s.Map(func(v float64) float64 { return math.Max(lo, math.Min(hi, v)) })
}

// Fill replaces null cells with v
func (s Series) Fill(v float64) Series {
	out := s.Clone()
	for i := range out {
		if IsNull(out[i]) {
			out[i] = v
		}
	}
	return out
}

// Round rounds v half away from zero to places decimals; null stays null
func Round(v float64, places int32) float64 {
	if IsNull(v) || math.IsInf(v, 0) {
		return math.NaN()
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
