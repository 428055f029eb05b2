package series

import "math"

// windowStat walks a trailing window of size window over s and emits
// f(values) when at least minPeriods non-null values are present.
func (s Series) windowStat(window, minPeriods int, f func(vals []float64) float64) Series {
	out := New(len(s))
	if window <= 0 {
		return out
	}
	if minPeriods <= 0 {
		minPeriods = window
	}

	vals := make([]float64, 0, window)
	for i := range s {
		vals = vals[:0]
		for j := i - window + 1; j <= i; j++ {
			if j < 0 || IsNull(s[j]) {
				continue
			}
			vals = append(vals, s[j])
		}
		if len(vals) < minPeriods {
			continue
		}
		out[i] = clean(f(vals))
	}
	return out
}

// RollingSum returns the trailing window sum. minPeriods of 0 means the
// full window is required, so partial windows at the start are null.
func (s Series) RollingSum(window, minPeriods int) Series {
	return s.windowStat(window, minPeriods, sum)
}

// RollingMean returns the trailing window mean
func (s Series) RollingMean(window, minPeriods int) Series {
	return s.windowStat(window, minPeriods, mean)
}

// RollingStd returns the trailing window sample standard deviation.
// A window with a single value has no sample deviation and is null.
func (s Series) RollingStd(window, minPeriods int) Series {
	return s.windowStat(window, minPeriods, sampleStd)
}

// CumSum returns the running total. Null cells add nothing and take the
// running total once accumulation has started; cells before the first
// value stay null.
func (s Series) CumSum() Series {
	out := New(len(s))
	total := 0.0
	started := false
	for i, v := range s {
		if !IsNull(v) {
			total += v
			started = true
		}
		if started {
			out[i] = total
		}
	}
	return out
}

// Mean returns the mean of the non-null cells
func (s Series) Mean() float64 {
	return mean(s.values())
}

// Std returns the sample standard deviation of the non-null cells
func (s Series) Std() float64 {
	return sampleStd(s.values())
}

// Last returns the last cell, null for an empty series
func (s Series) Last() float64 {
	return s.At(len(s) - 1)
}

func (s Series) values() []float64 {
	vals := make([]float64, 0, len(s))
	for _, v := range s {
		if !IsNull(v) {
			vals = append(vals, v)
		}
	}
	return vals
}

func sum(vals []float64) float64 {
	t := 0.0
	for _, v := range vals {
		t += v
	}
	return t
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return sum(vals) / float64(len(vals))
}

func sampleStd(vals []float64) float64 {
	if len(vals) < 2 {
		return math.NaN()
	}
	m := mean(vals)
	ss := 0.0
	for _, v := range vals {
		ss += (v - m) * (v - m)
	}
	return math.Sqrt(ss / float64(len(vals)-1))
}
