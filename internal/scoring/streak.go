package scoring

import (
	"math"

	"github.com/wonny/strawberry/internal/series"
)

// GrowthStreak returns, per period, the length of the current run of
// strictly increasing values. The first period is never a growth step
// and a null on either side of a step resets the run.
func GrowthStreak(s series.Series) series.Series {
	out := make(series.Series, len(s))
	for i := range s {
		if i > 0 && !series.IsNull(s[i]) && !series.IsNull(s[i-1]) && s[i] > s[i-1] {
			out[i] = out[i-1] + 1
			continue
		}
		out[i] = 0
	}
	return out
}

// CashCoverage returns, per period, the number of consecutive periods in
// which cash covered the dividend (cash/dividend ≥ 1). An undefined
// ratio counts as 0 and breaks the run.
func CashCoverage(cash, dividends series.Series) series.Series {
	out := make(series.Series, len(cash))
	run := 0.0
	for i := range cash {
		ratio := cash[i] / dividends.At(i)
		if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
			ratio = 0
		}
		if ratio >= 1 {
			run++
		} else {
			run = 0
		}
		out[i] = run
	}
	return out
}
