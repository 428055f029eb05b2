package derive

import (
	"math"

	"github.com/wonny/strawberry/internal/series"
)

// EPSProjection holds the per-quarter EPS growth columns
type EPSProjection struct {
	YoY       series.Series // eps.pct_change(4)
	CAGR      series.Series // five-year compound annual growth
	SmoothYoY series.Series // rolling mean of YoY over up to 20 quarters
	// Projected is eps × (1 + SmoothYoY): a projected EPS level. It is
	// stored as projected_eps_growth_rate and is the PEG denominator.
	Projected series.Series
}

// ProjectEPS computes the EPS projection over a date-ordered EPS series
func ProjectEPS(eps series.Series) EPSProjection {
	yoy := eps.PctChange(EPSYoYLag)

	cagr := eps.Zip(eps.Shift(EPSCAGRLag), func(cur, prior float64) float64 {
		return math.Pow(cur/prior, 1.0/EPSCAGRYears) - 1
	})

	smooth := yoy.RollingMean(EPSSmoothWindow, 1)

	return EPSProjection{
		YoY:       yoy,
		CAGR:      cagr,
		SmoothYoY: smooth,
		Projected: eps.Mul(smooth.AddScalar(1)),
	}
}
