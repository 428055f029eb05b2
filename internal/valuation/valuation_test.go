package valuation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/strawberry/internal/frame"
	"github.com/wonny/strawberry/internal/series"
)

var null = series.Null()

func TestDCF(t *testing.T) {
	e := New(DefaultParams())

	tests := []struct {
		name     string
		cashflow float64
		shares   float64
		want     float64
	}{
		{"per share", 1000, 10, 2508.15},
		{"single share", 100, 1, 2508.15},
		{"negative cash flow", -100, 1, -2508.15},
		{"null cash flow", null, 100, null},
		{"zero shares", 5.0, 0, null},
		{"null shares", 5.0, null, null},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.DCF(tt.cashflow, tt.shares)
			if series.IsNull(tt.want) {
				assert.True(t, series.IsNull(got), "got %v", got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDCF_DegenerateRates(t *testing.T) {
	p := DefaultParams()
	p.TerminalGrowthRate = p.DiscountRate

	assert.True(t, series.IsNull(New(p).DCF(100, 1)))
	assert.ErrorIs(t, p.Validate(), ErrInvalidParams)
}

func TestDDM(t *testing.T) {
	e := New(DefaultParams())

	assert.Equal(t, 38.18, e.DDM(1))
	assert.Equal(t, 19.09, e.DDM(0.5))
	assert.True(t, series.IsNull(e.DDM(0)))
	assert.True(t, series.IsNull(e.DDM(-1)))
	assert.True(t, series.IsNull(e.DDM(null)))

	p := DefaultParams()
	p.DividendGrowthRate = p.DiscountRate
	assert.True(t, series.IsNull(New(p).DDM(1)))
}

func TestBlendAndGap(t *testing.T) {
	assert.Equal(t, 30.0, Blend(40, 20))
	assert.True(t, series.IsNull(Blend(40, null)))
	assert.True(t, series.IsNull(Blend(null, 20)))

	assert.InDelta(t, 0.2, Gap(50, 40), 1e-12)
	assert.InDelta(t, -0.25, Gap(40, 50), 1e-12)
	assert.True(t, series.IsNull(Gap(0, 40)))
	assert.True(t, series.IsNull(Gap(null, 40)))
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	p := DefaultParams()
	p.HighGrowthYears = 0
	assert.ErrorIs(t, p.Validate(), ErrInvalidParams)

	p = DefaultParams()
	p.DividendGrowthRate = 0.09
	assert.ErrorIs(t, p.Validate(), ErrInvalidParams)
}

func TestApply(t *testing.T) {
	dates := []time.Time{
		time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
	}
	tbl := frame.New("KO", dates)
	tbl.SetNumber(ColFreeCashflowTTM, series.Of(1000, 1000))
	tbl.SetNumber(ColSharesOutstanding, series.Of(10, 10))
	tbl.SetNumber(ColDividend, series.Of(1, null))
	tbl.SetNumber(ColSharePrice, series.Of(1000, 1000))

	out := New(DefaultParams()).Apply(tbl)
	require.Equal(t, 2, out.Len())

	assert.Equal(t, series.Series{2508.15, 2508.15}, out.Number(ColFairValueDCF))

	ddm := out.Number(ColFairValueDDM)
	assert.Equal(t, 38.18, ddm[0])
	assert.True(t, series.IsNull(ddm[1]))

	blended := out.Number(ColFairValueBlended)
	assert.InDelta(t, (2508.15+38.18)/2, blended[0], 1e-9)
	assert.True(t, series.IsNull(blended[1]))

	gap := out.Number(ColFairValueGapPct)
	assert.InDelta(t, (blended[0]-1000)/blended[0], gap[0], 1e-12)
	assert.True(t, series.IsNull(gap[1]))

	assert.False(t, tbl.Has(ColFairValueDCF))
}
