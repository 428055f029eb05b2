package series

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nan = math.NaN()

// assertSeries compares two series treating null == null
func assertSeries(t *testing.T, want, got Series) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if IsNull(want[i]) {
			assert.True(t, IsNull(got[i]), "index %d: want null, got %v", i, got[i])
			continue
		}
		assert.InDelta(t, want[i], got[i], 1e-9, "index %d", i)
	}
}

func TestOf_CleansInfinity(t *testing.T) {
	s := Of(1, math.Inf(1), math.Inf(-1), nan)
	assertSeries(t, Series{1, nan, nan, nan}, s)
	assert.Equal(t, 1, s.Valid())
}

func TestArithmetic(t *testing.T) {
	a := Of(10, 20, nan, 40)
	b := Of(2, 0, 5, 8)

	assertSeries(t, Series{12, 20, nan, 48}, a.Add(b))
	assertSeries(t, Series{8, 20, nan, 32}, a.Sub(b))
	assertSeries(t, Series{20, 0, nan, 320}, a.Mul(b))
	assertSeries(t, Series{5, nan, nan, 5}, a.Div(b))
}

func TestZip_ShorterOperandReadsNull(t *testing.T) {
	a := Of(1, 2, 3)
	b := Of(1)
	assertSeries(t, Series{2, nan, nan}, a.Add(b))
}

func TestPow_UndefinedIsNull(t *testing.T) {
	s := Of(4, -8, 0)
	assertSeries(t, Series{2, nan, 0}, s.Pow(0.5))
}

func TestShift(t *testing.T) {
	s := Of(1, 2, 3, 4)
	assertSeries(t, Series{nan, nan, 1, 2}, s.Shift(2))
	assertSeries(t, Series{2, 3, 4, nan}, s.Shift(-1))
}

func TestPctChange(t *testing.T) {
	s := Of(100, 0, 110, 50)
	assertSeries(t, Series{nan, nan, nan, nan}, s.PctChange(4))
	assertSeries(t, Series{nan, nan, 0.1, nan}, s.PctChange(2))
}

func TestRollingSum_PartialWindowIsNull(t *testing.T) {
	s := Of(1, 2, 3, 4, 5)
	assertSeries(t, Series{nan, nan, nan, 10, 14}, s.RollingSum(4, 0))
}

func TestRollingSum_NullInsideWindow(t *testing.T) {
	s := Of(1, 2, nan, 4, 5, 6, 7)
	assertSeries(t, Series{nan, nan, nan, nan, nan, nan, 22}, s.RollingSum(4, 0))
}

func TestRollingMeanAndStd_MinPeriodsOne(t *testing.T) {
	s := Of(2, 4, 6)

	assertSeries(t, Series{2, 3, 4}, s.RollingMean(20, 1))
	assertSeries(t, Series{nan, math.Sqrt2, 2}, s.RollingStd(20, 1))
}

func TestCumSum_CarriesOverNull(t *testing.T) {
	s := Of(nan, 100, nan, -40, 10)
	assertSeries(t, Series{nan, 100, 100, 60, 70}, s.CumSum())
}

func TestMeanStd(t *testing.T) {
	s := Of(2, 4, 4, 4, 5, 5, 7, 9, nan)
	assert.InDelta(t, 5.0, s.Mean(), 1e-9)
	assert.InDelta(t, 2.138089935, s.Std(), 1e-9)

	assert.True(t, IsNull(Of(1).Std()))
	assert.True(t, IsNull(Series{}.Mean()))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.24, Round(1.235, 2))
	assert.Equal(t, -1.24, Round(-1.235, 2))
	assert.Equal(t, 3.0, Round(2.5, 0))
	assert.True(t, IsNull(Round(nan, 2)))
	assert.True(t, IsNull(Round(math.Inf(1), 2)))

	assertSeries(t, Series{1.01, nan}, Of(1.005, nan).Round(2))
}

func TestClipAndFill(t *testing.T) {
	s := Of(-5, 50, 500, nan)
	assertSeries(t, Series{0, 50, 100, nan}, s.Clip(0, 100))
	assertSeries(t, Series{-5, 50, 500, 0}, s.Fill(0))
}

func TestPtrAndLast(t *testing.T) {
	s := Of(1.5, nan)
	require.NotNil(t, s.Ptr(0))
	assert.Equal(t, 1.5, *s.Ptr(0))
	assert.Nil(t, s.Ptr(1))
	assert.Nil(t, s.Ptr(9))
	assert.True(t, IsNull(s.Last()))
}

func TestNullNeverMarshalsAsNumber(t *testing.T) {
	s := Of(1, 0).Div(Of(0, 0))
	out := []*float64{s.Ptr(0), s.Ptr(1)}

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `[null, null]`, string(data))
}
