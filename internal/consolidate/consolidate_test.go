package consolidate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/strawberry/internal/frame"
	"github.com/wonny/strawberry/internal/series"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func frag(t *testing.T, source string, dates []string, col string, values ...float64) *frame.Fragment {
	t.Helper()
	ds := make([]time.Time, len(dates))
	for i, s := range dates {
		ds[i] = day(s)
	}
	tbl := frame.New("KO", ds)
	tbl.SetNumber(col, series.Of(values...))
	f, err := frame.NewFragment(source, tbl)
	require.NoError(t, err)
	return f
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New([]string{"A", "B", "A"})
	assert.Error(t, err)

	c, err := New([]string{"BALANCE_SHEET", "DIVIDENDS"})
	require.NoError(t, err)
	assert.Equal(t, "BALANCE_SHEET", c.Base())
}

func TestConsolidate_BaseDefinesRows(t *testing.T) {
	c, err := New([]string{"BALANCE_SHEET", "PRICES", "DIVIDENDS", "INSIDER"})
	require.NoError(t, err)

	fragments := map[string]*frame.Fragment{
		"BALANCE_SHEET": frag(t, "BALANCE_SHEET", []string{"2023-12-31", "2024-03-31"}, "shares_outstanding", 10, 11),
		"PRICES":        frag(t, "PRICES", []string{"2023-09-30", "2023-12-31", "2024-03-31", "2024-06-30"}, "share_price", 1, 2, 3, 4),
		"DIVIDENDS":     frag(t, "DIVIDENDS", []string{"2024-03-31"}, "dividend", 0.5),
	}

	out, err := c.Consolidate("KO", fragments)
	require.NoError(t, err)

	assert.Equal(t, "KO", out.Symbol)
	assert.Equal(t, []time.Time{day("2023-12-31"), day("2024-03-31")}, out.Dates)
	assert.Equal(t, series.Series{2, 3}, out.Number("share_price"))

	div := out.Number("dividend")
	assert.True(t, series.IsNull(div[0]))
	assert.Equal(t, 0.5, div[1])

	assert.False(t, out.Has("insider_net_shares"), "absent fragment adds no columns")
	assert.NoError(t, frame.CheckQuarterAxis(out))
}

func TestConsolidate_MissingBase(t *testing.T) {
	c, err := New([]string{"BALANCE_SHEET", "PRICES"})
	require.NoError(t, err)

	out, err := c.Consolidate("KO", map[string]*frame.Fragment{
		"PRICES": frag(t, "PRICES", []string{"2024-03-31"}, "share_price", 3),
	})
	assert.ErrorIs(t, err, ErrMissingBase)
	assert.Equal(t, 0, out.Len())

	empty, _ := frame.NewFragment("BALANCE_SHEET", frame.New("KO", nil))
	_, err = c.Consolidate("KO", map[string]*frame.Fragment{"BALANCE_SHEET": empty})
	assert.ErrorIs(t, err, ErrMissingBase)
}

func TestEnsureColumns(t *testing.T) {
	tbl := frame.New("KO", []time.Time{day("2024-03-31")})
	tbl.SetNumber("eps", series.Of(1))

	EnsureColumns(tbl, []string{"eps", "dividend"}, []string{"year_quarter"})

	assert.Equal(t, []string{"eps", "dividend", "year_quarter"}, tbl.Columns())
	assert.True(t, tbl.Number("dividend").AllNull())
	assert.Equal(t, 1.0, tbl.Number("eps")[0])
	assert.Equal(t, []string{""}, tbl.Text("year_quarter"))
}
