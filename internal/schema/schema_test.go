package schema

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/strawberry/internal/contracts"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want float64
		null bool
	}{
		{"string", "1234.5", 1234.5, false},
		{"padded", " 42 ", 42, false},
		{"float", 3.25, 3.25, false},
		{"json number", json.Number("7"), 7, false},
		{"None", "None", 0, true},
		{"none", "none", 0, true},
		{"NULL", "NULL", 0, true},
		{"empty", "", 0, true},
		{"dash", "-", 0, true},
		{"garbage", "n/a", 0, true},
		{"nil", nil, 0, true},
		{"bool", true, 0, true},
		{"infinity", math.Inf(1), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseNumber(tt.in)
			if tt.null {
				assert.True(t, math.IsNaN(got), "want null, got %v", got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseInteger(t *testing.T) {
	assert.Equal(t, 1200.0, ParseInteger("1200"))
	assert.Equal(t, 5.0, ParseInteger(5.0))
	assert.True(t, math.IsNaN(ParseInteger("12.5")))
	assert.True(t, math.IsNaN(ParseInteger("None")))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
		ok   bool
	}{
		{"iso", "2024-03-31", "2024-03-31", true},
		{"with time", "2024-03-31 00:00:00", "2024-03-31", true},
		{"markup", "<span class=\"d\">2023-12-29</span>", "2023-12-29", true},
		{"markup and noise", "<b>ex</b>\n 2019-06-14 <i>paid</i>", "2019-06-14", true},
		{"00 year", "0012-06-30", "2012-06-30", true},
		{"none token", "None", "", false},
		{"no date", "tomorrow", "", false},
		{"bad day", "2024-02-31", "", false},
		{"not a string", 20240331.0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got.Format("2006-01-02"))
			}
		})
	}
}

func TestParseText(t *testing.T) {
	assert.Equal(t, "A", ParseText(" A "))
	assert.Equal(t, "", ParseText("None"))
	assert.Equal(t, "", ParseText(nil))
	assert.Equal(t, "12", ParseText(12.0))
}

func earningsSpec() TableSpec {
	return TableSpec{
		Name: contracts.TableEarnings,
		Columns: []ColumnSpec{
			{InName: "fiscalDateEnding", OutName: "qtr_end_date", Type: TypeDate},
			{InName: "reportedEPS", OutName: "eps", Type: TypeNumber},
			{InName: "estimatedEPS", OutName: "estimated_eps", Type: TypeNumber},
		},
	}
}

func TestMap(t *testing.T) {
	raw := &contracts.RawTable{
		Name:   contracts.TableEarnings,
		Symbol: "KO",
		Records: []contracts.Record{
			{"fiscalDateEnding": "2024-03-31", "reportedEPS": "0.74", "estimatedEPS": "0.69", "extra": "x"},
			{"fiscalDateEnding": "garbage", "reportedEPS": "None", "estimatedEPS": "0.71"},
		},
	}

	m, err := Map(raw, earningsSpec())
	require.NoError(t, err)

	assert.Equal(t, 2, m.Rows)
	assert.Equal(t, "KO", m.Symbol)
	assert.False(t, m.Has("extra"), "only out_name columns survive")

	dates := m.Dates("qtr_end_date")
	require.NotNil(t, dates[0])
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), *dates[0])
	assert.Nil(t, dates[1], "unparseable date becomes null")

	eps := m.Number("eps")
	assert.Equal(t, 0.74, eps[0])
	assert.True(t, math.IsNaN(eps[1]))
}

func TestMap_MissingSource(t *testing.T) {
	_, err := Map(nil, earningsSpec())
	assert.ErrorIs(t, err, ErrMissingSource)

	_, err = Map(&contracts.RawTable{Name: contracts.TableEarnings}, earningsSpec())
	assert.ErrorIs(t, err, ErrMissingSource)
}

func TestMap_Mismatch(t *testing.T) {
	raw := &contracts.RawTable{
		Name:    contracts.TableEarnings,
		Symbol:  "KO",
		Records: []contracts.Record{{"fiscalDateEnding": "2024-03-31", "reportedEPS": "0.74"}},
	}

	_, err := Map(raw, earningsSpec())

	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "estimatedEPS", mismatch.Column)
	assert.Equal(t, contracts.TableEarnings, mismatch.Table)
}

func TestTableSpec_Validate(t *testing.T) {
	assert.NoError(t, earningsSpec().Validate())

	bad := earningsSpec()
	bad.Columns[1].Type = "money"
	assert.Error(t, bad.Validate())

	dup := earningsSpec()
	dup.Columns[2].OutName = "eps"
	assert.Error(t, dup.Validate())

	assert.Error(t, TableSpec{Name: "X"}.Validate())
	assert.Error(t, TableSpec{Columns: earningsSpec().Columns}.Validate())
}
