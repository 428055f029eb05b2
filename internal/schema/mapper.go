package schema

import (
	"time"

	"github.com/wonny/strawberry/internal/contracts"
	"github.com/wonny/strawberry/internal/series"
)

// Mapped is a raw table reduced to the canonical out_name columns of its
// spec, each cast to its declared type. Row order follows the raw table.
type Mapped struct {
	Table  string
	Symbol string
	Rows   int
	Spec   TableSpec

	dates   map[string][]*time.Time
	numbers map[string]series.Series
	texts   map[string][]string
}

// Dates returns a date column; nil entries are null
func (m *Mapped) Dates(name string) []*time.Time {
	if d, ok := m.dates[name]; ok {
		return d
	}
	return make([]*time.Time, m.Rows)
}

// Number returns a number or integer column; absent columns read as null
func (m *Mapped) Number(name string) series.Series {
	if s, ok := m.numbers[name]; ok {
		return s.Clone()
	}
	return series.New(m.Rows)
}

// Text returns a text column; "" is null
func (m *Mapped) Text(name string) []string {
	if t, ok := m.texts[name]; ok {
		return t
	}
	return make([]string, m.Rows)
}

// Has reports whether the mapped table carries the column
func (m *Mapped) Has(name string) bool {
	if _, ok := m.dates[name]; ok {
		return true
	}
	if _, ok := m.numbers[name]; ok {
		return true
	}
	_, ok := m.texts[name]
	return ok
}

// Map renames and typecasts a raw table according to spec. A nil or empty
// table yields ErrMissingSource; a configured in_name absent from every
// record yields *MismatchError. Cells that fail conversion become null.
func Map(raw *contracts.RawTable, spec TableSpec) (*Mapped, error) {
	if raw == nil || raw.Len() == 0 {
		return nil, ErrMissingSource
	}

	for _, c := range spec.Columns {
		if !raw.HasColumn(c.InName) {
			return nil, &MismatchError{Table: spec.Name, Column: c.InName}
		}
	}

	m := &Mapped{
		Table:   spec.Name,
		Symbol:  raw.Symbol,
		Rows:    raw.Len(),
		Spec:    spec,
		dates:   make(map[string][]*time.Time),
		numbers: make(map[string]series.Series),
		texts:   make(map[string][]string),
	}

	for _, c := range spec.Columns {
		switch c.Type {
		case TypeDate:
			col := make([]*time.Time, m.Rows)
			for i, r := range raw.Records {
				if t, ok := ParseDate(r[c.InName]); ok {
					col[i] = &t
				}
			}
			m.dates[c.OutName] = col
		case TypeNumber, TypeInteger:
			parse := ParseNumber
			if c.Type == TypeInteger {
				parse = ParseInteger
			}
			col := make(series.Series, m.Rows)
			for i, r := range raw.Records {
				col[i] = parse(r[c.InName])
			}
			m.numbers[c.OutName] = col
		case TypeText:
			col := make([]string, m.Rows)
			for i, r := range raw.Records {
				col[i] = ParseText(r[c.InName])
			}
			m.texts[c.OutName] = col
		}
	}

	return m, nil
}
