// Package frame holds the quarter-axis tables the pipeline passes between
// stages: a Table is one ticker's date-ordered rows with typed columns.
package frame

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/strawberry/internal/series"
)

var nullValue = series.Null()

// DateColumn is the canonical name of the quarter-end date axis
const DateColumn = "qtr_end_date"

// SymbolColumn is the name of the ticker column added on output
const SymbolColumn = "symbol"

// Flag is a nullable boolean cell
type Flag int8

const (
	FlagUnknown Flag = iota
	FlagFalse
	FlagTrue
)

// FlagOf converts a bool into a known flag
func FlagOf(b bool) Flag {
	if b {
		return FlagTrue
	}
	return FlagFalse
}

// Value returns the flag as *bool, nil when unknown
func (f Flag) Value() *bool {
	switch f {
	case FlagTrue:
		v := true
		return &v
	case FlagFalse:
		v := false
		return &v
	default:
		return nil
	}
}

type columnKind int

const (
	kindNumber columnKind = iota
	kindText
	kindFlag
)

// Table is one ticker's rows ordered by date, with numeric, text and
// flag columns. Rows are fixed at construction; stages add or replace
// columns on a clone.
type Table struct {
	Symbol string
	Dates  []time.Time

	numbers map[string]series.Series
	texts   map[string][]string
	flags   map[string][]Flag
	kinds   map[string]columnKind
	order   []string
}

// New creates an empty table on the given date axis
func New(symbol string, dates []time.Time) *Table {
	d := make([]time.Time, len(dates))
	copy(d, dates)
	return &Table{
		Symbol:  symbol,
		Dates:   d,
		numbers: make(map[string]series.Series),
		texts:   make(map[string][]string),
		flags:   make(map[string][]Flag),
		kinds:   make(map[string]columnKind),
	}
}

// Len returns the row count
func (t *Table) Len() int { return len(t.Dates) }

// Columns returns column names in insertion order
func (t *Table) Columns() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Has reports whether the column exists
func (t *Table) Has(name string) bool {
	_, ok := t.kinds[name]
	return ok
}

func (t *Table) track(name string, kind columnKind) {
	if old, ok := t.kinds[name]; ok {
		if old != kind {
			delete(t.numbers, name)
			delete(t.texts, name)
			delete(t.flags, name)
		}
		t.kinds[name] = kind
		return
	}
	t.kinds[name] = kind
	t.order = append(t.order, name)
}

// Number returns a copy of a numeric column; an absent column reads as all null
func (t *Table) Number(name string) series.Series {
	s, ok := t.numbers[name]
	if !ok {
		return series.New(t.Len())
	}
	return s.Clone()
}

// SetNumber adds or replaces a numeric column. The series is resized to
// the row count, padding with null.
func (t *Table) SetNumber(name string, s series.Series) {
	out := series.New(t.Len())
	copy(out, s)
	t.track(name, kindNumber)
	t.numbers[name] = out
}

// Text returns a copy of a text column; "" means null
func (t *Table) Text(name string) []string {
	out := make([]string, t.Len())
	copy(out, t.texts[name])
	return out
}

// SetText adds or replaces a text column
func (t *Table) SetText(name string, values []string) {
	out := make([]string, t.Len())
	copy(out, values)
	t.track(name, kindText)
	t.texts[name] = out
}

// Flags returns a copy of a flag column; an absent column reads as unknown
func (t *Table) Flags(name string) []Flag {
	out := make([]Flag, t.Len())
	copy(out, t.flags[name])
	return out
}

// SetFlags adds or replaces a flag column
func (t *Table) SetFlags(name string, values []Flag) {
	out := make([]Flag, t.Len())
	copy(out, values)
	t.track(name, kindFlag)
	t.flags[name] = out
}

// Clone returns a deep copy
func (t *Table) Clone() *Table {
	c := New(t.Symbol, t.Dates)
	for _, name := range t.order {
		switch t.kinds[name] {
		case kindNumber:
			c.SetNumber(name, t.numbers[name])
		case kindText:
			c.SetText(name, t.texts[name])
		case kindFlag:
			c.SetFlags(name, t.flags[name])
		}
	}
	return c
}

// SortByDate returns a clone with rows in ascending date order
func (t *Table) SortByDate() *Table {
	idx := make([]int, t.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return t.Dates[idx[a]].Before(t.Dates[idx[b]]) })
	return t.take(idx)
}

// take builds a new table from the given row indexes
func (t *Table) take(idx []int) *Table {
	dates := make([]time.Time, len(idx))
	for i, j := range idx {
		dates[i] = t.Dates[j]
	}
	c := New(t.Symbol, dates)
	for _, name := range t.order {
		switch t.kinds[name] {
		case kindNumber:
			src := t.numbers[name]
			s := series.New(len(idx))
			for i, j := range idx {
				s[i] = src[j]
			}
			c.SetNumber(name, s)
		case kindText:
			src := t.texts[name]
			v := make([]string, len(idx))
			for i, j := range idx {
				v[i] = src[j]
			}
			c.SetText(name, v)
		case kindFlag:
			src := t.flags[name]
			v := make([]Flag, len(idx))
			for i, j := range idx {
				v[i] = src[j]
			}
			c.SetFlags(name, v)
		}
	}
	return c
}

// Records renders the table as JSON-ready rows: the date axis as
// YYYY-MM-DD, the symbol, then every column with null cells as nil.
func (t *Table) Records() []map[string]interface{} {
	out := make([]map[string]interface{}, t.Len())
	for i := range t.Dates {
		row := make(map[string]interface{}, len(t.order)+2)
		row[DateColumn] = t.Dates[i].Format("2006-01-02")
		row[SymbolColumn] = t.Symbol
		for _, name := range t.order {
			switch t.kinds[name] {
			case kindNumber:
				if p := t.numbers[name].Ptr(i); p != nil {
					row[name] = *p
				} else {
					row[name] = nil
				}
			case kindText:
				if v := t.texts[name][i]; v != "" {
					row[name] = v
				} else {
					row[name] = nil
				}
			case kindFlag:
				if p := t.flags[name][i].Value(); p != nil {
					row[name] = *p
				} else {
					row[name] = nil
				}
			}
		}
		out[i] = row
	}
	return out
}

// String summarizes the table for logs
func (t *Table) String() string {
	return fmt.Sprintf("Table{%s rows=%d cols=%d}", t.Symbol, t.Len(), len(t.order))
}
