package frame

import (
	"errors"
	"fmt"
)

// ErrDuplicateQuarter is returned when two rows fall in the same quarter
var ErrDuplicateQuarter = errors.New("duplicate quarter")

// ErrUnsorted is returned when rows are not in ascending date order
var ErrUnsorted = errors.New("dates not ascending")

// Fragment is the output of one per-source transformer: exactly one row
// per quarter, dates ascending, columns limited to that source.
type Fragment struct {
	Source string
	*Table
}

// NewFragment wraps a table after checking the fragment invariants
func NewFragment(source string, t *Table) (*Fragment, error) {
	if err := CheckQuarterAxis(t); err != nil {
		return nil, fmt.Errorf("fragment %s: %w", source, err)
	}
	return &Fragment{Source: source, Table: t}, nil
}

// CheckQuarterAxis verifies dates are ascending and no two rows share a quarter
func CheckQuarterAxis(t *Table) error {
	seen := make(map[QuarterKey]struct{}, t.Len())
	for i, d := range t.Dates {
		if i > 0 && !t.Dates[i-1].Before(d) {
			return fmt.Errorf("%w at row %d (%s)", ErrUnsorted, i, d.Format("2006-01-02"))
		}
		k := KeyOf(d)
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateQuarter, YearQuarterLabel(d))
		}
		seen[k] = struct{}{}
	}
	return nil
}

// LeftJoinOnDate returns a copy of base with every column of frag joined
// on calendar quarter. Base rows keep their own dates; fragment quarters
// absent from base are dropped; base quarters absent from the fragment get
// null cells. A fragment column with the same name as a base column
// replaces it.
func LeftJoinOnDate(base *Table, frag *Fragment) *Table {
	out := base.Clone()
	if frag == nil || frag.Table == nil {
		return out
	}

	rowOf := make(map[QuarterKey]int, frag.Len())
	for i, d := range frag.Dates {
		rowOf[KeyOf(d)] = i
	}

	idx := make([]int, base.Len())
	for i, d := range base.Dates {
		j, ok := rowOf[KeyOf(d)]
		if !ok {
			j = -1
		}
		idx[i] = j
	}

	for _, name := range frag.order {
		switch frag.kinds[name] {
		case kindNumber:
			src := frag.numbers[name]
			s := make([]float64, len(idx))
			for i, j := range idx {
				s[i] = nanIfMissing(src, j)
			}
			out.SetNumber(name, s)
		case kindText:
			src := frag.texts[name]
			v := make([]string, len(idx))
			for i, j := range idx {
				if j >= 0 {
					v[i] = src[j]
				}
			}
			out.SetText(name, v)
		case kindFlag:
			src := frag.flags[name]
			v := make([]Flag, len(idx))
			for i, j := range idx {
				if j >= 0 {
					v[i] = src[j]
				}
			}
			out.SetFlags(name, v)
		}
	}
	return out
}

func nanIfMissing(s []float64, j int) float64 {
	if j < 0 || j >= len(s) {
		return nullValue
	}
	return s[j]
}
