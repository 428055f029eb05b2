// Package consolidate builds one quarter-aligned table per ticker by
// left-joining per-source fragments onto the base fragment's date axis.
package consolidate

import (
	"errors"
	"fmt"

	"github.com/wonny/strawberry/internal/frame"
	"github.com/wonny/strawberry/internal/series"
)

// ErrMissingBase is returned when the base fragment is absent or empty
var ErrMissingBase = errors.New("missing base fragment")

// Consolidator merges fragments in a configured order. The first source
// in the order is the base: it alone decides which quarters exist.
// ⭐ SSOT: the only place fragments are merged
type Consolidator struct {
	order []string
}

// New creates a consolidator for the given source order
func New(order []string) (*Consolidator, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("consolidation order is empty")
	}
	seen := make(map[string]struct{}, len(order))
	for _, name := range order {
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("consolidation order lists %s twice", name)
		}
		seen[name] = struct{}{}
	}

	o := make([]string, len(order))
	copy(o, order)
	return &Consolidator{order: o}, nil
}

// Base returns the base source name
func (c *Consolidator) Base() string {
	return c.order[0]
}

// Order returns the merge order
func (c *Consolidator) Order() []string {
	o := make([]string, len(c.order))
	copy(o, c.order)
	return o
}

// Consolidate joins the available fragments onto the base. Missing
// non-base fragments contribute no columns. A missing or empty base
// yields an empty table and ErrMissingBase.
func (c *Consolidator) Consolidate(symbol string, fragments map[string]*frame.Fragment) (*frame.Table, error) {
	base, ok := fragments[c.Base()]
	if !ok || base == nil || base.Table == nil || base.Len() == 0 {
		return frame.New(symbol, nil), fmt.Errorf("%w: %s", ErrMissingBase, c.Base())
	}

	out := base.Table.Clone()
	out.Symbol = symbol

	for _, name := range c.order[1:] {
		frag, ok := fragments[name]
		if !ok || frag == nil {
			continue
		}
		out = frame.LeftJoinOnDate(out, frag)
	}

	return out, nil
}

// EnsureColumns adds every listed column the table lacks as an all-null
// column, so a skipped source still shows up in the output.
func EnsureColumns(t *frame.Table, numbers, texts []string) {
	for _, name := range numbers {
		if !t.Has(name) {
			t.SetNumber(name, series.New(t.Len()))
		}
	}
	for _, name := range texts {
		if !t.Has(name) {
			t.SetText(name, nil)
		}
	}
}
