package query

import (
	"slices"

	"github.com/roach88/shopfloor/internal/ir"
	"github.com/roach88/shopfloor/internal/predicate"
)

// Apply evaluates spec over rows in memory: filter, then a stable sort,
// then the window. The input slice is not modified.
//
// Nulls sort before every value when ascending and after every value
// when descending, matching SQLite. Values of incomparable kinds keep
// their relative order.
func Apply[R predicate.Row](rows []R, spec Spec) []R {
	p := spec.Predicate()
	matched := make([]R, 0, len(rows))
	for _, row := range rows {
		if p.Match(row) {
			matched = append(matched, row)
		}
	}

	if order := spec.Order(); len(order) > 0 {
		slices.SortStableFunc(matched, func(a, b R) int {
			return compareRows(a, b, order)
		})
	}

	if !spec.Paged() {
		return matched
	}
	w := spec.Window()
	start := min(int(w.Offset()), len(matched))
	end := min(start+int(w.Limit()), len(matched))
	return matched[start:end]
}

func compareRows(a, b predicate.Row, order OrderSpec) int {
	for _, term := range order {
		c := compareField(a, b, term.Field)
		if !term.Ascending {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func compareField(a, b predicate.Row, field string) int {
	va, _ := a.Value(field)
	vb, _ := b.Value(field)
	switch {
	case va == nil && vb == nil:
		return 0
	case va == nil:
		return -1
	case vb == nil:
		return 1
	}
	c, err := ir.Compare(va, vb)
	if err != nil {
		return 0
	}
	return c
}
