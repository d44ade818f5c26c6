package query

import (
	"fmt"
	"slices"

	"github.com/roach88/shopfloor/internal/predicate"
	"github.com/roach88/shopfloor/internal/queryir"
)

// Spec is the immutable result of composing one request's filter,
// keys, ordering and window. It is handed to the storage layer as is.
type Spec struct {
	filter    predicate.Predicate
	hasFilter bool
	order     OrderSpec
	window    Window
}

// Predicate returns the combined filter-and-keys predicate. It is never
// nil; absent parts contribute predicate.True.
func (s Spec) Predicate() predicate.Predicate {
	if s.filter == nil {
		return predicate.True{}
	}
	return s.filter
}

// Filtered reports whether a filter or key predicate was supplied.
func (s Spec) Filtered() bool { return s.hasFilter }

// Order returns a copy of the ordering.
func (s Spec) Order() OrderSpec { return slices.Clone(s.order) }

// Window returns the pagination window.
func (s Spec) Window() Window { return s.window }

// Unpaged returns a copy of s with the default window replaced by no
// window at all, for counting every match.
func (s Spec) Unpaged() Spec {
	s.window = Window{}
	return s
}

// Paged reports whether the spec carries a pagination window.
func (s Spec) Paged() bool { return s.window.limit > 0 }

// Composer accumulates the parts of a Spec. The zero Composer is ready
// to use. Every method returns a new Composer and leaves the receiver
// untouched, so a partially built Composer may be reused as a template.
//
// The first failure latches: later calls are no-ops and Build reports
// it.
type Composer struct {
	filter predicate.Predicate
	keys   predicate.Predicate
	order  OrderSpec
	window Window
	err    error
}

// NewComposer starts with no filter, no keys, no ordering and the
// default window.
func NewComposer() Composer {
	return Composer{window: DefaultWindow()}
}

// AddFilter compiles and records the filter tree. A nil node means no
// filter.
func (c Composer) AddFilter(node queryir.Node) Composer {
	if c.err != nil || node == nil {
		return c
	}
	p, err := predicate.Compile(node)
	if err != nil {
		c.err = fmt.Errorf("filter: %w", err)
		return c
	}
	c.filter = p
	return c
}

// AddOrder records the ordering.
func (c Composer) AddOrder(order OrderSpec) Composer {
	if c.err != nil {
		return c
	}
	c.order = slices.Clone(order)
	return c
}

// AddKeys records an already built key predicate. Nil means no keys.
func (c Composer) AddKeys(keys predicate.Predicate) Composer {
	if c.err != nil {
		return c
	}
	c.keys = keys
	return c
}

// AddPagination records the window.
func (c Composer) AddPagination(w Window) Composer {
	if c.err != nil {
		return c
	}
	c.window = w
	return c
}

// AddSearch refuses any search term. A nil term is accepted.
func (c Composer) AddSearch(term *string) Composer {
	if c.err != nil || term == nil {
		return c
	}
	c.err = fmt.Errorf("%w: %q", ErrUnsupportedSearch, *term)
	return c
}

// Build returns the Spec, or the first error recorded. The predicate
// is filter AND keys, in that order.
func (c Composer) Build() (Spec, error) {
	if c.err != nil {
		return Spec{}, c.err
	}

	window := c.window
	if window.limit == 0 {
		window = DefaultWindow()
	}

	filter, keys := c.filter, c.keys
	hasFilter := filter != nil || keys != nil
	if filter == nil {
		filter = predicate.True{}
	}
	if keys == nil {
		keys = predicate.True{}
	}

	return Spec{
		filter:    predicate.And(filter, keys),
		hasFilter: hasFilter,
		order:     slices.Clone(c.order),
		window:    window,
	}, nil
}
