// Package predicate compiles filter expression trees into opaque,
// composable row predicates.
//
// A Predicate keeps no reference to the tree it came from. Predicates
// are combined only through And, Or and Not, and never change after
// construction, so one compiled predicate may be shared freely.
//
// The concrete node types are exported so storage backends can
// translate a predicate into their own query language (see querysql).
// Match gives the in-memory semantics.
package predicate

import (
	"strings"

	"github.com/roach88/shopfloor/internal/ir"
	"golang.org/x/text/cases"
)

// Row is the record abstraction predicates are evaluated against.
// Fields are addressed by internal identifier ("productNumber").
type Row interface {
	// Value returns the field value and whether the row has the field.
	// A present field may still hold a nil (null) Value.
	Value(field string) (ir.Value, bool)
}

// Record is a map-backed Row.
type Record map[string]ir.Value

// Value implements Row.
func (r Record) Value(field string) (ir.Value, bool) {
	v, ok := r[field]
	return v, ok
}

// Predicate is a boolean test over a Row.
//
// This is a sealed interface - only types in this package implement it.
//
// Null handling is two-valued: a missing or null field makes every
// comparison, membership and pattern test false, and Negation flips
// that result.
type Predicate interface {
	Match(row Row) bool
	predicate() // Marker method - seals interface to this package
}

// CompareOp is the operator of a Comparison.
type CompareOp string

const (
	Eq CompareOp = "="
	Ne CompareOp = "<>"
	Gt CompareOp = ">"
	Lt CompareOp = "<"
	Ge CompareOp = ">="
	Le CompareOp = "<="
)

// Ordering reports whether op needs an ordered kind.
func (op CompareOp) Ordering() bool {
	return op != Eq && op != Ne
}

// PatternKind selects where a Pattern's text must occur.
type PatternKind string

const (
	Contains   PatternKind = "contains"
	StartsWith PatternKind = "startswith"
	EndsWith   PatternKind = "endswith"
)

// True matches every row. It is the identity for And.
type True struct{}

func (True) predicate()     {}
func (True) Match(Row) bool { return true }

// Comparison tests a field against one typed value.
type Comparison struct {
	Field string
	Op    CompareOp
	Value ir.Value
}

func (Comparison) predicate() {}

func (c Comparison) Match(row Row) bool {
	v, ok := row.Value(c.Field)
	if !ok {
		return false
	}
	order, err := ir.Compare(v, c.Value)
	if err != nil {
		return false
	}
	switch c.Op {
	case Eq:
		return order == 0
	case Ne:
		return order != 0
	case Gt:
		return order > 0
	case Lt:
		return order < 0
	case Ge:
		return order >= 0
	case Le:
		return order <= 0
	}
	return false
}

// Membership tests whether a field equals any of a set of values.
type Membership struct {
	Field  string
	Values []ir.Value
}

func (Membership) predicate() {}

func (m Membership) Match(row Row) bool {
	v, ok := row.Value(m.Field)
	if !ok {
		return false
	}
	for _, candidate := range m.Values {
		if ir.Equal(v, candidate) {
			return true
		}
	}
	return false
}

// Pattern is a case-insensitive substring, prefix or suffix test on a
// string field.
type Pattern struct {
	Field string
	Kind  PatternKind
	Text  string
}

func (Pattern) predicate() {}

func (p Pattern) Match(row Row) bool {
	v, ok := row.Value(p.Field)
	if !ok {
		return false
	}
	s, ok := v.(ir.String)
	if !ok {
		return false
	}
	// cases.Caser is stateful, so each call gets its own.
	haystack := cases.Fold().String(string(s))
	needle := cases.Fold().String(p.Text)
	switch p.Kind {
	case Contains:
		return strings.Contains(haystack, needle)
	case StartsWith:
		return strings.HasPrefix(haystack, needle)
	case EndsWith:
		return strings.HasSuffix(haystack, needle)
	}
	return false
}

// Conjunction matches when both sides match.
type Conjunction struct {
	Left, Right Predicate
}

func (Conjunction) predicate() {}

func (c Conjunction) Match(row Row) bool {
	return c.Left.Match(row) && c.Right.Match(row)
}

// Disjunction matches when either side matches.
type Disjunction struct {
	Left, Right Predicate
}

func (Disjunction) predicate() {}

func (d Disjunction) Match(row Row) bool {
	return d.Left.Match(row) || d.Right.Match(row)
}

// Negation inverts its operand.
type Negation struct {
	Operand Predicate
}

func (Negation) predicate() {}

func (n Negation) Match(row Row) bool {
	return !n.Operand.Match(row)
}

// Always returns the trivially true predicate.
func Always() Predicate { return True{} }

// And combines two predicates. Order is preserved: And(a, b) evaluates
// a before b.
func And(left, right Predicate) Predicate {
	return Conjunction{Left: left, Right: right}
}

// Or combines two predicates.
func Or(left, right Predicate) Predicate {
	return Disjunction{Left: left, Right: right}
}

// Not negates a predicate.
func Not(operand Predicate) Predicate {
	return Negation{Operand: operand}
}
