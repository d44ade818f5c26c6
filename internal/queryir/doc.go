// Package queryir provides the expression tree that filter queries are
// expressed in before compilation.
//
// ARCHITECTURE:
//
// The expression tree is the boundary between whatever parses a query
// (a URL parser, a YAML filter document, a test) and the predicate
// compiler:
//
//	[$filter text] → [queryir.Node] → [predicate.Compile] → [query.Spec]
//	[filter.yaml]  ↗
//
// This package never parses raw $filter text. Callers hand it trees that
// are already structured.
//
// NODE VARIANTS:
//
//   - Literal{Text}: raw literal text, typed later by ir.Coerce
//   - FieldRef{Path}: an externally named field ("Name", "CreatedAt")
//   - Unary{Op, Operand}: "not" (logical) or "minus" (sign of a value)
//   - Binary{Op, Left, Right, Values}: and/or, comparisons, and "in"
//     whose candidate literals live in Values
//   - MethodCall{Name, Args}: contains/startswith/endswith
//
// SEALED INTERFACE:
//
// Node is sealed with a marker method. Only types in this package
// implement it, so a type switch over the five variants is exhaustive:
//
//	switch n := node.(type) {
//	case Literal:
//	case FieldRef:
//	case Unary:
//	case Binary:
//	case MethodCall:
//	}
//
// SHAPE RULES:
//
// A comparison's left operand is a FieldRef, or a single Unary minus
// wrapping a FieldRef. Its right operand is a Literal. An "in" has a
// FieldRef on the left and only Literals in Values. A MethodCall has
// exactly two arguments, a FieldRef then a Literal. Validate reports
// every violation at once; the compiler stops at the first.
package queryir
