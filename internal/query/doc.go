// Package query composes compiled predicates, ordering and pagination
// into the immutable Spec handed to storage.
//
//	filter tree ─┐
//	keys ────────┼─> Composer ──Build──> Spec ──> store / Apply
//	order items ─┤
//	top / skip ──┘
package query
