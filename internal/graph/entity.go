// Package graph flattens entity graphs into depth-bounded projections.
//
// Entities reference each other through navigations, and the shop-floor
// schema is cyclic (an Order's Equipments list their Orders, which list
// their Equipments, ...). The projector never tracks visited entities:
// the expansion depth handed down each level is the only thing that
// stops the walk, so the same entity may appear several times in one
// projection when the depth allows it.
package graph

import (
	"github.com/roach88/shopfloor/internal/ir"
)

// Entity is one node of an entity graph as loaded for a single request.
type Entity struct {
	Set         string
	Key         ir.Value
	Fields      []Field
	Navigations []Navigation
}

// Field is a scalar property. A nil Value is null.
type Field struct {
	Name  string
	Value ir.Value
}

// Navigation is a named edge to related entities.
type Navigation struct {
	Name   string
	Target NavTarget
}

// NavTarget is what a navigation points at.
//
// This is a sealed interface - only Single and Collection implement it.
type NavTarget interface {
	navTarget()
}

// Single is a to-one navigation. A nil Entity means nothing is related.
type Single struct {
	Entity *Entity
}

func (Single) navTarget() {}

// Collection is a to-many navigation.
type Collection struct {
	Entities []*Entity
}

func (Collection) navTarget() {}

// Value returns the named scalar field.
func (e *Entity) Value(name string) (ir.Value, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Navigation returns the named navigation.
func (e *Entity) Navigation(name string) (Navigation, bool) {
	for _, n := range e.Navigations {
		if n.Name == name {
			return n, true
		}
	}
	return Navigation{}, false
}

// ID returns the entity's own identifier, e.g. "Orders(42)".
func (e *Entity) ID() string {
	return EntityID(e.Set, e.Key, "")
}
