package store

import (
	"fmt"
	"slices"

	"github.com/roach88/shopfloor/internal/graph"
	"github.com/roach88/shopfloor/internal/ir"
	"github.com/roach88/shopfloor/internal/querysql"
	"github.com/roach88/shopfloor/internal/schema"
)

// Record is one stored entity. Values line up with the set's
// properties; a nil Value is null.
type Record struct {
	set    *schema.EntitySet
	values []ir.Value
}

// NewRecord builds a Record from property values keyed by property
// name. Missing properties are null.
func NewRecord(set *schema.EntitySet, values map[string]ir.Value) (Record, error) {
	r := Record{set: set, values: make([]ir.Value, len(set.Properties))}
	for name, v := range values {
		i := slices.IndexFunc(set.Properties, func(p schema.Property) bool { return p.Name == name })
		if i < 0 {
			return Record{}, fmt.Errorf("%w: %s has no property %q", querysql.ErrUnknownField, set.Name, name)
		}
		r.values[i] = v
	}
	return r, nil
}

// Set returns the entity set the record belongs to.
func (r Record) Set() *schema.EntitySet { return r.set }

// Value implements predicate.Row. Field names may be internal
// ("productNumber") or external ("ProductNumber").
func (r Record) Value(field string) (ir.Value, bool) {
	p, ok := r.set.Field(field)
	if !ok {
		return nil, false
	}
	for i := range r.set.Properties {
		if &r.set.Properties[i] == p {
			return r.values[i], true
		}
	}
	return nil, false
}

// Key returns the value of the first key property.
func (r Record) Key() ir.Value {
	v, _ := r.Value(r.set.Key[0])
	return v
}

// Fields returns the record's fields in declaration order.
func (r Record) Fields() []graph.Field {
	fields := make([]graph.Field, len(r.set.Properties))
	for i, p := range r.set.Properties {
		fields[i] = graph.Field{Name: p.Name, Value: r.values[i]}
	}
	return fields
}

// Entity builds a fresh graph node for the record. Every navigation of
// the set is listed with no target loaded.
func (r Record) Entity() *graph.Entity {
	e := &graph.Entity{
		Set:    r.set.Name,
		Key:    r.Key(),
		Fields: r.Fields(),
	}
	if len(r.set.Navigations) > 0 {
		e.Navigations = make([]graph.Navigation, len(r.set.Navigations))
		for i, nav := range r.set.Navigations {
			e.Navigations[i] = graph.Navigation{Name: nav.Name}
		}
	}
	return e
}
