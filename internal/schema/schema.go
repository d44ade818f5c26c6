// Package schema describes the entity model: which entity sets exist,
// which properties they expose, how those map to storage columns and how
// navigations join one set to another.
//
// Models are written in CUE. The built-in shop-floor model is embedded
// and returned by Default; Load reads a model from a directory of .cue
// files.
package schema

import (
	"github.com/roach88/shopfloor/internal/ir"
	"github.com/roach88/shopfloor/internal/queryir"
)

// Model is a compiled entity model.
type Model struct {
	Sets []EntitySet
}

// EntitySet is a named collection of entities of one type.
type EntitySet struct {
	Name        string
	Type        string
	Table       string
	Key         []string
	Properties  []Property
	Navigations []Navigation
}

// Property is a scalar field of an entity.
type Property struct {
	Name     string
	Column   string
	Kind     ir.Kind
	Nullable bool
}

// JoinStyle says how a navigation locates related rows.
type JoinStyle string

const (
	// JoinColumn: a foreign key on the source table (to-one).
	JoinColumn JoinStyle = "column"
	// JoinInverse: a foreign key on the target table pointing back.
	JoinInverse JoinStyle = "inverse"
	// JoinThrough: a join table holding both keys.
	JoinThrough JoinStyle = "through"
)

// Through is a join table.
type Through struct {
	Table  string
	Source string
	Target string
}

// Navigation is a named relationship from one entity set to another.
type Navigation struct {
	Name   string
	Target string
	Many   bool
	Style  JoinStyle

	// Column is the foreign key for JoinColumn and JoinInverse.
	Column  string
	Through Through
}

// Set returns the named entity set.
func (m *Model) Set(name string) (*EntitySet, bool) {
	for i := range m.Sets {
		if m.Sets[i].Name == name {
			return &m.Sets[i], true
		}
	}
	return nil, false
}

// SetNames returns entity set names in declaration order.
func (m *Model) SetNames() []string {
	names := make([]string, len(m.Sets))
	for i, s := range m.Sets {
		names[i] = s.Name
	}
	return names
}

// Property returns the property with the given external name.
func (s *EntitySet) Property(name string) (*Property, bool) {
	for i := range s.Properties {
		if s.Properties[i].Name == name {
			return &s.Properties[i], true
		}
	}
	return nil, false
}

// Field resolves a field reference as it appears in a query. Query
// field names are normalized (first letter lower-cased), so both
// "productNumber" and "ProductNumber" find the ProductNumber property.
func (s *EntitySet) Field(name string) (*Property, bool) {
	if p, ok := s.Property(name); ok {
		return p, true
	}
	want := queryir.NormalizeField(name)
	for i := range s.Properties {
		if queryir.NormalizeField(s.Properties[i].Name) == want {
			return &s.Properties[i], true
		}
	}
	return nil, false
}

// Column returns the storage column for a query field reference.
func (s *EntitySet) Column(field string) (string, bool) {
	p, ok := s.Field(field)
	if !ok {
		return "", false
	}
	return p.Column, true
}

// Navigation returns the named navigation.
func (s *EntitySet) Navigation(name string) (*Navigation, bool) {
	for i := range s.Navigations {
		if s.Navigations[i].Name == name {
			return &s.Navigations[i], true
		}
	}
	return nil, false
}

// KeyProperties returns the key properties in key order.
func (s *EntitySet) KeyProperties() []Property {
	out := make([]Property, 0, len(s.Key))
	for _, name := range s.Key {
		if p, ok := s.Property(name); ok {
			out = append(out, *p)
		}
	}
	return out
}

// Columns returns every property column in declaration order.
func (s *EntitySet) Columns() []string {
	cols := make([]string, len(s.Properties))
	for i, p := range s.Properties {
		cols[i] = p.Column
	}
	return cols
}
