package graph

import "github.com/roach88/shopfloor/internal/ir"

// LinkKind distinguishes to-one from to-many links.
type LinkKind string

const (
	LinkEntity    LinkKind = "entity"
	LinkEntitySet LinkKind = "entitySet"
)

// Projection is the flattened, transmission-ready form of an Entity.
type Projection struct {
	ID     string
	Set    string
	Fields []Field
	Links  []Link
}

// Link is one navigation of a projection. When Expanded is false the
// link carries no payload. For an expanded LinkEntity, Entity may still
// be nil when nothing is related.
type Link struct {
	Name     string
	Kind     LinkKind
	Href     string
	Expanded bool
	Entity   *Projection
	Entities []Projection
}

// Link returns the named link.
func (p Projection) Link(name string) (Link, bool) {
	for _, l := range p.Links {
		if l.Name == name {
			return l, true
		}
	}
	return Link{}, false
}

// Value returns the named scalar field.
func (p Projection) Value(name string) (ir.Value, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Document renders the projection as a JSON-ready map:
//
//	{
//	  "@id": "Orders(1)",
//	  "Id": 1, "Name": "...",
//	  "Equipments@navigationLink": "Orders(1)/Equipments",
//	  "Equipments": [ {...}, ... ]      // only when expanded
//	}
//
// Feed it to ir.MarshalCanonical for stable bytes.
func (p Projection) Document() map[string]any {
	doc := make(map[string]any, len(p.Fields)+2*len(p.Links)+1)
	doc["@id"] = p.ID
	for _, f := range p.Fields {
		doc[f.Name] = f.Value
	}
	for _, l := range p.Links {
		doc[l.Name+"@navigationLink"] = l.Href
		if !l.Expanded {
			continue
		}
		switch l.Kind {
		case LinkEntity:
			if l.Entity == nil {
				doc[l.Name] = nil
			} else {
				doc[l.Name] = l.Entity.Document()
			}
		case LinkEntitySet:
			items := make([]any, len(l.Entities))
			for i, e := range l.Entities {
				items[i] = e.Document()
			}
			doc[l.Name] = items
		}
	}
	return doc
}

// Documents renders a list of projections.
func Documents(ps []Projection) []any {
	out := make([]any, len(ps))
	for i, p := range ps {
		out[i] = p.Document()
	}
	return out
}
