package graph

import "slices"

// DefaultExpandDepth is how many navigation hops are embedded when the
// caller does not say otherwise.
const DefaultExpandDepth = 2

// Projector flattens entity graphs. The zero value is ready to use and
// holds no state, so one Projector may serve concurrent requests.
type Projector struct{}

// Project flattens root, embedding related entities up to depth hops
// away. Every navigation yields a link; only links within the depth
// budget carry a payload. Negative depths count as zero.
func (Projector) Project(root *Entity, depth int) Projection {
	return project(root, root.ID(), max(depth, 0))
}

// ProjectMany projects each root independently with the same depth.
func (p Projector) ProjectMany(roots []*Entity, depth int) []Projection {
	out := make([]Projection, 0, len(roots))
	for _, root := range roots {
		out = append(out, p.Project(root, depth))
	}
	return out
}

func project(e *Entity, id string, depth int) Projection {
	proj := Projection{
		ID:     id,
		Set:    e.Set,
		Fields: slices.Clone(e.Fields),
		Links:  make([]Link, 0, len(e.Navigations)),
	}

	for _, nav := range e.Navigations {
		link := Link{
			Name:     nav.Name,
			Href:     NavigationLink(e.Set, e.Key, nav.Name),
			Expanded: depth > 0,
		}
		embeddedID := EntityID(e.Set, e.Key, nav.Name)

		switch target := nav.Target.(type) {
		case Single:
			link.Kind = LinkEntity
			if link.Expanded && target.Entity != nil {
				child := project(target.Entity, embeddedID, depth-1)
				link.Entity = &child
			}
		case Collection:
			link.Kind = LinkEntitySet
			if link.Expanded {
				link.Entities = make([]Projection, 0, len(target.Entities))
				for _, related := range target.Entities {
					if related == nil {
						continue
					}
					link.Entities = append(link.Entities, project(related, embeddedID, depth-1))
				}
			}
		default:
			// Unloaded: link only.
			link.Expanded = false
		}
		proj.Links = append(proj.Links, link)
	}
	return proj
}
