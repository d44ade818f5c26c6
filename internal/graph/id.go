package graph

import (
	"strings"

	"github.com/roach88/shopfloor/internal/ir"
)

// EntityID builds an entity identifier from a set name and key:
// "Orders(42)". With a navigation name the key is repeated after it:
// "Orders(42)/Equipments(42)".
//
// Embedded entities are identified through their parent this way, with
// the parent's key on both sides, not by their own key. Clients already
// depend on these identifiers.
func EntityID(set string, key ir.Value, navigation string) string {
	k := ir.Format(key)

	var sb strings.Builder
	sb.WriteString(set)
	sb.WriteByte('(')
	sb.WriteString(k)
	sb.WriteByte(')')
	if navigation != "" {
		sb.WriteByte('/')
		sb.WriteString(navigation)
		sb.WriteByte('(')
		sb.WriteString(k)
		sb.WriteByte(')')
	}
	return sb.String()
}

// NavigationLink is the address of a navigation on an entity:
// "Orders(42)/Equipments".
func NavigationLink(set string, key ir.Value, navigation string) string {
	return EntityID(set, key, "") + "/" + navigation
}
