package query

import "github.com/roach88/shopfloor/internal/queryir"

// OrderItem is one requested sort key, field named externally.
type OrderItem struct {
	Field      string
	Descending bool
}

// OrderTerm is one compiled sort key, field named internally.
type OrderTerm struct {
	Field     string
	Ascending bool
}

// OrderSpec is an ordered list of sort keys. An empty spec leaves rows
// in storage-natural order.
type OrderSpec []OrderTerm

// CompileOrder converts requested sort keys into an OrderSpec. Field
// names are normalized here so callers never do it themselves.
func CompileOrder(items []OrderItem) OrderSpec {
	spec := make(OrderSpec, 0, len(items))
	for _, item := range items {
		spec = append(spec, OrderTerm{
			Field:     queryir.NormalizeField(item.Field),
			Ascending: !item.Descending,
		})
	}
	return spec
}
