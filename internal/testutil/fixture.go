package testutil

import (
	"context"
	_ "embed"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/shopfloor/internal/graph"
	"github.com/roach88/shopfloor/internal/ir"
	"github.com/roach88/shopfloor/internal/schema"
	"github.com/roach88/shopfloor/internal/store"
)

//go:embed testdata/shopfloor.yaml
var shopFloorYAML []byte

// ShopFloorYAML returns the raw shop-floor fixture: three products,
// three orders and two equipments, with order 1 linked to both
// equipments, order 2 to one, and order 3 left bare.
func ShopFloorYAML() []byte {
	return append([]byte(nil), shopFloorYAML...)
}

// ShopFloorFixture decodes the shop-floor fixture and stamps every row
// with audit fields. Sets are stamped in model order, one minute apart
// from DefaultEpoch, so the timestamps are identical on every call.
func ShopFloorFixture() (store.Fixture, error) {
	model, err := schema.Default()
	if err != nil {
		return nil, err
	}
	f, err := store.ParseFixture(shopFloorYAML)
	if err != nil {
		return nil, err
	}
	Stamp(f, model, NewDeterministicClock(DefaultEpoch, time.Minute))
	return f, nil
}

// Stamp fills CreatedAt/UpdatedAt from clock and CreatedBy/UpdatedBy
// with user 1 on every row of f that lacks them.
func Stamp(f store.Fixture, model *schema.Model, clock *DeterministicClock) {
	for _, name := range model.SetNames() {
		for _, row := range f[name] {
			stampField(row, "CreatedAt", clock.Next())
			stampField(row, "UpdatedAt", clock.Next())
			stampField(row, "CreatedBy", int64(1))
			stampField(row, "UpdatedBy", int64(1))
		}
	}
}

func stampField(row map[string]any, field string, v any) {
	if _, ok := row[field]; !ok {
		row[field] = v
	}
}

// OpenStore opens an empty store on a temp file with the default model.
// The store is closed when the test ends.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	model, err := schema.Default()
	require.NoError(t, err)
	s, err := store.Open(filepath.Join(t.TempDir(), "shopfloor.db"), model)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// OpenShopFloor opens a store seeded with ShopFloorFixture.
func OpenShopFloor(t testing.TB) *store.Store {
	t.Helper()
	s := OpenStore(t)
	f, err := ShopFloorFixture()
	require.NoError(t, err)
	_, err = s.Seed(context.Background(), f)
	require.NoError(t, err)
	return s
}

// CyclicGraph builds an in-memory order whose product and equipment
// point back at the very same order value:
//
//	Orders(1) -ProductBefore-> Products(1) -OrdersAsBefore-> Orders(1)
//	Orders(1) -Equipments-> Equipments(10) -Orders-> Orders(1)
//
// ProductAfter is empty.
func CyclicGraph() *graph.Entity {
	order := &graph.Entity{
		Set: "Orders",
		Key: ir.Int(1),
		Fields: []graph.Field{
			{Name: "Id", Value: ir.Int(1)},
			{Name: "Name", Value: ir.String("Bottling")},
		},
	}
	product := &graph.Entity{
		Set: "Products",
		Key: ir.Int(1),
		Fields: []graph.Field{
			{Name: "Id", Value: ir.Int(1)},
			{Name: "Name", Value: ir.String("Pump")},
		},
	}
	equipment := &graph.Entity{
		Set: "Equipments",
		Key: ir.Int(10),
		Fields: []graph.Field{
			{Name: "Id", Value: ir.Int(10)},
			{Name: "Name", Value: ir.String("Filler")},
		},
	}

	order.Navigations = []graph.Navigation{
		{Name: "ProductBefore", Target: graph.Single{Entity: product}},
		{Name: "ProductAfter", Target: graph.Single{}},
		{Name: "Equipments", Target: graph.Collection{Entities: []*graph.Entity{equipment}}},
	}
	product.Navigations = []graph.Navigation{
		{Name: "OrdersAsBefore", Target: graph.Collection{Entities: []*graph.Entity{order}}},
		{Name: "OrdersAsAfter", Target: graph.Collection{}},
	}
	equipment.Navigations = []graph.Navigation{
		{Name: "Orders", Target: graph.Collection{Entities: []*graph.Entity{order}}},
	}
	return order
}
