package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shopfloor/internal/graph"
	"github.com/roach88/shopfloor/internal/ir"
	"github.com/roach88/shopfloor/internal/query"
	"github.com/roach88/shopfloor/internal/schema"
	"github.com/roach88/shopfloor/internal/store"
)

func TestShopFloorFixture_Stamps(t *testing.T) {
	f, err := ShopFloorFixture()
	require.NoError(t, err)

	require.Len(t, f["Products"], 3)
	require.Len(t, f["Orders"], 3)
	require.Len(t, f["Equipments"], 2)

	// Products come first in model order.
	pump := f["Products"][0]
	assert.Equal(t, DefaultEpoch, pump["CreatedAt"])
	assert.Equal(t, DefaultEpoch.Add(time.Minute), pump["UpdatedAt"])
	assert.Equal(t, int64(1), pump["CreatedBy"])

	bottling := f["Orders"][0]
	assert.Equal(t, DefaultEpoch.Add(6*time.Minute), bottling["CreatedAt"])
}

func TestShopFloorFixture_Stable(t *testing.T) {
	a, err := ShopFloorFixture()
	require.NoError(t, err)
	b, err := ShopFloorFixture()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestStamp_KeepsExplicitValues(t *testing.T) {
	model, err := schema.Default()
	require.NoError(t, err)
	explicit := time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)
	f := store.Fixture{"Equipments": {{"Id": 9, "CreatedAt": explicit}}}

	Stamp(f, model, NewDeterministicClock(DefaultEpoch, time.Minute))

	row := f["Equipments"][0]
	assert.Equal(t, explicit, row["CreatedAt"])
	// The clock still ticks for the skipped field.
	assert.Equal(t, DefaultEpoch.Add(time.Minute), row["UpdatedAt"])
}

func TestOpenShopFloor(t *testing.T) {
	s := OpenShopFloor(t)
	ctx := context.Background()
	spec, err := query.NewComposer().Build()
	require.NoError(t, err)

	for set, want := range map[string]int64{"Products": 3, "Orders": 3, "Equipments": 2} {
		n, err := s.Count(ctx, set, spec)
		require.NoError(t, err)
		assert.Equal(t, want, n, set)
	}

	products, err := s.Find(ctx, "Products", spec)
	require.NoError(t, err)
	created, _ := products[1].Value("CreatedAt")
	assert.Equal(t, ir.Timestamp{Time: DefaultEpoch.Add(2 * time.Minute)}, created)
}

func TestOpenStore_Empty(t *testing.T) {
	s := OpenStore(t)
	spec, err := query.NewComposer().Build()
	require.NoError(t, err)
	n, err := s.Count(context.Background(), "Orders", spec)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCyclicGraph(t *testing.T) {
	order := CyclicGraph()

	equipments, ok := order.Navigation("Equipments")
	require.True(t, ok)
	filler := equipments.Target.(graph.Collection).Entities[0]
	back, _ := filler.Navigation("Orders")
	assert.Same(t, order, back.Target.(graph.Collection).Entities[0])

	// The depth budget alone ends the walk.
	p := graph.Projector{}.Project(order, 3)
	link, _ := p.Link("Equipments")
	require.Len(t, link.Entities, 1)
	inner, _ := link.Entities[0].Link("Orders")
	require.Len(t, inner.Entities, 1)
	innermost, _ := inner.Entities[0].Link("Equipments")
	require.Len(t, innermost.Entities, 1)
	last, _ := innermost.Entities[0].Link("Orders")
	assert.False(t, last.Expanded)
}
