package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/shopfloor/internal/query"
	"github.com/roach88/shopfloor/internal/queryir"
	"github.com/roach88/shopfloor/internal/schema"
)

const testFixture = `
Products:
  - Id: 1
    ProductNumber: P-100
    Name: Pump
    Type: A
    Country: DE
    Description: Stainless steel pump
    CreatedAt: "2024-01-01T08:00:00Z"
  - Id: 2
    ProductNumber: P-200
    Name: Valve
    Type: B
    Country: US
    Description: Brass valve
  - Id: 3
    ProductNumber: P-300
    Name: Ärger Filter
    Type: A
    Country: DE
Orders:
  - Id: 1
    OrderNumber: ORD-1
    Name: Bottling
    TotalTimeRequired: 12.5
    ProductBefore: 1
    ProductAfter: 2
    Equipments: [10, 11]
  - Id: 2
    OrderNumber: ORD-2
    Name: Packing
    TotalTimeRequired: 4
    ProductBefore: 2
    Equipments: [11]
  - Id: 3
    OrderNumber: ORD-3
    Name: Cleaning
Equipments:
  - Id: 10
    EquipmentNumber: EQ-10
    Name: Filler
    Type: Machine
  - Id: 11
    EquipmentNumber: EQ-11
    Name: Capper
    Type: Machine
`

// createTestStore opens an empty store on a temp file with the default
// model.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	model, err := schema.Default()
	require.NoError(t, err)
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), model)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createSeededStore opens a store holding testFixture.
func createSeededStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	f, err := ParseFixture([]byte(testFixture))
	require.NoError(t, err)
	_, err = s.Seed(context.Background(), f)
	require.NoError(t, err)
	return s
}

func specFor(t *testing.T, c query.Composer) query.Spec {
	t.Helper()
	spec, err := c.Build()
	require.NoError(t, err)
	return spec
}

func filterSpec(t *testing.T, n queryir.Node) query.Spec {
	t.Helper()
	return specFor(t, query.NewComposer().AddFilter(n))
}

func keys(records []Record) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = r.Key()
	}
	return out
}
