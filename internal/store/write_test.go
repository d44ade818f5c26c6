package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shopfloor/internal/ir"
	"github.com/roach88/shopfloor/internal/query"
	"github.com/roach88/shopfloor/internal/querysql"
)

func TestInsert_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Insert(ctx, "Equipments", map[string]ir.Value{
		"Id":   ir.Int(5),
		"Name": ir.String("Labeler"),
		"Type": ir.String("Machine"),
	})
	require.NoError(t, err)

	records, err := s.Find(ctx, "Equipments", specFor(t, query.NewComposer()))
	require.NoError(t, err)
	require.Len(t, records, 1)

	fields := records[0].Fields()
	require.Len(t, fields, 9)
	assert.Equal(t, "Id", fields[0].Name)
	assert.Equal(t, ir.Int(5), fields[0].Value)
	assert.Equal(t, ir.String("Labeler"), fields[2].Value)
	assert.Nil(t, fields[1].Value)
}

func TestInsert_Rejects(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Insert(ctx, "Equipments", map[string]ir.Value{"Id": ir.Int(1), "Price": ir.Int(3)})
	assert.ErrorIs(t, err, querysql.ErrUnknownField)

	err = s.Insert(ctx, "Equipments", map[string]ir.Value{"Id": ir.String("x")})
	assert.ErrorContains(t, err, "Id holds int, got string")

	err = s.Insert(ctx, "Gadgets", map[string]ir.Value{"Id": ir.Int(1)})
	assert.ErrorIs(t, err, ErrUnknownEntitySet)

	require.NoError(t, s.Insert(ctx, "Equipments", map[string]ir.Value{"Id": ir.Int(1)}))
	assert.Error(t, s.Insert(ctx, "Equipments", map[string]ir.Value{"Id": ir.Int(1)}), "duplicate key")
}

func TestLink(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "Products", map[string]ir.Value{"Id": ir.Int(1)}))
	require.NoError(t, s.Insert(ctx, "Orders", map[string]ir.Value{"Id": ir.Int(7)}))
	require.NoError(t, s.Insert(ctx, "Equipments", map[string]ir.Value{"Id": ir.Int(3)}))

	// Inverse side writes the same column as the to-one side.
	require.NoError(t, s.Link(ctx, "Products", ir.Int(1), "OrdersAsAfter", ir.Int(7)))
	require.NoError(t, s.Link(ctx, "Equipments", ir.Int(3), "Orders", ir.Int(7)))
	require.NoError(t, s.Link(ctx, "Equipments", ir.Int(3), "Orders", ir.Int(7)), "through links are idempotent")

	var after int64
	require.NoError(t, s.DB().QueryRow("SELECT product_after_id FROM orders WHERE id = 7").Scan(&after))
	assert.Equal(t, int64(1), after)

	var pairs int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM order_equipments WHERE order_id = 7 AND equipment_id = 3").Scan(&pairs))
	assert.Equal(t, 1, pairs)
}

func TestLink_Errors(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, "Products", map[string]ir.Value{"Id": ir.Int(1)}))

	err := s.Link(ctx, "Orders", ir.Int(1), "Customer", ir.Int(1))
	assert.ErrorIs(t, err, ErrUnknownNavigation)

	err = s.Link(ctx, "Orders", ir.Int(99), "ProductBefore", ir.Int(1))
	assert.ErrorIs(t, err, ErrEntityNotFound)

	require.NoError(t, s.Insert(ctx, "Orders", map[string]ir.Value{"Id": ir.Int(2)}))
	err = s.Link(ctx, "Orders", ir.Int(2), "ProductBefore", ir.Int(50))
	assert.Error(t, err, "foreign key enforced")
}

func countRows(t *testing.T, s *Store, stmt string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB().QueryRow(stmt, args...).Scan(&n))
	return n
}

func TestCreate_AssignsNextKey(t *testing.T) {
	s := createSeededStore(t)
	ctx := context.Background()

	r, err := s.Create(ctx, "Orders", map[string]any{
		"Name":          "Labeling",
		"ProductBefore": 3,
		"Equipments":    []any{10},
	})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(4), r.Key())
	name, _ := r.Value("Name")
	assert.Equal(t, ir.String("Labeling"), name)

	assert.Equal(t, 1, countRows(t, s, "SELECT COUNT(*) FROM orders WHERE id = 4 AND product_before_id = 3"))
	assert.Equal(t, 1, countRows(t, s, "SELECT COUNT(*) FROM order_equipments WHERE order_id = 4"))
}

func TestCreate_ExplicitKey(t *testing.T) {
	s := createTestStore(t)

	r, err := s.Create(context.Background(), "Equipments", map[string]any{"Id": 20, "Name": "Sealer"})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(20), r.Key())

	r, err = s.Create(context.Background(), "Equipments", map[string]any{"Id": nil, "Name": "Labeler"})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(21), r.Key())
}

func TestCreate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		set  string
		row  map[string]any
		want error
	}{
		{"duplicate key", "Orders", map[string]any{"Id": 1}, ErrDuplicateKey},
		{"unknown field", "Orders", map[string]any{"Price": 3}, querysql.ErrUnknownField},
		{"wrong kind", "Orders", map[string]any{"Id": "x"}, ErrInvalidValue},
		{"list for to-one", "Orders", map[string]any{"ProductBefore": []any{1, 2}}, ErrInvalidValue},
		{"dangling link", "Orders", map[string]any{"Name": "Ghost", "Equipments": []any{10, 99}}, ErrEntityNotFound},
		{"unknown set", "Customers", map[string]any{"Id": 1}, ErrUnknownEntitySet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createSeededStore(t)

			_, err := s.Create(context.Background(), tt.set, tt.row)
			assert.ErrorIs(t, err, tt.want)

			assert.Equal(t, 3, countRows(t, s, "SELECT COUNT(*) FROM orders"))
			assert.Equal(t, 3, countRows(t, s, "SELECT COUNT(*) FROM order_equipments"))
		})
	}
}

func TestUpdate_PatchesNamedProperties(t *testing.T) {
	s := createSeededStore(t)

	r, err := s.Update(context.Background(), "Orders", ir.Int(1), map[string]any{
		"Id":          1,
		"Name":        "Refilling",
		"Description": nil,
	})
	require.NoError(t, err)

	name, _ := r.Value("Name")
	assert.Equal(t, ir.String("Refilling"), name)
	number, _ := r.Value("OrderNumber")
	assert.Equal(t, ir.String("ORD-1"), number)
	desc, _ := r.Value("Description")
	assert.Nil(t, desc)

	assert.Equal(t, 1, countRows(t, s, "SELECT COUNT(*) FROM orders WHERE id = 1 AND product_before_id = 1"))
}

func TestUpdate_EmptyPatch(t *testing.T) {
	s := createSeededStore(t)

	r, err := s.Update(context.Background(), "Products", ir.Int(2), map[string]any{})
	require.NoError(t, err)
	name, _ := r.Value("Name")
	assert.Equal(t, ir.String("Valve"), name)
}

func TestUpdate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		key  ir.Value
		row  map[string]any
		want error
	}{
		{"key change", ir.Int(1), map[string]any{"Id": 5}, ErrKeyImmutable},
		{"null key", ir.Int(1), map[string]any{"Id": nil}, ErrKeyImmutable},
		{"navigation", ir.Int(1), map[string]any{"ProductBefore": 2}, ErrInvalidValue},
		{"wrong kind", ir.Int(1), map[string]any{"TotalTimeRequired": "long"}, ErrInvalidValue},
		{"unknown field", ir.Int(1), map[string]any{"Price": 3}, querysql.ErrUnknownField},
		{"missing row", ir.Int(99), map[string]any{"Name": "x"}, ErrEntityNotFound},
		{"missing row empty patch", ir.Int(99), map[string]any{}, ErrEntityNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createSeededStore(t)

			_, err := s.Update(context.Background(), "Orders", tt.key, tt.row)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 1, countRows(t, s, "SELECT COUNT(*) FROM orders WHERE id = 1 AND name = 'Bottling'"))
		})
	}
}

func TestDelete_ClearsJoinRows(t *testing.T) {
	s := createSeededStore(t)

	res, err := s.Delete(context.Background(), "Orders", ir.Int(1))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Unlinked)

	assert.Equal(t, 2, countRows(t, s, "SELECT COUNT(*) FROM orders"))
	assert.Equal(t, 1, countRows(t, s, "SELECT COUNT(*) FROM order_equipments"))
	assert.Equal(t, 2, countRows(t, s, "SELECT COUNT(*) FROM equipments"))
}

func TestDelete_ClearsForeignKeys(t *testing.T) {
	s := createSeededStore(t)

	res, err := s.Delete(context.Background(), "Products", ir.Int(2))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Unlinked)

	assert.Equal(t, 3, countRows(t, s, "SELECT COUNT(*) FROM orders"))
	assert.Equal(t, 1, countRows(t, s, "SELECT COUNT(*) FROM orders WHERE id = 1 AND product_before_id = 1 AND product_after_id IS NULL"))
	assert.Equal(t, 1, countRows(t, s, "SELECT COUNT(*) FROM orders WHERE id = 2 AND product_before_id IS NULL"))
}

func TestDelete_Unreferenced(t *testing.T) {
	s := createSeededStore(t)

	res, err := s.Delete(context.Background(), "Products", ir.Int(3))
	require.NoError(t, err)
	assert.Zero(t, res.Unlinked)
	assert.Equal(t, 2, countRows(t, s, "SELECT COUNT(*) FROM products"))
}

func TestDelete_Errors(t *testing.T) {
	s := createSeededStore(t)
	ctx := context.Background()

	_, err := s.Delete(ctx, "Orders", ir.Int(99))
	assert.ErrorIs(t, err, ErrEntityNotFound)

	_, err = s.Delete(ctx, "Customers", ir.Int(1))
	assert.ErrorIs(t, err, ErrUnknownEntitySet)

	assert.Equal(t, 3, countRows(t, s, "SELECT COUNT(*) FROM order_equipments"))
}

func TestReferences(t *testing.T) {
	s := createTestStore(t)

	orders, _ := s.model.Set("Orders")
	assert.Equal(t, []string{
		"DELETE FROM order_equipments WHERE order_id = ?",
	}, s.references(orders))

	products, _ := s.model.Set("Products")
	assert.ElementsMatch(t, []string{
		"UPDATE orders SET product_before_id = NULL WHERE product_before_id = ?",
		"UPDATE orders SET product_after_id = NULL WHERE product_after_id = ?",
	}, s.references(products))
}
