package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shopfloor/internal/ir"
)

func TestDefaultModel(t *testing.T) {
	m, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []string{"Products", "Orders", "Equipments"}, m.SetNames())

	orders, ok := m.Set("Orders")
	require.True(t, ok)
	assert.Equal(t, "Order", orders.Type)
	assert.Equal(t, "orders", orders.Table)
	assert.Equal(t, []string{"Id"}, orders.Key)
	require.Len(t, orders.Properties, 9)
	assert.Equal(t, Property{Name: "Id", Column: "id", Kind: ir.KindInt, Nullable: false}, orders.Properties[0])
	assert.Equal(t, Property{Name: "TotalTimeRequired", Column: "total_time_required", Kind: ir.KindFloat, Nullable: true}, orders.Properties[8])

	before, ok := orders.Navigation("ProductBefore")
	require.True(t, ok)
	assert.Equal(t, Navigation{Name: "ProductBefore", Target: "Products", Style: JoinColumn, Column: "product_before_id"}, *before)

	equipments, ok := orders.Navigation("Equipments")
	require.True(t, ok)
	assert.True(t, equipments.Many)
	assert.Equal(t, JoinThrough, equipments.Style)
	assert.Equal(t, Through{Table: "order_equipments", Source: "order_id", Target: "equipment_id"}, equipments.Through)

	products, _ := m.Set("Products")
	asAfter, ok := products.Navigation("OrdersAsAfter")
	require.True(t, ok)
	assert.Equal(t, JoinInverse, asAfter.Style)
	assert.Equal(t, "product_after_id", asAfter.Column)

	_, ok = m.Set("Customers")
	assert.False(t, ok)
}

func TestDefaultIsShared(t *testing.T) {
	a, err := Default()
	require.NoError(t, err)
	b, err := Default()
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestFieldResolution(t *testing.T) {
	m, err := Default()
	require.NoError(t, err)
	products, _ := m.Set("Products")

	col, ok := products.Column("productNumber")
	require.True(t, ok)
	assert.Equal(t, "product_number", col)

	col, ok = products.Column("ProductNumber")
	require.True(t, ok)
	assert.Equal(t, "product_number", col)

	_, ok = products.Column("price")
	assert.False(t, ok)

	assert.Equal(t, []Property{{Name: "Id", Column: "id", Kind: ir.KindInt}}, products.KeyProperties())
	assert.Len(t, products.Columns(), 13)
	assert.Equal(t, "id", products.Columns()[0])
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "no sets",
			src:  `other: 1`,
			want: "entity_set",
		},
		{
			name: "missing table",
			src: `entity_set: A: {
				type: "A"
				key: ["Id"]
				properties: Id: {kind: "int", column: "id", nullable: false}
			}`,
			want: "table is required",
		},
		{
			name: "unknown kind",
			src: `entity_set: A: {
				type: "A", table: "a", key: ["Id"]
				properties: Id: {kind: "money", column: "id", nullable: false}
			}`,
			want: "unknown value kind",
		},
		{
			name: "key not a property",
			src: `entity_set: A: {
				type: "A", table: "a", key: ["Code"]
				properties: Id: {kind: "int", column: "id", nullable: false}
			}`,
			want: "key Code is not a property",
		},
		{
			name: "nullable key",
			src: `entity_set: A: {
				type: "A", table: "a", key: ["Id"]
				properties: Id: {kind: "int", column: "id"}
			}`,
			want: "must not be nullable",
		},
		{
			name: "unknown target",
			src: `entity_set: A: {
				type: "A", table: "a", key: ["Id"]
				properties: Id: {kind: "int", column: "id", nullable: false}
				navigation: B: {target: "B", column: "b_id"}
			}`,
			want: "unknown entity set B",
		},
		{
			name: "two join styles",
			src: `entity_set: A: {
				type: "A", table: "a", key: ["Id"]
				properties: Id: {kind: "int", column: "id", nullable: false}
				navigation: Self: {target: "A", column: "a_id", inverse: "a_id"}
			}`,
			want: "exactly one of column, inverse or through",
		},
		{
			name: "many column join",
			src: `entity_set: A: {
				type: "A", table: "a", key: ["Id"]
				properties: Id: {kind: "int", column: "id", nullable: false}
				navigation: Self: {target: "A", many: true, column: "a_id"}
			}`,
			want: "cannot set many",
		},
		{
			name: "single inverse join",
			src: `entity_set: A: {
				type: "A", table: "a", key: ["Id"]
				properties: Id: {kind: "int", column: "id", nullable: false}
				navigation: Children: {target: "A", inverse: "parent_id"}
			}`,
			want: "need many: true",
		},
		{
			name: "shared table",
			src: `entity_set: A: {
				type: "A", table: "t", key: ["Id"]
				properties: Id: {kind: "int", column: "id", nullable: false}
			}
			entity_set: B: {
				type: "B", table: "t", key: ["Id"]
				properties: Id: {kind: "int", column: "id", nullable: false}
			}`,
			want: "share table t",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "test.cue")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseConflict(t *testing.T) {
	src := "entity_set: A: type: \"A\"\nentity_set: A: type: \"B\"\n"

	_, err := Parse([]byte(src), "conflict.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicting values")
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "key", Message: "bad"}
	assert.Equal(t, "key: bad", err.Error())
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	src := `package plant

entity_set: Lines: {
	type:  "Line"
	table: "lines"
	key: ["Id"]
	properties: {
		Id: {kind: "int", column: "id", nullable: false}
		Name: {kind: "string", column: "name"}
		Commissioned: {kind: "date", column: "commissioned"}
	}
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plant.cue"), []byte(src), 0o644))

	m, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, m.Sets, 1)
	lines := m.Sets[0]
	assert.Equal(t, "Lines", lines.Name)
	assert.Empty(t, lines.Navigations)
	p, ok := lines.Property("Commissioned")
	require.True(t, ok)
	assert.Equal(t, ir.KindDate, p.Kind)
}

func TestLoadMissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadEmbeddedSourceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFilename), DefaultSource(), 0o644))

	loaded, err := Load(dir)
	require.NoError(t, err)
	def, err := Default()
	require.NoError(t, err)
	assert.Equal(t, def, loaded)
}
