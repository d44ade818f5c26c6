package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shopfloor/internal/query"
)

// response mirrors CLIResponse with the payload left raw.
type response struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
	Error     *CLIError       `json:"error"`
	RequestID string          `json:"request_id"`
}

func decode(t *testing.T, out string) response {
	t.Helper()
	var resp response
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

type collectionData struct {
	EntitySet string           `json:"entity_set"`
	Value     []map[string]any `json:"value"`
	Count     *int64           `json:"count"`
}

const packingFilter = `binary: eq
left: {field: Name}
right: {literal: "'Packing'"}
`

func TestSeedCommand(t *testing.T) {
	dir := t.TempDir()
	fixture := writeFile(t, "fixture.yaml", "Equipments:\n  - Id: 1\n    Name: Press\n")
	db := filepath.Join(dir, "seed.db")

	out, err := execute(t, "seed", fixture, "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "✓ Seeded 1 rows and 0 links into "+db+"\n", out)
}

func TestSeedCommand_JSON(t *testing.T) {
	db := filepath.Join(t.TempDir(), "seed.db")
	fixture := writeFile(t, "fixture.yaml", "Equipments:\n  - Id: 1\n")

	out, err := execute(t, "seed", fixture, "--db", db, "--format", "json")
	require.NoError(t, err)

	resp := decode(t, out)
	assert.Equal(t, "ok", resp.Status)
	var res SeedResult
	require.NoError(t, json.Unmarshal(resp.Data, &res))
	assert.Equal(t, SeedResult{DB: db, Rows: 1, Links: 0}, res)
}

func TestSeedCommand_Errors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "seed.db")

	_, err := execute(t, "seed", filepath.Join(t.TempDir(), "missing.yaml"), "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	bad := writeFile(t, "bad.yaml", "Customers:\n  - Id: 1\n")
	out, err := execute(t, "seed", bad, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "UNKNOWN_ENTITY_SET")
}

func TestQueryCommand_JSON(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "query", "Products", "--db", db, "--format", "json",
		"--orderby", "-Id", "--top", "2", "--count", "--expand", "0")
	require.NoError(t, err)

	resp := decode(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.RequestID)

	var data collectionData
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "Products", data.EntitySet)
	require.NotNil(t, data.Count)
	assert.Equal(t, int64(3), *data.Count)

	require.Len(t, data.Value, 2)
	first := data.Value[0]
	assert.Equal(t, "Products(3)", first["@id"])
	assert.Equal(t, "Ärger Filter", first["Name"])
	assert.Nil(t, first["Description"])
	assert.Equal(t, "Products(3)/OrdersAsBefore", first["OrdersAsBefore@navigationLink"])
	assert.NotContains(t, first, "OrdersAsBefore", "depth 0 embeds nothing")
	assert.Equal(t, "Products(2)", data.Value[1]["@id"])
}

func TestQueryCommand_TextWithFilter(t *testing.T) {
	db := seededDB(t)
	filter := writeFile(t, "packing.yaml", packingFilter)

	out, err := execute(t, "query", "Orders", "--db", db, "--filter", filter, "--expand", "1")
	require.NoError(t, err)

	assert.Contains(t, out, "Orders(2)\n  Id: 2\n")
	assert.Contains(t, out, "  Name: Packing\n")
	assert.Contains(t, out, "  TotalTimeRequired: 4\n")
	assert.Contains(t, out, "  ProductBefore -> Orders(2)/ProductBefore\n    Orders(2)/ProductBefore(2)\n      Id: 2\n")
	assert.NotContains(t, out, "Orders(1)")
	assert.NotContains(t, out, "count:")
}

func TestQueryCommand_Empty(t *testing.T) {
	db := seededDB(t)
	filter := writeFile(t, "none.yaml", "binary: eq\nleft: {field: Id}\nright: {literal: \"99\"}\n")

	out, err := execute(t, "query", "Equipments", "--db", db, "--filter", filter, "--count")
	require.NoError(t, err)
	assert.Equal(t, "no entities\ncount: 0\n", out)
}

func TestQueryCommand_Errors(t *testing.T) {
	db := seededDB(t)
	unknownField := writeFile(t, "price.yaml", "binary: gt\nleft: {field: Price}\nright: {literal: \"1\"}\n")
	malformed := writeFile(t, "malformed.yaml", "binary: eq\nleft: {field: Id}\n")

	tests := []struct {
		name     string
		args     []string
		wantExit int
		wantOut  string
	}{
		{"unknown set", []string{"query", "Customers"}, ExitFailure, "UNKNOWN_ENTITY_SET"},
		{"unknown field", []string{"query", "Products", "--filter", unknownField}, ExitFailure, "UNKNOWN_FIELD"},
		{"unknown order field", []string{"query", "Products", "--orderby", "Price"}, ExitFailure, "UNKNOWN_FIELD"},
		{"search", []string{"query", "Products", "--search", "pump"}, ExitFailure, "UNSUPPORTED_SEARCH"},
		{"negative top", []string{"query", "Products", "--top", "-1"}, ExitFailure, "INVALID_LIMIT"},
		{"malformed filter", []string{"query", "Products", "--filter", malformed}, ExitFailure, ErrCodeBadFilter},
		{"missing filter", []string{"query", "Products", "--filter", "nope.yaml"}, ExitCommandError, ErrCodeReadFailed},
		{"bad orderby", []string{"query", "Products", "--orderby", "Name sideways"}, ExitCommandError, ErrCodeBadFlag},
		{"conflicting orderby", []string{"query", "Products", "--orderby", "-Name asc"}, ExitCommandError, ErrCodeBadFlag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append(tt.args, "--db", db)...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.wantOut+"]")
		})
	}
}

func TestQueryCommand_JSONError(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "query", "Customers", "--db", db, "--format", "json")
	require.Error(t, err)

	resp := decode(t, out)
	assert.Equal(t, "error", resp.Status)
	assert.NotEmpty(t, resp.RequestID)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNKNOWN_ENTITY_SET", resp.Error.Code)
}

func TestGetCommand_Entity(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "get", "Orders", "--db", db, "--key", "Id=1", "--expand", "1", "--format", "json")
	require.NoError(t, err)

	resp := decode(t, out)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &doc))
	assert.Equal(t, "Orders(1)", doc["@id"])
	assert.Equal(t, "Bottling", doc["Name"])
	assert.Equal(t, 12.5, doc["TotalTimeRequired"])

	before, ok := doc["ProductBefore"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Orders(1)/ProductBefore(1)", before["@id"])
	assert.Equal(t, "Pump", before["Name"])
	assert.NotContains(t, before, "OrdersAsBefore", "one hop only")

	equipments, ok := doc["Equipments"].([]any)
	require.True(t, ok)
	assert.Len(t, equipments, 2)
}

func TestGetCommand_Text(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "get", "Equipments", "--db", db, "-k", "Id=11", "--expand", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Equipments(11)\n  Id: 11\n")
	assert.Contains(t, out, "  Orders -> Equipments(11)/Orders\n")
}

func TestGetCommand_Property(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "get", "Products", "--db", db, "--key", "Id=2", "--property", "Name")
	require.NoError(t, err)
	assert.Equal(t, "Valve\n", out)

	out, err = execute(t, "get", "Products", "--db", db, "--key", "Id=3", "--property", "Description")
	require.NoError(t, err)
	assert.Equal(t, "no content\n", out)

	out, err = execute(t, "get", "Products", "--db", db, "--key", "Id=2", "--property", "Name", "--format", "json")
	require.NoError(t, err)
	resp := decode(t, out)
	assert.JSONEq(t, `{"entity_set":"Products","property":"Name","value":"Valve"}`, string(resp.Data))
}

func TestGetCommand_Errors(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "get", "Orders", "--db", db, "--key", "Id=99")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [ENTITY_NOT_FOUND]")

	out, err = execute(t, "get", "Products", "--db", db, "--key", "Id=1", "--property", "Price")
	require.Error(t, err)
	assert.Contains(t, out, "Error [PROPERTY_NOT_FOUND]")

	_, err = execute(t, "get", "Orders", "--db", db, "--key", "Id")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestParseOrderBy(t *testing.T) {
	tests := []struct {
		in   string
		want []query.OrderItem
	}{
		{"", nil},
		{"Name", []query.OrderItem{{Field: "Name"}}},
		{"Name,-Id", []query.OrderItem{{Field: "Name"}, {Field: "Id", Descending: true}}},
		{"Name desc, Id ASC", []query.OrderItem{{Field: "Name", Descending: true}, {Field: "Id"}}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOrderBy(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"Name,", "-", "Name up", "a b c", "-Name asc", "-Name desc"} {
		_, err := ParseOrderBy(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseKeys(t *testing.T) {
	keys, err := ParseKeys([]string{"OrderId=1", " Line = 'A' "})
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "OrderId", keys[0].Name)
	assert.Equal(t, "1", keys[0].Text)
	assert.Equal(t, "Line", keys[1].Name)
	assert.Equal(t, "'A'", keys[1].Text)

	for _, bad := range []string{"Id", "=1", "Id="} {
		_, err := ParseKeys([]string{bad})
		assert.Error(t, err, bad)
	}
}
