package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCommand(t *testing.T) {
	db := seededDB(t)
	t.Setenv("SHOPFLOOR_USER", "42")
	row := writeFile(t, "order.yaml", "Name: Labeling\nProductBefore: 3\nEquipments: [10]\n")

	out, err := execute(t, "create", "Orders", "--db", db, "--file", row, "--expand", "1", "--format", "json")
	require.NoError(t, err)

	resp := decode(t, out)
	assert.Equal(t, "ok", resp.Status)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &doc))
	assert.Equal(t, "Orders(4)", doc["@id"])
	assert.Equal(t, "Labeling", doc["Name"])
	assert.Equal(t, float64(42), doc["CreatedBy"])
	assert.NotNil(t, doc["CreatedAt"])

	before, ok := doc["ProductBefore"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ärger Filter", before["Name"])

	out, err = execute(t, "get", "Orders", "--db", db, "--key", "Id=4", "--property", "Name")
	require.NoError(t, err)
	assert.Equal(t, "Labeling\n", out)
}

func TestUpdateCommand(t *testing.T) {
	db := seededDB(t)
	patch := writeFile(t, "patch.yaml", "Name: Refilling\nDescription: null\n")

	out, err := execute(t, "update", "Orders", "--db", db, "--key", "Id=1", "--file", patch, "--expand", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Orders(1)\n")
	assert.Contains(t, out, "  Name: Refilling\n")

	out, err = execute(t, "get", "Orders", "--db", db, "--key", "Id=1", "--property", "Description")
	require.NoError(t, err)
	assert.Equal(t, "no content\n", out)
}

func TestDeleteCommand(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "delete", "Equipments", "--db", db, "--key", "Id=11")
	require.NoError(t, err)
	assert.Equal(t, "✓ Deleted Equipments(11) (2 links cleared)\n", out)

	out, err = execute(t, "delete", "Orders", "--db", db, "--key", "Id=3", "--format", "json")
	require.NoError(t, err)
	resp := decode(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.JSONEq(t, `{"id":"Orders(3)","unlinked":0}`, string(resp.Data))

	_, err = execute(t, "get", "Equipments", "--db", db, "--key", "Id=11")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestWriteCommands_Errors(t *testing.T) {
	db := seededDB(t)
	duplicate := writeFile(t, "dup.yaml", "Id: 1\n")
	keyChange := writeFile(t, "key.yaml", "Id: 9\n")
	badValue := writeFile(t, "bad.yaml", "TotalTimeRequired: long\n")
	notMapping := writeFile(t, "list.yaml", "- Id: 1\n")

	tests := []struct {
		name     string
		args     []string
		wantExit int
		wantOut  string
	}{
		{"duplicate key", []string{"create", "Orders", "--file", duplicate}, ExitFailure, "DUPLICATE_KEY"},
		{"bad value", []string{"create", "Orders", "--file", badValue}, ExitFailure, "INVALID_VALUE"},
		{"unknown set", []string{"create", "Customers", "--file", duplicate}, ExitFailure, "UNKNOWN_ENTITY_SET"},
		{"not a mapping", []string{"create", "Orders", "--file", notMapping}, ExitFailure, ErrCodeBadRow},
		{"missing file", []string{"create", "Orders", "--file", "nope.yaml"}, ExitCommandError, ErrCodeReadFailed},
		{"key change", []string{"update", "Orders", "--key", "Id=1", "--file", keyChange}, ExitFailure, "KEY_IMMUTABLE"},
		{"update missing", []string{"update", "Orders", "--key", "Id=99", "--file", badValue}, ExitFailure, "ENTITY_NOT_FOUND"},
		{"delete missing", []string{"delete", "Orders", "--key", "Id=99"}, ExitFailure, "ENTITY_NOT_FOUND"},
		{"bad key", []string{"delete", "Orders", "--key", "Id"}, ExitCommandError, ErrCodeBadFlag},
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
