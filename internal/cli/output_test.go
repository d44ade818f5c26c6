package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shopfloor/internal/engine"
	"github.com/roach88/shopfloor/internal/graph"
	"github.com/roach88/shopfloor/internal/ir"
	"github.com/roach88/shopfloor/internal/store"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"result": "<ok>"}))
	assert.Contains(t, buf.String(), `"<ok>"`, "no HTML escaping")

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	details := map[string]string{"file": "shopfloor.cue", "line": "42"}
	require.NoError(t, formatter.Error("E104", "unknown kind", details))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E104", resp.Error.Code)
	assert.Equal(t, "unknown kind", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("All good"))
	require.NoError(t, formatter.Error("E001", "it broke", map[string]string{"file": "x"}))
	assert.Contains(t, buf.String(), "All good")
	assert.Contains(t, buf.String(), "Error [E001]: it broke")
	assert.NotContains(t, buf.String(), "Details:")

	buf.Reset()
	formatter.Verbose = true
	require.NoError(t, formatter.Error("E001", "it broke", map[string]string{"file": "x"}))
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, diag := &bytes.Buffer{}, &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    out,
				ErrWriter: diag,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("Opened %s", "shopfloor.db")

			assert.Empty(t, out.String(), "diagnostics never reach stdout")
			if tt.wantLog {
				assert.Contains(t, diag.String(), "Opened shopfloor.db")
			} else {
				assert.Empty(t, diag.String())
			}
		})
	}
}

func TestOutputFormatter_RequestFailed(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	cause := engine.NewRequestError("req-9", fmt.Errorf("%w: Orders", store.ErrEntityNotFound))
	err := formatter.RequestFailed(cause)

	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, store.ErrEntityNotFound)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "req-9", resp.RequestID)
	assert.Equal(t, "ENTITY_NOT_FOUND", resp.Error.Code)
	assert.Nil(t, resp.Error.Details)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "bad flag"))))

	err := WrapExitError(ExitFailure, "query failed", errors.New("boom"))
	assert.Equal(t, "query failed: boom", err.Error())
}

func TestWriteProjection(t *testing.T) {
	p := graph.Projector{}.Project(&graph.Entity{
		Set:    "Orders",
		Key:    ir.Int(1),
		Fields: []graph.Field{{Name: "Id", Value: ir.Int(1)}, {Name: "Name", Value: nil}},
		Navigations: []graph.Navigation{
			{Name: "ProductBefore", Target: graph.Single{Entity: &graph.Entity{
				Set:    "Products",
				Key:    ir.Int(7),
				Fields: []graph.Field{{Name: "Id", Value: ir.Int(7)}},
			}}},
		},
	}, 1)

	var buf bytes.Buffer
	WriteProjection(&buf, p)
	assert.Equal(t, `Orders(1)
  Id: 1
  Name: null
  ProductBefore -> Orders(1)/ProductBefore
    Orders(1)/ProductBefore(1)
      Id: 7
`, buf.String())
}
