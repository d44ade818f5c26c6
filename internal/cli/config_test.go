package cli

import (
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(old)) })
}

// parsedRoot returns the root command with args parsed into its
// persistent flags, without running anything.
func parsedRoot(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := NewRootCommand()
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoadConfig_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig(parsedRoot(t), "")
	require.NoError(t, err)
	assert.Equal(t, &Config{
		DB:           DefaultDB,
		Schema:       "",
		ExpandDepth:  2,
		DefaultLimit: 100,
		Format:       "text",
	}, cfg)
}

func TestLoadConfig_Environment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SHOPFLOOR_DB", "/tmp/env.db")
	t.Setenv("SHOPFLOOR_EXPAND_DEPTH", "0")
	t.Setenv("SHOPFLOOR_USER", "42")

	cfg, err := LoadConfig(parsedRoot(t), "")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.db", cfg.DB)
	assert.Equal(t, 0, cfg.ExpandDepth)
	assert.Equal(t, int64(42), cfg.User)
}

func TestLoadConfig_File(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeFile(t, "custom.yaml", "db: from-file.db\ndefault_limit: 5\nformat: json\n")

	cfg, err := LoadConfig(parsedRoot(t), path)
	require.NoError(t, err)
	assert.Equal(t, "from-file.db", cfg.DB)
	assert.Equal(t, int64(5), cfg.DefaultLimit)
	assert.Equal(t, "json", cfg.Format)
}

func TestLoadConfig_SearchesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, writeFileIn(dir, "shopfloor.yaml", "expand_depth: 1\n"))

	cfg, err := LoadConfig(parsedRoot(t), "")
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.ExpandDepth)
}

func TestLoadConfig_FlagsWin(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SHOPFLOOR_DB", "env.db")
	path := writeFile(t, "custom.yaml", "db: file.db\nformat: json\n")

	cfg, err := LoadConfig(parsedRoot(t, "--db", "flag.db", "--format", "text"), path)
	require.NoError(t, err)
	assert.Equal(t, "flag.db", cfg.DB)
	assert.Equal(t, "text", cfg.Format)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"negative depth", "expand_depth: -1\n", "expand_depth must not be negative"},
		{"zero limit", "default_limit: 0\n", "default_limit must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			path := writeFile(t, "custom.yaml", tt.content)

			_, err := LoadConfig(parsedRoot(t), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := LoadConfig(parsedRoot(t), "does-not-exist.yaml")
	assert.Error(t, err)

	_, err = execute(t, "schema", "--config", "does-not-exist.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
