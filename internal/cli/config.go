package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/shopfloor/internal/graph"
	"github.com/roach88/shopfloor/internal/query"
)

// Config is the resolved configuration for one CLI invocation.
//
// Sources, highest priority first: explicitly set flags, SHOPFLOOR_*
// environment variables, the config file, built-in defaults.
type Config struct {
	DB           string
	Schema       string
	ExpandDepth  int
	DefaultLimit int64
	Format       string

	// User is the id stamped into CreatedBy and UpdatedBy on writes.
	User int64
}

// Config file and environment naming.
const (
	ConfigName = "shopfloor"
	EnvPrefix  = "SHOPFLOOR"
	DefaultDB  = "shopfloor.db"
)

// flagKeys maps config keys to the persistent flags that override them.
var flagKeys = map[string]string{
	"db":     "db",
	"schema": "schema",
	"format": "format",
}

// LoadConfig resolves the configuration for cmd. When file is empty the
// config file is searched as shopfloor.yaml in the working directory
// and $HOME/.shopfloor; a missing file is not an error.
func LoadConfig(cmd *cobra.Command, file string) (*Config, error) {
	v := viper.New()
	v.SetDefault("db", DefaultDB)
	v.SetDefault("schema", "")
	v.SetDefault("expand_depth", graph.DefaultExpandDepth)
	v.SetDefault("default_limit", query.DefaultLimit)
	v.SetDefault("format", "text")
	v.SetDefault("user", 0)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".shopfloor"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	for key, name := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding --%s: %w", name, err)
			}
		}
	}

	cfg := &Config{
		DB:           v.GetString("db"),
		Schema:       v.GetString("schema"),
		ExpandDepth:  v.GetInt("expand_depth"),
		DefaultLimit: v.GetInt64("default_limit"),
		Format:       v.GetString("format"),
		User:         v.GetInt64("user"),
	}
	if cfg.ExpandDepth < 0 {
		return nil, fmt.Errorf("expand_depth must not be negative, got %d", cfg.ExpandDepth)
	}
	if cfg.DefaultLimit <= 0 {
		return nil, fmt.Errorf("default_limit must be positive, got %d", cfg.DefaultLimit)
	}
	return cfg, nil
}
