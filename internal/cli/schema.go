package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/shopfloor/internal/schema"
	"github.com/roach88/shopfloor/internal/store"
)

// SchemaResult is the JSON payload of the schema command.
type SchemaResult struct {
	Valid      bool          `json:"valid"`
	EntitySets []SetSummary  `json:"entity_sets"`
	DDL        *store.Schema `json:"ddl,omitempty"`
}

// SetSummary describes one entity set.
type SetSummary struct {
	Name        string        `json:"name"`
	Type        string        `json:"type"`
	Table       string        `json:"table"`
	Key         []string      `json:"key"`
	Properties  []PropSummary `json:"properties"`
	Navigations []NavSummary  `json:"navigations,omitempty"`
}

// PropSummary describes one property.
type PropSummary struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Column   string `json:"column"`
	Nullable bool   `json:"nullable"`
}

// NavSummary describes one navigation.
type NavSummary struct {
	Name   string `json:"name"`
	Target string `json:"target"`
	Many   bool   `json:"many"`
	Join   string `json:"join"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	var showDDL bool

	cmd := &cobra.Command{
		Use:   "schema [schema-dir]",
		Short: "Validate and print the entity model",
		Long: `Load a CUE entity model, check it for consistency and print its
entity sets. Without an argument the configured --schema directory is
used, or the built-in shop-floor model when none is configured.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := rootOpts.Config.Schema
			if len(args) == 1 {
				dir = args[0]
			}
			return runSchema(rootOpts, dir, showDDL, cmd)
		},
	}

	cmd.Flags().BoolVar(&showDDL, "ddl", false, "also print the generated SQLite DDL")
	return cmd
}

func runSchema(rootOpts *RootOptions, dir string, showDDL bool, cmd *cobra.Command) error {
	f := newFormatter(rootOpts, cmd)

	model, err := LoadModel(dir)
	if err != nil {
		return outputLoadError(f, err)
	}
	f.VerboseLog("Loaded %d entity set(s)", len(model.Sets))

	result := SchemaResult{Valid: true, EntitySets: summarize(model)}
	if showDDL {
		ddl := store.DDL(model)
		result.DDL = &ddl
	}

	if f.Format == "json" {
		return f.Success(result)
	}

	fmt.Fprintln(f.Writer, "✓ Model valid")
	for _, set := range result.EntitySets {
		fmt.Fprintf(f.Writer, "\n%s (%s, table %s, key %s)\n", set.Name, set.Type, set.Table, strings.Join(set.Key, ", "))
		for _, p := range set.Properties {
			null := ""
			if !p.Nullable {
				null = " not null"
			}
			fmt.Fprintf(f.Writer, "  %s: %s%s\n", p.Name, p.Kind, null)
		}
		for _, n := range set.Navigations {
			card := "one"
			if n.Many {
				card = "many"
			}
			fmt.Fprintf(f.Writer, "  %s -> %s (%s, %s)\n", n.Name, n.Target, card, n.Join)
		}
	}
	if result.DDL != nil {
		fmt.Fprintln(f.Writer)
		for _, stmt := range append(result.DDL.Tables, result.DDL.Indexes...) {
			fmt.Fprintf(f.Writer, "%s;\n", stmt)
		}
	}
	return nil
}

func summarize(model *schema.Model) []SetSummary {
	out := make([]SetSummary, 0, len(model.Sets))
	for _, set := range model.Sets {
		s := SetSummary{
			Name:       set.Name,
			Type:       set.Type,
			Table:      set.Table,
			Key:        set.Key,
			Properties: make([]PropSummary, 0, len(set.Properties)),
		}
		for _, p := range set.Properties {
			s.Properties = append(s.Properties, PropSummary{
				Name:     p.Name,
				Kind:     string(p.Kind),
				Column:   p.Column,
				Nullable: p.Nullable,
			})
		}
		for _, n := range set.Navigations {
			s.Navigations = append(s.Navigations, NavSummary{
				Name:   n.Name,
				Target: n.Target,
				Many:   n.Many,
				Join:   string(n.Style),
			})
		}
		out = append(out, s)
	}
	return out
}
