package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/shopfloor/internal/store"
)

// SeedResult is the JSON payload of the seed command.
type SeedResult struct {
	DB    string `json:"db"`
	Rows  int    `json:"rows"`
	Links int    `json:"links"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load a YAML fixture into the database",
		Long: `Insert every row of a YAML fixture and link related entities, all in
one transaction. The fixture is keyed by entity set; navigation fields
hold the related keys:

  Products:
    - Id: 7
      Name: Pump
  Orders:
    - Id: 1
      ProductBefore: 7`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runSeed(rootOpts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(rootOpts, cmd)

	fixture, err := store.LoadFixture(path)
	if err != nil {
		_ = f.Error(ErrCodeReadFailed, err.Error(), map[string]string{"file": path})
		return WrapExitError(ExitCommandError, "reading fixture", err)
	}

	s, err := openSession(rootOpts, cmd, f)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.store.Seed(cmd.Context(), fixture)
	if err != nil {
		return f.RequestFailed(err)
	}

	out := SeedResult{DB: rootOpts.Config.DB, Rows: res.Rows, Links: res.Links}
	if f.Format == "json" {
		return f.Success(out)
	}
	fmt.Fprintf(f.Writer, "✓ Seeded %d rows and %d links into %s\n", out.Rows, out.Links, out.DB)
	return nil
}
