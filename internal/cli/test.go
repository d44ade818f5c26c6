package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/shopfloor/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern on the file name)
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run request scenarios",
		Long: `Run scenario files against a fresh in-memory store seeded with the
built-in model and the scenario's fixture.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  shopfloor test ./scenarios
  shopfloor test ./scenarios --filter "filter_*"
  shopfloor test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		_ = f.Error(ErrCodeNotFound, fmt.Sprintf("scenarios directory not found: %s", dir), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	paths, err := harness.FindScenarios(dir)
	if err != nil {
		_ = f.Error(ErrCodeScanError, err.Error(), nil)
		return WrapExitError(ExitCommandError, "scanning scenarios", err)
	}
	if opts.Filter != "" {
		if paths, err = filterScenarios(paths, opts.Filter); err != nil {
			_ = f.Error(ErrCodeBadFlag, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid filter", err)
		}
	}

	f.VerboseLog("running %d scenarios from %s", len(paths), dir)
	result := harness.RunFiles(paths)

	if f.Format == "json" {
		if err := f.Success(result); err != nil {
			return err
		}
	} else {
		writeSuiteResult(cmd, result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", result.Failed, result.TotalScenarios))
	}
	return nil
}

func filterScenarios(paths []string, pattern string) ([]string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", pattern, err)
	}
	var kept []string
	for _, p := range paths {
		if ok, _ := filepath.Match(pattern, filepath.Base(p)); ok {
			kept = append(kept, p)
		}
	}
	return kept, nil
}

func writeSuiteResult(cmd *cobra.Command, result *harness.SuiteResult) {
	w := cmd.OutOrStdout()
	if result.TotalScenarios == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}
	for _, failure := range result.Failures {
		fmt.Fprintf(w, "✗ %s\n  %s\n", failure.ScenarioPath, failure.Error)
	}
	fmt.Fprintf(w, "%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.TotalScenarios)
}
