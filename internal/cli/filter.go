package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/shopfloor/internal/predicate"
	"github.com/roach88/shopfloor/internal/queryir"
	"github.com/roach88/shopfloor/internal/querysql"
)

// FilterCheckResult is the JSON payload of filter check.
type FilterCheckResult struct {
	Valid      bool     `json:"valid"`
	Expression string   `json:"expression"`
	Problems   []string `json:"problems,omitempty"`
	Where      string   `json:"where,omitempty"`
	Params     []any    `json:"params,omitempty"`
}

// NewFilterCommand creates the filter command group.
func NewFilterCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Work with filter documents",
	}
	cmd.AddCommand(newFilterCheckCommand(rootOpts))
	return cmd
}

func newFilterCheckCommand(rootOpts *RootOptions) *cobra.Command {
	var set string

	cmd := &cobra.Command{
		Use:   "check <filter-file>",
		Short: "Validate a filter document and list every problem",
		Long: `Validate a filter document without running it. Every shape problem is
listed, not just the first. With --set the filter is also compiled to
SQL against that entity set, which catches unknown fields.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilterCheck(rootOpts, args[0], set, cmd)
		},
	}

	cmd.Flags().StringVar(&set, "set", "", "entity set to compile the filter against")
	return cmd
}

func runFilterCheck(rootOpts *RootOptions, path, set string, cmd *cobra.Command) error {
	f := newFormatter(rootOpts, cmd)

	node, err := readFilter(f, path)
	if err != nil {
		return err
	}

	result := FilterCheckResult{Expression: queryir.Format(node)}
	validation := queryir.Validate(node)
	result.Problems = validation.Problems

	if validation.Valid {
		pred, err := predicate.Compile(node)
		if err != nil {
			result.Problems = append(result.Problems, err.Error())
		} else if set != "" {
			where, params, err := compileWhere(rootOpts, f, set, pred)
			if err != nil {
				var exitErr *ExitError
				if errors.As(err, &exitErr) {
					return err
				}
				result.Problems = append(result.Problems, err.Error())
			} else {
				result.Where, result.Params = where, params
			}
		}
	}
	result.Valid = len(result.Problems) == 0

	if f.Format == "json" {
		if err := f.Success(result); err != nil {
			return err
		}
	} else if result.Valid {
		fmt.Fprintf(f.Writer, "✓ Filter valid: %s\n", result.Expression)
		if result.Where != "" {
			fmt.Fprintf(f.Writer, "  WHERE %s\n", result.Where)
		}
	} else {
		fmt.Fprintf(f.Writer, "✗ Filter invalid: %s\n\n", result.Expression)
		for _, p := range result.Problems {
			fmt.Fprintf(f.Writer, "  %s\n", p)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("filter has %d problem(s)", len(result.Problems)))
	}
	return nil
}

// compileWhere renders pred as a WHERE fragment for set. Model errors
// come back as ExitErrors; unknown fields as plain errors.
func compileWhere(rootOpts *RootOptions, f *OutputFormatter, set string, pred predicate.Predicate) (string, []any, error) {
	model, err := LoadModel(rootOpts.Config.Schema)
	if err != nil {
		return "", nil, outputLoadError(f, err)
	}
	es, ok := model.Set(set)
	if !ok {
		return "", nil, fmt.Errorf("unknown entity set %q", set)
	}
	return querysql.NewCompiler(es).Where(pred)
}
