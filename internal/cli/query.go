package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/shopfloor/internal/engine"
	"github.com/roach88/shopfloor/internal/graph"
	"github.com/roach88/shopfloor/internal/query"
	"github.com/roach88/shopfloor/internal/queryir"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	FilterFile string
	OrderBy    string
	Top        int64
	Skip       int64
	Expand     int
	Count      bool
	Search     string
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query <entity-set>",
		Short: "Read a page of an entity set",
		Long: `Read entities matching an optional filter document, sorted and paged,
with related entities embedded up to the expand depth.

The filter file is a YAML or JSON expression document:

  binary: eq
  left: {field: Country}
  right: {literal: "'DE'"}

Ordering is a comma-separated field list; prefix a field with '-' or
suffix it with ' desc' to sort descending.`,
		Example: `  shopfloor query Products --orderby -Name --top 10
  shopfloor query Orders --filter late.yaml --expand 1 --count`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.FilterFile, "filter", "f", "", "filter document (YAML or JSON)")
	cmd.Flags().StringVarP(&opts.OrderBy, "orderby", "o", "", "sort fields, e.g. Name,-Id")
	cmd.Flags().Int64Var(&opts.Top, "top", 0, "maximum number of entities (default from config)")
	cmd.Flags().Int64Var(&opts.Skip, "skip", 0, "number of entities to skip")
	cmd.Flags().IntVar(&opts.Expand, "expand", 0, "expand depth (default from config)")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "include the total number of matches")
	cmd.Flags().StringVar(&opts.Search, "search", "", "free-text search (not supported; always rejected)")

	return cmd
}

func runQuery(rootOpts *RootOptions, opts *QueryOptions, set string, cmd *cobra.Command) error {
	f := newFormatter(rootOpts, cmd)

	req := engine.Options{Count: opts.Count}
	if opts.FilterFile != "" {
		node, err := readFilter(f, opts.FilterFile)
		if err != nil {
			return err
		}
		req.Filter = node
	}
	order, err := ParseOrderBy(opts.OrderBy)
	if err != nil {
		_ = f.Error(ErrCodeBadFlag, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --orderby", err)
	}
	req.OrderBy = order

	flags := cmd.Flags()
	if flags.Changed("top") {
		req.Top = &opts.Top
	}
	if flags.Changed("skip") {
		req.Skip = &opts.Skip
	}
	if flags.Changed("expand") {
		req.Expand = &opts.Expand
	}
	if flags.Changed("search") {
		req.Search = &opts.Search
	}

	s, err := openSession(rootOpts, cmd, f)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.engine.ReadCollection(cmd.Context(), set, req)
	if err != nil {
		return f.RequestFailed(err)
	}
	f.VerboseLog("Request %s returned %d entities", res.RequestID, len(res.Entities))

	if f.Format == "json" {
		data := map[string]any{
			"entity_set": res.Set,
			"value":      graph.Documents(res.Entities),
		}
		if res.Count != nil {
			data["count"] = *res.Count
		}
		raw, err := Canonical(data)
		if err != nil {
			return WrapExitError(ExitFailure, "rendering result", err)
		}
		return f.encode(CLIResponse{Status: "ok", Data: raw, RequestID: res.RequestID})
	}

	if len(res.Entities) == 0 {
		fmt.Fprintln(f.Writer, "no entities")
	}
	for _, p := range res.Entities {
		WriteProjection(f.Writer, p)
	}
	if res.Count != nil {
		fmt.Fprintf(f.Writer, "count: %d\n", *res.Count)
	}
	return nil
}

// readFilter reads and decodes a filter document. Unreadable files are
// command errors; malformed documents are request failures.
func readFilter(f *OutputFormatter, path string) (queryir.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		_ = f.Error(ErrCodeReadFailed, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "reading filter", err)
	}
	node, err := queryir.ParseDocument(data)
	if err != nil {
		_ = f.Error(ErrCodeBadFilter, err.Error(), map[string]string{"file": path})
		return nil, WrapExitError(ExitFailure, "invalid filter document", err)
	}
	return node, nil
}

// ParseOrderBy parses "Name,-Id" or "Name desc, Id asc" into order
// items. An empty string yields no items. A key takes either a '-'
// prefix or a direction word, not both.
func ParseOrderBy(s string) ([]query.OrderItem, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	items := make([]query.OrderItem, 0, len(parts))
	for _, part := range parts {
		fields := strings.Fields(part)
		if len(fields) == 0 || len(fields) > 2 {
			return nil, fmt.Errorf("malformed sort key %q", strings.TrimSpace(part))
		}
		item := query.OrderItem{Field: fields[0]}
		if strings.HasPrefix(item.Field, "-") {
			item.Field = item.Field[1:]
			item.Descending = true
		}
		if len(fields) == 2 {
			if item.Descending {
				return nil, fmt.Errorf("sort key %q mixes a '-' prefix with a direction", strings.TrimSpace(part))
			}
			switch strings.ToLower(fields[1]) {
			case "asc":
			case "desc":
				item.Descending = true
			default:
				return nil, fmt.Errorf("unknown sort direction %q", fields[1])
			}
		}
		if item.Field == "" {
			return nil, fmt.Errorf("malformed sort key %q", strings.TrimSpace(part))
		}
		items = append(items, item)
	}
	return items, nil
}
