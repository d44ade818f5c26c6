package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/shopfloor/internal/engine"
)

// Write operations shared by runWrite.
const (
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

// WriteOptions holds flags for the create, update and delete commands.
type WriteOptions struct {
	Keys   []string
	File   string
	Expand int
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WriteOptions{}

	cmd := &cobra.Command{
		Use:   "create <entity-set>",
		Short: "Store a new entity from a YAML row",
		Long: `Store one entity. The row file maps property names to values and
navigation names to related keys, like a fixture row:

  Name: Labeling
  ProductBefore: 3
  Equipments: [10, 11]

A missing Id is assigned. CreatedBy and CreatedAt are stamped from the
configured user and the current time.`,
		Example:       `  shopfloor create Orders --file order.yaml --expand 1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(rootOpts, opts, opCreate, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "YAML row to store")
	cmd.Flags().IntVar(&opts.Expand, "expand", 0, "expand depth of the result (default from config)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WriteOptions{}

	cmd := &cobra.Command{
		Use:   "update <entity-set>",
		Short: "Patch the properties of one entity",
		Long: `Overwrite the properties named in the row file on the entity addressed
by its key. Properties the file leaves out keep their value; null clears
one. Keys cannot change and navigations are not patched. UpdatedBy and
UpdatedAt are stamped.`,
		Example:       `  shopfloor update Orders --key Id=1 --file patch.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(rootOpts, opts, opUpdate, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Keys, "key", "k", nil, "key as Name=literal (repeatable)")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "YAML row of properties to overwrite")
	cmd.Flags().IntVar(&opts.Expand, "expand", 0, "expand depth of the result (default from config)")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WriteOptions{}

	cmd := &cobra.Command{
		Use:   "delete <entity-set>",
		Short: "Remove one entity and detach its links",
		Long: `Remove the entity addressed by its key. Join rows naming it are deleted
and foreign keys pointing at it are cleared in the same transaction.`,
		Example:       `  shopfloor delete Equipments --key Id=10`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(rootOpts, opts, opDelete, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Keys, "key", "k", nil, "key as Name=literal (repeatable)")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

func runWrite(rootOpts *RootOptions, opts *WriteOptions, op string, set string, cmd *cobra.Command) error {
	f := newFormatter(rootOpts, cmd)

	keys, err := ParseKeys(opts.Keys)
	if err != nil {
		_ = f.Error(ErrCodeBadFlag, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --key", err)
	}
	var row map[string]any
	if opts.File != "" {
		if row, err = readRow(f, opts.File); err != nil {
			return err
		}
	}

	s, err := openSession(rootOpts, cmd, f)
	if err != nil {
		return err
	}
	defer s.Close()

	if op == opDelete {
		res, err := s.engine.DeleteEntity(cmd.Context(), set, keys)
		if err != nil {
			return f.RequestFailed(err)
		}
		if f.Format == "json" {
			raw, err := Canonical(map[string]any{"id": res.ID, "unlinked": res.Unlinked})
			if err != nil {
				return WrapExitError(ExitFailure, "rendering result", err)
			}
			return f.encode(CLIResponse{Status: "ok", Data: raw, RequestID: res.RequestID})
		}
		fmt.Fprintf(f.Writer, "✓ Deleted %s (%d links cleared)\n", res.ID, res.Unlinked)
		return nil
	}

	var expand *int
	if cmd.Flags().Changed("expand") {
		expand = &opts.Expand
	}
	var res *engine.EntityResult
	if op == opCreate {
		res, err = s.engine.CreateEntity(cmd.Context(), set, row, expand)
	} else {
		res, err = s.engine.UpdateEntity(cmd.Context(), set, keys, row, expand)
	}
	if err != nil {
		return f.RequestFailed(err)
	}

	if f.Format == "json" {
		raw, err := Canonical(res.Entity.Document())
		if err != nil {
			return WrapExitError(ExitFailure, "rendering result", err)
		}
		return f.encode(CLIResponse{Status: "ok", Data: raw, RequestID: res.RequestID})
	}
	WriteProjection(f.Writer, res.Entity)
	return nil
}

// readRow reads a YAML row document. Unreadable files are command
// errors; documents that are not a mapping are request failures.
func readRow(f *OutputFormatter, path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		_ = f.Error(ErrCodeReadFailed, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "reading row", err)
	}
	row := map[string]any{}
	if err := yaml.Unmarshal(data, &row); err != nil {
		_ = f.Error(ErrCodeBadRow, err.Error(), map[string]string{"file": path})
		return nil, WrapExitError(ExitFailure, "invalid row document", err)
	}
	return row, nil
}
