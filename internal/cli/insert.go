package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rowhash/internal/aggregate"
	"github.com/roach88/rowhash/internal/store"
)

// InsertOptions holds flags for the insert command.
type InsertOptions struct {
	*RootOptions
	Schema   string
	Database string
	Rows     string
	ToMaster bool
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InsertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "insert <table>",
		Short: "Insert rows, deriving their hash attribute",
		Long: `Insert a YAML batch of rows into a table. When the table enables
hashing the hash attribute is derived from the configured attributes
before the write. With --to-master the target must be a part table and
the owning master's digest row is claimed in the same transaction.

Example:
  rowhash insert method.gaussian --schema tables.cue --db ./rowhash.db --rows batch.yaml --to-master`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInsert(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "path to CUE table schema (required)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Rows, "rows", "", "path to YAML row batch (required)")
	cmd.Flags().BoolVar(&opts.ToMaster, "to-master", false, "claim the master digest row in the same transaction")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("rows")

	return cmd
}

func runInsert(opts *InsertOptions, identity string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	reg, err := loadRegistry(opts.Schema)
	if err != nil {
		return err
	}
	t, err := reg.Table(identity)
	if err != nil {
		return WrapExitError(ExitCommandError, "unknown table", err)
	}
	rows, err := loadRows(opts.Rows, t)
	if err != nil {
		return err
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	agg := aggregate.New(st, reg)
	res, err := agg.Insert(cmd.Context(), identity, rows,
		aggregate.InsertOptions{ToMaster: opts.ToMaster})
	if err != nil {
		return classifyInsertError(err, formatter)
	}

	formatter.VerboseLog("token %s", res.Token)
	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"table":   identity,
			"rows":    len(res.Rows),
			"digests": res.Digests,
			"token":   res.Token,
		})
	}
	if len(res.Digests) == 0 {
		return formatter.Success(fmt.Sprintf("inserted %d rows into %s", len(res.Rows), identity))
	}
	return formatter.Success(fmt.Sprintf("inserted %d rows into %s\ndigests: %s",
		len(res.Rows), identity, strings.Join(res.Digests, ", ")))
}

// classifyInsertError maps protocol failures onto check-failure exit
// codes and everything else onto command errors.
func classifyInsertError(err error, formatter *OutputFormatter) error {
	switch {
	case aggregate.IsDuplicateHash(err):
		_ = formatter.Error("DUPLICATE_HASH", err.Error(), nil)
		return WrapExitError(ExitFailure, "duplicate content", err)
	case aggregate.IsHashCollision(err):
		_ = formatter.Error("HASH_COLLISION", err.Error(), nil)
		return WrapExitError(ExitFailure, "hash collision", err)
	default:
		return WrapExitError(ExitCommandError, "insert failed", err)
	}
}
