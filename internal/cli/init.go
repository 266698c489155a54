package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rowhash/internal/store"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Schema   string
	Database string
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database for a table schema",
		Long: `Compile a CUE table schema, validate its hashing configuration, and
create the backing SQLite database with one relation per table.

Example:
  rowhash init --schema tables.cue --db ./rowhash.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "path to CUE table schema (required)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
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

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.CreateTables(cmd.Context(), reg); err != nil {
		return WrapExitError(ExitCommandError, "failed to create tables", err)
	}

	tables := reg.Tables()
	masters, parts := 0, 0
	for _, t := range tables {
		if t.Master() != "" {
			parts++
		} else {
			masters++
		}
		formatter.VerboseLog("created %s", t.StorageName())
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"database": opts.Database,
			"tables":   len(tables),
			"parts":    parts,
		})
	}
	return formatter.Success(fmt.Sprintf("initialized %s: %d tables (%d top-level, %d parts)",
		opts.Database, len(tables), masters, parts))
}
