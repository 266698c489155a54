package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rowhash/internal/aggregate"
	"github.com/roach88/rowhash/internal/row"
	"github.com/roach88/rowhash/internal/store"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Schema   string
	Database string
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <master>",
		Short: "Report orphaned digests in a master",
		Long: `Find master rows whose digest appears in no part table. Such orphans
arise from out-of-band part deletions; a clean master exits zero,
orphans exit nonzero.

Example:
  rowhash check method --schema tables.cue --db ./rowhash.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "path to CUE table schema (required)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runCheck(opts *CheckOptions, master string, cmd *cobra.Command) error {
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

	agg := aggregate.New(st, reg)
	orphans, err := agg.HashesNotInParts(cmd.Context(), master)
	if err != nil {
		return WrapExitError(ExitCommandError, "check failed", err)
	}

	m, err := reg.Table(master)
	if err != nil {
		return WrapExitError(ExitCommandError, "check failed", err)
	}
	hashAttr := m.Hash().Name

	digests := make([]string, 0, len(orphans))
	for _, r := range orphans {
		if v, ok := r[hashAttr].(row.String); ok {
			digests = append(digests, string(v))
		}
	}

	if opts.Format == "json" {
		if err := formatter.Success(map[string]any{
			"master":  master,
			"orphans": digests,
		}); err != nil {
			return err
		}
	} else if len(digests) == 0 {
		if err := formatter.Success(fmt.Sprintf("%s: no orphaned digests", master)); err != nil {
			return err
		}
	} else {
		msg := fmt.Sprintf("%s: %d orphaned digests\n  %s",
			master, len(digests), strings.Join(digests, "\n  "))
		if err := formatter.Success(msg); err != nil {
			return err
		}
	}

	if len(digests) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d orphaned digests", len(digests)))
	}
	return nil
}
