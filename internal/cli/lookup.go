package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rowhash/internal/aggregate"
	"github.com/roach88/rowhash/internal/row"
	"github.com/roach88/rowhash/internal/store"
)

// LookupOptions holds flags for the lookup command.
type LookupOptions struct {
	*RootOptions
	Schema   string
	Database string
}

// NewLookupCommand creates the lookup command.
func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LookupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lookup <master> <digest>",
		Short: "Resolve a digest to the part that owns it",
		Long: `Scan the parts of a master for a digest and report the single part
containing it, with the matching rows. A digest found in more than one
part is ambiguous; a digest found nowhere is a miss. Both exit nonzero.

Example:
  rowhash lookup method 250ba70fe5bdac5c --schema tables.cue --db ./rowhash.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "path to CUE table schema (required)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runLookup(opts *LookupOptions, master, digest string, cmd *cobra.Command) error {
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
	pr, err := agg.RestrictOnePartWithHash(cmd.Context(), master, digest)
	switch {
	case aggregate.IsNotFound(err):
		_ = formatter.Error("NOT_FOUND", err.Error(), nil)
		return WrapExitError(ExitFailure, "digest not found", err)
	case aggregate.IsAmbiguousPart(err):
		_ = formatter.Error("AMBIGUOUS_PART", err.Error(), nil)
		return WrapExitError(ExitFailure, "digest is ambiguous", err)
	case err != nil:
		return WrapExitError(ExitCommandError, "lookup failed", err)
	}

	part, err := reg.Table(pr.Part)
	if err != nil {
		return WrapExitError(ExitCommandError, "lookup failed", err)
	}

	if opts.Format == "json" {
		rows := make([]map[string]string, len(pr.Rows))
		for i, r := range pr.Rows {
			m := make(map[string]string, len(r))
			for _, a := range part.Def().Attributes {
				if v, ok := r[a.Name]; ok {
					m[a.Name] = row.Format(v)
				}
			}
			rows[i] = m
		}
		return formatter.Success(map[string]any{
			"part":   pr.Part,
			"digest": digest,
			"rows":   rows,
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s owns %s", pr.Part, digest)
	for _, r := range pr.Rows {
		fmt.Fprintf(&b, "\n  %s", formatRow(r, part))
	}
	return formatter.Success(b.String())
}
