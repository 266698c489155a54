package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rowhash/internal/store"
)

// PartsOptions holds flags for the parts command.
type PartsOptions struct {
	*RootOptions
	Schema   string
	Database string
}

// NewPartsCommand creates the parts command.
func NewPartsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PartsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "parts <master>",
		Short:         "List the part tables of a master with row counts",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParts(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "path to CUE table schema (required)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runParts(opts *PartsOptions, master string, cmd *cobra.Command) error {
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
	partIDs, err := reg.PartsOf(master)
	if err != nil {
		return WrapExitError(ExitCommandError, "unknown master", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	type partInfo struct {
		Part string `json:"part"`
		Rows int    `json:"rows"`
	}
	infos := make([]partInfo, len(partIDs))
	for i, id := range partIDs {
		p, err := reg.Table(id)
		if err != nil {
			return WrapExitError(ExitCommandError, "unknown part", err)
		}
		n, err := st.Count(cmd.Context(), p, nil)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to count rows", err)
		}
		infos[i] = partInfo{Part: id, Rows: n}
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{"master": master, "parts": infos})
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d parts", master, len(infos))
	for _, pi := range infos {
		fmt.Fprintf(&b, "\n  %-30s %d rows", pi.Part, pi.Rows)
	}
	return formatter.Success(b.String())
}
