package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rowhash/internal/row"
	"github.com/roach88/rowhash/internal/schema"
)

// HashOptions holds flags for the hash command.
type HashOptions struct {
	*RootOptions
	Schema string
	Rows   string
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HashOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "hash <table>",
		Short: "Compute digests for rows without writing them",
		Long: `Compute the digests a batch of rows would receive on insert into the
named table. Nothing touches storage; the digest follows only from the
canonical row content and the table's hashing configuration.

Example:
  rowhash hash method.gaussian --schema tables.cue --rows batch.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "path to CUE table schema (required)")
	cmd.Flags().StringVar(&opts.Rows, "rows", "", "path to YAML row batch (required)")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("rows")

	return cmd
}

func runHash(opts *HashOptions, identity string, cmd *cobra.Command) error {
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

	digests, err := hashOffline(reg, t, rows)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash rows", err)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"table":   identity,
			"digests": digests,
		})
	}
	return formatter.Success(strings.Join(digests, "\n"))
}

// hashOffline derives digests straight from the registry, with no store
// involved.
func hashOffline(reg *schema.Registry, t *schema.Table, rows []row.Row) ([]string, error) {
	cfg := t.Hash()
	if cfg == nil {
		return nil, &schema.ConfigError{Table: t.Identity(), Field: "hash_name", Message: "hashing is not enabled"}
	}
	salts := reg.ScopeSalts(t)
	if cfg.Group {
		d, err := row.Digest(row.MD5{}, rows, cfg.Attrs, salts, cfg.Len)
		if err != nil {
			return nil, err
		}
		return []string{d}, nil
	}
	return row.DigestEach(row.MD5{}, rows, cfg.Attrs, salts, cfg.Len)
}
