package cli

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rowhash/internal/compiler"
	"github.com/roach88/rowhash/internal/row"
	"github.com/roach88/rowhash/internal/schema"
	"github.com/roach88/rowhash/internal/store"
)

// loadRegistry compiles a CUE schema file and validates it into a
// registry.
func loadRegistry(path string) (*schema.Registry, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read schema file", err)
	}
	defs, err := compiler.CompileSource(path, src)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to compile schema", err)
	}
	reg, err := schema.NewRegistry(defs)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid table configuration", err)
	}
	return reg, nil
}

// rowFile is the YAML layout for a batch of rows.
type rowFile struct {
	Rows []map[string]any `yaml:"rows"`
}

// loadRows reads a YAML row file and converts each entry into typed
// values using the target table's declared domains.
func loadRows(path string, t *schema.Table) ([]row.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read rows file", err)
	}
	var rf rowFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to parse rows file", err)
	}
	if len(rf.Rows) == 0 {
		return nil, NewExitError(ExitCommandError, "rows file declares no rows")
	}

	out := make([]row.Row, len(rf.Rows))
	for i, raw := range rf.Rows {
		r, err := store.DecodeRow(raw, t)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("row %d", i), err)
		}
		out[i] = r
	}
	return out, nil
}

// formatRow renders a row for text output, attributes in declaration
// order.
func formatRow(r row.Row, t *schema.Table) string {
	out := ""
	for _, a := range t.Def().Attributes {
		v, ok := r[a.Name]
		if !ok {
			continue
		}
		if out != "" {
			out += "  "
		}
		out += a.Name + "=" + strconv.Quote(row.Format(v))
	}
	return out
}
