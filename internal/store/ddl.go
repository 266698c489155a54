package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/rowhash/internal/schema"
)

// CreateTables creates the backing relation for every registered table.
// Idempotent: existing relations are left untouched.
func (s *Store) CreateTables(ctx context.Context, reg *schema.Registry) error {
	for _, t := range reg.Tables() {
		if err := s.CreateTable(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// CreateTable renders and executes DDL for one table definition.
func (s *Store) CreateTable(ctx context.Context, t *schema.Table) error {
	ddl, err := renderDDL(t)
	if err != nil {
		return &Error{Op: "render ddl", Table: t.StorageName(), Err: err}
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return &Error{Op: "create table", Table: t.StorageName(), Err: err}
	}
	return nil
}

func renderDDL(t *schema.Table) (string, error) {
	def := t.Def()
	if len(def.Attributes) == 0 {
		return "", fmt.Errorf("no attributes declared")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", quoteIdent(t.StorageName()))
	for i, a := range def.Attributes {
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "    %s %s", quoteIdent(a.Name), columnType(a.Type))
		if a.InKey {
			b.WriteString(" NOT NULL")
		}
	}
	keys := def.KeyNames()
	if len(keys) > 0 {
		b.WriteString(",\n    PRIMARY KEY (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(quoteIdent(k))
		}
		b.WriteString(")")
	}
	b.WriteString("\n)")
	return b.String(), nil
}

// columnType maps a declared domain to a SQLite column type.
//
// Decimals and timestamps are stored as their canonical text: a NUMERIC
// affinity column would rewrite "1.10" to 1.1 and lose the declared
// scale the digest side depends on.
func columnType(t schema.AttrType) string {
	switch t.Kind {
	case schema.KindVarchar:
		return fmt.Sprintf("VARCHAR(%d)", t.Length)
	case schema.KindInt:
		return "INTEGER"
	case schema.KindFloat:
		return "REAL"
	case schema.KindDecimal, schema.KindTimestamp:
		return "TEXT"
	case schema.KindBool:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
