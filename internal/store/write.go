package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/rowhash/internal/row"
	"github.com/roach88/rowhash/internal/schema"
)

// InsertTx inserts rows into a table's backing relation through the
// given handle (transaction or plain connection).
//
// Each row is projected onto the table's declared attributes: extra
// attributes are ignored (a part-shaped row can be written into its
// master's narrower heading), absent non-key attributes store as NULL,
// and an absent key attribute is an error. Constraint violations surface
// as *Error wrapping the driver error.
func InsertTx(ctx context.Context, ex Execer, t *schema.Table, rows []row.Row) error {
	if len(rows) == 0 {
		return nil
	}
	def := t.Def()

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (", quoteIdent(t.StorageName()))
	for i, a := range def.Attributes {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(a.Name))
	}
	b.WriteString(") VALUES (")
	for i := range def.Attributes {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("?")
	}
	b.WriteString(")")
	query := b.String()

	for i, r := range rows {
		args := make([]any, 0, len(def.Attributes))
		for _, a := range def.Attributes {
			v, ok := r[a.Name]
			if !ok {
				if a.InKey {
					return &Error{Op: "insert", Table: t.StorageName(),
						Err: fmt.Errorf("row %d: key attribute %q missing", i, a.Name)}
				}
				args = append(args, nil)
				continue
			}
			arg, err := bindValue(v, a)
			if err != nil {
				return &Error{Op: "insert", Table: t.StorageName(),
					Err: fmt.Errorf("row %d: %w", i, err)}
			}
			args = append(args, arg)
		}
		if _, err := ex.ExecContext(ctx, query, args...); err != nil {
			return &Error{Op: "insert", Table: t.StorageName(), Err: err}
		}
	}
	return nil
}

// Insert is InsertTx against the store's own connection, outside any
// caller-visible transaction.
func (s *Store) Insert(ctx context.Context, t *schema.Table, rows []row.Row) error {
	return InsertTx(ctx, s.db, t, rows)
}

// DeleteTx removes the rows matching the equality condition. Used by
// consistency tooling and tests; the insert protocol never deletes.
func DeleteTx(ctx context.Context, ex Execer, t *schema.Table, cond row.Row) error {
	where, args, err := whereClause(t, cond)
	if err != nil {
		return &Error{Op: "delete", Table: t.StorageName(), Err: err}
	}
	query := fmt.Sprintf("DELETE FROM %s%s", quoteIdent(t.StorageName()), where)
	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		return &Error{Op: "delete", Table: t.StorageName(), Err: err}
	}
	return nil
}

// Delete is DeleteTx against the store's own connection.
func (s *Store) Delete(ctx context.Context, t *schema.Table, cond row.Row) error {
	return DeleteTx(ctx, s.db, t, cond)
}
