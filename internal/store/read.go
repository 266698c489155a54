package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/rowhash/internal/row"
	"github.com/roach88/rowhash/internal/schema"
)

// SelectTx reads back every row matching the equality condition, in
// deterministic primary-key order. A nil or empty condition returns the
// whole relation.
func SelectTx(ctx context.Context, ex Execer, t *schema.Table, cond row.Row) ([]row.Row, error) {
	def := t.Def()

	var b strings.Builder
	b.WriteString("SELECT ")
	for i, a := range def.Attributes {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(a.Name))
	}
	fmt.Fprintf(&b, " FROM %s", quoteIdent(t.StorageName()))

	where, args, err := whereClause(t, cond)
	if err != nil {
		return nil, &Error{Op: "select", Table: t.StorageName(), Err: err}
	}
	b.WriteString(where)

	// Deterministic ordering: results must be identical across calls.
	if keys := def.KeyNames(); len(keys) > 0 {
		b.WriteString(" ORDER BY ")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(quoteIdent(k))
		}
	}

	rows, err := ex.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, &Error{Op: "select", Table: t.StorageName(), Err: err}
	}
	defer rows.Close()

	out := []row.Row{}
	for rows.Next() {
		dests := make([]any, len(def.Attributes))
		for i, a := range def.Attributes {
			dests[i] = scanDest(a)
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, &Error{Op: "scan", Table: t.StorageName(), Err: err}
		}
		r := make(row.Row, len(def.Attributes))
		for i, a := range def.Attributes {
			v, err := destValue(dests[i], a)
			if err != nil {
				return nil, &Error{Op: "scan", Table: t.StorageName(), Err: err}
			}
			r[a.Name] = v
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "iterate", Table: t.StorageName(), Err: err}
	}
	return out, nil
}

// Select is SelectTx against the store's own connection.
func (s *Store) Select(ctx context.Context, t *schema.Table, cond row.Row) ([]row.Row, error) {
	return SelectTx(ctx, s.db, t, cond)
}

// CountTx returns the number of rows matching the equality condition.
func CountTx(ctx context.Context, ex Execer, t *schema.Table, cond row.Row) (int, error) {
	where, args, err := whereClause(t, cond)
	if err != nil {
		return 0, &Error{Op: "count", Table: t.StorageName(), Err: err}
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", quoteIdent(t.StorageName()), where)

	var n int
	if err := ex.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, &Error{Op: "count", Table: t.StorageName(), Err: err}
	}
	return n, nil
}

// Count is CountTx against the store's own connection.
func (s *Store) Count(ctx context.Context, t *schema.Table, cond row.Row) (int, error) {
	return CountTx(ctx, s.db, t, cond)
}

// DistinctStringsTx returns the distinct values of a character-string
// attribute, sorted. Used to enumerate the digests a part table holds.
func DistinctStringsTx(ctx context.Context, ex Execer, t *schema.Table, attr string) ([]string, error) {
	a, ok := t.Def().Attribute(attr)
	if !ok {
		return nil, &Error{Op: "distinct", Table: t.StorageName(),
			Err: fmt.Errorf("attribute %q not declared", attr)}
	}
	if a.Type.Kind != schema.KindVarchar {
		return nil, &Error{Op: "distinct", Table: t.StorageName(),
			Err: fmt.Errorf("attribute %q is not a character-string domain", attr)}
	}

	query := fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL ORDER BY %s",
		quoteIdent(attr), quoteIdent(t.StorageName()), quoteIdent(attr), quoteIdent(attr))

	rows, err := ex.QueryContext(ctx, query)
	if err != nil {
		return nil, &Error{Op: "distinct", Table: t.StorageName(), Err: err}
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, &Error{Op: "distinct", Table: t.StorageName(), Err: err}
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "distinct", Table: t.StorageName(), Err: err}
	}
	return out, nil
}

// whereClause renders an equality restriction over declared attributes.
func whereClause(t *schema.Table, cond row.Row) (string, []any, error) {
	if len(cond) == 0 {
		return "", nil, nil
	}
	def := t.Def()

	// Stable clause order: declaration order, not map iteration.
	var b strings.Builder
	var args []any
	n := 0
	for _, a := range def.Attributes {
		v, ok := cond[a.Name]
		if !ok {
			continue
		}
		if n == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		n++
		if _, isNull := v.(row.Null); isNull {
			fmt.Fprintf(&b, "%s IS NULL", quoteIdent(a.Name))
			continue
		}
		arg, err := bindValue(v, a)
		if err != nil {
			return "", nil, err
		}
		fmt.Fprintf(&b, "%s = ?", quoteIdent(a.Name))
		args = append(args, arg)
	}
	if n != len(cond) {
		for name := range cond {
			if _, ok := def.Attribute(name); !ok {
				return "", nil, fmt.Errorf("condition attribute %q not declared", name)
			}
		}
	}
	return b.String(), args, nil
}
