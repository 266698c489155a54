package aggregate

import (
	"fmt"

	"github.com/roach88/rowhash/internal/row"
	"github.com/roach88/rowhash/internal/schema"
)

// Hash computes the digests the insert path would assign to rows bound
// for the named table, without touching storage. Grouped configurations
// return a single digest; otherwise one digest per row, in row order.
func (a *Aggregator) Hash(identity string, rows []row.Row) ([]string, error) {
	t, err := a.reg.Table(identity)
	if err != nil {
		return nil, err
	}
	cfg := t.Hash()
	if cfg == nil {
		return nil, &schema.ConfigError{Table: identity, Field: "hash_name", Message: "hashing is not enabled"}
	}
	salts := a.reg.ScopeSalts(t)
	if cfg.Group {
		d, err := row.Digest(a.dig, rows, cfg.Attrs, salts, cfg.Len)
		if err != nil {
			return nil, err
		}
		return []string{d}, nil
	}
	return row.DigestEach(a.dig, rows, cfg.Attrs, salts, cfg.Len)
}

// Hash1 computes digests for rows and requires them to agree on a
// single value, which it returns.
func (a *Aggregator) Hash1(identity string, rows []row.Row) (string, error) {
	digests, err := a.Hash(identity, rows)
	if err != nil {
		return "", err
	}
	if len(digests) == 0 {
		return "", fmt.Errorf("hash1 for %s: no rows", identity)
	}
	first := digests[0]
	for _, d := range digests[1:] {
		if d != first {
			return "", fmt.Errorf("hash1 for %s: rows produce %d distinct digests", identity, distinctCount(digests))
		}
	}
	return first, nil
}

func distinctCount(digests []string) int {
	seen := make(map[string]struct{}, len(digests))
	for _, d := range digests {
		seen[d] = struct{}{}
	}
	return len(seen)
}

// AddHashToRows returns copies of rows with the table's hash attribute
// filled in from the derived digests. Rows that already carry the hash
// attribute are rejected; the value is never caller-supplied on the
// normal path.
func (a *Aggregator) AddHashToRows(identity string, rows []row.Row) ([]row.Row, error) {
	t, err := a.reg.Table(identity)
	if err != nil {
		return nil, err
	}
	out, _, err := a.addHashes(t, rows, false)
	return out, err
}

// addHashes derives digests for rows bound for t and returns hashed row
// copies plus the distinct digests in first-occurrence order. For a
// table without hashing it returns the rows unchanged. With direct set,
// a caller-supplied hash attribute is trusted as-is (replay and
// verification paths only).
func (a *Aggregator) addHashes(t *schema.Table, rows []row.Row, direct bool) ([]row.Row, []string, error) {
	cfg := t.Hash()
	if cfg == nil {
		return rows, nil, nil
	}
	for i, r := range rows {
		if _, ok := r[cfg.Name]; ok && !direct {
			return nil, nil, &Error{
				Code:    ErrCodeHashSupplied,
				Message: fmt.Sprintf("row %d supplies %s directly; the value is derived on insert", i, cfg.Name),
				Table:   t.Identity(),
			}
		}
	}

	digests, err := a.Hash(t.Identity(), rows)
	if err != nil {
		return nil, nil, err
	}

	out := make([]row.Row, len(rows))
	var distinct []string
	seen := make(map[string]struct{})
	for i, r := range rows {
		d := digests[0]
		if !cfg.Group {
			d = digests[i]
		}
		if direct {
			if v, ok := r[cfg.Name].(row.String); ok {
				d = string(v)
			}
		}
		c := r.Clone()
		c[cfg.Name] = row.String(d)
		out[i] = c
		if _, ok := seen[d]; !ok {
			seen[d] = struct{}{}
			distinct = append(distinct, d)
		}
	}
	return out, distinct, nil
}
