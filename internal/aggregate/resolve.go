package aggregate

import (
	"context"

	"github.com/roach88/rowhash/internal/row"
	"github.com/roach88/rowhash/internal/schema"
)

// RestrictWithHash returns the rows of a single table whose hash
// attribute equals the digest. The table must enable hashing.
func (a *Aggregator) RestrictWithHash(ctx context.Context, identity, digest string) ([]row.Row, error) {
	t, err := a.reg.Table(identity)
	if err != nil {
		return nil, err
	}
	cfg := t.Hash()
	if cfg == nil {
		return nil, &schema.ConfigError{Table: identity, Field: "hash_name", Message: "hashing is not enabled"}
	}
	return a.st.Select(ctx, t, row.Row{cfg.Name: row.String(digest)})
}

// LookupOne resolves a digest within a single table. Zero matches is a
// not-found error; under grouped hashing several rows share a digest,
// in which case the first row in key order is returned.
func (a *Aggregator) LookupOne(ctx context.Context, identity, digest string) (row.Row, error) {
	rows, err := a.RestrictWithHash(ctx, identity, digest)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &Error{
			Code:    ErrCodeNotFound,
			Message: "digest matches no rows",
			Table:   identity,
			Digest:  digest,
		}
	}
	return rows[0], nil
}
