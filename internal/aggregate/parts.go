package aggregate

import (
	"context"
	"database/sql"

	"github.com/roach88/rowhash/internal/row"
	"github.com/roach88/rowhash/internal/schema"
	"github.com/roach88/rowhash/internal/store"
)

// PartRows pairs a part identity with rows selected from it.
type PartRows struct {
	Part string
	Rows []row.Row
}

// RestrictParts applies a condition to every part of a master and
// returns the surviving rows per part, in part declaration order. Parts
// that do not declare every condition attribute are skipped rather than
// failing the whole scan; parts with zero matches are still reported.
func (a *Aggregator) RestrictParts(ctx context.Context, master string, cond row.Row) ([]PartRows, error) {
	parts, err := a.partTables(master)
	if err != nil {
		return nil, err
	}
	var out []PartRows
	err = a.st.WithTx(ctx, func(tx *sql.Tx) error {
		for _, p := range parts {
			if !declaresAll(p, cond) {
				continue
			}
			rows, err := store.SelectTx(ctx, tx, p, cond)
			if err != nil {
				return err
			}
			out = append(out, PartRows{Part: p.Identity(), Rows: rows})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RestrictOnePart applies a condition across a master's parts and
// requires exactly one part to match. More than one matching part is an
// ambiguity error naming the contenders; none is a not-found error.
func (a *Aggregator) RestrictOnePart(ctx context.Context, master string, cond row.Row) (PartRows, error) {
	all, err := a.RestrictParts(ctx, master, cond)
	if err != nil {
		return PartRows{}, err
	}
	var hits []PartRows
	for _, pr := range all {
		if len(pr.Rows) > 0 {
			hits = append(hits, pr)
		}
	}
	return onePart(master, hits)
}

// RestrictPartsWithHash returns the parts of a master that contain the
// digest, with their matching rows. Parts without hashing are skipped.
func (a *Aggregator) RestrictPartsWithHash(ctx context.Context, master, digest string) ([]PartRows, error) {
	parts, err := a.partTables(master)
	if err != nil {
		return nil, err
	}
	var out []PartRows
	err = a.st.WithTx(ctx, func(tx *sql.Tx) error {
		for _, p := range parts {
			cfg := p.Hash()
			if cfg == nil {
				continue
			}
			rows, err := store.SelectTx(ctx, tx, p, row.Row{cfg.Name: row.String(digest)})
			if err != nil {
				return err
			}
			if len(rows) > 0 {
				out = append(out, PartRows{Part: p.Identity(), Rows: rows})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RestrictOnePartWithHash resolves a digest to the single part that
// contains it. Multiple containing parts is an ambiguity error; none is
// a not-found error.
func (a *Aggregator) RestrictOnePartWithHash(ctx context.Context, master, digest string) (PartRows, error) {
	hits, err := a.RestrictPartsWithHash(ctx, master, digest)
	if err != nil {
		return PartRows{}, err
	}
	pr, err := onePart(master, hits)
	if err != nil {
		if ae, ok := err.(*Error); ok {
			ae.Digest = digest
		}
		return PartRows{}, err
	}
	return pr, nil
}

// PartNamesWithHash returns the identities of the parts containing the
// digest, in part declaration order.
func (a *Aggregator) PartNamesWithHash(ctx context.Context, master, digest string) ([]string, error) {
	hits, err := a.RestrictPartsWithHash(ctx, master, digest)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(hits))
	for i, pr := range hits {
		names[i] = pr.Part
	}
	return names, nil
}

// HashesNotInParts returns the master rows whose digest appears in no
// part table: the orphaned claims left behind by out-of-band part
// deletions. The scan runs in one transaction so the answer reflects a
// single consistent snapshot.
func (a *Aggregator) HashesNotInParts(ctx context.Context, master string) ([]row.Row, error) {
	m, err := a.reg.Table(master)
	if err != nil {
		return nil, err
	}
	mcfg := m.Hash()
	if mcfg == nil {
		return nil, &schema.ConfigError{Table: master, Field: "hash_name", Message: "hashing is not enabled"}
	}
	parts, err := a.partTables(master)
	if err != nil {
		return nil, err
	}

	var orphans []row.Row
	err = a.st.WithTx(ctx, func(tx *sql.Tx) error {
		claimed := make(map[string]struct{})
		for _, p := range parts {
			cfg := p.Hash()
			if cfg == nil {
				continue
			}
			digests, err := store.DistinctStringsTx(ctx, tx, p, cfg.Name)
			if err != nil {
				return err
			}
			for _, d := range digests {
				claimed[d] = struct{}{}
			}
		}
		masterRows, err := store.SelectTx(ctx, tx, m, nil)
		if err != nil {
			return err
		}
		for _, r := range masterRows {
			v, ok := r[mcfg.Name].(row.String)
			if !ok {
				continue
			}
			if _, owned := claimed[string(v)]; !owned {
				orphans = append(orphans, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orphans, nil
}

// partTables resolves a master's parts to their registered tables.
func (a *Aggregator) partTables(master string) ([]*schema.Table, error) {
	ids, err := a.reg.PartsOf(master)
	if err != nil {
		return nil, err
	}
	out := make([]*schema.Table, len(ids))
	for i, id := range ids {
		p, err := a.reg.Table(id)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func declaresAll(t *schema.Table, cond row.Row) bool {
	for name := range cond {
		if _, ok := t.Def().Attribute(name); !ok {
			return false
		}
	}
	return true
}

// onePart reduces candidate matches to exactly one, or reports why it
// could not.
func onePart(master string, hits []PartRows) (PartRows, error) {
	switch len(hits) {
	case 1:
		return hits[0], nil
	case 0:
		return PartRows{}, &Error{
			Code:    ErrCodeNotFound,
			Message: "no part rows match",
			Table:   master,
		}
	default:
		names := make([]string, len(hits))
		for i, pr := range hits {
			names[i] = pr.Part
		}
		return PartRows{}, &Error{
			Code:    ErrCodeAmbiguousPart,
			Message: "condition matches rows in more than one part",
			Table:   master,
			Parts:   sortedCopy(names),
		}
	}
}
