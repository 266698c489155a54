package aggregate

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/rowhash/internal/row"
	"github.com/roach88/rowhash/internal/schema"
	"github.com/roach88/rowhash/internal/store"
)

// InsertOptions controls one Insert call.
type InsertOptions struct {
	// ToMaster runs the master/part protocol: claim or verify the
	// digest row in the owning master before writing the part rows.
	// Requires the target to be a part table.
	ToMaster bool

	// Direct accepts a caller-supplied hash attribute instead of
	// rejecting it. Reserved for replay and verification paths.
	Direct bool
}

// InsertResult reports what an Insert call wrote.
type InsertResult struct {
	// Token is the audit token stamped on every event of the call.
	Token string

	// Digests holds the distinct digests assigned to the rows, in
	// first-occurrence order. Empty for tables without hashing.
	Digests []string

	// Rows are the written rows, hash attribute included.
	Rows []row.Row
}

// Insert writes rows into the named table inside one transaction,
// deriving the hash attribute first when the table enables hashing.
//
// With ToMaster set the target must be a part: the call claims the
// digest rows in the owning master, verifies any digest that is already
// claimed, writes the part rows, and appends the audit events - all in
// the same transaction. A failure at any step rolls back every write of
// the call.
func (a *Aggregator) Insert(ctx context.Context, identity string, rows []row.Row, opts InsertOptions) (*InsertResult, error) {
	t, err := a.reg.Table(identity)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert into %s: no rows", identity)
	}
	if opts.ToMaster && t.Master() == "" {
		return nil, &Error{
			Code:    ErrCodeInvalidTarget,
			Message: "insert to master requires a part table",
			Table:   identity,
		}
	}

	hashed, digests, err := a.addHashes(t, rows, opts.Direct)
	if err != nil {
		return nil, err
	}

	op := "insert"
	if opts.ToMaster {
		op = "insert_to_master"
	}
	token := a.tokens.Generate()

	err = a.st.WithTx(ctx, func(tx *sql.Tx) error {
		if opts.ToMaster {
			if err := a.claimDigests(ctx, tx, t, hashed, digests); err != nil {
				return err
			}
		}
		if err := store.InsertTx(ctx, tx, t, hashed); err != nil {
			return err
		}
		return writeInsertEvents(ctx, tx, t, op, token, hashed, digests)
	})
	if err != nil {
		return nil, err
	}
	return &InsertResult{Token: token, Digests: digests, Rows: hashed}, nil
}

// writeInsertEvents appends one event per distinct digest, or a single
// digest-less event for tables without hashing.
func writeInsertEvents(ctx context.Context, tx *sql.Tx, t *schema.Table, op, token string, rows []row.Row, digests []string) error {
	if len(digests) == 0 {
		return store.WriteEvent(ctx, tx, store.Event{
			Token: token, Op: op, Table: t.StorageName(), RowCount: len(rows),
		})
	}
	hashAttr := t.Hash().Name
	for _, d := range digests {
		n := 0
		for _, r := range rows {
			if v, ok := r[hashAttr].(row.String); ok && string(v) == d {
				n++
			}
		}
		ev := store.Event{Token: token, Op: op, Table: t.StorageName(), Digest: d, RowCount: n}
		if err := store.WriteEvent(ctx, tx, ev); err != nil {
			return err
		}
	}
	return nil
}

// claimDigests ensures each digest of the incoming part rows has a row
// in the owning master, inserting missing ones and verifying claimed
// ones against the candidate content.
func (a *Aggregator) claimDigests(ctx context.Context, tx *sql.Tx, part *schema.Table, rows []row.Row, digests []string) error {
	master, err := a.reg.Table(part.Master())
	if err != nil {
		return err
	}
	mcfg := master.Hash()
	if mcfg == nil {
		return &schema.ConfigError{
			Table:   master.Identity(),
			Field:   "hash_name",
			Message: "master does not enable hashing; cannot aggregate part digests",
		}
	}
	pcfg := part.Hash()

	for _, d := range digests {
		var group []row.Row
		for _, r := range rows {
			if v, ok := r[pcfg.Name].(row.String); ok && string(v) == d {
				group = append(group, r)
			}
		}

		existing, err := store.SelectTx(ctx, tx, master, row.Row{mcfg.Name: row.String(d)})
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			mrow := masterRowFor(master, mcfg, group[0], d)
			if err := store.InsertTx(ctx, tx, master, []row.Row{mrow}); err != nil {
				return err
			}
			continue
		}
		if err := a.verifyClaimed(ctx, tx, master, part, d, group, existing[0]); err != nil {
			return err
		}
	}
	return nil
}

// masterRowFor projects a candidate part row onto the master's
// attributes, with the digest in the hash attribute.
func masterRowFor(master *schema.Table, mcfg *schema.HashConfig, candidate row.Row, digest string) row.Row {
	mrow := row.Row{mcfg.Name: row.String(digest)}
	for _, attr := range master.Def().Attributes {
		if attr.Name == mcfg.Name {
			continue
		}
		if v, ok := candidate[attr.Name]; ok {
			mrow[attr.Name] = v
		}
	}
	return mrow
}

// verifyClaimed decides what an already-claimed digest means for the
// candidate rows: silent reuse of an orphaned claim, a duplicate of
// identical recorded content, or an outright collision with different
// content.
func (a *Aggregator) verifyClaimed(ctx context.Context, tx *sql.Tx, master, part *schema.Table, digest string, group []row.Row, claimed row.Row) error {
	mcfg := master.Hash()

	// Any master attribute carried alongside the digest must agree with
	// the candidate's values for it.
	for _, attr := range master.Def().Attributes {
		if attr.Name == mcfg.Name {
			continue
		}
		want, ok := group[0][attr.Name]
		if !ok {
			continue
		}
		got, ok := claimed[attr.Name]
		if _, isNull := got.(row.Null); !ok || isNull {
			continue
		}
		if !sameContent(got, want) {
			return &Error{
				Code:    ErrCodeHashCollision,
				Message: fmt.Sprintf("master attribute %s differs from recorded value for this digest", attr.Name),
				Table:   part.Identity(),
				Digest:  digest,
			}
		}
	}

	// Locate the recorded part rows that own the digest. With part
	// names folded into the digest the owner can only be this part;
	// without them any sibling may own it.
	scan := []*schema.Table{part}
	if !mcfg.PartTableNames {
		scan = scan[:0]
		partIDs, err := a.reg.PartsOf(master.Identity())
		if err != nil {
			return err
		}
		for _, id := range partIDs {
			p, err := a.reg.Table(id)
			if err != nil {
				return err
			}
			if p.Hash() != nil {
				scan = append(scan, p)
			}
		}
	}

	for _, p := range scan {
		pcfg := p.Hash()
		stored, err := store.SelectTx(ctx, tx, p, row.Row{pcfg.Name: row.String(digest)})
		if err != nil {
			return err
		}
		if len(stored) == 0 {
			continue
		}
		if contentMatches(stored, pcfg.Attrs, group, part.Hash().Attrs) {
			return &Error{
				Code:    ErrCodeDuplicateHash,
				Message: fmt.Sprintf("identical content already recorded in %s", p.Identity()),
				Table:   part.Identity(),
				Digest:  digest,
				Parts:   []string{p.Identity()},
			}
		}
		return &Error{
			Code:    ErrCodeHashCollision,
			Message: fmt.Sprintf("digest already maps to different content in %s", p.Identity()),
			Table:   part.Identity(),
			Digest:  digest,
			Parts:   []string{p.Identity()},
		}
	}
	// Orphaned master claim: no part row carries the digest, so the
	// candidate adopts it.
	return nil
}

// contentMatches reports whether every candidate row's hashed content
// appears among the stored rows. Comparison is per hashed attribute with
// decimal values compared numerically, since stored decimals are
// normalized to the declared scale while candidates carry their original
// text.
func contentMatches(stored []row.Row, storedAttrs []string, cand []row.Row, candAttrs []string) bool {
	if len(storedAttrs) != len(candAttrs) {
		return false
	}
	for _, c := range cand {
		found := false
		for _, s := range stored {
			if rowContentEqual(s, storedAttrs, c, candAttrs) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func rowContentEqual(s row.Row, sAttrs []string, c row.Row, cAttrs []string) bool {
	for i, sa := range sAttrs {
		sv, ok := s[sa]
		if !ok {
			return false
		}
		cv, ok := c[cAttrs[i]]
		if !ok {
			return false
		}
		if !sameContent(sv, cv) {
			return false
		}
	}
	return true
}

// sameContent compares two values for content equality. Decimals
// compare with trailing fractional zeros ignored; everything else uses
// plain value equality.
func sameContent(a, b row.Value) bool {
	da, aok := a.(row.Decimal)
	db, bok := b.(row.Decimal)
	if aok && bok {
		return trimDecimal(string(da)) == trimDecimal(string(db))
	}
	return row.Equal(a, b)
}

func trimDecimal(text string) string {
	if !strings.Contains(text, ".") {
		return text
	}
	text = strings.TrimRight(text, "0")
	return strings.TrimSuffix(text, ".")
}

// sortedCopy returns a sorted copy of names. Shared by lookup helpers
// that report part sets in deterministic order.
func sortedCopy(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	sort.Strings(out)
	return out
}
