package aggregate

import (
	"context"
	"strings"
	"testing"

	"github.com/roach88/rowhash/internal/row"
	"github.com/roach88/rowhash/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Digests precomputed for the methodDefs fixture: MD5 over the
// length-prefixed canonical segments of (param1, param2) followed by
// the scope salts.
const (
	digestAx = "250ba70fe5bdac5c47d05ff1dff01d3b" // (1, "x") in method.A
	digestBx = "7f778b68e0676d554b099e0d0b0facc1" // (1, "x") in method.B
	digestAy = "d95bf84db65c56450833a615bc32e702" // (2, "y") in method.A
	digestX  = "85f0bf0f68ef29e41b0db397450fb9c3" // (1, "x"), part names not hashed
	digestG  = "5d8f53ca9ef6387a050e963c622a1e12" // group [(1,"x"),(2,"y")] in method.A
)

func TestInsertToMasterWritesBothSides(t *testing.T) {
	agg, st, reg := newTestAggregator(t, methodDefs())
	ctx := context.Background()

	res, err := agg.Insert(ctx, "method.A", []row.Row{
		{"param1": row.Int(1), "param2": row.String("x")},
	}, InsertOptions{ToMaster: true})
	require.NoError(t, err)

	assert.Equal(t, "op-1", res.Token)
	assert.Equal(t, []string{digestAx}, res.Digests)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, row.String(digestAx), res.Rows[0]["method_hash"])

	masterRows, err := st.Select(ctx, table(t, reg, "method"), nil)
	require.NoError(t, err)
	require.Len(t, masterRows, 1)
	assert.Equal(t, row.String(digestAx), masterRows[0]["method_hash"])

	partRows, err := st.Select(ctx, table(t, reg, "method.A"), nil)
	require.NoError(t, err)
	require.Len(t, partRows, 1)
	assert.Equal(t, row.Int(1), partRows[0]["param1"])
}

func TestInsertToMasterEmitsEvent(t *testing.T) {
	agg, st, _ := newTestAggregator(t, methodDefs(), "tok-a")
	ctx := context.Background()

	_, err := agg.Insert(ctx, "method.A", []row.Row{
		{"param1": row.Int(1), "param2": row.String("x")},
	}, InsertOptions{ToMaster: true})
	require.NoError(t, err)

	events, err := st.ReadEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "tok-a", events[0].Token)
	assert.Equal(t, "insert_to_master", events[0].Op)
	assert.Equal(t, "method__A", events[0].Table)
	assert.Equal(t, digestAx, events[0].Digest)
	assert.Equal(t, 1, events[0].RowCount)
}

// Identical content inserted into two different parts gets two distinct
// digests when part names are folded into the hash input.
func TestSameContentDifferentPartsDistinctDigests(t *testing.T) {
	agg, st, reg := newTestAggregator(t, methodDefs())
	ctx := context.Background()
	content := row.Row{"param1": row.Int(1), "param2": row.String("x")}

	resA, err := agg.Insert(ctx, "method.A", []row.Row{content.Clone()}, InsertOptions{ToMaster: true})
	require.NoError(t, err)
	resB, err := agg.Insert(ctx, "method.B", []row.Row{content.Clone()}, InsertOptions{ToMaster: true})
	require.NoError(t, err)

	assert.Equal(t, []string{digestAx}, resA.Digests)
	assert.Equal(t, []string{digestBx}, resB.Digests)

	n, err := st.Count(ctx, table(t, reg, "method"), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "each part's digest claims its own master row")
}

// Without part names in the hash input, identical content in a second
// part reproduces the first part's digest and must be rejected.
func TestSameContentSharedScopeIsDuplicate(t *testing.T) {
	defs := methodDefs()
	defs[0].Hash.PartTableNames = false
	agg, st, reg := newTestAggregator(t, defs)
	ctx := context.Background()
	content := row.Row{"param1": row.Int(1), "param2": row.String("x")}

	resA, err := agg.Insert(ctx, "method.A", []row.Row{content.Clone()}, InsertOptions{ToMaster: true})
	require.NoError(t, err)
	assert.Equal(t, []string{digestX}, resA.Digests)

	_, err = agg.Insert(ctx, "method.B", []row.Row{content.Clone()}, InsertOptions{ToMaster: true})
	require.Error(t, err)
	assert.True(t, IsDuplicateHash(err))

	// The rejected call left nothing behind.
	n, err := st.Count(ctx, table(t, reg, "method.B"), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	n, err = st.Count(ctx, table(t, reg, "method"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReinsertSameContentSamePartIsDuplicate(t *testing.T) {
	agg, _, _ := newTestAggregator(t, methodDefs())
	ctx := context.Background()
	content := row.Row{"param1": row.Int(1), "param2": row.String("x")}

	_, err := agg.Insert(ctx, "method.A", []row.Row{content.Clone()}, InsertOptions{ToMaster: true})
	require.NoError(t, err)

	_, err = agg.Insert(ctx, "method.A", []row.Row{content.Clone()}, InsertOptions{ToMaster: true})
	require.Error(t, err)
	assert.True(t, IsDuplicateHash(err))

	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, digestAx, ae.Digest)
	assert.Equal(t, []string{"method.A"}, ae.Parts)
}

// A claimed digest whose recorded part content differs from the
// candidate is a collision, not a duplicate.
func TestClaimedDigestDifferentContentIsCollision(t *testing.T) {
	agg, st, reg := newTestAggregator(t, methodDefs())
	ctx := context.Background()

	_, err := agg.Insert(ctx, "method.A", []row.Row{
		{"param1": row.Int(1), "param2": row.String("x")},
	}, InsertOptions{ToMaster: true})
	require.NoError(t, err)

	// Swap the recorded part row for different content under the same
	// digest, simulating a truncation collision.
	partA := table(t, reg, "method.A")
	require.NoError(t, st.Delete(ctx, partA, row.Row{"method_hash": row.String(digestAx)}))
	_, err = agg.Insert(ctx, "method.A", []row.Row{
		{"method_hash": row.String(digestAx), "param1": row.Int(9), "param2": row.String("z")},
	}, InsertOptions{Direct: true})
	require.NoError(t, err)

	_, err = agg.Insert(ctx, "method.A", []row.Row{
		{"param1": row.Int(1), "param2": row.String("x")},
	}, InsertOptions{ToMaster: true})
	require.Error(t, err)
	assert.True(t, IsHashCollision(err))
}

// Deleting the part row leaves the master claim orphaned; re-inserting
// the same content adopts the claim instead of failing.
func TestOrphanedClaimIsAdopted(t *testing.T) {
	agg, st, reg := newTestAggregator(t, methodDefs())
	ctx := context.Background()
	content := row.Row{"param1": row.Int(1), "param2": row.String("x")}

	_, err := agg.Insert(ctx, "method.A", []row.Row{content.Clone()}, InsertOptions{ToMaster: true})
	require.NoError(t, err)

	partA := table(t, reg, "method.A")
	require.NoError(t, st.Delete(ctx, partA, row.Row{"method_hash": row.String(digestAx)}))

	_, err = agg.Insert(ctx, "method.A", []row.Row{content.Clone()}, InsertOptions{ToMaster: true})
	require.NoError(t, err)

	n, err := st.Count(ctx, table(t, reg, "method"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "adoption reuses the claim, never double-claims")
	n, err = st.Count(ctx, partA, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// A failure on any row rolls back the master claim, the part rows, and
// the audit events of the whole call.
func TestInsertToMasterIsAtomic(t *testing.T) {
	agg, st, reg := newTestAggregator(t, methodDefs())
	ctx := context.Background()

	_, err := agg.Insert(ctx, "method.A", []row.Row{
		{"param1": row.Int(1), "param2": row.String("x")},
		{"param1": row.Int(2), "param2": row.String(strings.Repeat("y", 65))}, // exceeds varchar(64)
	}, InsertOptions{ToMaster: true})
	require.Error(t, err)
	assert.True(t, store.IsStoreError(err))

	for _, id := range []string{"method", "method.A"} {
		n, err := st.Count(ctx, table(t, reg, id), nil)
		require.NoError(t, err)
		assert.Equal(t, 0, n, "%s must be untouched after rollback", id)
	}
	events, err := st.ReadEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestInsertGroupSharesOneDigest(t *testing.T) {
	agg, st, reg := newTestAggregator(t, groupDefs())
	ctx := context.Background()

	res, err := agg.Insert(ctx, "method.A", []row.Row{
		{"param1": row.Int(1), "param2": row.String("x")},
		{"param1": row.Int(2), "param2": row.String("y")},
	}, InsertOptions{ToMaster: true})
	require.NoError(t, err)

	assert.Equal(t, []string{digestG}, res.Digests)
	for _, r := range res.Rows {
		assert.Equal(t, row.String(digestG), r["method_hash"])
	}

	n, err := st.Count(ctx, table(t, reg, "method"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "one master row per group digest")
	n, err = st.Count(ctx, table(t, reg, "method.A"), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	events, err := st.ReadEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].RowCount)
}

func TestInsertBatchDistinctDigests(t *testing.T) {
	agg, st, _ := newTestAggregator(t, methodDefs())
	ctx := context.Background()

	res, err := agg.Insert(ctx, "method.A", []row.Row{
		{"param1": row.Int(1), "param2": row.String("x")},
		{"param1": row.Int(2), "param2": row.String("y")},
	}, InsertOptions{ToMaster: true})
	require.NoError(t, err)
	assert.Equal(t, []string{digestAx, digestAy}, res.Digests)

	events, err := st.ReadEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, digestAx, events[0].Digest)
	assert.Equal(t, digestAy, events[1].Digest)
	for _, ev := range events {
		assert.Equal(t, "op-1", ev.Token, "one token spans the whole call")
		assert.Equal(t, 1, ev.RowCount)
	}
}

func TestInsertToMasterRequiresPart(t *testing.T) {
	agg, _, _ := newTestAggregator(t, methodDefs())

	_, err := agg.Insert(context.Background(), "method", []row.Row{
		{"param1": row.Int(1), "param2": row.String("x")},
	}, InsertOptions{ToMaster: true})
	require.Error(t, err)

	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, ErrCodeInvalidTarget, ae.Code)
}

func TestInsertRejectsSuppliedHash(t *testing.T) {
	agg, _, _ := newTestAggregator(t, methodDefs())

	_, err := agg.Insert(context.Background(), "method.A", []row.Row{
		{"method_hash": row.String("deadbeef"), "param1": row.Int(1), "param2": row.String("x")},
	}, InsertOptions{ToMaster: true})
	require.Error(t, err)

	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, ErrCodeHashSupplied, ae.Code)
}

func TestInsertEmptyBatch(t *testing.T) {
	agg, _, _ := newTestAggregator(t, methodDefs())
	_, err := agg.Insert(context.Background(), "method.A", nil, InsertOptions{ToMaster: true})
	assert.Error(t, err)
}

// Reproducibility: digests derived at insert time match digests
// recomputed later from the stored rows.
func TestStoredRowsReproduceDigest(t *testing.T) {
	agg, st, reg := newTestAggregator(t, methodDefs())
	ctx := context.Background()

	res, err := agg.Insert(ctx, "method.A", []row.Row{
		{"param1": row.Int(1), "param2": row.String("x")},
	}, InsertOptions{ToMaster: true})
	require.NoError(t, err)

	stored, err := st.Select(ctx, table(t, reg, "method.A"), nil)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	recomputed, err := agg.Hash("method.A", []row.Row{stored[0].Project("param1", "param2")})
	require.NoError(t, err)
	assert.Equal(t, res.Digests, recomputed)
}
