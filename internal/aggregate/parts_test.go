package aggregate

import (
	"context"
	"testing"

	"github.com/roach88/rowhash/internal/row"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedBothParts inserts (1,"x") into method.A and (2,"y") into method.B.
func seedBothParts(t *testing.T, agg *Aggregator) {
	t.Helper()
	ctx := context.Background()
	_, err := agg.Insert(ctx, "method.A", []row.Row{
		{"param1": row.Int(1), "param2": row.String("x")},
	}, InsertOptions{ToMaster: true})
	require.NoError(t, err)
	_, err = agg.Insert(ctx, "method.B", []row.Row{
		{"param1": row.Int(2), "param2": row.String("y")},
	}, InsertOptions{ToMaster: true})
	require.NoError(t, err)
}

func TestRestrictPartsReportsAll(t *testing.T) {
	agg, _, _ := newTestAggregator(t, methodDefs())
	seedBothParts(t, agg)

	out, err := agg.RestrictParts(context.Background(), "method", row.Row{"param1": row.Int(1)})
	require.NoError(t, err)
	require.Len(t, out, 2, "every part declaring the attribute is scanned")
	assert.Equal(t, "method.A", out[0].Part)
	assert.Len(t, out[0].Rows, 1)
	assert.Equal(t, "method.B", out[1].Part)
	assert.Empty(t, out[1].Rows)
}

func TestRestrictPartsSkipsUndeclaredAttrs(t *testing.T) {
	agg, _, _ := newTestAggregator(t, methodDefs())
	seedBothParts(t, agg)

	out, err := agg.RestrictParts(context.Background(), "method", row.Row{"no_such": row.Int(1)})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRestrictOnePart(t *testing.T) {
	agg, _, _ := newTestAggregator(t, methodDefs())
	seedBothParts(t, agg)
	ctx := context.Background()

	pr, err := agg.RestrictOnePart(ctx, "method", row.Row{"param1": row.Int(2)})
	require.NoError(t, err)
	assert.Equal(t, "method.B", pr.Part)
	require.Len(t, pr.Rows, 1)
	assert.Equal(t, row.String("y"), pr.Rows[0]["param2"])
}

func TestRestrictOnePartNotFound(t *testing.T) {
	agg, _, _ := newTestAggregator(t, methodDefs())
	seedBothParts(t, agg)

	_, err := agg.RestrictOnePart(context.Background(), "method", row.Row{"param1": row.Int(99)})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestRestrictOnePartAmbiguous(t *testing.T) {
	agg, _, _ := newTestAggregator(t, methodDefs())
	ctx := context.Background()

	// The same param1 in both parts makes a param1 restriction ambiguous.
	shared := row.Row{"param1": row.Int(7), "param2": row.String("x")}
	_, err := agg.Insert(ctx, "method.A", []row.Row{shared.Clone()}, InsertOptions{ToMaster: true})
	require.NoError(t, err)
	_, err = agg.Insert(ctx, "method.B", []row.Row{shared.Clone()}, InsertOptions{ToMaster: true})
	require.NoError(t, err)

	_, err = agg.RestrictOnePart(ctx, "method", row.Row{"param1": row.Int(7)})
	require.Error(t, err)
	assert.True(t, IsAmbiguousPart(err))

	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, []string{"method.A", "method.B"}, ae.Parts)
}

func TestRestrictPartsWithHash(t *testing.T) {
	agg, _, _ := newTestAggregator(t, methodDefs())
	seedBothParts(t, agg)
	ctx := context.Background()

	out, err := agg.RestrictPartsWithHash(ctx, "method", digestAx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "method.A", out[0].Part)
	require.Len(t, out[0].Rows, 1)
	assert.Equal(t, row.String(digestAx), out[0].Rows[0]["method_hash"])
}

func TestRestrictOnePartWithHash(t *testing.T) {
	agg, _, _ := newTestAggregator(t, methodDefs())
	seedBothParts(t, agg)
	ctx := context.Background()

	pr, err := agg.RestrictOnePartWithHash(ctx, "method", digestAy)
	require.NoError(t, err)
	assert.Equal(t, "method.B", pr.Part)

	_, err = agg.RestrictOnePartWithHash(ctx, "method", "0000000000000000")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "0000000000000000", ae.Digest)
}

func TestPartNamesWithHash(t *testing.T) {
	agg, _, _ := newTestAggregator(t, methodDefs())
	seedBothParts(t, agg)
	ctx := context.Background()

	names, err := agg.PartNamesWithHash(ctx, "method", digestAx)
	require.NoError(t, err)
	assert.Equal(t, []string{"method.A"}, names)

	names, err = agg.PartNamesWithHash(ctx, "method", "0000000000000000")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestHashesNotInParts(t *testing.T) {
	agg, st, reg := newTestAggregator(t, methodDefs())
	seedBothParts(t, agg)
	ctx := context.Background()

	orphans, err := agg.HashesNotInParts(ctx, "method")
	require.NoError(t, err)
	assert.Empty(t, orphans, "every claim is owned after a clean insert")

	partA := table(t, reg, "method.A")
	require.NoError(t, st.Delete(ctx, partA, row.Row{"method_hash": row.String(digestAx)}))

	orphans, err = agg.HashesNotInParts(ctx, "method")
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, row.String(digestAx), orphans[0]["method_hash"])
}

func TestRestrictWithHash(t *testing.T) {
	agg, _, _ := newTestAggregator(t, methodDefs())
	seedBothParts(t, agg)
	ctx := context.Background()

	rows, err := agg.RestrictWithHash(ctx, "method.A", digestAx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, row.Int(1), rows[0]["param1"])

	// The master resolves its own claims by the same digest.
	rows, err = agg.RestrictWithHash(ctx, "method", digestAx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestLookupOne(t *testing.T) {
	agg, _, _ := newTestAggregator(t, methodDefs())
	seedBothParts(t, agg)
	ctx := context.Background()

	r, err := agg.LookupOne(ctx, "method.A", digestAx)
	require.NoError(t, err)
	assert.Equal(t, row.String("x"), r["param2"])

	_, err = agg.LookupOne(ctx, "method.A", "0000000000000000")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}
