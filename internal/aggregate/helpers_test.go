package aggregate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/rowhash/internal/schema"
	"github.com/roach88/rowhash/internal/store"
	"github.com/stretchr/testify/require"
)

func varchar(n int) schema.AttrType {
	return schema.AttrType{Kind: schema.KindVarchar, Length: n}
}

// methodDefs builds the master/part fixture used throughout: a "method"
// master aggregating parts "A" and "B" that hash the same attribute
// pair, with table and part names folded into the digests.
func methodDefs() []schema.TableDef {
	partAttrs := func() []schema.Attribute {
		return []schema.Attribute{
			{Name: "method_hash", Type: varchar(32), InKey: true},
			{Name: "param1", Type: schema.AttrType{Kind: schema.KindInt}},
			{Name: "param2", Type: varchar(64)},
		}
	}
	partHash := func() *schema.HashConfig {
		return &schema.HashConfig{Name: "method_hash", Attrs: []string{"param1", "param2"}}
	}
	return []schema.TableDef{{
		Name: "method",
		Attributes: []schema.Attribute{
			{Name: "method_hash", Type: varchar(32), InKey: true},
		},
		Hash: &schema.HashConfig{
			Name:           "method_hash",
			Attrs:          []string{"param1", "param2"},
			TableName:      true,
			PartTableNames: true,
		},
		Parts: []schema.TableDef{
			{Name: "A", Attributes: partAttrs(), Hash: partHash()},
			{Name: "B", Attributes: partAttrs(), Hash: partHash()},
		},
	}}
}

// groupDefs is the grouped-hashing variant: a batch inserted in one
// call shares a single digest, so the part key carries param1 as well.
func groupDefs() []schema.TableDef {
	defs := methodDefs()
	defs[0].Hash.Group = true
	for i := range defs[0].Parts {
		defs[0].Parts[i].Attributes[1].InKey = true
		defs[0].Parts[i].Hash.Group = true
	}
	return defs
}

// newTestAggregator opens a throwaway store, registers defs, creates
// the tables, and wires a deterministic token source.
func newTestAggregator(t *testing.T, defs []schema.TableDef, tokens ...string) (*Aggregator, *store.Store, *schema.Registry) {
	t.Helper()

	reg, err := schema.NewRegistry(defs)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "test.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.CreateTables(context.Background(), reg))

	if len(tokens) == 0 {
		tokens = []string{"op-1", "op-2", "op-3", "op-4", "op-5", "op-6", "op-7", "op-8"}
	}
	agg := New(st, reg, WithTokenGenerator(NewFixedGenerator(tokens...)))
	return agg, st, reg
}

func table(t *testing.T, reg *schema.Registry, identity string) *schema.Table {
	t.Helper()
	tbl, err := reg.Table(identity)
	require.NoError(t, err)
	return tbl
}
