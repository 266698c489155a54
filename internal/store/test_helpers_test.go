package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/rowhash/internal/schema"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func varchar(n int) schema.AttrType { return schema.AttrType{Kind: schema.KindVarchar, Length: n} }

// testRegistry builds a registry with one standalone table exercising
// every attribute domain.
func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.NewRegistry([]schema.TableDef{{
		Name: "sample",
		Attributes: []schema.Attribute{
			{Name: "id", Type: varchar(32), InKey: true},
			{Name: "count", Type: schema.AttrType{Kind: schema.KindInt}},
			{Name: "ratio", Type: schema.AttrType{Kind: schema.KindFloat}},
			{Name: "price", Type: schema.AttrType{Kind: schema.KindDecimal, Precision: 6, Scale: 2}},
			{Name: "created", Type: schema.AttrType{Kind: schema.KindTimestamp}},
			{Name: "active", Type: schema.AttrType{Kind: schema.KindBool}},
		},
	}})
	if err != nil {
		t.Fatalf("NewRegistry() failed: %v", err)
	}
	return reg
}

func testTable(t *testing.T, reg *schema.Registry, identity string) *schema.Table {
	t.Helper()
	tbl, err := reg.Table(identity)
	if err != nil {
		t.Fatalf("Table(%q) failed: %v", identity, err)
	}
	return tbl
}
