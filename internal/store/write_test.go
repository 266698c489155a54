package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowhash/internal/row"
	"github.com/roach88/rowhash/internal/schema"
)

func sampleRow() row.Row {
	return row.Row{
		"id":      row.String("h1"),
		"count":   row.Int(3),
		"ratio":   row.Float(0.5),
		"price":   row.Decimal("1.10"),
		"created": row.Time(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)),
		"active":  row.Bool(true),
	}
}

func TestInsertSelectRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	reg := testRegistry(t)
	tbl := testTable(t, reg, "sample")
	require.NoError(t, s.CreateTables(ctx, reg))

	require.NoError(t, s.Insert(ctx, tbl, []row.Row{sampleRow()}))

	got, err := s.Select(ctx, tbl, row.Row{"id": row.String("h1")})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, row.String("h1"), got[0]["id"])
	assert.Equal(t, row.Int(3), got[0]["count"])
	assert.Equal(t, row.Float(0.5), got[0]["ratio"])
	assert.Equal(t, row.Decimal("1.10"), got[0]["price"])
	assert.True(t, row.Equal(row.Time(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)), got[0]["created"]))
	assert.Equal(t, row.Bool(true), got[0]["active"])
}

// The store reports a decimal at its declared scale: "1.1" in a
// decimal(6,2) column reads back as "1.10". The pre-storage text the
// digest saw is gone - this is the documented reproducibility limit.
func TestDecimalStoredAtDeclaredScale(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	reg := testRegistry(t)
	tbl := testTable(t, reg, "sample")
	require.NoError(t, s.CreateTables(ctx, reg))

	r := sampleRow()
	r["price"] = row.Decimal("1.1")
	require.NoError(t, s.Insert(ctx, tbl, []row.Row{r}))

	got, err := s.Select(ctx, tbl, row.Row{"id": row.String("h1")})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, row.Decimal("1.10"), got[0]["price"])
}

func TestDecimalScaleOverflowRejected(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	reg := testRegistry(t)
	tbl := testTable(t, reg, "sample")
	require.NoError(t, s.CreateTables(ctx, reg))

	r := sampleRow()
	r["price"] = row.Decimal("1.123")
	err := s.Insert(ctx, tbl, []row.Row{r})
	require.Error(t, err)
	assert.True(t, IsStoreError(err))
	assert.ErrorContains(t, err, "scale")

	r["price"] = row.Decimal("12345.00")
	err = s.Insert(ctx, tbl, []row.Row{r})
	require.Error(t, err)
	assert.ErrorContains(t, err, "precision")
}

func TestInsertMissingNonKeyStoresNull(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	reg := testRegistry(t)
	tbl := testTable(t, reg, "sample")
	require.NoError(t, s.CreateTables(ctx, reg))

	require.NoError(t, s.Insert(ctx, tbl, []row.Row{{"id": row.String("h2")}}))

	got, err := s.Select(ctx, tbl, row.Row{"id": row.String("h2")})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, row.Null{}, got[0]["count"])
}

func TestInsertMissingKeyRejected(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	reg := testRegistry(t)
	tbl := testTable(t, reg, "sample")
	require.NoError(t, s.CreateTables(ctx, reg))

	err := s.Insert(ctx, tbl, []row.Row{{"count": row.Int(1)}})
	require.Error(t, err)
	assert.True(t, IsStoreError(err))
	assert.ErrorContains(t, err, `"id"`)
}

func TestInsertIgnoresExtraAttributes(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	reg := testRegistry(t)
	tbl := testTable(t, reg, "sample")
	require.NoError(t, s.CreateTables(ctx, reg))

	r := sampleRow()
	r["extra"] = row.String("ignored")
	require.NoError(t, s.Insert(ctx, tbl, []row.Row{r}))

	n, err := s.Count(ctx, tbl, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDuplicateKeyIsConstraint(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	reg := testRegistry(t)
	tbl := testTable(t, reg, "sample")
	require.NoError(t, s.CreateTables(ctx, reg))

	require.NoError(t, s.Insert(ctx, tbl, []row.Row{sampleRow()}))
	err := s.Insert(ctx, tbl, []row.Row{sampleRow()})
	require.Error(t, err)
	assert.True(t, IsStoreError(err))
	assert.True(t, IsConstraint(err), "duplicate primary key should classify as constraint")
}

func TestVarcharWidthEnforced(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	reg := testRegistry(t)
	tbl := testTable(t, reg, "sample")
	require.NoError(t, s.CreateTables(ctx, reg))

	r := sampleRow()
	r["id"] = row.String("this-string-is-longer-than-thirty-two-characters")
	err := s.Insert(ctx, tbl, []row.Row{r})
	require.Error(t, err)
	assert.ErrorContains(t, err, "varchar(32)")
}

func TestTypeMismatchRejected(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	reg := testRegistry(t)
	tbl := testTable(t, reg, "sample")
	require.NoError(t, s.CreateTables(ctx, reg))

	r := sampleRow()
	r["count"] = row.String("three")
	err := s.Insert(ctx, tbl, []row.Row{r})
	require.Error(t, err)
	assert.True(t, IsStoreError(err))
}

func TestDeleteByCondition(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	reg := testRegistry(t)
	tbl := testTable(t, reg, "sample")
	require.NoError(t, s.CreateTables(ctx, reg))

	r1 := sampleRow()
	r2 := sampleRow()
	r2["id"] = row.String("h2")
	require.NoError(t, s.Insert(ctx, tbl, []row.Row{r1, r2}))

	require.NoError(t, s.Delete(ctx, tbl, row.Row{"id": row.String("h1")}))

	n, err := s.Count(ctx, tbl, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDistinctStrings(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	reg := testRegistry(t)
	tbl := testTable(t, reg, "sample")
	require.NoError(t, s.CreateTables(ctx, reg))

	r1 := sampleRow()
	r2 := sampleRow()
	r2["id"] = row.String("a-first")
	require.NoError(t, s.Insert(ctx, tbl, []row.Row{r1, r2}))

	vals, err := DistinctStringsTx(ctx, s.DB(), tbl, "id")
	require.NoError(t, err)
	assert.Equal(t, []string{"a-first", "h1"}, vals)

	_, err = DistinctStringsTx(ctx, s.DB(), tbl, "count")
	require.Error(t, err)
}

func TestRenderDDL(t *testing.T) {
	reg := testRegistry(t)
	tbl := testTable(t, reg, "sample")

	ddl, err := renderDDL(tbl)
	require.NoError(t, err)
	assert.Contains(t, ddl, `"sample"`)
	assert.Contains(t, ddl, `"id" VARCHAR(32) NOT NULL`)
	assert.Contains(t, ddl, `PRIMARY KEY ("id")`)
	assert.Contains(t, ddl, `"price" TEXT`)
	assert.Contains(t, ddl, `"ratio" REAL`)
}

func TestRenderDDLPartStorageName(t *testing.T) {
	reg, err := schema.NewRegistry([]schema.TableDef{{
		Name:       "method",
		Attributes: []schema.Attribute{{Name: "method_hash", Type: varchar(32), InKey: true}},
		Hash: &schema.HashConfig{
			Name: "method_hash", Attrs: []string{"param1"},
			TableName: true, PartTableNames: true,
		},
		Parts: []schema.TableDef{{
			Name: "gaussian",
			Attributes: []schema.Attribute{
				{Name: "method_hash", Type: varchar(32), InKey: true},
				{Name: "param1", Type: schema.AttrType{Kind: schema.KindInt}},
			},
			Hash: &schema.HashConfig{Name: "method_hash", Attrs: []string{"param1"}},
		}},
	}})
	require.NoError(t, err)

	part := testTable(t, reg, "method.gaussian")
	ddl, err := renderDDL(part)
	require.NoError(t, err)
	assert.Contains(t, ddl, `"method__gaussian"`)
}
