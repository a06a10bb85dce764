package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTable is a minimal in-memory Table used to exercise the planner
// without a real SQLite file on disk.
type fakeTable struct {
	name    string
	schema  []Column
	rows    []Row
	indexes []Index
}

func (f *fakeTable) GetName() string     { return f.name }
func (f *fakeTable) GetSchema() []Column { return f.schema }
func (f *fakeTable) GetRows() ([]Row, error) {
	return f.rows, nil
}
func (f *fakeTable) GetRowsByRowid(rowids []int64) ([]Row, error) {
	want := make(map[int64]bool, len(rowids))
	for _, r := range rowids {
		want[r] = true
	}
	var out []Row
	for _, row := range f.rows {
		if want[row.Rowid] {
			out = append(out, row)
		}
	}
	return out, nil
}
func (f *fakeTable) Count() (int, error)   { return len(f.rows), nil }
func (f *fakeTable) GetIndexes() []Index   { return f.indexes }
func (f *fakeTable) AddIndex(idx Index)    { f.indexes = append(f.indexes, idx) }

// fakeIndex is a minimal in-memory Index over a single indexed column.
type fakeIndex struct {
	name    string
	table   string
	columns []string
	entries map[string][]IndexEntry // keyed by EncodedBytes
}

func (f *fakeIndex) GetName() string             { return f.name }
func (f *fakeIndex) GetTableName() string        { return f.table }
func (f *fakeIndex) GetIndexedColumns() []string { return f.columns }
func (f *fakeIndex) Count() (int, error) {
	n := 0
	for _, v := range f.entries {
		n += len(v)
	}
	return n, nil
}
func (f *fakeIndex) SearchByKey(key Value) ([]IndexEntry, error) {
	return f.entries[string(key.EncodedBytes())], nil
}

func newFruitTable() *fakeTable {
	schema := []Column{
		{Name: "id", Index: 0, IsPrimaryKey: true},
		{Name: "name", Index: 1},
	}
	rows := []Row{
		{Rowid: 1, Values: []Value{
			NewSQLiteValue(SerialTypeInt64, int64ToBigEndianBytes(1)),
			NewSQLiteValue(13+2*5, []byte("apple")),
		}},
		{Rowid: 2, Values: []Value{
			NewSQLiteValue(SerialTypeInt64, int64ToBigEndianBytes(2)),
			NewSQLiteValue(13+2*6, []byte("banana")),
		}},
		{Rowid: 3, Values: []Value{
			NewSQLiteValue(SerialTypeInt64, int64ToBigEndianBytes(3)),
			NewSQLiteValue(13+2*5, []byte("mango")),
		}},
	}
	return &fakeTable{name: "fruits", schema: schema, rows: rows}
}

type fakeDB struct {
	tables map[string]Table
}

func (d *fakeDB) LoadSchema() ([]SchemaRecord, error) { return nil, nil }
func (d *fakeDB) GetTableNames() ([]string, error)    { return nil, nil }
func (d *fakeDB) GetTable(name string) (Table, error) {
	if t, ok := d.tables[name]; ok {
		return t, nil
	}
	return nil, NewDatabaseError(KindPlanError, "get_table", ErrTableNotFound, nil)
}
func (d *fakeDB) GetIndex(name string) (Index, error)   { return nil, nil }
func (d *fakeDB) GetIndexNames() ([]string, error)      { return nil, nil }
func (d *fakeDB) GetPageSize() int                      { return 4096 }
func (d *fakeDB) Close() error                          { return nil }

func TestPlannerSelectAllExpandsColumns(t *testing.T) {
	table := newFruitTable()
	db := &fakeDB{tables: map[string]Table{"fruits": table}}
	planner := NewPlanner(db)

	stmt := &SelectStmt{IsSelectAll: true, From: "fruits"}
	plan, err := planner.Plan(stmt)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, plan.Columns)

	result, err := plan.Execute()
	require.NoError(t, err)
	require.Len(t, result.Rows, 3)
	assert.Equal(t, "apple", result.Rows[0].Values[1].String())
}

func TestPlannerCountStar(t *testing.T) {
	table := newFruitTable()
	db := &fakeDB{tables: map[string]Table{"fruits": table}}
	planner := NewPlanner(db)

	stmt := &SelectStmt{IsCountStar: true, From: "fruits"}
	plan, err := planner.Plan(stmt)
	require.NoError(t, err)

	result, err := plan.Execute()
	require.NoError(t, err)
	assert.True(t, result.IsCount)
	assert.Equal(t, 3, result.Count)
}

func TestPlannerWhereViaScan(t *testing.T) {
	table := newFruitTable()
	db := &fakeDB{tables: map[string]Table{"fruits": table}}
	planner := NewPlanner(db)

	stmt := &SelectStmt{Columns: []string{"name"}, From: "fruits", Where: &WhereClause{Column: "name", Value: "banana"}}
	plan, err := planner.Plan(stmt)
	require.NoError(t, err)
	assert.Nil(t, plan.UsedIndex)

	result, err := plan.Execute()
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "banana", result.Rows[0].Values[0].String())
}

func TestPlannerWhereViaIndex(t *testing.T) {
	table := newFruitTable()
	idx := &fakeIndex{
		name: "idx_name", table: "fruits", columns: []string{"name"},
		entries: map[string][]IndexEntry{
			"banana": {{Rowid: 2}},
		},
	}
	table.AddIndex(idx)
	db := &fakeDB{tables: map[string]Table{"fruits": table}}
	planner := NewPlanner(db)

	stmt := &SelectStmt{Columns: []string{"id", "name"}, From: "fruits", Where: &WhereClause{Column: "name", Value: "banana"}}
	plan, err := planner.Plan(stmt)
	require.NoError(t, err)
	require.NotNil(t, plan.UsedIndex)

	result, err := plan.Execute()
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, int64(2), result.Rows[0].Rowid)
}

// TestPlannerWhereViaIndexRechecksMatch guards the §4.9 step 2 re-check in
// executeViaIndex: an index can hand back a rowid whose row doesn't actually
// satisfy the typed equality filter (raw-byte index comparison and
// matchesLiteral's typed comparison aren't the same rule), and the plan must
// not trust the index result blindly.
func TestPlannerWhereViaIndexRechecksMatch(t *testing.T) {
	table := newFruitTable()
	idx := &fakeIndex{
		name: "idx_name", table: "fruits", columns: []string{"name"},
		entries: map[string][]IndexEntry{
			// Deliberately wrong: rowid 1 is "apple", not "banana". A real
			// index would never do this, but executeViaIndex must not trust
			// it without re-checking.
			"banana": {{Rowid: 1}},
		},
	}
	table.AddIndex(idx)
	db := &fakeDB{tables: map[string]Table{"fruits": table}}
	planner := NewPlanner(db)

	stmt := &SelectStmt{Columns: []string{"name"}, From: "fruits", Where: &WhereClause{Column: "name", Value: "banana"}}
	plan, err := planner.Plan(stmt)
	require.NoError(t, err)
	require.NotNil(t, plan.UsedIndex)

	result, err := plan.Execute()
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
}

func TestPlannerSelectIDPseudoColumn(t *testing.T) {
	table := newFruitTable()
	db := &fakeDB{tables: map[string]Table{"fruits": table}}
	planner := NewPlanner(db)

	stmt := &SelectStmt{Columns: []string{"id"}, From: "fruits"}
	plan, err := planner.Plan(stmt)
	require.NoError(t, err)

	result, err := plan.Execute()
	require.NoError(t, err)
	require.Len(t, result.Rows, 3)
	for i, row := range result.Rows {
		n, err := row.Values[0].Int64()
		require.NoError(t, err)
		assert.EqualValues(t, result.Rows[i].Rowid, n)
	}
}

func TestPlannerUnknownColumnErrors(t *testing.T) {
	table := newFruitTable()
	db := &fakeDB{tables: map[string]Table{"fruits": table}}
	planner := NewPlanner(db)

	stmt := &SelectStmt{Columns: []string{"nonexistent"}, From: "fruits"}
	plan, err := planner.Plan(stmt)
	require.NoError(t, err)

	_, err = plan.Execute()
	require.Error(t, err)
	var dbErr *DatabaseError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, KindPlanError, dbErr.Kind)
}

func TestPlannerUnknownTableErrors(t *testing.T) {
	db := &fakeDB{tables: map[string]Table{}}
	planner := NewPlanner(db)

	_, err := planner.Plan(&SelectStmt{From: "nope"})
	require.Error(t, err)
}

func TestMatchesLiteralIntegerColumn(t *testing.T) {
	v := NewSQLiteValue(SerialTypeInt16, []byte{0, 42})
	assert.True(t, matchesLiteral(v, "42"))
	assert.False(t, matchesLiteral(v, "43"))
}

func TestMatchesLiteralTextColumn(t *testing.T) {
	v := NewSQLiteValue(13+2*3, []byte("abc"))
	assert.True(t, matchesLiteral(v, "abc"))
	assert.False(t, matchesLiteral(v, "xyz"))
}

func TestLiteralValueEncoding(t *testing.T) {
	v := literalValue("123")
	assert.Equal(t, ValueTypeInt64, v.Type())
	n, _ := v.Int64()
	assert.EqualValues(t, 123, n)

	v = literalValue("hello")
	assert.Equal(t, ValueTypeText, v.Type())
	assert.Equal(t, "hello", v.String())
}
