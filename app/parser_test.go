package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelectColumnsWithWhere(t *testing.T) {
	list, err := Parse("SELECT id, name FROM users WHERE id = 5")
	require.NoError(t, err)
	require.Len(t, list.Statements, 1)

	sel, ok := list.Statements[0].(*SelectStmt)
	require.True(t, ok)
	assert.False(t, sel.IsCountStar)
	assert.False(t, sel.IsSelectAll)
	assert.Equal(t, []string{"id", "name"}, sel.Columns)
	assert.Equal(t, "users", sel.From)
	require.NotNil(t, sel.Where)
	assert.Equal(t, "id", sel.Where.Column)
	assert.Equal(t, "5", sel.Where.Value)
}

func TestParseSelectCountStar(t *testing.T) {
	list, err := Parse("SELECT COUNT(*) FROM apples")
	require.NoError(t, err)
	sel := list.Statements[0].(*SelectStmt)
	assert.True(t, sel.IsCountStar)
	assert.Equal(t, "apples", sel.From)
}

func TestParseSelectStar(t *testing.T) {
	list, err := Parse("SELECT * FROM apples")
	require.NoError(t, err)
	sel := list.Statements[0].(*SelectStmt)
	assert.True(t, sel.IsSelectAll)
	assert.False(t, sel.IsCountStar)
	assert.Nil(t, sel.Columns)
	assert.Equal(t, "apples", sel.From)
}

func TestParseSelectWhereStringLiteral(t *testing.T) {
	list, err := Parse("SELECT name FROM users WHERE name = 'bob'")
	require.NoError(t, err)
	sel := list.Statements[0].(*SelectStmt)
	require.NotNil(t, sel.Where)
	assert.Equal(t, "bob", sel.Where.Value)
}

func TestParseCreateTable(t *testing.T) {
	list, err := Parse("CREATE TABLE apples(id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL)")
	require.NoError(t, err)
	create := list.Statements[0].(*CreateTableStmt)
	assert.Equal(t, "apples", create.Name)
	require.Len(t, create.Columns, 2)

	assert.Equal(t, "id", create.Columns[0].Name)
	assert.Equal(t, "INTEGER", create.Columns[0].Type)
	assert.True(t, create.Columns[0].IsPrimaryKey)
	assert.True(t, create.Columns[0].IsAutoIncrement)

	assert.Equal(t, "name", create.Columns[1].Name)
	assert.Equal(t, "TEXT", create.Columns[1].Type)
	assert.False(t, create.Columns[1].IsPrimaryKey)
}

func TestParseCreateTableUntypedColumns(t *testing.T) {
	list, err := Parse("CREATE TABLE sqlite_sequence(name,seq)")
	require.NoError(t, err)
	create := list.Statements[0].(*CreateTableStmt)
	assert.Equal(t, "sqlite_sequence", create.Name)
	require.Len(t, create.Columns, 2)
	assert.Equal(t, "", create.Columns[0].Type)
	assert.Equal(t, "", create.Columns[1].Type)
}

func TestParseTableColumnsRewritesSqliteSequence(t *testing.T) {
	columns, err := parseTableColumns("CREATE TABLE sqlite_sequence(name,seq)")
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.Equal(t, "TEXT", columns[0].Type)
	assert.Equal(t, "INTEGER", columns[1].Type)
}

func TestParseCreateIndex(t *testing.T) {
	list, err := Parse("CREATE INDEX idx_name ON apples (name)")
	require.NoError(t, err)
	create := list.Statements[0].(*CreateIndexStmt)
	assert.Equal(t, "idx_name", create.Name)
	assert.Equal(t, "apples", create.TableName)
	assert.Equal(t, []string{"name"}, create.Columns)
}

func TestParseIndexDefPreservesDeclaredOrder(t *testing.T) {
	cols, table, err := parseIndexDef("CREATE INDEX idx ON widgets (zeta, alpha, mu)")
	require.NoError(t, err)
	assert.Equal(t, "widgets", table)
	assert.Equal(t, []string{"zeta", "alpha", "mu"}, cols)
}

func TestParseRejectsUnsupportedStatement(t *testing.T) {
	_, err := Parse("DELETE FROM apples")
	require.Error(t, err)
}

func TestParseRejectsTrailingInput(t *testing.T) {
	_, err := Parse("SELECT * FROM t garbage")
	require.Error(t, err)
}

func TestParseMultipleStatements(t *testing.T) {
	list, err := Parse("SELECT * FROM a; SELECT * FROM b;")
	require.NoError(t, err)
	require.Len(t, list.Statements, 2)
}
