package main

import "strconv"

// Plan is the linear three-step plan every SELECT reduces to (C9):
// SetTable picks the table, Where (optional) narrows the row set, and
// Select/Count decides what the final result looks like. There is no
// plan tree because the grammar has nothing to build one from - one
// table, one optional equality predicate.
type Plan struct {
	Table       Table
	Where       *WhereClause
	WhereColIdx int // -1 if Where is nil
	UsedIndex   Index
	IsCountStar bool
	Columns     []string
}

// QueryResult is the fully materialized result of executing a Plan.
type QueryResult struct {
	Columns []string
	Rows    []Row
	Count   int
	IsCount bool
}

// Planner turns a parsed SelectStmt into a Plan against a loaded Database.
type Planner struct {
	db Database
}

func NewPlanner(db Database) *Planner {
	return &Planner{db: db}
}

// Plan resolves stmt.From to a table, resolves stmt.Where's column, and
// decides whether an index can serve the predicate: an index is usable
// only for an equality predicate on its first (and for this engine, only)
// indexed column (§9).
func (pl *Planner) Plan(stmt *SelectStmt) (*Plan, error) {
	table, err := pl.db.GetTable(stmt.From)
	if err != nil {
		return nil, err
	}

	columns := stmt.Columns
	if stmt.IsSelectAll {
		schema := table.GetSchema()
		columns = make([]string, len(schema))
		for _, c := range schema {
			columns[c.Index] = c.Name
		}
	}

	plan := &Plan{
		Table:       table,
		IsCountStar: stmt.IsCountStar,
		Columns:     columns,
		WhereColIdx: -1,
	}

	if stmt.Where == nil {
		return plan, nil
	}
	plan.Where = stmt.Where

	schema := table.GetSchema()
	colIdx := -1
	for _, c := range schema {
		if equalFoldASCII(c.Name, stmt.Where.Column) {
			colIdx = c.Index
			break
		}
	}
	if colIdx == -1 {
		return nil, NewDatabaseError(KindPlanError, "plan_where", ErrColumnNotFound, map[string]interface{}{
			"column_name": stmt.Where.Column,
		})
	}
	plan.WhereColIdx = colIdx

	for _, idx := range table.GetIndexes() {
		cols := idx.GetIndexedColumns()
		if len(cols) > 0 && equalFoldASCII(cols[0], stmt.Where.Column) {
			plan.UsedIndex = idx
			break
		}
	}

	return plan, nil
}

// Execute runs a Plan to completion: index lookup or full scan, equality
// filter, then projection or counting.
func (e *Plan) Execute() (*QueryResult, error) {
	var rows []Row
	var err error

	switch {
	case e.Where == nil:
		rows, err = e.Table.GetRows()
	case e.UsedIndex != nil:
		rows, err = e.executeViaIndex()
	default:
		rows, err = e.executeViaScan()
	}
	if err != nil {
		return nil, err
	}

	if e.IsCountStar {
		return &QueryResult{IsCount: true, Count: len(rows)}, nil
	}

	// rowidPseudoCol marks a projected column as the "id" pseudo-column
	// (§4.9 step 3): it resolves to the cell's row id, not a stored value,
	// for callers selecting "id" on a table with no column of that name.
	const rowidPseudoCol = -2

	schema := e.Table.GetSchema()
	colIndices := make([]int, len(e.Columns))
	for i, name := range e.Columns {
		idx := -1
		for _, c := range schema {
			if equalFoldASCII(c.Name, name) {
				idx = c.Index
				break
			}
		}
		if idx == -1 && equalFoldASCII(name, "id") {
			idx = rowidPseudoCol
		}
		if idx == -1 {
			return nil, NewDatabaseError(KindPlanError, "select_columns", ErrColumnNotFound, map[string]interface{}{
				"column_name": name,
			})
		}
		colIndices[i] = idx
	}

	projected := make([]Row, len(rows))
	for i, row := range rows {
		values := make([]Value, len(colIndices))
		for j, idx := range colIndices {
			if idx == rowidPseudoCol {
				values[j] = NewSQLiteValue(SerialTypeInt64, int64ToBigEndianBytes(row.Rowid))
				continue
			}
			values[j] = row.Values[idx]
		}
		projected[i] = Row{Rowid: row.Rowid, Values: values}
	}

	return &QueryResult{Columns: e.Columns, Rows: projected}, nil
}

// executeViaIndex resolves the predicate through the index, fetches the
// matching rows directly by rowid, then re-applies the equality filter as
// a final correctness check (§4.9 step 2): the index compares raw encoded
// bytes while matchesLiteral compares typed values, and the two can
// disagree, so the index result is a candidate set, not the answer.
func (e *Plan) executeViaIndex() ([]Row, error) {
	literal := literalValue(e.Where.Value)
	entries, err := e.UsedIndex.SearchByKey(literal)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	rowids := make([]int64, len(entries))
	for i, entry := range entries {
		rowids[i] = entry.Rowid
	}
	rows, err := e.Table.GetRowsByRowid(rowids)
	if err != nil {
		return nil, err
	}
	var matched []Row
	for _, row := range rows {
		if matchesLiteral(row.Values[e.WhereColIdx], e.Where.Value) {
			matched = append(matched, row)
		}
	}
	return matched, nil
}

// executeViaScan performs a full scan, keeping only rows whose predicate
// column matches the literal (§4.5's equality rule).
func (e *Plan) executeViaScan() ([]Row, error) {
	all, err := e.Table.GetRows()
	if err != nil {
		return nil, err
	}
	var matched []Row
	for _, row := range all {
		if matchesLiteral(row.Values[e.WhereColIdx], e.Where.Value) {
			matched = append(matched, row)
		}
	}
	return matched, nil
}

// matchesLiteral compares a stored value against a SQL literal the way
// the grammar's only predicate shape needs: text compares as text, a
// literal that parses as an integer compares against the column's integer
// interpretation, and everything else falls back to the value's own
// display string (§4.5, §9).
func matchesLiteral(value Value, literal string) bool {
	if value.Type() == ValueTypeText {
		return string(value.Raw()) == literal
	}
	if n, err := strconv.ParseInt(literal, 10, 64); err == nil {
		if vi, err2 := value.Int64(); err2 == nil {
			return vi == n
		}
	}
	return value.String() == literal
}

// literalValue builds the Value a WHERE literal would have been stored
// as, for raw-byte index-key comparison (§4.5): digits encode as a real
// big-endian int64, everything else as its UTF-8 text bytes.
func literalValue(literal string) *SQLiteValue {
	if n, err := strconv.ParseInt(literal, 10, 64); err == nil {
		return NewSQLiteValue(SerialTypeInt64, int64ToBigEndianBytes(n))
	}
	textSerialType := uint8(13 + 2*len(literal))
	return NewSQLiteValue(textSerialType, []byte(literal))
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
