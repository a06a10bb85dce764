package main

// Table is the logical, typed view of a table B-tree: schema-aware rows
// instead of raw cells.
type Table interface {
	GetName() string
	GetSchema() []Column
	GetRows() ([]Row, error)
	GetRowsByRowid(rowids []int64) ([]Row, error)
	Count() (int, error)
	GetIndexes() []Index
	AddIndex(idx Index)
}

// TableImpl implements Table over a TableRaw and the columns the catalog
// (C6) already parsed from the stored DDL - it never re-parses SQL
// itself.
type TableImpl struct {
	tableRaw TableRaw
	schema   *SchemaRecord
	columns  []Column
	indexes  []Index
	rowidCol int // index of the INTEGER PRIMARY KEY column aliasing rowid, or -1
}

func NewTable(tableRaw TableRaw, schema *SchemaRecord) *TableImpl {
	rowidCol := -1
	for _, c := range schema.Columns {
		if c.IsPrimaryKey {
			rowidCol = c.Index
			break
		}
	}
	return &TableImpl{
		tableRaw: tableRaw,
		schema:   schema,
		columns:  schema.Columns,
		rowidCol: rowidCol,
	}
}

func (t *TableImpl) GetName() string      { return t.schema.Name }
func (t *TableImpl) GetSchema() []Column  { return t.columns }
func (t *TableImpl) GetIndexes() []Index  { return t.indexes }
func (t *TableImpl) AddIndex(idx Index)   { t.indexes = append(t.indexes, idx) }

// GetRows performs a full table scan (§4.5's ordering guarantee).
func (t *TableImpl) GetRows() ([]Row, error) {
	cells, err := t.tableRaw.ReadAllCells()
	if err != nil {
		return nil, NewDatabaseError(KindMalformedFile, "get_table_rows", err, map[string]interface{}{
			"table_name": t.schema.Name,
		})
	}
	rows := make([]Row, len(cells))
	for i, cell := range cells {
		rows[i] = t.cellToRow(cell.Cell)
	}
	return rows, nil
}

// GetRowsByRowid fetches specific rows directly (§9's row-id-directed
// fetch), used when the planner resolves an equality predicate through an
// index.
func (t *TableImpl) GetRowsByRowid(rowids []int64) ([]Row, error) {
	cells, err := t.tableRaw.FetchByRowIDs(rowids)
	if err != nil {
		return nil, NewDatabaseError(KindMalformedFile, "get_rows_by_rowid", err, map[string]interface{}{
			"table_name": t.schema.Name,
		})
	}
	rows := make([]Row, len(cells))
	for i, cell := range cells {
		rows[i] = t.cellToRow(cell)
	}
	return rows, nil
}

func (t *TableImpl) Count() (int, error) {
	cells, err := t.tableRaw.ReadAllCells()
	if err != nil {
		return 0, NewDatabaseError(KindMalformedFile, "count_table_rows", err, map[string]interface{}{
			"table_name": t.schema.Name,
		})
	}
	return len(cells), nil
}

// cellToRow converts a physical cell into a typed row, substituting the
// cell's own rowid for the INTEGER PRIMARY KEY column's value whenever
// that column is stored as NULL - SQLite's rowid-alias convention: such a
// column is *always* a synonym for the rowid, so a NULL stored byte-width
// never means an actual NULL there (§3).
func (t *TableImpl) cellToRow(cell Cell) Row {
	values := make([]Value, len(cell.Record.RecordBody.Values))
	for i, rawValue := range cell.Record.RecordBody.Values {
		serialType := uint8(SerialTypeNull)
		if i < len(cell.Record.RecordHeader.SerialTypes) {
			serialType = cell.Record.RecordHeader.SerialTypes[i]
		}
		v := NewSQLiteValue(serialType, toBytes(rawValue))
		if i == t.rowidCol && v.IsNull() {
			values[i] = NewSQLiteValue(SerialTypeInt64, int64ToBigEndianBytes(int64(cell.Rowid)))
			continue
		}
		values[i] = v
	}
	return Row{Rowid: int64(cell.Rowid), Values: values}
}

func int64ToBigEndianBytes(v int64) []byte {
	b := make([]byte, 8)
	u := uint64(v)
	for i := 7; i >= 0; i-- {
		b[i] = byte(u)
		u >>= 8
	}
	return b
}
