package main

import "strings"

// Database is the logical, schema-aware view of a SQLite file.
type Database interface {
	LoadSchema() ([]SchemaRecord, error)
	GetTableNames() ([]string, error)
	GetTable(name string) (Table, error)
	GetIndex(name string) (Index, error)
	GetIndexNames() ([]string, error)
	GetPageSize() int
	Close() error
}

// DatabaseImpl implements Database, caching the catalog after first load.
type DatabaseImpl struct {
	dbRaw        DatabaseRaw
	tables       map[string]Table
	indexes      map[string]Index
	schemas      []SchemaRecord
	schemaLoaded bool
}

func NewDatabase(filePath string, options ...DatabaseOption) (*DatabaseImpl, error) {
	dbRaw, err := NewDatabaseRaw(filePath, options...)
	if err != nil {
		return nil, err
	}
	return &DatabaseImpl{
		dbRaw:   dbRaw,
		tables:  make(map[string]Table),
		indexes: make(map[string]Index),
	}, nil
}

// LoadSchema reads every sqlite_master row and re-parses its stored DDL
// with the real lexer/parser (C7/C8) to recover the catalog (C6) - column
// order, primary keys, and index columns all come from this single re-
// parse rather than a second regex scan.
func (db *DatabaseImpl) LoadSchema() ([]SchemaRecord, error) {
	if db.schemaLoaded {
		return db.schemas, nil
	}

	schemaCells, err := db.dbRaw.ReadSchemaCells()
	if err != nil {
		return nil, NewDatabaseError(KindMalformedFile, "load_schema", err, nil)
	}

	var schemas []SchemaRecord
	for _, cell := range schemaCells {
		schema := cell.Record.RecordBody.ParseAsSchema(cell.Record.RecordHeader)
		if schema == nil {
			continue
		}
		if schema.Type == "table" {
			columns, err := parseTableColumns(schema.SQL)
			if err != nil {
				return nil, NewDatabaseError(KindMalformedFile, "parse_table_schema", err, map[string]interface{}{
					"table_name": schema.Name,
				})
			}
			schema.Columns = columns
		}
		schemas = append(schemas, *schema)
	}

	tables := make(map[string]Table)
	indexes := make(map[string]Index)

	for idx := range schemas {
		schema := &schemas[idx]
		if schema.Type != "table" {
			continue
		}
		tableRaw := NewTableRaw(db.dbRaw, schema.Name, int(schema.RootPage))
		tables[strings.ToLower(schema.Name)] = NewTable(tableRaw, schema)
	}

	for idx := range schemas {
		schema := &schemas[idx]
		if schema.Type != "index" {
			continue
		}
		indexCols, tableName, err := parseIndexDef(schema.SQL)
		if err != nil {
			return nil, NewDatabaseError(KindMalformedFile, "parse_index_schema", err, map[string]interface{}{
				"index_name": schema.Name,
			})
		}
		if tableName == "" {
			tableName = schema.TblName
		}
		indexRaw := NewIndexRaw(db.dbRaw, schema.Name, int(schema.RootPage), indexCols, tableName)
		index := NewIndex(indexRaw, schema)
		indexes[strings.ToLower(schema.Name)] = index

		if table, ok := tables[strings.ToLower(tableName)]; ok {
			if tableImpl, ok := table.(*TableImpl); ok {
				tableImpl.AddIndex(index)
			}
		}
	}

	db.schemas = schemas
	db.tables = tables
	db.indexes = indexes
	db.schemaLoaded = true
	return schemas, nil
}

// GetTableNames returns every table name in master-page order,
// sqlite_sequence included (§6.4).
func (db *DatabaseImpl) GetTableNames() ([]string, error) {
	if err := db.ensureLoaded(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(db.tables))
	for _, schema := range db.schemas {
		if schema.Type == "table" {
			names = append(names, schema.Name)
		}
	}
	return names, nil
}

// GetTable looks up a table case-insensitively (§4.6).
func (db *DatabaseImpl) GetTable(name string) (Table, error) {
	if err := db.ensureLoaded(); err != nil {
		return nil, err
	}
	if table, ok := db.tables[strings.ToLower(name)]; ok {
		return table, nil
	}
	return nil, NewDatabaseError(KindPlanError, "get_table", ErrTableNotFound, map[string]interface{}{"table_name": name})
}

// GetIndex looks up an index case-insensitively (§4.6).
func (db *DatabaseImpl) GetIndex(name string) (Index, error) {
	if err := db.ensureLoaded(); err != nil {
		return nil, err
	}
	if index, ok := db.indexes[strings.ToLower(name)]; ok {
		return index, nil
	}
	return nil, NewDatabaseError(KindPlanError, "get_index", ErrIndexNotFound, map[string]interface{}{"index_name": name})
}

func (db *DatabaseImpl) GetIndexNames() ([]string, error) {
	if err := db.ensureLoaded(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(db.indexes))
	for _, schema := range db.schemas {
		if schema.Type == "index" {
			names = append(names, schema.Name)
		}
	}
	return names, nil
}

func (db *DatabaseImpl) ensureLoaded() error {
	if db.schemaLoaded {
		return nil
	}
	_, err := db.LoadSchema()
	return err
}

func (db *DatabaseImpl) GetPageSize() int { return db.dbRaw.GetPageSize() }
func (db *DatabaseImpl) Close() error     { return db.dbRaw.Close() }

// parseTableColumns re-parses a stored CREATE TABLE statement with the
// real parser (C8). sqlite_sequence is the one object every SQLite file
// carries whose declared columns have no type at all
// (`CREATE TABLE sqlite_sequence(name,seq)`); its two columns are rewritten
// to the equivalent of `sqlite_sequence(name TEXT, seq INTEGER)` (§9's
// special case), since every other catalog entry's columns carry a type.
func parseTableColumns(sql string) ([]Column, error) {
	stmtList, err := Parse(sql)
	if err != nil {
		return nil, err
	}
	if len(stmtList.Statements) != 1 {
		return nil, NewDatabaseError(KindMalformedFile, "parse_table_columns", ErrInvalidVarint, map[string]interface{}{
			"reason": "expected exactly one CREATE TABLE statement",
		})
	}
	create, ok := stmtList.Statements[0].(*CreateTableStmt)
	if !ok {
		return nil, NewDatabaseError(KindMalformedFile, "parse_table_columns", ErrInvalidVarint, map[string]interface{}{
			"reason": "stored DDL is not a CREATE TABLE statement",
		})
	}

	isSqliteSequence := strings.EqualFold(create.Name, "sqlite_sequence")
	sqliteSequenceTypes := []string{"TEXT", "INTEGER"}

	columns := make([]Column, len(create.Columns))
	for i, col := range create.Columns {
		colType := col.Type
		if isSqliteSequence && colType == "" && i < len(sqliteSequenceTypes) {
			colType = sqliteSequenceTypes[i]
		}
		columns[i] = Column{
			Name:         col.Name,
			Type:         colType,
			Index:        i,
			IsPrimaryKey: col.IsPrimaryKey && colType == "INTEGER",
		}
	}
	return columns, nil
}

// parseIndexDef re-parses a stored CREATE INDEX statement, returning its
// indexed columns in declared order and the table it covers (§9: declared
// order is preserved, never alphabetized).
func parseIndexDef(sql string) (columns []string, tableName string, err error) {
	stmtList, err := Parse(sql)
	if err != nil {
		return nil, "", err
	}
	if len(stmtList.Statements) != 1 {
		return nil, "", NewDatabaseError(KindMalformedFile, "parse_index_def", ErrInvalidVarint, map[string]interface{}{
			"reason": "expected exactly one CREATE INDEX statement",
		})
	}
	create, ok := stmtList.Statements[0].(*CreateIndexStmt)
	if !ok {
		return nil, "", NewDatabaseError(KindMalformedFile, "parse_index_def", ErrInvalidVarint, map[string]interface{}{
			"reason": "stored DDL is not a CREATE INDEX statement",
		})
	}
	return create.Columns, create.TableName, nil
}
