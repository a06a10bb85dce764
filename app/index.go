package main

// Index is the logical view of an index B-tree.
type Index interface {
	GetName() string
	GetTableName() string
	GetIndexedColumns() []string
	Count() (int, error)
	SearchByKey(key Value) ([]IndexEntry, error)
}

// IndexImpl implements Index over an IndexRaw.
type IndexImpl struct {
	indexRaw  IndexRaw
	schema    *SchemaRecord
	tableName string
}

func NewIndex(indexRaw IndexRaw, schema *SchemaRecord) *IndexImpl {
	return &IndexImpl{indexRaw: indexRaw, schema: schema, tableName: schema.TblName}
}

func (i *IndexImpl) GetName() string             { return i.schema.Name }
func (i *IndexImpl) GetTableName() string        { return i.tableName }
func (i *IndexImpl) GetIndexedColumns() []string { return i.indexRaw.GetIndexedColumns() }

func (i *IndexImpl) Count() (int, error) {
	entries, err := i.indexRaw.ReadAllCells()
	if err != nil {
		return 0, NewDatabaseError(KindMalformedFile, "count_index_entries", err, map[string]interface{}{
			"index_name": i.schema.Name,
		})
	}
	return len(entries), nil
}

// SearchByKey looks up every row whose first indexed column's raw
// encoding equals key's (§4.5's raw-byte equality rule - the index's own
// B-tree ordering never has to agree with the column's typed ordering for
// this to work, since we only ever ask for equality).
func (i *IndexImpl) SearchByKey(key Value) ([]IndexEntry, error) {
	return i.indexRaw.SearchKeys(key.EncodedBytes())
}
