package main

// IndexRaw is the thin physical-index view over a B-tree.
type IndexRaw interface {
	ReadAllCells() ([]IndexEntry, error)
	SearchKeys(key []byte) ([]IndexEntry, error)
	GetIndexedColumns() []string
	GetRootPage() int
	GetName() string
}

// IndexRawImpl wraps a BTree of type Index. Its indexed columns and owning
// table name are resolved once, by the schema catalog (C6) re-parsing the
// CREATE INDEX statement with the real parser (C8) - not by re-scanning
// the SQL text here with a regex.
type IndexRawImpl struct {
	dbRaw          DatabaseRaw
	name           string
	rootPage       int
	indexedColumns []string
	tableName      string
	btree          *BTree
}

func NewIndexRaw(dbRaw DatabaseRaw, name string, rootPage int, indexedColumns []string, tableName string) *IndexRawImpl {
	return &IndexRawImpl{
		dbRaw:          dbRaw,
		name:           name,
		rootPage:       rootPage,
		indexedColumns: indexedColumns,
		tableName:      tableName,
		btree:          NewBTree(dbRaw, rootPage, BTreeTypeIndex),
	}
}

func (ir *IndexRawImpl) ReadAllCells() ([]IndexEntry, error) {
	cells, err := ir.btree.TraverseAll()
	if err != nil {
		return nil, err
	}
	entries := make([]IndexEntry, len(cells))
	for i, c := range cells {
		entries[i] = cellToIndexEntry(c)
	}
	return entries, nil
}

// SearchKeys finds every entry whose first (only supported) key column's
// raw encoding equals key (§4.5 equality, raw-byte rule).
func (ir *IndexRawImpl) SearchKeys(key []byte) ([]IndexEntry, error) {
	return ir.btree.LookupIndex(key)
}

func (ir *IndexRawImpl) GetIndexedColumns() []string { return ir.indexedColumns }
func (ir *IndexRawImpl) GetRootPage() int            { return ir.rootPage }
func (ir *IndexRawImpl) GetName() string             { return ir.name }
func (ir *IndexRawImpl) GetTableName() string        { return ir.tableName }
