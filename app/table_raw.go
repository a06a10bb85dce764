package main

// TableRaw is the thin physical-table view over a B-tree: a name, a root
// page, and the operations the logical table layer needs.
type TableRaw interface {
	ReadAllCells() ([]CellWithPosition, error)
	FetchByRowIDs(rowids []int64) ([]Cell, error)
	GetRootPage() int
	GetName() string
}

type TableRawImpl struct {
	dbRaw    DatabaseRaw
	name     string
	rootPage int
	btree    *BTree
}

func NewTableRaw(dbRaw DatabaseRaw, name string, rootPage int) *TableRawImpl {
	return &TableRawImpl{
		dbRaw:    dbRaw,
		name:     name,
		rootPage: rootPage,
		btree:    NewBTree(dbRaw, rootPage, BTreeTypeTable),
	}
}

// ReadAllCells performs a full left-to-right scan of the table (§4.5's
// ordering guarantee: row ids ascend within a leaf, leaves are visited in
// key order).
func (tr *TableRawImpl) ReadAllCells() ([]CellWithPosition, error) {
	cells, err := tr.btree.TraverseAll()
	if err != nil {
		return nil, err
	}
	positioned := make([]CellWithPosition, len(cells))
	for i, c := range cells {
		positioned[i] = CellWithPosition{Cell: c, PageNumber: tr.rootPage}
	}
	return positioned, nil
}

// FetchByRowIDs fetches specific rows by their rowid directly (§9).
func (tr *TableRawImpl) FetchByRowIDs(rowids []int64) ([]Cell, error) {
	return tr.btree.FetchByRowIDs(rowids)
}

func (tr *TableRawImpl) GetRootPage() int { return tr.rootPage }
func (tr *TableRawImpl) GetName() string  { return tr.name }
