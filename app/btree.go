package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

// BTreeType distinguishes table B-trees (rowid-keyed) from index B-trees
// (tuple-keyed, trailing rowid).
type BTreeType int

const (
	BTreeTypeTable BTreeType = iota
	BTreeTypeIndex
)

// BTree is the single traversal engine for both table and index B-trees
// (C5). It is synchronous: every call walks pages on the calling
// goroutine, matching the single-threaded core (§5).
type BTree struct {
	dbRaw     DatabaseRaw
	rootPage  int
	btreeType BTreeType
}

func NewBTree(dbRaw DatabaseRaw, rootPage int, btreeType BTreeType) *BTree {
	return &BTree{dbRaw: dbRaw, rootPage: rootPage, btreeType: btreeType}
}

// TraverseAll performs a full, left-to-right scan of every leaf cell,
// detecting page cycles (§4.5: "MUST detect a revisited page and fail
// rather than loop").
func (bt *BTree) TraverseAll() ([]Cell, error) {
	visited := make(map[int]bool)
	return bt.traversePage(bt.rootPage, visited)
}

func (bt *BTree) traversePage(pageNum int, visited map[int]bool) ([]Cell, error) {
	if visited[pageNum] {
		return nil, NewDatabaseError(KindMalformedFile, "traverse_btree", ErrCycleDetected, map[string]interface{}{"page": pageNum})
	}
	visited[pageNum] = true

	pageData, err := bt.dbRaw.ReadPage(pageNum)
	if err != nil {
		return nil, fmt.Errorf("read page %d: %w", pageNum, err)
	}
	header, err := parsePageHeaderBytes(pageData)
	if err != nil {
		return nil, fmt.Errorf("parse page %d header: %w", pageNum, err)
	}

	if bt.isLeaf(header) {
		return bt.readLeafCells(header, pageData)
	}
	return bt.traverseInterior(header, pageData, visited)
}

func (bt *BTree) traverseInterior(header *PageHeader, pageData []byte, visited map[int]bool) ([]Cell, error) {
	var all []Cell
	ptrOffset := header.HeaderSize()
	for i := uint16(0); i < header.CellCount; i++ {
		off := ptrOffset + int(i)*2
		if off+2 > len(pageData) {
			return nil, NewDatabaseError(KindMalformedFile, "traverse_interior", ErrInvalidCellPointer, nil)
		}
		cellOffset := int(binary.BigEndian.Uint16(pageData[off : off+2]))

		var childPage uint32
		var err error
		switch bt.btreeType {
		case BTreeTypeTable:
			childPage, _, err = parseInteriorTableCell(pageData, cellOffset)
		case BTreeTypeIndex:
			childPage, _, err = parseInteriorIndexCell(pageData, cellOffset)
		}
		if err != nil {
			return nil, err
		}
		childCells, err := bt.traversePage(int(childPage), visited)
		if err != nil {
			return nil, err
		}
		all = append(all, childCells...)
	}

	rightmost := getRightmostChild(pageData)
	rightCells, err := bt.traversePage(int(rightmost), visited)
	if err != nil {
		return nil, err
	}
	all = append(all, rightCells...)
	return all, nil
}

func (bt *BTree) readLeafCells(header *PageHeader, pageData []byte) ([]Cell, error) {
	var cells []Cell
	ptrOffset := header.HeaderSize()
	for i := uint16(0); i < header.CellCount; i++ {
		off := ptrOffset + int(i)*2
		if off+2 > len(pageData) {
			return nil, NewDatabaseError(KindMalformedFile, "read_leaf_cells", ErrInvalidCellPointer, nil)
		}
		cellOffset := int(binary.BigEndian.Uint16(pageData[off : off+2]))

		var cell *Cell
		var err error
		switch bt.btreeType {
		case BTreeTypeTable:
			cell, err = parseTableLeafCell(pageData, cellOffset)
		case BTreeTypeIndex:
			cell, err = parseIndexLeafCell(pageData, cellOffset)
		}
		if err != nil {
			return nil, err
		}
		cells = append(cells, *cell)
	}
	return cells, nil
}

func (bt *BTree) isLeaf(header *PageHeader) bool {
	switch bt.btreeType {
	case BTreeTypeTable:
		return header.IsLeafTable()
	case BTreeTypeIndex:
		return header.IsLeafIndex()
	default:
		return false
	}
}

// FetchByRowIDs fetches exactly the rows named by rowids, exploiting the
// fact that a table B-tree is ordered by rowid: a single descent with a
// two-pointer merge against the sorted target list visits each page at
// most once, instead of a full scan per id (§9's row-id-directed-fetch
// hint).
func (bt *BTree) FetchByRowIDs(rowids []int64) ([]Cell, error) {
	targets := append([]int64(nil), rowids...)
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	visited := make(map[int]bool)
	return bt.fetchRowIDsPage(bt.rootPage, targets, visited)
}

func (bt *BTree) fetchRowIDsPage(pageNum int, targets []int64, visited map[int]bool) ([]Cell, error) {
	if len(targets) == 0 {
		return nil, nil
	}
	if visited[pageNum] {
		return nil, NewDatabaseError(KindMalformedFile, "fetch_by_rowids", ErrCycleDetected, map[string]interface{}{"page": pageNum})
	}
	visited[pageNum] = true

	pageData, err := bt.dbRaw.ReadPage(pageNum)
	if err != nil {
		return nil, fmt.Errorf("read page %d: %w", pageNum, err)
	}
	header, err := parsePageHeaderBytes(pageData)
	if err != nil {
		return nil, err
	}
	ptrOffset := header.HeaderSize()

	if header.IsLeafTable() {
		var results []Cell
		ti := 0
		for i := uint16(0); i < header.CellCount && ti < len(targets); i++ {
			off := ptrOffset + int(i)*2
			if off+2 > len(pageData) {
				return nil, NewDatabaseError(KindMalformedFile, "fetch_by_rowids", ErrInvalidCellPointer, nil)
			}
			cellOffset := int(binary.BigEndian.Uint16(pageData[off : off+2]))
			cell, err := parseTableLeafCell(pageData, cellOffset)
			if err != nil {
				return nil, err
			}
			for ti < len(targets) && targets[ti] < int64(cell.Rowid) {
				ti++
			}
			if ti < len(targets) && targets[ti] == int64(cell.Rowid) {
				results = append(results, *cell)
				ti++
			}
		}
		return results, nil
	}

	if !header.IsInteriorTable() {
		return nil, NewDatabaseError(KindMalformedFile, "fetch_by_rowids", ErrInvalidPageType, map[string]interface{}{"page_type": header.PageType})
	}

	var results []Cell
	ti := 0
	for i := uint16(0); i < header.CellCount; i++ {
		off := ptrOffset + int(i)*2
		if off+2 > len(pageData) {
			return nil, NewDatabaseError(KindMalformedFile, "fetch_by_rowids", ErrInvalidCellPointer, nil)
		}
		cellOffset := int(binary.BigEndian.Uint16(pageData[off : off+2]))
		childPage, maxRowid, err := parseInteriorTableCell(pageData, cellOffset)
		if err != nil {
			return nil, err
		}

		start := ti
		for ti < len(targets) && targets[ti] <= maxRowid {
			ti++
		}
		if ti > start {
			childCells, err := bt.fetchRowIDsPage(int(childPage), targets[start:ti], visited)
			if err != nil {
				return nil, err
			}
			results = append(results, childCells...)
		}
	}

	if ti < len(targets) {
		rightmost := getRightmostChild(pageData)
		childCells, err := bt.fetchRowIDsPage(int(rightmost), targets[ti:], visited)
		if err != nil {
			return nil, err
		}
		results = append(results, childCells...)
	}
	return results, nil
}

// LookupIndex finds every index entry whose first key column equals
// searchKey (equality is the only predicate an index can serve, per the
// planner's index-usable rule), descending interior pages with a
// linear search for the first child boundary >= the key and a
// rightmost-child fallback (§4.5).
func (bt *BTree) LookupIndex(searchKey []byte) ([]IndexEntry, error) {
	visited := make(map[int]bool)
	cells, err := bt.lookupIndexPage(bt.rootPage, searchKey, visited)
	if err != nil {
		return nil, err
	}

	var entries []IndexEntry
	for _, cell := range cells {
		entries = append(entries, cellToIndexEntry(cell))
	}
	return entries, nil
}

func (bt *BTree) lookupIndexPage(pageNum int, searchKey []byte, visited map[int]bool) ([]Cell, error) {
	if visited[pageNum] {
		return nil, NewDatabaseError(KindMalformedFile, "lookup_index", ErrCycleDetected, map[string]interface{}{"page": pageNum})
	}
	visited[pageNum] = true

	pageData, err := bt.dbRaw.ReadPage(pageNum)
	if err != nil {
		return nil, fmt.Errorf("read page %d: %w", pageNum, err)
	}
	header, err := parsePageHeaderBytes(pageData)
	if err != nil {
		return nil, err
	}
	ptrOffset := header.HeaderSize()

	if header.IsLeafIndex() {
		var matches []Cell
		for i := uint16(0); i < header.CellCount; i++ {
			off := ptrOffset + int(i)*2
			if off+2 > len(pageData) {
				return nil, NewDatabaseError(KindMalformedFile, "lookup_index", ErrInvalidCellPointer, nil)
			}
			cellOffset := int(binary.BigEndian.Uint16(pageData[off : off+2]))
			cell, err := parseIndexLeafCell(pageData, cellOffset)
			if err != nil {
				return nil, err
			}
			if bytes.Equal(firstKeyBytes(*cell), searchKey) {
				matches = append(matches, *cell)
			}
		}
		return matches, nil
	}

	if !header.IsInteriorIndex() {
		return nil, NewDatabaseError(KindMalformedFile, "lookup_index", ErrInvalidPageType, map[string]interface{}{"page_type": header.PageType})
	}

	var matches []Cell
	for i := uint16(0); i < header.CellCount; i++ {
		off := ptrOffset + int(i)*2
		if off+2 > len(pageData) {
			return nil, NewDatabaseError(KindMalformedFile, "lookup_index", ErrInvalidCellPointer, nil)
		}
		cellOffset := int(binary.BigEndian.Uint16(pageData[off : off+2]))
		childPage, cell, err := parseInteriorIndexCell(pageData, cellOffset)
		if err != nil {
			return nil, err
		}
		key := firstKeyBytes(*cell)
		cmp := bytes.Compare(searchKey, key)

		if cmp > 0 {
			// searchKey is past this cell's key: its left child (keys <= key)
			// cannot hold it, and neither can this cell. Move on.
			continue
		}

		// searchKey <= key: the left child's subtree could still hold it.
		childCells, err := bt.lookupIndexPage(int(childPage), searchKey, visited)
		if err != nil {
			return nil, err
		}
		matches = append(matches, childCells...)

		if cmp == 0 {
			// Exact equality: the cell itself is a match too. Duplicate-
			// valued columns can span further cells with the same key, so
			// keep scanning instead of returning (§4.5).
			matches = append(matches, *cell)
			continue
		}

		// cmp < 0: every remaining cell's key is >= this one, so nothing
		// past this point - including the rightmost child - can match.
		return matches, nil
	}

	// Every cell's key was <= searchKey: the rightmost child (keys greater
	// than the last cell's) could still hold matching entries.
	rightmost := getRightmostChild(pageData)
	rightCells, err := bt.lookupIndexPage(int(rightmost), searchKey, visited)
	if err != nil {
		return nil, err
	}
	matches = append(matches, rightCells...)
	return matches, nil
}

func getRightmostChild(pageData []byte) uint32 {
	const headerOffset = 0 // caller passes full page starting at the B-tree page header
	if len(pageData) < headerOffset+12 {
		return 0
	}
	return binary.BigEndian.Uint32(pageData[headerOffset+8 : headerOffset+12])
}
