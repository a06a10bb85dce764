package main

import "encoding/binary"

// Cell-shape parsers for the four page types (§4.2): table-leaf cells are
// handled by parseTableLeafCell in database_raw.go (shared with the
// master-page reader); the remaining three shapes live here.

// parseInteriorTableCell reads a table-interior cell: 4-byte child page
// number followed by a varint rowid key (the largest rowid in the child
// subtree).
func parseInteriorTableCell(pageData []byte, offset int) (childPage uint32, rowid int64, err error) {
	if offset+4 > len(pageData) {
		return 0, 0, NewDatabaseError(KindMalformedFile, "parse_interior_table_cell", ErrInvalidCellPointer, map[string]interface{}{"offset": offset})
	}
	childPage = binary.BigEndian.Uint32(pageData[offset : offset+4])
	offset += 4

	key, n := readVarint(pageData, offset)
	if n == 0 {
		return 0, 0, NewDatabaseError(KindMalformedFile, "parse_interior_table_cell", ErrInvalidVarint, nil)
	}
	return childPage, int64(key), nil
}

// parseInteriorIndexCell reads an index-interior cell: 4-byte child page
// number, varint payload size, then the key record itself. The cell's own
// record is returned in full (not just its key bytes) because an interior
// index cell is itself a real entry - on exact equality the caller must be
// able to emit it, not just use it as a child-page boundary (§4.5).
func parseInteriorIndexCell(pageData []byte, offset int) (childPage uint32, cell *Cell, err error) {
	if offset+4 > len(pageData) {
		return 0, nil, NewDatabaseError(KindMalformedFile, "parse_interior_index_cell", ErrInvalidCellPointer, map[string]interface{}{"offset": offset})
	}
	childPage = binary.BigEndian.Uint32(pageData[offset : offset+4])
	offset += 4

	payloadSize, n := readVarint(pageData, offset)
	if n == 0 {
		return 0, nil, NewDatabaseError(KindMalformedFile, "parse_interior_index_cell", ErrInvalidVarint, nil)
	}
	offset += n

	if offset+int(payloadSize) > len(pageData) {
		return 0, nil, NewDatabaseError(KindMalformedFile, "parse_interior_index_cell", ErrInsufficientData, nil)
	}
	payload := pageData[offset : offset+int(payloadSize)]
	record, err := parseRecord(payload)
	if err != nil {
		return 0, nil, err
	}
	return childPage, &Cell{PayloadSize: payloadSize, Rowid: uint64(indexRowid(*record)), Record: *record}, nil
}

// parseIndexLeafCell reads an index-leaf cell: varint payload size, then a
// record whose trailing column is the rowid it points at (§4.2).
func parseIndexLeafCell(pageData []byte, offset int) (*Cell, error) {
	if offset < 0 || offset >= len(pageData) {
		return nil, NewDatabaseError(KindMalformedFile, "parse_index_leaf_cell", ErrInvalidCellPointer, map[string]interface{}{"offset": offset})
	}
	payloadSize, n := readVarint(pageData, offset)
	if n == 0 {
		return nil, NewDatabaseError(KindMalformedFile, "parse_index_leaf_cell", ErrInvalidVarint, nil)
	}
	offset += n

	if offset+int(payloadSize) > len(pageData) {
		return nil, NewDatabaseError(KindMalformedFile, "parse_index_leaf_cell", ErrInsufficientData, nil)
	}
	payload := pageData[offset : offset+int(payloadSize)]
	record, err := parseRecord(payload)
	if err != nil {
		return nil, err
	}

	rowid := indexRowid(*record)
	return &Cell{PayloadSize: payloadSize, Rowid: uint64(rowid), Record: *record}, nil
}

// indexRowid extracts the trailing rowid column every index record
// carries (§4.2, §4.5: the rowid is appended after the indexed columns).
func indexRowid(record Record) int64 {
	n := len(record.RecordBody.Values)
	if n == 0 {
		return 0
	}
	serialType := uint8(0)
	if n-1 < len(record.RecordHeader.SerialTypes) {
		serialType = record.RecordHeader.SerialTypes[n-1]
	}
	v := NewSQLiteValue(serialType, toBytes(record.RecordBody.Values[n-1]))
	rowid, _ := v.Int64()
	return rowid
}

// firstKeyBytes returns the raw on-disk bytes of an index cell's first
// (and, for this engine, only indexed) key column - the unit of the raw-
// byte equality rule (§4.5).
func firstKeyBytes(cell Cell) []byte {
	if len(cell.Record.RecordBody.Values) == 0 {
		return nil
	}
	return toBytes(cell.Record.RecordBody.Values[0])
}

// cellToIndexEntry converts a parsed index-leaf cell into the key/rowid
// pair the planner consumes.
func cellToIndexEntry(cell Cell) IndexEntry {
	values := cell.Record.RecordBody.Values
	serials := cell.Record.RecordHeader.SerialTypes
	// The trailing column is the rowid (§4.2); everything before it is an
	// indexed key column.
	keyCount := len(values) - 1
	if keyCount < 0 {
		keyCount = 0
	}
	keys := make([]Value, 0, keyCount)
	for i := 0; i < keyCount; i++ {
		st := uint8(0)
		if i < len(serials) {
			st = serials[i]
		}
		keys = append(keys, *NewSQLiteValue(st, toBytes(values[i])))
	}
	return IndexEntry{Keys: keys, Rowid: int64(cell.Rowid)}
}
