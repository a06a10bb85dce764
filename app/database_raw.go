package main

import (
	"fmt"
	"os"
)

// DatabaseRaw is the physical layer: page-level I/O and the 100-byte
// header. It knows nothing about tables, schemas, or SQL.
type DatabaseRaw interface {
	ReadPage(pageNum int) ([]byte, error)
	ReadSchemaCells() ([]Cell, error)
	GetPageSize() int
	GetHeader() *DatabaseHeader
	Close() error
}

// DatabaseRawImpl implements DatabaseRaw over a single file handle, held
// for the life of the process (§5). The core is single-threaded and
// synchronous - there is no per-cell goroutine fan-out.
type DatabaseRawImpl struct {
	src         FileSource
	header      *DatabaseHeader
	pageSize    int
	config      *DatabaseConfig
	resourceMgr *ResourceManager
}

// NewDatabaseRaw opens filePath and parses its header.
func NewDatabaseRaw(filePath string, options ...DatabaseOption) (*DatabaseRawImpl, error) {
	config := DefaultDatabaseConfig()
	for _, opt := range options {
		opt(config)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, NewDatabaseError(KindIO, "open_database", err, map[string]interface{}{"path": filePath})
	}

	var src FileSource
	if config.UseMmap {
		src, err = newMmapFileSource(f)
	} else {
		src, err = newOSFileSource(f)
	}
	if err != nil {
		f.Close()
		return nil, NewDatabaseError(KindIO, "open_file_source", err, map[string]interface{}{"path": filePath})
	}

	resourceMgr := NewResourceManager()
	resourceMgr.Add(src)

	db := &DatabaseRawImpl{
		src:         src,
		config:      config,
		resourceMgr: resourceMgr,
	}

	if err := db.parseHeader(); err != nil {
		resourceMgr.Close()
		return nil, err
	}

	return db, nil
}

func (db *DatabaseRawImpl) GetPageSize() int          { return db.pageSize }
func (db *DatabaseRawImpl) GetHeader() *DatabaseHeader { return db.header }
func (db *DatabaseRawImpl) Close() error              { return db.resourceMgr.Close() }

// parseHeader decodes the 100-byte database header (C2).
func (db *DatabaseRawImpl) parseHeader() error {
	r := NewByteReader(db.src)
	h := &DatabaseHeader{}

	magic, err := r.ReadBytes(16)
	if err != nil {
		return NewDatabaseError(KindMalformedFile, "read_magic", err, nil)
	}
	copy(h.MagicNumber[:], magic)

	if h.PageSize, err = r.ReadUint16(); err != nil {
		return NewDatabaseError(KindMalformedFile, "read_page_size", err, nil)
	}
	if h.FileFormatWrite, err = r.ReadUint8(); err != nil {
		return NewDatabaseError(KindMalformedFile, "read_header", err, nil)
	}
	if h.FileFormatRead, err = r.ReadUint8(); err != nil {
		return NewDatabaseError(KindMalformedFile, "read_header", err, nil)
	}
	if h.ReservedBytes, err = r.ReadUint8(); err != nil {
		return NewDatabaseError(KindMalformedFile, "read_header", err, nil)
	}
	if h.MaxPayloadFrac, err = r.ReadUint8(); err != nil {
		return NewDatabaseError(KindMalformedFile, "read_header", err, nil)
	}
	if h.MinPayloadFrac, err = r.ReadUint8(); err != nil {
		return NewDatabaseError(KindMalformedFile, "read_header", err, nil)
	}
	if h.LeafPayloadFrac, err = r.ReadUint8(); err != nil {
		return NewDatabaseError(KindMalformedFile, "read_header", err, nil)
	}

	fields := []*uint32{
		&h.FileChangeCount, &h.DatabaseSize, &h.FirstFreePage, &h.FreePageCount,
		&h.SchemaCookie, &h.SchemaFormat, &h.DefaultCacheSize, &h.LargestBTreePage,
		&h.TextEncoding, &h.UserVersion, &h.IncrVacuum, &h.AppID,
	}
	for _, f := range fields {
		*f, err = r.ReadUint32()
		if err != nil {
			return NewDatabaseError(KindMalformedFile, "read_header", err, nil)
		}
	}
	reserved, err := r.ReadBytes(20)
	if err != nil {
		return NewDatabaseError(KindMalformedFile, "read_header", err, nil)
	}
	copy(h.Reserved[:], reserved)

	if h.VersionValid, err = r.ReadUint32(); err != nil {
		return NewDatabaseError(KindMalformedFile, "read_header", err, nil)
	}
	if h.SQLiteVersion, err = r.ReadUint32(); err != nil {
		return NewDatabaseError(KindMalformedFile, "read_header", err, nil)
	}

	if !h.IsValidMagicNumber() {
		return NewDatabaseError(KindMalformedFile, "validate_magic", ErrInvalidMagic, map[string]interface{}{
			"got": string(h.MagicNumber[:]),
		})
	}
	if db.config.ValidationMode >= ValidationBasic && !h.ValidatePayloadFractions() {
		return NewDatabaseError(KindMalformedFile, "validate_payload_fractions", ErrInvalidMagic, map[string]interface{}{
			"max": h.MaxPayloadFrac, "min": h.MinPayloadFrac, "leaf": h.LeafPayloadFrac,
		})
	}
	if db.config.ValidationMode >= ValidationStrict && !h.ValidateIncrementalVacuum() {
		return NewDatabaseError(KindMalformedFile, "validate_incremental_vacuum", ErrInvalidMagic, nil)
	}

	db.header = h
	db.pageSize = h.GetActualPageSize()
	if db.pageSize < 512 || db.pageSize > 65536 || (db.pageSize&(db.pageSize-1)) != 0 {
		return NewDatabaseError(KindMalformedFile, "validate_page_size", ErrInvalidPageSize, map[string]interface{}{
			"page_size": db.pageSize,
		})
	}
	return nil
}

// ReadPage reads the full page numbered pageNum (1-indexed, §3).
func (db *DatabaseRawImpl) ReadPage(pageNum int) ([]byte, error) {
	if pageNum < 1 {
		return nil, NewDatabaseError(KindMalformedFile, "read_page", ErrInvalidPageType, map[string]interface{}{"page_num": pageNum})
	}
	offset := int64(pageNum-1) * int64(db.pageSize)
	r := NewByteReader(db.src)
	r.Seek(offset)
	data, err := r.ReadBytes(db.pageSize)
	if err != nil {
		return nil, NewDatabaseError(KindIO, "read_page", err, map[string]interface{}{
			"page_num": pageNum, "offset": offset,
		})
	}
	return data, nil
}

// ReadSchemaCells reads every leaf cell of page 1's master page (C3's
// master-page special case: the page header starts at file offset 100,
// but cell-pointer values inside it remain page-relative like any other
// page, i.e. relative to page 1's own start).
func (db *DatabaseRawImpl) ReadSchemaCells() ([]Cell, error) {
	pageData, err := db.ReadPage(1)
	if err != nil {
		return nil, fmt.Errorf("read master page: %w", err)
	}

	const headerOffset = 100
	if len(pageData) < headerOffset+8 {
		return nil, NewDatabaseError(KindMalformedFile, "read_master_page", ErrInsufficientData, nil)
	}

	header, err := parsePageHeaderBytes(pageData[headerOffset:])
	if err != nil {
		return nil, err
	}
	if !header.IsLeafTable() {
		return nil, NewDatabaseError(KindMalformedFile, "read_master_page", ErrInvalidPageType, map[string]interface{}{
			"page_type": header.PageType,
		})
	}

	pointerArrayStart := headerOffset + header.HeaderSize()
	cells := make([]Cell, 0, header.CellCount)
	for i := 0; i < int(header.CellCount); i++ {
		off := pointerArrayStart + i*2
		if off+2 > len(pageData) {
			return nil, NewDatabaseError(KindMalformedFile, "read_master_cell_pointer", ErrInvalidCellPointer, nil)
		}
		cellOffset := int(pageData[off])<<8 | int(pageData[off+1])
		cell, err := parseTableLeafCell(pageData, cellOffset)
		if err != nil {
			return nil, fmt.Errorf("parse master cell %d: %w", i, err)
		}
		cells = append(cells, *cell)
	}
	return cells, nil
}

// parsePageHeaderBytes parses a B-tree page header starting at the front
// of buf (the 8-byte common prefix; callers needing the interior page's
// extra 4-byte rightmost-child pointer read it separately at offset+8).
func parsePageHeaderBytes(buf []byte) (*PageHeader, error) {
	if len(buf) < 8 {
		return nil, NewDatabaseError(KindMalformedFile, "parse_page_header", ErrInsufficientData, nil)
	}
	h := &PageHeader{
		PageType:         buf[0],
		FirstFreeblock:   uint16(buf[1])<<8 | uint16(buf[2]),
		CellCount:        uint16(buf[3])<<8 | uint16(buf[4]),
		CellContentStart: uint16(buf[5])<<8 | uint16(buf[6]),
		FragmentedBytes:  buf[7],
	}
	return h, nil
}

// parseTableLeafCell decodes a table-leaf cell (varint size, varint rowid,
// payload) at the given offset within page data.
func parseTableLeafCell(pageData []byte, offset int) (*Cell, error) {
	if offset < 0 || offset >= len(pageData) {
		return nil, NewDatabaseError(KindMalformedFile, "parse_table_leaf_cell", ErrInvalidCellPointer, map[string]interface{}{"offset": offset})
	}
	payloadSize, n := readVarint(pageData, offset)
	if n == 0 {
		return nil, NewDatabaseError(KindMalformedFile, "read_payload_size", ErrInvalidVarint, nil)
	}
	offset += n
	rowID, n := readVarint(pageData, offset)
	if n == 0 {
		return nil, NewDatabaseError(KindMalformedFile, "read_rowid", ErrInvalidVarint, nil)
	}
	offset += n

	if offset+int(payloadSize) > len(pageData) {
		return nil, NewDatabaseError(KindMalformedFile, "read_payload", ErrInsufficientData, map[string]interface{}{
			"need": offset + int(payloadSize), "have": len(pageData),
		})
	}
	payload := pageData[offset : offset+int(payloadSize)]
	record, err := parseRecord(payload)
	if err != nil {
		return nil, err
	}

	return &Cell{PayloadSize: payloadSize, Rowid: rowID, Record: *record}, nil
}

// parseRecord decodes a record payload into header + body (C4).
func parseRecord(payload []byte) (*Record, error) {
	header, offset := readRecordHeader(payload, 0)
	body, _, err := readRecordBody(payload, offset, header)
	if err != nil {
		return nil, err
	}
	return &Record{RecordHeader: header, RecordBody: body}, nil
}
