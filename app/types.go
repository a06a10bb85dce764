package main

// Physical data structures from the SQLite file format.

// Cell represents a decoded B-tree cell, independent of which page type it
// came from. Table cells carry a row id; index cells carry the rowid too
// (trailing column of the record, per §4.5).
type Cell struct {
	PayloadSize uint64
	Rowid       uint64
	Record      Record
}

// CellWithPosition decorates a Cell returned by a full table scan with a
// page number. TableRawImpl.ReadAllCells sets PageNumber to the table's
// root page, not to the page the cell was read from; the row-id-directed
// fetch returns plain Cells.
type CellWithPosition struct {
	Cell
	PageNumber int
}

// IndexEntry is one matching row produced by an index lookup: the indexed
// key columns plus the row id they point at in the owning table.
type IndexEntry struct {
	Keys  []Value
	Rowid int64
}

// Record is a cell's payload, decoded into a header (serial types) and a
// body (column values).
type Record struct {
	RecordHeader
	RecordBody
}

// RecordHeader is the header portion of a record: a varint giving its own
// length, followed by one serial-type varint per column.
type RecordHeader struct {
	HeaderSize  uint64
	SerialTypes []uint8
}

// RecordBody holds the raw column bytes, one slice per serial type in
// RecordHeader.SerialTypes, in the same order.
type RecordBody struct {
	Values []interface{}
}

// SchemaRecord is one row of sqlite_master: an object description plus its
// stored DDL text. For table rows, Columns is filled in by the catalog's
// LoadSchema, which re-lexes/re-parses SQL for every table when the schema
// is first loaded (§4.6); it stays empty for index rows.
type SchemaRecord struct {
	Type     string
	Name     string
	TblName  string
	RootPage uint32
	SQL      string
	Columns  []Column
}

// DatabaseHeader is the 100-byte SQLite database header (§3).
type DatabaseHeader struct {
	MagicNumber      [16]byte
	PageSize         uint16
	FileFormatWrite  uint8
	FileFormatRead   uint8
	ReservedBytes    uint8
	MaxPayloadFrac   uint8
	MinPayloadFrac   uint8
	LeafPayloadFrac  uint8
	FileChangeCount  uint32
	DatabaseSize     uint32
	FirstFreePage    uint32
	FreePageCount    uint32
	SchemaCookie     uint32
	SchemaFormat     uint32
	DefaultCacheSize uint32
	LargestBTreePage uint32
	TextEncoding     uint32
	UserVersion      uint32
	IncrVacuum       uint32
	AppID            uint32
	Reserved         [20]byte
	VersionValid     uint32
	SQLiteVersion    uint32
}

var sqliteMagic = [16]byte{'S', 'Q', 'L', 'i', 't', 'e', ' ', 'f', 'o', 'r', 'm', 'a', 't', ' ', '3', 0}

// IsValidMagicNumber checks the 16-byte magic prefix.
func (h *DatabaseHeader) IsValidMagicNumber() bool {
	return h.MagicNumber == sqliteMagic
}

// GetActualPageSize resolves the header's page-size field, applying the
// "1 means 65536" special case.
func (h *DatabaseHeader) GetActualPageSize() int {
	if h.PageSize == 1 {
		return 65536
	}
	return int(h.PageSize)
}

// ValidatePayloadFractions asserts the three fixed payload fractions the
// format requires (64/32/32).
func (h *DatabaseHeader) ValidatePayloadFractions() bool {
	return h.MaxPayloadFrac == 64 && h.MinPayloadFrac == 32 && h.LeafPayloadFrac == 32
}

// ValidateIncrementalVacuum checks the invariant tying largest-root-btree-
// page to the incremental-vacuum flag (§3).
func (h *DatabaseHeader) ValidateIncrementalVacuum() bool {
	if h.LargestBTreePage == 0 {
		return h.IncrVacuum == 0
	}
	return true
}

// Page types (§3).
const (
	PageTypeInteriorIndex = 0x02
	PageTypeInteriorTable = 0x05
	PageTypeLeafIndex     = 0x0A
	PageTypeLeafTable     = 0x0D
)

// PageHeader is a B-tree page header: 8 bytes for leaves, 12 for interior
// pages (the extra 4 being the rightmost-child pointer, read separately).
type PageHeader struct {
	PageType         uint8
	FirstFreeblock   uint16
	CellCount        uint16
	CellContentStart uint16
	FragmentedBytes  uint8
}

func (h *PageHeader) IsLeafTable() bool     { return h.PageType == PageTypeLeafTable }
func (h *PageHeader) IsInteriorTable() bool { return h.PageType == PageTypeInteriorTable }
func (h *PageHeader) IsLeafIndex() bool     { return h.PageType == PageTypeLeafIndex }
func (h *PageHeader) IsInteriorIndex() bool { return h.PageType == PageTypeInteriorIndex }
func (h *PageHeader) IsInterior() bool {
	return h.PageType == PageTypeInteriorTable || h.PageType == PageTypeInteriorIndex
}

// HeaderSize returns the on-disk size of this page header: 12 bytes for
// interior pages (rightmost-child pointer included), 8 for leaves.
func (h *PageHeader) HeaderSize() int {
	if h.IsInterior() {
		return 12
	}
	return 8
}

// CellPointer is one 16-bit offset from the page's cell-pointer array.
type CellPointer uint16

func (cp CellPointer) Offset() uint16 { return uint16(cp) }
func (cp CellPointer) IsValid() bool  { return cp > 0 }

// Serial-type codes (§3).
const (
	SerialTypeNull    = 0
	SerialTypeInt8    = 1
	SerialTypeInt16   = 2
	SerialTypeInt24   = 3
	SerialTypeInt32   = 4
	SerialTypeInt48   = 5
	SerialTypeInt64   = 6
	SerialTypeFloat64 = 7
	SerialTypeZero    = 8
	SerialTypeOne     = 9
)

// readVarint decodes a SQLite varint starting at data[offset], following
// the full 9-byte rule (C1): the first 8 bytes contribute their low 7 bits
// each (continuation in the high bit), and a 9th byte - if reached -
// contributes all 8 bits raw. Returns the decoded value and bytes consumed;
// bytesRead is 0 if data is exhausted before a terminating byte is found.
func readVarint(data []byte, offset int) (value uint64, bytesRead int) {
	var result uint64
	for i := 0; i < 9 && offset+i < len(data); i++ {
		b := data[offset+i]
		if i == 8 {
			result = (result << 8) | uint64(b)
			return result, i + 1
		}
		result = (result << 7) | uint64(b&0x7F)
		if b&0x80 == 0 {
			return result, i + 1
		}
	}
	return 0, 0
}

// getSerialTypeSize returns the on-disk byte width of a serial type.
func getSerialTypeSize(serialType uint8) int {
	switch serialType {
	case SerialTypeNull, SerialTypeZero, SerialTypeOne:
		return 0
	case SerialTypeInt8:
		return 1
	case SerialTypeInt16:
		return 2
	case SerialTypeInt24:
		return 3
	case SerialTypeInt32:
		return 4
	case SerialTypeInt48:
		return 6
	case SerialTypeInt64, SerialTypeFloat64:
		return 8
	default:
		if serialType >= 12 && serialType%2 == 0 {
			return int((serialType - 12) / 2) // BLOB
		}
		if serialType >= 13 && serialType%2 == 1 {
			return int((serialType - 13) / 2) // TEXT
		}
		return 0
	}
}

// readRecordHeader reads the header-length varint and the serial-type
// varints that follow it (§4.4 step 1-2).
func readRecordHeader(data []byte, offset int) (RecordHeader, int) {
	var header RecordHeader
	start := offset
	var n int
	header.HeaderSize, n = readVarint(data, offset)
	offset += n

	headerEnd := start + int(header.HeaderSize)
	for offset < headerEnd && offset < len(data) {
		var st uint64
		st, n = readVarint(data, offset)
		if n == 0 {
			break
		}
		header.SerialTypes = append(header.SerialTypes, uint8(st))
		offset += n
	}
	return header, offset
}

// readRecordBody consumes the column bodies described by header.SerialTypes
// (§4.4 step 3), storing each column's raw bytes; typed interpretation is
// Value's job (values.go).
func readRecordBody(data []byte, offset int, header RecordHeader) (RecordBody, int, error) {
	var body RecordBody
	body.Values = make([]interface{}, len(header.SerialTypes))

	for i, serialType := range header.SerialTypes {
		size := getSerialTypeSize(serialType)
		if size == 0 {
			body.Values[i] = nil
			continue
		}
		if offset+size > len(data) {
			return body, offset, NewDatabaseError(KindMalformedFile, "read_record_body", ErrInsufficientData, map[string]interface{}{
				"needed_bytes": offset + size,
				"have_bytes":   len(data),
			})
		}
		body.Values[i] = data[offset : offset+size]
		offset += size
	}
	return body, offset, nil
}

// ParseAsSchema interprets this record body as a sqlite_master row: the
// five columns are (type, name, tbl_name, rootpage, sql), always in that
// order and count - the catalog (C6) never needs Columns[] to read it.
func (rb *RecordBody) ParseAsSchema(header RecordHeader) *SchemaRecord {
	if len(rb.Values) < 5 {
		return nil
	}

	schema := &SchemaRecord{}
	if b, ok := rb.Values[0].([]byte); ok {
		schema.Type = string(b)
	}
	if b, ok := rb.Values[1].([]byte); ok {
		schema.Name = string(b)
	}
	if b, ok := rb.Values[2].([]byte); ok {
		schema.TblName = string(b)
	}

	serialType := uint8(0)
	if len(header.SerialTypes) > 3 {
		serialType = header.SerialTypes[3]
	}
	rootPageVal := NewSQLiteValue(serialType, toBytes(rb.Values[3]))
	if n, err := rootPageVal.Int64(); err == nil {
		schema.RootPage = uint32(n)
	}

	if b, ok := rb.Values[4].([]byte); ok {
		schema.SQL = string(b)
	}
	return schema
}

func toBytes(v interface{}) []byte {
	if v == nil {
		return nil
	}
	if b, ok := v.([]byte); ok {
		return b
	}
	return nil
}

// IsSchemaRecord reports whether this record body looks like a row from
// sqlite_master (five columns, first one a known object kind).
func (rb *RecordBody) IsSchemaRecord() bool {
	if len(rb.Values) != 5 {
		return false
	}
	b, ok := rb.Values[0].([]byte)
	if !ok {
		return false
	}
	switch string(b) {
	case "table", "index", "view", "trigger":
		return true
	}
	return false
}
