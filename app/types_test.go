package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadVarint(t *testing.T) {
	tests := []struct {
		name         string
		data         []byte
		offset       int
		expectedVal  uint64
		expectedRead int
	}{
		{"single byte", []byte{0x7F}, 0, 127, 1},
		{"two bytes", []byte{0x81, 0x00}, 0, 128, 2},
		{"zero", []byte{0x00}, 0, 0, 1},
		{"with offset", []byte{0xFF, 0xFF, 0x7F}, 2, 127, 1},
		{
			"full 9-byte form",
			append([]byte{0x81, 0x81, 0x81, 0x81, 0x81, 0x81, 0x81, 0x81}, 0xFF),
			0,
			(1<<57 | 1<<50 | 1<<43 | 1<<36 | 1<<29 | 1<<22 | 1<<15 | 1<<8) | 0xFF,
			9,
		},
		{"exhausted input", []byte{0x81}, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, n := readVarint(tt.data, tt.offset)
			assert.Equal(t, tt.expectedVal, val)
			assert.Equal(t, tt.expectedRead, n)
		})
	}
}

func TestGetSerialTypeSize(t *testing.T) {
	tests := []struct {
		serialType uint8
		want       int
	}{
		{SerialTypeNull, 0},
		{SerialTypeInt8, 1},
		{SerialTypeInt16, 2},
		{SerialTypeInt24, 3},
		{SerialTypeInt32, 4},
		{SerialTypeInt48, 6},
		{SerialTypeInt64, 8},
		{SerialTypeFloat64, 8},
		{SerialTypeZero, 0},
		{SerialTypeOne, 0},
		{12, 0},  // BLOB, 0 bytes
		{14, 1},  // BLOB, 1 byte
		{13, 0},  // TEXT, 0 bytes
		{15, 1},  // TEXT, 1 byte
		{105, 46}, // TEXT, (105-13)/2 bytes
	}
	for _, tt := range tests {
		got := getSerialTypeSize(tt.serialType)
		assert.Equalf(t, tt.want, got, "serial type %d", tt.serialType)
	}
}

func TestReadRecordHeaderAndBody(t *testing.T) {
	// header length varint = 3 (itself + two serial-type bytes), then serial
	// types 1 (int8) and 13 (text, 0 bytes), followed by the body: one int8 byte.
	payload := []byte{0x03, 0x01, 0x0D, 0x2A}
	header, offset := readRecordHeader(payload, 0)
	require.Equal(t, uint64(3), header.HeaderSize)
	require.Equal(t, []uint8{1, 13}, header.SerialTypes)

	body, _, err := readRecordBody(payload, offset, header)
	require.NoError(t, err)
	require.Len(t, body.Values, 2)
	assert.Equal(t, []byte{0x2A}, body.Values[0])
	assert.Nil(t, body.Values[1])
}

func TestReadRecordBodyInsufficientData(t *testing.T) {
	header := RecordHeader{SerialTypes: []uint8{6}} // int64, needs 8 bytes
	_, _, err := readRecordBody([]byte{0x01, 0x02}, 0, header)
	require.Error(t, err)
	var dbErr *DatabaseError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, KindMalformedFile, dbErr.Kind)
}

func TestParseAsSchema(t *testing.T) {
	header := RecordHeader{SerialTypes: []uint8{13 + 2*5, 13 + 2*5, 13 + 2*5, 1, 13 + 2*10}}
	body := RecordBody{Values: []interface{}{
		[]byte("table"),
		[]byte("users"),
		[]byte("users"),
		[]byte{2},
		[]byte("CREATE TABLE users(id INTEGER, name TEXT)"),
	}}
	schema := body.ParseAsSchema(header)
	require.NotNil(t, schema)
	assert.Equal(t, "table", schema.Type)
	assert.Equal(t, "users", schema.Name)
	assert.Equal(t, "users", schema.TblName)
	assert.Equal(t, uint32(2), schema.RootPage)
	assert.Contains(t, schema.SQL, "CREATE TABLE users")
}

func TestParseAsSchemaInsufficientValues(t *testing.T) {
	body := RecordBody{Values: []interface{}{[]byte("table"), []byte("users")}}
	schema := body.ParseAsSchema(RecordHeader{})
	assert.Nil(t, schema)
}

func TestIsSchemaRecord(t *testing.T) {
	tests := []struct {
		name   string
		values []interface{}
		want   bool
	}{
		{"table", []interface{}{[]byte("table"), nil, nil, nil, nil}, true},
		{"index", []interface{}{[]byte("index"), nil, nil, nil, nil}, true},
		{"view", []interface{}{[]byte("view"), nil, nil, nil, nil}, true},
		{"trigger", []interface{}{[]byte("trigger"), nil, nil, nil, nil}, true},
		{"unknown kind", []interface{}{[]byte("bogus"), nil, nil, nil, nil}, false},
		{"wrong column count", []interface{}{[]byte("table")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := RecordBody{Values: tt.values}
			assert.Equal(t, tt.want, rb.IsSchemaRecord())
		})
	}
}

func TestPageHeaderDispatch(t *testing.T) {
	h := &PageHeader{PageType: PageTypeLeafTable}
	assert.True(t, h.IsLeafTable())
	assert.False(t, h.IsInterior())
	assert.Equal(t, 8, h.HeaderSize())

	h.PageType = PageTypeInteriorIndex
	assert.True(t, h.IsInteriorIndex())
	assert.True(t, h.IsInterior())
	assert.Equal(t, 12, h.HeaderSize())
}

func TestDatabaseHeaderPageSize(t *testing.T) {
	h := &DatabaseHeader{PageSize: 1}
	assert.Equal(t, 65536, h.GetActualPageSize())

	h.PageSize = 4096
	assert.Equal(t, 4096, h.GetActualPageSize())
}

func TestDatabaseHeaderValidation(t *testing.T) {
	h := &DatabaseHeader{MaxPayloadFrac: 64, MinPayloadFrac: 32, LeafPayloadFrac: 32}
	assert.True(t, h.ValidatePayloadFractions())

	h.MaxPayloadFrac = 63
	assert.False(t, h.ValidatePayloadFractions())

	h2 := &DatabaseHeader{LargestBTreePage: 0, IncrVacuum: 0}
	assert.True(t, h2.ValidateIncrementalVacuum())
	h2.IncrVacuum = 1
	assert.False(t, h2.ValidateIncrementalVacuum())
}
