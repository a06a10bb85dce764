package main

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Value represents a typed database value decoded from its on-disk
// serial type (§4.3).
type Value interface {
	Type() ValueType
	Raw() []byte
	String() string
	Int64() (int64, error)
	Float64() (float64, error)
	IsNull() bool
	EncodedBytes() []byte
}

type ValueType uint8

const (
	ValueTypeNull ValueType = iota
	ValueTypeInt8
	ValueTypeInt16
	ValueTypeInt24
	ValueTypeInt32
	ValueTypeInt48
	ValueTypeInt64
	ValueTypeFloat64
	ValueTypeZero
	ValueTypeOne
	ValueTypeBlob
	ValueTypeText
)

// SQLiteValue implements Value over a serial type and its raw column
// bytes, kept around unchanged for the raw-byte equality rule.
type SQLiteValue struct {
	serialType uint8
	data       []byte
}

func NewSQLiteValue(serialType uint8, data []byte) *SQLiteValue {
	return &SQLiteValue{serialType: serialType, data: data}
}

func (v *SQLiteValue) Type() ValueType {
	switch v.serialType {
	case SerialTypeNull:
		return ValueTypeNull
	case SerialTypeInt8:
		return ValueTypeInt8
	case SerialTypeInt16:
		return ValueTypeInt16
	case SerialTypeInt24:
		return ValueTypeInt24
	case SerialTypeInt32:
		return ValueTypeInt32
	case SerialTypeInt48:
		return ValueTypeInt48
	case SerialTypeInt64:
		return ValueTypeInt64
	case SerialTypeFloat64:
		return ValueTypeFloat64
	case SerialTypeZero:
		return ValueTypeZero
	case SerialTypeOne:
		return ValueTypeOne
	default:
		if v.serialType >= 12 && v.serialType%2 == 0 {
			return ValueTypeBlob
		}
		if v.serialType >= 13 && v.serialType%2 == 1 {
			return ValueTypeText
		}
		return ValueTypeNull
	}
}

func (v *SQLiteValue) Raw() []byte { return v.data }

func (v *SQLiteValue) IsNull() bool { return v.Type() == ValueTypeNull }

// EncodedBytes returns the value's raw on-disk bytes, the unit the raw-
// byte equality rule (§4.5) compares: two values are equal only if their
// serial-type byte encodings are bit-for-bit identical, not if their
// typed interpretations happen to agree.
func (v *SQLiteValue) EncodedBytes() []byte {
	switch v.Type() {
	case ValueTypeNull:
		return nil
	case ValueTypeZero:
		return []byte{0}
	case ValueTypeOne:
		return []byte{1}
	default:
		return v.data
	}
}

// String renders a value's display form; blobs render as bracketed
// lowercase hex (§6.4). NULL rendering as the literal "NULL" is the
// formatter's job, not this method's - String() stays "" for NULL so
// non-display callers (e.g. matchesLiteral) aren't affected.
func (v *SQLiteValue) String() string {
	switch v.Type() {
	case ValueTypeNull:
		return ""
	case ValueTypeZero:
		return "0"
	case ValueTypeOne:
		return "1"
	case ValueTypeText:
		return string(v.data)
	case ValueTypeBlob:
		return fmt.Sprintf("[%x]", v.data)
	default:
		if i, err := v.Int64(); err == nil {
			return fmt.Sprintf("%d", i)
		}
		if f, err := v.Float64(); err == nil {
			return fmt.Sprintf("%g", f)
		}
		return ""
	}
}

func (v *SQLiteValue) Int64() (int64, error) {
	switch v.Type() {
	case ValueTypeZero:
		return 0, nil
	case ValueTypeOne:
		return 1, nil
	case ValueTypeInt8:
		if len(v.data) >= 1 {
			return int64(int8(v.data[0])), nil
		}
	case ValueTypeInt16:
		if len(v.data) >= 2 {
			return int64(int16(binary.BigEndian.Uint16(v.data))), nil
		}
	case ValueTypeInt24:
		if len(v.data) >= 3 {
			return int64(signExtend24(v.data[:3])), nil
		}
	case ValueTypeInt32:
		if len(v.data) >= 4 {
			return int64(int32(binary.BigEndian.Uint32(v.data))), nil
		}
	case ValueTypeInt48:
		if len(v.data) >= 6 {
			return signExtend48(v.data[:6]), nil
		}
	case ValueTypeInt64:
		if len(v.data) >= 8 {
			return int64(binary.BigEndian.Uint64(v.data)), nil
		}
	}
	return 0, fmt.Errorf("cannot convert value of type %v to int64", v.Type())
}

// Float64 decodes serial type 7 as genuine IEEE-754 double precision
// (§4.3: "a correct implementation parses IEEE-754").
func (v *SQLiteValue) Float64() (float64, error) {
	switch v.Type() {
	case ValueTypeFloat64:
		if len(v.data) < 8 {
			return 0, fmt.Errorf("insufficient data for float64")
		}
		bits := binary.BigEndian.Uint64(v.data)
		return math.Float64frombits(bits), nil
	case ValueTypeZero:
		return 0.0, nil
	case ValueTypeOne:
		return 1.0, nil
	default:
		if i, err := v.Int64(); err == nil {
			return float64(i), nil
		}
		return 0, fmt.Errorf("cannot convert value of type %v to float64", v.Type())
	}
}

// Column describes one column of a table's schema, in declared order.
type Column struct {
	Name         string
	Type         string
	Index        int
	IsPrimaryKey bool
}

// Row is one decoded table row, aligned with its table's Column slice.
type Row struct {
	Rowid  int64
	Values []Value
}

func (r *Row) Get(columnIndex int) (Value, error) {
	if columnIndex < 0 || columnIndex >= len(r.Values) {
		return nil, NewDatabaseError(KindInvalidArgs, "get_column_value", ErrColumnNotFound, map[string]interface{}{
			"column_index": columnIndex,
			"column_count": len(r.Values),
		})
	}
	return r.Values[columnIndex], nil
}

func (r *Row) GetByName(columnName string, schema []Column) (Value, error) {
	for _, col := range schema {
		if col.Name == columnName {
			return r.Get(col.Index)
		}
	}
	return nil, NewDatabaseError(KindInvalidArgs, "get_column_by_name", ErrColumnNotFound, map[string]interface{}{
		"column_name": columnName,
	})
}
