package common

import (
	"time"

	"github.com/skiffdb/skiff/errors"
)

// Values in rows are encoded in little-endian order. Most CPU architectures are
// little-endian so that allows us to simply cast values in the case of int types.
// Each column is preceded by a marker byte, 0 for null and 1 for not null.

func EncodeRow(row Row, colTypes []ColumnType, buffer []byte) ([]byte, error) {
	for colIndex, colType := range colTypes {
		var err error
		buffer, err = encodeRowCol(row, colIndex, colType, buffer)
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}
	return buffer, nil
}

func encodeRowCol(row Row, colIndex int, colType ColumnType, buffer []byte) ([]byte, error) {
	if row.IsNull(colIndex) {
		buffer = append(buffer, 0)
	} else {
		buffer = append(buffer, 1)
		switch colType.Type {
		case TypeTinyInt, TypeInt, TypeBigInt:
			// We store as unsigned so convert signed to unsigned
			valInt64 := row.GetInt64(colIndex)
			buffer = AppendUint64ToBufferLE(buffer, uint64(valInt64))
		case TypeDouble:
			valFloat64 := row.GetFloat64(colIndex)
			buffer = AppendFloat64ToBufferLE(buffer, valFloat64)
		case TypeVarchar:
			valString := row.GetString(colIndex)
			buffer = AppendStringToBufferLE(buffer, valString)
		case TypeTimestamp:
			valTimestamp := row.GetTimestamp(colIndex)
			buffer = AppendTimestampToBufferLE(buffer, valTimestamp)
		default:
			return nil, errors.Errorf("unexpected column type %d", colType.Type)
		}
	}
	return buffer, nil
}

func DecodeRow(buffer []byte, colTypes []ColumnType) (Row, error) {
	values := make([]Value, len(colTypes))
	offset := 0
	var err error
	for colIndex, colType := range colTypes {
		values[colIndex], offset, err = decodeRowCol(buffer, offset, colType)
		if err != nil {
			return Row{}, errors.WithStack(err)
		}
	}
	return NewRow(values...), nil
}

func decodeRowCol(buffer []byte, offset int, colType ColumnType) (Value, int, error) {
	if buffer[offset] == 0 {
		return NullValue(), offset + 1, nil
	}
	offset++
	switch colType.Type {
	case TypeTinyInt, TypeInt, TypeBigInt:
		var u uint64
		u, offset = ReadUint64FromBufferLE(buffer, offset)
		return NewInt64Value(int64(u)), offset, nil
	case TypeDouble:
		var val float64
		val, offset = ReadFloat64FromBufferLE(buffer, offset)
		return NewFloat64Value(val), offset, nil
	case TypeVarchar:
		var val string
		val, offset = ReadStringFromBufferLE(buffer, offset)
		return NewStringValue(val), offset, nil
	case TypeTimestamp:
		var val time.Time
		val, offset = ReadTimestampFromBufferLE(buffer, offset)
		return NewTimestampValue(val), offset, nil
	default:
		return Value{}, 0, errors.Errorf("unexpected column type %d", colType.Type)
	}
}
