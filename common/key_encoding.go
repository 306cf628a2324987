package common

import (
	"math"
	"time"

	"github.com/skiffdb/skiff/errors"
)

/*
Sort keys must be encoded in a way that keys are comparable with each other as byte strings - without this
range scans over the backing key-value store would not return rows in result order.
We use an encoding scheme that is similar to how MySQL/RocksDB encodes keys (memcomparable)
https://github.com/facebook/mysql-5.6/wiki/MyRocks-record-format
Typically key values are stored in big-endian order
*/

const SignBitMask uint64 = 1 << 63

func KeyEncodeInt64(buffer []byte, val int64) []byte {
	uVal := uint64(val) ^ SignBitMask
	return AppendUint64ToBufferBE(buffer, uVal)
}

func KeyEncodeFloat64(buffer []byte, val float64) []byte {
	uVal := math.Float64bits(val)
	if val >= 0 || math.IsNaN(val) {
		uVal |= SignBitMask
	} else {
		uVal = ^uVal
	}
	return AppendUint64ToBufferBE(buffer, uVal)
}

func KeyEncodeTimestamp(buffer []byte, val time.Time) []byte {
	buffer = KeyEncodeInt64(buffer, val.Unix())
	return AppendUint32ToBufferBE(buffer, uint32(val.Nanosecond()))
}

// Leading marker for each sort key column. Nulls get a marker that places them
// before or after every non-null value depending on the resolved null ordering,
// so direction inversion never has to touch the marker itself.
const (
	sortKeyNullLow  byte = 0
	sortKeyNotNull  byte = 1
	sortKeyNullHigh byte = 255
)

// EncodeSortKeyCols appends a memcomparable sort key for the sort columns of the row.
// Keys encoded this way compare byte-wise in the same order as SortOrder.Compare orders
// the rows they were built from.
func EncodeSortKeyCols(row Row, sortColumns []SortColumn, colTypes []ColumnType, buffer []byte) ([]byte, error) {
	for _, sortCol := range sortColumns {
		colIndex := sortCol.ColIndex
		if row.IsNull(colIndex) {
			if sortCol.NullsLow() {
				buffer = append(buffer, sortKeyNullLow)
			} else {
				buffer = append(buffer, sortKeyNullHigh)
			}
			continue
		}
		buffer = append(buffer, sortKeyNotNull)
		payloadStart := len(buffer)
		var err error
		buffer, err = EncodeKeyCol(row, colIndex, colTypes[colIndex], buffer)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if sortCol.Descending {
			// Inverting the payload reverses its byte-wise order
			for i := payloadStart; i < len(buffer); i++ {
				buffer[i] = ^buffer[i]
			}
		}
	}
	return buffer, nil
}

func EncodeKeyCol(row Row, colIndex int, colType ColumnType, buffer []byte) ([]byte, error) {
	// Key columns must be stored in big-endian so whole key can be compared byte-wise
	switch colType.Type {
	case TypeTinyInt, TypeInt, TypeBigInt:
		// We store as unsigned so convert signed to unsigned
		buffer = KeyEncodeInt64(buffer, row.GetInt64(colIndex))
	case TypeDouble:
		buffer = KeyEncodeFloat64(buffer, row.GetFloat64(colIndex))
	case TypeVarchar:
		buffer = KeyEncodeString(buffer, row.GetString(colIndex))
	case TypeTimestamp:
		buffer = KeyEncodeTimestamp(buffer, row.GetTimestamp(colIndex))
	default:
		return nil, errors.Errorf("unexpected column type %d", colType.Type)
	}
	return buffer, nil
}
