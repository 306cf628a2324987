package common

import (
	"encoding/binary"
	"math"
	"time"
	"unsafe"
)

var littleEndian = binary.LittleEndian
var bigEndian = binary.BigEndian
var IsLittleEndian = isLittleEndian()

func AppendUint32ToBufferLE(buffer []byte, v uint32) []byte {
	return append(buffer, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func AppendUint32ToBufferBE(buffer []byte, v uint32) []byte {
	return append(buffer, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func AppendUint64ToBufferLE(buffer []byte, v uint64) []byte {
	return append(buffer, byte(v), byte(v>>8), byte(v>>16), byte(v>>24), byte(v>>32),
		byte(v>>40), byte(v>>48), byte(v>>56))
}

func AppendUint64ToBufferBE(buffer []byte, v uint64) []byte {
	return append(buffer, byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func AppendFloat64ToBufferLE(buffer []byte, value float64) []byte {
	u := math.Float64bits(value)
	return AppendUint64ToBufferLE(buffer, u)
}

func AppendStringToBufferLE(buffer []byte, value string) []byte {
	buffPtr := AppendUint32ToBufferLE(buffer, uint32(len(value)))
	buffPtr = append(buffPtr, value...)
	return buffPtr
}

func AppendTimestampToBufferLE(buffer []byte, ts time.Time) []byte {
	buffer = AppendUint64ToBufferLE(buffer, uint64(ts.Unix()))
	return AppendUint32ToBufferLE(buffer, uint32(ts.Nanosecond()))
}

func ReadUint32FromBufferLE(buffer []byte, offset int) (uint32, int) {
	if IsLittleEndian {
		// nolint: gosec
		return *(*uint32)(unsafe.Pointer(&buffer[offset])), offset + 4
	}
	return littleEndian.Uint32(buffer[offset:]), offset + 4
}

func ReadUint64FromBufferLE(buffer []byte, offset int) (uint64, int) {
	if IsLittleEndian {
		// If architecture is little endian we can simply cast to a pointer
		// nolint: gosec
		return *(*uint64)(unsafe.Pointer(&buffer[offset])), offset + 8
	}
	return littleEndian.Uint64(buffer[offset:]), offset + 8
}

func ReadInt64FromBufferLE(buffer []byte, offset int) (int64, int) {
	u, off := ReadUint64FromBufferLE(buffer, offset)
	return int64(u), off
}

func ReadUint64FromBufferBE(buffer []byte, offset int) (uint64, int) {
	if !IsLittleEndian {
		// nolint: gosec
		return *(*uint64)(unsafe.Pointer(&buffer[offset])), offset + 8
	}
	return bigEndian.Uint64(buffer[offset:]), offset + 8
}

func ReadFloat64FromBufferLE(buffer []byte, offset int) (val float64, off int) {
	var u uint64
	u, offset = ReadUint64FromBufferLE(buffer, offset)
	val = math.Float64frombits(u)
	return val, offset
}

func ReadStringFromBufferLE(buffer []byte, offset int) (val string, off int) {
	lu, offset := ReadUint32FromBufferLE(buffer, offset)
	l := int(lu)
	str := ByteSliceToStringZeroCopy(buffer[offset : offset+l])
	offset += l
	return str, offset
}

func ReadTimestampFromBufferLE(buffer []byte, offset int) (val time.Time, off int) {
	var secs uint64
	secs, offset = ReadUint64FromBufferLE(buffer, offset)
	var nanos uint32
	nanos, offset = ReadUint32FromBufferLE(buffer, offset)
	return time.Unix(int64(secs), int64(nanos)).UTC(), offset
}

// Are we running on a machine with a little endian architecture?
func isLittleEndian() bool {
	val := uint64(123456)
	buffer := make([]byte, 0, 8)
	buffer = AppendUint64ToBufferLE(buffer, val)
	valRead := *(*uint64)(unsafe.Pointer(&buffer[0])) // nolint: gosec
	return val == valRead
}
