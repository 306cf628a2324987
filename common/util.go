package common

import (
	"io"
	"reflect"
	"sync/atomic"
	"unsafe"

	log "github.com/sirupsen/logrus"
)

func ByteSliceToStringZeroCopy(buffer []byte) string {
	// nolint: gosec
	return *(*string)(unsafe.Pointer(&buffer))
}

func StringToByteSliceZeroCopy(str string) []byte {
	if str == "" {
		return nil
	}
	// see https://groups.google.com/g/golang-nuts/c/Zsfk-VMd_fU/m/nZoH4kExBgAJ
	const max = 0x7fff0000
	if len(str) > max {
		panic("string too long")
	}
	// nolint: gosec
	return (*[max]byte)(unsafe.Pointer((*reflect.StringHeader)(unsafe.Pointer(&str)).Data))[:len(str):len(str)]
}

func CopyByteSlice(buff []byte) []byte {
	res := make([]byte, len(buff))
	copy(res, buff)
	return res
}

// IncrementBytesBigEndian returns a new byte slice which is 1 larger than the provided slice when represented in
// big endian layout, but without changing the key length
func IncrementBytesBigEndian(bytes []byte) []byte {
	inced := CopyByteSlice(bytes)
	lb := len(bytes)
	for i := lb - 1; i >= 0; i-- {
		b := bytes[i]
		if b < 255 {
			inced[i] = b + 1
			break
		}
		inced[i] = 0
		if i == 0 {
			panic("cannot increment key - all bits set")
		}
	}
	return inced
}

func InvokeCloser(closer io.Closer) {
	if closer != nil {
		err := closer.Close()
		if err != nil {
			log.Errorf("failed to close closer %+v", err)
		}
	}
}

const atFalse = 0
const atTrue = 1

type AtomicBool struct {
	val int32
}

func (a *AtomicBool) Get() bool {
	i := atomic.LoadInt32(&a.val)
	return i == atTrue
}

func (a *AtomicBool) Set(val bool) {
	atomic.StoreInt32(&a.val, a.toInt(val))
}

func (a *AtomicBool) toInt(val bool) int32 {
	// Uggghhh, why doesn't golang have an immediate if construct?
	var i int32
	if val {
		i = atTrue
	} else {
		i = atFalse
	}
	return i
}
