package common

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Value is a single typed column value. The zero Value is NULL.
// Values are immutable; rows share them freely across buffers, indexes and
// shallow copies.
type Value struct {
	typ Type
	i   int64
	f   float64
	s   string
	t   time.Time
}

func NullValue() Value {
	return Value{}
}

func NewInt64Value(v int64) Value {
	return Value{typ: TypeBigInt, i: v}
}

func NewFloat64Value(v float64) Value {
	return Value{typ: TypeDouble, f: v}
}

func NewStringValue(v string) Value {
	return Value{typ: TypeVarchar, s: v}
}

func NewTimestampValue(v time.Time) Value {
	// Round(0) strips any monotonic clock reading so comparisons always use wall time
	return Value{typ: TypeTimestamp, t: v.Round(0)}
}

func (v Value) Kind() Type {
	return v.typ
}

func (v Value) IsNull() bool {
	return v.typ == TypeUnknown
}

func (v Value) Int64() int64 {
	return v.i
}

func (v Value) Float64() float64 {
	return v.f
}

func (v Value) Varchar() string {
	return v.s
}

func (v Value) Timestamp() time.Time {
	return v.t
}

// Compare orders NULL lowest, then compares by value. Values of different
// kinds order by kind so the order stays total; typed columns never mix kinds.
func (v Value) Compare(other Value) int {
	if v.typ == TypeUnknown || other.typ == TypeUnknown {
		if v.typ == other.typ {
			return 0
		}
		if v.typ == TypeUnknown {
			return -1
		}
		return 1
	}
	k1, k2 := comparableKind(v.typ), comparableKind(other.typ)
	if k1 != k2 {
		if k1 < k2 {
			return -1
		}
		return 1
	}
	switch k1 {
	case TypeBigInt:
		if v.i < other.i {
			return -1
		}
		if v.i > other.i {
			return 1
		}
		return 0
	case TypeDouble:
		if v.f < other.f {
			return -1
		}
		if v.f > other.f {
			return 1
		}
		// NaN compares above all other values, NaNs compare equal
		n1, n2 := math.IsNaN(v.f), math.IsNaN(other.f)
		if n1 == n2 {
			return 0
		}
		if n1 {
			return 1
		}
		return -1
	case TypeVarchar:
		return strings.Compare(v.s, other.s)
	case TypeTimestamp:
		if v.t.Before(other.t) {
			return -1
		}
		if v.t.After(other.t) {
			return 1
		}
		return 0
	default:
		panic(fmt.Sprintf("unexpected value kind %d", k1))
	}
}

func (v Value) Equal(other Value) bool {
	return v.Compare(other) == 0
}

func (v Value) String() string {
	if v.IsNull() {
		return "null"
	}
	switch comparableKind(v.typ) {
	case TypeBigInt:
		return fmt.Sprintf("%d", v.i)
	case TypeDouble:
		return fmt.Sprintf("%g", v.f)
	case TypeVarchar:
		return v.s
	case TypeTimestamp:
		return v.t.UTC().Format("2006-01-02 15:04:05.000000")
	default:
		return "?"
	}
}

// comparableKind folds the integer widths onto bigint; tinyint, int and bigint
// values share the int64 representation.
func comparableKind(t Type) Type {
	switch t {
	case TypeTinyInt, TypeInt:
		return TypeBigInt
	default:
		return t
	}
}
