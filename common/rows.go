package common

import (
	"strings"
	"time"
)

// Row is a fixed-arity ordered sequence of typed values, immutable once built.
// A row may carry more columns than a result exposes; the extra columns hold
// sort keys that are not part of the projection.
type Row struct {
	values []Value
}

func NewRow(values ...Value) Row {
	return Row{values: values}
}

func (r Row) ColCount() int {
	return len(r.values)
}

func (r Row) IsNull(colIndex int) bool {
	return r.values[colIndex].IsNull()
}

func (r Row) GetValue(colIndex int) Value {
	return r.values[colIndex]
}

func (r Row) GetInt64(colIndex int) int64 {
	return r.values[colIndex].Int64()
}

func (r Row) GetFloat64(colIndex int) float64 {
	return r.values[colIndex].Float64()
}

func (r Row) GetString(colIndex int) string {
	return r.values[colIndex].Varchar()
}

func (r Row) GetTimestamp(colIndex int) time.Time {
	return r.values[colIndex].Timestamp()
}

// TrimColumns returns a row restricted to the first n columns. The returned
// row shares the value storage; rows are immutable so sharing is safe.
func (r Row) TrimColumns(n int) Row {
	if len(r.values) <= n {
		return r
	}
	return Row{values: r.values[:n]}
}

// Equal reports value equality over all columns, pairwise.
func (r Row) Equal(other Row) bool {
	if len(r.values) != len(other.values) {
		return false
	}
	for i, v := range r.values {
		if !v.Equal(other.values[i]) {
			return false
		}
	}
	return true
}

func (r Row) String() string {
	sb := strings.Builder{}
	sb.WriteString("[")
	for i, v := range r.values {
		if i != 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.String())
	}
	sb.WriteString("]")
	return sb.String()
}
