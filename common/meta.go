package common

import (
	"fmt"
	"time"
)

type Type int

const (
	TypeUnknown Type = iota
	TypeTinyInt
	TypeInt
	TypeBigInt
	TypeDouble
	TypeVarchar
	TypeTimestamp
)

func (t Type) String() string {
	switch t {
	case TypeTinyInt:
		return "tinyint"
	case TypeInt:
		return "int"
	case TypeBigInt:
		return "bigint"
	case TypeDouble:
		return "double"
	case TypeVarchar:
		return "varchar"
	case TypeTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

var (
	TinyIntColumnType   = ColumnType{Type: TypeTinyInt}
	IntColumnType       = ColumnType{Type: TypeInt}
	BigIntColumnType    = ColumnType{Type: TypeBigInt}
	DoubleColumnType    = ColumnType{Type: TypeDouble}
	VarcharColumnType   = ColumnType{Type: TypeVarchar}
	TimestampColumnType = ColumnType{Type: TypeTimestamp}
	UnknownColumnType   = ColumnType{Type: TypeUnknown}
)

type ColumnType struct {
	Type Type
}

// InferColumnType from a Go value.
func InferColumnType(value interface{}) ColumnType {
	switch value.(type) {
	case string:
		return VarcharColumnType
	case int, int64:
		return BigIntColumnType
	case int16, int32:
		return IntColumnType
	case int8:
		return TinyIntColumnType
	case float64:
		return DoubleColumnType
	case time.Time:
		return TimestampColumnType
	default:
		panic(fmt.Sprintf("can't infer column of type %T", value))
	}
}

// Nullability of a column as declared by the producing expression.
type Nullability int8

const (
	NullableUnknown Nullability = iota
	Nullable
	NotNullable
)

// ColumnInfo describes one column of a result: the declared type plus the
// metadata the result surface passes through unchanged to its consumer.
type ColumnInfo struct {
	Name       string
	Alias      string
	TableName  string
	SchemaName string
	ColumnType
	Precision     int64
	Scale         int
	DisplaySize   int
	Nullable      Nullability
	AutoIncrement bool
}

// NewColumnInfo returns a ColumnInfo with the alias defaulted to the name.
func NewColumnInfo(name string, columnType ColumnType) ColumnInfo {
	return ColumnInfo{
		Name:       name,
		Alias:      name,
		ColumnType: columnType,
		Nullable:   NullableUnknown,
	}
}

// ColumnTypesFromInfos projects the declared types out of column metadata.
func ColumnTypesFromInfos(columns []ColumnInfo) []ColumnType {
	colTypes := make([]ColumnType, len(columns))
	for i, col := range columns {
		colTypes[i] = col.ColumnType
	}
	return colTypes
}
