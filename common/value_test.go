package common

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValueCompareNullLowest(t *testing.T) {
	require.True(t, NullValue().Compare(NewInt64Value(math.MinInt64)) < 0)
	require.True(t, NullValue().Compare(NewStringValue("")) < 0)
	require.True(t, NewFloat64Value(math.Inf(-1)).Compare(NullValue()) > 0)
	require.Equal(t, 0, NullValue().Compare(NullValue()))
}

func TestValueCompareInt(t *testing.T) {
	require.True(t, NewInt64Value(-1).Compare(NewInt64Value(1)) < 0)
	require.True(t, NewInt64Value(5).Compare(NewInt64Value(3)) > 0)
	require.Equal(t, 0, NewInt64Value(42).Compare(NewInt64Value(42)))
}

func TestValueCompareDouble(t *testing.T) {
	require.True(t, NewFloat64Value(-0.5).Compare(NewFloat64Value(0.5)) < 0)
	require.Equal(t, 0, NewFloat64Value(1.25).Compare(NewFloat64Value(1.25)))
	// positive and negative zero compare equal
	require.Equal(t, 0, NewFloat64Value(0.0).Compare(NewFloat64Value(math.Copysign(0, -1))))
	// NaN compares above everything else including infinity
	require.True(t, NewFloat64Value(math.NaN()).Compare(NewFloat64Value(math.Inf(1))) > 0)
	require.True(t, NewFloat64Value(math.Inf(1)).Compare(NewFloat64Value(math.NaN())) < 0)
	require.Equal(t, 0, NewFloat64Value(math.NaN()).Compare(NewFloat64Value(math.NaN())))
}

func TestValueCompareString(t *testing.T) {
	require.True(t, NewStringValue("apples").Compare(NewStringValue("pears")) < 0)
	require.True(t, NewStringValue("pears").Compare(NewStringValue("apples")) > 0)
	require.Equal(t, 0, NewStringValue("apples").Compare(NewStringValue("apples")))
}

func TestValueCompareTimestamp(t *testing.T) {
	t1 := time.Date(2021, 9, 13, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Nanosecond)
	require.True(t, NewTimestampValue(t1).Compare(NewTimestampValue(t2)) < 0)
	require.True(t, NewTimestampValue(t2).Compare(NewTimestampValue(t1)) > 0)
	require.Equal(t, 0, NewTimestampValue(t1).Compare(NewTimestampValue(t1)))
	// same instant in different locations compares equal
	loc := time.FixedZone("skiff", 3600)
	require.Equal(t, 0, NewTimestampValue(t1).Compare(NewTimestampValue(t1.In(loc))))
}

func TestValueCompareIntWidthsFold(t *testing.T) {
	// tinyint, int and bigint values share the int64 representation
	v1 := Value{typ: TypeTinyInt, i: 3}
	v2 := Value{typ: TypeBigInt, i: 4}
	require.True(t, v1.Compare(v2) < 0)
	require.True(t, v2.Compare(v1) > 0)
}

func TestInferColumnType(t *testing.T) {
	require.Equal(t, BigIntColumnType, InferColumnType(int64(1)))
	require.Equal(t, DoubleColumnType, InferColumnType(1.5))
	require.Equal(t, VarcharColumnType, InferColumnType("x"))
	require.Equal(t, TimestampColumnType, InferColumnType(time.Now()))
}
