package commontest

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/skiffdb/skiff/common"
	"github.com/stretchr/testify/require"
)

// Test utils
// I would like these to live in a xxx_test.go file so they're not compiled into the executable however I haven't
// been able to figure out how to do that and still be able to include them in tests from other packages

func MakeRow(colVals ...interface{}) common.Row {
	values := make([]common.Value, len(colVals))
	for i, colVal := range colVals {
		if colVal == nil {
			values[i] = common.NullValue()
			continue
		}
		switch val := colVal.(type) {
		case int:
			values[i] = common.NewInt64Value(int64(val))
		case int64:
			values[i] = common.NewInt64Value(val)
		case float64:
			values[i] = common.NewFloat64Value(val)
		case string:
			values[i] = common.NewStringValue(val)
		case time.Time:
			values[i] = common.NewTimestampValue(val)
		default:
			panic(fmt.Sprintf("unexpected column value %v", colVal))
		}
	}
	return common.NewRow(values...)
}

func MakeRows(rowVals ...[]interface{}) []common.Row {
	rows := make([]common.Row, len(rowVals))
	for i, colVals := range rowVals {
		rows[i] = MakeRow(colVals...)
	}
	return rows
}

// SortRows orders rows by their first column, which must be an int column. Used
// to compare result sets whose order is not defined.
func SortRows(rows []common.Row) []common.Row {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].GetInt64(0) < rows[j].GetInt64(0)
	})
	return rows
}

func RowsEqual(t *testing.T, expected common.Row, actual common.Row) {
	t.Helper()
	require.Equal(t, expected.ColCount(), actual.ColCount())
	require.Truef(t, expected.Equal(actual), "rows not equal: %v and %v", expected, actual)
}

func AllRowsEqual(t *testing.T, expected []common.Row, actual []common.Row) {
	t.Helper()
	require.Equal(t, len(expected), len(actual))
	for i := range expected {
		RowsEqual(t, expected[i], actual[i])
	}
}
