package result

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skiffdb/skiff/common"
	"github.com/skiffdb/skiff/common/commontest"
	"github.com/skiffdb/skiff/errors"
)

var testColumns = []common.ColumnInfo{
	common.NewColumnInfo("id", common.BigIntColumnType),
	common.NewColumnInfo("name", common.VarcharColumnType),
}

func TestIterateInInsertionOrder(t *testing.T) {
	acc := NewAccumulator(newFakeSession(100), testColumns, 2)
	rows := commontest.MakeRows(
		[]interface{}{3, "antelopes"},
		[]interface{}{1, "aardvarks"},
		[]interface{}{2, "zebras"},
	)
	addRows(t, acc, rows)
	require.NoError(t, acc.Done())
	require.Equal(t, 3, acc.RowCount())
	commontest.AllRowsEqual(t, rows, drain(t, acc))
}

func TestRowIDProgression(t *testing.T) {
	acc := NewAccumulator(newFakeSession(100), testColumns, 2)
	addRows(t, acc, commontest.MakeRows([]interface{}{1, "a"}, []interface{}{2, "b"}))
	require.NoError(t, acc.Done())
	require.Equal(t, -1, acc.RowID())
	for i := 0; i < 2; i++ {
		ok, err := acc.Next()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, i, acc.RowID())
	}
	ok, err := acc.Next()
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, acc.CurrentRow())
	// Further calls stay at the end
	ok, err = acc.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEmptyResult(t *testing.T) {
	acc := NewAccumulator(newFakeSession(100), testColumns, 2)
	require.NoError(t, acc.Done())
	require.Equal(t, 0, acc.RowCount())
	ok, err := acc.Next()
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, acc.CurrentRow())
}

func TestSpillPreservesInsertionOrder(t *testing.T) {
	sess := newFakeSession(2)
	acc := NewAccumulator(sess, testColumns, 2)
	rows := commontest.MakeRows(
		[]interface{}{1, "a"},
		[]interface{}{2, "b"},
		[]interface{}{3, "c"},
	)
	addRows(t, acc, rows[:2])
	require.Empty(t, sess.stores)
	require.NoError(t, acc.AddRow(rows[2]))
	// The third row pushed the buffer over budget
	require.Len(t, sess.stores, 1)
	require.False(t, sess.stores[0].distinct)
	require.Equal(t, 3, acc.RowCount())
	require.NoError(t, acc.Done())
	require.Equal(t, 1, sess.stores[0].doneCount)
	commontest.AllRowsEqual(t, rows, drain(t, acc))
}

func TestSpillRepeatedOverflow(t *testing.T) {
	sess := newFakeSession(2)
	acc := NewAccumulator(sess, testColumns, 2)
	var rows []common.Row
	for i := 0; i < 7; i++ {
		rows = append(rows, commontest.MakeRow(i, "x"))
	}
	addRows(t, acc, rows)
	require.NoError(t, acc.Done())
	// Overflow re-triggers the transfer but never creates a second store
	require.Len(t, sess.stores, 1)
	require.Equal(t, 7, acc.RowCount())
	commontest.AllRowsEqual(t, rows, drain(t, acc))
}

func TestDistinctNoSpill(t *testing.T) {
	sess := newFakeSession(2)
	acc := NewAccumulator(sess, testColumns, 2)
	require.NoError(t, acc.SetDistinct())
	x := commontest.MakeRow(1, "x")
	y := commontest.MakeRow(2, "y")
	require.NoError(t, acc.AddRow(x))
	require.NoError(t, acc.AddRow(x))
	require.Equal(t, 1, acc.RowCount())
	require.NoError(t, acc.AddRow(y))
	require.Equal(t, 2, acc.RowCount())
	// The index never exceeded the budget
	require.Empty(t, sess.stores)
	require.NoError(t, acc.Done())
	commontest.AllRowsEqual(t, []common.Row{x, y}, drain(t, acc))
}

func TestDistinctKeepsInsertionOrder(t *testing.T) {
	acc := NewAccumulator(newFakeSession(100), testColumns, 2)
	require.NoError(t, acc.SetDistinct())
	b := commontest.MakeRow(2, "b")
	a := commontest.MakeRow(1, "a")
	c := commontest.MakeRow(3, "c")
	addRows(t, acc, []common.Row{b, a, b, c})
	require.NoError(t, acc.Done())
	commontest.AllRowsEqual(t, []common.Row{b, a, c}, drain(t, acc))
}

func TestDistinctSpillThenResortPass(t *testing.T) {
	sess := newFakeSession(1)
	acc := NewAccumulator(sess, testColumns, 2)
	require.NoError(t, acc.SetDistinct())
	require.NoError(t, acc.SetSortOrder(common.NewSortOrder(common.NewSortColumn(0, false))))
	for _, id := range []int{3, 1, 2, 1} {
		require.NoError(t, acc.AddRow(commontest.MakeRow(id, "x")))
	}
	// The second add spilled into a sorted deduping store
	require.Len(t, sess.stores, 1)
	require.True(t, sess.stores[0].distinct)
	require.Equal(t, 3, acc.RowCount())
	require.NoError(t, acc.Done())
	// Done re-sorted the spilled rows into a fresh store and closed the old one
	require.Len(t, sess.stores, 2)
	require.True(t, sess.stores[0].closed)
	require.Equal(t, 1, sess.stores[1].doneCount)
	expected := commontest.MakeRows(
		[]interface{}{1, "x"},
		[]interface{}{2, "x"},
		[]interface{}{3, "x"},
	)
	commontest.AllRowsEqual(t, expected, drain(t, acc))
}

func TestDistinctSpillNoSortKeepsStore(t *testing.T) {
	sess := newFakeSession(1)
	acc := NewAccumulator(sess, testColumns, 2)
	require.NoError(t, acc.SetDistinct())
	for _, id := range []int{3, 1, 2} {
		require.NoError(t, acc.AddRow(commontest.MakeRow(id, "x")))
	}
	require.NoError(t, acc.Done())
	require.Len(t, sess.stores, 1)
	require.Equal(t, 3, acc.RowCount())
	require.Len(t, drain(t, acc), 3)
}

func TestDistinctIdempotenceAcrossSpill(t *testing.T) {
	sess := newFakeSession(1)
	acc := NewAccumulator(sess, testColumns, 2)
	require.NoError(t, acc.SetDistinct())
	x := commontest.MakeRow(1, "x")
	y := commontest.MakeRow(2, "y")
	require.NoError(t, acc.AddRow(x))
	require.NoError(t, acc.AddRow(x))
	require.Equal(t, 1, acc.RowCount())
	require.NoError(t, acc.AddRow(y))
	// Spilled, further duplicates are deduped by the store
	require.Len(t, sess.stores, 1)
	require.NoError(t, acc.AddRow(x))
	require.NoError(t, acc.AddRow(y))
	require.Equal(t, 2, acc.RowCount())
	require.NoError(t, acc.Done())
	require.Len(t, drain(t, acc), 2)
}

func TestSortInMemory(t *testing.T) {
	testSortedResult(t, 1000, 20)
}

func TestSortSpilled(t *testing.T) {
	testSortedResult(t, 3, 20)
}

func testSortedResult(t *testing.T, maxMemoryRows int, numRows int) {
	t.Helper()
	rnd := rand.New(rand.NewSource(42))
	so := common.NewSortOrder(common.NewSortColumn(0, false), common.NewSortColumn(1, true))
	acc := NewAccumulator(newFakeSession(maxMemoryRows), testColumns, 2)
	require.NoError(t, acc.SetSortOrder(so))
	var rows []common.Row
	for i := 0; i < numRows; i++ {
		rows = append(rows, commontest.MakeRow(rnd.Intn(5), string(rune('a'+rnd.Intn(3)))))
	}
	addRows(t, acc, rows)
	require.NoError(t, acc.Done())
	expected := make([]common.Row, len(rows))
	copy(expected, rows)
	sort.SliceStable(expected, func(i, j int) bool {
		return so.Compare(expected[i], expected[j]) < 0
	})
	commontest.AllRowsEqual(t, expected, drain(t, acc))
}

func TestSortWithOffsetLimitInMemory(t *testing.T) {
	rnd := rand.New(rand.NewSource(43))
	so := common.NewSortOrder(common.NewSortColumn(0, false))
	var rows []common.Row
	for i := 0; i < 30; i++ {
		rows = append(rows, commontest.MakeRow(rnd.Intn(100), "x"))
	}
	expected := make([]common.Row, len(rows))
	copy(expected, rows)
	sort.SliceStable(expected, func(i, j int) bool {
		return so.Compare(expected[i], expected[j]) < 0
	})
	acc := NewAccumulator(newFakeSession(1000), testColumns, 2)
	require.NoError(t, acc.SetSortOrder(so))
	require.NoError(t, acc.SetOffset(5))
	require.NoError(t, acc.SetLimit(10))
	addRows(t, acc, rows)
	require.NoError(t, acc.Done())
	// The windowed sort must be observably identical to a full sort then window
	commontest.AllRowsEqual(t, expected[5:15], drain(t, acc))
}

func TestOffsetLimitWindowing(t *testing.T) {
	for _, maxMemoryRows := range []int{100, 2} {
		for _, offset := range []int{0, 3, 9, 10, 15} {
			for _, limit := range []int{-1, 0, 4, 100} {
				testWindow(t, maxMemoryRows, offset, limit)
			}
		}
	}
}

func testWindow(t *testing.T, maxMemoryRows int, offset int, limit int) {
	t.Helper()
	numRows := 10
	var rows []common.Row
	for i := 0; i < numRows; i++ {
		rows = append(rows, commontest.MakeRow(i, "x"))
	}
	acc := NewAccumulator(newFakeSession(maxMemoryRows), testColumns, 2)
	require.NoError(t, acc.SetOffset(offset))
	require.NoError(t, acc.SetLimit(limit))
	addRows(t, acc, rows)
	require.NoError(t, acc.Done())
	start := offset
	if start > numRows {
		start = numRows
	}
	end := numRows
	if limit >= 0 && start+limit < numRows {
		end = start + limit
	}
	expected := rows[start:end]
	require.Equal(t, len(expected), acc.RowCount())
	commontest.AllRowsEqual(t, expected, drain(t, acc))
}

func TestConfigAfterAddFails(t *testing.T) {
	acc := NewAccumulator(newFakeSession(100), testColumns, 2)
	require.NoError(t, acc.AddRow(commontest.MakeRow(1, "a")))
	requirePreconditionViolation(t, acc.SetDistinct())
	requirePreconditionViolation(t, acc.SetSortOrder(common.NewSortOrder(common.NewSortColumn(0, false))))
	requirePreconditionViolation(t, acc.SetRandomAccess())
	requirePreconditionViolation(t, acc.SetOffset(1))
	requirePreconditionViolation(t, acc.SetLimit(1))
	requirePreconditionViolation(t, acc.SetMaxMemoryRows(5))
}

func TestRemoveDistinctRequiresDistinctMode(t *testing.T) {
	acc := NewAccumulator(newFakeSession(100), testColumns, 2)
	require.NoError(t, acc.AddRow(commontest.MakeRow(1, "a")))
	requirePreconditionViolation(t, acc.RemoveDistinct(commontest.MakeRow(1, "a")))
}

func TestRemoveDistinctInMemory(t *testing.T) {
	acc := NewAccumulator(newFakeSession(100), testColumns, 2)
	require.NoError(t, acc.SetDistinct())
	x := commontest.MakeRow(1, "x")
	y := commontest.MakeRow(2, "y")
	addRows(t, acc, []common.Row{x, y})
	require.NoError(t, acc.RemoveDistinct(x))
	require.Equal(t, 1, acc.RowCount())
	// Removing an absent row is a no-op
	require.NoError(t, acc.RemoveDistinct(commontest.MakeRow(9, "z")))
	require.Equal(t, 1, acc.RowCount())
	require.NoError(t, acc.Done())
	commontest.AllRowsEqual(t, []common.Row{y}, drain(t, acc))
}

func TestRemoveDistinctSpilled(t *testing.T) {
	sess := newFakeSession(1)
	acc := NewAccumulator(sess, testColumns, 2)
	require.NoError(t, acc.SetDistinct())
	x := commontest.MakeRow(1, "x")
	y := commontest.MakeRow(2, "y")
	addRows(t, acc, []common.Row{x, y})
	require.Len(t, sess.stores, 1)
	require.NoError(t, acc.RemoveDistinct(x))
	require.Equal(t, 1, acc.RowCount())
	require.NoError(t, acc.Done())
	commontest.AllRowsEqual(t, []common.Row{y}, drain(t, acc))
}

func TestAddRowAfterDoneFails(t *testing.T) {
	acc := NewAccumulator(newFakeSession(100), testColumns, 2)
	rows := commontest.MakeRows([]interface{}{1, "a"}, []interface{}{2, "b"})
	addRows(t, acc, rows)
	require.NoError(t, acc.Done())
	requirePreconditionViolation(t, acc.AddRow(commontest.MakeRow(3, "c")))
	// The finalized result is untouched by the refused add
	require.Equal(t, 2, acc.RowCount())
	commontest.AllRowsEqual(t, rows, drain(t, acc))
}

func TestDoneTwiceFails(t *testing.T) {
	acc := NewAccumulator(newFakeSession(100), testColumns, 2)
	require.NoError(t, acc.SetOffset(1))
	addRows(t, acc, commontest.MakeRows([]interface{}{1, "a"}, []interface{}{2, "b"}))
	require.NoError(t, acc.Done())
	// A second Done would re-apply the window
	requirePreconditionViolation(t, acc.Done())
	require.Equal(t, 1, acc.RowCount())
}

func TestRemoveDistinctAfterDoneFails(t *testing.T) {
	acc := NewAccumulator(newFakeSession(100), testColumns, 2)
	require.NoError(t, acc.SetDistinct())
	x := commontest.MakeRow(1, "x")
	require.NoError(t, acc.AddRow(x))
	require.NoError(t, acc.Done())
	requirePreconditionViolation(t, acc.RemoveDistinct(x))
}

func TestDistinctSpillFailureKeepsIndex(t *testing.T) {
	sess := newFakeSession(1)
	sess.failAddBatches = 1
	acc := NewAccumulator(sess, testColumns, 2)
	require.NoError(t, acc.SetDistinct())
	require.NoError(t, acc.AddRow(commontest.MakeRow(1, "x")))
	err := acc.AddRow(commontest.MakeRow(2, "y"))
	require.Error(t, err)
	// The failed transfer released the store and left the index authoritative
	require.Len(t, sess.stores, 1)
	require.True(t, sess.stores[0].closed)
	require.Equal(t, 2, acc.RowCount())
	// The next overflow spills the full index into a fresh store
	require.NoError(t, acc.AddRow(commontest.MakeRow(3, "z")))
	require.Len(t, sess.stores, 2)
	require.Equal(t, 3, acc.RowCount())
	require.NoError(t, acc.Done())
	expected := commontest.MakeRows(
		[]interface{}{1, "x"},
		[]interface{}{2, "y"},
		[]interface{}{3, "z"},
	)
	commontest.AllRowsEqual(t, expected, drain(t, acc))
}

func TestContainsDistinctLazyIndex(t *testing.T) {
	acc := NewAccumulator(newFakeSession(100), testColumns, 2)
	require.NoError(t, acc.SetRandomAccess())
	addRows(t, acc, commontest.MakeRows([]interface{}{1, "a"}, []interface{}{2, "b"}))
	ok, err := acc.ContainsDistinct(commontest.MakeRow(1, "a"))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = acc.ContainsDistinct(commontest.MakeRow(1, "b"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestContainsDistinctAfterSpillUsesStore(t *testing.T) {
	sess := newFakeSession(2)
	acc := NewAccumulator(sess, testColumns, 2)
	require.NoError(t, acc.SetRandomAccess())
	addRows(t, acc, commontest.MakeRows([]interface{}{1, "a"}, []interface{}{2, "b"}))
	ok, err := acc.ContainsDistinct(commontest.MakeRow(1, "a"))
	require.NoError(t, err)
	require.True(t, ok)
	// The third row spills everything, probes go to the store from here on and
	// see rows the probe cache never indexed
	require.NoError(t, acc.AddRow(commontest.MakeRow(3, "c")))
	require.Len(t, sess.stores, 1)
	ok, err = acc.ContainsDistinct(commontest.MakeRow(3, "c"))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = acc.ContainsDistinct(commontest.MakeRow(9, "z"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestContainsDistinctSpilled(t *testing.T) {
	sess := newFakeSession(1)
	acc := NewAccumulator(sess, testColumns, 2)
	require.NoError(t, acc.SetDistinct())
	addRows(t, acc, commontest.MakeRows([]interface{}{1, "a"}, []interface{}{2, "b"}))
	require.Len(t, sess.stores, 1)
	ok, err := acc.ContainsDistinct(commontest.MakeRow(2, "b"))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = acc.ContainsDistinct(commontest.MakeRow(3, "c"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestShallowCopyInMemory(t *testing.T) {
	acc := NewAccumulator(newFakeSession(100), testColumns, 2)
	require.NoError(t, acc.SetOffset(2))
	require.NoError(t, acc.SetLimit(3))
	var rows []common.Row
	for i := 0; i < 10; i++ {
		rows = append(rows, commontest.MakeRow(i, "x"))
	}
	addRows(t, acc, rows)
	require.NoError(t, acc.Done())
	cp := acc.CreateShallowCopy(newFakeSession(100))
	require.NotNil(t, cp)
	// The copy sees the original's windowed rows with a cursor of its own
	commontest.AllRowsEqual(t, rows[2:5], drain(t, acc))
	commontest.AllRowsEqual(t, rows[2:5], drain(t, cp))
	require.NoError(t, acc.Close())
	require.NoError(t, cp.Reset())
	commontest.AllRowsEqual(t, rows[2:5], drain(t, cp))
}

func TestShallowCopySpilledSurvivesOriginalClose(t *testing.T) {
	sess := newFakeSession(2)
	acc := NewAccumulator(sess, testColumns, 2)
	var rows []common.Row
	for i := 0; i < 6; i++ {
		rows = append(rows, commontest.MakeRow(i, "x"))
	}
	addRows(t, acc, rows)
	require.NoError(t, acc.Done())
	cp := acc.CreateShallowCopy(newFakeSession(2))
	require.NotNil(t, cp)
	require.Equal(t, 6, cp.RowCount())
	require.NoError(t, acc.Close())
	require.NoError(t, cp.Reset())
	commontest.AllRowsEqual(t, rows, drain(t, cp))
	require.NoError(t, cp.Close())
}

func TestShallowCopySpilledWithOffset(t *testing.T) {
	sess := newFakeSession(2)
	acc := NewAccumulator(sess, testColumns, 2)
	require.NoError(t, acc.SetOffset(2))
	var rows []common.Row
	for i := 0; i < 6; i++ {
		rows = append(rows, commontest.MakeRow(i, "x"))
	}
	addRows(t, acc, rows)
	require.NoError(t, acc.Done())
	cp := acc.CreateShallowCopy(newFakeSession(2))
	require.NotNil(t, cp)
	require.NoError(t, cp.Reset())
	commontest.AllRowsEqual(t, rows[2:], drain(t, cp))
}

func TestShallowCopyDeclinedByStore(t *testing.T) {
	sess := newFakeSession(2)
	sess.declineCopies = true
	acc := NewAccumulator(sess, testColumns, 2)
	for i := 0; i < 4; i++ {
		require.NoError(t, acc.AddRow(commontest.MakeRow(i, "x")))
	}
	require.NoError(t, acc.Done())
	require.Nil(t, acc.CreateShallowCopy(newFakeSession(2)))
}

func TestShallowCopyRefusedPartialState(t *testing.T) {
	// Distinct rows held only in the index cannot be shared
	acc := NewAccumulator(newFakeSession(100), testColumns, 2)
	require.NoError(t, acc.SetDistinct())
	require.NoError(t, acc.AddRow(commontest.MakeRow(1, "a")))
	require.Nil(t, acc.CreateShallowCopy(newFakeSession(100)))

	// Rows pending transfer to the store cannot be shared either
	sess := newFakeSession(2)
	acc = NewAccumulator(sess, testColumns, 2)
	for i := 0; i < 3; i++ {
		require.NoError(t, acc.AddRow(commontest.MakeRow(i, "x")))
	}
	require.Len(t, sess.stores, 1)
	require.NotNil(t, acc.CreateShallowCopy(newFakeSession(2)))
	require.NoError(t, acc.AddRow(commontest.MakeRow(9, "x")))
	require.Nil(t, acc.CreateShallowCopy(newFakeSession(2)))
}

func TestCloseReleasesStore(t *testing.T) {
	sess := newFakeSession(2)
	acc := NewAccumulator(sess, testColumns, 2)
	for i := 0; i < 4; i++ {
		require.NoError(t, acc.AddRow(commontest.MakeRow(i, "x")))
	}
	require.NoError(t, acc.Done())
	require.True(t, acc.NeedsClose())
	require.NoError(t, acc.Close())
	require.True(t, acc.IsClosed())
	require.True(t, sess.stores[0].closed)
	require.NoError(t, acc.Close())
	ok, err := acc.Next()
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, acc.CurrentRow())
}

func TestInMemoryResultIterableAfterClose(t *testing.T) {
	acc := NewAccumulator(newFakeSession(100), testColumns, 2)
	rows := commontest.MakeRows([]interface{}{1, "a"}, []interface{}{2, "b"})
	addRows(t, acc, rows)
	require.NoError(t, acc.Done())
	require.False(t, acc.NeedsClose())
	require.NoError(t, acc.Close())
	require.False(t, acc.IsClosed())
	commontest.AllRowsEqual(t, rows, drain(t, acc))
}

func TestResetReiterates(t *testing.T) {
	for _, maxMemoryRows := range []int{100, 2} {
		acc := NewAccumulator(newFakeSession(maxMemoryRows), testColumns, 2)
		require.NoError(t, acc.SetOffset(2))
		var rows []common.Row
		for i := 0; i < 6; i++ {
			rows = append(rows, commontest.MakeRow(i, "x"))
		}
		addRows(t, acc, rows)
		require.NoError(t, acc.Done())
		commontest.AllRowsEqual(t, rows[2:], drain(t, acc))
		require.NoError(t, acc.Reset())
		require.Equal(t, -1, acc.RowID())
		commontest.AllRowsEqual(t, rows[2:], drain(t, acc))
	}
}

func TestNilSessionNeverSpills(t *testing.T) {
	acc := NewAccumulator(nil, testColumns, 2)
	var rows []common.Row
	for i := 0; i < 1000; i++ {
		rows = append(rows, commontest.MakeRow(i, "x"))
	}
	addRows(t, acc, rows)
	require.NoError(t, acc.Done())
	require.False(t, acc.NeedsClose())
	commontest.AllRowsEqual(t, rows, drain(t, acc))
}

func TestSpillFailureKeepsRows(t *testing.T) {
	sess := newFakeSession(2)
	sess.failAddBatches = 1
	acc := NewAccumulator(sess, testColumns, 2)
	require.NoError(t, acc.AddRow(commontest.MakeRow(1, "a")))
	require.NoError(t, acc.AddRow(commontest.MakeRow(2, "b")))
	err := acc.AddRow(commontest.MakeRow(3, "c"))
	require.Error(t, err)
	// The failed transfer must not have dropped anything, a later overflow
	// retries with the full buffer
	require.Equal(t, 3, acc.RowCount())
	require.NoError(t, acc.AddRow(commontest.MakeRow(4, "d")))
	require.NoError(t, acc.Done())
	require.Equal(t, 4, acc.RowCount())
	expected := commontest.MakeRows(
		[]interface{}{1, "a"},
		[]interface{}{2, "b"},
		[]interface{}{3, "c"},
		[]interface{}{4, "d"},
	)
	commontest.AllRowsEqual(t, expected, drain(t, acc))
}

func TestRowCountConsistencyRandom(t *testing.T) {
	rnd := rand.New(rand.NewSource(44))
	so := common.NewSortOrder(common.NewSortColumn(0, false), common.NewSortColumn(1, true))
	for i := 0; i < 100; i++ {
		maxMemoryRows := []int{1, 2, 3, 5, 1000}[rnd.Intn(5)]
		distinct := rnd.Intn(2) == 0
		sorted := rnd.Intn(2) == 0
		offset := rnd.Intn(4)
		limit := rnd.Intn(6) - 1
		numRows := rnd.Intn(21)

		var rows []common.Row
		for j := 0; j < numRows; j++ {
			rows = append(rows, commontest.MakeRow(rnd.Intn(6), string(rune('a'+rnd.Intn(3)))))
		}

		acc := NewAccumulator(newFakeSession(maxMemoryRows), testColumns, 2)
		if distinct {
			require.NoError(t, acc.SetDistinct())
		}
		if sorted {
			require.NoError(t, acc.SetSortOrder(so))
		}
		require.NoError(t, acc.SetOffset(offset))
		require.NoError(t, acc.SetLimit(limit))
		addRows(t, acc, rows)
		require.NoError(t, acc.Done())

		expected := modelResult(rows, so, distinct, sorted, offset, limit)
		require.Equal(t, len(expected), acc.RowCount())
		commontest.AllRowsEqual(t, expected, drain(t, acc))
		// A reset cursor yields the same sequence
		require.NoError(t, acc.Reset())
		commontest.AllRowsEqual(t, expected, drain(t, acc))
		require.NoError(t, acc.Close())
	}
}

// modelResult computes the expected row sequence the straightforward way:
// dedup keeping first occurrence, stable sort, then window.
func modelResult(rows []common.Row, so *common.SortOrder, distinct bool, sorted bool, offset int, limit int) []common.Row {
	out := make([]common.Row, 0, len(rows))
	if distinct {
		seen := make(map[string]bool)
		for _, row := range rows {
			key := row.String()
			if !seen[key] {
				seen[key] = true
				out = append(out, row)
			}
		}
	} else {
		out = append(out, rows...)
	}
	if sorted {
		sort.SliceStable(out, func(i, j int) bool {
			return so.Compare(out[i], out[j]) < 0
		})
	}
	start := offset
	if start > len(out) {
		start = len(out)
	}
	end := len(out)
	if limit >= 0 && start+limit < len(out) {
		end = start + limit
	}
	return out[start:end]
}

func TestMetadataAccessors(t *testing.T) {
	col := common.ColumnInfo{
		Name:          "total",
		Alias:         "t",
		TableName:     "orders",
		SchemaName:    "shop",
		ColumnType:    common.DoubleColumnType,
		Precision:     10,
		Scale:         2,
		DisplaySize:   12,
		Nullable:      common.NotNullable,
		AutoIncrement: false,
	}
	acc := NewAccumulator(newFakeSession(100), []common.ColumnInfo{col}, 1)
	require.Equal(t, "t", acc.Alias(0))
	require.Equal(t, "orders", acc.TableName(0))
	require.Equal(t, "shop", acc.SchemaName(0))
	require.Equal(t, 12, acc.DisplaySize(0))
	require.Equal(t, "total", acc.ColumnName(0))
	require.Equal(t, common.DoubleColumnType, acc.ColumnType(0))
	require.Equal(t, int64(10), acc.ColumnPrecision(0))
	require.Equal(t, 2, acc.ColumnScale(0))
	require.Equal(t, common.NotNullable, acc.Nullable(0))
	require.False(t, acc.IsAutoIncrement(0))
	require.Equal(t, 1, acc.VisibleColumnCount())
}

func addRows(t *testing.T, target Target, rows []common.Row) {
	t.Helper()
	for _, row := range rows {
		require.NoError(t, target.AddRow(row))
	}
}

func drain(t *testing.T, res Result) []common.Row {
	t.Helper()
	var rows []common.Row
	for {
		ok, err := res.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		require.NotNil(t, res.CurrentRow())
		rows = append(rows, *res.CurrentRow())
	}
	return rows
}

func requirePreconditionViolation(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	code, ok := errors.Code(err)
	require.True(t, ok)
	require.Equal(t, errors.PreconditionViolation, code)
}
