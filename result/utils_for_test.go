package result

import (
	"sort"

	"github.com/skiffdb/skiff/common"
	"github.com/skiffdb/skiff/errors"
)

// fakeSession hands out fakeStores and records them so tests can assert on
// spill behavior.
type fakeSession struct {
	maxMemoryRows  int
	stores         []*fakeStore
	declineCopies  bool
	failAddBatches int
}

func newFakeSession(maxMemoryRows int) *fakeSession {
	return &fakeSession{maxMemoryRows: maxMemoryRows}
}

func (s *fakeSession) MaxMemoryRows() int {
	return s.maxMemoryRows
}

func (s *fakeSession) CreateRowStore(columns []common.ColumnInfo, visibleColumnCount int, distinct bool, sortOrder *common.SortOrder) (RowStore, error) {
	store := &fakeStore{
		colTypes:           common.ColumnTypesFromInfos(columns),
		visibleColumnCount: visibleColumnCount,
		distinct:           distinct,
		sort:               sortOrder,
		declineCopy:        s.declineCopies,
		failAddBatches:     s.failAddBatches,
	}
	s.failAddBatches = 0
	s.stores = append(s.stores, store)
	return store, nil
}

// fakeStore is an in-memory row store with the same contract as the real temp
// store: append mode preserves insertion order, distinct mode dedups by
// visible column values, and a sort directive keeps rows in directive order
// across inserts, stably for duplicates.
type fakeStore struct {
	colTypes           []common.ColumnType
	visibleColumnCount int
	distinct           bool
	sort               *common.SortOrder
	rows               []common.Row
	cursor             int
	doneCount          int
	closed             bool
	declineCopy        bool
	failAddBatches     int
}

func (f *fakeStore) AddRow(row common.Row) (int, error) {
	if f.closed {
		return 0, errors.NewStoreClosedError()
	}
	if f.distinct {
		ok, err := f.Contains(row)
		if err != nil {
			return 0, err
		}
		if ok {
			return len(f.rows), nil
		}
	}
	f.rows = append(f.rows, row)
	if f.sort != nil {
		sort.SliceStable(f.rows, func(i, j int) bool {
			return f.sort.Compare(f.rows[i], f.rows[j]) < 0
		})
	}
	return len(f.rows), nil
}

func (f *fakeStore) AddRows(rows []common.Row) (int, error) {
	if f.failAddBatches > 0 {
		f.failAddBatches--
		return 0, errors.New("disk full")
	}
	for _, row := range rows {
		if _, err := f.AddRow(row); err != nil {
			return 0, err
		}
	}
	return len(f.rows), nil
}

func (f *fakeStore) Next() (*common.Row, error) {
	if f.cursor >= len(f.rows) {
		return nil, nil
	}
	row := f.rows[f.cursor]
	f.cursor++
	return &row, nil
}

func (f *fakeStore) Reset() error {
	f.cursor = 0
	return nil
}

func (f *fakeStore) Contains(row common.Row) (bool, error) {
	probe := row.TrimColumns(f.visibleColumnCount)
	for _, r := range f.rows {
		if r.TrimColumns(f.visibleColumnCount).Equal(probe) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) RemoveRow(row common.Row) (int, error) {
	probe := row.TrimColumns(f.visibleColumnCount)
	for i, r := range f.rows {
		if r.TrimColumns(f.visibleColumnCount).Equal(probe) {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			break
		}
	}
	return len(f.rows), nil
}

func (f *fakeStore) Done() error {
	f.doneCount++
	return nil
}

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

func (f *fakeStore) CreateShallowCopy() RowStore {
	if f.declineCopy || f.closed {
		return nil
	}
	return &fakeStore{
		colTypes:           f.colTypes,
		visibleColumnCount: f.visibleColumnCount,
		distinct:           f.distinct,
		sort:               f.sort,
		rows:               f.rows,
	}
}
