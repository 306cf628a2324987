package common

import "sort"

// NullOrdering says where NULL values sort relative to non-null values for one
// sort column. The default orders nulls lowest, which flips to highest when the
// column is descending. The explicit orderings are absolute and do not flip.
type NullOrdering int8

const (
	NullOrderingDefault NullOrdering = iota
	NullsFirst
	NullsLast
)

type SortColumn struct {
	ColIndex     int
	Descending   bool
	NullOrdering NullOrdering
}

func NewSortColumn(colIndex int, descending bool) SortColumn {
	return SortColumn{ColIndex: colIndex, Descending: descending}
}

// SortOrder describes the ordering of a row sequence as a prioritised list of
// sort columns.
type SortOrder struct {
	columns []SortColumn
}

func NewSortOrder(columns ...SortColumn) *SortOrder {
	return &SortOrder{columns: columns}
}

func (s *SortOrder) Columns() []SortColumn {
	return s.columns
}

// Compare returns a negative number, zero or a positive number as row1 orders
// before, the same as, or after row2.
func (s *SortOrder) Compare(row1, row2 Row) int {
	for _, sortCol := range s.columns {
		v1 := row1.GetValue(sortCol.ColIndex)
		v2 := row2.GetValue(sortCol.ColIndex)
		null1, null2 := v1.IsNull(), v2.IsNull()
		if null1 || null2 {
			if null1 == null2 {
				continue
			}
			return compareNull(sortCol, null1)
		}
		comp := v1.Compare(v2)
		if comp != 0 {
			if sortCol.Descending {
				return -comp
			}
			return comp
		}
	}
	return 0
}

func compareNull(sortCol SortColumn, firstNull bool) int {
	comp := 1
	if firstNull {
		comp = -1
	}
	switch sortCol.NullOrdering {
	case NullsFirst:
		return comp
	case NullsLast:
		return -comp
	default:
		if sortCol.Descending {
			return -comp
		}
		return comp
	}
}

// NullsLow reports whether nulls in the column order before all non-null
// values once direction is taken into account.
func (sc SortColumn) NullsLow() bool {
	switch sc.NullOrdering {
	case NullsFirst:
		return true
	case NullsLast:
		return false
	default:
		return !sc.Descending
	}
}

// Sort sorts rows in place. The sort is stable so rows that compare equal keep
// their relative order.
func (s *SortOrder) Sort(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return s.Compare(rows[i], rows[j]) < 0
	})
}

// SortWindow sorts rows such that positions [offset, offset+limit) hold the
// same rows, in the same order, as they would after a full Sort. Rows outside
// that window are left in unspecified order. Used when only a window of a
// large result is going to be returned.
func (s *SortOrder) SortWindow(rows []Row, offset int, limit int) {
	n := len(rows)
	if offset >= n || limit <= 0 {
		return
	}
	to := n
	if limit < n-offset {
		to = offset + limit
	}
	if offset == 0 && to == 1 {
		// Top-1 needs a single scan for the minimum
		minIdx := 0
		for i := 1; i < n; i++ {
			if s.Compare(rows[i], rows[minIdx]) < 0 {
				minIdx = i
			}
		}
		rows[0], rows[minIdx] = rows[minIdx], rows[0]
		return
	}
	s.partialQuickSort(rows, 0, n-1, offset, to-1)
	window := rows[offset:to]
	sort.Slice(window, func(i, j int) bool {
		return s.Compare(window[i], window[j]) < 0
	})
}

// partialQuickSort partitions rows so that positions [start, end] hold the
// rows a full sort would put there, without ordering anything outside that
// range.
func (s *SortOrder) partialQuickSort(rows []Row, low, high, start, end int) {
	if low >= high {
		return
	}
	i, j := low, high
	pivot := rows[int(uint(low+high)>>1)]
	for i <= j {
		for s.Compare(rows[i], pivot) < 0 {
			i++
		}
		for s.Compare(rows[j], pivot) > 0 {
			j--
		}
		if i <= j {
			rows[i], rows[j] = rows[j], rows[i]
			i++
			j--
		}
	}
	if low < j && start <= j {
		s.partialQuickSort(rows, low, j, start, end)
	}
	if i < high && i <= end {
		s.partialQuickSort(rows, i, high, start, end)
	}
}
