package result

import (
	"fmt"
	"math"

	"github.com/cznic/mathutil"
	log "github.com/sirupsen/logrus"

	"github.com/skiffdb/skiff/common"
	"github.com/skiffdb/skiff/errors"
)

// accumulatorState tags which structure currently owns the rows. Tracking the
// phase explicitly rules out illegal combinations such as a populated
// fingerprint index alongside a live external store.
type accumulatorState int

const (
	// stateBuffering: rows sit in the in-memory buffer in insertion order.
	stateBuffering accumulatorState = iota
	// stateIndexed: the fingerprint index is live. In distinct mode it is the
	// row source, under SetRandomAccess it is a probe cache over the buffer.
	stateIndexed
	// stateSpilled: the external store is the row source, the buffer only
	// stages rows between bulk transfers.
	stateSpilled
	// stateFinalized: Done has run, the window is applied and the cursor is
	// serving rows.
	stateFinalized
)

// Accumulator collects the rows produced by query evaluation and serves them
// back through a forward only cursor. It holds rows in memory up to the
// session's budget and transparently spills to an external row store beyond
// that; the caller sees the same behavior either way.
//
// Usage is one evaluator pushing rows with AddRow, one call to Done, then one
// consumer driving Reset/Next/CurrentRow until Close. An accumulator is not
// safe for concurrent use.
type Accumulator struct {
	sess               Session
	columns            []common.ColumnInfo
	colTypes           []common.ColumnType
	visibleColumnCount int
	maxMemoryRows      int
	state              accumulatorState
	rows               []common.Row
	distinctRows       *distinctIndex
	sort               *common.SortOrder
	external           RowStore
	currentRow         *common.Row
	rowID              int
	rowCount           int
	offset             int
	limit              int
	diskOffset         int
	distinct           bool
	randomAccess       bool
	closed             bool
	added              bool
}

var (
	_ Result = &Accumulator{}
	_ Target = &Accumulator{}
)

// NewAccumulator creates an empty accumulator for rows shaped by columns, of
// which the first visibleColumnCount are exposed to the consumer (rows may
// carry extra trailing columns used internally, e.g. sort keys outside the
// projection). sess decides the memory budget and provides external stores on
// spill; a nil sess means an unbounded budget and no spilling.
func NewAccumulator(sess Session, columns []common.ColumnInfo, visibleColumnCount int) *Accumulator {
	maxMemoryRows := math.MaxInt32
	if sess != nil {
		maxMemoryRows = sess.MaxMemoryRows()
	}
	return &Accumulator{
		sess:               sess,
		columns:            columns,
		colTypes:           common.ColumnTypesFromInfos(columns),
		visibleColumnCount: visibleColumnCount,
		maxMemoryRows:      maxMemoryRows,
		state:              stateBuffering,
		rows:               make([]common.Row, 0),
		rowID:              -1,
		limit:              -1,
	}
}

// SetSortOrder sets the ordering applied at Done. Must be called before any
// row is added.
func (a *Accumulator) SetSortOrder(sort *common.SortOrder) error {
	if err := a.configurable("SetSortOrder"); err != nil {
		return err
	}
	a.sort = sort
	return nil
}

// SetDistinct enables removal of duplicate rows. Must be called before any row
// is added.
func (a *Accumulator) SetDistinct() error {
	if err := a.configurable("SetDistinct"); err != nil {
		return err
	}
	a.distinct = true
	a.distinctRows = newDistinctIndex()
	a.state = stateIndexed
	return nil
}

// SetRandomAccess declares that the result will be probed with
// ContainsDistinct. Must be called before any row is added.
func (a *Accumulator) SetRandomAccess() error {
	if err := a.configurable("SetRandomAccess"); err != nil {
		return err
	}
	a.randomAccess = true
	return nil
}

// SetOffset sets the number of leading rows dropped at Done. Must be called
// before any row is added.
func (a *Accumulator) SetOffset(offset int) error {
	if err := a.configurable("SetOffset"); err != nil {
		return err
	}
	a.offset = offset
	return nil
}

// SetLimit caps the number of rows the result returns. -1 means no limit, 0
// means no rows. Must be called before any row is added.
func (a *Accumulator) SetLimit(limit int) error {
	if err := a.configurable("SetLimit"); err != nil {
		return err
	}
	a.limit = limit
	return nil
}

// SetMaxMemoryRows overrides the session's memory budget. Must be called
// before any row is added.
func (a *Accumulator) SetMaxMemoryRows(maxMemoryRows int) error {
	if err := a.configurable("SetMaxMemoryRows"); err != nil {
		return err
	}
	a.maxMemoryRows = maxMemoryRows
	return nil
}

func (a *Accumulator) configurable(op string) error {
	if a.added {
		return errors.NewPreconditionViolationError(fmt.Sprintf("%s must be called before any row is added", op))
	}
	return nil
}

// AddRow appends row to the result. In distinct mode a row whose visible
// columns equal those of an already held row leaves the count unchanged.
func (a *Accumulator) AddRow(row common.Row) error {
	if a.state == stateFinalized {
		return errors.NewPreconditionViolationError("AddRow called after Done")
	}
	a.added = true
	if a.distinct {
		return a.addRowDistinct(row)
	}
	a.rows = append(a.rows, row)
	a.rowCount++
	if len(a.rows) > a.maxMemoryRows {
		return a.spillBuffer()
	}
	return nil
}

func (a *Accumulator) addRowDistinct(row common.Row) error {
	if a.state == stateSpilled {
		count, err := a.external.AddRow(row)
		if err != nil {
			return err
		}
		a.rowCount = count
		return nil
	}
	fingerprint, err := a.fingerprint(row)
	if err != nil {
		return err
	}
	a.distinctRows.put(fingerprint, row)
	a.rowCount = a.distinctRows.size()
	if a.rowCount > a.maxMemoryRows {
		return a.spillIndex()
	}
	return nil
}

// spillIndex moves a distinct result into a store that dedups and keeps
// directive order on insert, then routes all further additions through it. If
// the transfer fails the index stays authoritative and the store is released
// again.
func (a *Accumulator) spillIndex() error {
	log.Debugf("distinct result exceeded budget of %d rows, spilling", a.maxMemoryRows)
	external, err := a.sess.CreateRowStore(a.columns, a.visibleColumnCount, true, a.sort)
	if err != nil {
		return err
	}
	count, err := external.AddRows(a.distinctRows.rows())
	if err != nil {
		if closeErr := external.Close(); closeErr != nil {
			log.Errorf("failed to close row store after failed spill %+v", closeErr)
		}
		return err
	}
	a.external = external
	a.rowCount = count
	a.distinctRows = nil
	a.state = stateSpilled
	return nil
}

// spillBuffer transfers the buffer into the external store, creating it in
// append mode on the first overflow. The store is kept across overflows; a
// failed transfer leaves the buffer untouched and the next overflow retries
// with the full buffer.
func (a *Accumulator) spillBuffer() error {
	if a.state != stateSpilled {
		log.Debugf("result exceeded budget of %d rows, spilling", a.maxMemoryRows)
		external, err := a.sess.CreateRowStore(a.columns, a.visibleColumnCount, false, a.sort)
		if err != nil {
			return err
		}
		a.external = external
		// A probe cache built before the spill would go stale
		a.distinctRows = nil
		a.state = stateSpilled
	}
	return a.addRowsToDisk()
}

// addRowsToDisk bulk transfers the in-memory buffer into the external store.
// On failure the buffer is left untouched so no rows are lost.
func (a *Accumulator) addRowsToDisk() error {
	count, err := a.external.AddRows(a.rows)
	if err != nil {
		return err
	}
	a.rowCount = count
	a.rows = a.rows[:0]
	return nil
}

// ContainsDistinct returns true if the result holds a row whose visible
// columns equal those of row. On an in-memory result this lazily builds a
// fingerprint index over the current buffer; rows added after the first probe
// are not seen by later probes.
func (a *Accumulator) ContainsDistinct(row common.Row) (bool, error) {
	if a.state == stateSpilled || (a.state == stateFinalized && a.external != nil) {
		return a.external.Contains(row)
	}
	if a.distinctRows == nil {
		a.distinctRows = newDistinctIndex()
		for _, r := range a.rows {
			fingerprint, err := a.fingerprint(r)
			if err != nil {
				return false, err
			}
			a.distinctRows.put(fingerprint, r.TrimColumns(a.visibleColumnCount))
		}
		if a.state == stateBuffering {
			a.state = stateIndexed
		}
	}
	fingerprint, err := a.fingerprint(row)
	if err != nil {
		return false, err
	}
	_, ok := a.distinctRows.get(fingerprint)
	return ok, nil
}

// RemoveDistinct removes the row with the same visible column values if it
// exists. The result must be in distinct mode, and rows can only be removed
// before Done.
func (a *Accumulator) RemoveDistinct(row common.Row) error {
	if !a.distinct {
		return errors.NewPreconditionViolationError("RemoveDistinct called on a result that is not distinct")
	}
	if a.state == stateIndexed {
		fingerprint, err := a.fingerprint(row)
		if err != nil {
			return err
		}
		a.distinctRows.remove(fingerprint)
		a.rowCount = a.distinctRows.size()
		return nil
	}
	if a.external != nil {
		count, err := a.external.RemoveRow(row)
		if err != nil {
			return err
		}
		a.rowCount = count
		return nil
	}
	return errors.NewPreconditionViolationError("RemoveDistinct called after Done")
}

func (a *Accumulator) fingerprint(row common.Row) (string, error) {
	return rowFingerprint(row, a.colTypes, a.visibleColumnCount)
}

// Done is called once after the last row has been added. It reconciles
// in-memory and external data, applies sort, offset and limit, and leaves the
// cursor before the first row.
func (a *Accumulator) Done() error {
	if a.state == stateFinalized {
		return errors.NewPreconditionViolationError("Done called more than once")
	}
	if a.distinct {
		if a.state == stateIndexed {
			a.rows = a.distinctRows.rows()
			a.distinctRows = nil
			a.state = stateBuffering
		} else if a.state == stateSpilled && a.sort != nil {
			if err := a.resortExternal(); err != nil {
				return err
			}
		}
	}
	if a.state == stateSpilled {
		if err := a.addRowsToDisk(); err != nil {
			return err
		}
		if err := a.external.Done(); err != nil {
			return err
		}
	} else if a.sort != nil {
		if a.offset > 0 || a.limit > 0 {
			limit := a.limit
			if limit < 0 {
				limit = len(a.rows)
			}
			a.sort.SortWindow(a.rows, a.offset, limit)
		} else {
			a.sort.Sort(a.rows)
		}
	}
	a.applyOffset()
	a.applyLimit()
	a.state = stateFinalized
	return a.Reset()
}

// resortExternal drains a spilled distinct result into a fresh store carrying
// the sort directive, re-inserting every surviving row. The original store is
// closed once drained.
func (a *Accumulator) resortExternal() error {
	log.Debugf("re-sorting spilled distinct result")
	temp := a.external
	a.external = nil
	if err := temp.Reset(); err != nil {
		return err
	}
	a.rows = a.rows[:0]
	for {
		row, err := temp.Next()
		if err != nil {
			return err
		}
		if row == nil {
			break
		}
		if a.external == nil {
			external, err := a.sess.CreateRowStore(a.columns, a.visibleColumnCount, true, a.sort)
			if err != nil {
				return err
			}
			a.external = external
		}
		a.rows = append(a.rows, *row)
		if len(a.rows) > a.maxMemoryRows {
			if err := a.addRowsToDisk(); err != nil {
				return err
			}
		}
	}
	if a.external == nil {
		// Every row was removed again before Done, nothing left to re-sort
		a.state = stateBuffering
	}
	// Rows still buffered are flushed by the caller
	return temp.Close()
}

func (a *Accumulator) applyOffset() {
	if a.offset <= 0 {
		return
	}
	if a.state == stateSpilled {
		if a.offset >= a.rowCount {
			a.rowCount = 0
		} else {
			// The store is never truncated, the cursor skips instead
			a.diskOffset = a.offset
			a.rowCount -= a.offset
		}
	} else {
		if a.offset >= len(a.rows) {
			a.rows = a.rows[:0]
			a.rowCount = 0
		} else {
			remove := mathutil.Min(a.offset, len(a.rows))
			a.rows = a.rows[remove:]
			a.rowCount -= remove
		}
	}
}

func (a *Accumulator) applyLimit() {
	if a.limit < 0 {
		return
	}
	if a.state == stateSpilled {
		if a.limit < a.rowCount {
			a.rowCount = a.limit
		}
	} else if len(a.rows) > a.limit {
		a.rows = a.rows[:a.limit]
		a.rowCount = a.limit
	}
}

// Reset rewinds the cursor to before the first row.
func (a *Accumulator) Reset() error {
	a.rowID = -1
	a.currentRow = nil
	if a.external != nil {
		if err := a.external.Reset(); err != nil {
			return err
		}
		for i := 0; i < a.diskOffset; i++ {
			if _, err := a.external.Next(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Next advances the cursor and returns true if it is now positioned on a row.
// After the last row, and on a closed result, it returns false.
func (a *Accumulator) Next() (bool, error) {
	if !a.closed && a.rowID < a.rowCount {
		a.rowID++
		if a.rowID < a.rowCount {
			if a.external != nil {
				row, err := a.external.Next()
				if err != nil {
					return false, err
				}
				a.currentRow = row
			} else {
				a.currentRow = &a.rows[a.rowID]
			}
			return true, nil
		}
		a.currentRow = nil
	}
	return false, nil
}

// CurrentRow returns the row the cursor is positioned on, or nil.
func (a *Accumulator) CurrentRow() *common.Row {
	return a.currentRow
}

// RowID returns the cursor's logical position, -1 before the first row.
func (a *Accumulator) RowID() int {
	return a.rowID
}

func (a *Accumulator) RowCount() int {
	return a.rowCount
}

func (a *Accumulator) VisibleColumnCount() int {
	return a.visibleColumnCount
}

// NeedsClose reports whether the result holds an external store that must be
// released with Close.
func (a *Accumulator) NeedsClose() bool {
	return a.external != nil
}

// Close releases the external store if one exists. Safe to call more than
// once. An in-memory result stays iterable after Close; its rows are released
// with the object.
func (a *Accumulator) Close() error {
	a.currentRow = nil
	if a.external == nil {
		return nil
	}
	err := a.external.Close()
	a.external = nil
	a.closed = true
	return err
}

func (a *Accumulator) IsClosed() bool {
	return a.closed
}

// CreateShallowCopy returns a second accumulator sharing this one's row data,
// owned by targetSession, with a fresh cursor, no offset and no limit. It
// returns nil if the rows are partially in memory and partially external, or
// if the external store declines to be shared.
func (a *Accumulator) CreateShallowCopy(targetSession Session) *Accumulator {
	if a.external == nil && len(a.rows) < a.rowCount {
		return nil
	}
	if a.external != nil && len(a.rows) > 0 {
		// Rows pending transfer would be invisible to the copy's cursor
		return nil
	}
	var external RowStore
	if a.external != nil {
		external = a.external.CreateShallowCopy()
		if external == nil {
			return nil
		}
	}
	return &Accumulator{
		sess:               targetSession,
		columns:            a.columns,
		colTypes:           a.colTypes,
		visibleColumnCount: a.visibleColumnCount,
		maxMemoryRows:      a.maxMemoryRows,
		state:              a.state,
		rows:               a.rows,
		distinctRows:       a.distinctRows,
		sort:               a.sort,
		external:           external,
		rowID:              -1,
		rowCount:           a.rowCount,
		offset:             0,
		limit:              -1,
		diskOffset:         a.diskOffset,
		distinct:           a.distinct,
		randomAccess:       a.randomAccess,
		added:              a.added,
	}
}

func (a *Accumulator) String() string {
	return fmt.Sprintf("result columns: %d rows: %d pos: %d", a.visibleColumnCount, a.rowCount, a.rowID)
}

// Per-column metadata, passed through from the producing expression list.

func (a *Accumulator) Alias(i int) string {
	return a.columns[i].Alias
}

func (a *Accumulator) TableName(i int) string {
	return a.columns[i].TableName
}

func (a *Accumulator) SchemaName(i int) string {
	return a.columns[i].SchemaName
}

func (a *Accumulator) DisplaySize(i int) int {
	return a.columns[i].DisplaySize
}

func (a *Accumulator) ColumnName(i int) string {
	return a.columns[i].Name
}

func (a *Accumulator) ColumnType(i int) common.ColumnType {
	return a.columns[i].ColumnType
}

func (a *Accumulator) ColumnPrecision(i int) int64 {
	return a.columns[i].Precision
}

func (a *Accumulator) Nullable(i int) common.Nullability {
	return a.columns[i].Nullable
}

func (a *Accumulator) IsAutoIncrement(i int) bool {
	return a.columns[i].AutoIncrement
}

func (a *Accumulator) ColumnScale(i int) int {
	return a.columns[i].Scale
}
