package result

import (
	"github.com/skiffdb/skiff/common"
)

// Target is the write side of a result: the sink query evaluation pushes
// produced rows into. An operator that only emits rows takes a Target and
// stays unaware of buffering, dedup and spilling.
type Target interface {
	// AddRow appends one produced row.
	AddRow(row common.Row) error

	// RowCount returns the number of rows held so far.
	RowCount() int
}

// Result is the read side of a finalized result: a forward only cursor over
// the rows plus per column metadata, passed through from the producing
// expression list.
type Result interface {
	// Reset rewinds the cursor to before the first row.
	Reset() error

	// Next advances the cursor, returning true if it is now on a row.
	Next() (bool, error)

	// CurrentRow returns the row under the cursor, or nil.
	CurrentRow() *common.Row

	// RowID returns the cursor's logical position, -1 before the first row.
	RowID() int

	RowCount() int
	VisibleColumnCount() int

	// NeedsClose reports whether the result holds external storage that must
	// be released with Close.
	NeedsClose() bool
	Close() error
	IsClosed() bool

	Alias(i int) string
	TableName(i int) string
	SchemaName(i int) string
	DisplaySize(i int) int
	ColumnName(i int) string
	ColumnType(i int) common.ColumnType
	ColumnPrecision(i int) int64
	Nullable(i int) common.Nullability
	IsAutoIncrement(i int) bool
	ColumnScale(i int) int
}

// RowStore is the external row store results spill into once they outgrow
// their memory budget. Implementations are disk backed (or backed by whatever
// KV the engine was opened with); the accumulator only ever drives this
// surface.
//
// A store is created in one of two modes: append only, which preserves
// insertion order, or sorted and deduplicating, which maintains
// uniqueness-by-value and directive order across inserts.
type RowStore interface {
	// AddRow adds one row and returns the new total row count.
	AddRow(row common.Row) (int, error)

	// AddRows adds a batch of rows and returns the new total row count. Spill
	// transfers use this so the store can batch its writes.
	AddRows(rows []common.Row) (int, error)

	// Next returns the next row from the store's cursor, or nil at the end.
	Next() (*common.Row, error)

	// Reset rewinds the cursor to the start.
	Reset() error

	// Contains returns true if a row with the same visible column values is in
	// the store.
	Contains(row common.Row) (bool, error)

	// RemoveRow removes the row if present and returns the new total row count.
	RemoveRow(row common.Row) (int, error)

	// Done signals that no further writes will occur.
	Done() error

	// Close releases the store. Safe to call more than once.
	Close() error

	// CreateShallowCopy returns a second handle sharing this store's rows, or
	// nil if the store cannot guarantee the copy survives a close of the
	// original.
	CreateShallowCopy() RowStore
}

// Session is the owning context a result accumulator is created in. It decides
// the memory budget and constructs external row stores on spill.
type Session interface {
	// MaxMemoryRows is the number of rows a result may hold in memory before
	// it spills.
	MaxMemoryRows() int

	// CreateRowStore constructs an external row store for a spilling result.
	// distinct selects the sorted and deduplicating insertion mode; sortOrder
	// may be nil.
	CreateRowStore(columns []common.ColumnInfo, visibleColumnCount int, distinct bool, sortOrder *common.SortOrder) (RowStore, error)
}
