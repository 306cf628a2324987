package store

import (
	log "github.com/sirupsen/logrus"

	"github.com/skiffdb/skiff/common"
	"github.com/skiffdb/skiff/errors"
	"github.com/skiffdb/skiff/failinject"
	"github.com/skiffdb/skiff/kv"
	"github.com/skiffdb/skiff/metrics"
	"github.com/skiffdb/skiff/result"
)

// TempStore is the external row store results spill into. Rows live in an
// ordered KV under a per-store key prefix, so iteration order is decided
// entirely by key layout:
//
//	append:          prefix | seq
//	sorted:          prefix | sort key | seq
//	distinct:        prefix | fingerprint
//	sorted distinct: prefix | sort key | fingerprint
//
// The sort key is the memcomparable encoding of the directive columns, so a
// plain range scan yields directive order. The fingerprint is the encoding of
// the visible column prefix, so rows equal by visible value collide on the
// same key and deduplicate. In the non-distinct layouts a sequence number
// keeps duplicate rows apart and keeps them in insertion order.
type TempStore struct {
	kv                 kv.KV
	keyPrefix          []byte
	keyUpperBound      []byte
	colTypes           []common.ColumnType
	visibleColumnCount int
	distinct           bool
	sortOrder          *common.SortOrder
	rowsSpilled        metrics.Counter
	spillFailpoint     failinject.Failpoint
	releaseFailpoint   failinject.Failpoint
	seq                uint64
	rowCount           int
	iter               kv.Iterator
	writesDone         bool
	closed             bool
	released           bool
	root               *TempStore
	childCount         int
}

var _ result.RowStore = &TempStore{}

// NewTempStore creates a row store over kvStore, owning the key range prefixed
// by storeID. distinct selects the deduplicating layout; a non-nil sortOrder
// selects a sorted layout. rowsSpilled is bumped once per row written.
func NewTempStore(kvStore kv.KV, storeID uint64, columns []common.ColumnInfo, visibleColumnCount int,
	distinct bool, sortOrder *common.SortOrder, rowsSpilled metrics.Counter, injector failinject.Injector) *TempStore {
	keyPrefix := common.AppendUint64ToBufferBE(nil, storeID)
	return &TempStore{
		kv:                 kvStore,
		keyPrefix:          keyPrefix,
		keyUpperBound:      common.IncrementBytesBigEndian(keyPrefix),
		colTypes:           common.ColumnTypesFromInfos(columns),
		visibleColumnCount: visibleColumnCount,
		distinct:           distinct,
		sortOrder:          sortOrder,
		rowsSpilled:        rowsSpilled,
		spillFailpoint:     injector.GetFailpoint(failinject.SpillWrite),
		releaseFailpoint:   injector.GetFailpoint(failinject.ReleaseStorage),
	}
}

func (s *TempStore) AddRow(row common.Row) (int, error) {
	if err := s.writable(); err != nil {
		return 0, err
	}
	if err := s.spillFailpoint.CheckFail(); err != nil {
		return 0, err
	}
	key, err := s.writeKey(row)
	if err != nil {
		return 0, err
	}
	if s.distinct {
		existing, err := s.kv.Get(key)
		if err != nil {
			return 0, err
		}
		if existing != nil {
			return s.rowCount, nil
		}
	}
	value, err := common.EncodeRow(row, s.colTypes, nil)
	if err != nil {
		return 0, err
	}
	if err := s.kv.Put(key, value); err != nil {
		return 0, err
	}
	s.rowCount++
	s.rowsSpilled.Inc()
	return s.rowCount, nil
}

// AddRows writes a batch of rows in one KV write. Nothing is written if any
// row fails to encode, so a failed call leaves the store unchanged.
func (s *TempStore) AddRows(rows []common.Row) (int, error) {
	if err := s.writable(); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return s.rowCount, nil
	}
	if err := s.spillFailpoint.CheckFail(); err != nil {
		return 0, err
	}
	puts := make([]kv.KVPair, 0, len(rows))
	var batchKeys map[string]bool
	if s.distinct {
		batchKeys = make(map[string]bool, len(rows))
	}
	for _, row := range rows {
		key, err := s.writeKey(row)
		if err != nil {
			return 0, err
		}
		if s.distinct {
			// Rows can collide both with the store and within the batch
			keyStr := common.ByteSliceToStringZeroCopy(key)
			if batchKeys[keyStr] {
				continue
			}
			existing, err := s.kv.Get(key)
			if err != nil {
				return 0, err
			}
			if existing != nil {
				continue
			}
			batchKeys[keyStr] = true
		}
		value, err := common.EncodeRow(row, s.colTypes, nil)
		if err != nil {
			return 0, err
		}
		puts = append(puts, kv.KVPair{Key: key, Value: value})
	}
	if len(puts) == 0 {
		return s.rowCount, nil
	}
	if err := s.kv.WriteBatch(puts); err != nil {
		return 0, err
	}
	s.rowCount += len(puts)
	s.rowsSpilled.Add(float64(len(puts)))
	return s.rowCount, nil
}

// Next returns the next row in key order, nil at the end. The first call after
// construction or Reset starts a fresh scan, which sees the rows present at
// that point.
func (s *TempStore) Next() (*common.Row, error) {
	if s.closed {
		return nil, errors.NewStoreClosedError()
	}
	if s.iter == nil {
		iter, err := s.kv.NewIterator(s.keyPrefix, s.keyUpperBound)
		if err != nil {
			return nil, err
		}
		s.iter = iter
		s.iter.First()
	} else {
		s.iter.Next()
	}
	if !s.iter.Valid() {
		return nil, nil
	}
	// The iterator owns its buffers, the row must not
	value := common.CopyByteSlice(s.iter.Value())
	row, err := common.DecodeRow(value, s.colTypes)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *TempStore) Reset() error {
	if s.closed {
		return errors.NewStoreClosedError()
	}
	if s.iter != nil {
		err := s.iter.Close()
		s.iter = nil
		if err != nil {
			return err
		}
	}
	return nil
}

// Contains returns true if the store holds a row whose visible columns equal
// row's. Distinct layouts answer with a single key lookup; the others scan,
// bounded to the matching sort key range when there is one.
func (s *TempStore) Contains(row common.Row) (bool, error) {
	if s.closed {
		return false, errors.NewStoreClosedError()
	}
	if s.distinct {
		key, err := s.dedupKey(row)
		if err != nil {
			return false, err
		}
		existing, err := s.kv.Get(key)
		if err != nil {
			return false, err
		}
		return existing != nil, nil
	}
	lower, upper := s.keyPrefix, s.keyUpperBound
	if s.sortOrder != nil {
		// Only rows sharing the probe's sort key can match
		sortKey, err := s.keyBase(row)
		if err != nil {
			return false, err
		}
		lower, upper = sortKey, common.IncrementBytesBigEndian(sortKey)
	}
	iter, err := s.kv.NewIterator(lower, upper)
	if err != nil {
		return false, err
	}
	defer common.InvokeCloser(iter)
	probe := row.TrimColumns(s.visibleColumnCount)
	for found := iter.First(); found; found = iter.Next() {
		candidate, err := common.DecodeRow(iter.Value(), s.colTypes)
		if err != nil {
			return false, err
		}
		if candidate.TrimColumns(s.visibleColumnCount).Equal(probe) {
			return true, nil
		}
	}
	return false, nil
}

// RemoveRow removes the row with the same visible column values if present and
// returns the new total row count. Only distinct layouts support removal.
func (s *TempStore) RemoveRow(row common.Row) (int, error) {
	if s.closed {
		return 0, errors.NewStoreClosedError()
	}
	if !s.distinct {
		return 0, errors.NewInternalError("removeRow on a non-distinct row store")
	}
	key, err := s.dedupKey(row)
	if err != nil {
		return 0, err
	}
	existing, err := s.kv.Get(key)
	if err != nil {
		return 0, err
	}
	if existing == nil {
		return s.rowCount, nil
	}
	if err := s.kv.Delete(key); err != nil {
		return 0, err
	}
	s.rowCount--
	return s.rowCount, nil
}

// Done marks the store read only. Further writes fail with a precondition
// violation.
func (s *TempStore) Done() error {
	if s.closed {
		return errors.NewStoreClosedError()
	}
	s.writesDone = true
	return nil
}

// Close releases this handle. The key range is deleted once the root handle
// and all shallow copies are closed. Safe to call more than once.
func (s *TempStore) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.iter != nil {
		err := s.iter.Close()
		s.iter = nil
		if err != nil {
			return err
		}
	}
	if s.root != nil {
		s.root.childCount--
		return s.root.maybeReleaseStorage()
	}
	return s.maybeReleaseStorage()
}

func (s *TempStore) maybeReleaseStorage() error {
	if !s.closed || s.childCount > 0 || s.released {
		return nil
	}
	if err := s.releaseFailpoint.CheckFail(); err != nil {
		return err
	}
	s.released = true
	storeID, _ := common.ReadUint64FromBufferBE(s.keyPrefix, 0)
	log.Debugf("releasing key range of temp store %d", storeID)
	return s.kv.DeleteRange(s.keyPrefix, s.keyUpperBound)
}

// CreateShallowCopy returns a read-only handle sharing this store's rows, with
// its own cursor. The rows stay live until the root and every copy are closed.
// Copies can only be taken from the root handle and only while it is open.
func (s *TempStore) CreateShallowCopy() result.RowStore {
	if s.root != nil || s.closed {
		return nil
	}
	s.childCount++
	return &TempStore{
		kv:                 s.kv,
		keyPrefix:          s.keyPrefix,
		keyUpperBound:      s.keyUpperBound,
		colTypes:           s.colTypes,
		visibleColumnCount: s.visibleColumnCount,
		distinct:           s.distinct,
		sortOrder:          s.sortOrder,
		rowsSpilled:        s.rowsSpilled,
		spillFailpoint:     s.spillFailpoint,
		releaseFailpoint:   s.releaseFailpoint,
		rowCount:           s.rowCount,
		writesDone:         true,
		root:               s,
	}
}

// RowCount returns the number of rows currently in the store.
func (s *TempStore) RowCount() int {
	return s.rowCount
}

func (s *TempStore) writable() error {
	if s.closed {
		return errors.NewStoreClosedError()
	}
	if s.writesDone {
		return errors.NewPreconditionViolationError("row store is done, no further writes allowed")
	}
	return nil
}

// writeKey builds the KV key a new row is stored under. In the non-distinct
// layouts each call consumes a sequence number.
func (s *TempStore) writeKey(row common.Row) ([]byte, error) {
	if s.distinct {
		return s.dedupKey(row)
	}
	key, err := s.keyBase(row)
	if err != nil {
		return nil, err
	}
	key = common.AppendUint64ToBufferBE(key, s.seq)
	s.seq++
	return key, nil
}

// dedupKey builds the key a row's visible values map to. Equal rows always
// yield equal keys, so it also serves point lookups.
func (s *TempStore) dedupKey(row common.Row) ([]byte, error) {
	key, err := s.keyBase(row)
	if err != nil {
		return nil, err
	}
	visible := row.TrimColumns(s.visibleColumnCount)
	return common.EncodeRow(visible, s.colTypes[:s.visibleColumnCount], key)
}

func (s *TempStore) keyBase(row common.Row) ([]byte, error) {
	key := make([]byte, 0, len(s.keyPrefix)+32)
	key = append(key, s.keyPrefix...)
	if s.sortOrder == nil {
		return key, nil
	}
	return common.EncodeSortKeyCols(row, s.sortOrder.Columns(), s.colTypes, key)
}
