package sess

import (
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/skiffdb/skiff/common"
	"github.com/skiffdb/skiff/errors"
	"github.com/skiffdb/skiff/failinject"
	"github.com/skiffdb/skiff/kv"
	"github.com/skiffdb/skiff/metrics"
	"github.com/skiffdb/skiff/result"
	"github.com/skiffdb/skiff/store"
)

// Session is a client's context for building results. There will typically be
// one session for the duration of a client's connection with the engine. The
// session decides the memory budget results get and hands out the temp stores
// they spill into; any stores still open when the session closes are closed
// with it.
type Session struct {
	ID            string
	kv            kv.KV
	maxMemoryRows int
	storeSeq      *uint64
	storesCreated metrics.Counter
	rowsSpilled   metrics.Counter
	injector      failinject.Injector
	lock          sync.Mutex
	stores        []*store.TempStore
	closed        bool
}

var _ result.Session = &Session{}

// NewSession creates a session. storeSeq is the engine wide store ID sequence,
// shared so stores of different sessions never collide on a key prefix.
func NewSession(id string, kvStore kv.KV, maxMemoryRows int, storeSeq *uint64,
	storesCreated metrics.Counter, rowsSpilled metrics.Counter, injector failinject.Injector) *Session {
	return &Session{
		ID:            id,
		kv:            kvStore,
		maxMemoryRows: maxMemoryRows,
		storeSeq:      storeSeq,
		storesCreated: storesCreated,
		rowsSpilled:   rowsSpilled,
		injector:      injector,
	}
}

// MaxMemoryRows is the number of rows a result of this session holds in memory
// before spilling.
func (s *Session) MaxMemoryRows() int {
	return s.maxMemoryRows
}

// CreateAccumulator creates an empty result accumulator owned by this session.
func (s *Session) CreateAccumulator(columns []common.ColumnInfo, visibleColumnCount int) (*result.Accumulator, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return nil, errors.NewPreconditionViolationError("session is closed")
	}
	return result.NewAccumulator(s, columns, visibleColumnCount), nil
}

func (s *Session) CreateRowStore(columns []common.ColumnInfo, visibleColumnCount int, distinct bool, sortOrder *common.SortOrder) (result.RowStore, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return nil, errors.NewPreconditionViolationError("session is closed")
	}
	// Although sessions aren't accessed concurrently - they can be accessed at different times by different goroutines
	// and the sequence is engine wide, so it must be atomic
	storeID := atomic.AddUint64(s.storeSeq, 1)
	tempStore := store.NewTempStore(s.kv, storeID, columns, visibleColumnCount, distinct, sortOrder, s.rowsSpilled, s.injector)
	s.stores = append(s.stores, tempStore)
	s.storesCreated.Inc()
	log.Debugf("session %s created row store %d", s.ID, storeID)
	return tempStore, nil
}

// Close closes any stores the session handed out that results have not already
// closed themselves. Closing an already closed store is a no-op so results
// that cleaned up after themselves are unaffected.
func (s *Session) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var firstErr error
	for _, tempStore := range s.stores {
		if err := tempStore.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.stores = nil
	return firstErr
}

func (s *Session) IsClosed() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.closed
}
