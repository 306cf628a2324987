package kv

import (
	"bytes"
	"sync"

	"github.com/google/btree"
)

// MemoryKV is a btree backed KV used when the engine has no persistent
// storage. Row stores behave identically over it and over the disk backed
// implementation, so non-persistent engines and tests share all the same
// spill machinery.
type MemoryKV struct {
	mu    sync.RWMutex
	btree *btree.BTree
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{btree: btree.New(3)}
}

type kvWrapper struct {
	key   []byte
	value []byte
}

func (k kvWrapper) Less(than btree.Item) bool {
	otherKVwrapper := than.(*kvWrapper) // nolint: forcetypeassert
	return bytes.Compare(k.key, otherKVwrapper.key) < 0
}

func (m *MemoryKV) Put(key []byte, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.btree.ReplaceOrInsert(&kvWrapper{key: key, value: value})
	return nil
}

func (m *MemoryKV) WriteBatch(puts []KVPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, kvPair := range puts {
		m.btree.ReplaceOrInsert(&kvWrapper{key: kvPair.Key, value: kvPair.Value})
	}
	return nil
}

func (m *MemoryKV) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if item := m.btree.Get(&kvWrapper{key: key}); item != nil {
		wrapper := item.(*kvWrapper) // nolint: forcetypeassert
		return wrapper.value, nil
	}
	return nil, nil
}

func (m *MemoryKV) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.btree.Delete(&kvWrapper{key: key})
	return nil
}

func (m *MemoryKV) DeleteRange(start []byte, end []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Collect first - the tree must not be mutated mid ascent
	var doomed []*kvWrapper
	m.btree.AscendGreaterOrEqual(&kvWrapper{key: start}, func(i btree.Item) bool {
		wrapper := i.(*kvWrapper) // nolint: forcetypeassert
		if bytes.Compare(wrapper.key, end) >= 0 {
			return false
		}
		doomed = append(doomed, wrapper)
		return true
	})
	for _, wrapper := range doomed {
		m.btree.Delete(wrapper)
	}
	return nil
}

func (m *MemoryKV) NewIterator(lowerBound []byte, upperBound []byte) (Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// Snapshot the range so the iterator is unaffected by later writes, same
	// as an iterator over the disk backed implementation
	var pairs []KVPair
	m.btree.AscendGreaterOrEqual(&kvWrapper{key: lowerBound}, func(i btree.Item) bool {
		wrapper := i.(*kvWrapper) // nolint: forcetypeassert
		if upperBound != nil && bytes.Compare(wrapper.key, upperBound) >= 0 {
			return false
		}
		pairs = append(pairs, KVPair{Key: wrapper.key, Value: wrapper.value})
		return true
	})
	return &memoryIterator{pairs: pairs, pos: -1}, nil
}

func (m *MemoryKV) Close() error {
	return nil
}

type memoryIterator struct {
	pairs []KVPair
	pos   int
}

func (m *memoryIterator) First() bool {
	m.pos = 0
	return m.Valid()
}

func (m *memoryIterator) Next() bool {
	m.pos++
	return m.Valid()
}

func (m *memoryIterator) Valid() bool {
	return m.pos >= 0 && m.pos < len(m.pairs)
}

func (m *memoryIterator) Key() []byte {
	return m.pairs[m.pos].Key
}

func (m *memoryIterator) Value() []byte {
	return m.pairs[m.pos].Value
}

func (m *memoryIterator) Close() error {
	return nil
}
