package kv

// KVPair is a key and its value.
type KVPair struct {
	Key   []byte
	Value []byte
}

// KV is the low level ordered key-value store rows are spilled into. Keys
// iterate in ascending byte order. One KV instance backs many row stores,
// each store owning a distinct key prefix.
type KV interface {
	// Put stores value under key, overwriting any existing value.
	Put(key []byte, value []byte) error

	// WriteBatch applies all the puts in one write.
	WriteBatch(puts []KVPair) error

	// Get returns the value stored under key, or nil if there is none.
	Get(key []byte) ([]byte, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key []byte) error

	// DeleteRange removes all keys in [start, end).
	DeleteRange(start []byte, end []byte) error

	// NewIterator iterates over keys in [lowerBound, upperBound) in ascending
	// byte order. The iterator sees the store as it was at creation.
	NewIterator(lowerBound []byte, upperBound []byte) (Iterator, error)

	Close() error
}

// Iterator walks keys in ascending byte order. Key and Value are only valid
// until the iterator advances - callers that retain them must copy.
type Iterator interface {
	First() bool
	Next() bool
	Valid() bool
	Key() []byte
	Value() []byte
	Close() error
}
