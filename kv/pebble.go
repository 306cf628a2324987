package kv

import (
	"github.com/cockroachdb/pebble"

	"github.com/skiffdb/skiff/common"
	"github.com/skiffdb/skiff/errors"
)

// PebbleKV is the disk backed KV used when the engine is persistent. Spilled
// result data is transient so writes are not synced.
type PebbleKV struct {
	pebble *pebble.DB
}

var writeOptions = &pebble.WriteOptions{Sync: false}

func NewPebbleKV(dataDir string) (*PebbleKV, error) {
	pebbleOptions := &pebble.Options{}
	peb, err := pebble.Open(dataDir, pebbleOptions)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &PebbleKV{pebble: peb}, nil
}

func (p *PebbleKV) Put(key []byte, value []byte) error {
	return errors.WithStack(p.pebble.Set(key, value, writeOptions))
}

func (p *PebbleKV) WriteBatch(puts []KVPair) error {
	batch := p.pebble.NewBatch()
	for _, kvPair := range puts {
		if err := batch.Set(kvPair.Key, kvPair.Value, nil); err != nil {
			return errors.WithStack(err)
		}
	}
	return errors.WithStack(p.pebble.Apply(batch, writeOptions))
}

func (p *PebbleKV) Get(key []byte) ([]byte, error) {
	v, closer, err := p.pebble.Get(key)
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	// Pebble tends to reuse buffers so we have to copy before using the value elsewhere
	res := common.CopyByteSlice(v)
	if closer != nil {
		if err := closer.Close(); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	return res, nil
}

func (p *PebbleKV) Delete(key []byte) error {
	return errors.WithStack(p.pebble.Delete(key, writeOptions))
}

func (p *PebbleKV) DeleteRange(start []byte, end []byte) error {
	return errors.WithStack(p.pebble.DeleteRange(start, end, writeOptions))
}

func (p *PebbleKV) NewIterator(lowerBound []byte, upperBound []byte) (Iterator, error) {
	iter := p.pebble.NewIter(&pebble.IterOptions{
		LowerBound: lowerBound,
		UpperBound: upperBound,
	})
	return &pebbleIterator{iter: iter}, nil
}

func (p *PebbleKV) Close() error {
	return errors.WithStack(p.pebble.Close())
}

type pebbleIterator struct {
	iter *pebble.Iterator
}

func (p *pebbleIterator) First() bool {
	return p.iter.First()
}

func (p *pebbleIterator) Next() bool {
	return p.iter.Next()
}

func (p *pebbleIterator) Valid() bool {
	return p.iter.Valid()
}

func (p *pebbleIterator) Key() []byte {
	return p.iter.Key()
}

func (p *pebbleIterator) Value() []byte {
	return p.iter.Value()
}

func (p *pebbleIterator) Close() error {
	return errors.WithStack(p.iter.Close())
}
