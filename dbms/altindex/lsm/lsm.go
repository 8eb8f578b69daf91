// Package lsm is a Pebble-backed comparison index for cmd/dbbench: it
// satisfies dbms/bench.Index over the same int64-key/row-value shape as
// dbms/btree and dbms/altindex/btree, so the benchmark harness can run
// the identical workload against all three storage strategies.
package lsm

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"github.com/relicdb/storedb/dbms/bench"
)

// Index wraps a Pebble LSM tree.
type Index struct {
	db *pebble.DB
}

// Open opens (or creates) a Pebble database at dir.
func Open(dir string) (*Index, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "lsm: open")
	}
	return &Index{db: db}, nil
}

func encodeKey(key int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(key))
	return buf
}

func decodeKey(buf []byte) int64 {
	return int64(binary.BigEndian.Uint64(buf))
}

// Insert writes key/value, overwriting any existing value for key.
func (ix *Index) Insert(key int64, value []byte) error {
	if err := ix.db.Set(encodeKey(key), value, pebble.Sync); err != nil {
		return errors.Wrapf(err, "lsm: insert %d", key)
	}
	return nil
}

// Get returns the value stored for key, or pebble.ErrNotFound.
func (ix *Index) Get(key int64) ([]byte, error) {
	v, closer, err := ix.db.Get(encodeKey(key))
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), v...)
	closer.Close()
	return out, nil
}

// Delete removes key, if present.
func (ix *Index) Delete(key int64) error {
	if err := ix.db.Delete(encodeKey(key), pebble.Sync); err != nil {
		return errors.Wrapf(err, "lsm: delete %d", key)
	}
	return nil
}

// Range returns an iterator over [start, end], matching the inclusive
// upper bound dbms/altindex/btree and dbms/bench.PrimaryIndex use.
func (ix *Index) Range(start, end int64) (*RangeIterator, error) {
	it, err := ix.db.NewIter(&pebble.IterOptions{
		LowerBound: encodeKey(start),
		UpperBound: encodeKey(end + 1),
	})
	if err != nil {
		return nil, errors.Wrap(err, "lsm: range")
	}
	return &RangeIterator{it: it, started: false}, nil
}

// Close closes the underlying Pebble database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

var _ bench.Index = (*indexAdapter)(nil)

// indexAdapter satisfies bench.Index's Range signature, which returns
// bench.Iterator rather than *RangeIterator directly.
type indexAdapter struct{ *Index }

func (a indexAdapter) Range(start, end int64) (bench.Iterator, error) {
	return a.Index.Range(start, end)
}

// AsIndex adapts ix to bench.Index.
func AsIndex(ix *Index) bench.Index { return indexAdapter{ix} }

// RangeIterator walks the key-value pairs of one Range call in
// ascending key order.
type RangeIterator struct {
	it      *pebble.Iterator
	started bool
}

// Next advances the iterator and reports whether a pair is available.
func (r *RangeIterator) Next() bool {
	if !r.started {
		r.started = true
		return r.it.First()
	}
	return r.it.Next()
}

// Key returns the current pair's key. Valid only after Next returns true.
func (r *RangeIterator) Key() int64 {
	return decodeKey(r.it.Key())
}

// Value returns the current pair's value. Valid only after Next returns true.
func (r *RangeIterator) Value() []byte {
	return append([]byte(nil), r.it.Value()...)
}

// Error reports any error encountered during iteration.
func (r *RangeIterator) Error() error {
	return r.it.Error()
}

// Close releases the iterator.
func (r *RangeIterator) Close() error {
	return r.it.Close()
}
