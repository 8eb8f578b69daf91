package bench

import (
	"github.com/relicdb/storedb/dbms/btree"
)

// PrimaryIndex adapts the table's own B+ tree to Index, so cmd/dbbench
// can run the same workload against it as against the comparison
// backends. Keys are truncated to uint32, matching the table schema's
// id column; values are expected to already be row.Size bytes.
type PrimaryIndex struct {
	Tree *btree.Tree
}

func (p PrimaryIndex) Insert(key int64, value []byte) error {
	return p.Tree.Insert(uint32(key), value)
}

func (p PrimaryIndex) Get(key int64) ([]byte, error) {
	cur, err := p.Tree.Find(uint32(key))
	if err != nil {
		return nil, err
	}
	if cur.End() {
		return nil, nil
	}
	k, err := cur.Key()
	if err != nil {
		return nil, err
	}
	if k != uint32(key) {
		return nil, nil
	}
	return cur.Value()
}

func (p PrimaryIndex) Range(start, end int64) (Iterator, error) {
	cur, err := p.Tree.Find(uint32(start))
	if err != nil {
		return nil, err
	}
	return &primaryIterator{cur: cur, end: uint32(end)}, nil
}

func (p PrimaryIndex) Close() error {
	return p.Tree.Close()
}

type primaryIterator struct {
	cur     *btree.Cursor
	end     uint32
	key     int64
	val     []byte
	err     error
	started bool
	done    bool
}

func (it *primaryIterator) Next() bool {
	if it.done {
		return false
	}
	if it.started {
		if err := it.cur.Advance(); err != nil {
			it.err = err
			return false
		}
	}
	it.started = true
	if it.cur.End() {
		it.done = true
		return false
	}
	k, err := it.cur.Key()
	if err != nil {
		it.err = err
		return false
	}
	if k > it.end {
		it.done = true
		return false
	}
	v, err := it.cur.Value()
	if err != nil {
		it.err = err
		return false
	}
	it.key = int64(k)
	it.val = append([]byte(nil), v...)
	return true
}

func (it *primaryIterator) Key() int64    { return it.key }
func (it *primaryIterator) Value() []byte { return it.val }
func (it *primaryIterator) Error() error  { return it.err }
func (it *primaryIterator) Close() error  { return nil }
