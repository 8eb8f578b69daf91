// Package btree is a disk-resident, order-200 B-tree used by cmd/dbbench
// as a comparison index against the primary table's B+ tree and against
// dbms/altindex/lsm: separate from dbms/btree because the primary store
// is deliberately fixed at the tutorial's page layout and small page
// cache, while this index needs an unbounded page count and a variable
// length value (row bytes are stored in a companion append-only heap
// file rather than inline in the page, so this tree's branching factor
// doesn't shrink as the row schema grows).
//
// The benchmark's workload mix (dbms/bench.RunSuite) never deletes a
// key, so this tree only ever grows: it supports Insert, Get, and
// Range, and splits nodes on overflow, but carries no delete path and
// no underflow rebalancing. A value-heap file only ever appends, too —
// there's no compaction, since nothing here reclaims heap space that a
// delete would otherwise free.
//
// Two things here depart from a textbook B-tree because of how
// dbms/bench actually drives this index. First, Insert tracks the
// tree's rightmost leaf and appends straight into it when the new key
// is past everything already stored, skipping the root-to-leaf descent
// for the ascending-key load phase every RunSuite run starts with.
// Second, a leaf or internal node that overflows splits unevenly
// rather than down the middle: most keys stay put and only a small
// tail moves to the new right sibling, so a node that just absorbed a
// run of ascending inserts doesn't immediately split again on the very
// next one.
//
// Page layout (4096 bytes):
//
//	[0]      uint8   node type (0 = internal, 1 = leaf)
//	[1..2]   uint16  key count
//	[3..10]  uint64  leftmost child page ID (internal only)
//
// then, per key slot: an 8-byte key, followed by either a child page ID
// (internal) or an 8-byte value-heap offset and 4-byte value length
// (leaf); internal slots leave the length field unused. See slot.go for
// how a page's bytes are turned into these fields.
package btree

import (
	"encoding/binary"
	"os"

	"github.com/pkg/errors"

	"github.com/relicdb/storedb/dbms/bench"
	"github.com/relicdb/storedb/dbms/benchpager"
)

const (
	order   = 200
	maxKeys = order - 1

	// splitTailFraction controls how many of a full node's keys move to
	// the new right sibling on overflow. A classic B-tree splits at
	// n/2; this one keeps most keys on the left so a node that just
	// filled up from an ascending run of inserts has room again
	// immediately, rather than being back at half capacity.
	splitTailFraction = 10

	typeInternal = byte(0)
	typeLeaf     = byte(1)

	offType     = 0
	offNumKeys  = 1
	offFirstPtr = 3
	offSlots    = 11

	slotSize = 20
)

// Tree is a disk-based B-tree satisfying dbms/bench.Index.
type Tree struct {
	pg        *benchpager.Pager
	heap      *os.File
	rootID    uint64
	heapEnd   int64
	rightLeaf uint64 // page ID of the tree's current rightmost leaf
}

// Open opens (or creates) a tree rooted at path: page storage lives in
// path+".bt", row bytes live in path+".bv".
func Open(path string, cachePages int) (*Tree, error) {
	pg, err := benchpager.Open(path+".bt", cachePages)
	if err != nil {
		return nil, errors.Wrap(err, "altindex/btree: open pages")
	}

	heap, err := os.OpenFile(path+".bv", os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		pg.Close()
		return nil, errors.Wrap(err, "altindex/btree: open heap")
	}
	info, err := heap.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "altindex/btree: stat heap")
	}

	t := &Tree{pg: pg, heap: heap, heapEnd: info.Size()}

	if pg.PageCount() <= 2 {
		if _, err := pg.Allocate(); err != nil { // page 1: tree header
			return nil, err
		}
		rootID, err := pg.Allocate() // page 2: initial root leaf
		if err != nil {
			return nil, err
		}
		t.rootID = rootID
		if err := t.initLeaf(rootID); err != nil {
			return nil, err
		}
		if err := t.writeHeader(); err != nil {
			return nil, err
		}
	} else if err := t.readHeader(); err != nil {
		return nil, err
	}

	rightLeaf, err := t.rightmostLeaf(t.rootID)
	if err != nil {
		return nil, err
	}
	t.rightLeaf = rightLeaf

	return t, nil
}

// Close flushes the tree header and closes both underlying files.
func (t *Tree) Close() error {
	if err := t.writeHeader(); err != nil {
		return err
	}
	if err := t.heap.Close(); err != nil {
		return errors.Wrap(err, "altindex/btree: close heap")
	}
	return t.pg.Close()
}

// Insert stores or overwrites the value for key. When key is past
// every key already stored, it's appended straight into the tree's
// rightmost leaf, bypassing the root-to-leaf descent insertNode would
// otherwise repeat on every call of an ascending run — exactly the
// pattern dbms/bench.RunSuite's load phase produces.
func (t *Tree) Insert(key int64, value []byte) error {
	offset, err := t.appendValue(value)
	if err != nil {
		return err
	}
	valLen := uint32(len(value))

	handled, err := t.insertAtTail(key, offset, valLen)
	if err != nil || handled {
		return err
	}

	midKey, newPageID, split, err := t.insertNode(t.rootID, key, offset, valLen)
	if err != nil {
		return err
	}
	if !split {
		return nil
	}
	newRoot, err := t.pg.Allocate()
	if err != nil {
		return err
	}
	if err := t.initInternal(newRoot, t.rootID, midKey, newPageID); err != nil {
		return err
	}
	t.rootID = newRoot
	return t.writeHeader()
}

// insertAtTail appends (key, value) directly onto the tree's rightmost
// leaf when key is greater than every key the leaf already holds,
// which — since it's the rightmost leaf — means greater than every key
// in the tree. It reports handled=false whenever that doesn't hold, or
// the leaf has no room left, so Insert falls back to a normal descent.
func (t *Tree) insertAtTail(key int64, valOffset int64, valLen uint32) (handled bool, err error) {
	raw, err := t.pg.Read(t.rightLeaf)
	if err != nil {
		return false, errors.Wrapf(err, "altindex/btree: read node %d", t.rightLeaf)
	}
	pg := asPage(raw)
	n := pg.numKeys()
	if n == 0 || n >= maxKeys {
		return false, nil
	}
	if maxExisting, _, _ := pg.slot(n - 1); key <= maxExisting {
		return false, nil
	}
	pg.putSlot(n, key, uint64(valOffset), valLen)
	pg.setNumKeys(n + 1)
	return true, t.pg.Write(t.rightLeaf, pg.raw())
}

// Get returns the value stored for key, or nil if absent.
func (t *Tree) Get(key int64) ([]byte, error) {
	return t.search(t.rootID, key)
}

// Range returns an iterator over [start, end].
func (t *Tree) Range(start, end int64) (*RangeIterator, error) {
	it := &RangeIterator{tree: t, end: end}
	if err := it.seekToFirst(t.rootID, start); err != nil {
		return nil, err
	}
	return it, nil
}

var _ bench.Index = (*indexAdapter)(nil)

// indexAdapter satisfies bench.Index's Range signature, which returns
// bench.Iterator rather than *RangeIterator directly.
type indexAdapter struct{ *Tree }

func (a indexAdapter) Range(start, end int64) (bench.Iterator, error) {
	return a.Tree.Range(start, end)
}

// AsIndex adapts t to bench.Index.
func AsIndex(t *Tree) bench.Index { return indexAdapter{t} }

// CacheStats reports the underlying page cache's hit/miss/eviction
// counts, satisfying dbms/bench.CacheReporter so RunSuite can record
// how much of this backend's latency came from cache pressure.
func (t *Tree) CacheStats() (hits, misses, evictions int64) {
	s := t.pg.Stats()
	return s.Hits, s.Misses, s.Evictions
}

// rightmostLeaf descends nodeID's rightmost-child chain to find the
// tree's current rightmost leaf, for recomputing Tree.rightLeaf on
// open — cheap (logarithmic in key count) and avoids persisting yet
// another field in the tree header.
func (t *Tree) rightmostLeaf(nodeID uint64) (uint64, error) {
	for {
		raw, err := t.pg.Read(nodeID)
		if err != nil {
			return 0, errors.Wrapf(err, "altindex/btree: read node %d", nodeID)
		}
		pg := asPage(raw)
		if pg.nodeType() == typeLeaf {
			return nodeID, nil
		}
		n := pg.numKeys()
		if n == 0 {
			nodeID = pg.firstChild()
			continue
		}
		_, nodeID, _ = pg.slot(n - 1)
	}
}

func (t *Tree) initLeaf(id uint64) error {
	var raw benchpager.Page
	pg := asPage(&raw)
	pg.setNodeType(typeLeaf)
	return t.pg.Write(id, pg.raw())
}

func (t *Tree) initInternal(id, leftChild uint64, key int64, rightChild uint64) error {
	var raw benchpager.Page
	pg := asPage(&raw)
	pg.setNodeType(typeInternal)
	pg.setNumKeys(1)
	pg.setFirstChild(leftChild)
	pg.putSlot(0, key, rightChild, 0)
	return t.pg.Write(id, pg.raw())
}

func (t *Tree) insertNode(nodeID uint64, key int64, valOffset int64, valLen uint32) (int64, uint64, bool, error) {
	raw, err := t.pg.Read(nodeID)
	if err != nil {
		return 0, 0, false, errors.Wrapf(err, "altindex/btree: read node %d", nodeID)
	}
	pg := asPage(raw)
	n := pg.numKeys()
	if pg.nodeType() == typeLeaf {
		return t.insertLeaf(nodeID, pg, n, key, valOffset, valLen)
	}
	return t.insertInternal(nodeID, pg, n, key, valOffset, valLen)
}

func (t *Tree) insertLeaf(nodeID uint64, pg *page, n int, key int64, valOffset int64, valLen uint32) (int64, uint64, bool, error) {
	idx := pg.findKeyIndex(key, n)

	if idx < n {
		if k, _, _ := pg.slot(idx); k == key {
			pg.putSlot(idx, key, uint64(valOffset), valLen)
			return 0, 0, false, t.pg.Write(nodeID, pg.raw())
		}
	}

	for i := n; i > idx; i-- {
		k, p, l := pg.slot(i - 1)
		pg.putSlot(i, k, p, l)
	}
	pg.putSlot(idx, key, uint64(valOffset), valLen)
	n++
	pg.setNumKeys(n)

	if n <= maxKeys {
		return 0, 0, false, t.pg.Write(nodeID, pg.raw())
	}
	return t.splitLeaf(nodeID, pg, n)
}

func (t *Tree) splitLeaf(nodeID uint64, pg *page, n int) (int64, uint64, bool, error) {
	tail := splitTailCount(n)
	keep := n - tail

	newID, err := t.pg.Allocate()
	if err != nil {
		return 0, 0, false, err
	}
	var newRaw benchpager.Page
	newPg := asPage(&newRaw)
	newPg.setNodeType(typeLeaf)

	for i := keep; i < n; i++ {
		k, p, l := pg.slot(i)
		newPg.putSlot(i-keep, k, p, l)
	}
	newPg.setNumKeys(tail)
	pg.setNumKeys(keep)

	if err := t.pg.Write(nodeID, pg.raw()); err != nil {
		return 0, 0, false, err
	}
	if err := t.pg.Write(newID, newPg.raw()); err != nil {
		return 0, 0, false, err
	}
	if nodeID == t.rightLeaf {
		t.rightLeaf = newID
	}

	midKey, _, _ := pg.slot(keep - 1)
	return midKey, newID, true, nil
}

// splitTailCount returns how many of a full node's n keys move to the
// new right sibling: a small, fixed fraction rather than half, so the
// node keeps most of its fill after splitting.
func splitTailCount(n int) int {
	tail := n / splitTailFraction
	if tail < 1 {
		tail = 1
	}
	if tail >= n {
		tail = n - 1
	}
	return tail
}

func (t *Tree) insertInternal(nodeID uint64, pg *page, n int, key int64, valOffset int64, valLen uint32) (int64, uint64, bool, error) {
	idx := pg.findKeyIndex(key, n)
	childID := pg.childAt(idx, n)

	midKey, newChildID, split, err := t.insertNode(childID, key, valOffset, valLen)
	if err != nil {
		return 0, 0, false, err
	}
	if !split {
		return 0, 0, false, nil
	}

	for i := n; i > idx; i-- {
		k, p, l := pg.slot(i - 1)
		pg.putSlot(i, k, p, l)
	}
	pg.putSlot(idx, midKey, newChildID, 0)
	n++
	pg.setNumKeys(n)

	if n <= maxKeys {
		return 0, 0, false, t.pg.Write(nodeID, pg.raw())
	}
	return t.splitInternal(nodeID, pg, n)
}

func (t *Tree) splitInternal(nodeID uint64, pg *page, n int) (int64, uint64, bool, error) {
	tail := splitTailCount(n)
	keep := n - tail - 1 // one key (the pivot) is promoted, not kept

	newID, err := t.pg.Allocate()
	if err != nil {
		return 0, 0, false, err
	}
	var newRaw benchpager.Page
	newPg := asPage(&newRaw)
	newPg.setNodeType(typeInternal)

	midKey, midRightChild, _ := pg.slot(keep)
	newPg.setFirstChild(midRightChild)

	for i := keep + 1; i < n; i++ {
		k, p, l := pg.slot(i)
		newPg.putSlot(i-(keep+1), k, p, l)
	}
	newPg.setNumKeys(n - (keep + 1))
	pg.setNumKeys(keep)

	if err := t.pg.Write(nodeID, pg.raw()); err != nil {
		return 0, 0, false, err
	}
	if err := t.pg.Write(newID, newPg.raw()); err != nil {
		return 0, 0, false, err
	}
	return midKey, newID, true, nil
}

func (t *Tree) search(nodeID uint64, key int64) ([]byte, error) {
	for {
		raw, err := t.pg.Read(nodeID)
		if err != nil {
			return nil, errors.Wrapf(err, "altindex/btree: read node %d", nodeID)
		}
		pg := asPage(raw)
		n := pg.numKeys()

		if pg.nodeType() == typeLeaf {
			idx := pg.findKeyIndex(key, n)
			if idx < n {
				if k, valOffset, valLen := pg.slot(idx); k == key {
					return t.readValue(int64(valOffset), valLen)
				}
			}
			return nil, nil
		}

		idx := pg.findKeyIndex(key, n)
		nodeID = pg.childAt(idx, n)
	}
}

func (t *Tree) appendValue(value []byte) (int64, error) {
	offset := t.heapEnd
	if _, err := t.heap.WriteAt(value, offset); err != nil {
		return 0, errors.Wrap(err, "altindex/btree: append value")
	}
	t.heapEnd += int64(len(value))
	return offset, nil
}

func (t *Tree) readValue(offset int64, length uint32) ([]byte, error) {
	buf := make([]byte, length)
	if _, err := t.heap.ReadAt(buf, offset); err != nil {
		return nil, errors.Wrap(err, "altindex/btree: read value")
	}
	return buf, nil
}

func (t *Tree) writeHeader() error {
	pg, err := t.pg.Read(1)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(pg[:8], t.rootID)
	return t.pg.Write(1, pg)
}

func (t *Tree) readHeader() error {
	pg, err := t.pg.Read(1)
	if err != nil {
		return err
	}
	t.rootID = binary.LittleEndian.Uint64(pg[:8])
	return nil
}

// RangeIterator walks a Range call's keys in ascending order via a
// stack-based in-order traversal — this tree's leaves aren't linked,
// unlike dbms/btree's.
type RangeIterator struct {
	tree  *Tree
	end   int64
	stack []stackFrame
	key   int64
	val   []byte
	err   error
	done  bool
}

type stackFrame struct {
	pageID uint64
	idx    int
}

func (it *RangeIterator) seekToFirst(rootID uint64, start int64) error {
	nodeID := rootID
	for {
		raw, err := it.tree.pg.Read(nodeID)
		if err != nil {
			return err
		}
		pg := asPage(raw)
		n := pg.numKeys()
		idx := pg.findKeyIndex(start, n)

		if pg.nodeType() == typeLeaf {
			it.stack = append(it.stack, stackFrame{pageID: nodeID, idx: idx})
			return nil
		}
		// childAt(idx) is descended into right here, so Next resumes
		// this node at the following child.
		it.stack = append(it.stack, stackFrame{pageID: nodeID, idx: idx + 1})
		nodeID = pg.childAt(idx, n)
	}
}

// Next advances the iterator and reports whether a pair is available.
func (it *RangeIterator) Next() bool {
	if it.done || len(it.stack) == 0 {
		return false
	}
	for len(it.stack) > 0 {
		frame := &it.stack[len(it.stack)-1]
		raw, err := it.tree.pg.Read(frame.pageID)
		if err != nil {
			it.err = err
			return false
		}
		pg := asPage(raw)
		n := pg.numKeys()

		if pg.nodeType() == typeLeaf {
			if frame.idx >= n {
				it.stack = it.stack[:len(it.stack)-1]
				continue
			}
			k, valOffset, valLen := pg.slot(frame.idx)
			if k > it.end {
				it.done = true
				return false
			}
			frame.idx++
			val, err := it.tree.readValue(int64(valOffset), valLen)
			if err != nil {
				it.err = err
				return false
			}
			it.key = k
			it.val = val
			return true
		}

		if frame.idx > n {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}
		childID := pg.childAt(frame.idx, n)
		frame.idx++
		it.stack = append(it.stack, stackFrame{pageID: childID, idx: 0})
	}
	return false
}

func (it *RangeIterator) Key() int64    { return it.key }
func (it *RangeIterator) Value() []byte { return it.val }
func (it *RangeIterator) Error() error  { return it.err }
func (it *RangeIterator) Close() error  { return nil }
