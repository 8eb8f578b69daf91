// Package node interprets a raw pager.Page as either a leaf or an
// internal B+ tree node, exposing fixed-offset accessors over its header
// and cell fields. It is pure byte-offset plumbing: it owns no page
// buffers itself, and its cells are fixed-stride, sized by the fixed
// row schema rather than by what was written.
package node

import (
	"encoding/binary"

	"github.com/relicdb/storedb/dbms/pager"
	"github.com/relicdb/storedb/dbms/row"
)

// Node types.
const (
	TypeInternal = byte(0)
	TypeLeaf     = byte(1)
)

// Common header, present on every node.
const (
	CommonNodeHeaderSize = 6

	offNodeType      = 0
	offIsRoot        = 1
	offParentPointer = 2 // uint32
)

// Leaf header and cell layout, bit-exact with the .constants dump.
const (
	LeafNodeHeaderSize    = CommonNodeHeaderSize + 4 // + num_cells
	LeafNodeCellSize      = 4 + row.Size             // key + row
	LeafNodeSpaceForCells = pager.PageSize - LeafNodeHeaderSize
	LeafNodeMaxCells      = LeafNodeSpaceForCells / LeafNodeCellSize

	offNumCells  = CommonNodeHeaderSize // uint32
	offLeafCells = LeafNodeHeaderSize

	leafCellKeyOffset = 0
	leafCellValOffset = 4

	// nextLeafOffset stores the sibling-leaf page pointer used by
	// cross-leaf select. It lives in the last 4 bytes of the page, well
	// past the cell area, so the header and cell constants above stay
	// bit-exact with the .constants dump.
	nextLeafOffset = pager.PageSize - 4
)

// Internal node header and cell layout.
const (
	InternalNodeHeaderSize = CommonNodeHeaderSize + 4 + 4 // + num_keys + right_child
	InternalNodeCellSize   = 4 + 4                        // child_pointer + key

	offNumKeys       = CommonNodeHeaderSize // uint32
	offRightChild    = CommonNodeHeaderSize + 4
	offInternalCells = InternalNodeHeaderSize

	internalCellChildOffset = 0
	internalCellKeyOffset   = 4
)

// NoParent marks the (undefined) parent pointer of the root node.
const NoParent = ^uint32(0)

// --- common header ---

func NodeType(p *pager.Page) byte { return p[offNodeType] }

func SetNodeType(p *pager.Page, t byte) { p[offNodeType] = t }

func IsRoot(p *pager.Page) bool { return p[offIsRoot] == 1 }

func SetIsRoot(p *pager.Page, v bool) {
	if v {
		p[offIsRoot] = 1
	} else {
		p[offIsRoot] = 0
	}
}

func ParentPointer(p *pager.Page) uint32 {
	return binary.LittleEndian.Uint32(p[offParentPointer:])
}

func SetParentPointer(p *pager.Page, parent uint32) {
	binary.LittleEndian.PutUint32(p[offParentPointer:], parent)
}

// --- leaf ---

// InitializeLeaf resets p to an empty, non-root leaf.
func InitializeLeaf(p *pager.Page) {
	SetNodeType(p, TypeLeaf)
	SetIsRoot(p, false)
	SetNumCells(p, 0)
	SetNextLeaf(p, 0)
}

func NumCells(p *pager.Page) uint32 {
	return binary.LittleEndian.Uint32(p[offNumCells:])
}

func SetNumCells(p *pager.Page, n uint32) {
	binary.LittleEndian.PutUint32(p[offNumCells:], n)
}

func cellOffset(i uint32) int {
	return offLeafCells + int(i)*LeafNodeCellSize
}

func LeafKey(p *pager.Page, i uint32) uint32 {
	off := cellOffset(i) + leafCellKeyOffset
	return binary.LittleEndian.Uint32(p[off:])
}

func SetLeafKey(p *pager.Page, i uint32, key uint32) {
	off := cellOffset(i) + leafCellKeyOffset
	binary.LittleEndian.PutUint32(p[off:], key)
}

// LeafValue returns the row.Size-byte slice for cell i's value, backed by
// the page itself.
func LeafValue(p *pager.Page, i uint32) []byte {
	off := cellOffset(i) + leafCellValOffset
	return p[off : off+row.Size]
}

func SetLeafCell(p *pager.Page, i uint32, key uint32, value []byte) {
	SetLeafKey(p, i, key)
	copy(LeafValue(p, i), value)
}

// CopyLeafCell copies cell src of p into cell dst of p (used to shift
// cells right on insertion).
func CopyLeafCell(p *pager.Page, dst, src uint32) {
	copy(p[cellOffset(dst):cellOffset(dst)+LeafNodeCellSize], p[cellOffset(src):cellOffset(src)+LeafNodeCellSize])
}

func NextLeaf(p *pager.Page) uint32 {
	return binary.LittleEndian.Uint32(p[nextLeafOffset:])
}

func SetNextLeaf(p *pager.Page, pageNum uint32) {
	binary.LittleEndian.PutUint32(p[nextLeafOffset:], pageNum)
}

// LeafFind performs a binary search over a leaf's sorted cells, returning
// the index of the first cell whose key is >= key, or NumCells(p) if key
// exceeds every existing key. Used for both lookup and
// insertion-point selection.
func LeafFind(p *pager.Page, key uint32) uint32 {
	numCells := NumCells(p)
	lo, hi := uint32(0), numCells
	for lo < hi {
		mid := (lo + hi) / 2
		if LeafKey(p, mid) < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// --- internal ---

func InitializeInternal(p *pager.Page) {
	SetNodeType(p, TypeInternal)
	SetIsRoot(p, false)
	SetNumKeys(p, 0)
}

func NumKeys(p *pager.Page) uint32 {
	return binary.LittleEndian.Uint32(p[offNumKeys:])
}

func SetNumKeys(p *pager.Page, n uint32) {
	binary.LittleEndian.PutUint32(p[offNumKeys:], n)
}

func RightChild(p *pager.Page) uint32 {
	return binary.LittleEndian.Uint32(p[offRightChild:])
}

func SetRightChild(p *pager.Page, child uint32) {
	binary.LittleEndian.PutUint32(p[offRightChild:], child)
}

func internalCellOffset(i uint32) int {
	return offInternalCells + int(i)*InternalNodeCellSize
}

func InternalChild(p *pager.Page, i uint32) uint32 {
	off := internalCellOffset(i) + internalCellChildOffset
	return binary.LittleEndian.Uint32(p[off:])
}

func SetInternalChild(p *pager.Page, i uint32, child uint32) {
	off := internalCellOffset(i) + internalCellChildOffset
	binary.LittleEndian.PutUint32(p[off:], child)
}

func InternalKey(p *pager.Page, i uint32) uint32 {
	off := internalCellOffset(i) + internalCellKeyOffset
	return binary.LittleEndian.Uint32(p[off:])
}

func SetInternalKey(p *pager.Page, i uint32, key uint32) {
	off := internalCellOffset(i) + internalCellKeyOffset
	binary.LittleEndian.PutUint32(p[off:], key)
}

// InternalChildAt returns the page holding keys for separator slot i:
// child i for i < NumKeys(p), RightChild otherwise.
func InternalChildAt(p *pager.Page, i uint32) uint32 {
	if i == NumKeys(p) {
		return RightChild(p)
	}
	return InternalChild(p, i)
}

// InternalFind returns the index of the child to descend into for key,
// by binary search over separator keys: child_i holds keys <= key_i.
func InternalFind(p *pager.Page, key uint32) uint32 {
	numKeys := NumKeys(p)
	lo, hi := uint32(0), numKeys
	for lo < hi {
		mid := (lo + hi) / 2
		if InternalKey(p, mid) < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
