package btree

import (
	"encoding/binary"

	"github.com/relicdb/storedb/dbms/benchpager"
)

// page is this tree's own interpretation of a benchpager.Page's bytes —
// the same separation dbms/node draws from dbms/pager for the primary
// store, applied here: benchpager only moves bytes to and from disk and
// caches them, and knows nothing about B-trees; page turns those bytes
// into node type, key count, and key/pointer slots.
type page benchpager.Page

// asPage views raw as a page, in place (no copy).
func asPage(raw *benchpager.Page) *page { return (*page)(raw) }

// raw views p back as the benchpager.Page it's backed by, for Pager
// calls that move the bytes themselves.
func (p *page) raw() *benchpager.Page { return (*benchpager.Page)(p) }

func (p *page) nodeType() byte     { return p[offType] }
func (p *page) setNodeType(t byte) { p[offType] = t }

func (p *page) numKeys() int {
	return int(binary.LittleEndian.Uint16(p[offNumKeys : offNumKeys+2]))
}

func (p *page) setNumKeys(n int) {
	binary.LittleEndian.PutUint16(p[offNumKeys:offNumKeys+2], uint16(n))
}

func (p *page) firstChild() uint64 {
	return binary.LittleEndian.Uint64(p[offFirstPtr : offFirstPtr+8])
}

func (p *page) setFirstChild(id uint64) {
	binary.LittleEndian.PutUint64(p[offFirstPtr:], id)
}

func slotOffset(i int) int { return offSlots + i*slotSize }

// slot returns key slot i: a key plus either a child page ID (internal
// nodes) or a value-heap offset and length (leaf nodes).
func (p *page) slot(i int) (key int64, ptr uint64, vlen uint32) {
	off := slotOffset(i)
	key = int64(binary.LittleEndian.Uint64(p[off : off+8]))
	ptr = binary.LittleEndian.Uint64(p[off+8 : off+16])
	vlen = binary.LittleEndian.Uint32(p[off+16 : off+20])
	return
}

func (p *page) putSlot(i int, key int64, ptr uint64, vlen uint32) {
	off := slotOffset(i)
	binary.LittleEndian.PutUint64(p[off:], uint64(key))
	binary.LittleEndian.PutUint64(p[off+8:], ptr)
	binary.LittleEndian.PutUint32(p[off+16:], vlen)
}

// findKeyIndex returns the index of the first of p's first n slots
// whose key is >= key, or n if every key is smaller.
func (p *page) findKeyIndex(key int64, n int) int {
	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		k, _, _ := p.slot(mid)
		if k < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// childAt returns the child page to descend into for index idx, as
// produced by findKeyIndex against an internal page: firstChild holds
// everything at or below key[0], and slot i's pointer (returned for
// idx == i+1) is the child holding keys in (key[i], key[i+1]], or every
// key above key[n-1] for the last slot.
func (p *page) childAt(idx, n int) uint64 {
	if idx == 0 {
		return p.firstChild()
	}
	_, child, _ := p.slot(idx - 1)
	return child
}
