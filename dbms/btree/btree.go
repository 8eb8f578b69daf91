// Package btree implements the on-disk B+ tree that backs storedb's
// single table: fixed-width leaf cells holding encoded rows, internal
// nodes holding separator keys and child pointers, split-on-overflow at
// both levels, and a root page that never moves (page 0 is recycled into
// a new internal node when it overflows, rather than relocated).
//
// Overflow is handled by promoting a separator key to the parent on
// leaf split and recursing into the parent on internal overflow, with
// sibling leaves linked via next_leaf for cross-leaf scans.
package btree

import (
	"github.com/pkg/errors"

	"github.com/relicdb/storedb/dbms/node"
	"github.com/relicdb/storedb/dbms/pager"
)

// rootPage is the page number of the tree's root. It never changes: when
// the root overflows, its current contents are copied into a freshly
// allocated child page and the root page itself is reinitialized as a
// new internal node.
const rootPage = 0

// internalMaxCells bounds how many separator keys an internal node may
// hold before it must split. Unlike the leaf constants, this is not
// reproduced by a .constants diagnostic — nothing externally visible
// depends on its exact value, only on internal nodes splitting
// correctly once they overflow.
const internalMaxCells = (pager.PageSize - node.InternalNodeHeaderSize) / node.InternalNodeCellSize

// ErrDuplicateKey is the full user-facing line printed when an insert's
// key already exists.
var ErrDuplicateKey = errors.New("Error: Duplicate key.")

// Tree is a handle on a B+ tree stored through a pager. There is exactly
// one Tree per open database file.
type Tree struct {
	pager *pager.Pager
}

// Open wraps pg in a Tree, initializing page 0 as an empty root leaf if
// the file is brand new.
func Open(pg *pager.Pager) (*Tree, error) {
	t := &Tree{pager: pg}
	if pg.NumPages() == 0 {
		root, err := pg.GetPage(rootPage)
		if err != nil {
			return nil, errors.Wrap(err, "btree: open")
		}
		node.InitializeLeaf(root)
		node.SetIsRoot(root, true)
		pg.MarkDirty(rootPage)
	}
	return t, nil
}

// Close flushes and closes the underlying pager.
func (t *Tree) Close() error {
	return t.pager.Close()
}

// Insert adds a row under key into the tree, splitting nodes as needed.
// It returns ErrDuplicateKey, unwrapped, if key already exists.
func (t *Tree) Insert(key uint32, rowBuf []byte) error {
	rightSibling, split, err := t.insertInto(rootPage, key, rowBuf)
	if err != nil {
		return err
	}
	if !split {
		return nil
	}
	return errors.Wrap(t.createNewRoot(rightSibling), "btree: insert")
}

func (t *Tree) insertInto(pageNum uint32, key uint32, rowBuf []byte) (uint32, bool, error) {
	p, err := t.pager.GetPage(int(pageNum))
	if err != nil {
		return 0, false, errors.Wrapf(err, "btree: read page %d", pageNum)
	}

	if node.NodeType(p) == node.TypeLeaf {
		return t.insertLeaf(pageNum, p, key, rowBuf)
	}

	childIdx := node.InternalFind(p, key)
	childNum := node.InternalChildAt(p, childIdx)

	rightSibling, split, err := t.insertInto(childNum, key, rowBuf)
	if err != nil || !split {
		return 0, false, err
	}

	leftMax, err := t.maxKey(childNum)
	if err != nil {
		return 0, false, err
	}
	rightMax, err := t.maxKey(rightSibling)
	if err != nil {
		return 0, false, err
	}

	return t.insertChildSplit(pageNum, p, childIdx, childNum, leftMax, rightSibling, rightMax)
}

func (t *Tree) insertLeaf(pageNum uint32, p *pager.Page, key uint32, rowBuf []byte) (uint32, bool, error) {
	numCells := node.NumCells(p)
	idx := node.LeafFind(p, key)
	if idx < numCells && node.LeafKey(p, idx) == key {
		return 0, false, ErrDuplicateKey
	}

	if numCells < node.LeafNodeMaxCells {
		for i := numCells; i > idx; i-- {
			node.CopyLeafCell(p, i, i-1)
		}
		node.SetLeafCell(p, idx, key, rowBuf)
		node.SetNumCells(p, numCells+1)
		t.pager.MarkDirty(int(pageNum))
		return 0, false, nil
	}

	return t.splitLeaf(pageNum, p, idx, key, rowBuf)
}

// splitLeaf splits an overflowing leaf in two, inserting (key, rowBuf)
// into whichever half it belongs in, and links the new leaf into the
// sibling chain. It returns the new right sibling's page number.
func (t *Tree) splitLeaf(pageNum uint32, p *pager.Page, idx uint32, key uint32, rowBuf []byte) (uint32, bool, error) {
	type cell struct {
		key   uint32
		value []byte
	}

	total := node.LeafNodeMaxCells + 1
	cells := make([]cell, 0, total)
	for i := uint32(0); i < node.LeafNodeMaxCells; i++ {
		if i == idx {
			cells = append(cells, cell{key, append([]byte(nil), rowBuf...)})
		}
		cells = append(cells, cell{node.LeafKey(p, i), append([]byte(nil), node.LeafValue(p, i)...)})
	}
	if idx == node.LeafNodeMaxCells {
		cells = append(cells, cell{key, append([]byte(nil), rowBuf...)})
	}

	const leftCount = (node.LeafNodeMaxCells + 1) / 2
	rightCount := total - leftCount

	newPageIdx, newPage, err := t.pager.Allocate()
	if err != nil {
		return 0, false, errors.Wrap(err, "btree: split leaf")
	}
	newPageNum := uint32(newPageIdx)

	node.InitializeLeaf(newPage)
	node.SetParentPointer(newPage, node.ParentPointer(p))
	node.SetNumCells(newPage, uint32(rightCount))
	for i := 0; i < rightCount; i++ {
		c := cells[leftCount+i]
		node.SetLeafCell(newPage, uint32(i), c.key, c.value)
	}
	node.SetNextLeaf(newPage, node.NextLeaf(p))

	node.SetNumCells(p, leftCount)
	for i := 0; i < leftCount; i++ {
		node.SetLeafCell(p, uint32(i), cells[i].key, cells[i].value)
	}
	node.SetNextLeaf(p, newPageNum)

	t.pager.MarkDirty(int(pageNum))
	t.pager.MarkDirty(int(newPageNum))

	return newPageNum, true, nil
}

// insertChildSplit inserts a newly split-off right child (and its
// updated left sibling) into the parent's separator array, splitting
// the parent itself if that overflows it.
func (t *Tree) insertChildSplit(pageNum uint32, p *pager.Page, posOfLeft uint32, leftChildNum, leftMax, rightChildNum, rightMax uint32) (uint32, bool, error) {
	numKeys := node.NumKeys(p)

	children := make([]uint32, numKeys+1)
	keys := make([]uint32, numKeys)
	for i := uint32(0); i < numKeys; i++ {
		children[i] = node.InternalChild(p, i)
		keys[i] = node.InternalKey(p, i)
	}
	children[numKeys] = node.RightChild(p)
	children[posOfLeft] = leftChildNum

	newChildren := make([]uint32, 0, numKeys+2)
	newChildren = append(newChildren, children[:posOfLeft+1]...)
	newChildren = append(newChildren, rightChildNum)
	newChildren = append(newChildren, children[posOfLeft+1:]...)

	newKeys := make([]uint32, 0, numKeys+1)
	if posOfLeft < numKeys {
		newKeys = append(newKeys, keys[:posOfLeft]...)
		newKeys = append(newKeys, leftMax, rightMax)
		newKeys = append(newKeys, keys[posOfLeft+1:]...)
	} else {
		newKeys = append(newKeys, keys...)
		newKeys = append(newKeys, leftMax)
	}

	if len(newKeys) <= internalMaxCells {
		node.SetNumKeys(p, uint32(len(newKeys)))
		for i, c := range newChildren[:len(newChildren)-1] {
			node.SetInternalChild(p, uint32(i), c)
		}
		for i, k := range newKeys {
			node.SetInternalKey(p, uint32(i), k)
		}
		node.SetRightChild(p, newChildren[len(newChildren)-1])

		for _, c := range newChildren {
			if err := t.setParent(c, pageNum); err != nil {
				return 0, false, err
			}
		}
		t.pager.MarkDirty(int(pageNum))
		return 0, false, nil
	}

	return t.splitInternal(pageNum, p, newChildren, newKeys)
}

// splitInternal divides an overflowing internal node's (children, keys)
// snapshot across the original page and a freshly allocated one.
func (t *Tree) splitInternal(pageNum uint32, p *pager.Page, children, keys []uint32) (uint32, bool, error) {
	total := len(children)
	leftCount := total / 2
	rightCount := total - leftCount

	newPageIdx, newPage, err := t.pager.Allocate()
	if err != nil {
		return 0, false, errors.Wrap(err, "btree: split internal")
	}
	newPageNum := uint32(newPageIdx)

	parent := node.ParentPointer(p)
	wasRoot := node.IsRoot(p)

	node.InitializeInternal(newPage)
	node.SetParentPointer(newPage, parent)
	node.SetNumKeys(newPage, uint32(rightCount-1))
	for i := 0; i < rightCount-1; i++ {
		node.SetInternalChild(newPage, uint32(i), children[leftCount+i])
		node.SetInternalKey(newPage, uint32(i), keys[leftCount+i])
	}
	node.SetRightChild(newPage, children[total-1])

	node.InitializeInternal(p)
	node.SetIsRoot(p, wasRoot)
	node.SetParentPointer(p, parent)
	node.SetNumKeys(p, uint32(leftCount-1))
	for i := 0; i < leftCount-1; i++ {
		node.SetInternalChild(p, uint32(i), children[i])
		node.SetInternalKey(p, uint32(i), keys[i])
	}
	node.SetRightChild(p, children[leftCount-1])

	for i, c := range children {
		newParent := pageNum
		if i >= leftCount {
			newParent = newPageNum
		}
		if err := t.setParent(c, newParent); err != nil {
			return 0, false, err
		}
	}

	t.pager.MarkDirty(int(pageNum))
	t.pager.MarkDirty(int(newPageNum))

	return newPageNum, true, nil
}

// createNewRoot recycles the root page into a new internal node with
// two children: a freshly allocated copy of the root's old contents,
// and rightChildPageNum (the sibling produced by the split that just
// bubbled all the way up).
func (t *Tree) createNewRoot(rightChildPageNum uint32) error {
	root, err := t.pager.GetPage(rootPage)
	if err != nil {
		return err
	}

	leftIdx, leftChild, err := t.pager.Allocate()
	if err != nil {
		return err
	}
	leftChildNum := uint32(leftIdx)

	*leftChild = *root
	node.SetIsRoot(leftChild, false)

	if node.NodeType(leftChild) == node.TypeInternal {
		numKeys := node.NumKeys(leftChild)
		for i := uint32(0); i <= numKeys; i++ {
			if err := t.setParent(node.InternalChildAt(leftChild, i), leftChildNum); err != nil {
				return err
			}
		}
	}

	node.InitializeInternal(root)
	node.SetIsRoot(root, true)
	node.SetNumKeys(root, 1)
	node.SetInternalChild(root, 0, leftChildNum)

	leftMax, err := t.maxKey(leftChildNum)
	if err != nil {
		return err
	}
	node.SetInternalKey(root, 0, leftMax)
	node.SetRightChild(root, rightChildPageNum)

	if err := t.setParent(leftChildNum, rootPage); err != nil {
		return err
	}
	if err := t.setParent(rightChildPageNum, rootPage); err != nil {
		return err
	}

	t.pager.MarkDirty(rootPage)
	t.pager.MarkDirty(int(leftChildNum))
	return nil
}

func (t *Tree) setParent(childPageNum, parentPageNum uint32) error {
	p, err := t.pager.GetPage(int(childPageNum))
	if err != nil {
		return errors.Wrapf(err, "btree: set parent of page %d", childPageNum)
	}
	node.SetParentPointer(p, parentPageNum)
	t.pager.MarkDirty(int(childPageNum))
	return nil
}

// maxKey returns the largest key stored under pageNum, descending
// through rightmost children until it reaches a leaf.
func (t *Tree) maxKey(pageNum uint32) (uint32, error) {
	p, err := t.pager.GetPage(int(pageNum))
	if err != nil {
		return 0, errors.Wrapf(err, "btree: max key of page %d", pageNum)
	}
	if node.NodeType(p) == node.TypeLeaf {
		n := node.NumCells(p)
		if n == 0 {
			return 0, nil
		}
		return node.LeafKey(p, n-1), nil
	}
	return t.maxKey(node.RightChild(p))
}
