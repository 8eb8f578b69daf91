package btree

import (
	"github.com/pkg/errors"

	"github.com/relicdb/storedb/dbms/node"
)

// Cursor walks the rows of a table leaf-by-leaf, in key order. It does
// not observe structural changes made to the tree after it is created.
type Cursor struct {
	tree     *Tree
	pageNum  uint32
	cellNum  uint32
	finished bool
}

// StartOfTable returns a cursor positioned at the first row in key
// order, descending from the root to the leftmost leaf.
func (t *Tree) StartOfTable() (*Cursor, error) {
	pageNum, err := t.leftmostLeaf(rootPage)
	if err != nil {
		return nil, err
	}
	p, err := t.pager.GetPage(int(pageNum))
	if err != nil {
		return nil, errors.Wrapf(err, "btree: start of table")
	}
	return &Cursor{tree: t, pageNum: pageNum, cellNum: 0, finished: node.NumCells(p) == 0}, nil
}

func (t *Tree) leftmostLeaf(pageNum uint32) (uint32, error) {
	p, err := t.pager.GetPage(int(pageNum))
	if err != nil {
		return 0, errors.Wrapf(err, "btree: descend to leftmost leaf from page %d", pageNum)
	}
	if node.NodeType(p) == node.TypeLeaf {
		return pageNum, nil
	}
	return t.leftmostLeaf(node.InternalChildAt(p, 0))
}

// Find returns a cursor positioned at key, if present, or at the
// position key would occupy if inserted.
func (t *Tree) Find(key uint32) (*Cursor, error) {
	pageNum := rootPage
	for {
		p, err := t.pager.GetPage(int(pageNum))
		if err != nil {
			return nil, errors.Wrapf(err, "btree: find key %d", key)
		}
		if node.NodeType(p) == node.TypeLeaf {
			idx := node.LeafFind(p, key)
			return &Cursor{tree: t, pageNum: uint32(pageNum), cellNum: idx, finished: idx >= node.NumCells(p)}, nil
		}
		childIdx := node.InternalFind(p, key)
		pageNum = int(node.InternalChildAt(p, childIdx))
	}
}

// End reports whether the cursor has moved past the last row.
func (c *Cursor) End() bool { return c.finished }

// Value returns the encoded row the cursor currently points at.
func (c *Cursor) Value() ([]byte, error) {
	p, err := c.tree.pager.GetPage(int(c.pageNum))
	if err != nil {
		return nil, errors.Wrap(err, "btree: cursor value")
	}
	return node.LeafValue(p, c.cellNum), nil
}

// Key returns the key the cursor currently points at.
func (c *Cursor) Key() (uint32, error) {
	p, err := c.tree.pager.GetPage(int(c.pageNum))
	if err != nil {
		return 0, errors.Wrap(err, "btree: cursor key")
	}
	return node.LeafKey(p, c.cellNum), nil
}

// Advance moves the cursor to the next row, crossing into the sibling
// leaf via next_leaf when the current leaf is exhausted.
func (c *Cursor) Advance() error {
	p, err := c.tree.pager.GetPage(int(c.pageNum))
	if err != nil {
		return errors.Wrap(err, "btree: cursor advance")
	}

	c.cellNum++
	if c.cellNum < node.NumCells(p) {
		return nil
	}

	next := node.NextLeaf(p)
	if next == 0 {
		c.finished = true
		return nil
	}
	c.pageNum = next
	c.cellNum = 0
	return nil
}
