package btree

import (
	"fmt"
	"strings"

	"github.com/relicdb/storedb/dbms/node"
)

// Dump renders a pre-order structural dump of the tree, in the format
// the .btree meta-command prints: "Tree:" followed by one line per node
// and cell, indented two spaces per depth level.
func (t *Tree) Dump() (string, error) {
	var b strings.Builder
	b.WriteString("Tree:\n")
	if err := t.dumpNode(&b, rootPage, 0); err != nil {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (t *Tree) dumpNode(b *strings.Builder, pageNum uint32, depth int) error {
	p, err := t.pager.GetPage(int(pageNum))
	if err != nil {
		return err
	}
	indent := strings.Repeat("  ", depth)

	if node.NodeType(p) == node.TypeLeaf {
		numCells := node.NumCells(p)
		fmt.Fprintf(b, "%sleaf (size %d)\n", indent, numCells)
		cellIndent := strings.Repeat("  ", depth+1)
		for i := uint32(0); i < numCells; i++ {
			fmt.Fprintf(b, "%s- %d : %d\n", cellIndent, i, node.LeafKey(p, i))
		}
		return nil
	}

	numKeys := node.NumKeys(p)
	fmt.Fprintf(b, "%s- internal (size %d)\n", indent, numKeys)
	childIndent := strings.Repeat("  ", depth+1)
	for i := uint32(0); i < numKeys; i++ {
		if err := t.dumpNode(b, node.InternalChild(p, i), depth+1); err != nil {
			return err
		}
		fmt.Fprintf(b, "%s- key %d\n", childIndent, node.InternalKey(p, i))
	}
	return t.dumpNode(b, node.RightChild(p), depth+1)
}
