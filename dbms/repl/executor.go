package repl

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/relicdb/storedb/dbms/btree"
	"github.com/relicdb/storedb/dbms/node"
	"github.com/relicdb/storedb/dbms/row"
)

// Result is the outcome of executing one REPL input line: the text to
// print (no trailing newline; may span several lines for select, .btree
// or .constants) and whether the REPL should stop reading further input.
type Result struct {
	Output string
	Exit   bool
}

// Execute parses and runs a single line of REPL input against tree.
// A non-nil error means a fatal condition (I/O failure, exhausted page
// cache) was hit; the caller should report it and exit nonzero. Every
// other outcome, success or user-facing diagnostic alike, comes back as
// a Result with no error.
func Execute(tree *btree.Tree, line string) (Result, error) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, ".") {
		return execMeta(tree, trimmed)
	}

	stmt, err := parseStatement(trimmed)
	if err != nil {
		return Result{Output: err.Error()}, nil
	}

	switch stmt.kind {
	case stmtInsert:
		return execInsert(tree, stmt.row)
	case stmtSelect:
		return execSelect(tree)
	default:
		return Result{}, nil
	}
}

func execMeta(tree *btree.Tree, line string) (Result, error) {
	switch line {
	case ".exit":
		if err := tree.Close(); err != nil {
			return Result{}, err
		}
		return Result{Exit: true}, nil
	case ".btree":
		dump, err := tree.Dump()
		if err != nil {
			return Result{}, err
		}
		return Result{Output: dump}, nil
	case ".constants":
		return Result{Output: constantsDump()}, nil
	default:
		return Result{Output: fmt.Sprintf("Unrecognized command '%s'.", line)}, nil
	}
}

func constantsDump() string {
	return fmt.Sprintf(
		"Constants:\nROW_SIZE: %d\nCOMMON_NODE_HEADER_SIZE: %d\nLEAF_NODE_HEADER_SIZE: %d\nLEAF_NODE_CELL_SIZE: %d\nLEAF_NODE_SPACE_FOR_CELLS: %d\nLEAF_NODE_MAX_CELLS: %d",
		row.Size,
		node.CommonNodeHeaderSize,
		node.LeafNodeHeaderSize,
		node.LeafNodeCellSize,
		node.LeafNodeSpaceForCells,
		node.LeafNodeMaxCells,
	)
}

func execInsert(tree *btree.Tree, r row.Row) (Result, error) {
	buf := row.Encode(r)
	if err := tree.Insert(r.ID, buf[:]); err != nil {
		if errors.Is(err, btree.ErrDuplicateKey) {
			return Result{Output: err.Error()}, nil
		}
		return Result{}, err
	}
	return Result{Output: "Executed."}, nil
}

func execSelect(tree *btree.Tree) (Result, error) {
	cur, err := tree.StartOfTable()
	if err != nil {
		return Result{}, err
	}

	var lines []string
	for !cur.End() {
		v, err := cur.Value()
		if err != nil {
			return Result{}, err
		}
		r := row.Decode(v)
		lines = append(lines, fmt.Sprintf("(%d, %s, %s)", r.ID, r.Username, r.Email))
		if err := cur.Advance(); err != nil {
			return Result{}, err
		}
	}
	lines = append(lines, "Executed.")

	return Result{Output: strings.Join(lines, "\n")}, nil
}
