package repl

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relicdb/storedb/dbms/btree"
	"github.com/relicdb/storedb/dbms/pager"
)

func openTestTree(t *testing.T) *btree.Tree {
	t.Helper()
	pg, err := pager.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	tree, err := btree.Open(pg)
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })
	return tree
}

func TestInsertThenSelectRoundTrip(t *testing.T) {
	tree := openTestTree(t)

	res, err := Execute(tree, "insert 1 user1 person1@example.com")
	require.NoError(t, err)
	require.Equal(t, "Executed.", res.Output)

	res, err = Execute(tree, "select")
	require.NoError(t, err)
	require.Equal(t, "(1, user1, person1@example.com)\nExecuted.", res.Output)
}

func TestDuplicateKeyRejected(t *testing.T) {
	tree := openTestTree(t)

	_, err := Execute(tree, "insert 1 user1 person1@example.com")
	require.NoError(t, err)

	res, err := Execute(tree, "insert 1 user1 person1@example.com")
	require.NoError(t, err)
	require.Equal(t, "Error: Duplicate key.", res.Output)
}

func TestNegativeIDRejected(t *testing.T) {
	tree := openTestTree(t)

	res, err := Execute(tree, "insert -1 cstack foo@bar.com")
	require.NoError(t, err)
	require.Equal(t, "ID must be positive.", res.Output)
}

func TestStringTooLongRejected(t *testing.T) {
	tree := openTestTree(t)

	longEmail := make([]byte, 256)
	for i := range longEmail {
		longEmail[i] = 'a'
	}

	res, err := Execute(tree, "insert 1 cstack "+string(longEmail))
	require.NoError(t, err)
	require.Equal(t, "String is too long.", res.Output)
}

func TestNegativeIDWinsOverStringTooLong(t *testing.T) {
	tree := openTestTree(t)

	longUsername := make([]byte, 33)
	for i := range longUsername {
		longUsername[i] = 'a'
	}

	res, err := Execute(tree, "insert -1 "+string(longUsername)+" foo@bar.com")
	require.NoError(t, err)
	require.Equal(t, "ID must be positive.", res.Output)
}

func TestSyntaxErrorOnMalformedInsert(t *testing.T) {
	tree := openTestTree(t)

	res, err := Execute(tree, "insert 1 user1")
	require.NoError(t, err)
	require.Equal(t, "Syntax error. Could not parse statement.", res.Output)
}

func TestUnrecognizedKeyword(t *testing.T) {
	tree := openTestTree(t)

	res, err := Execute(tree, "foo bar")
	require.NoError(t, err)
	require.Equal(t, "Unrecognized keyword at start of 'foo bar'.", res.Output)
}

func TestUnrecognizedMetaCommand(t *testing.T) {
	tree := openTestTree(t)

	res, err := Execute(tree, ".foo")
	require.NoError(t, err)
	require.Equal(t, "Unrecognized command '.foo'.", res.Output)
}

func TestConstantsDumpIsBitExact(t *testing.T) {
	tree := openTestTree(t)

	res, err := Execute(tree, ".constants")
	require.NoError(t, err)
	require.Equal(t, "Constants:\n"+
		"ROW_SIZE: 293\n"+
		"COMMON_NODE_HEADER_SIZE: 6\n"+
		"LEAF_NODE_HEADER_SIZE: 10\n"+
		"LEAF_NODE_CELL_SIZE: 297\n"+
		"LEAF_NODE_SPACE_FOR_CELLS: 4086\n"+
		"LEAF_NODE_MAX_CELLS: 13", res.Output)
}

func TestBtreeDumpOneLeaf(t *testing.T) {
	tree := openTestTree(t)

	for _, line := range []string{
		"insert 3 user3 person3@example.com",
		"insert 1 user1 person1@example.com",
		"insert 2 user2 person2@example.com",
	} {
		_, err := Execute(tree, line)
		require.NoError(t, err)
	}

	res, err := Execute(tree, ".btree")
	require.NoError(t, err)
	require.Equal(t, "Tree:\nleaf (size 3)\n  - 0 : 1\n  - 1 : 2\n  - 2 : 3", res.Output)
}

func TestExitClosesAndSignalsStop(t *testing.T) {
	tree := openTestTree(t)

	res, err := Execute(tree, ".exit")
	require.NoError(t, err)
	require.True(t, res.Exit)
}

func TestMaxLengthStringsAccepted(t *testing.T) {
	tree := openTestTree(t)

	username := make([]byte, 32)
	email := make([]byte, 255)
	for i := range username {
		username[i] = 'a'
	}
	for i := range email {
		email[i] = 'a'
	}

	res, err := Execute(tree, "insert 1 "+string(username)+" "+string(email))
	require.NoError(t, err)
	require.Equal(t, "Executed.", res.Output)
}
