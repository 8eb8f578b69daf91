package btree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTree(t *testing.T, cachePages int) *Tree {
	t.Helper()
	tree, err := Open(filepath.Join(t.TempDir(), "alt"), cachePages)
	require.NoError(t, err)
	t.Cleanup(func() { tree.Close() })
	return tree
}

func TestInsertAndGetRoundTrip(t *testing.T) {
	tree := openTree(t, 16)

	require.NoError(t, tree.Insert(5, []byte("hello")))
	v, err := tree.Get(5)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), v)
}

func TestGetMissingKeyReturnsNil(t *testing.T) {
	tree := openTree(t, 16)

	v, err := tree.Get(42)
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestInsertOverwritesExistingKey(t *testing.T) {
	tree := openTree(t, 16)

	require.NoError(t, tree.Insert(1, []byte("a")))
	require.NoError(t, tree.Insert(1, []byte("bb")))

	v, err := tree.Get(1)
	require.NoError(t, err)
	require.Equal(t, []byte("bb"), v)
}

func TestInsertManyKeysForcesMultiLevelSplit(t *testing.T) {
	tree := openTree(t, 32)

	value := make([]byte, 64)
	for k := int64(0); k < 5000; k++ {
		require.NoError(t, tree.Insert(k, value))
	}

	for _, k := range []int64{0, 1234, 4999} {
		v, err := tree.Get(k)
		require.NoError(t, err)
		require.Equal(t, value, v)
	}
}

func TestRangeScanIsAscendingAndBounded(t *testing.T) {
	tree := openTree(t, 32)

	for k := int64(0); k < 500; k++ {
		require.NoError(t, tree.Insert(k, []byte{byte(k)}))
	}

	it, err := tree.Range(100, 110)
	require.NoError(t, err)
	defer it.Close()

	var got []int64
	for it.Next() {
		got = append(got, it.Key())
	}
	require.NoError(t, it.Error())
	require.Equal(t, []int64{100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110}, got)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alt")

	tree, err := Open(path, 16)
	require.NoError(t, err)
	require.NoError(t, tree.Insert(1, []byte("persisted")))
	require.NoError(t, tree.Close())

	reopened, err := Open(path, 16)
	require.NoError(t, err)
	defer reopened.Close()

	v, err := reopened.Get(1)
	require.NoError(t, err)
	require.Equal(t, []byte("persisted"), v)
}

func TestAsIndexSatisfiesBenchIndex(t *testing.T) {
	tree := openTree(t, 16)
	idx := AsIndex(tree)

	require.NoError(t, idx.Insert(9, []byte("z")))
	v, err := idx.Get(9)
	require.NoError(t, err)
	require.Equal(t, []byte("z"), v)
}

func TestInsertAscendingThenOutOfOrderKeyStaysCorrect(t *testing.T) {
	tree := openTree(t, 16)

	for k := int64(0); k < 3000; k++ {
		require.NoError(t, tree.Insert(k, []byte{byte(k)}))
	}
	// A key below everything written so far forces a normal root-to-leaf
	// descent after a long run of tail-appended inserts.
	require.NoError(t, tree.Insert(-1, []byte("neg")))

	v, err := tree.Get(-1)
	require.NoError(t, err)
	require.Equal(t, []byte("neg"), v)

	lastKey := int64(2999)
	v, err = tree.Get(lastKey)
	require.NoError(t, err)
	require.Equal(t, []byte{byte(lastKey)}, v)
}

func TestRightmostLeafTrackingSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alt")

	tree, err := Open(path, 16)
	require.NoError(t, err)
	for k := int64(0); k < 1000; k++ {
		require.NoError(t, tree.Insert(k, []byte{byte(k)}))
	}
	require.NoError(t, tree.Close())

	reopened, err := Open(path, 16)
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.Insert(1000, []byte{42}))
	v, err := reopened.Get(1000)
	require.NoError(t, err)
	require.Equal(t, []byte{42}, v)

	midKey := int64(500)
	v, err = reopened.Get(midKey)
	require.NoError(t, err)
	require.Equal(t, []byte{byte(midKey)}, v)
}

func TestCacheStatsReportsEvictionsUnderPressure(t *testing.T) {
	tree := openTree(t, 4)

	for k := int64(0); k < 2000; k++ {
		require.NoError(t, tree.Insert(k, []byte{byte(k)}))
	}
	for k := int64(0); k < 2000; k++ {
		_, err := tree.Get(k)
		require.NoError(t, err)
	}

	hits, misses, evictions := tree.CacheStats()
	require.Positive(t, misses)
	require.Positive(t, evictions)
	require.GreaterOrEqual(t, hits+misses, int64(2000))
}
