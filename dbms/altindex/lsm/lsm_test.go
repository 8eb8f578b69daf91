package lsm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(filepath.Join(t.TempDir(), "lsm"))
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestInsertAndGetRoundTrip(t *testing.T) {
	ix := openIndex(t)

	require.NoError(t, ix.Insert(1, []byte("hello")))
	v, err := ix.Get(1)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), v)
}

func TestDeleteRemovesKey(t *testing.T) {
	ix := openIndex(t)

	require.NoError(t, ix.Insert(2, []byte("x")))
	require.NoError(t, ix.Delete(2))

	_, err := ix.Get(2)
	require.Error(t, err)
}

func TestRangeScanIsAscendingAndBounded(t *testing.T) {
	ix := openIndex(t)

	for k := int64(0); k < 200; k++ {
		require.NoError(t, ix.Insert(k, []byte{byte(k)}))
	}

	it, err := ix.Range(50, 59)
	require.NoError(t, err)
	defer it.Close()

	var got []int64
	for it.Next() {
		got = append(got, it.Key())
	}
	require.NoError(t, it.Error())
	require.Equal(t, []int64{50, 51, 52, 53, 54, 55, 56, 57, 58, 59}, got)
}

func TestAsIndexSatisfiesBenchIndex(t *testing.T) {
	ix := openIndex(t)
	idx := AsIndex(ix)

	require.NoError(t, idx.Insert(7, []byte("z")))
	v, err := idx.Get(7)
	require.NoError(t, err)
	require.Equal(t, []byte("z"), v)
}
