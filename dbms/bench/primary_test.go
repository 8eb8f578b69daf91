package bench

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relicdb/storedb/dbms/btree"
	"github.com/relicdb/storedb/dbms/pager"
)

func openPrimary(t *testing.T) PrimaryIndex {
	t.Helper()
	pg, err := pager.Open(filepath.Join(t.TempDir(), "primary.db"))
	require.NoError(t, err)
	tree, err := btree.Open(pg)
	require.NoError(t, err)
	return PrimaryIndex{Tree: tree}
}

func TestPrimaryIndexInsertAndGet(t *testing.T) {
	idx := openPrimary(t)
	defer idx.Close()

	value := syntheticValue(3)
	require.NoError(t, idx.Insert(3, value))

	got, err := idx.Get(3)
	require.NoError(t, err)
	require.Equal(t, value, got)
}

func TestPrimaryIndexGetMissingKeyReturnsNil(t *testing.T) {
	idx := openPrimary(t)
	defer idx.Close()

	got, err := idx.Get(42)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestPrimaryIndexRangeIsAscendingAndBounded(t *testing.T) {
	idx := openPrimary(t)
	defer idx.Close()

	for k := int64(0); k < 50; k++ {
		require.NoError(t, idx.Insert(k, syntheticValue(k)))
	}

	it, err := idx.Range(10, 15)
	require.NoError(t, err)

	var got []int64
	for it.Next() {
		got = append(got, it.Key())
	}
	require.NoError(t, it.Error())
	require.Equal(t, []int64{10, 11, 12, 13, 14, 15}, got)
}

func TestExecuteWorkloadDoesNotPanicAgainstPrimaryIndex(t *testing.T) {
	idx := openPrimary(t)
	defer idx.Close()

	for k := int64(0); k < 20; k++ {
		require.NoError(t, idx.Insert(k, syntheticValue(k)))
	}

	ExecuteWorkload(idx, OLTP, 10)
	ExecuteWorkload(idx, Reporting, 5)
}
