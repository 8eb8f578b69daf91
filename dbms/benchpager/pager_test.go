package benchpager

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "bench.db")
}

func TestOpenFreshFileStartsAtOnePage(t *testing.T) {
	p, err := Open(tempPath(t), 16)
	require.NoError(t, err)
	defer p.Close()

	require.Equal(t, uint64(1), p.PageCount())
}

func TestAllocateGrowsUnboundedPastCacheSize(t *testing.T) {
	p, err := Open(tempPath(t), 4)
	require.NoError(t, err)
	defer p.Close()

	var last uint64
	for i := 0; i < 1000; i++ {
		id, err := p.Allocate()
		require.NoError(t, err)
		last = id
	}
	require.Equal(t, uint64(1000), last)
	require.Equal(t, uint64(1001), p.PageCount())
}

func TestWriteReadRoundTripsThroughEviction(t *testing.T) {
	p, err := Open(tempPath(t), 2)
	require.NoError(t, err)
	defer p.Close()

	ids := make([]uint64, 5)
	for i := range ids {
		id, err := p.Allocate()
		require.NoError(t, err)
		ids[i] = id

		var pg Page
		pg[0] = byte(i)
		require.NoError(t, p.Write(id, &pg))
	}

	for i, id := range ids {
		pg, err := p.Read(id)
		require.NoError(t, err)
		require.Equal(t, byte(i), pg[0])
	}
}

func TestStatsCountsHitsMissesAndEvictions(t *testing.T) {
	p, err := Open(tempPath(t), 2)
	require.NoError(t, err)
	defer p.Close()

	ids := make([]uint64, 3)
	for i := range ids {
		id, err := p.Allocate()
		require.NoError(t, err)
		ids[i] = id
	}

	_, err = p.Read(ids[0]) // miss, cache={0}
	require.NoError(t, err)
	_, err = p.Read(ids[1]) // miss, cache={1,0}
	require.NoError(t, err)
	_, err = p.Read(ids[0]) // hit, cache={0,1}
	require.NoError(t, err)
	_, err = p.Read(ids[2]) // miss, evicts 1, cache={2,0}
	require.NoError(t, err)
	_, err = p.Read(ids[1]) // miss, evicted earlier; evicts 0, cache={1,2}
	require.NoError(t, err)

	stats := p.Stats()
	require.Equal(t, int64(1), stats.Hits)
	require.Equal(t, int64(4), stats.Misses)
	require.Equal(t, int64(2), stats.Evictions)
	require.InDelta(t, 0.2, stats.HitRate(), 0.001)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := tempPath(t)

	p, err := Open(path, 16)
	require.NoError(t, err)
	id, err := p.Allocate()
	require.NoError(t, err)
	var pg Page
	pg[10] = 0x7f
	require.NoError(t, p.Write(id, &pg))
	require.NoError(t, p.Close())

	p2, err := Open(path, 16)
	require.NoError(t, err)
	defer p2.Close()

	require.Equal(t, uint64(2), p2.PageCount())
	reread, err := p2.Read(id)
	require.NoError(t, err)
	require.Equal(t, byte(0x7f), reread[10])
}
