package pager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

func TestOpenEmptyFileHasZeroPages(t *testing.T) {
	p, err := Open(tempDBPath(t))
	require.NoError(t, err)
	defer p.Close()

	require.Equal(t, 0, p.NumPages())
}

func TestGetPageAllocatesAppend(t *testing.T) {
	p, err := Open(tempDBPath(t))
	require.NoError(t, err)
	defer p.Close()

	pg, err := p.GetPage(0)
	require.NoError(t, err)
	require.NotNil(t, pg)
	require.Equal(t, 1, p.NumPages())

	pg2, err := p.GetPage(1)
	require.NoError(t, err)
	require.NotSame(t, pg, pg2)
	require.Equal(t, 2, p.NumPages())
}

func TestGetPageBeyondNextAppendIsError(t *testing.T) {
	p, err := Open(tempDBPath(t))
	require.NoError(t, err)
	defer p.Close()

	_, err = p.GetPage(3)
	require.Error(t, err)
}

func TestGetPageAtCapReturnsTableFull(t *testing.T) {
	p, err := Open(tempDBPath(t))
	require.NoError(t, err)
	defer p.Close()

	for i := 0; i < MaxPages; i++ {
		_, err := p.GetPage(i)
		require.NoError(t, err)
	}

	_, err = p.GetPage(MaxPages)
	require.ErrorIs(t, err, ErrTableFull)
}

func TestFlushAndReopenPersists(t *testing.T) {
	path := tempDBPath(t)

	p, err := Open(path)
	require.NoError(t, err)

	pg, err := p.GetPage(0)
	require.NoError(t, err)
	pg[0] = 0x42
	p.MarkDirty(0)
	require.NoError(t, p.Close())

	p2, err := Open(path)
	require.NoError(t, err)
	defer p2.Close()

	require.Equal(t, 1, p2.NumPages())
	reread, err := p2.GetPage(0)
	require.NoError(t, err)
	require.Equal(t, byte(0x42), reread[0])
}

func TestOpenRejectsTruncatedFile(t *testing.T) {
	path := tempDBPath(t)

	p, err := Open(path)
	require.NoError(t, err)
	_, err = p.GetPage(0)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	require.NoError(t, os.Truncate(path, PageSize/2))

	_, err = Open(path)
	require.Error(t, err)
}
