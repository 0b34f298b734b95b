package paging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSwapFileWriteReadRoundTrip(t *testing.T) {
	sf, err := Open(filepath.Join(t.TempDir(), "swap"), 16, 8)
	require.NoError(t, err)
	defer sf.Close()

	start, count, err := sf.Write([]byte("hello world"))
	require.NoError(t, err)
	require.Greater(t, count, 0)

	got, err := sf.Read(start, count)
	require.NoError(t, err)
	require.Equal(t, []byte("hello world"), got)
}

func TestSwapFilePagesForAccountsForLengthPrefix(t *testing.T) {
	sf, err := Open(filepath.Join(t.TempDir(), "swap"), 16, 8)
	require.NoError(t, err)
	defer sf.Close()

	require.Equal(t, 1, sf.PagesFor(10))
	require.Equal(t, 2, sf.PagesFor(16))
}

func TestSwapFileFreeAllowsReuse(t *testing.T) {
	sf, err := Open(filepath.Join(t.TempDir(), "swap"), 16, 1)
	require.NoError(t, err)
	defer sf.Close()

	start, count, err := sf.Write([]byte("0123456789"))
	require.NoError(t, err)
	sf.Free(start, count)

	start2, _, err := sf.Write([]byte("abc"))
	require.NoError(t, err)
	require.Equal(t, start, start2)
}

func TestSwapFileFullReturnsError(t *testing.T) {
	sf, err := Open(filepath.Join(t.TempDir(), "swap"), 16, 1)
	require.NoError(t, err)
	defer sf.Close()

	_, _, err = sf.Write(make([]byte, 100))
	require.Error(t, err)
}
