package paging

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/faizanhussain2310/goredis-core/internal/store"
)

func newTestPager(t *testing.T, workers int, maxMemory int64, usedMemory func() int64) (*Pager, *store.Keyspace) {
	t.Helper()
	sf, err := Open(filepath.Join(t.TempDir(), "swap"), 64, 64)
	require.NoError(t, err)
	t.Cleanup(func() { sf.Close() })

	ks := store.NewKeyspace(1, 64, 512)
	p := New(ks, sf, workers, maxMemory, usedMemory, nil)
	p.Start()
	t.Cleanup(p.Stop)
	return p, ks
}

func TestPreloadLoadsSwappedValueAndReturns(t *testing.T) {
	p, ks := newTestPager(t, 2, 0, nil)
	db := ks.DB(0)

	o := store.NewString([]byte("payload"))
	start, count, err := p.sf.Write([]byte("payload"))
	require.NoError(t, err)
	o.SwapOut(start, count)
	db.Set("k", o)

	ks.Lock()
	p.Preload(0, [][]byte{[]byte("k")})
	ks.Unlock()

	got, ok := db.LookupRead("k")
	require.True(t, ok)
	require.Equal(t, store.StorageMemory, got.Storage)
	require.Equal(t, []byte("payload"), got.Bytes())
}

func TestPreloadIsNoopForResidentValues(t *testing.T) {
	p, ks := newTestPager(t, 1, 0, nil)
	db := ks.DB(0)
	db.Set("k", store.NewString([]byte("v")))

	ks.Lock()
	p.Preload(0, [][]byte{[]byte("k")})
	ks.Unlock()

	got, _ := db.LookupRead("k")
	require.Equal(t, store.StorageMemory, got.Storage)
}

func TestMaybeEvictDisabledWithoutMaxMemory(t *testing.T) {
	p, ks := newTestPager(t, 1, 0, nil)
	db := ks.DB(0)
	db.Set("k", store.NewString([]byte("v")))

	p.MaybeEvict()
	got, _ := db.LookupRead("k")
	require.Equal(t, store.StorageMemory, got.Storage)
}

func TestMaybeEvictSwapsOutAResidentString(t *testing.T) {
	p, ks := newTestPager(t, 2, 1, func() int64 { return 1000 })
	db := ks.DB(0)
	db.Set("k", store.NewString([]byte("0123456789")))

	p.MaybeEvict()

	require.Eventually(t, func() bool {
		ks.Lock()
		defer ks.Unlock()
		o, ok := db.LookupRead("k")
		return ok && o.Storage != store.StorageMemory
	}, time.Second, time.Millisecond)
}
