package rdb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/faizanhussain2310/goredis-core/internal/store"
)

func newTestKeyspace() *store.Keyspace {
	return store.NewKeyspace(1, 64, 512)
}

// TestSnapshotRoundTrip matches spec §8 scenario 5: every data type,
// plus a TTL, survives a save/load cycle intact.
func TestSnapshotRoundTrip(t *testing.T) {
	ks := newTestKeyspace()
	db := ks.DB(0)

	db.Set("str", store.NewString([]byte("hello")))
	db.SetExpire("str", time.Now().Add(10*time.Second))

	l := store.NewList()
	l.List().PushBack([]byte("a"))
	l.List().PushBack([]byte("b"))
	db.Set("list", l)

	s := store.NewSet()
	s.Set().Add([]byte("x"))
	s.Set().Add([]byte("y"))
	db.Set("set", s)

	z := store.NewZSet()
	z.ZSet().Add([]byte("m1"), 1.5)
	z.ZSet().Add([]byte("m2"), 2.5)
	db.Set("zset", z)

	h := store.NewHash(64, 512)
	h.Hash().Set([]byte("f1"), []byte("v1"))
	db.Set("hash", h)

	path := filepath.Join(t.TempDir(), "dump.rdb")
	mgr := NewManager(path, true, ks, 64, 512)
	require.NoError(t, mgr.Save())

	ks2 := newTestKeyspace()
	mgr2 := NewManager(path, true, ks2, 64, 512)
	require.NoError(t, mgr2.Load())
	db2 := ks2.DB(0)

	o, ok := db2.LookupRead("str")
	require.True(t, ok)
	require.Equal(t, []byte("hello"), o.Bytes())
	ttl, hasTTL := db2.GetExpire("str")
	require.True(t, hasTTL)
	require.Greater(t, ttl, time.Duration(0))

	o, ok = db2.LookupRead("list")
	require.True(t, ok)
	require.Equal(t, [][]byte{[]byte("a"), []byte("b")}, o.List().ToSlice())

	o, ok = db2.LookupRead("set")
	require.True(t, ok)
	require.ElementsMatch(t, [][]byte{[]byte("x"), []byte("y")}, o.Set().Members())

	o, ok = db2.LookupRead("zset")
	require.True(t, ok)
	score, ok := o.ZSet().Score([]byte("m1"))
	require.True(t, ok)
	require.Equal(t, 1.5, score)

	o, ok = db2.LookupRead("hash")
	require.True(t, ok)
	v, ok := o.Hash().Get([]byte("f1"))
	require.True(t, ok)
	require.Equal(t, []byte("v1"), v)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	ks := newTestKeyspace()
	mgr := NewManager(filepath.Join(t.TempDir(), "nope.rdb"), true, ks, 64, 512)
	require.NoError(t, mgr.Load())
}

func TestSnapshotSkipsEmptyDatabases(t *testing.T) {
	ks := store.NewKeyspace(3, 64, 512)
	ks.DB(1).Set("only", store.NewString([]byte("v")))

	path := filepath.Join(t.TempDir(), "dump.rdb")
	mgr := NewManager(path, false, ks, 64, 512)
	require.NoError(t, mgr.Save())

	ks2 := store.NewKeyspace(3, 64, 512)
	mgr2 := NewManager(path, false, ks2, 64, 512)
	require.NoError(t, mgr2.Load())
	require.Equal(t, 0, ks2.DB(0).Size())
	require.Equal(t, 1, ks2.DB(1).Size())
}

func TestBGSaveRefusesConcurrentSave(t *testing.T) {
	ks := newTestKeyspace()
	ks.DB(0).Set("k", store.NewString([]byte("v")))
	path := filepath.Join(t.TempDir(), "dump.rdb")
	mgr := NewManager(path, true, ks, 64, 512)

	require.NoError(t, mgr.BGSave())
	err := mgr.BGSave()
	if err != nil {
		require.Contains(t, err.Error(), "already in progress")
	}
}

func TestIntegerEncodedStringsRoundTrip(t *testing.T) {
	ks := newTestKeyspace()
	db := ks.DB(0)
	for _, n := range []int64{0, -1, 127, -128, 32767, -32768, 2147483647, -2147483648} {
		db.Set("k", store.NewStringFromInt(n))

		path := filepath.Join(t.TempDir(), "dump.rdb")
		mgr := NewManager(path, true, ks, 64, 512)
		require.NoError(t, mgr.Save())

		ks2 := newTestKeyspace()
		mgr2 := NewManager(path, true, ks2, 64, 512)
		require.NoError(t, mgr2.Load())

		o, ok := ks2.DB(0).LookupRead("k")
		require.True(t, ok)
		got, ok := o.Int64()
		require.True(t, ok)
		require.Equal(t, n, got)
	}
}
