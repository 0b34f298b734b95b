package aof

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/faizanhussain2310/goredis-core/internal/command"
	"github.com/faizanhussain2310/goredis-core/internal/store"
)

func TestParseSyncPolicy(t *testing.T) {
	p, err := ParseSyncPolicy("always")
	require.NoError(t, err)
	require.Equal(t, SyncAlways, p)

	_, err = ParseSyncPolicy("bogus")
	require.Error(t, err)
}

func TestFeedAndReplay(t *testing.T) {
	ks := store.NewKeyspace(2, 64, 512)
	path := filepath.Join(t.TempDir(), "appendonly.aof")

	log, err := Open(path, SyncAlways, ks)
	require.NoError(t, err)

	log.Feed(0, [][]byte{[]byte("SET"), []byte("k"), []byte("v")})
	log.Feed(0, [][]byte{[]byte("INCR"), []byte("ctr")})
	require.NoError(t, log.Close())

	ks2 := store.NewKeyspace(2, 64, 512)
	engine := command.NewEngine(ks2)
	require.NoError(t, Load(path, engine))

	o, ok := ks2.DB(0).LookupRead("k")
	require.True(t, ok)
	require.Equal(t, []byte("v"), o.Bytes())

	o, ok = ks2.DB(0).LookupRead("ctr")
	require.True(t, ok)
	n, ok := o.Int64()
	require.True(t, ok)
	require.Equal(t, int64(1), n)
}

func TestFeedEmitsSelectOnDBChange(t *testing.T) {
	ks := store.NewKeyspace(2, 64, 512)
	path := filepath.Join(t.TempDir(), "appendonly.aof")

	log, err := Open(path, SyncAlways, ks)
	require.NoError(t, err)
	log.Feed(0, [][]byte{[]byte("SET"), []byte("a"), []byte("1")})
	log.Feed(1, [][]byte{[]byte("SET"), []byte("b"), []byte("2")})
	require.NoError(t, log.Close())

	ks2 := store.NewKeyspace(2, 64, 512)
	engine := command.NewEngine(ks2)
	require.NoError(t, Load(path, engine))

	require.True(t, ks2.DB(0).Exists("a"))
	require.True(t, ks2.DB(1).Exists("b"))
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	ks := store.NewKeyspace(1, 64, 512)
	engine := command.NewEngine(ks)
	require.NoError(t, Load(filepath.Join(t.TempDir(), "nope.aof"), engine))
}

func TestBGRewriteCompactsToMinimalCommands(t *testing.T) {
	ks := store.NewKeyspace(1, 64, 512)
	db := ks.DB(0)
	db.Set("k", store.NewString([]byte("final")))
	db.SetExpire("k", time.Now().Add(time.Hour))

	path := filepath.Join(t.TempDir(), "appendonly.aof")
	log, err := Open(path, SyncAlways, ks)
	require.NoError(t, err)
	log.Feed(0, [][]byte{[]byte("SET"), []byte("k"), []byte("stale")})
	log.Feed(0, [][]byte{[]byte("SET"), []byte("k"), []byte("final")})

	require.NoError(t, log.BGRewrite())
	require.Eventually(t, func() bool {
		log.rewriteMu.Lock()
		defer log.rewriteMu.Unlock()
		return !log.rewriting
	}, time.Second, time.Millisecond)
	require.NoError(t, log.Close())

	data, rerr := os.ReadFile(path)
	require.NoError(t, rerr)
	require.NotContains(t, string(data), "stale")

	ks2 := store.NewKeyspace(1, 64, 512)
	engine := command.NewEngine(ks2)
	require.NoError(t, Load(path, engine))
	o, ok := ks2.DB(0).LookupRead("k")
	require.True(t, ok)
	require.Equal(t, []byte("final"), o.Bytes())
}

func TestBGRewriteRefusesConcurrentRewrite(t *testing.T) {
	ks := store.NewKeyspace(1, 64, 512)
	path := filepath.Join(t.TempDir(), "appendonly.aof")
	log, err := Open(path, SyncAlways, ks)
	require.NoError(t, err)
	defer log.Close()

	require.NoError(t, log.BGRewrite())
	err = log.BGRewrite()
	if err != nil {
		require.Contains(t, err.Error(), "already in progress")
	}
}
