package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExpiryInvariantKeyAbsentAfterPast(t *testing.T) {
	ks := NewKeyspace(1, 64, 512)
	db := ks.DB(0)

	db.Set("k", NewString([]byte("v")))
	db.SetExpire("k", time.Now().Add(-time.Second))

	_, ok := db.LookupRead("k")
	require.False(t, ok)
	require.False(t, db.Exists("k"))
}

func TestDeleteRemovesExpiryToo(t *testing.T) {
	ks := NewKeyspace(1, 64, 512)
	db := ks.DB(0)

	db.Set("k", NewString([]byte("v")))
	db.SetExpire("k", time.Now().Add(time.Hour))
	db.Delete("k")

	_, hasTTL := db.GetExpire("k")
	require.False(t, hasTTL)
}

func TestActiveExpireCycleRemovesPastKeys(t *testing.T) {
	ks := NewKeyspace(1, 64, 512)
	db := ks.DB(0)

	for i := 0; i < 10; i++ {
		key := string(rune('a' + i))
		db.Set(key, NewString([]byte("v")))
		db.SetExpire(key, time.Now().Add(-time.Minute))
	}

	expired := ks.ActiveExpireCycle()
	require.Equal(t, 10, expired)
	require.Equal(t, 0, db.Size())
}

func TestSetDropsPreviousExpiry(t *testing.T) {
	ks := NewKeyspace(1, 64, 512)
	db := ks.DB(0)

	db.Set("k", NewString([]byte("v1")))
	db.SetExpire("k", time.Now().Add(time.Hour))
	db.Set("k", NewString([]byte("v2")))

	_, hasTTL := db.GetExpire("k")
	require.False(t, hasTTL)
}
