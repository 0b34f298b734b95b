package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypeCommand(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "SET", "s", "v")
	run(e, c, "RPUSH", "l", "v")
	run(e, c, "SADD", "st", "v")
	run(e, c, "ZADD", "z", "1", "v")
	run(e, c, "HSET", "h", "f", "v")

	require.Equal(t, "+string\r\n", run(e, c, "TYPE", "s"))
	require.Equal(t, "+list\r\n", run(e, c, "TYPE", "l"))
	require.Equal(t, "+set\r\n", run(e, c, "TYPE", "st"))
	require.Equal(t, "+zset\r\n", run(e, c, "TYPE", "z"))
	require.Equal(t, "+hash\r\n", run(e, c, "TYPE", "h"))
	require.Equal(t, "+none\r\n", run(e, c, "TYPE", "missing"))
}

func TestRenameAndRenameNX(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "SET", "a", "1")
	require.Equal(t, "+OK\r\n", run(e, c, "RENAME", "a", "b"))
	require.Equal(t, "$1\r\n1\r\n", run(e, c, "GET", "b"))

	run(e, c, "SET", "c", "2")
	require.Equal(t, ":0\r\n", run(e, c, "RENAMENX", "c", "b"))
}

func TestRenameMissingSourceIsError(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()
	require.Contains(t, run(e, c, "RENAME", "nope", "dst"), "-ERR")
}

func TestMoveBetweenDatabases(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "SET", "k", "v")
	require.Equal(t, ":1\r\n", run(e, c, "MOVE", "k", "1"))
	require.Equal(t, ":0\r\n", run(e, c, "EXISTS", "k"))

	run(e, c, "SELECT", "1")
	require.Equal(t, "$1\r\nv\r\n", run(e, c, "GET", "k"))
}

func TestFlushDBAndDBSize(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "SET", "a", "1")
	run(e, c, "SET", "b", "2")
	require.Equal(t, ":2\r\n", run(e, c, "DBSIZE"))
	run(e, c, "FLUSHDB")
	require.Equal(t, ":0\r\n", run(e, c, "DBSIZE"))
}

// TestExpireTTLRoundTrip checks TTL's reply codes around EXPIRE: a key
// with an expiry reports neither -1 nor -2, a key without one reports
// -1, and a missing key reports -2.
func TestExpireTTLRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "SET", "k", "v")
	run(e, c, "EXPIRE", "k", "100")

	ttl := run(e, c, "TTL", "k")
	require.NotEqual(t, ":-1\r\n", ttl)
	require.NotEqual(t, ":-2\r\n", ttl)

	run(e, c, "SET", "k2", "v")
	require.Equal(t, ":-1\r\n", run(e, c, "TTL", "k2")) // no expiry set
	require.Equal(t, ":-2\r\n", run(e, c, "TTL", "missing"))
}

func TestKeysGlob(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "SET", "foo", "1")
	run(e, c, "SET", "foobar", "1")
	run(e, c, "SET", "baz", "1")

	got := run(e, c, "KEYS", "foo*")
	require.Contains(t, got, "foo")
	require.Contains(t, got, "foobar")
	require.NotContains(t, got, "baz")
}
