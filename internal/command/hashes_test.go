package command

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHSetHGet(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	require.Equal(t, ":1\r\n", run(e, c, "HSET", "h", "f1", "v1"))
	require.Equal(t, "$2\r\nv1\r\n", run(e, c, "HGET", "h", "f1"))
	require.Equal(t, ":0\r\n", run(e, c, "HSET", "h", "f1", "v2"))
	require.Equal(t, "$2\r\nv2\r\n", run(e, c, "HGET", "h", "f1"))
}

func TestHDelHLenHExists(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "HSET", "h", "a", "1")
	run(e, c, "HSET", "h", "b", "2")
	require.Equal(t, ":2\r\n", run(e, c, "HLEN", "h"))
	require.Equal(t, ":1\r\n", run(e, c, "HEXISTS", "h", "a"))
	require.Equal(t, ":1\r\n", run(e, c, "HDEL", "h", "a"))
	require.Equal(t, ":0\r\n", run(e, c, "HEXISTS", "h", "a"))
}

// TestHashEncodingTransition matches spec §8 scenario 4: compact
// encoding up to hash_max_zipmap_entries, hashtable after.
func TestHashEncodingTransition(t *testing.T) {
	c := newTestClient()

	// newTestEngine builds hash_max_zipmap_entries=64; use a lower
	// watermark here to pin the exact transition point.
	smallE := NewEngine(makeKeyspace(3, 3))

	run(smallE, c, "HSET", "h", "k1", "v1")
	run(smallE, c, "HSET", "h", "k2", "v2")
	run(smallE, c, "HSET", "h", "k3", "v3")
	require.Contains(t, run(smallE, c, "DEBUG", "OBJECT", "h"), "encoding:zipmap")

	run(smallE, c, "HSET", "h", "k4", "v4")
	require.Contains(t, run(smallE, c, "DEBUG", "OBJECT", "h"), "encoding:hashtable")

	// Conversion is one-way and existing fields remain readable.
	require.Equal(t, "$2\r\nv1\r\n", run(smallE, c, "HGET", "h", "k1"))
}

func TestHGetAllAndKeysVals(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "HSET", "h", "a", "1")
	run(e, c, "HSET", "h", "b", "2")

	all := run(e, c, "HGETALL", "h")
	require.True(t, strings.Contains(all, "$1\r\na\r\n") && strings.Contains(all, "$1\r\nb\r\n"))
}
