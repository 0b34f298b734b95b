package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSAddSIsMemberSCard(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	require.Equal(t, ":2\r\n", run(e, c, "SADD", "s", "a", "b"))
	require.Equal(t, ":0\r\n", run(e, c, "SADD", "s", "a"))
	require.Equal(t, ":1\r\n", run(e, c, "SISMEMBER", "s", "a"))
	require.Equal(t, ":0\r\n", run(e, c, "SISMEMBER", "s", "z"))
	require.Equal(t, ":2\r\n", run(e, c, "SCARD", "s"))
}

func TestSRemAndSPop(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "SADD", "s", "a", "b", "c")
	require.Equal(t, ":1\r\n", run(e, c, "SREM", "s", "a"))
	require.Equal(t, ":2\r\n", run(e, c, "SCARD", "s"))

	popped := run(e, c, "SPOP", "s")
	require.Contains(t, popped, "$1\r\n")
	require.Equal(t, ":1\r\n", run(e, c, "SCARD", "s"))
}

func TestSMove(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "SADD", "src", "a", "b")
	require.Equal(t, ":1\r\n", run(e, c, "SMOVE", "src", "dst", "a"))
	require.Equal(t, ":0\r\n", run(e, c, "SISMEMBER", "src", "a"))
	require.Equal(t, ":1\r\n", run(e, c, "SISMEMBER", "dst", "a"))
}

func TestSInterSUnionSDiff(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "SADD", "a", "1", "2", "3")
	run(e, c, "SADD", "b", "2", "3", "4")

	require.Equal(t, ":2\r\n", run(e, c, "SINTERSTORE", "inter", "a", "b"))
	require.Equal(t, ":4\r\n", run(e, c, "SUNIONSTORE", "union", "a", "b"))
	require.Equal(t, ":1\r\n", run(e, c, "SDIFFSTORE", "diff", "a", "b"))
}

func TestSetOnWrongTypeErrors(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "SET", "k", "v")
	reply := run(e, c, "SADD", "k", "x")
	require.Contains(t, reply, "WRONGTYPE")
}
