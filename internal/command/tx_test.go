package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestMultiExecReplyShape matches spec §8 scenario 6 exactly.
func TestMultiExecReplyShape(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	require.Equal(t, "+OK\r\n", run(e, c, "MULTI"))
	require.Equal(t, "+QUEUED\r\n", run(e, c, "SET", "a", "1"))
	require.Equal(t, "+QUEUED\r\n", run(e, c, "INCR", "a"))
	require.Equal(t, "*2\r\n+OK\r\n:2\r\n", run(e, c, "EXEC"))
}

func TestDiscardDropsQueue(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "MULTI")
	run(e, c, "SET", "a", "1")
	require.Equal(t, "+OK\r\n", run(e, c, "DISCARD"))
	require.Equal(t, "$-1\r\n", run(e, c, "GET", "a"))
}

func TestExecWithoutMultiIsError(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()
	require.Contains(t, run(e, c, "EXEC"), "-ERR")
}
