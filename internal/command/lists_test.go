package command

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLPushOrderIsReversed(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "LPUSH", "l", "a", "b", "c")
	require.Equal(t, ":3\r\n", run(e, c, "LLEN", "l"))
	require.Equal(t, "*3\r\n$1\r\nc\r\n$1\r\nb\r\n$1\r\na\r\n", run(e, c, "LRANGE", "l", "0", "-1"))
}

func TestRPushOrderIsPushOrder(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "RPUSH", "l", "a", "b", "c")
	require.Equal(t, "*3\r\n$1\r\na\r\n$1\r\nb\r\n$1\r\nc\r\n", run(e, c, "LRANGE", "l", "0", "-1"))
}

func TestLPopRPop(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "RPUSH", "l", "a", "b", "c")
	require.Equal(t, "$1\r\na\r\n", run(e, c, "LPOP", "l"))
	require.Equal(t, "$1\r\nc\r\n", run(e, c, "RPOP", "l"))
	require.Equal(t, ":1\r\n", run(e, c, "LLEN", "l"))
}

func TestLPopOnMissingKeyIsNil(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()
	require.Equal(t, "$-1\r\n", run(e, c, "LPOP", "missing"))
}

func TestLIndexNegative(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "RPUSH", "l", "a", "b", "c")
	require.Equal(t, "$1\r\nc\r\n", run(e, c, "LINDEX", "l", "-1"))
	require.Equal(t, "$1\r\na\r\n", run(e, c, "LINDEX", "l", "0"))
}

func TestLTrim(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "RPUSH", "l", "a", "b", "c", "d")
	run(e, c, "LTRIM", "l", "1", "2")
	require.Equal(t, "*2\r\n$1\r\nb\r\n$1\r\nc\r\n", run(e, c, "LRANGE", "l", "0", "-1"))
}

func TestLRem(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "RPUSH", "l", "a", "b", "a", "c", "a")
	require.Equal(t, ":2\r\n", run(e, c, "LREM", "l", "2", "a"))
	require.Equal(t, "*3\r\n$1\r\nb\r\n$1\r\nc\r\n$1\r\na\r\n", run(e, c, "LRANGE", "l", "0", "-1"))
}

func TestRPopLPush(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "RPUSH", "src", "a", "b", "c")
	require.Equal(t, "$1\r\nc\r\n", run(e, c, "RPOPLPUSH", "src", "dst"))
	require.Equal(t, "*2\r\n$1\r\na\r\n$1\r\nb\r\n", run(e, c, "LRANGE", "src", "0", "-1"))
	require.Equal(t, "*1\r\n$1\r\nc\r\n", run(e, c, "LRANGE", "dst", "0", "-1"))
}

// TestBLPopDeliveredByPush exercises the scenario of spec §8.2: a
// client blocked on BLPOP receives the pushed element directly, and
// the list never actually holds it (LLEN stays 0).
func TestBLPopDeliveredByPush(t *testing.T) {
	e := newTestEngine(t)
	c1 := newTestClient()
	c2 := newTestClient()

	var wg sync.WaitGroup
	wg.Add(1)
	var got string
	go func() {
		defer wg.Done()
		got = run(e, c1, "BLPOP", "mylist", "5")
	}()

	// Give the blocked goroutine a moment to register as a waiter.
	time.Sleep(50 * time.Millisecond)

	require.Equal(t, ":1\r\n", run(e, c2, "RPUSH", "mylist", "hello"))
	wg.Wait()

	require.Equal(t, "*2\r\n$6\r\nmylist\r\n$5\r\nhello\r\n", got)
	require.Equal(t, ":0\r\n", run(e, c2, "LLEN", "mylist"))
}

func TestBLPopTimesOutWithNilArray(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	start := time.Now()
	got := run(e, c, "BLPOP", "nokey", "0.1")
	require.Equal(t, "*-1\r\n", got)
	require.True(t, time.Since(start) < 2*time.Second)
}

func TestBLPopImmediateWhenListNonEmpty(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "RPUSH", "l", "x")
	got := run(e, c, "BLPOP", "l", "5")
	require.Equal(t, "*2\r\n$1\r\nl\r\n$1\r\nx\r\n", got)
}
