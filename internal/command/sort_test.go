package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSortNumericAscDesc(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "RPUSH", "l", "3", "1", "2")
	require.Equal(t, "*3\r\n$1\r\n1\r\n$1\r\n2\r\n$1\r\n3\r\n", run(e, c, "SORT", "l"))
	require.Equal(t, "*3\r\n$1\r\n3\r\n$1\r\n2\r\n$1\r\n1\r\n", run(e, c, "SORT", "l", "DESC"))
}

func TestSortAlpha(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "RPUSH", "l", "banana", "apple", "cherry")
	require.Equal(t, "*3\r\n$5\r\napple\r\n$6\r\nbanana\r\n$6\r\ncherry\r\n", run(e, c, "SORT", "l", "ALPHA"))
}

func TestSortByPatternNoStar(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "RPUSH", "l", "3", "1", "2")
	// BY with no '*' skips sorting entirely (§4.C).
	require.Equal(t, "*3\r\n$1\r\n3\r\n$1\r\n1\r\n$1\r\n2\r\n", run(e, c, "SORT", "l", "BY", "nosort"))
}

func TestSortLimit(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "RPUSH", "l", "5", "4", "3", "2", "1")
	require.Equal(t, "*2\r\n$1\r\n2\r\n$1\r\n3\r\n", run(e, c, "SORT", "l", "LIMIT", "1", "2"))
}

func TestSortStore(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "RPUSH", "l", "3", "1", "2")
	require.Equal(t, ":3\r\n", run(e, c, "SORT", "l", "STORE", "dst"))
	require.Equal(t, "*3\r\n$1\r\n1\r\n$1\r\n2\r\n$1\r\n3\r\n", run(e, c, "LRANGE", "dst", "0", "-1"))
}

func TestSortGetPattern(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "RPUSH", "l", "1", "2")
	run(e, c, "SET", "weight_1", "b")
	run(e, c, "SET", "weight_2", "a")
	run(e, c, "SET", "data_1", "one")
	run(e, c, "SET", "data_2", "two")

	got := run(e, c, "SORT", "l", "BY", "weight_*", "GET", "data_*", "ALPHA")
	require.Equal(t, "*2\r\n$3\r\ntwo\r\n$3\r\none\r\n", got)
}

// TestSortByMissingPattern pins down the spec §9 open question: a BY
// pattern resolving to a missing key sorts that element as if its BY
// value were the empty string; this test checks ascending ALPHA order.
func TestSortByMissingPattern(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	run(e, c, "RPUSH", "l", "1", "2", "3")
	run(e, c, "SET", "weight_2", "z")
	// weight_1 and weight_3 are missing; both sort as "" ahead of "z".
	got := run(e, c, "SORT", "l", "BY", "weight_*", "ALPHA")
	require.Equal(t, "*3\r\n$1\r\n1\r\n$1\r\n3\r\n$1\r\n2\r\n", got)
}
