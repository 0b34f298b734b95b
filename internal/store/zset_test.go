package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZSetAddAndScore(t *testing.T) {
	z := newZSet()
	require.True(t, z.Add([]byte("a"), 1.5))
	require.False(t, z.Add([]byte("a"), 2.5))

	s, ok := z.Score([]byte("a"))
	require.True(t, ok)
	require.Equal(t, 2.5, s)
}

func TestZSetRankAndRevRankAreInverses(t *testing.T) {
	z := newZSet()
	z.Add([]byte("a"), 1)
	z.Add([]byte("b"), 2)
	z.Add([]byte("c"), 3)

	require.Equal(t, 0, z.Rank([]byte("a")))
	require.Equal(t, 2, z.Rank([]byte("c")))
	require.Equal(t, z.Len()-1-z.Rank([]byte("a")), z.RevRank([]byte("a")))
	require.Equal(t, -1, z.Rank([]byte("missing")))
}

func TestZSetIncrByCreatesAndUpdates(t *testing.T) {
	z := newZSet()
	got := z.IncrBy([]byte("a"), 5)
	require.Equal(t, 5.0, got)
	got = z.IncrBy([]byte("a"), -2)
	require.Equal(t, 3.0, got)
}

func TestZSetRemove(t *testing.T) {
	z := newZSet()
	z.Add([]byte("a"), 1)
	require.True(t, z.Remove([]byte("a")))
	require.False(t, z.Remove([]byte("a")))
	require.Equal(t, 0, z.Len())
}

func TestZSetRangeByScoreInclusiveExclusive(t *testing.T) {
	z := newZSet()
	z.Add([]byte("a"), 1)
	z.Add([]byte("b"), 2)
	z.Add([]byte("c"), 3)

	got := z.RangeByScore(1, 3, false, false, 0, -1, false)
	require.Len(t, got, 3)

	got = z.RangeByScore(1, 3, true, true, 0, -1, false)
	require.Len(t, got, 1)
	require.Equal(t, "b", string(got[0].Member))
}

func TestZSetRangeByScoreReverse(t *testing.T) {
	z := newZSet()
	z.Add([]byte("a"), 1)
	z.Add([]byte("b"), 2)
	z.Add([]byte("c"), 3)

	got := z.RangeByScore(1, 3, false, false, 0, -1, true)
	require.Equal(t, "c", string(got[0].Member))
	require.Equal(t, "a", string(got[2].Member))
}

func TestZSetRangeByRankNegativeIndices(t *testing.T) {
	z := newZSet()
	z.Add([]byte("a"), 1)
	z.Add([]byte("b"), 2)
	z.Add([]byte("c"), 3)

	got := z.RangeByRank(-2, -1, false)
	require.Len(t, got, 2)
	require.Equal(t, "b", string(got[0].Member))
	require.Equal(t, "c", string(got[1].Member))
}

func TestZSetSkiplistStaysConsistentAcrossScoreChanges(t *testing.T) {
	z := newZSet()
	z.Add([]byte("a"), 10)
	z.Add([]byte("b"), 20)
	z.Add([]byte("a"), 30)

	require.Equal(t, 1, z.Rank([]byte("b")))
	got := z.RangeByRank(0, -1, false)
	require.Equal(t, "b", string(got[0].Member))
	require.Equal(t, "a", string(got[1].Member))
}
