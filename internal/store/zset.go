package store

// ZMember is a (member, score) pair returned from range queries.
type ZMember struct {
	Member []byte
	Score  float64
}

// ZSet is the sorted-set value of §3: a map from member to score plus
// a skip list ordered by (score, member); both structures are kept
// consistent transactionally within each mutation (§9). Grounded on
// the teacher's internal/storage/zset.go.
type ZSet struct {
	scores map[string]float64
	sl     *skiplist
}

func newZSet() *ZSet {
	return &ZSet{scores: make(map[string]float64), sl: newSkiplist()}
}

func (z *ZSet) Len() int { return len(z.scores) }

func (z *ZSet) Score(member []byte) (float64, bool) {
	s, ok := z.scores[string(member)]
	return s, ok
}

// Add sets member's score unconditionally. Returns true if member is new.
func (z *ZSet) Add(member []byte, score float64) bool {
	k := string(member)
	old, exists := z.scores[k]
	if exists {
		if old == score {
			return false
		}
		z.sl.delete(k, old)
	}
	z.scores[k] = score
	z.sl.insert(k, score)
	return !exists
}

// IncrBy adds delta to member's score (creating it at delta if absent)
// and returns the new score. ZADD and ZINCRBY share this primitive
// (§4.C: "parameterized by increment or replace").
func (z *ZSet) IncrBy(member []byte, delta float64) float64 {
	k := string(member)
	old, exists := z.scores[k]
	next := old + delta
	if exists {
		z.sl.delete(k, old)
	}
	z.scores[k] = next
	z.sl.insert(k, next)
	return next
}

func (z *ZSet) Remove(member []byte) bool {
	k := string(member)
	score, ok := z.scores[k]
	if !ok {
		return false
	}
	delete(z.scores, k)
	z.sl.delete(k, score)
	return true
}

// Rank returns the 0-based ascending rank of member, or -1.
func (z *ZSet) Rank(member []byte) int {
	k := string(member)
	score, ok := z.scores[k]
	if !ok {
		return -1
	}
	return z.sl.rank(k, score) - 1
}

// RevRank returns the 0-based descending rank of member, or -1.
// Inverse of Rank modulo |Z|-1 as required by spec §8.
func (z *ZSet) RevRank(member []byte) int {
	r := z.Rank(member)
	if r == -1 {
		return -1
	}
	return z.Len() - 1 - r
}

func nodeToMember(n *skiplistNode) ZMember {
	return ZMember{Member: []byte(n.member), Score: n.score}
}

// RangeByScore returns members with min <= score <= max, honoring
// exclusivity flags, offset and count (-1 = unbounded), optionally
// reversed.
func (z *ZSet) RangeByScore(min, max float64, minExcl, maxExcl bool, offset, count int, reverse bool) []ZMember {
	var out []ZMember
	if !reverse {
		n := z.sl.firstInScoreRange(min)
		for n != nil && minExcl && n.score == min {
			n = n.forward[0]
		}
		for n != nil && n.score <= max {
			if maxExcl && n.score == max {
				break
			}
			if offset > 0 {
				offset--
			} else {
				out = append(out, nodeToMember(n))
				if count >= 0 && len(out) >= count {
					break
				}
			}
			n = n.forward[0]
		}
	} else {
		n := z.sl.lastInScoreRange(max)
		for n != nil && maxExcl && n.score == max {
			n = n.backward
		}
		for n != nil && n.score >= min {
			if minExcl && n.score == min {
				break
			}
			if offset > 0 {
				offset--
			} else {
				out = append(out, nodeToMember(n))
				if count >= 0 && len(out) >= count {
					break
				}
			}
			n = n.backward
		}
	}
	return out
}

// RangeByRank returns members with 0-based ranks in [start, stop]
// (clamped, inclusive), optionally reversed.
func (z *ZSet) RangeByRank(start, stop int, reverse bool) []ZMember {
	length := z.Len()
	if length == 0 {
		return nil
	}
	if start < 0 {
		start += length
	}
	if stop < 0 {
		stop += length
	}
	if start < 0 {
		start = 0
	}
	if stop >= length {
		stop = length - 1
	}
	if start > stop || start >= length {
		return nil
	}
	var startRank, stopRank int
	if reverse {
		startRank = length - stop
		stopRank = length - start
	} else {
		startRank = start + 1
		stopRank = stop + 1
	}
	out := make([]ZMember, 0, stopRank-startRank+1)
	n := z.sl.byRank(startRank)
	for r := startRank; r <= stopRank && n != nil; r++ {
		out = append(out, nodeToMember(n))
		n = n.forward[0]
	}
	if reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

func (z *ZSet) CountByScore(min, max float64, minExcl, maxExcl bool) int {
	return len(z.RangeByScore(min, max, minExcl, maxExcl, 0, -1, false))
}

func (z *ZSet) RemoveRangeByScore(min, max float64, minExcl, maxExcl bool) int {
	members := z.RangeByScore(min, max, minExcl, maxExcl, 0, -1, false)
	for _, m := range members {
		z.Remove(m.Member)
	}
	return len(members)
}

func (z *ZSet) RemoveRangeByRank(start, stop int) int {
	members := z.RangeByRank(start, stop, false)
	for _, m := range members {
		z.Remove(m.Member)
	}
	return len(members)
}

func (z *ZSet) All() []ZMember {
	if z.Len() == 0 {
		return nil
	}
	return z.RangeByRank(0, z.Len()-1, false)
}
