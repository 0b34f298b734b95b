package command

import (
	"math"
	"strings"

	"github.com/faizanhussain2310/goredis-core/internal/protocol"
	"github.com/faizanhussain2310/goredis-core/internal/store"
)

func (e *Engine) getOrCreateZSet(c *Client, key string) (*store.Object, *Error) {
	db := e.db(c)
	o, ok := db.LookupWrite(key)
	if !ok {
		o = store.NewZSet()
		db.Set(key, o)
		return o, nil
	}
	if o.Kind != store.KindZSet {
		return nil, errWrongType
	}
	return o, nil
}

func (e *Engine) cmdZAdd(c *Client, args [][]byte) []byte {
	var buf []byte
	if len(args[2:])%2 != 0 {
		return encodeError(buf, errWrongArity("ZADD"))
	}
	o, err := e.getOrCreateZSet(c, string(args[1]))
	if err != nil {
		return encodeError(buf, err)
	}
	added := 0
	for i := 2; i+1 < len(args); i += 2 {
		score, perr := parseFloat(args[i])
		if perr != nil {
			return encodeError(buf, perr)
		}
		if o.ZSet().Add(args[i+1], score) {
			added++
		}
	}
	c.dirty = true
	return protocol.AppendInteger(buf, int64(added))
}

func (e *Engine) cmdZIncrBy(c *Client, args [][]byte) []byte {
	var buf []byte
	score, perr := parseFloat(args[2])
	if perr != nil {
		return encodeError(buf, perr)
	}
	o, err := e.getOrCreateZSet(c, string(args[1]))
	if err != nil {
		return encodeError(buf, err)
	}
	next := o.ZSet().IncrBy(args[3], score)
	c.dirty = true
	return protocol.AppendDouble(buf, next)
}

func (e *Engine) cmdZRem(c *Client, args [][]byte) []byte {
	var buf []byte
	db := e.db(c)
	key := string(args[1])
	o, ok := db.LookupWrite(key)
	if !ok {
		return protocol.AppendInteger(buf, 0)
	}
	if err := typeCheck(o, store.KindZSet); err != nil {
		return encodeError(buf, err)
	}
	n := 0
	for _, m := range args[2:] {
		if o.ZSet().Remove(m) {
			n++
		}
	}
	if o.ZSet().Len() == 0 {
		db.Delete(key)
	}
	if n > 0 {
		c.dirty = true
	}
	return protocol.AppendInteger(buf, int64(n))
}

func writeZMembers(buf []byte, members []store.ZMember, withScores bool) []byte {
	n := len(members)
	if withScores {
		buf = protocol.AppendArrayHeader(buf, n*2)
	} else {
		buf = protocol.AppendArrayHeader(buf, n)
	}
	for _, m := range members {
		buf = protocol.AppendBulk(buf, m.Member)
		if withScores {
			buf = protocol.AppendDouble(buf, m.Score)
		}
	}
	return buf
}

func hasWithScores(args [][]byte) bool {
	if len(args) == 0 {
		return false
	}
	return strings.EqualFold(string(args[len(args)-1]), "WITHSCORES")
}

func (e *Engine) zRangeCommand(c *Client, args [][]byte, reverse bool) []byte {
	var buf []byte
	o, ok := e.db(c).LookupRead(string(args[1]))
	withScores := hasWithScores(args)
	tail := args[2 : len(args)-1]
	if !withScores {
		tail = args[2:]
	}
	if len(tail) != 2 {
		return encodeError(buf, errSyntax())
	}
	if !ok {
		return protocol.AppendArrayHeader(buf, 0)
	}
	if err := typeCheck(o, store.KindZSet); err != nil {
		return encodeError(buf, err)
	}
	start, perr := parseInt(tail[0])
	if perr != nil {
		return encodeError(buf, perr)
	}
	stop, perr := parseInt(tail[1])
	if perr != nil {
		return encodeError(buf, perr)
	}
	return writeZMembers(buf, o.ZSet().RangeByRank(int(start), int(stop), reverse), withScores)
}

func (e *Engine) cmdZRange(c *Client, args [][]byte) []byte    { return e.zRangeCommand(c, args, false) }
func (e *Engine) cmdZRevRange(c *Client, args [][]byte) []byte { return e.zRangeCommand(c, args, true) }

// parseScoreBound parses a ZRANGEBYSCORE-style bound: "(5" is
// exclusive 5, "+inf"/"-inf" are unbounded.
func parseScoreBound(b []byte) (float64, bool, *Error) {
	s := string(b)
	excl := false
	if len(s) > 0 && s[0] == '(' {
		excl = true
		s = s[1:]
	}
	switch strings.ToLower(s) {
	case "+inf":
		return math.Inf(1), excl, nil
	case "-inf":
		return math.Inf(-1), excl, nil
	}
	f, err := parseFloat([]byte(s))
	if err != nil {
		return 0, false, err
	}
	return f, excl, nil
}

func (e *Engine) cmdZRangeByScore(c *Client, args [][]byte) []byte {
	var buf []byte
	min, minExcl, perr := parseScoreBound(args[2])
	if perr != nil {
		return encodeError(buf, perr)
	}
	max, maxExcl, perr := parseScoreBound(args[3])
	if perr != nil {
		return encodeError(buf, perr)
	}
	withScores := false
	offset, count := 0, -1
	rest := args[4:]
	for i := 0; i < len(rest); i++ {
		tok := strings.ToUpper(string(rest[i]))
		switch tok {
		case "WITHSCORES":
			withScores = true
		case "LIMIT":
			if i+2 >= len(rest) {
				return encodeError(buf, errSyntax())
			}
			off, perr := parseInt(rest[i+1])
			if perr != nil {
				return encodeError(buf, perr)
			}
			cnt, perr := parseInt(rest[i+2])
			if perr != nil {
				return encodeError(buf, perr)
			}
			offset, count = int(off), int(cnt)
			i += 2
		default:
			return encodeError(buf, errSyntax())
		}
	}
	o, ok := e.db(c).LookupRead(string(args[1]))
	if !ok {
		return protocol.AppendArrayHeader(buf, 0)
	}
	if err := typeCheck(o, store.KindZSet); err != nil {
		return encodeError(buf, err)
	}
	members := o.ZSet().RangeByScore(min, max, minExcl, maxExcl, offset, count, false)
	return writeZMembers(buf, members, withScores)
}

func (e *Engine) cmdZCount(c *Client, args [][]byte) []byte {
	var buf []byte
	min, minExcl, perr := parseScoreBound(args[2])
	if perr != nil {
		return encodeError(buf, perr)
	}
	max, maxExcl, perr := parseScoreBound(args[3])
	if perr != nil {
		return encodeError(buf, perr)
	}
	o, ok := e.db(c).LookupRead(string(args[1]))
	if !ok {
		return protocol.AppendInteger(buf, 0)
	}
	if err := typeCheck(o, store.KindZSet); err != nil {
		return encodeError(buf, err)
	}
	return protocol.AppendInteger(buf, int64(o.ZSet().CountByScore(min, max, minExcl, maxExcl)))
}

func (e *Engine) cmdZCard(c *Client, args [][]byte) []byte {
	var buf []byte
	o, ok := e.db(c).LookupRead(string(args[1]))
	if !ok {
		return protocol.AppendInteger(buf, 0)
	}
	if err := typeCheck(o, store.KindZSet); err != nil {
		return encodeError(buf, err)
	}
	return protocol.AppendInteger(buf, int64(o.ZSet().Len()))
}

func (e *Engine) cmdZScore(c *Client, args [][]byte) []byte {
	var buf []byte
	o, ok := e.db(c).LookupRead(string(args[1]))
	if !ok {
		return protocol.AppendNilBulk(buf)
	}
	if err := typeCheck(o, store.KindZSet); err != nil {
		return encodeError(buf, err)
	}
	score, ok := o.ZSet().Score(args[2])
	if !ok {
		return protocol.AppendNilBulk(buf)
	}
	return protocol.AppendDouble(buf, score)
}

func (e *Engine) zRankCommand(c *Client, args [][]byte, reverse bool) []byte {
	var buf []byte
	o, ok := e.db(c).LookupRead(string(args[1]))
	if !ok {
		return protocol.AppendNilBulk(buf)
	}
	if err := typeCheck(o, store.KindZSet); err != nil {
		return encodeError(buf, err)
	}
	var r int
	if reverse {
		r = o.ZSet().RevRank(args[2])
	} else {
		r = o.ZSet().Rank(args[2])
	}
	if r < 0 {
		return protocol.AppendNilBulk(buf)
	}
	return protocol.AppendInteger(buf, int64(r))
}

func (e *Engine) cmdZRank(c *Client, args [][]byte) []byte    { return e.zRankCommand(c, args, false) }
func (e *Engine) cmdZRevRank(c *Client, args [][]byte) []byte { return e.zRankCommand(c, args, true) }

func (e *Engine) cmdZRemRangeByScore(c *Client, args [][]byte) []byte {
	var buf []byte
	min, minExcl, perr := parseScoreBound(args[2])
	if perr != nil {
		return encodeError(buf, perr)
	}
	max, maxExcl, perr := parseScoreBound(args[3])
	if perr != nil {
		return encodeError(buf, perr)
	}
	db := e.db(c)
	key := string(args[1])
	o, ok := db.LookupWrite(key)
	if !ok {
		return protocol.AppendInteger(buf, 0)
	}
	if err := typeCheck(o, store.KindZSet); err != nil {
		return encodeError(buf, err)
	}
	n := o.ZSet().RemoveRangeByScore(min, max, minExcl, maxExcl)
	if o.ZSet().Len() == 0 {
		db.Delete(key)
	}
	if n > 0 {
		c.dirty = true
	}
	return protocol.AppendInteger(buf, int64(n))
}

func (e *Engine) cmdZRemRangeByRank(c *Client, args [][]byte) []byte {
	var buf []byte
	start, perr := parseInt(args[2])
	if perr != nil {
		return encodeError(buf, perr)
	}
	stop, perr := parseInt(args[3])
	if perr != nil {
		return encodeError(buf, perr)
	}
	db := e.db(c)
	key := string(args[1])
	o, ok := db.LookupWrite(key)
	if !ok {
		return protocol.AppendInteger(buf, 0)
	}
	if err := typeCheck(o, store.KindZSet); err != nil {
		return encodeError(buf, err)
	}
	n := o.ZSet().RemoveRangeByRank(int(start), int(stop))
	if o.ZSet().Len() == 0 {
		db.Delete(key)
	}
	if n > 0 {
		c.dirty = true
	}
	return protocol.AppendInteger(buf, int64(n))
}

// zSetAlgebra implements ZUNION/ZINTER (§6): combine the named keys'
// sorted sets (plain-set inputs are treated as unit-weight member sets,
// absent keys as empty, and any other kind is a wrong-type error) summing
// scores for members present in more than one input, and reply with
// the resulting members ordered by score.
func (e *Engine) zSetAlgebra(c *Client, args [][]byte, intersect bool) []byte {
	var buf []byte
	db := e.db(c)
	acc := make(map[string]float64)
	seenCount := make(map[string]int)
	for _, k := range args[1:] {
		o, ok := db.LookupRead(string(k))
		if !ok {
			if intersect {
				return protocol.AppendArrayHeader(buf, 0)
			}
			continue
		}
		if o.Kind == store.KindSet {
			for _, m := range o.Set().Members() {
				acc[string(m)] += 1
				seenCount[string(m)]++
			}
			continue
		}
		if o.Kind != store.KindZSet {
			return encodeError(buf, errWrongType)
		}
		for _, m := range o.ZSet().All() {
			key := string(m.Member)
			acc[key] += m.Score
			seenCount[key]++
		}
	}
	result := store.NewZSet()
	total := len(args[1:])
	for member, score := range acc {
		if intersect && seenCount[member] != total {
			continue
		}
		result.ZSet().Add([]byte(member), score)
	}
	return writeZMembers(buf, result.ZSet().All(), false)
}

func (e *Engine) cmdZUnion(c *Client, args [][]byte) []byte { return e.zSetAlgebra(c, args, false) }
func (e *Engine) cmdZInter(c *Client, args [][]byte) []byte { return e.zSetAlgebra(c, args, true) }
