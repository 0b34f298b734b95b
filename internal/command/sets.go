package command

import (
	"github.com/faizanhussain2310/goredis-core/internal/protocol"
	"github.com/faizanhussain2310/goredis-core/internal/store"
)

func (e *Engine) getOrCreateSet(c *Client, key string) (*store.Object, *Error) {
	db := e.db(c)
	o, ok := db.LookupWrite(key)
	if !ok {
		o = store.NewSet()
		db.Set(key, o)
		return o, nil
	}
	if o.Kind != store.KindSet {
		return nil, errWrongType
	}
	return o, nil
}

func (e *Engine) cmdSAdd(c *Client, args [][]byte) []byte {
	var buf []byte
	o, err := e.getOrCreateSet(c, string(args[1]))
	if err != nil {
		return encodeError(buf, err)
	}
	n := 0
	for _, m := range args[2:] {
		if o.Set().Add(m) {
			n++
		}
	}
	if n > 0 {
		c.dirty = true
	}
	return protocol.AppendInteger(buf, int64(n))
}

func (e *Engine) cmdSRem(c *Client, args [][]byte) []byte {
	var buf []byte
	db := e.db(c)
	key := string(args[1])
	o, ok := db.LookupWrite(key)
	if !ok {
		return protocol.AppendInteger(buf, 0)
	}
	if err := typeCheck(o, store.KindSet); err != nil {
		return encodeError(buf, err)
	}
	n := 0
	for _, m := range args[2:] {
		if o.Set().Remove(m) {
			n++
		}
	}
	if o.Set().Len() == 0 {
		db.Delete(key)
	}
	if n > 0 {
		c.dirty = true
	}
	return protocol.AppendInteger(buf, int64(n))
}

func (e *Engine) cmdSMove(c *Client, args [][]byte) []byte {
	var buf []byte
	db := e.db(c)
	src, dst, member := string(args[1]), string(args[2]), args[3]
	so, ok := db.LookupWrite(src)
	if !ok {
		return protocol.AppendInteger(buf, 0)
	}
	if err := typeCheck(so, store.KindSet); err != nil {
		return encodeError(buf, err)
	}
	if do, ok := db.LookupRead(dst); ok {
		if err := typeCheck(do, store.KindSet); err != nil {
			return encodeError(buf, err)
		}
	}
	if !so.Set().Remove(member) {
		return protocol.AppendInteger(buf, 0)
	}
	if so.Set().Len() == 0 {
		db.Delete(src)
	}
	dstO, err := e.getOrCreateSet(c, dst)
	if err != nil {
		return encodeError(buf, err)
	}
	dstO.Set().Add(member)
	c.dirty = true
	return protocol.AppendInteger(buf, 1)
}

func (e *Engine) cmdSIsMember(c *Client, args [][]byte) []byte {
	var buf []byte
	o, ok := e.db(c).LookupRead(string(args[1]))
	if !ok {
		return protocol.AppendInteger(buf, 0)
	}
	if err := typeCheck(o, store.KindSet); err != nil {
		return encodeError(buf, err)
	}
	if o.Set().IsMember(args[2]) {
		return protocol.AppendInteger(buf, 1)
	}
	return protocol.AppendInteger(buf, 0)
}

func (e *Engine) cmdSCard(c *Client, args [][]byte) []byte {
	var buf []byte
	o, ok := e.db(c).LookupRead(string(args[1]))
	if !ok {
		return protocol.AppendInteger(buf, 0)
	}
	if err := typeCheck(o, store.KindSet); err != nil {
		return encodeError(buf, err)
	}
	return protocol.AppendInteger(buf, int64(o.Set().Len()))
}

func (e *Engine) cmdSPop(c *Client, args [][]byte) []byte {
	var buf []byte
	db := e.db(c)
	key := string(args[1])
	o, ok := db.LookupWrite(key)
	if !ok {
		return protocol.AppendNilBulk(buf)
	}
	if err := typeCheck(o, store.KindSet); err != nil {
		return encodeError(buf, err)
	}
	v, ok := o.Set().Pop()
	if !ok {
		return protocol.AppendNilBulk(buf)
	}
	if o.Set().Len() == 0 {
		db.Delete(key)
	}
	c.dirty = true
	return protocol.AppendBulk(buf, v)
}

func (e *Engine) cmdSRandMember(c *Client, args [][]byte) []byte {
	var buf []byte
	o, ok := e.db(c).LookupRead(string(args[1]))
	if !ok {
		return protocol.AppendNilBulk(buf)
	}
	if err := typeCheck(o, store.KindSet); err != nil {
		return encodeError(buf, err)
	}
	v, ok := o.Set().RandomMember()
	if !ok {
		return protocol.AppendNilBulk(buf)
	}
	return protocol.AppendBulk(buf, v)
}

func (e *Engine) cmdSMembers(c *Client, args [][]byte) []byte {
	var buf []byte
	o, ok := e.db(c).LookupRead(string(args[1]))
	if !ok {
		return protocol.AppendArrayHeader(buf, 0)
	}
	if err := typeCheck(o, store.KindSet); err != nil {
		return encodeError(buf, err)
	}
	return protocol.AppendBulkArray(buf, o.Set().Members())
}

// setsFromKeys resolves args (all keys) to *store.Set values, treating
// an absent key as an empty set and erroring on a non-Set key.
func (e *Engine) setsFromKeys(c *Client, keys [][]byte) ([]*store.Set, *Error) {
	db := e.db(c)
	out := make([]*store.Set, len(keys))
	empty := store.NewSet().Set()
	for i, k := range keys {
		o, ok := db.LookupRead(string(k))
		if !ok {
			out[i] = empty
			continue
		}
		if o.Kind != store.KindSet {
			return nil, errWrongType
		}
		out[i] = o.Set()
	}
	return out, nil
}

func (e *Engine) combineSets(sets []*store.Set, op func(a, b *store.Set) *store.Set) *store.Set {
	if len(sets) == 0 {
		return store.NewSet().Set()
	}
	result := sets[0]
	for _, s := range sets[1:] {
		result = op(result, s)
	}
	return result
}

func (e *Engine) setAlgebra(c *Client, keys [][]byte, op func(a, b *store.Set) *store.Set) ([][]byte, *Error) {
	sets, err := e.setsFromKeys(c, keys)
	if err != nil {
		return nil, err
	}
	return e.combineSets(sets, op).Members(), nil
}

func (e *Engine) cmdSInter(c *Client, args [][]byte) []byte {
	var buf []byte
	members, err := e.setAlgebra(c, args[1:], (*store.Set).Inter)
	if err != nil {
		return encodeError(buf, err)
	}
	return protocol.AppendBulkArray(buf, members)
}

func (e *Engine) cmdSUnion(c *Client, args [][]byte) []byte {
	var buf []byte
	members, err := e.setAlgebra(c, args[1:], (*store.Set).Union)
	if err != nil {
		return encodeError(buf, err)
	}
	return protocol.AppendBulkArray(buf, members)
}

func (e *Engine) cmdSDiff(c *Client, args [][]byte) []byte {
	var buf []byte
	members, err := e.setAlgebra(c, args[1:], (*store.Set).Diff)
	if err != nil {
		return encodeError(buf, err)
	}
	return protocol.AppendBulkArray(buf, members)
}

func (e *Engine) setAlgebraStore(c *Client, args [][]byte, op func(a, b *store.Set) *store.Set) []byte {
	var buf []byte
	dst := string(args[1])
	members, err := e.setAlgebra(c, args[2:], op)
	if err != nil {
		return encodeError(buf, err)
	}
	o := store.NewSet()
	for _, m := range members {
		o.Set().Add(m)
	}
	db := e.db(c)
	if len(members) == 0 {
		db.Delete(dst)
	} else {
		db.Set(dst, o)
	}
	c.dirty = true
	return protocol.AppendInteger(buf, int64(len(members)))
}

func (e *Engine) cmdSInterStore(c *Client, args [][]byte) []byte {
	return e.setAlgebraStore(c, args, (*store.Set).Inter)
}
func (e *Engine) cmdSUnionStore(c *Client, args [][]byte) []byte {
	return e.setAlgebraStore(c, args, (*store.Set).Union)
}
func (e *Engine) cmdSDiffStore(c *Client, args [][]byte) []byte {
	return e.setAlgebraStore(c, args, (*store.Set).Diff)
}
