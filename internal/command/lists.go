package command

import (
	"bytes"
	"time"

	"github.com/faizanhussain2310/goredis-core/internal/protocol"
	"github.com/faizanhussain2310/goredis-core/internal/store"
)

func byteEq(a, b []byte) bool { return bytes.Equal(a, b) }

// getOrCreateList fetches key as a List, creating it if absent.
// Returns a WrongType error if key holds something else.
func (e *Engine) getOrCreateList(c *Client, key string) (*store.Object, *Error) {
	db := e.db(c)
	o, ok := db.LookupWrite(key)
	if !ok {
		o = store.NewList()
		db.Set(key, o)
		return o, nil
	}
	if o.Kind != store.KindList {
		return nil, errWrongType
	}
	return o, nil
}

func (e *Engine) pushCommand(c *Client, args [][]byte, front bool) []byte {
	var buf []byte
	key := string(args[1])
	// A push to a key with parked BLPOP/BRPOP waiters delivers directly
	// to the oldest waiter instead of being stored (§4.K). The reply
	// counts delivered elements as well as the stored list length.
	delivered := 0
	for _, v := range args[2:] {
		if e.Blocking.Notify(c.DB, key, v) {
			delivered++
			continue
		}
		o, err := e.getOrCreateList(c, key)
		if err != nil {
			return encodeError(buf, err)
		}
		if front {
			o.List().PushFront(v)
		} else {
			o.List().PushBack(v)
		}
	}
	c.dirty = true
	db := e.db(c)
	n := 0
	if o, ok := db.LookupRead(key); ok && o.Kind == store.KindList {
		n = o.List().Len()
	}
	return protocol.AppendInteger(buf, int64(n+delivered))
}

func (e *Engine) cmdLPush(c *Client, args [][]byte) []byte { return e.pushCommand(c, args, true) }
func (e *Engine) cmdRPush(c *Client, args [][]byte) []byte { return e.pushCommand(c, args, false) }

func (e *Engine) popCommand(c *Client, key string, front bool) ([]byte, bool) {
	db := e.db(c)
	o, ok := db.LookupWrite(key)
	if !ok || o.Kind != store.KindList {
		return nil, false
	}
	var v []byte
	if front {
		v, ok = o.List().PopFront()
	} else {
		v, ok = o.List().PopBack()
	}
	if !ok {
		return nil, false
	}
	if o.List().Len() == 0 {
		db.Delete(key)
	}
	return v, true
}

func (e *Engine) cmdLPop(c *Client, args [][]byte) []byte {
	var buf []byte
	db := e.db(c)
	if o, ok := db.LookupRead(string(args[1])); ok {
		if err := typeCheck(o, store.KindList); err != nil {
			return encodeError(buf, err)
		}
	}
	v, ok := e.popCommand(c, string(args[1]), true)
	if !ok {
		return protocol.AppendNilBulk(buf)
	}
	c.dirty = true
	return protocol.AppendBulk(buf, v)
}

func (e *Engine) cmdRPop(c *Client, args [][]byte) []byte {
	var buf []byte
	db := e.db(c)
	if o, ok := db.LookupRead(string(args[1])); ok {
		if err := typeCheck(o, store.KindList); err != nil {
			return encodeError(buf, err)
		}
	}
	v, ok := e.popCommand(c, string(args[1]), false)
	if !ok {
		return protocol.AppendNilBulk(buf)
	}
	c.dirty = true
	return protocol.AppendBulk(buf, v)
}

// blockingPop implements BLPOP/BRPOP (§4.K): try every key in order
// first (non-blocking), and only park the client if all are empty.
func (e *Engine) blockingPop(c *Client, args [][]byte, front bool) []byte {
	var buf []byte
	keys := make([]string, len(args)-2)
	for i, k := range args[1 : len(args)-1] {
		keys[i] = string(k)
	}
	timeoutArg, perr := parseFloat(args[len(args)-1])
	if perr != nil || timeoutArg < 0 {
		return encodeError(buf, errOutOfRange("timeout is negative"))
	}

	for _, k := range keys {
		if v, ok := e.popCommand(c, k, front); ok {
			c.dirty = true
			buf = protocol.AppendArrayHeader(buf, 2)
			buf = protocol.AppendBulk(buf, []byte(k))
			return protocol.AppendBulk(buf, v)
		}
	}

	var deadline time.Time
	if timeoutArg > 0 {
		deadline = time.Now().Add(time.Duration(timeoutArg * float64(time.Second)))
	}
	// Release the keyspace lock while parked: the server holds it for
	// the duration of Dispatch, and a blocked client must not stall
	// every other connection (§5: suspension points outside a command
	// handler only).
	e.Keyspace.Unlock()
	key, v, ok := e.Blocking.Wait(c.DB, keys, deadline)
	e.Keyspace.Lock()
	if !ok {
		return protocol.AppendNilArray(buf)
	}
	c.dirty = true
	buf = protocol.AppendArrayHeader(buf, 2)
	buf = protocol.AppendBulk(buf, []byte(key))
	return protocol.AppendBulk(buf, v)
}

func (e *Engine) cmdBLPop(c *Client, args [][]byte) []byte { return e.blockingPop(c, args, true) }
func (e *Engine) cmdBRPop(c *Client, args [][]byte) []byte { return e.blockingPop(c, args, false) }

func (e *Engine) cmdLLen(c *Client, args [][]byte) []byte {
	var buf []byte
	o, ok := e.db(c).LookupRead(string(args[1]))
	if !ok {
		return protocol.AppendInteger(buf, 0)
	}
	if err := typeCheck(o, store.KindList); err != nil {
		return encodeError(buf, err)
	}
	return protocol.AppendInteger(buf, int64(o.List().Len()))
}

func (e *Engine) cmdLIndex(c *Client, args [][]byte) []byte {
	var buf []byte
	o, ok := e.db(c).LookupRead(string(args[1]))
	if !ok {
		return protocol.AppendNilBulk(buf)
	}
	if err := typeCheck(o, store.KindList); err != nil {
		return encodeError(buf, err)
	}
	idx, perr := parseInt(args[2])
	if perr != nil {
		return encodeError(buf, perr)
	}
	v, ok := o.List().Index(int(idx))
	if !ok {
		return protocol.AppendNilBulk(buf)
	}
	return protocol.AppendBulk(buf, v)
}

func (e *Engine) cmdLSet(c *Client, args [][]byte) []byte {
	var buf []byte
	o, ok := e.db(c).LookupWrite(string(args[1]))
	if !ok {
		return encodeError(buf, errNoSuchKey())
	}
	if err := typeCheck(o, store.KindList); err != nil {
		return encodeError(buf, err)
	}
	idx, perr := parseInt(args[2])
	if perr != nil {
		return encodeError(buf, perr)
	}
	if !o.List().SetIndex(int(idx), args[3]) {
		return encodeError(buf, errOutOfRange("index out of range"))
	}
	c.dirty = true
	return append(buf, protocol.StatusOK...)
}

func (e *Engine) cmdLRange(c *Client, args [][]byte) []byte {
	var buf []byte
	o, ok := e.db(c).LookupRead(string(args[1]))
	if !ok {
		return protocol.AppendArrayHeader(buf, 0)
	}
	if err := typeCheck(o, store.KindList); err != nil {
		return encodeError(buf, err)
	}
	start, perr := parseInt(args[2])
	if perr != nil {
		return encodeError(buf, perr)
	}
	stop, perr := parseInt(args[3])
	if perr != nil {
		return encodeError(buf, perr)
	}
	return protocol.AppendBulkArray(buf, o.List().Range(int(start), int(stop)))
}

func (e *Engine) cmdLTrim(c *Client, args [][]byte) []byte {
	var buf []byte
	db := e.db(c)
	key := string(args[1])
	o, ok := db.LookupWrite(key)
	if !ok {
		return append(buf, protocol.StatusOK...)
	}
	if err := typeCheck(o, store.KindList); err != nil {
		return encodeError(buf, err)
	}
	start, perr := parseInt(args[2])
	if perr != nil {
		return encodeError(buf, perr)
	}
	stop, perr := parseInt(args[3])
	if perr != nil {
		return encodeError(buf, perr)
	}
	o.List().Trim(int(start), int(stop))
	if o.List().Len() == 0 {
		db.Delete(key)
	}
	c.dirty = true
	return append(buf, protocol.StatusOK...)
}

func (e *Engine) cmdLRem(c *Client, args [][]byte) []byte {
	var buf []byte
	db := e.db(c)
	key := string(args[1])
	o, ok := db.LookupWrite(key)
	if !ok {
		return protocol.AppendInteger(buf, 0)
	}
	if err := typeCheck(o, store.KindList); err != nil {
		return encodeError(buf, err)
	}
	count, perr := parseInt(args[2])
	if perr != nil {
		return encodeError(buf, perr)
	}
	n := o.List().RemoveMatching(int(count), args[3], byteEq)
	if o.List().Len() == 0 {
		db.Delete(key)
	}
	if n > 0 {
		c.dirty = true
	}
	return protocol.AppendInteger(buf, int64(n))
}

func (e *Engine) cmdRPopLPush(c *Client, args [][]byte) []byte {
	var buf []byte
	src, dst := string(args[1]), string(args[2])
	db := e.db(c)
	if o, ok := db.LookupRead(src); ok {
		if err := typeCheck(o, store.KindList); err != nil {
			return encodeError(buf, err)
		}
	}
	if o, ok := db.LookupRead(dst); ok {
		if err := typeCheck(o, store.KindList); err != nil {
			return encodeError(buf, err)
		}
	}
	v, ok := e.popCommand(c, src, false)
	if !ok {
		return protocol.AppendNilBulk(buf)
	}
	if e.Blocking.Notify(c.DB, dst, v) {
		c.dirty = true
		return protocol.AppendBulk(buf, v)
	}
	dstO, err := e.getOrCreateList(c, dst)
	if err != nil {
		return encodeError(buf, err)
	}
	dstO.List().PushFront(v)
	c.dirty = true
	return protocol.AppendBulk(buf, v)
}
