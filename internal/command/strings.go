package command

import (
	"github.com/faizanhussain2310/goredis-core/internal/protocol"
	"github.com/faizanhussain2310/goredis-core/internal/store"
)

func (e *Engine) db(c *Client) *store.DB { return e.Keyspace.DB(c.DB) }

func (e *Engine) cmdGet(c *Client, args [][]byte) []byte {
	var buf []byte
	o, ok := e.db(c).LookupRead(string(args[1]))
	if !ok {
		return protocol.AppendNilBulk(buf)
	}
	if err := typeCheck(o, store.KindString); err != nil {
		return encodeError(buf, err)
	}
	return protocol.AppendBulk(buf, o.Bytes())
}

func (e *Engine) cmdSet(c *Client, args [][]byte) []byte {
	var buf []byte
	o := store.NewString(args[2])
	o.TryEncode()
	e.db(c).Set(string(args[1]), o)
	c.dirty = true
	return append(buf, protocol.StatusOK...)
}

func (e *Engine) cmdSetNX(c *Client, args [][]byte) []byte {
	var buf []byte
	db := e.db(c)
	if db.Exists(string(args[1])) {
		return protocol.AppendInteger(buf, 0)
	}
	o := store.NewString(args[2])
	o.TryEncode()
	db.Set(string(args[1]), o)
	c.dirty = true
	return protocol.AppendInteger(buf, 1)
}

func (e *Engine) cmdGetSet(c *Client, args [][]byte) []byte {
	var buf []byte
	db := e.db(c)
	key := string(args[1])
	old, ok := db.LookupWrite(key)
	if ok {
		if err := typeCheck(old, store.KindString); err != nil {
			return encodeError(buf, err)
		}
	}
	o := store.NewString(args[2])
	o.TryEncode()
	db.Set(key, o)
	c.dirty = true
	if !ok {
		return protocol.AppendNilBulk(buf)
	}
	return protocol.AppendBulk(buf, old.Bytes())
}

func (e *Engine) cmdAppend(c *Client, args [][]byte) []byte {
	var buf []byte
	db := e.db(c)
	key := string(args[1])
	o, ok := db.LookupWrite(key)
	if !ok {
		o = store.NewString(nil)
		db.Set(key, o)
	} else if err := typeCheck(o, store.KindString); err != nil {
		return encodeError(buf, err)
	}
	o.SetBytes(append(append([]byte{}, o.Bytes()...), args[2]...))
	c.dirty = true
	return protocol.AppendInteger(buf, int64(o.StrLen()))
}

func (e *Engine) cmdSubstr(c *Client, args [][]byte) []byte {
	var buf []byte
	o, ok := e.db(c).LookupRead(string(args[1]))
	if !ok {
		return protocol.AppendBulk(buf, []byte{})
	}
	if err := typeCheck(o, store.KindString); err != nil {
		return encodeError(buf, err)
	}
	start, perr := parseInt(args[2])
	if perr != nil {
		return encodeError(buf, perr)
	}
	end, perr := parseInt(args[3])
	if perr != nil {
		return encodeError(buf, perr)
	}
	b := o.Bytes()
	n := int64(len(b))
	if start < 0 {
		start = n + start
	}
	if end < 0 {
		end = n + end
	}
	if start < 0 {
		start = 0
	}
	if end >= n {
		end = n - 1
	}
	if start > end || n == 0 {
		return protocol.AppendBulk(buf, []byte{})
	}
	return protocol.AppendBulk(buf, b[start:end+1])
}

func (e *Engine) cmdMGet(c *Client, args [][]byte) []byte {
	var buf []byte
	db := e.db(c)
	buf = protocol.AppendArrayHeader(buf, len(args)-1)
	for _, k := range args[1:] {
		o, ok := db.LookupRead(string(k))
		if !ok || o.Kind != store.KindString {
			buf = protocol.AppendNilBulk(buf)
			continue
		}
		buf = protocol.AppendBulk(buf, o.Bytes())
	}
	return buf
}

func (e *Engine) cmdMSet(c *Client, args [][]byte) []byte {
	var buf []byte
	if len(args[1:])%2 != 0 {
		return encodeError(buf, errWrongArity("MSET"))
	}
	db := e.db(c)
	for i := 1; i+1 < len(args); i += 2 {
		o := store.NewString(args[i+1])
		o.TryEncode()
		db.Set(string(args[i]), o)
	}
	c.dirty = true
	return append(buf, protocol.StatusOK...)
}

func (e *Engine) cmdMSetNX(c *Client, args [][]byte) []byte {
	var buf []byte
	if len(args[1:])%2 != 0 {
		return encodeError(buf, errWrongArity("MSETNX"))
	}
	db := e.db(c)
	for i := 1; i+1 < len(args); i += 2 {
		if db.Exists(string(args[i])) {
			return protocol.AppendInteger(buf, 0)
		}
	}
	for i := 1; i+1 < len(args); i += 2 {
		o := store.NewString(args[i+1])
		o.TryEncode()
		db.Set(string(args[i]), o)
	}
	c.dirty = true
	return protocol.AppendInteger(buf, 1)
}

func (e *Engine) incrBy(c *Client, key string, delta int64) []byte {
	var buf []byte
	db := e.db(c)
	o, ok := db.LookupWrite(key)
	if ok {
		if err := typeCheck(o, store.KindString); err != nil {
			return encodeError(buf, err)
		}
	}
	var cur int64
	if ok {
		if v, isInt := o.Int64(); isInt {
			cur = v
		} else {
			v, perr := parseInt(o.Bytes())
			if perr != nil {
				return encodeError(buf, perr)
			}
			cur = v
		}
	}
	next := cur + delta
	no := store.NewStringFromInt(next)
	db.Set(key, no)
	c.dirty = true
	return protocol.AppendInteger(buf, next)
}

func (e *Engine) cmdIncr(c *Client, args [][]byte) []byte { return e.incrBy(c, string(args[1]), 1) }
func (e *Engine) cmdDecr(c *Client, args [][]byte) []byte { return e.incrBy(c, string(args[1]), -1) }

func (e *Engine) cmdIncrBy(c *Client, args [][]byte) []byte {
	n, err := parseInt(args[2])
	if err != nil {
		var buf []byte
		return encodeError(buf, err)
	}
	return e.incrBy(c, string(args[1]), n)
}

func (e *Engine) cmdDecrBy(c *Client, args [][]byte) []byte {
	n, err := parseInt(args[2])
	if err != nil {
		var buf []byte
		return encodeError(buf, err)
	}
	return e.incrBy(c, string(args[1]), -n)
}

func (e *Engine) cmdExists(c *Client, args [][]byte) []byte {
	var buf []byte
	ok := e.db(c).Exists(string(args[1]))
	if ok {
		return protocol.AppendInteger(buf, 1)
	}
	return protocol.AppendInteger(buf, 0)
}

func (e *Engine) cmdDel(c *Client, args [][]byte) []byte {
	var buf []byte
	db := e.db(c)
	n := int64(0)
	for _, k := range args[1:] {
		if db.Delete(string(k)) {
			n++
		}
	}
	if n > 0 {
		c.dirty = true
	}
	return protocol.AppendInteger(buf, n)
}
