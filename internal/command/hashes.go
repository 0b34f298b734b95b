package command

import (
	"github.com/faizanhussain2310/goredis-core/internal/protocol"
	"github.com/faizanhussain2310/goredis-core/internal/store"
)

func (e *Engine) getOrCreateHash(c *Client, key string) (*store.Object, *Error) {
	db := e.db(c)
	o, ok := db.LookupWrite(key)
	if !ok {
		o = store.NewHash(db.HashMaxZipmapEntries, db.HashMaxZipmapValue)
		db.Set(key, o)
		return o, nil
	}
	if o.Kind != store.KindHash {
		return nil, errWrongType
	}
	return o, nil
}

func (e *Engine) cmdHSet(c *Client, args [][]byte) []byte {
	var buf []byte
	o, err := e.getOrCreateHash(c, string(args[1]))
	if err != nil {
		return encodeError(buf, err)
	}
	isNew := o.Hash().Set(args[2], args[3])
	c.dirty = true
	if isNew {
		return protocol.AppendInteger(buf, 1)
	}
	return protocol.AppendInteger(buf, 0)
}

func (e *Engine) cmdHGet(c *Client, args [][]byte) []byte {
	var buf []byte
	o, ok := e.db(c).LookupRead(string(args[1]))
	if !ok {
		return protocol.AppendNilBulk(buf)
	}
	if err := typeCheck(o, store.KindHash); err != nil {
		return encodeError(buf, err)
	}
	v, ok := o.Hash().Get(args[2])
	if !ok {
		return protocol.AppendNilBulk(buf)
	}
	return protocol.AppendBulk(buf, v)
}

func (e *Engine) cmdHDel(c *Client, args [][]byte) []byte {
	var buf []byte
	db := e.db(c)
	key := string(args[1])
	o, ok := db.LookupWrite(key)
	if !ok {
		return protocol.AppendInteger(buf, 0)
	}
	if err := typeCheck(o, store.KindHash); err != nil {
		return encodeError(buf, err)
	}
	n := 0
	for _, f := range args[2:] {
		if o.Hash().Delete(f) {
			n++
		}
	}
	if o.Hash().Len() == 0 {
		db.Delete(key)
	}
	if n > 0 {
		c.dirty = true
	}
	return protocol.AppendInteger(buf, int64(n))
}

func (e *Engine) cmdHLen(c *Client, args [][]byte) []byte {
	var buf []byte
	o, ok := e.db(c).LookupRead(string(args[1]))
	if !ok {
		return protocol.AppendInteger(buf, 0)
	}
	if err := typeCheck(o, store.KindHash); err != nil {
		return encodeError(buf, err)
	}
	return protocol.AppendInteger(buf, int64(o.Hash().Len()))
}

func (e *Engine) cmdHKeys(c *Client, args [][]byte) []byte {
	var buf []byte
	o, ok := e.db(c).LookupRead(string(args[1]))
	if !ok {
		return protocol.AppendArrayHeader(buf, 0)
	}
	if err := typeCheck(o, store.KindHash); err != nil {
		return encodeError(buf, err)
	}
	return protocol.AppendBulkArray(buf, o.Hash().Keys())
}

func (e *Engine) cmdHVals(c *Client, args [][]byte) []byte {
	var buf []byte
	o, ok := e.db(c).LookupRead(string(args[1]))
	if !ok {
		return protocol.AppendArrayHeader(buf, 0)
	}
	if err := typeCheck(o, store.KindHash); err != nil {
		return encodeError(buf, err)
	}
	return protocol.AppendBulkArray(buf, o.Hash().Values())
}

func (e *Engine) cmdHGetAll(c *Client, args [][]byte) []byte {
	var buf []byte
	o, ok := e.db(c).LookupRead(string(args[1]))
	if !ok {
		return protocol.AppendArrayHeader(buf, 0)
	}
	if err := typeCheck(o, store.KindHash); err != nil {
		return encodeError(buf, err)
	}
	return protocol.AppendBulkArray(buf, o.Hash().All())
}

func (e *Engine) cmdHExists(c *Client, args [][]byte) []byte {
	var buf []byte
	o, ok := e.db(c).LookupRead(string(args[1]))
	if !ok {
		return protocol.AppendInteger(buf, 0)
	}
	if err := typeCheck(o, store.KindHash); err != nil {
		return encodeError(buf, err)
	}
	if o.Hash().Exists(args[2]) {
		return protocol.AppendInteger(buf, 1)
	}
	return protocol.AppendInteger(buf, 0)
}
