package command

import "github.com/faizanhussain2310/goredis-core/internal/protocol"

// cmdMulti, cmdExec, and cmdDiscard implement §4.E's transaction
// queueing: every command except EXEC, DISCARD and MULTI is queued
// while InMulti is set, answered with a plain "+QUEUED" status by
// Dispatch itself before these handlers ever run. A MULTI inside a
// transaction is not queued; cmdMulti answers it with an error.

func cmdMulti(c *Client, args [][]byte) []byte {
	var buf []byte
	if c.InMulti {
		return encodeError(buf, &Error{Kind: SyntaxError, Msg: "MULTI calls can not be nested"})
	}
	c.InMulti = true
	c.MultiErr = false
	c.Queue = nil
	return append(buf, protocol.StatusOK...)
}

func cmdDiscard(c *Client, args [][]byte) []byte {
	var buf []byte
	if !c.InMulti {
		return encodeError(buf, &Error{Kind: SyntaxError, Msg: "DISCARD without MULTI"})
	}
	c.InMulti = false
	c.Queue = nil
	return append(buf, protocol.StatusOK...)
}

// cmdExec runs the queued commands in order and replies with a
// multi-bulk of their individual replies (§4.E). Each queued command
// goes straight to its handler rather than back through Dispatch:
// arity was already checked when it was queued, and EXEC itself must
// not be re-queueable.
func (e *Engine) cmdExec(c *Client, args [][]byte) []byte {
	var buf []byte
	if !c.InMulti {
		return encodeError(buf, &Error{Kind: SyntaxError, Msg: "EXEC without MULTI"})
	}
	queue := c.Queue
	c.InMulti = false
	c.Queue = nil

	buf = protocol.AppendArrayHeader(buf, len(queue))
	for _, q := range queue {
		name := toUpper(string(q.Args[0]))
		d, ok := e.Table[name]
		if !ok {
			buf = encodeError(buf, errUnknownCommand(name))
			continue
		}
		c.dirty = false
		reply := d.Handler(c, q.Args)
		buf = append(buf, reply...)
		if c.dirty {
			e.DirtyOps.Add(1)
			e.feedBackends(c.DB, name, q.Args)
		}
	}
	// Each dirtying queued command was counted and fed above; EXEC
	// itself is neither.
	c.dirty = false
	return buf
}

func toUpper(s string) string {
	b := []byte(s)
	for i, ch := range b {
		if ch >= 'a' && ch <= 'z' {
			b[i] = ch - ('a' - 'A')
		}
	}
	return string(b)
}
