package command

import (
	"strconv"
	"strings"
	"time"

	"github.com/faizanhussain2310/goredis-core/internal/protocol"
)

// Dispatch executes one parsed request against c and returns the
// RESP-encoded reply bytes (§4.E). It performs, in order: name
// lookup, arity check, auth gate, transaction queueing, the
// DenyUnderMemoryPressure gate, the paging preload gate, the handler
// call, and the post-execution journal/replication feed.
func (e *Engine) Dispatch(c *Client, cmd *protocol.Command) []byte {
	var buf []byte
	if len(cmd.Args) == 0 {
		return buf
	}
	name := strings.ToUpper(string(cmd.Args[0]))
	args := cmd.Args

	if name == "QUIT" {
		c.quit = true
		return append(buf, protocol.StatusOK...)
	}

	d, ok := e.Table[name]
	if !ok {
		return encodeError(buf, errUnknownCommand(name))
	}
	if !d.ArityOK(len(args)) {
		return encodeError(buf, errWrongArity(name))
	}

	if e.RequirePass != "" && !c.Authenticated && name != "AUTH" {
		return encodeError(buf, errAuthRequired)
	}

	if c.InMulti && name != "EXEC" && name != "DISCARD" && name != "MULTI" && name != "WATCH" {
		c.Queue = append(c.Queue, queuedCommand{Args: args})
		return protocol.AppendStatus(buf, "QUEUED")
	}

	if d.Flags&FlagDenyOOM != 0 && e.overMemory() {
		return encodeError(buf, errOOM)
	}

	if e.Pager != nil && d.HasKeys() {
		if keys := d.Keys(args); len(keys) > 0 {
			e.Pager.Preload(c.DB, keys)
		}
	}

	if name != "MONITOR" && name != "AUTH" {
		e.feedMonitors(c, args)
	}

	c.dirty = false
	reply := d.Handler(c, args)
	if c.dirty {
		e.DirtyOps.Add(1)
		e.feedBackends(c.DB, name, args)
	}
	return reply
}

func (e *Engine) overMemory() bool {
	if e.MaxMemory <= 0 || e.UsedMemory == nil {
		return false
	}
	return e.UsedMemory() > e.MaxMemory
}

// feedBackends appends the executed write to the journal and streams
// it to replicas (§4.E, §4.H). EXPIRE is rewritten to EXPIREAT using
// the key's now-resolved absolute expiry so replay stays
// time-invariant regardless of when the journal or a replica later
// replays it (§4.H).
func (e *Engine) feedBackends(db int, name string, args [][]byte) {
	out := args
	if name == "EXPIRE" && len(args) == 3 {
		if exp, ok := e.Keyspace.DB(db).GetExpire(string(args[1])); ok {
			abs := time.Now().Add(exp).Unix()
			out = [][]byte{
				[]byte("EXPIREAT"),
				args[1],
				[]byte(strconv.FormatInt(abs, 10)),
			}
		}
	}
	if e.Journal != nil {
		e.Journal.Feed(db, out)
	}
	if e.Repl != nil {
		e.Repl.Feed(db, out)
	}
}
