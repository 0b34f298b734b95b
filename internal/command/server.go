package command

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/faizanhussain2310/goredis-core/internal/protocol"
	"github.com/faizanhussain2310/goredis-core/internal/store"
)

func encodingName(o *store.Object) string { return o.Encoding.String() }

func cmdPing(c *Client, args [][]byte) []byte {
	var buf []byte
	if len(args) == 2 {
		return protocol.AppendBulk(buf, args[1])
	}
	return protocol.AppendStatus(buf, "PONG")
}

func cmdEcho(c *Client, args [][]byte) []byte {
	var buf []byte
	return protocol.AppendBulk(buf, args[1])
}

func (e *Engine) cmdAuth(c *Client, args [][]byte) []byte {
	var buf []byte
	if e.RequirePass == "" {
		return encodeError(buf, &Error{Kind: SyntaxError, Msg: "Client sent AUTH, but no password is set"})
	}
	if string(args[1]) != e.RequirePass {
		c.Authenticated = false
		return encodeError(buf, &Error{Kind: NotAuthenticated, Msg: "invalid password"})
	}
	c.Authenticated = true
	return append(buf, protocol.StatusOK...)
}

func (e *Engine) cmdSave(c *Client, args [][]byte) []byte {
	var buf []byte
	if e.Persist == nil {
		return encodeError(buf, &Error{Kind: SyntaxError, Msg: "snapshotting is not enabled"})
	}
	if err := e.Persist.Save(); err != nil {
		return encodeError(buf, &Error{Msg: err.Error()})
	}
	return append(buf, protocol.StatusOK...)
}

func (e *Engine) cmdBGSave(c *Client, args [][]byte) []byte {
	var buf []byte
	if e.Persist == nil {
		return encodeError(buf, &Error{Kind: SyntaxError, Msg: "snapshotting is not enabled"})
	}
	if err := e.Persist.BGSave(); err != nil {
		return encodeError(buf, &Error{Msg: err.Error()})
	}
	return protocol.AppendStatus(buf, "Background saving started")
}

func (e *Engine) cmdBGRewriteAOF(c *Client, args [][]byte) []byte {
	var buf []byte
	if e.AOFCtl == nil {
		return encodeError(buf, &Error{Kind: SyntaxError, Msg: "AOF is not enabled"})
	}
	if err := e.AOFCtl.BGRewrite(); err != nil {
		return encodeError(buf, &Error{Msg: err.Error()})
	}
	return protocol.AppendStatus(buf, "Background append only file rewriting started")
}

func (e *Engine) cmdLastSave(c *Client, args [][]byte) []byte {
	var buf []byte
	if e.Persist == nil {
		return protocol.AppendInteger(buf, e.StartedAt.Unix())
	}
	return protocol.AppendInteger(buf, e.Persist.LastSave().Unix())
}

func cmdShutdown(c *Client, args [][]byte) []byte {
	// The server loop treats a nil Dispatch reply on SHUTDOWN as its
	// cue to close the connection and exit the process after an
	// attempted final save; no reply is ever written to the client.
	c.quit = true
	return nil
}

func (e *Engine) cmdInfo(c *Client, args [][]byte) []byte {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Server\r\nuptime_in_seconds:%d\r\n", int64(time.Since(e.StartedAt).Seconds()))

	fmt.Fprintf(&sb, "# Replication\r\n")
	if e.ReplInfo != nil {
		role, nreplicas := e.ReplInfo.Info()
		fmt.Fprintf(&sb, "role:%s\r\nconnected_slaves:%d\r\n", role, nreplicas)
	} else {
		fmt.Fprintf(&sb, "role:master\r\nconnected_slaves:0\r\n")
	}

	fmt.Fprintf(&sb, "# Persistence\r\n")
	if e.Persist != nil {
		fmt.Fprintf(&sb, "rdb_last_save_time:%d\r\n", e.Persist.LastSave().Unix())
	}
	fmt.Fprintf(&sb, "aof_enabled:%d\r\n", boolInt(e.AOFCtl != nil))

	fmt.Fprintf(&sb, "# Memory\r\n")
	if e.UsedMemory != nil {
		fmt.Fprintf(&sb, "used_memory:%d\r\n", e.UsedMemory())
	}
	fmt.Fprintf(&sb, "maxmemory:%d\r\n", e.MaxMemory)

	fmt.Fprintf(&sb, "# Keyspace\r\n")
	for i := 0; i < e.Keyspace.NumDBs(); i++ {
		if n := e.Keyspace.DB(i).Size(); n > 0 {
			fmt.Fprintf(&sb, "db%d:keys=%d\r\n", i, n)
		}
	}

	var buf []byte
	return protocol.AppendBulk(buf, []byte(sb.String()))
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// cmdMonitor implements MONITOR (§7 supplemented feature): the
// connection's socket is registered to receive every command
// subsequently dispatched by any client, verbatim, until it
// disconnects.
func (e *Engine) cmdMonitor(c *Client, args [][]byte) []byte {
	e.registerMonitor(c.ID, c.conn)
	var buf []byte
	return append(buf, protocol.StatusOK...)
}

func (e *Engine) cmdSlaveOf(c *Client, args [][]byte) []byte {
	var buf []byte
	if e.ReplCtl == nil {
		return encodeError(buf, &Error{Kind: SyntaxError, Msg: "replication is not enabled"})
	}
	host, port := string(args[1]), string(args[2])
	if strings.EqualFold(host, "no") && strings.EqualFold(port, "one") {
		host, port = "", ""
	}
	if err := e.ReplCtl.SlaveOf(host, port); err != nil {
		return encodeError(buf, &Error{Msg: err.Error()})
	}
	return append(buf, protocol.StatusOK...)
}

func (e *Engine) cmdSync(c *Client, args [][]byte) []byte {
	var buf []byte
	if e.ReplCtl == nil {
		return encodeError(buf, &Error{Kind: SyntaxError, Msg: "replication is not enabled"})
	}
	dump, err := e.ReplCtl.RegisterReplica(c.ID, c.conn)
	if err != nil {
		return encodeError(buf, &Error{Msg: err.Error()})
	}
	c.IsReplicaLink = true
	return protocol.AppendBulk(buf, dump)
}

// cmdDebug implements the subset of DEBUG the test suite and the
// original operator tooling rely on: OBJECT (encoding introspection)
// and SLEEP (fault injection).
func (e *Engine) cmdDebug(c *Client, args [][]byte) []byte {
	var buf []byte
	if len(args) < 2 {
		return encodeError(buf, errSyntax())
	}
	switch strings.ToUpper(string(args[1])) {
	case "SLEEP":
		if len(args) != 3 {
			return encodeError(buf, errSyntax())
		}
		secs, perr := strconv.ParseFloat(string(args[2]), 64)
		if perr != nil {
			return encodeError(buf, errNotFloat())
		}
		time.Sleep(time.Duration(secs * float64(time.Second)))
		return append(buf, protocol.StatusOK...)
	case "OBJECT":
		if len(args) != 3 {
			return encodeError(buf, errSyntax())
		}
		o, ok := e.db(c).LookupRead(string(args[2]))
		if !ok {
			return encodeError(buf, errNoSuchKey())
		}
		s := fmt.Sprintf("refcount:%d encoding:%s serializedlength:%d",
			o.RefCount(), encodingName(o), o.EstimatedBytes())
		return protocol.AppendStatus(buf, s)
	default:
		return encodeError(buf, &Error{Kind: SyntaxError, Msg: "unknown DEBUG subcommand"})
	}
}
