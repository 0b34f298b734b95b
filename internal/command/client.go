package command

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faizanhussain2310/goredis-core/internal/blocking"
	"github.com/faizanhussain2310/goredis-core/internal/protocol"
	"github.com/faizanhussain2310/goredis-core/internal/store"
)

// Journal is the subset of the append-only log (§4.H) the dispatcher
// needs: feed one already-executed write command into the journal for
// the currently selected database.
type Journal interface {
	Feed(db int, args [][]byte)
}

// Replicator is the subset of master-side replication (§4.I) the
// dispatcher needs: feed one write command to every healthy replica,
// synthesizing a SELECT first if that replica's tracked db differs.
type Replicator interface {
	Feed(db int, args [][]byte)
}

// Pager is the value-paging preload gate (§4.J). Preload blocks the
// calling connection's goroutine until every one of keys is resident
// (Memory), creating Load jobs for any that are Swapped. A nil Pager
// (paging disabled) means every key is always resident.
type Pager interface {
	Preload(db int, keys [][]byte)
}

// queuedCommand is one command captured between MULTI and EXEC/DISCARD
// (§4.E).
type queuedCommand struct {
	Args [][]byte
}

// Client holds per-connection state the dispatcher and command
// handlers operate on. It does not itself do I/O; Conn is the
// server-side connection wrapper that owns the socket and reply
// buffer.
type Client struct {
	ID            int64
	DB            int
	Authenticated bool

	InMulti  bool
	MultiErr bool
	Queue    []queuedCommand

	// IsReplicaLink marks a connection that issued SYNC: its "current
	// db" is tracked by the replicator rather than by normal SELECT
	// handling, and it is exempt from maxidletime closing (§5).
	IsReplicaLink bool

	dirty bool
	quit  bool

	conn Conn
}

// Quit reports whether the client issued QUIT; the server closes the
// connection after writing the reply.
func (c *Client) Quit() bool { return c.quit }

// Conn is the minimal connection surface a Client needs: writing
// reply bytes and reading back its own remote address for INFO/DEBUG
// purposes. The server package's per-connection type implements this.
type Conn interface {
	Write(b []byte) error
	RemoteAddr() string
}

func NewClient(id int64, c Conn) *Client {
	return &Client{ID: id, conn: c}
}

func (c *Client) Reply(b []byte) {
	if len(b) == 0 {
		return
	}
	_ = c.conn.Write(b)
}

// Persister is the snapshot subsystem (§4.G) surface the dispatcher
// needs for SAVE/BGSAVE/LASTSAVE.
type Persister interface {
	Save() error
	BGSave() error
	LastSave() time.Time
}

// AOFController is the append-only-log surface needed for
// BGREWRITEAOF (§4.H).
type AOFController interface {
	BGRewrite() error
}

// ReplicationController is the master-side replication surface (§4.I)
// needed for SLAVEOF and SYNC.
type ReplicationController interface {
	// SlaveOf starts (or, for "NO ONE", stops) replica-mode
	// replication from host:port.
	SlaveOf(host, port string) error
	// RegisterReplica answers a SYNC: it returns the current snapshot
	// bytes to send as the bulk reply and begins feeding all
	// subsequent writes to conn directly, bypassing normal per-client
	// dispatch (§4.I: "the replica processes the master's stream as
	// if it were a client").
	RegisterReplica(id int64, conn Conn) ([]byte, error)
}

// ReplicationInfo exposes replication role/topology for the INFO
// command's "# Replication" section.
type ReplicationInfo interface {
	Info() (role string, connectedReplicas int)
}

// Engine owns the keyspace and every ambient subsystem a command
// handler may need to reach: the journal, the replica feed, and the
// (optional) paging preload gate. One Engine is shared by every
// connection; callers hold the Keyspace write lock (Lock/Unlock)
// around each Dispatch call, which serializes command execution (§5).
type Engine struct {
	Keyspace *store.Keyspace
	Table    Table
	Blocking *blocking.Broker

	Journal Journal
	Repl    Replicator
	Pager   Pager

	Persist  Persister
	AOFCtl   AOFController
	ReplCtl  ReplicationController
	ReplInfo ReplicationInfo

	RequirePass string
	MaxMemory   int64
	UsedMemory  func() int64

	StartedAt time.Time

	BlockingDefaultTimeout time.Duration

	// DirtyOps counts write commands executed since startup, the same
	// "number of changes" a `save <seconds> <changes>` directive
	// compares against (§6 config, cron's scheduled-save check).
	DirtyOps atomic.Int64

	monMu    sync.Mutex
	monitors map[int64]Conn
}

func NewEngine(ks *store.Keyspace) *Engine {
	e := &Engine{
		Keyspace:  ks,
		Blocking:  blocking.New(),
		StartedAt: time.Now(),
		monitors:  make(map[int64]Conn),
	}
	e.Table = BuildTable(e)
	return e
}

func (e *Engine) registerMonitor(id int64, conn Conn) {
	e.monMu.Lock()
	e.monitors[id] = conn
	e.monMu.Unlock()
}

// feedMonitors streams one dispatched command to every attached
// MONITOR client, in the classic "<unix-time>.<micros> [<db> <addr>]
// <quoted args>" line format. A monitor whose write fails (socket
// gone) is dropped rather than retried.
func (e *Engine) feedMonitors(c *Client, args [][]byte) {
	e.monMu.Lock()
	if len(e.monitors) == 0 {
		e.monMu.Unlock()
		return
	}
	targets := make(map[int64]Conn, len(e.monitors))
	for id, conn := range e.monitors {
		targets[id] = conn
	}
	e.monMu.Unlock()

	now := time.Now()
	line := []byte(fmt.Sprintf("+%d.%06d [%d %s]", now.Unix(), now.Nanosecond()/1000, c.DB, c.conn.RemoteAddr()))
	for _, a := range args {
		line = append(line, ' ', '"')
		line = append(line, a...)
		line = append(line, '"')
	}
	line = append(line, '\r', '\n')

	for id, conn := range targets {
		if err := conn.Write(line); err != nil {
			e.monMu.Lock()
			delete(e.monitors, id)
			e.monMu.Unlock()
		}
	}
}

// encodeError renders a command.Error (or any other error) as a RESP
// error reply.
func encodeError(buf []byte, err error) []byte {
	msg := err.Error()
	if ce, ok := err.(*Error); ok {
		msg = ce.Msg
	}
	return protocol.AppendError(buf, "ERR "+msg)
}
