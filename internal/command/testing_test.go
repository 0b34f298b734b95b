package command

import (
	"strconv"
	"testing"

	"github.com/faizanhussain2310/goredis-core/internal/protocol"
	"github.com/faizanhussain2310/goredis-core/internal/store"
)

// fakeConn is a no-op command.Conn for tests that drive Dispatch
// directly instead of going through a real socket.
type fakeConn struct{}

func (fakeConn) Write(b []byte) error { return nil }
func (fakeConn) RemoteAddr() string   { return "test" }

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	ks := store.NewKeyspace(4, 64, 512)
	return NewEngine(ks)
}

// makeKeyspace builds a Keyspace with a caller-chosen zipmap
// entry-count watermark, for tests that need to pin the exact
// encoding-transition point (§8 scenario 4).
func makeKeyspace(numDBs, hashMaxZipmapEntries int) *store.Keyspace {
	return store.NewKeyspace(numDBs, hashMaxZipmapEntries, 512)
}

func newTestClient() *Client {
	return NewClient(1, fakeConn{})
}

// run dispatches args (args[0] is the command name) under the
// keyspace lock, the same way the server's accept loop always holds
// it around Dispatch, and returns the raw RESP reply as a string.
func run(e *Engine, c *Client, args ...string) string {
	raw := make([][]byte, len(args))
	for i, a := range args {
		raw[i] = []byte(a)
	}
	e.Keyspace.Lock()
	defer e.Keyspace.Unlock()
	return string(e.Dispatch(c, &protocol.Command{Args: raw}))
}

// mustCmd builds a *protocol.Command for tests that need to dispatch
// a raw binary-unsafe-looking Go string argument without it passing
// through run's string-args convenience wrapper.
func mustCmd(args ...string) *protocol.Command {
	raw := make([][]byte, len(args))
	for i, a := range args {
		raw[i] = []byte(a)
	}
	return &protocol.Command{Args: raw}
}

func itoaLen(s string) string { return strconv.Itoa(len(s)) }
