package server

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/faizanhussain2310/goredis-core/internal/command"
	"github.com/faizanhussain2310/goredis-core/internal/config"
)

func newIdleClientConn(t *testing.T, idleFor time.Duration, isReplica bool) (*clientConn, net.Conn) {
	t.Helper()
	client, srv := net.Pipe()
	t.Cleanup(func() { client.Close() })

	c := newConn(srv)
	cl := command.NewClient(1, c)
	cl.IsReplicaLink = isReplica
	cc := &clientConn{client: cl, conn: c}
	cc.lastActive.Store(time.Now().Add(-idleFor).Unix())
	return cc, client
}

func TestReapIdleClosesStaleConnections(t *testing.T) {
	s := &Server{cfg: &config.Config{Timeout: 1}}
	cc, _ := newIdleClientConn(t, time.Hour, false)
	s.conns.Store(int64(1), cc)

	s.reapIdle()

	_, err := cc.conn.nc.Write([]byte("x"))
	require.Error(t, err)
}

func TestReapIdleExemptsReplicaLinks(t *testing.T) {
	s := &Server{cfg: &config.Config{Timeout: 1}}
	cc, client := newIdleClientConn(t, time.Hour, true)
	s.conns.Store(int64(1), cc)

	s.reapIdle()

	done := make(chan error, 1)
	go func() { _, err := client.Write([]byte("x")); done <- err }()
	buf := make([]byte, 1)
	_, err := cc.conn.nc.Read(buf)
	require.NoError(t, err)
	require.NoError(t, <-done)
}

func TestReapIdleSkipsWhenTimeoutDisabled(t *testing.T) {
	s := &Server{cfg: &config.Config{Timeout: 0}}
	cc, client := newIdleClientConn(t, time.Hour, false)
	s.conns.Store(int64(1), cc)

	s.reapIdle()

	done := make(chan error, 1)
	go func() { _, err := client.Write([]byte("x")); done <- err }()
	buf := make([]byte, 1)
	_, err := cc.conn.nc.Read(buf)
	require.NoError(t, err)
	require.NoError(t, <-done)
}

func TestReapIdleLeavesRecentlyActiveConnections(t *testing.T) {
	s := &Server{cfg: &config.Config{Timeout: 60}}
	cc, client := newIdleClientConn(t, time.Second, false)
	s.conns.Store(int64(1), cc)

	s.reapIdle()

	done := make(chan error, 1)
	go func() { _, err := client.Write([]byte("x")); done <- err }()
	buf := make([]byte, 1)
	_, err := cc.conn.nc.Read(buf)
	require.NoError(t, err)
	require.NoError(t, <-done)
}

func TestStringsEqualFoldCaseInsensitive(t *testing.T) {
	require.True(t, strings_equalFold("shutdown", "SHUTDOWN"))
	require.False(t, strings_equalFold("shutdown", "quit"))
	require.False(t, strings_equalFold("a", "ab"))
}
