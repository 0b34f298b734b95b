package command

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	mu   sync.Mutex
	logs [][]byte
}

func (c *recordingConn) Write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = append(c.logs, append([]byte(nil), b...))
	return nil
}

func (c *recordingConn) RemoteAddr() string { return "127.0.0.1:1" }

func TestMonitorReceivesSubsequentCommands(t *testing.T) {
	e := newTestEngine(t)
	mc := &recordingConn{}
	monitorClient := NewClient(99, mc)

	require.Equal(t, "+OK\r\n", run(e, monitorClient, "MONITOR"))

	other := newTestClient()
	run(e, other, "SET", "k", "v")

	mc.mu.Lock()
	defer mc.mu.Unlock()
	require.Len(t, mc.logs, 1)
	require.Contains(t, string(mc.logs[0]), `"SET"`)
	require.Contains(t, string(mc.logs[0]), `"k"`)
	require.Contains(t, string(mc.logs[0]), `"v"`)
}

func TestMonitorStopsReceivingAfterWriteFailure(t *testing.T) {
	e := newTestEngine(t)
	mc := &failingConn{}
	monitorClient := NewClient(99, mc)

	run(e, monitorClient, "MONITOR")

	other := newTestClient()
	run(e, other, "PING")
	run(e, other, "PING")

	require.LessOrEqual(t, mc.attempts, 1)
}

type failingConn struct{ attempts int }

func (c *failingConn) Write(b []byte) error {
	c.attempts++
	return errors.New("write failed")
}

func (c *failingConn) RemoteAddr() string { return "fail" }
