package command

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInfoReportsDefaultSectionsWithoutOptionalSubsystems(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	reply := run(e, c, "INFO")
	require.True(t, strings.HasPrefix(reply, "$"))
	require.Contains(t, reply, "# Server\r\n")
	require.Contains(t, reply, "# Replication\r\nrole:master\r\nconnected_slaves:0\r\n")
	require.Contains(t, reply, "# Persistence\r\naof_enabled:0\r\n")
	require.Contains(t, reply, "# Memory\r\n")
	require.Contains(t, reply, "maxmemory:0\r\n")
	require.Contains(t, reply, "# Keyspace\r\n")
}

type stubReplInfo struct {
	role     string
	replicas int
}

func (s stubReplInfo) Info() (string, int) { return s.role, s.replicas }

func TestInfoReflectsReplicationRoleAndReplicaCount(t *testing.T) {
	e := newTestEngine(t)
	e.ReplInfo = stubReplInfo{role: "slave", replicas: 2}
	c := newTestClient()

	reply := run(e, c, "INFO")
	require.Contains(t, reply, "role:slave\r\nconnected_slaves:2\r\n")
}

func TestDebugObjectReportsEncodingAndRefcount(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()
	run(e, c, "SET", "k", "v")

	reply := run(e, c, "DEBUG", "OBJECT", "k")
	require.Contains(t, reply, "refcount:")
	require.Contains(t, reply, "encoding:")
}

func TestDebugObjectMissingKeyIsError(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	reply := run(e, c, "DEBUG", "OBJECT", "missing")
	require.True(t, strings.HasPrefix(reply, "-"))
}

func TestDebugUnknownSubcommandIsError(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	reply := run(e, c, "DEBUG", "BOGUS")
	require.True(t, strings.HasPrefix(reply, "-"))
}

func TestDirtyOpsCountsWritesNotReads(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient()

	require.Equal(t, int64(0), e.DirtyOps.Load())

	run(e, c, "SET", "k", "v")
	require.Equal(t, int64(1), e.DirtyOps.Load())

	run(e, c, "GET", "k")
	require.Equal(t, int64(1), e.DirtyOps.Load())

	run(e, c, "DEL", "k")
	require.Equal(t, int64(2), e.DirtyOps.Load())
}
