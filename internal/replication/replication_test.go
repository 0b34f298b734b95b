package replication

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faizanhussain2310/goredis-core/internal/store"
)

type fakeConn struct {
	mu      sync.Mutex
	writes  [][]byte
	failing bool
}

func (c *fakeConn) Write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("write failed")
	}
	cp := append([]byte(nil), b...)
	c.writes = append(c.writes, cp)
	return nil
}

func (c *fakeConn) RemoteAddr() string { return "fake" }

func TestRegisterReplicaReturnsSnapshotAndTracksIt(t *testing.T) {
	ks := store.NewKeyspace(1, 64, 512)
	ks.DB(0).Set("k", store.NewString([]byte("v")))
	m := NewManager(ks, "", 64, 512, nil)

	conn := &fakeConn{}
	dump, err := m.RegisterReplica(1, conn)
	require.NoError(t, err)
	require.Contains(t, string(dump), "REDIS0001")

	m.mu.Lock()
	_, tracked := m.replicas[1]
	m.mu.Unlock()
	require.True(t, tracked)
}

func TestFeedPropagatesToRegisteredReplicas(t *testing.T) {
	ks := store.NewKeyspace(1, 64, 512)
	m := NewManager(ks, "", 64, 512, nil)

	conn := &fakeConn{}
	_, err := m.RegisterReplica(1, conn)
	require.NoError(t, err)

	m.Feed(0, [][]byte{[]byte("SET"), []byte("k"), []byte("v")})

	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.Len(t, conn.writes, 2) // synthetic SELECT + the command
	require.Contains(t, string(conn.writes[0]), "SELECT")
	require.Contains(t, string(conn.writes[1]), "SET")
}

func TestFeedDropsReplicaOnWriteFailure(t *testing.T) {
	ks := store.NewKeyspace(1, 64, 512)
	m := NewManager(ks, "", 64, 512, nil)

	conn := &fakeConn{failing: true}
	_, err := m.RegisterReplica(1, conn)
	require.NoError(t, err)

	m.Feed(0, [][]byte{[]byte("SET"), []byte("k"), []byte("v")})

	m.mu.Lock()
	_, tracked := m.replicas[1]
	m.mu.Unlock()
	require.False(t, tracked)
}

func TestSlaveOfNoOneStopsExistingLink(t *testing.T) {
	ks := store.NewKeyspace(1, 64, 512)
	m := NewManager(ks, "", 64, 512, nil)

	require.NoError(t, m.SlaveOf("", ""))
	m.mu.Lock()
	require.Nil(t, m.link)
	m.mu.Unlock()
}

func TestFeedOnlySendsSelectOnDBChange(t *testing.T) {
	ks := store.NewKeyspace(2, 64, 512)
	m := NewManager(ks, "", 64, 512, nil)

	conn := &fakeConn{}
	_, err := m.RegisterReplica(1, conn)
	require.NoError(t, err)

	m.Feed(0, [][]byte{[]byte("SET"), []byte("a"), []byte("1")})
	m.Feed(0, [][]byte{[]byte("SET"), []byte("b"), []byte("2")})

	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.Len(t, conn.writes, 3) // one SELECT, two SETs
}
