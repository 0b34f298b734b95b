package server

import (
	"bufio"
	"context"
	"net"
	"sync"

	"golang.org/x/time/rate"
)

// perClientWriteBurst is §5's "64 KiB of reply bytes per client per
// loop iteration" cap, translated from a loop-tick budget into a
// token-bucket burst that refills at 8 bursts (512 KiB) per second.
// This caps each connection's sustained reply rate at 512 KiB/s; a
// reply larger than one burst is written in 64 KiB chunks, each
// waiting for its tokens.
const perClientWriteBurst = 64 * 1024

// conn wraps a net.Conn to satisfy command.Conn. Writes are
// mutex-guarded because a replica link's socket can be written from
// two goroutines: its own read/dispatch loop (for ordinary replies,
// before SYNC) and replication.Manager.Feed (after SYNC promotes it to
// a replica, called from whichever goroutine executed the write that
// needs propagating).
type conn struct {
	mu   sync.Mutex
	nc   net.Conn
	w    *bufio.Writer
	addr string
	lim  *rate.Limiter
}

func newConn(nc net.Conn) *conn {
	lim := rate.NewLimiter(rate.Limit(8*perClientWriteBurst), perClientWriteBurst)
	return &conn{nc: nc, w: bufio.NewWriter(nc), addr: nc.RemoteAddr().String(), lim: lim}
}

func (c *conn) Write(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	for len(b) > 0 {
		chunk := b
		if len(chunk) > perClientWriteBurst {
			chunk = chunk[:perClientWriteBurst]
		}
		if err := c.lim.WaitN(context.Background(), len(chunk)); err != nil {
			return err
		}
		c.mu.Lock()
		_, err := c.w.Write(chunk)
		c.mu.Unlock()
		if err != nil {
			return err
		}
		b = b[len(chunk):]
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Flush()
}

func (c *conn) RemoteAddr() string { return c.addr }

func (c *conn) Close() error { return c.nc.Close() }
