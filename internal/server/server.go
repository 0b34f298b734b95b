// Package server implements the network front end: an accept loop
// handing each connection its own goroutine, a periodic cron for
// active expiry, scheduled snapshots, memory-pressure eviction and
// idle-client reaping, and the process lifecycle (startup load,
// graceful SHUTDOWN).
//
// Grounded on the teacher's internal/server.RedisServer (accept loop,
// sync.Map connection tracking, atomic connection counter,
// WaitGroup-plus-timeout graceful shutdown) with its cluster/handler/
// processor/storage dependencies replaced by this module's own
// store/command/rdb/aof/replication/paging packages, since none of
// those four teacher packages exist in this rework. See DESIGN.md.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/faizanhussain2310/goredis-core/internal/aof"
	"github.com/faizanhussain2310/goredis-core/internal/command"
	"github.com/faizanhussain2310/goredis-core/internal/config"
	"github.com/faizanhussain2310/goredis-core/internal/paging"
	"github.com/faizanhussain2310/goredis-core/internal/protocol"
	"github.com/faizanhussain2310/goredis-core/internal/rdb"
	"github.com/faizanhussain2310/goredis-core/internal/replication"
	"github.com/faizanhussain2310/goredis-core/internal/store"
)

// clientConn bundles the command.Client with the bookkeeping the
// accept loop and cron need: its raw socket, when it last did
// anything (for maxidletime), and whether it is a replica link
// (exempt from idle reaping, per Client's own doc comment).
type clientConn struct {
	client     *command.Client
	conn       *conn
	lastActive atomic.Int64 // unix seconds
}

type Server struct {
	cfg    *config.Config
	log    *zap.Logger
	engine *command.Engine

	rdbMgr  *rdb.Manager
	aofLog  *aof.Log
	repl    *replication.Manager
	pager   *paging.Pager
	swap    *paging.SwapFile

	ln net.Listener

	connID atomic.Int64
	conns  sync.Map // int64 -> *clientConn
	wg     sync.WaitGroup
}

// New assembles every ambient subsystem described by cfg and wires
// them into a command.Engine, matching the constructor order of the
// original binary: keyspace, then persistence/replication/paging
// around it, then the engine that ties journal/replica feed/pager
// into Dispatch.
func New(cfg *config.Config, log *zap.Logger) (*Server, error) {
	ks := store.NewKeyspace(cfg.Databases, cfg.HashMaxZipmapEntries, cfg.HashMaxZipmapValue)
	engine := command.NewEngine(ks)
	engine.RequirePass = cfg.RequirePass
	engine.MaxMemory = cfg.MaxMemory
	engine.UsedMemory = readHeapAlloc
	engine.BlockingDefaultTimeout = 0

	s := &Server{cfg: cfg, log: log, engine: engine}

	rdbPath := cfg.Dir + "/" + cfg.DBFilename
	s.rdbMgr = rdb.NewManager(rdbPath, cfg.RDBCompression, ks, cfg.HashMaxZipmapEntries, cfg.HashMaxZipmapValue)
	engine.Persist = s.rdbMgr

	replMgr := replication.NewManager(ks, rdbPath, cfg.HashMaxZipmapEntries, cfg.HashMaxZipmapValue, log)
	replMgr.SetEngine(engine)
	if cfg.MasterAuth != "" {
		replMgr.SetMasterAuth(cfg.MasterAuth)
	}
	s.repl = replMgr
	engine.Repl = replMgr
	engine.ReplCtl = replMgr
	engine.ReplInfo = replMgr

	if cfg.AppendOnly {
		policy, err := aof.ParseSyncPolicy(cfg.AppendFsync)
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		aofLog, err := aof.Open(cfg.Dir+"/"+cfg.AppendFilename, policy, ks)
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		s.aofLog = aofLog
		engine.Journal = aofLog
		engine.AOFCtl = aofLog
	}

	if cfg.VMEnabled {
		pageSize := cfg.VMPageSize * 1024
		sf, err := paging.Open(cfg.VMSwapFile, pageSize, cfg.VMPages)
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		s.swap = sf
		s.pager = paging.New(ks, sf, cfg.VMMaxThreads, cfg.VMMaxMemory, readHeapAlloc, log)
		engine.Pager = s.pager
	}

	return s, nil
}

func readHeapAlloc() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.Alloc)
}

// loadData replays persisted state at startup: AOF if enabled
// (rdb.Manager never runs when the log is authoritative), otherwise
// the RDB snapshot if one exists (a missing file is not an error,
// same as a fresh install).
func (s *Server) loadData() error {
	if s.aofLog != nil {
		return aof.Load(s.cfg.Dir+"/"+s.cfg.AppendFilename, s.engine)
	}
	return s.rdbMgr.Load()
}

// Start loads persisted state, opens the listener, launches the
// paging worker pool and cron, and begins accepting connections. It
// blocks until the listener closes (via Shutdown or a fatal accept
// error).
func (s *Server) Start(ctx context.Context) error {
	if err := s.loadData(); err != nil {
		return fmt.Errorf("server: load: %w", err)
	}
	if s.pager != nil {
		s.pager.Start()
	}
	if s.cfg.SlaveOfHost != "" {
		if err := s.repl.SlaveOf(s.cfg.SlaveOfHost, s.cfg.SlaveOfPort); err != nil {
			s.log.Warn("server: initial SLAVEOF failed", zap.Error(err))
		}
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Bind, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	s.ln = ln
	s.log.Info("server: listening", zap.String("addr", addr))

	go s.cron(ctx)

	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			s.log.Warn("server: accept", zap.Error(err))
			return err
		}
		s.wg.Add(1)
		go s.handle(ctx, nc)
	}
}

// Shutdown attempts a final save (when persistence is configured),
// closes the listener so Accept unblocks, and waits up to 5 seconds
// for in-flight connections to finish their current command.
func (s *Server) Shutdown() {
	if s.engine.Persist != nil {
		if err := s.engine.Persist.Save(); err != nil {
			s.log.Warn("server: final save failed", zap.Error(err))
		}
	}
	if s.ln != nil {
		s.ln.Close()
	}
	if s.pager != nil {
		s.pager.Stop()
	}
	if s.aofLog != nil {
		if err := s.aofLog.Close(); err != nil {
			s.log.Warn("server: aof close failed", zap.Error(err))
		}
	}
	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.log.Warn("server: shutdown timed out waiting for connections")
	}
}

func (s *Server) handle(ctx context.Context, nc net.Conn) {
	defer s.wg.Done()
	defer nc.Close()

	id := s.connID.Add(1)
	c := newConn(nc)
	cl := command.NewClient(id, c)
	cc := &clientConn{client: cl, conn: c}
	cc.lastActive.Store(time.Now().Unix())
	s.conns.Store(id, cc)
	defer s.conns.Delete(id)

	r := bufio.NewReader(nc)
	for {
		cmd, err := protocol.Parse(r, s.engine.Table.IsBulk)
		if err != nil {
			var pe *protocol.ProtocolError
			if errors.As(err, &pe) && !pe.Fatal {
				r.Reset(nc)
				if c.Write(protocol.AppendError(nil, "ERR "+pe.Msg)) != nil {
					return
				}
				continue
			}
			return
		}
		if cmd == nil {
			continue
		}
		cc.lastActive.Store(time.Now().Unix())

		s.engine.Keyspace.Lock()
		reply := s.engine.Dispatch(cl, cmd)
		s.engine.Keyspace.Unlock()

		if reply == nil {
			if cl.Quit() {
				if strings_equalFold(cmd.Name(), "SHUTDOWN") {
					s.Shutdown()
				}
				return
			}
			continue
		}
		if err := c.Write(reply); err != nil {
			return
		}
		if cl.Quit() {
			return
		}
		if cl.IsReplicaLink {
			// Hand the socket over to the replication feed; stop
			// reading further commands from what is now a one-way
			// stream of writes we generate, not the replica.
			<-ctx.Done()
			return
		}
	}
}

func strings_equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'a' <= ca && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if 'a' <= cb && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// cron runs the periodic maintenance the original's serverCron
// performs once a second: active expiry, scheduled RDB saves,
// memory-pressure eviction, and idle-client reaping.
func (s *Server) cron(ctx context.Context) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	var lastSave time.Time
	var opsAtLastSave int64

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.engine.Keyspace.Lock()
			s.engine.Keyspace.ActiveExpireCycle()
			s.engine.Keyspace.Unlock()

			if s.pager != nil {
				s.pager.MaybeEvict()
			}

			s.reapIdle()

			if s.engine.Persist != nil {
				changes := s.engine.DirtyOps.Load() - opsAtLastSave
				for _, sp := range s.cfg.Save {
					if time.Since(lastSave) >= time.Duration(sp.Seconds)*time.Second && changes >= int64(sp.Changes) {
						if err := s.engine.Persist.BGSave(); err != nil {
							s.log.Warn("server: scheduled save failed", zap.Error(err))
						}
						lastSave = time.Now()
						opsAtLastSave = s.engine.DirtyOps.Load()
						break
					}
				}
			}
		}
	}
}

// reapIdle closes connections that have been silent for longer than
// cfg.Timeout, exempting replica links (§5: a replica's socket can go
// quiet for long stretches between writes and must never be reaped).
func (s *Server) reapIdle() {
	if s.cfg.Timeout <= 0 {
		return
	}
	cutoff := time.Now().Add(-time.Duration(s.cfg.Timeout) * time.Second).Unix()
	s.conns.Range(func(_, v interface{}) bool {
		cc := v.(*clientConn)
		if cc.client.IsReplicaLink {
			return true
		}
		if cc.lastActive.Load() < cutoff {
			cc.conn.Close()
		}
		return true
	})
}
