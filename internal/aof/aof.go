// Package aof implements the append-only log of §4.H: a durable,
// ordered multi-bulk journal of every mutating command, with
// configurable fsync policy and a background rewrite that compacts
// the log to one chain of commands per key.
//
// Grounded on the teacher's internal/aof/aof.go (Writer wrapping a
// buffered file handle, background sync goroutine, hybrid
// rewrite-buffer approach for zero data loss during rewrite); the
// wire framing and rewrite algorithm follow spec §4.H.
package aof

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/faizanhussain2310/goredis-core/internal/command"
	"github.com/faizanhussain2310/goredis-core/internal/protocol"
	"github.com/faizanhussain2310/goredis-core/internal/store"
)

// SyncPolicy determines when the journal is fsynced to disk (§4.H).
type SyncPolicy int

const (
	SyncNo SyncPolicy = iota
	SyncAlways
	SyncEverySecond
)

func ParseSyncPolicy(s string) (SyncPolicy, error) {
	switch s {
	case "no":
		return SyncNo, nil
	case "always":
		return SyncAlways, nil
	case "everysec":
		return SyncEverySecond, nil
	default:
		return SyncNo, fmt.Errorf("aof: unknown appendfsync value %q", s)
	}
}

// Log is the append-only journal writer. It satisfies command.Journal
// (Feed) and command.AOFController (BGRewrite).
type Log struct {
	path   string
	policy SyncPolicy

	mu        sync.Mutex
	file      *os.File
	w         *bufio.Writer
	lastDB    int
	haveDB    bool
	lastFsync time.Time

	// rewriteMu/diff implement the teacher's hybrid rewrite-buffer
	// approach: while a rewrite is in flight every Feed is also
	// appended to diff so the child's output can be caught up to the
	// live state without pausing writers.
	rewriteMu sync.Mutex
	rewriting bool
	diff      [][][]byte

	ks *store.Keyspace

	stopCh chan struct{}
}

// rewriteEntry is one key's minimal reconstruction: the chain of
// commands that, replayed in order, recreates it, plus an optional
// trailing EXPIREAT.
type rewriteEntry struct {
	db     int
	key    string
	cmds   [][][]byte
	expire *time.Time
}

func Open(path string, policy SyncPolicy, ks *store.Keyspace) (*Log, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("aof: open: %w", err)
	}
	l := &Log{
		path:   path,
		policy: policy,
		file:   f,
		w:      bufio.NewWriterSize(f, 64*1024),
		ks:     ks,
		stopCh: make(chan struct{}),
	}
	if policy == SyncEverySecond {
		go l.backgroundSync()
	}
	return l, nil
}

func (l *Log) backgroundSync() {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			l.mu.Lock()
			l.w.Flush()
			l.file.Sync()
			l.lastFsync = time.Now()
			l.mu.Unlock()
		case <-l.stopCh:
			return
		}
	}
}

func (l *Log) Close() error {
	close(l.stopCh)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Flush()
	l.file.Sync()
	return l.file.Close()
}

// Feed appends one command frame, emitting a synthetic SELECT first
// if db differs from the last appended command's db (§4.H).
func (l *Log) Feed(db int, args [][]byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.haveDB || l.lastDB != db {
		l.writeFrame([][]byte{[]byte("SELECT"), []byte(fmt.Sprint(db))})
		l.lastDB = db
		l.haveDB = true
	}
	l.writeFrame(args)

	switch l.policy {
	case SyncAlways:
		l.w.Flush()
		l.file.Sync()
		l.lastFsync = time.Now()
	case SyncEverySecond:
		l.w.Flush()
	case SyncNo:
	}

	l.rewriteMu.Lock()
	if l.rewriting {
		cp := make([][]byte, len(args))
		for i, a := range args {
			cp[i] = append([]byte(nil), a...)
		}
		l.diff = append(l.diff, [][]byte{[]byte("SELECT"), []byte(fmt.Sprint(db))}, cp)
	}
	l.rewriteMu.Unlock()
}

func (l *Log) writeFrame(args [][]byte) {
	fmt.Fprintf(l.w, "*%d\r\n", len(args))
	for _, a := range args {
		fmt.Fprintf(l.w, "$%d\r\n", len(a))
		l.w.Write(a)
		l.w.Write([]byte("\r\n"))
	}
}

// BGRewrite compacts the journal on a background goroutine (§4.H).
func (l *Log) BGRewrite() error {
	l.rewriteMu.Lock()
	if l.rewriting {
		l.rewriteMu.Unlock()
		return fmt.Errorf("aof: rewrite already in progress")
	}
	l.rewriting = true
	l.diff = nil
	l.rewriteMu.Unlock()

	go func() {
		err := l.rewriteOnce()
		l.rewriteMu.Lock()
		l.rewriting = false
		l.diff = nil
		l.rewriteMu.Unlock()
		_ = err
	}()
	return nil
}

// buildRewriteEntries walks the keyspace under a read lock (this
// port's stand-in for the forked child of §4.H) and produces the
// minimal command chain that reconstructs each key.
func (l *Log) buildRewriteEntries() []rewriteEntry {
	l.ks.RLock()
	defer l.ks.RUnlock()

	// Writes fed before this snapshot are already in it.
	l.rewriteMu.Lock()
	l.diff = nil
	l.rewriteMu.Unlock()

	var out []rewriteEntry
	for i := 0; i < l.ks.NumDBs(); i++ {
		db := l.ks.DB(i)
		for _, key := range db.Keys() {
			o, ok := db.LookupRead(key)
			if !ok {
				continue
			}
			e := rewriteEntry{db: i, key: key}
			switch o.Kind {
			case store.KindString:
				e.cmds = [][][]byte{{[]byte("SET"), []byte(key), o.Bytes()}}
			case store.KindList:
				elems := o.List().ToSlice()
				if len(elems) > 0 {
					cmd := append([][]byte{[]byte("RPUSH"), []byte(key)}, elems...)
					e.cmds = [][][]byte{cmd}
				}
			case store.KindSet:
				members := o.Set().Members()
				if len(members) > 0 {
					cmd := append([][]byte{[]byte("SADD"), []byte(key)}, members...)
					e.cmds = [][][]byte{cmd}
				}
			case store.KindZSet:
				for _, m := range o.ZSet().All() {
					e.cmds = append(e.cmds, [][]byte{[]byte("ZADD"), []byte(key), []byte(fmt.Sprintf("%g", m.Score)), m.Member})
				}
			case store.KindHash:
				pairs := o.Hash().All()
				if len(pairs) > 0 {
					cmd := append([][]byte{[]byte("HSET"), []byte(key)}, pairs...)
					e.cmds = [][][]byte{cmd}
				}
			default:
				continue
			}
			if ttl, hasTTL := db.GetExpire(key); hasTTL {
				t := time.Now().Add(ttl)
				e.expire = &t
			}
			out = append(out, e)
		}
	}
	return out
}

func (l *Log) rewriteOnce() error {
	entries := l.buildRewriteEntries()

	tmp := filepath.Join(filepath.Dir(l.path), fmt.Sprintf("temp-rewriteaof-%d.aof", os.Getpid()))
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(f, 64*1024)

	lastDB := -1
	for _, e := range entries {
		if e.db != lastDB {
			writeFrameTo(bw, [][]byte{[]byte("SELECT"), []byte(fmt.Sprint(e.db))})
			lastDB = e.db
		}
		for _, cmd := range e.cmds {
			writeFrameTo(bw, cmd)
		}
		if e.expire != nil {
			writeFrameTo(bw, [][]byte{[]byte("EXPIREAT"), []byte(e.key), []byte(fmt.Sprint(e.expire.Unix()))})
		}
	}

	// Catch up on writes that landed while the above ran. l.mu is held
	// from here to the swap so no Feed can slip in between.
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rewriteMu.Lock()
	diff := l.diff
	l.diff = nil
	l.rewriteMu.Unlock()
	for _, args := range diff {
		writeFrameTo(bw, args)
	}

	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	f.Close()

	l.w.Flush()
	l.file.Close()
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return err
	}
	nf, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	l.file = nf
	l.w = bufio.NewWriterSize(nf, 64*1024)
	l.haveDB = false
	return nil
}

func writeFrameTo(w *bufio.Writer, args [][]byte) {
	fmt.Fprintf(w, "*%d\r\n", len(args))
	for _, a := range args {
		fmt.Fprintf(w, "$%d\r\n", len(a))
		w.Write(a)
		w.Write([]byte("\r\n"))
	}
}

// Load replays path through engine using an in-process synthetic
// client whose replies are drained without transmission (§4.H). A
// missing file is not an error.
func Load(path string, engine *command.Engine) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	sink := &sinkConn{}
	client := command.NewClient(-1, sink)
	client.Authenticated = true

	r := bufio.NewReader(f)
	for {
		cmd, err := protocol.Parse(r, nil)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("aof: replay: %w", err)
		}
		if len(cmd.Args) == 0 {
			continue
		}
		engine.Dispatch(client, cmd)
	}
}

// sinkConn discards replies; AOF replay doesn't talk to a real socket.
type sinkConn struct{}

func (sinkConn) Write(b []byte) error { return nil }
func (sinkConn) RemoteAddr() string   { return "aof-replay" }
