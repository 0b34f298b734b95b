// Package rdb implements the binary snapshot file of §4.G: a bit-exact
// dump of the keyspace with compressed length-prefix encoding, written
// atomically via temp-file-then-rename.
//
// Grounded on the teacher's internal/rdb/rdb.go (opcode table, atomic
// write protocol, Writer wrapping a filepath); the wire layout itself
// follows spec §4.G's framing rather than the teacher's RDB9 layout.
package rdb

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/faizanhussain2310/goredis-core/internal/store"
)

const (
	magic = "REDIS0001"

	opEOF        = 0xFF
	opSelectDB   = 0xFE
	opExpireTime = 0xFD

	typeString = 0
	typeList   = 1
	typeSet    = 2
	typeZSet   = 3
	typeHash   = 4
)

// Manager owns one snapshot file: it serializes the whole keyspace on
// demand (SAVE) or in a background goroutine (BGSAVE, this port's
// substitute for the original's forked child — see DESIGN.md) and
// loads it back at startup.
type Manager struct {
	path        string
	compress    bool
	ks          *store.Keyspace
	hashEntries int
	hashValue   int

	mu       sync.Mutex
	saving   bool
	lastSave time.Time
}

func NewManager(path string, compress bool, ks *store.Keyspace, hashMaxZipmapEntries, hashMaxZipmapValue int) *Manager {
	return &Manager{path: path, compress: compress, ks: ks, hashEntries: hashMaxZipmapEntries, hashValue: hashMaxZipmapValue, lastSave: time.Now()}
}

func (m *Manager) LastSave() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSave
}

// Save writes the snapshot synchronously (SAVE).
func (m *Manager) Save() error { return m.saveOnce() }

// BGSave writes the snapshot on a separate goroutine (BGSAVE). The
// keyspace read lock taken inside saveOnce is this port's
// approximation of fork()'s copy-on-write snapshot: readers proceed
// concurrently, writers block for the duration, giving the same
// point-in-time consistency guarantee with weaker concurrency than a
// true fork.
func (m *Manager) BGSave() error {
	m.mu.Lock()
	if m.saving {
		m.mu.Unlock()
		return fmt.Errorf("background save already in progress")
	}
	m.saving = true
	m.mu.Unlock()

	go func() {
		defer func() {
			m.mu.Lock()
			m.saving = false
			m.mu.Unlock()
		}()
		_ = m.saveOnce()
	}()
	return nil
}

func (m *Manager) saveOnce() error {
	dir := filepath.Dir(m.path)
	tmp := filepath.Join(dir, fmt.Sprintf("temp-%d.rdb", os.Getpid()))

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("rdb: create temp file: %w", err)
	}
	bw := bufio.NewWriter(f)

	m.ks.RLock()
	err = m.writeAll(bw)
	m.ks.RUnlock()

	if err == nil {
		err = bw.Flush()
	}
	if err == nil {
		err = f.Sync()
	}
	f.Close()
	if err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return err
	}
	m.mu.Lock()
	m.lastSave = time.Now()
	m.mu.Unlock()
	return nil
}

func (m *Manager) writeAll(w io.Writer) error {
	return dumpTo(w, m.ks, m.compress)
}

// dumpTo serializes ks's full contents (all databases). Callers are
// responsible for holding whatever Keyspace lock is appropriate
// (RLock for a standalone snapshot, or none if already holding the
// write lock from within command dispatch — see DumpLocked).
func dumpTo(w io.Writer, ks *store.Keyspace, compress bool) error {
	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}
	for i := 0; i < ks.NumDBs(); i++ {
		db := ks.DB(i)
		if db.Size() == 0 {
			continue
		}
		if _, err := w.Write([]byte{opSelectDB}); err != nil {
			return err
		}
		if err := writeLength(w, uint32(i)); err != nil {
			return err
		}
		for _, key := range db.Keys() {
			o, ok := db.LookupRead(key)
			if !ok {
				continue
			}
			if ttl, hasTTL := db.GetExpire(key); hasTTL {
				if err := writeExpire(w, time.Now().Add(ttl)); err != nil {
					return err
				}
			}
			if err := writeEntry(w, key, o, compress); err != nil {
				return err
			}
		}
	}
	_, err := w.Write([]byte{opEOF})
	return err
}

// Dump serializes ks to an in-memory buffer, taking a read lock for
// the duration. Used for ad-hoc snapshots outside the Manager's own
// file (e.g. nothing in this port currently calls this path
// standalone, but it mirrors Save's locking contract for callers that
// want bytes rather than a file).
func Dump(ks *store.Keyspace, compress bool) ([]byte, error) {
	var buf bytes.Buffer
	ks.RLock()
	err := dumpTo(&buf, ks, compress)
	ks.RUnlock()
	return buf.Bytes(), err
}

// DumpLocked is Dump for a caller that already holds ks's write lock
// (the replication package's SYNC handler runs inside command
// dispatch, which already serializes all keyspace access — taking
// RLock again here would deadlock against that held write lock).
func DumpLocked(ks *store.Keyspace, compress bool) ([]byte, error) {
	var buf bytes.Buffer
	err := dumpTo(&buf, ks, compress)
	return buf.Bytes(), err
}

func writeExpire(w io.Writer, at time.Time) error {
	buf := make([]byte, 5)
	buf[0] = opExpireTime
	binary.BigEndian.PutUint32(buf[1:], uint32(at.Unix()))
	_, err := w.Write(buf)
	return err
}

func writeEntry(w io.Writer, key string, o *store.Object, compress bool) error {
	var typeByte byte
	switch o.Kind {
	case store.KindString:
		typeByte = typeString
	case store.KindList:
		typeByte = typeList
	case store.KindSet:
		typeByte = typeSet
	case store.KindZSet:
		typeByte = typeZSet
	case store.KindHash:
		typeByte = typeHash
	default:
		return fmt.Errorf("rdb: unsupported kind %v for key %q", o.Kind, key)
	}
	if _, err := w.Write([]byte{typeByte}); err != nil {
		return err
	}
	if err := writeString(w, []byte(key), compress); err != nil {
		return err
	}
	switch o.Kind {
	case store.KindString:
		return writeString(w, o.Bytes(), compress)
	case store.KindList:
		elems := o.List().ToSlice()
		if err := writeLength(w, uint32(len(elems))); err != nil {
			return err
		}
		for _, e := range elems {
			if err := writeString(w, e, compress); err != nil {
				return err
			}
		}
		return nil
	case store.KindSet:
		members := o.Set().Members()
		if err := writeLength(w, uint32(len(members))); err != nil {
			return err
		}
		for _, mem := range members {
			if err := writeString(w, mem, compress); err != nil {
				return err
			}
		}
		return nil
	case store.KindZSet:
		members := o.ZSet().All()
		if err := writeLength(w, uint32(len(members))); err != nil {
			return err
		}
		for _, mem := range members {
			if err := writeString(w, mem.Member, compress); err != nil {
				return err
			}
			if err := writeDouble(w, mem.Score); err != nil {
				return err
			}
		}
		return nil
	case store.KindHash:
		pairs := o.Hash().All()
		if err := writeLength(w, uint32(len(pairs)/2)); err != nil {
			return err
		}
		for i := 0; i < len(pairs); i += 2 {
			if err := writeString(w, pairs[i], compress); err != nil {
				return err
			}
			if err := writeString(w, pairs[i+1], compress); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}

// Load replaces the keyspace's contents with the file at m.path. A
// missing file is not an error (fresh install with no prior snapshot).
func (m *Manager) Load() error {
	f, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	return loadFrom(bufio.NewReader(f), m.ks, m.hashEntries, m.hashValue)
}

// LoadFile replaces ks's contents with the dump at path: used by the
// replication package after downloading a fresh snapshot from a
// master (§4.I: "write to temp, rename, empty local keyspace, load").
func LoadFile(path string, ks *store.Keyspace, hashMaxZipmapEntries, hashMaxZipmapValue int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return loadFrom(bufio.NewReader(f), ks, hashMaxZipmapEntries, hashMaxZipmapValue)
}

func loadFrom(r io.Reader, ks *store.Keyspace, hashEntries, hashValue int) error {
	hdr := make([]byte, len(magic))
	if _, err := io.ReadFull(r, hdr); err != nil {
		return fmt.Errorf("rdb: read header: %w", err)
	}
	if string(hdr) != magic {
		return fmt.Errorf("rdb: bad magic %q", hdr)
	}

	ks.Lock()
	defer ks.Unlock()
	for i := 0; i < ks.NumDBs(); i++ {
		ks.DB(i).Flush()
	}

	db := ks.DB(0)
	var pendingExpire *time.Time
	for {
		var op [1]byte
		if _, err := io.ReadFull(r, op[:]); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		switch op[0] {
		case opEOF:
			return nil
		case opSelectDB:
			n, err := readLength(r)
			if err != nil {
				return err
			}
			if int(n) >= ks.NumDBs() {
				return fmt.Errorf("rdb: db index %d out of range", n)
			}
			db = ks.DB(int(n))
		case opExpireTime:
			var buf [4]byte
			if _, err := io.ReadFull(r, buf[:]); err != nil {
				return err
			}
			t := time.Unix(int64(binary.BigEndian.Uint32(buf[:])), 0)
			pendingExpire = &t
		default:
			key, o, err := readEntry(op[0], r, hashEntries, hashValue)
			if err != nil {
				return err
			}
			db.Set(key, o)
			if pendingExpire != nil {
				db.SetExpire(key, *pendingExpire)
				pendingExpire = nil
			}
		}
	}
}

func readEntry(typeByte byte, r io.Reader, hashEntries, hashValue int) (string, *store.Object, error) {
	keyBytes, err := readString(r)
	if err != nil {
		return "", nil, err
	}
	key := string(keyBytes)

	switch typeByte {
	case typeString:
		v, err := readString(r)
		if err != nil {
			return "", nil, err
		}
		return key, store.NewString(v), nil
	case typeList:
		n, err := readLength(r)
		if err != nil {
			return "", nil, err
		}
		o := store.NewList()
		for i := uint32(0); i < n; i++ {
			v, err := readString(r)
			if err != nil {
				return "", nil, err
			}
			o.List().PushBack(v)
		}
		return key, o, nil
	case typeSet:
		n, err := readLength(r)
		if err != nil {
			return "", nil, err
		}
		o := store.NewSet()
		for i := uint32(0); i < n; i++ {
			v, err := readString(r)
			if err != nil {
				return "", nil, err
			}
			o.Set().Add(v)
		}
		return key, o, nil
	case typeZSet:
		n, err := readLength(r)
		if err != nil {
			return "", nil, err
		}
		o := store.NewZSet()
		for i := uint32(0); i < n; i++ {
			mem, err := readString(r)
			if err != nil {
				return "", nil, err
			}
			score, err := readDouble(r)
			if err != nil {
				return "", nil, err
			}
			o.ZSet().Add(mem, score)
		}
		return key, o, nil
	case typeHash:
		n, err := readLength(r)
		if err != nil {
			return "", nil, err
		}
		o := store.NewHash(hashEntries, hashValue)
		for i := uint32(0); i < n; i++ {
			f, err := readString(r)
			if err != nil {
				return "", nil, err
			}
			v, err := readString(r)
			if err != nil {
				return "", nil, err
			}
			o.Hash().Set(f, v)
		}
		return key, o, nil
	default:
		return "", nil, fmt.Errorf("rdb: unknown type byte %d", typeByte)
	}
}
