package store

import (
	"math/rand"
	"sync"
	"time"
)

// Waiter is a parked client identifier, opaque to this package.
// Callers use it to look up their own client bookkeeping when a key
// they are blocked on becomes ready (§4.K, §4.J).
type Waiter int64

// DB is one numbered, independent key->value namespace (§3). The four
// maps mirror spec §3 exactly: main, expiry, blocked-on-key (list
// pushes) and pending-swap (page loads).
type DB struct {
	main        map[string]*Object
	expireAt    map[string]time.Time
	blockedKeys map[string][]Waiter
	pendingLoad map[string][]Waiter

	HashMaxZipmapEntries int
	HashMaxZipmapValue   int
}

func newDB(hashMaxZipmapEntries, hashMaxZipmapValue int) *DB {
	return &DB{
		main:                 make(map[string]*Object),
		expireAt:             make(map[string]time.Time),
		blockedKeys:          make(map[string][]Waiter),
		pendingLoad:          make(map[string][]Waiter),
		HashMaxZipmapEntries: hashMaxZipmapEntries,
		HashMaxZipmapValue:   hashMaxZipmapValue,
	}
}

func (d *DB) Size() int { return len(d.main) }

// expireIfNeeded removes key if its expiry is in the past and reports
// whether it did. The expiry invariant (§3) is enforced here: deleting
// an expired key always removes both maps together.
func (d *DB) expireIfNeeded(key string, now time.Time) bool {
	at, ok := d.expireAt[key]
	if !ok {
		return false
	}
	if now.Before(at) {
		return false
	}
	d.deleteKey(key)
	return true
}

func (d *DB) deleteKey(key string) {
	delete(d.main, key)
	delete(d.expireAt, key)
}

// LookupRead returns the value for key, first evicting it if its
// expiry is in the past (§4.B).
func (d *DB) LookupRead(key string) (*Object, bool) {
	d.expireIfNeeded(key, time.Now())
	o, ok := d.main[key]
	if ok {
		o.Touch()
	}
	return o, ok
}

// LookupWrite is like LookupRead but unconditionally drops a stale
// entry (§4.B: "also drops a stale-expired entry unconditionally").
func (d *DB) LookupWrite(key string) (*Object, bool) {
	d.expireIfNeeded(key, time.Now())
	o, ok := d.main[key]
	if ok {
		o.Touch()
	}
	return o, ok
}

// Set installs o at key, dropping any previous expiry (callers that
// want to preserve TTL across overwrite must re-call SetExpire).
func (d *DB) Set(key string, o *Object) {
	d.main[key] = o
	delete(d.expireAt, key)
}

// SetKeepTTL installs o at key without touching an existing expiry.
func (d *DB) SetKeepTTL(key string, o *Object) {
	d.main[key] = o
}

// Delete removes key from main and expiry together (§3 invariant).
// Returns true if the key existed.
func (d *DB) Delete(key string) bool {
	_, ok := d.main[key]
	if ok {
		d.deleteKey(key)
	}
	return ok
}

func (d *DB) Exists(key string) bool {
	_, ok := d.LookupRead(key)
	return ok
}

// SetExpire records key's absolute expiry. Returns false if key is
// absent.
func (d *DB) SetExpire(key string, when time.Time) bool {
	if _, ok := d.main[key]; !ok {
		return false
	}
	d.expireAt[key] = when
	return true
}

func (d *DB) Persist(key string) bool {
	if _, ok := d.expireAt[key]; !ok {
		return false
	}
	delete(d.expireAt, key)
	return true
}

// GetExpire returns the remaining TTL and true, or false if key has
// no expiry (including if key is absent).
func (d *DB) GetExpire(key string) (time.Duration, bool) {
	at, ok := d.expireAt[key]
	if !ok {
		return 0, false
	}
	return time.Until(at), true
}

func (d *DB) Keys() []string {
	out := make([]string, 0, len(d.main))
	for k := range d.main {
		out = append(out, k)
	}
	return out
}

func (d *DB) RandomKey() (string, bool) {
	for k := range d.main {
		return k, true
	}
	return "", false
}

func (d *DB) Flush() {
	d.main = make(map[string]*Object)
	d.expireAt = make(map[string]time.Time)
}

// --- blocked-on-key / pending-swap bookkeeping (§3, §4.K, §4.J) ---

func (d *DB) AddBlockedWaiter(key string, w Waiter) {
	d.blockedKeys[key] = append(d.blockedKeys[key], w)
}

func (d *DB) PopBlockedWaiter(key string) (Waiter, bool) {
	q := d.blockedKeys[key]
	if len(q) == 0 {
		return 0, false
	}
	w := q[0]
	q = q[1:]
	if len(q) == 0 {
		delete(d.blockedKeys, key)
	} else {
		d.blockedKeys[key] = q
	}
	return w, true
}

func (d *DB) RemoveBlockedWaiter(key string, w Waiter) {
	q := d.blockedKeys[key]
	for i, x := range q {
		if x == w {
			d.blockedKeys[key] = append(q[:i], q[i+1:]...)
			break
		}
	}
	if len(d.blockedKeys[key]) == 0 {
		delete(d.blockedKeys, key)
	}
}

func (d *DB) HasBlockedWaiters(key string) bool { return len(d.blockedKeys[key]) > 0 }

func (d *DB) AddPendingLoad(key string, w Waiter) {
	d.pendingLoad[key] = append(d.pendingLoad[key], w)
}

func (d *DB) TakePendingLoaders(key string) []Waiter {
	q := d.pendingLoad[key]
	delete(d.pendingLoad, key)
	return q
}

// Keyspace is the array of databases of §3.
//
// mu stands in for the original's single-threaded cooperative
// scheduler: every connection here runs on its own goroutine, so one
// mutex around command execution reproduces "no command handler needs
// its own locking" (§5) without an actual event-loop thread. Snapshot
// and AOF-rewrite background work take a read lock instead of forking,
// which is this port's approximation of fork/COW (§4.G design note).
type Keyspace struct {
	dbs      []*DB
	freeList *freeList
	mu       sync.RWMutex
}

func (ks *Keyspace) Lock()    { ks.mu.Lock() }
func (ks *Keyspace) Unlock()  { ks.mu.Unlock() }
func (ks *Keyspace) RLock()   { ks.mu.RLock() }
func (ks *Keyspace) RUnlock() { ks.mu.RUnlock() }

func NewKeyspace(numDBs, hashMaxZipmapEntries, hashMaxZipmapValue int) *Keyspace {
	ks := &Keyspace{dbs: make([]*DB, numDBs), freeList: newFreeList()}
	for i := range ks.dbs {
		ks.dbs[i] = newDB(hashMaxZipmapEntries, hashMaxZipmapValue)
	}
	return ks
}

func (ks *Keyspace) DB(n int) *DB { return ks.dbs[n] }
func (ks *Keyspace) NumDBs() int  { return len(ks.dbs) }

// ReleaseObject returns a no-longer-referenced object to the free
// list instead of letting it go straight to the garbage collector.
func (ks *Keyspace) ReleaseObject(o *Object) {
	o.Release()
	if o.RefCount() == 0 {
		ks.freeList.Put(o)
	}
}

// ActiveExpireCycle implements §4.B's adaptive active-expiry
// algorithm: sample up to 100 random entries per database; if more
// than 25% of the sampled batch had expired, repeat.
func (ks *Keyspace) ActiveExpireCycle() (expired int) {
	const sampleSize = 100
	now := time.Now()
	for _, db := range ks.dbs {
		for {
			keys := make([]string, 0, len(db.expireAt))
			for k := range db.expireAt {
				keys = append(keys, k)
			}
			if len(keys) == 0 {
				break
			}
			n := sampleSize
			if n > len(keys) {
				n = len(keys)
			}
			rand.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
			sample := keys[:n]

			hits := 0
			for _, k := range sample {
				if db.expireIfNeeded(k, now) {
					hits++
					expired++
				}
			}
			if hits*4 <= n { // hits/n <= 25%
				break
			}
		}
	}
	return expired
}
