// Package paging implements §4.J's value paging: String values that
// don't fit in memory are serialized out to a page-addressable swap
// file and their in-memory payload dropped, then transparently
// reloaded the next time a command needs them.
//
// The original runs PrepareSwap/DoSwap/Load jobs through three
// mutex-guarded queues serviced by a pool of OS threads that wake the
// main event loop with a single byte written to a self-pipe. Nothing
// in the teacher repo touches paging at all (it has no VM layer), so
// this package is grounded instead on gholt-valuestore's file-writer
// pipeline (_examples/gholt-valuestore/valuestorefile_GEN_.go: a chain
// of buffered channels handed between a pool of goroutines) — the
// same shape, recast as a job channel serviced by a worker pool
// instead of a three-queue/self-pipe protocol. PrepareSwap collapses
// into DoSwap since computing a value's page count here is a cheap
// local call (SwapFile.PagesFor), not a separate round trip worth its
// own job kind. Job cancellation is implicit: every job re-validates
// that the object it started with is still installed at its key
// after reacquiring the keyspace lock, so a key deleted or overwritten
// mid-job simply makes that job's result a no-op instead of needing a
// three-queue search-and-mark-canceled walk. See DESIGN.md.
package paging

import (
	"math"
	"math/rand"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/faizanhussain2310/goredis-core/internal/blocking"
	"github.com/faizanhussain2310/goredis-core/internal/store"
)

type jobKind int

const (
	jobSwap jobKind = iota
	jobLoad
)

type job struct {
	kind jobKind
	db   int
	key  string
}

// sampleSize is how many random keys per database MaybeEvict inspects
// when looking for a swap-out candidate (§4.J: "sampling a handful of
// keys rather than scanning the whole keyspace").
const sampleSize = 5

// Pager implements command.Pager (Preload) plus the swap-out trigger
// a server's periodic cron calls when resident memory exceeds its
// configured cap.
type Pager struct {
	ks  *store.Keyspace
	sf  *SwapFile
	log *zap.Logger

	maxMemory  int64
	usedMemory func() int64

	jobs    chan *job
	stop    chan struct{}
	workers int

	inFlight map[string]struct{}

	// loadWaiters is a Broker private to this package: a key parked
	// here (namespaced only by db+key, same tuple the blocking package
	// uses for list pushes, but a wholly separate Broker instance) is
	// woken the moment its Load job finishes, never by an unrelated
	// list push.
	loadWaiters *blocking.Broker

	// grp supervises the worker pool goroutines: Start launches each
	// worker under it, Stop closes the stop channel and Wait blocks
	// until every worker has drained its current job, the same
	// fan-out/fan-in shape gholt-valuestore uses for its writer pool.
	grp *errgroup.Group
}

// New wires a Pager around an already-open swap file. workers controls
// how many goroutines service swap/load jobs concurrently
// (vm-max-threads). maxMemory<=0 or a nil usedMemory disables
// eviction; Preload still honors already-swapped keys either way.
func New(ks *store.Keyspace, sf *SwapFile, workers int, maxMemory int64, usedMemory func() int64, log *zap.Logger) *Pager {
	if workers <= 0 {
		workers = 1
	}
	return &Pager{
		ks:          ks,
		sf:          sf,
		log:         log,
		maxMemory:   maxMemory,
		usedMemory:  usedMemory,
		jobs:        make(chan *job, 4096),
		stop:        make(chan struct{}),
		workers:     workers,
		inFlight:    make(map[string]struct{}),
		loadWaiters: blocking.New(),
	}
}

func (p *Pager) Start() {
	p.grp = &errgroup.Group{}
	for i := 0; i < p.workers; i++ {
		p.grp.Go(p.worker)
	}
}

// Stop signals every worker to exit after its current job and blocks
// until they have all drained, so a shutdown never races an in-flight
// swap/load write against process exit.
func (p *Pager) Stop() {
	close(p.stop)
	if p.grp != nil {
		p.grp.Wait()
	}
}

func (p *Pager) worker() error {
	for {
		select {
		case j := <-p.jobs:
			switch j.kind {
			case jobSwap:
				p.doSwap(j)
			case jobLoad:
				p.doLoad(j)
			}
		case <-p.stop:
			return nil
		}
	}
}

func jobKey(db int, key string) string { return strconv.Itoa(db) + "\x00" + key }

// submit hands a job to a worker without ever blocking the caller,
// which in practice always holds the keyspace write lock (Preload and
// MaybeEvict both enqueue while locked). A full buffered channel falls
// back to an async send on its own goroutine rather than stalling
// dispatch.
func (p *Pager) submit(j *job) {
	select {
	case p.jobs <- j:
	default:
		go func() { p.jobs <- j }()
	}
}

// Preload implements command.Pager: block the caller until every key
// is resident, kicking off a Load job for any that are Swapped.
// Callers hold the keyspace write lock on entry and must get it back
// on return (§5, the same convention blockingPop uses).
func (p *Pager) Preload(db int, keys [][]byte) {
	dbh := p.ks.DB(db)
	for _, kb := range keys {
		key := string(kb)
		for {
			o, ok := dbh.LookupRead(key)
			if !ok || o.Storage == store.StorageMemory {
				break
			}
			if o.Storage == store.StorageSwapped {
				p.enqueueLoadLocked(db, key, o)
			}
			p.ks.Unlock()
			p.loadWaiters.Wait(db, []string{key}, time.Time{})
			p.ks.Lock()
		}
	}
}

// enqueueLoadLocked creates a Load job for (db,key) unless one is
// already in flight, marking the object Loading so concurrent Preload
// callers on the same key just park instead of double-submitting.
// Caller holds the keyspace write lock.
func (p *Pager) enqueueLoadLocked(db int, key string, o *store.Object) {
	ik := jobKey(db, key)
	if _, exists := p.inFlight[ik]; exists {
		return
	}
	p.inFlight[ik] = struct{}{}
	o.Storage = store.StorageLoading
	p.submit(&job{kind: jobLoad, db: db, key: key})
}

func (p *Pager) doLoad(j *job) {
	ik := jobKey(j.db, j.key)
	dbh := p.ks.DB(j.db)

	p.ks.Lock()
	o, ok := dbh.LookupWrite(j.key)
	if !ok || o.Storage != store.StorageLoading {
		delete(p.inFlight, ik)
		p.ks.Unlock()
		p.loadWaiters.Notify(j.db, j.key, nil)
		return
	}
	start, count := o.PageStart, o.PageCount
	p.ks.Unlock()

	data, err := p.sf.Read(start, count)

	p.ks.Lock()
	o2, ok := dbh.LookupWrite(j.key)
	if ok && o2 == o && o2.Storage == store.StorageLoading {
		if err != nil {
			if p.log != nil {
				p.log.Warn("paging: load failed, leaving key swapped", zap.String("key", j.key), zap.Error(err))
			}
			o2.Storage = store.StorageSwapped
		} else {
			p.sf.Free(start, count)
			o2.SwapIn(data)
		}
	}
	delete(p.inFlight, ik)
	p.ks.Unlock()

	p.loadWaiters.Notify(j.db, j.key, nil)
}

func (p *Pager) doSwap(j *job) {
	ik := jobKey(j.db, j.key)
	dbh := p.ks.DB(j.db)

	p.ks.Lock()
	o, ok := dbh.LookupWrite(j.key)
	if !ok || o.Storage != store.StorageSwapping {
		delete(p.inFlight, ik)
		p.ks.Unlock()
		return
	}
	data := append([]byte(nil), o.Bytes()...)
	p.ks.Unlock()

	start, count, err := p.sf.Write(data)

	p.ks.Lock()
	o2, ok := dbh.LookupWrite(j.key)
	if ok && o2 == o && o2.Storage == store.StorageSwapping {
		if err != nil {
			if p.log != nil {
				p.log.Warn("paging: swap-out failed, keeping key resident", zap.String("key", j.key), zap.Error(err))
			}
			o2.Storage = store.StorageMemory
		} else {
			o2.SwapOut(start, count)
		}
	} else if err == nil {
		p.sf.Free(start, count)
	}
	delete(p.inFlight, ik)
	p.ks.Unlock()
}

// MaybeEvict schedules at most one swap-out job if resident memory
// currently exceeds MaxMemory, sampling a few random keys per database
// and scoring each by idle_age * log(1 + estimated_bytes) (§4.J).
// Called from the server's periodic cron; Preload does not call it.
func (p *Pager) MaybeEvict() {
	if p.maxMemory <= 0 || p.usedMemory == nil {
		return
	}
	if p.usedMemory() <= p.maxMemory {
		return
	}

	p.ks.Lock()
	defer p.ks.Unlock()

	var bestDB int
	var bestKey string
	var bestObj *store.Object
	bestScore := -1.0

	for i := 0; i < p.ks.NumDBs(); i++ {
		dbh := p.ks.DB(i)
		keys := dbh.Keys()
		if len(keys) == 0 {
			continue
		}
		for s := 0; s < sampleSize; s++ {
			k := keys[rand.Intn(len(keys))]
			o, ok := dbh.LookupRead(k)
			if !ok || o.Kind != store.KindString || o.Storage != store.StorageMemory || o.RefCount() != 1 {
				continue
			}
			idle := time.Since(o.LastAccess).Seconds()
			if idle < 0 {
				idle = 0
			}
			score := idle * math.Log(1+float64(o.EstimatedBytes()))
			if score > bestScore {
				bestScore, bestDB, bestKey, bestObj = score, i, k, o
			}
		}
	}
	if bestObj == nil {
		return
	}

	ik := jobKey(bestDB, bestKey)
	if _, exists := p.inFlight[ik]; exists {
		return
	}
	p.inFlight[ik] = struct{}{}
	bestObj.Storage = store.StorageSwapping
	p.submit(&job{kind: jobSwap, db: bestDB, key: bestKey})
}

// String satisfies fmt.Stringer for diagnostic logging (e.g. INFO).
func (k jobKind) String() string {
	if k == jobSwap {
		return "swap"
	}
	return "load"
}
