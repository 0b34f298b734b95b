// Package blocking implements the parked-client protocol of §4.K: a
// client waiting on an empty list is parked on one or more keys and
// woken the moment any of them receives a push, or when its deadline
// lapses.
//
// The original parks a client struct directly in the event loop and
// resumes it from the before-sleep hook. Here each blocked command
// runs on its own connection goroutine, so parking is expressed as a
// goroutine blocking on a channel rather than a struct sitting in a
// map until the next loop tick — same protocol, adapted to Go's
// concurrency idiom instead of cooperative scheduling.
package blocking

import (
	"sync"
	"time"
)

type result struct {
	Key   string
	Value []byte
}

// ticket is shared across every key a single Wait call registers on,
// so that whichever key is pushed to first delivers exactly once and
// the registrations on the other keys become inert.
type ticket struct {
	ch        chan result
	mu        sync.Mutex
	delivered bool
}

func (t *ticket) tryDeliver(r result) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.delivered {
		return false
	}
	t.delivered = true
	t.ch <- r
	return true
}

func (t *ticket) cancel() {
	t.mu.Lock()
	t.delivered = true
	t.mu.Unlock()
}

// Broker tracks, per (db, key), the FIFO queue of clients parked
// there (§3's "blocked-on-key" map).
type Broker struct {
	mu      sync.Mutex
	waiters map[string][]*ticket
}

func New() *Broker {
	return &Broker{waiters: make(map[string][]*ticket)}
}

func wkey(db int, key string) string {
	// A single map keyed by a (db, key) composite avoids one map of
	// maps per database; collisions across db numbers are impossible
	// since db is encoded as one leading UTF-8 rune, which decodes
	// unambiguously whatever bytes the key holds; the NUL after it is
	// only a separator.
	return string(rune(db)) + "\x00" + key
}

// Wait parks the caller on keys until one is pushed to or deadline
// passes (a zero deadline means wait forever, as BLPOP/BRPOP with a
// timeout of 0 and the paging package's load waits use it). Returns
// the key that was pushed to and the delivered element, or ok=false
// on timeout.
func (b *Broker) Wait(db int, keys []string, deadline time.Time) (key string, value []byte, ok bool) {
	t := &ticket{ch: make(chan result, 1)}
	b.mu.Lock()
	for _, k := range keys {
		wk := wkey(db, k)
		b.waiters[wk] = append(b.waiters[wk], t)
	}
	b.mu.Unlock()

	var after <-chan time.Time
	if !deadline.IsZero() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		after = timer.C
	}
	select {
	case r := <-t.ch:
		return r.Key, r.Value, true
	case <-after:
		t.cancel()
		return "", nil, false
	}
}

// Notify delivers value to the oldest live waiter parked on (db, key)
// and reports whether anyone was waiting. Called by list push
// handlers in place of storing the pushed element (§4.K: "the
// pusher's element is delivered to the oldest waiter... instead of
// being stored").
func (b *Broker) Notify(db int, key string, value []byte) bool {
	wk := wkey(db, key)
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.waiters[wk]
	for len(q) > 0 {
		t := q[0]
		q = q[1:]
		if t.tryDeliver(result{Key: key, Value: value}) {
			b.waiters[wk] = q
			return true
		}
	}
	b.waiters[wk] = q
	return false
}

// HasWaiters reports whether any client is currently parked on key. A
// waiter whose Wait timed out, or that was already served through
// another key, does not count. Push handlers do not consult it; they
// call Notify directly.
func (b *Broker) HasWaiters(db int, key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.waiters[wkey(db, key)] {
		t.mu.Lock()
		live := !t.delivered
		t.mu.Unlock()
		if live {
			return true
		}
	}
	return false
}
