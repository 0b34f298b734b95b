package store

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// freeObjectCacheSize is the cap from spec §5: "a free-object cache
// caps at 1,000,000 released objects before further releases
// deallocate."
const freeObjectCacheSize = 1_000_000

// freeList retains recently-released Objects, capped at
// freeObjectCacheSize entries; hashicorp/golang-lru's eviction of the
// oldest entry once the cache is full is the "further releases
// deallocate" behavior — the evicted Object simply becomes garbage.
// No allocation path takes Objects back out of it: the constructors
// always allocate a fresh Object.
type freeList struct {
	seq   uint64
	cache *lru.Cache[uint64, *Object]
}

func newFreeList() *freeList {
	c, err := lru.New[uint64, *Object](freeObjectCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which never
		// happens here; a misconfigured build is a programming bug.
		panic(err)
	}
	return &freeList{cache: c}
}

// Put offers a released Object to the cache for reuse.
func (f *freeList) Put(o *Object) {
	f.seq++
	f.cache.Add(f.seq, o)
}

// Len reports how many objects the free list currently holds.
func (f *freeList) Len() int { return f.cache.Len() }
