// Package store implements the keyspace: the polymorphic value object
// (kind + encoding + refcount + paging metadata), the per-database
// key->value and key->expiry maps, and the per-kind data structure
// engines (string, list, set, sorted set, hash) that operate on them.
package store

import (
	"strconv"
	"time"
)

// Kind tags the variant a Object carries.
type Kind int

const (
	KindString Kind = iota
	KindList
	KindSet
	KindZSet
	KindHash
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindZSet:
		return "zset"
	case KindHash:
		return "hash"
	default:
		return "unknown"
	}
}

// Encoding tags the physical representation of an Object's payload.
type Encoding int

const (
	EncRaw Encoding = iota
	EncInt
	EncLinkedList
	EncHashTable
	EncZipmap
	EncSkipList
)

func (enc Encoding) String() string {
	switch enc {
	case EncRaw:
		return "raw"
	case EncInt:
		return "int"
	case EncLinkedList:
		return "linkedlist"
	case EncHashTable:
		return "hashtable"
	case EncZipmap:
		return "zipmap"
	case EncSkipList:
		return "skiplist"
	default:
		return "unknown"
	}
}

// Storage tags where an Object's payload currently lives. Only String
// values may ever be anything but StorageMemory; see §4.J.
type Storage int

const (
	StorageMemory Storage = iota
	StorageSwapped
	StorageSwapping
	StorageLoading
)

// Object is the tagged, refcounted value container described in
// spec §3/§4.A. A String payload is either a []byte (EncRaw) or an
// int64 (EncInt); List/Set/ZSet/Hash payloads are *List/*Set/*ZSet/*Hash.
type Object struct {
	Kind     Kind
	Encoding Encoding
	refcount int32

	raw []byte
	num int64

	list *List
	set  *Set
	zset *ZSet
	hash *Hash

	// Paging metadata (§4.J). OOMKind/PageStart/PageCount are only
	// meaningful while Storage != StorageMemory (or while a swap job
	// targeting this object is in flight).
	Storage    Storage
	OOMKind    Kind
	LastAccess time.Time
	PageStart  int
	PageCount  int
}

// NewString creates a String object, opportunistically integer-encoded.
func NewString(b []byte) *Object {
	o := &Object{Kind: KindString, Encoding: EncRaw, refcount: 1, raw: b}
	o.TryEncode()
	return o
}

func NewStringFromInt(n int64) *Object {
	return &Object{Kind: KindString, Encoding: EncInt, refcount: 1, num: n}
}

func NewList() *Object {
	return &Object{Kind: KindList, Encoding: EncLinkedList, refcount: 1, list: newList()}
}

func NewSet() *Object {
	return &Object{Kind: KindSet, Encoding: EncHashTable, refcount: 1, set: newSet()}
}

func NewZSet() *Object {
	return &Object{Kind: KindZSet, Encoding: EncSkipList, refcount: 1, zset: newZSet()}
}

func NewHash(maxZipmapEntries, maxZipmapValue int) *Object {
	return &Object{Kind: KindHash, Encoding: EncZipmap, refcount: 1, hash: newHash(maxZipmapEntries, maxZipmapValue)}
}

// Retain increments the reference count.
func (o *Object) Retain() *Object {
	o.refcount++
	return o
}

// Release decrements the reference count. Reaching zero releases the
// payload via the kind-appropriate deallocator (nothing to do
// explicitly in Go beyond dropping the references; we keep the
// refcount assertion since the caller owns the underflow invariant).
func (o *Object) Release() {
	o.refcount--
	if o.refcount < 0 {
		panic("store: object refcount underflow")
	}
	if o.refcount == 0 {
		o.list = nil
		o.set = nil
		o.zset = nil
		o.hash = nil
		o.raw = nil
	}
}

func (o *Object) RefCount() int32 { return o.refcount }

// TryEncode attempts to switch a Raw string to the Integer encoding.
// Fails (returns false) on a shared object or one already encoded.
func (o *Object) TryEncode() bool {
	if o.Kind != KindString || o.Encoding != EncRaw || o.refcount > 1 {
		return false
	}
	n, ok := canonicalInt(o.raw)
	if !ok {
		return false
	}
	o.Encoding = EncInt
	o.num = n
	o.raw = nil
	return true
}

// canonicalInt reports whether b is the minimal decimal form of an
// integer (no leading zero, no leading '+', "-0" rejected) that fits
// in int64.
func canonicalInt(b []byte) (int64, bool) {
	if len(b) == 0 || len(b) > 20 {
		return 0, false
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, false
	}
	if strconv.FormatInt(n, 10) != string(b) {
		return 0, false
	}
	return n, true
}

// Bytes decodes a String object's value. May allocate when the
// object is Integer-encoded.
func (o *Object) Bytes() []byte {
	if o.Kind != KindString {
		return nil
	}
	if o.Encoding == EncInt {
		return []byte(strconv.FormatInt(o.num, 10))
	}
	return o.raw
}

// Int64 returns the Integer payload and true if this is Integer-encoded.
func (o *Object) Int64() (int64, bool) {
	if o.Kind == KindString && o.Encoding == EncInt {
		return o.num, true
	}
	return 0, false
}

// StrLen returns the printable width of a String object without
// necessarily allocating.
func (o *Object) StrLen() int {
	if o.Encoding == EncInt {
		return len(strconv.FormatInt(o.num, 10))
	}
	return len(o.raw)
}

// SetBytes replaces a String object's payload in place and re-attempts
// integer encoding.
func (o *Object) SetBytes(b []byte) {
	o.Encoding = EncRaw
	o.raw = b
	o.num = 0
	o.TryEncode()
}

// Equal compares two String objects by decoded byte value; Integer
// operands are compared via their canonical textual form so "007" and
// the integer 7 never compare equal (007 cannot be Integer-encoded).
func (o *Object) Equal(other *Object) bool {
	if o.Kind != KindString || other.Kind != KindString {
		return false
	}
	if o.Encoding == EncInt && other.Encoding == EncInt {
		return o.num == other.num
	}
	return string(o.Bytes()) == string(other.Bytes())
}

// SwapOut clears a String object's in-memory payload once it has been
// written to the swap file at the given page range, transitioning
// Storage to Swapped (§4.J). Callers must already hold the keyspace
// write lock and must not call this on a shared (RefCount>1) object.
func (o *Object) SwapOut(pageStart, pageCount int) {
	o.Storage = StorageSwapped
	o.PageStart = pageStart
	o.PageCount = pageCount
	o.raw = nil
	o.num = 0
}

// SwapIn restores b as this object's in-memory payload after a page
// load completes, transitioning Storage back to Memory.
func (o *Object) SwapIn(b []byte) {
	o.Storage = StorageMemory
	o.PageStart = 0
	o.PageCount = 0
	o.Encoding = EncRaw
	o.raw = b
	o.num = 0
	o.TryEncode()
}

// Touch stamps LastAccess, used by the paging subsystem's idle-age
// swap-out scoring (§4.J).
func (o *Object) Touch() { o.LastAccess = time.Now() }

func (o *Object) List() *List { return o.list }
func (o *Object) Set() *Set   { return o.set }
func (o *Object) ZSet() *ZSet { return o.zset }
func (o *Object) Hash() *Hash { return o.hash }

// EstimatedBytes approximates the in-memory footprint of the object's
// payload, used by the paging subsystem's swap-out scoring (§4.J).
func (o *Object) EstimatedBytes() int {
	switch o.Kind {
	case KindString:
		return o.StrLen()
	case KindList:
		return o.list.Len() * 32
	case KindSet:
		return o.set.Len() * 32
	case KindZSet:
		return o.zset.Len() * 48
	case KindHash:
		return o.hash.Len() * 48
	default:
		return 0
	}
}
