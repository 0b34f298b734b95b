package store

// Hash is the Hash data-type engine (§3, §4.C). Small hashes use the
// compact "zipmap" encoding: a single ordered slice of field/value
// pairs, O(N) lookups. Once entry count exceeds maxEntries or any
// element exceeds maxValue bytes, the hash converts one-way to a
// hashtable (O(1) lookups). Grounded on the teacher's
// internal/storage/hash.go, extended with the zipmap watermark from
// spec §3/§8.
type Hash struct {
	maxEntries int
	maxValue   int

	// zipmap form: valid while table == nil.
	fields [][]byte
	values [][]byte

	// hashtable form: valid once non-nil; zipmap slices are nil.
	table map[string][]byte
}

func newHash(maxEntries, maxValue int) *Hash {
	return &Hash{maxEntries: maxEntries, maxValue: maxValue}
}

func (h *Hash) IsZipmap() bool { return h.table == nil }

func (h *Hash) Len() int {
	if h.table != nil {
		return len(h.table)
	}
	return len(h.fields)
}

func (h *Hash) Get(field []byte) ([]byte, bool) {
	if h.table != nil {
		v, ok := h.table[string(field)]
		return v, ok
	}
	for i, f := range h.fields {
		if string(f) == string(field) {
			return h.values[i], true
		}
	}
	return nil, false
}

func (h *Hash) Exists(field []byte) bool {
	_, ok := h.Get(field)
	return ok
}

// Set sets field to value, converting to hashtable form if this write
// crosses either watermark. Returns true if field is new.
func (h *Hash) Set(field, value []byte) bool {
	isNew := !h.Exists(field)
	if h.table != nil {
		h.table[string(field)] = value
		return isNew
	}

	for i, f := range h.fields {
		if string(f) == string(field) {
			h.values[i] = value
			h.maybeConvert()
			return false
		}
	}
	h.fields = append(h.fields, field)
	h.values = append(h.values, value)
	h.maybeConvert()
	return true
}

// maybeConvert performs the one-way zipmap->hashtable transition once
// a watermark is crossed (§3, §8: "does not transition back").
func (h *Hash) maybeConvert() {
	if h.table != nil {
		return
	}
	convert := len(h.fields) > h.maxEntries
	if !convert {
		for i := range h.fields {
			if len(h.fields[i]) > h.maxValue || len(h.values[i]) > h.maxValue {
				convert = true
				break
			}
		}
	}
	if !convert {
		return
	}
	h.table = make(map[string][]byte, len(h.fields))
	for i := range h.fields {
		h.table[string(h.fields[i])] = h.values[i]
	}
	h.fields, h.values = nil, nil
}

func (h *Hash) Delete(field []byte) bool {
	if h.table != nil {
		k := string(field)
		if _, ok := h.table[k]; !ok {
			return false
		}
		delete(h.table, k)
		return true
	}
	for i, f := range h.fields {
		if string(f) == string(field) {
			h.fields = append(h.fields[:i], h.fields[i+1:]...)
			h.values = append(h.values[:i], h.values[i+1:]...)
			return true
		}
	}
	return false
}

func (h *Hash) Keys() [][]byte {
	if h.table != nil {
		out := make([][]byte, 0, len(h.table))
		for k := range h.table {
			out = append(out, []byte(k))
		}
		return out
	}
	out := make([][]byte, len(h.fields))
	copy(out, h.fields)
	return out
}

func (h *Hash) Values() [][]byte {
	if h.table != nil {
		out := make([][]byte, 0, len(h.table))
		for _, v := range h.table {
			out = append(out, v)
		}
		return out
	}
	out := make([][]byte, len(h.values))
	copy(out, h.values)
	return out
}

// All returns alternating field/value pairs.
func (h *Hash) All() [][]byte {
	if h.table != nil {
		out := make([][]byte, 0, len(h.table)*2)
		for k, v := range h.table {
			out = append(out, []byte(k), v)
		}
		return out
	}
	out := make([][]byte, 0, len(h.fields)*2)
	for i := range h.fields {
		out = append(out, h.fields[i], h.values[i])
	}
	return out
}
