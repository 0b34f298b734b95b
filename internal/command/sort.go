package command

import (
	"sort"
	"strconv"
	"strings"

	"github.com/faizanhussain2310/goredis-core/internal/protocol"
	"github.com/faizanhussain2310/goredis-core/internal/store"
)

type sortOptions struct {
	byPattern  string
	skipSort   bool // BY pattern given without a '*': sorting is skipped (§4.C)
	limitSet   bool
	offset     int
	count      int
	alpha      bool
	desc       bool
	getPattern []string
	store      string
}

func parseSortOptions(args [][]byte) (*sortOptions, *Error) {
	o := &sortOptions{count: -1}
	i := 2
	for i < len(args) {
		tok := strings.ToUpper(string(args[i]))
		switch tok {
		case "BY":
			if i+1 >= len(args) {
				return nil, errSyntax()
			}
			o.byPattern = string(args[i+1])
			o.skipSort = !strings.Contains(o.byPattern, "*")
			i += 2
		case "LIMIT":
			if i+2 >= len(args) {
				return nil, errSyntax()
			}
			off, perr := parseInt(args[i+1])
			if perr != nil {
				return nil, perr
			}
			cnt, perr := parseInt(args[i+2])
			if perr != nil {
				return nil, perr
			}
			if off < 0 {
				off = 0
			}
			o.limitSet = true
			o.offset, o.count = int(off), int(cnt)
			i += 3
		case "GET":
			if i+1 >= len(args) {
				return nil, errSyntax()
			}
			o.getPattern = append(o.getPattern, string(args[i+1]))
			i += 2
		case "ASC":
			o.desc = false
			i++
		case "DESC":
			o.desc = true
			i++
		case "ALPHA":
			o.alpha = true
			i++
		case "STORE":
			if i+1 >= len(args) {
				return nil, errSyntax()
			}
			o.store = string(args[i+1])
			i += 2
		default:
			return nil, errSyntax()
		}
	}
	return o, nil
}

// sortLookup resolves a BY/GET pattern against subst (the element
// being sorted/fetched), supporting the "key->field" hash-field form
// alongside the plain string-key form (§4.C).
func sortLookup(db *store.DB, pattern, subst string) ([]byte, bool) {
	key := strings.Replace(pattern, "*", subst, 1)
	if idx := strings.Index(key, "->"); idx >= 0 {
		hkey, field := key[:idx], key[idx+2:]
		o, ok := db.LookupRead(hkey)
		if !ok || o.Kind != store.KindHash {
			return nil, false
		}
		return o.Hash().Get([]byte(field))
	}
	o, ok := db.LookupRead(key)
	if !ok || o.Kind != store.KindString {
		return nil, false
	}
	return o.Bytes(), true
}

func (e *Engine) cmdSort(c *Client, args [][]byte) []byte {
	var buf []byte
	opts, perr := parseSortOptions(args)
	if perr != nil {
		return encodeError(buf, perr)
	}

	db := e.db(c)
	o, ok := db.LookupRead(string(args[1]))
	var elements [][]byte
	if ok {
		switch o.Kind {
		case store.KindList:
			elements = o.List().ToSlice()
		case store.KindSet:
			elements = o.Set().Members()
		case store.KindZSet:
			for _, m := range o.ZSet().All() {
				elements = append(elements, m.Member)
			}
		default:
			return encodeError(buf, errWrongType)
		}
	}

	if !opts.skipSort {
		type scored struct {
			elem []byte
			num  float64
			str  []byte
		}
		items := make([]scored, len(elements))
		for i, el := range elements {
			val := el
			// A BY pattern that resolves to a missing key sorts as the
			// empty string under ALPHA and as 0 otherwise.
			if opts.byPattern != "" {
				if v, ok := sortLookup(db, opts.byPattern, string(el)); ok {
					val = v
				} else {
					val = nil
				}
			}
			items[i] = scored{elem: el, str: val}
			if !opts.alpha {
				if val == nil {
					items[i].num = 0
				} else {
					n, err := strconv.ParseFloat(string(val), 64)
					if err != nil {
						return encodeError(buf, errNotFloat())
					}
					items[i].num = n
				}
			}
		}
		sort.SliceStable(items, func(i, j int) bool {
			var less bool
			if opts.alpha {
				less = string(items[i].str) < string(items[j].str)
			} else {
				less = items[i].num < items[j].num
			}
			if opts.desc {
				if opts.alpha {
					return string(items[j].str) < string(items[i].str)
				}
				return items[j].num < items[i].num
			}
			return less
		})
		elements = make([][]byte, len(items))
		for i, it := range items {
			elements[i] = it.elem
		}
	}

	if opts.limitSet {
		start := opts.offset
		if start > len(elements) {
			start = len(elements)
		}
		end := len(elements)
		if opts.count >= 0 && start+opts.count < end {
			end = start + opts.count
		}
		elements = elements[start:end]
	}

	var out [][]byte
	if len(opts.getPattern) == 0 {
		out = elements
	} else {
		for _, el := range elements {
			for _, pat := range opts.getPattern {
				if pat == "#" {
					out = append(out, el)
					continue
				}
				v, ok := sortLookup(db, pat, string(el))
				if !ok {
					out = append(out, nil)
					continue
				}
				out = append(out, v)
			}
		}
	}

	if opts.store != "" {
		dst := store.NewList()
		for _, v := range out {
			dst.List().PushBack(v)
		}
		if len(out) == 0 {
			db.Delete(opts.store)
		} else {
			db.Set(opts.store, dst)
		}
		c.dirty = true
		return protocol.AppendInteger(buf, int64(len(out)))
	}
	return protocol.AppendBulkArray(buf, out)
}
