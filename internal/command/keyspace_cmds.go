package command

import (
	"time"

	"github.com/faizanhussain2310/goredis-core/internal/protocol"
)

func (e *Engine) cmdKeys(c *Client, args [][]byte) []byte {
	var buf []byte
	pattern := string(args[1])
	db := e.db(c)
	var out [][]byte
	for _, k := range db.Keys() {
		if globMatch(pattern, k) {
			out = append(out, []byte(k))
		}
	}
	return protocol.AppendBulkArray(buf, out)
}

func (e *Engine) cmdRandomKey(c *Client, args [][]byte) []byte {
	var buf []byte
	k, ok := e.db(c).RandomKey()
	if !ok {
		return protocol.AppendNilBulk(buf)
	}
	return protocol.AppendBulk(buf, []byte(k))
}

func (e *Engine) cmdType(c *Client, args [][]byte) []byte {
	var buf []byte
	o, ok := e.db(c).LookupRead(string(args[1]))
	if !ok {
		return protocol.AppendStatus(buf, "none")
	}
	return protocol.AppendStatus(buf, o.Kind.String())
}

func (e *Engine) cmdRename(c *Client, args [][]byte) []byte {
	var buf []byte
	src, dst := string(args[1]), string(args[2])
	if src == dst {
		return encodeError(buf, errSameObject())
	}
	db := e.db(c)
	o, ok := db.LookupWrite(src)
	if !ok {
		return encodeError(buf, errNoSuchKey())
	}
	db.Delete(src)
	db.Set(dst, o)
	c.dirty = true
	return append(buf, protocol.StatusOK...)
}

func (e *Engine) cmdRenameNX(c *Client, args [][]byte) []byte {
	var buf []byte
	src, dst := string(args[1]), string(args[2])
	if src == dst {
		return encodeError(buf, errSameObject())
	}
	db := e.db(c)
	o, ok := db.LookupWrite(src)
	if !ok {
		return encodeError(buf, errNoSuchKey())
	}
	if db.Exists(dst) {
		return protocol.AppendInteger(buf, 0)
	}
	db.Delete(src)
	db.Set(dst, o)
	c.dirty = true
	return protocol.AppendInteger(buf, 1)
}

func (e *Engine) cmdMove(c *Client, args [][]byte) []byte {
	var buf []byte
	key := string(args[1])
	destDB, perr := parseInt(args[2])
	if perr != nil {
		return encodeError(buf, perr)
	}
	if int(destDB) == c.DB {
		return encodeError(buf, errSameObject())
	}
	if int(destDB) < 0 || int(destDB) >= e.Keyspace.NumDBs() {
		return encodeError(buf, errOutOfRange("DB index is out of range"))
	}
	src := e.db(c)
	o, ok := src.LookupWrite(key)
	if !ok {
		return protocol.AppendInteger(buf, 0)
	}
	dst := e.Keyspace.DB(int(destDB))
	if dst.Exists(key) {
		return protocol.AppendInteger(buf, 0)
	}
	src.Delete(key)
	dst.Set(key, o)
	c.dirty = true
	return protocol.AppendInteger(buf, 1)
}

func (e *Engine) cmdSelect(c *Client, args [][]byte) []byte {
	var buf []byte
	n, perr := parseInt(args[1])
	if perr != nil {
		return encodeError(buf, perr)
	}
	if int(n) < 0 || int(n) >= e.Keyspace.NumDBs() {
		return encodeError(buf, errOutOfRange("DB index is out of range"))
	}
	c.DB = int(n)
	return append(buf, protocol.StatusOK...)
}

func (e *Engine) cmdFlushDB(c *Client, args [][]byte) []byte {
	var buf []byte
	e.db(c).Flush()
	c.dirty = true
	return append(buf, protocol.StatusOK...)
}

func (e *Engine) cmdFlushAll(c *Client, args [][]byte) []byte {
	var buf []byte
	for i := 0; i < e.Keyspace.NumDBs(); i++ {
		e.Keyspace.DB(i).Flush()
	}
	c.dirty = true
	return append(buf, protocol.StatusOK...)
}

func (e *Engine) cmdDBSize(c *Client, args [][]byte) []byte {
	var buf []byte
	return protocol.AppendInteger(buf, int64(e.db(c).Size()))
}

func (e *Engine) expireCommand(c *Client, args [][]byte, absolute bool) []byte {
	var buf []byte
	key := string(args[1])
	n, perr := parseInt(args[2])
	if perr != nil {
		return encodeError(buf, perr)
	}
	db := e.db(c)
	if !db.Exists(key) {
		return protocol.AppendInteger(buf, 0)
	}
	var when time.Time
	if absolute {
		when = time.Unix(n, 0)
	} else {
		when = time.Now().Add(time.Duration(n) * time.Second)
	}
	db.SetExpire(key, when)
	c.dirty = true
	return protocol.AppendInteger(buf, 1)
}

func (e *Engine) cmdExpire(c *Client, args [][]byte) []byte    { return e.expireCommand(c, args, false) }
func (e *Engine) cmdExpireAt(c *Client, args [][]byte) []byte { return e.expireCommand(c, args, true) }

func (e *Engine) cmdTTL(c *Client, args [][]byte) []byte {
	var buf []byte
	db := e.db(c)
	key := string(args[1])
	if !db.Exists(key) {
		return protocol.AppendInteger(buf, -2)
	}
	d, ok := db.GetExpire(key)
	if !ok {
		return protocol.AppendInteger(buf, -1)
	}
	secs := int64(d.Seconds())
	if secs < 0 {
		secs = 0
	}
	return protocol.AppendInteger(buf, secs)
}

// globMatch implements the shell-glob subset used by KEYS: '*' (any
// run), '?' (one char), and '[...]' character classes. Grounded on
// the teacher's reliance on a dynamic-string/glob helper for KEYS;
// reimplemented here since that helper is explicitly out of scope
// (§1) and Go's stdlib has no glob matcher over arbitrary strings
// (path.Match is filesystem-path-shaped and mishandles '/' and
// bracket edge cases we need for binary-safe key names).
func globMatch(pattern, s string) bool {
	return globMatchBytes([]byte(pattern), []byte(s))
}

func globMatchBytes(pattern, s []byte) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			for len(pattern) > 1 && pattern[1] == '*' {
				pattern = pattern[1:]
			}
			if len(pattern) == 1 {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if globMatchBytes(pattern[1:], s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(s) == 0 {
				return false
			}
			s = s[1:]
			pattern = pattern[1:]
		case '[':
			if len(s) == 0 {
				return false
			}
			end := indexByte(pattern, ']')
			if end < 0 {
				return pattern[0] == s[0] && globMatchBytes(pattern[1:], s[1:])
			}
			class := pattern[1:end]
			neg := len(class) > 0 && class[0] == '^'
			if neg {
				class = class[1:]
			}
			matched := classMatch(class, s[0])
			if matched == neg {
				return false
			}
			s = s[1:]
			pattern = pattern[end+1:]
		case '\\':
			if len(pattern) > 1 {
				if len(s) == 0 || pattern[1] != s[0] {
					return false
				}
				s = s[1:]
				pattern = pattern[2:]
			} else {
				return false
			}
		default:
			if len(s) == 0 || pattern[0] != s[0] {
				return false
			}
			s = s[1:]
			pattern = pattern[1:]
		}
	}
	return len(s) == 0
}

func classMatch(class []byte, ch byte) bool {
	for i := 0; i < len(class); i++ {
		if i+2 < len(class) && class[i+1] == '-' {
			if class[i] <= ch && ch <= class[i+2] {
				return true
			}
			i += 2
			continue
		}
		if class[i] == ch {
			return true
		}
	}
	return false
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}
