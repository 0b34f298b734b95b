// Package command implements the table-driven dispatcher of §4.E: per
// request arity/flag checks, transaction queueing, and post-execution
// replication/journal feed, plus the command implementations
// themselves grouped by data type.
package command

// Flag bits from the dispatcher's static table (§4.E).
type Flag uint8

const (
	FlagInline Flag = 1 << iota
	FlagBulk
	FlagDenyOOM // DenyUnderMemoryPressure
	FlagWrite   // dirties the keyspace: journaled (§4.H) and replicated (§4.I)
	FlagAdmin   // server/admin command, never queued oddly, always allowed unauthenticated? no - still needs auth
)

// Handler executes one command against a Client's connection state.
// It returns the RESP-encoded reply bytes (§6).
type Handler func(c *Client, args [][]byte) []byte

// Descriptor is one row of the dispatcher's static table (§4.E):
// arity (positive = exact, negative = minimum), flags, and key-positions
// (first, last, step) used to find the keys a command touches. There
// is no per-command preload predicate: Dispatch preloads the keys of
// every command that has keys whenever a Pager is attached.
type Descriptor struct {
	Name     string
	Arity    int
	Flags    Flag
	FirstKey int
	LastKey  int
	KeyStep  int
	Handler  Handler
}

func (d *Descriptor) HasKeys() bool { return d.FirstKey > 0 }

// Keys returns the arguments that name keys, picked by FirstKey/
// LastKey/KeyStep as positions 0-based into args (args[0] is the
// command name). LastKey may be negative, counting from the end.
func (d *Descriptor) Keys(args [][]byte) [][]byte {
	if !d.HasKeys() {
		return nil
	}
	last := d.LastKey
	if last < 0 {
		last = len(args) + last
	}
	if last >= len(args) {
		last = len(args) - 1
	}
	var keys [][]byte
	for i := d.FirstKey; i <= last; i += d.KeyStep {
		if i < len(args) {
			keys = append(keys, args[i])
		}
	}
	return keys
}

func (d *Descriptor) ArityOK(n int) bool {
	if d.Arity >= 0 {
		return n == d.Arity
	}
	return n >= -d.Arity
}

// Table is the command name -> Descriptor map. Populated by
// BuildTable in registry.go.
type Table map[string]*Descriptor

func newTable() Table { return make(Table) }

func (t Table) add(d *Descriptor) { t[d.Name] = d }
