package command

import "fmt"

// Kind classifies a command-level failure per §7's error-kind table.
// All surface as a "-ERR ..." reply whose text is Msg; the reply
// encoder does not read Kind.
type Kind int

const (
	UnknownCommand Kind = iota
	WrongArity
	WrongType
	NoSuchKey
	SameObject
	SyntaxError
	OutOfRange
	NotAuthenticated
	MemoryPressure
)

// Error is a command-level failure. Handlers return one of these
// (wrapped as a reply by the dispatcher) instead of a panic or a
// generic error — every kind in §7 maps to a specific, user-facing
// message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func errUnknownCommand(name string) *Error {
	return &Error{Kind: UnknownCommand, Msg: fmt.Sprintf("unknown command '%s'", name)}
}

func errWrongArity(name string) *Error {
	return &Error{Kind: WrongArity, Msg: fmt.Sprintf("wrong number of arguments for '%s' command", name)}
}

var errWrongType = &Error{Kind: WrongType, Msg: "WRONGTYPE Operation against a key holding the wrong kind of value"}

func errNoSuchKey() *Error { return &Error{Kind: NoSuchKey, Msg: "no such key"} }

func errSameObject() *Error {
	return &Error{Kind: SameObject, Msg: "source and destination objects are the same"}
}

func errSyntax() *Error { return &Error{Kind: SyntaxError, Msg: "syntax error"} }

func errNotInt() *Error {
	return &Error{Kind: OutOfRange, Msg: "value is not an integer or out of range"}
}

func errNotFloat() *Error {
	return &Error{Kind: OutOfRange, Msg: "value is not a valid float"}
}

func errOutOfRange(msg string) *Error { return &Error{Kind: OutOfRange, Msg: msg} }

var errAuthRequired = &Error{Kind: NotAuthenticated, Msg: "operation not permitted"}

var errOOM = &Error{Kind: MemoryPressure, Msg: "command not allowed when used memory > 'maxmemory'"}
