/*
Package errors gives every failure in docseal a registered kind.

A kind is an *Error created once with Register. Code paths wrap a kind
with Wrap or Wrapf to add context, and callers test for it with Is, which
sees through any number of wraps and through Append bundles. Kinds cross
process boundaries as their numeric code, see Code and ByCode, so an HTTP
client can rebuild the same kind the server returned.

The first wrap records a stack trace. Print an error with %+v to see it.
*/
package errors

import (
	"fmt"
)

var (
	ErrUnauthorized = Register(2, "unauthorized")
	ErrNotFound     = Register(3, "not found")

	// ErrMsg is a message that cannot be handled at all.
	ErrMsg = Register(4, "invalid message")

	// ErrModel is an entity that cannot be persisted.
	ErrModel = Register(5, "invalid model")

	ErrDuplicate = Register(6, "duplicate")

	// ErrHuman marks a code path that correct code never reaches.
	ErrHuman = Register(7, "coding error")

	ErrImmutable = Register(8, "cannot be modified")
	ErrEmpty     = Register(9, "value is empty")
	ErrState     = Register(10, "invalid state")
	ErrType      = Register(11, "invalid type")
	ErrInput     = Register(14, "invalid input")
	ErrExpired   = Register(15, "expired")

	// ErrDatabase is a failure of the ledger store.
	ErrDatabase = Register(17, "database")

	// ErrNetwork is a remote collaborator that is unreachable or failed on
	// its side. Retrying may help.
	ErrNetwork = Register(18, "network")

	// ErrStorage is a content store failing for any reason but a missing
	// reference. Retrying may help.
	ErrStorage = Register(19, "storage")

	ErrTimeout = Register(20, "timeout")

	// ErrPanic is a recovered panic. Its message is never shown outside
	// of debug mode.
	ErrPanic = Register(111222, "panic")
)

// registry maps codes to kinds. Code 1 is the internal error every
// unregistered error is reported as.
var registry = map[uint32]*Error{
	internalCode: {code: internalCode, desc: internalLog},
}

// Register declares a new kind. Extensions own code ranges: x/sigs
// 120-129, x/capability 130-139, x/document 150-159. Reusing a code panics,
// so call it from package level variables only.
func Register(code uint32, desc string) *Error {
	if prev, ok := registry[code]; ok {
		panic(fmt.Sprintf("error code %d already registered as %q", code, prev.desc))
	}
	e := &Error{code: code, desc: desc}
	registry[code] = e
	return e
}

// ByCode returns the kind registered under code, or the internal error
// for an unknown code.
func ByCode(code uint32) *Error {
	if e, ok := registry[code]; ok {
		return e
	}
	return registry[internalCode]
}

// Error is a kind of failure. Instances are created by Register only and
// compared by identity.
type Error struct {
	code uint32
	desc string
}

func (e Error) Error() string { return e.desc }
func (e Error) Code() uint32  { return e.code }

// New is Wrap(e, desc).
func (e *Error) New(desc string) error {
	return Wrap(e, desc)
}

// Is reports whether err is of this kind, looking through wraps and
// bundles. A nil kind matches a nil error only.
func (e *Error) Is(err error) bool {
	if e == nil {
		return isNilErr(err)
	}
	for err != nil {
		if err == e {
			return true
		}
		if multi, ok := err.(unpacker); ok {
			for _, inner := range multi.Unpack() {
				if e.Is(inner) {
					return true
				}
			}
			return false
		}
		c, ok := err.(causer)
		if !ok {
			return false
		}
		err = c.Cause()
	}
	return false
}

// IsTransient reports whether repeating the failed operation may succeed.
func IsTransient(err error) bool {
	return ErrNetwork.Is(err) || ErrStorage.Is(err) || ErrTimeout.Is(err)
}
