package docseal

import (
	"encoding/json"
)

// Handler executes the messages routed to it. Check validates a
// transaction without side effects that matter, Deliver applies it.
type Handler interface {
	Checker
	Deliverer
}

type Checker interface {
	Check(ctx Context, store KVStore, tx Tx) (*CheckResult, error)
}

type Deliverer interface {
	Deliver(ctx Context, store KVStore, tx Tx) (*DeliverResult, error)
}

// Decorator runs around the next handler in the chain. Authentication,
// logging and panic recovery are decorators.
type Decorator interface {
	Check(ctx Context, store KVStore, tx Tx, next Checker) (*CheckResult, error)
	Deliver(ctx Context, store KVStore, tx Tx, next Deliverer) (*DeliverResult, error)
}

// Registry binds message paths to handlers.
type Registry interface {
	Handle(path string, h Handler)
}

// CheckResult is returned by a successful Check. Data is meant for
// programs, Log for people.
type CheckResult struct {
	Data []byte
	Log  string
}

// DeliverResult is returned by a successful Deliver. Data usually holds
// the id of a created entity. Log carries the document status after
// signing operations.
type DeliverResult struct {
	Data []byte
	Log  string
}

// Options is the raw genesis document, keyed by section.
type Options map[string]json.RawMessage

// ReadOptions decodes the section key into obj. A missing section leaves
// obj untouched.
func (o Options) ReadOptions(key string, obj interface{}) error {
	raw := o[key]
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, obj)
}

// Initializer loads the genesis sections of one extension.
type Initializer interface {
	FromGenesis(Options, KVStore) error
}
