package docseal

import (
	"reflect"

	"github.com/iov-one/docseal/errors"
)

// Persistent values serialize themselves.
type Persistent interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

// Msg asks the ledger for one state transition. Authentication lives in
// the Tx around it.
type Msg interface {
	Persistent

	// Path routes the message to its handler, for example
	// document/create. It matches [0-9A-Za-z_\-/]+.
	Path() string

	// Validate checks the message alone, without reading the store.
	Validate() error
}

// Contender messages list every state key they read and then write. The
// ledger runs transactions with disjoint keys in parallel and serializes
// the rest.
type Contender interface {
	ContentionKeys() [][]byte
}

// Tx is what a client submits: one message plus whatever the decorators
// need, signatures first of all.
type Tx interface {
	Persistent
	GetMsg() (Msg, error)
}

// TxDecoder parses raw transaction bytes.
type TxDecoder func(raw []byte) (Tx, error)

// GetPath is the path of the message of tx, for logs.
func GetPath(tx Tx) string {
	if msg, err := tx.GetMsg(); err == nil && msg != nil {
		return msg.Path()
	}
	return "(missing)"
}

// LoadMsg copies the message of tx into dst, a pointer to the expected
// message type, and validates it.
func LoadMsg(tx Tx, dst interface{}) error {
	msg, err := tx.GetMsg()
	if err != nil {
		return errors.Wrap(err, "transaction message")
	}
	if msg == nil {
		return errors.Wrap(errors.ErrMsg, "transaction without a message")
	}
	out := reflect.ValueOf(dst)
	if out.Kind() != reflect.Ptr || out.IsNil() {
		return errors.Wrapf(errors.ErrHuman, "destination %T is not a pointer", dst)
	}
	in := reflect.Indirect(reflect.ValueOf(msg))
	if !in.Type().AssignableTo(out.Elem().Type()) {
		return errors.Wrapf(errors.ErrType, "want %T message, got %T", dst, msg)
	}
	out.Elem().Set(in)
	if err := msg.Validate(); err != nil {
		return errors.Wrap(err, "invalid message")
	}
	return nil
}
