package docsealtest

import "github.com/iov-one/docseal"

// Tx carries a single Msg. A set Err is returned instead of the message.
type Tx struct {
	Msg docseal.Msg
	Err error
}

var _ docseal.Tx = (*Tx)(nil)

func (tx *Tx) GetMsg() (docseal.Msg, error) { return tx.Msg, tx.Err }

// Marshal and Unmarshal are never called by the code under test.
func (tx *Tx) Marshal() ([]byte, error) { panic("docsealtest.Tx cannot be serialized") }
func (tx *Tx) Unmarshal([]byte) error   { panic("docsealtest.Tx cannot be serialized") }

// Msg is routed by RoutePath. Serialized is what Marshal returns and what
// Unmarshal stores. A set Err fails validation and serialization.
type Msg struct {
	RoutePath  string
	Serialized []byte
	Keys       [][]byte
	Err        error
}

var (
	_ docseal.Msg       = (*Msg)(nil)
	_ docseal.Contender = (*Msg)(nil)
)

func (m *Msg) Path() string             { return m.RoutePath }
func (m *Msg) Validate() error          { return m.Err }
func (m *Msg) ContentionKeys() [][]byte { return m.Keys }
func (m *Msg) Marshal() ([]byte, error) { return m.Serialized, m.Err }

func (m *Msg) Unmarshal(raw []byte) error {
	m.Serialized = raw
	return m.Err
}
