package docsealtest

import (
	"encoding/binary"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/crypto"
)

// NewKey returns a random ed25519 key.
func NewKey() *crypto.PrivateKey {
	return crypto.GenPrivKeyEd25519()
}

// NewCondition returns the signature condition of a random key.
func NewCondition() docseal.Condition {
	return NewKey().PublicKey().Condition()
}

// Participant groups everything a test needs to act in the name of
// someone: the key to sign transactions, the condition to authenticate
// with mock authenticators and the address the ledger knows them by.
type Participant struct {
	Key       *crypto.PrivateKey
	Condition docseal.Condition
	Address   docseal.Address
}

// NewParticipant creates a participant with a random key.
func NewParticipant() Participant {
	key := NewKey()
	cond := key.PublicKey().Condition()
	return Participant{
		Key:       key,
		Condition: cond,
		Address:   cond.Address(),
	}
}

// SequenceID returns the binary representation of a sequence value, the
// way orm.Sequence encodes ids.
func SequenceID(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}
