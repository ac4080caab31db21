package crypto

import (
	"github.com/iov-one/docseal"
)

// ExtensionName is used for the conditions we get from signatures
const ExtensionName = "sigs"

// PubKey represents a crypto public key we use
type PubKey interface {
	Verify(message []byte, sig *Signature) bool
	Condition() docseal.Condition
}

// Signer is the functionality we use from a private key
// No serializing to support hardware devices as well.
type Signer interface {
	Sign(message []byte) (*Signature, error)
	PublicKey() *PublicKey
}

// Marshal serializes the public key.
func (p *PublicKey) Marshal() ([]byte, error) {
	return docseal.MarshalBinary(p)
}

// Unmarshal deserializes the public key.
func (p *PublicKey) Unmarshal(bz []byte) error {
	return docseal.UnmarshalBinary(bz, p)
}

// Address returns the address of the condition this key authenticates.
func (p *PublicKey) Address() docseal.Address {
	return p.Condition().Address()
}

// Marshal serializes the signature.
func (s *Signature) Marshal() ([]byte, error) {
	return docseal.MarshalBinary(s)
}

// Unmarshal deserializes the signature.
func (s *Signature) Unmarshal(bz []byte) error {
	return docseal.UnmarshalBinary(bz, s)
}

// Marshal serializes the private key. Handle the result with care.
func (p *PrivateKey) Marshal() ([]byte, error) {
	return docseal.MarshalBinary(p)
}

// Unmarshal deserializes the private key.
func (p *PrivateKey) Unmarshal(bz []byte) error {
	return docseal.UnmarshalBinary(bz, p)
}
