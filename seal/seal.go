/*
Package seal defines threshold encryption of document content.

Content is encrypted under an identity, the document id. The data key is
split into shares held by independent key servers and any threshold of
them is enough to recover it. A key server releases its share only to a
session that proves, with a signed authorization transaction, that the
requester may decrypt the identity.
*/
package seal

import (
	"context"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
)

// Encryptor encrypts content under an identity.
type Encryptor interface {
	Encrypt(ctx context.Context, identity []byte, threshold int, plaintext []byte) (*Ciphertext, error)
}

// Decryptor recovers content. Proof is the serialized transaction the key
// servers check before releasing their shares.
type Decryptor interface {
	Decrypt(ctx context.Context, ct *Ciphertext, session *SessionKey, proof []byte, threshold int) ([]byte, error)
}

// Service is the complete threshold encryption service.
type Service interface {
	Encryptor
	Decryptor
}

// Gate decides whether a requester may obtain key shares for an identity.
// A rejected proof must be reported as ErrUnauthorized.
type Gate interface {
	Approve(ctx context.Context, identity []byte, requester docseal.Address, proof []byte) error
}

// GateFunc is an adapter to use a function as a Gate.
type GateFunc func(ctx context.Context, identity []byte, requester docseal.Address, proof []byte) error

func (fn GateFunc) Approve(ctx context.Context, identity []byte, requester docseal.Address, proof []byte) error {
	return fn(ctx, identity, requester, proof)
}

// Ciphertext is what gets uploaded to the blob store.
type Ciphertext struct {
	Identity  []byte          `json:"identity"`
	Threshold int32           `json:"threshold"`
	Nonce     []byte          `json:"nonce"`
	Sealed    []byte          `json:"sealed"`
	Shares    []*WrappedShare `json:"shares"`
}

// WrappedShare is a data key share encrypted for a single key server.
type WrappedShare struct {
	Server int32  `json:"server"`
	Index  int32  `json:"index"`
	Nonce  []byte `json:"nonce"`
	Box    []byte `json:"box"`
}

// ShareRequest asks a key server to release its share to a session.
type ShareRequest struct {
	Identity    []byte        `json:"identity"`
	Share       *WrappedShare `json:"share"`
	Certificate *Certificate  `json:"certificate"`
	Proof       []byte        `json:"proof"`
}

func (c *Ciphertext) Validate() error {
	var errs error
	if len(c.Identity) == 0 {
		errs = errors.AppendField(errs, "Identity", errors.ErrEmpty)
	}
	if c.Threshold < 1 || int(c.Threshold) > len(c.Shares) {
		errs = errors.Append(errs, errors.Field("Threshold", errors.ErrInput, "%d of %d shares", c.Threshold, len(c.Shares)))
	}
	if len(c.Nonce) != nonceSize {
		errs = errors.AppendField(errs, "Nonce", errors.ErrInput)
	}
	if len(c.Sealed) == 0 {
		errs = errors.AppendField(errs, "Sealed", errors.ErrEmpty)
	}
	for i, s := range c.Shares {
		if s == nil || len(s.Nonce) != nonceSize || len(s.Box) == 0 {
			errs = errors.Append(errs, errors.Field("Shares", errors.ErrInput, "share %d", i))
		}
	}
	return errs
}

func (c *Ciphertext) Marshal() ([]byte, error) {
	return docseal.MarshalBinary(c)
}

func (c *Ciphertext) Unmarshal(raw []byte) error {
	return docseal.UnmarshalBinary(raw, c)
}

// Decode parses and validates a ciphertext read from the blob store.
func Decode(raw []byte) (*Ciphertext, error) {
	var ct Ciphertext
	if err := ct.Unmarshal(raw); err != nil {
		return nil, errors.Wrap(errors.ErrInput, "not a ciphertext")
	}
	if err := ct.Validate(); err != nil {
		return nil, errors.Wrap(err, "ciphertext")
	}
	return &ct, nil
}

// nonceSize of both secretbox and box.
const nonceSize = 24
