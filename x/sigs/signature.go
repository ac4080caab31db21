package sigs

import (
	"crypto/sha512"
	"encoding/binary"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/crypto"
	"github.com/iov-one/docseal/errors"
)

// SignedTx is a transaction the Decorator can authenticate.
type SignedTx interface {
	// GetSignBytes is the canonical form of the message, signatures
	// excluded.
	GetSignBytes() ([]byte, error)
	GetSignatures() []*StdSignature
}

// StdSignature signs a transaction with the given account nonce.
type StdSignature struct {
	Pubkey    *crypto.PublicKey
	Signature *crypto.Signature
	Sequence  int64
}

func (s *StdSignature) Validate() error {
	switch {
	case s.Sequence < 0:
		return errors.Wrap(ErrInvalidSequence, "negative")
	case s.Pubkey == nil:
		return errors.Wrap(errors.ErrUnauthorized, "missing public key")
	case s.Signature == nil:
		return errors.Wrap(errors.ErrUnauthorized, "missing signature")
	}
	return nil
}

// signPrefix versions the layout hashed by SignBytes.
var signPrefix = []byte{0, 0xCA, 0xFE, 0}

// SignBytes is the sha512 digest a signature covers:
//
//	prefix (4) | len(chainID) (1) | chainID | nonce (8, big endian) | payload
//
// Binding the chain id and the nonce keeps a signature from being replayed
// on another chain or a second time on this one.
func SignBytes(payload []byte, chainID string, seq int64) ([]byte, error) {
	if seq < 0 {
		return nil, errors.Wrap(ErrInvalidSequence, "negative")
	}
	if !docseal.IsValidChainID(chainID) {
		return nil, errors.Wrapf(errors.ErrInput, "chain id %q", chainID)
	}
	h := sha512.New()
	h.Write(signPrefix)
	h.Write([]byte{byte(len(chainID))})
	h.Write([]byte(chainID))
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], uint64(seq))
	h.Write(nonce[:])
	h.Write(payload)
	return h.Sum(nil), nil
}

// SignTx signs tx for the given chain, using nonce seq.
func SignTx(signer crypto.Signer, tx SignedTx, chainID string, seq int64) (*StdSignature, error) {
	payload, err := tx.GetSignBytes()
	if err != nil {
		return nil, err
	}
	digest, err := SignBytes(payload, chainID, seq)
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(digest)
	if err != nil {
		return nil, err
	}
	return &StdSignature{Pubkey: signer.PublicKey(), Signature: sig, Sequence: seq}, nil
}

// VerifyTxSignatures verifies every signature of tx in order and returns
// the signer conditions. An unsigned transaction gives an empty list. A
// single bad signature fails the whole transaction.
func VerifyTxSignatures(db docseal.KVStore, tx SignedTx, chainID string) ([]docseal.Condition, error) {
	payload, err := tx.GetSignBytes()
	if err != nil {
		return nil, err
	}
	sigs := tx.GetSignatures()
	signers := make([]docseal.Condition, 0, len(sigs))
	for _, sig := range sigs {
		signer, err := VerifySignature(db, sig, payload, chainID)
		if err != nil {
			return nil, err
		}
		signers = append(signers, signer)
	}
	return signers, nil
}

// VerifySignature checks sig over payload and consumes the nonce of the
// signing account.
func VerifySignature(db docseal.KVStore, sig *StdSignature, payload []byte, chainID string) (docseal.Condition, error) {
	if sig == nil {
		return nil, errors.Wrap(errors.ErrUnauthorized, "missing signature")
	}
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	accounts := NewBucket()
	acc, err := accounts.GetOrCreate(db, sig.Pubkey)
	if err != nil {
		return nil, err
	}
	digest, err := SignBytes(payload, chainID, sig.Sequence)
	if err != nil {
		return nil, err
	}
	if !acc.Pubkey.Verify(digest, sig.Signature) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "invalid signature")
	}
	if err := acc.CheckAndIncrementSequence(sig.Sequence); err != nil {
		return nil, err
	}
	if err := accounts.Put(db, acc.Pubkey.Address(), acc); err != nil {
		return nil, err
	}
	return acc.Pubkey.Condition(), nil
}
