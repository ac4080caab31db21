package app

import (
	"bytes"
	"context"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/crypto"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/seal"
	"github.com/iov-one/docseal/x/document"
)

// NewProof returns a serialized AuthorizeMsg transaction signed by the
// requester. Key servers accept it until the requester sends another
// transaction, because the nonce is consumed only by delivered txs.
func NewProof(signer crypto.Signer, chainID string, nonce int64, documentID []byte) ([]byte, error) {
	tx, err := NewTx(&document.AuthorizeMsg{
		DocumentID: documentID,
		Identity:   documentID,
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Sign(signer, chainID, nonce); err != nil {
		return nil, err
	}
	return tx.Marshal()
}

// VerifyProof decodes a proof and ensures it authorizes the requester for
// given identity. It does not consult the state.
func VerifyProof(proof, identity []byte, requester docseal.Address) (*Tx, error) {
	decoded, err := DecodeTx(proof)
	if err != nil {
		return nil, errors.Wrap(errors.ErrUnauthorized, "malformed proof")
	}
	tx := decoded.(*Tx)
	if tx.Authorize == nil {
		return nil, errors.Wrap(errors.ErrUnauthorized, "proof is not an authorization")
	}
	if !bytes.Equal(tx.Authorize.Identity, identity) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "proof is for another identity")
	}
	for _, sig := range tx.Signatures {
		if sig != nil && sig.Pubkey != nil && sig.Pubkey.Address().Equals(requester) {
			return tx, nil
		}
	}
	return nil, errors.Wrapf(errors.ErrUnauthorized, "proof not signed by %s", requester)
}

// ProofGate approves key share requests by checking the proof against the
// current ledger state. Nothing is written.
type ProofGate struct {
	ledger *Ledger
}

var _ seal.Gate = ProofGate{}

func NewProofGate(l *Ledger) ProofGate {
	return ProofGate{ledger: l}
}

func (g ProofGate) Approve(ctx context.Context, identity []byte, requester docseal.Address, proof []byte) error {
	if _, err := VerifyProof(proof, identity, requester); err != nil {
		return err
	}
	if _, err := g.ledger.Check(ctx, proof); err != nil {
		return RejectProof(err)
	}
	return nil
}

// RejectProof reports a failed proof check as ErrUnauthorized.
func RejectProof(err error) error {
	if errors.ErrUnauthorized.Is(err) {
		return err
	}
	return errors.Wrap(errors.ErrUnauthorized, err.Error())
}
