package client

import (
	"context"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/app"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/seal"
)

// ProofGate approves key share requests by checking the proof with a
// remote ledger. It is used by key servers that do not run the ledger.
type ProofGate struct {
	client *Client
}

var _ seal.Gate = ProofGate{}

func NewProofGate(c *Client) ProofGate {
	return ProofGate{client: c}
}

// Approve rejects the request with ErrUnauthorized unless the ledger
// accepts the proof. Transient failures are returned unchanged so that
// the request can be retried.
func (g ProofGate) Approve(ctx context.Context, identity []byte, requester docseal.Address, proof []byte) error {
	if _, err := app.VerifyProof(proof, identity, requester); err != nil {
		return err
	}
	if _, err := g.client.Check(ctx, proof); err != nil {
		if errors.IsTransient(err) {
			return err
		}
		return app.RejectProof(err)
	}
	return nil
}
