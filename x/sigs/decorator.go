/*
Package sigs authenticates transactions. The Decorator verifies every
signature against the account of its key, bumps the account nonce so the
transaction cannot be replayed and exposes the signers to the handlers
through Authenticate.
*/
package sigs

import (
	"context"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/x"
)

// Decorator rejects unsigned transactions unless built with
// AllowMissingSigs.
type Decorator struct {
	allowUnsigned bool
}

var _ docseal.Decorator = Decorator{}

func NewDecorator() Decorator {
	return Decorator{}
}

// AllowMissingSigs returns a copy that lets unsigned transactions through
// with an empty signer list.
func (d Decorator) AllowMissingSigs() Decorator {
	d.allowUnsigned = true
	return d
}

func (d Decorator) Check(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx, next docseal.Checker) (*docseal.CheckResult, error) {
	ctx, err := d.withSigners(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	return next.Check(ctx, db, tx)
}

func (d Decorator) Deliver(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx, next docseal.Deliverer) (*docseal.DeliverResult, error) {
	ctx, err := d.withSigners(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	return next.Deliver(ctx, db, tx)
}

func (d Decorator) withSigners(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (docseal.Context, error) {
	var signers []docseal.Condition
	if stx, ok := tx.(SignedTx); ok {
		var err error
		if signers, err = VerifyTxSignatures(db, stx, docseal.GetChainID(ctx)); err != nil {
			return nil, errors.Wrap(err, "cannot verify signatures")
		}
	}
	if len(signers) == 0 && !d.allowUnsigned {
		return nil, errors.Wrap(errors.ErrUnauthorized, "missing signature")
	}
	return context.WithValue(ctx, signersKey{}, signers), nil
}

type signersKey struct{}

// Authenticate reads the signers stored by the Decorator.
type Authenticate struct{}

var _ x.Authenticator = Authenticate{}

func (Authenticate) GetConditions(ctx docseal.Context) []docseal.Condition {
	signers, _ := ctx.Value(signersKey{}).([]docseal.Condition)
	return signers
}

func (a Authenticate) HasAddress(ctx docseal.Context, addr docseal.Address) bool {
	for _, c := range a.GetConditions(ctx) {
		if addr.Equals(c.Address()) {
			return true
		}
	}
	return false
}
