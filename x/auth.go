// Package x holds what every extension shares: the Authenticator that tells
// a handler who signed the transaction.
package x

import (
	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
)

// Authenticator reports the conditions satisfied by the transaction in
// flight. Handlers receive one at construction time and never look at
// signatures themselves.
type Authenticator interface {
	GetConditions(docseal.Context) []docseal.Condition
	HasAddress(docseal.Context, docseal.Address) bool
}

// MainSignerAddress is the address of the first condition, which for a
// signed transaction is its first signer.
func MainSignerAddress(ctx docseal.Context, auth Authenticator) (docseal.Address, error) {
	conds := auth.GetConditions(ctx)
	if len(conds) == 0 {
		return nil, errors.Wrap(errors.ErrUnauthorized, "signature required")
	}
	return conds[0].Address(), nil
}
