package docsealtest

import (
	"context"

	"github.com/iov-one/docseal"
)

// Auth authenticates a fixed set of conditions. Signers come first, Signer
// last, so a test with a single Signer sees it as the main signer.
type Auth struct {
	Signer  docseal.Condition
	Signers []docseal.Condition
}

func (a *Auth) GetConditions(docseal.Context) []docseal.Condition {
	if a.Signer == nil {
		return a.Signers
	}
	conds := make([]docseal.Condition, 0, len(a.Signers)+1)
	return append(append(conds, a.Signers...), a.Signer)
}

func (a *Auth) HasAddress(ctx docseal.Context, addr docseal.Address) bool {
	return hasAddress(a.GetConditions(ctx), addr)
}

// CtxAuth reads the conditions from the context, so that one handler can
// serve calls made by different participants in the same test.
type CtxAuth struct {
	Key string
}

func (a *CtxAuth) SetConditions(ctx docseal.Context, conds ...docseal.Condition) docseal.Context {
	return context.WithValue(ctx, ctxAuthKey(a.Key), conds)
}

func (a *CtxAuth) GetConditions(ctx docseal.Context) []docseal.Condition {
	conds, _ := ctx.Value(ctxAuthKey(a.Key)).([]docseal.Condition)
	return conds
}

func (a *CtxAuth) HasAddress(ctx docseal.Context, addr docseal.Address) bool {
	return hasAddress(a.GetConditions(ctx), addr)
}

type ctxAuthKey string

func hasAddress(conds []docseal.Condition, addr docseal.Address) bool {
	for _, c := range conds {
		if addr.Equals(c.Address()) {
			return true
		}
	}
	return false
}
