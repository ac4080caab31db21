package app

import (
	"reflect"

	"github.com/iov-one/docseal"
)

// Decorators is an ordered list of decorators waiting for the handler they
// wrap. The first decorator sees a transaction first.
//
//	app.ChainDecorators(
//	    utils.NewLogging(),
//	    utils.NewRecovery(),
//	    sigs.NewDecorator(),
//	).WithHandler(router)
type Decorators struct {
	chain []docseal.Decorator
}

// ChainDecorators starts a chain. Nil decorators are skipped, so optional
// ones can be passed unconditionally.
func ChainDecorators(ds ...docseal.Decorator) Decorators {
	return Decorators{}.Chain(ds...)
}

// Chain returns a new chain with ds appended. The receiver is not modified.
func (d Decorators) Chain(ds ...docseal.Decorator) Decorators {
	chain := make([]docseal.Decorator, 0, len(d.chain)+len(ds))
	chain = append(chain, d.chain...)
	for _, dec := range ds {
		if !isNilDecorator(dec) {
			chain = append(chain, dec)
		}
	}
	return Decorators{chain: chain}
}

func isNilDecorator(d docseal.Decorator) bool {
	if d == nil {
		return true
	}
	v := reflect.ValueOf(d)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// WithHandler closes the chain around h.
func (d Decorators) WithHandler(h docseal.Handler) docseal.Handler {
	for i := len(d.chain) - 1; i >= 0; i-- {
		h = link{dec: d.chain[i], next: h}
	}
	return h
}

type link struct {
	dec  docseal.Decorator
	next docseal.Handler
}

func (l link) Check(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*docseal.CheckResult, error) {
	return l.dec.Check(ctx, db, tx, l.next)
}

func (l link) Deliver(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*docseal.DeliverResult, error) {
	return l.dec.Deliver(ctx, db, tx, l.next)
}
