package utils

import (
	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
)

// Recovery turns a panic below it into ErrPanic. The ledger then drops the
// transaction like any other failure.
type Recovery struct{}

var _ docseal.Decorator = Recovery{}

func NewRecovery() Recovery {
	return Recovery{}
}

func (Recovery) Check(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx, next docseal.Checker) (res *docseal.CheckResult, err error) {
	defer recoverTo(ctx, tx, &err)
	return next.Check(ctx, db, tx)
}

func (Recovery) Deliver(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx, next docseal.Deliverer) (res *docseal.DeliverResult, err error) {
	defer recoverTo(ctx, tx, &err)
	return next.Deliver(ctx, db, tx)
}

func recoverTo(ctx docseal.Context, tx docseal.Tx, err *error) {
	r := recover()
	if r == nil {
		return
	}
	*err = errors.Wrapf(errors.ErrPanic, "%v", r)
	path := "unknown"
	if tx != nil {
		path = docseal.GetPath(tx)
	}
	docseal.GetLogger(ctx).Error("panic", "path", path, "err", *err)
}
