// Package utils holds the decorators every transaction passes through.
package utils

import (
	"time"

	"github.com/iov-one/docseal"
)

// Logging writes one line per transaction with its path and duration.
// Failures are logged as errors. Successful checks are logged at debug
// level and deliveries at info.
type Logging struct{}

var _ docseal.Decorator = Logging{}

func NewLogging() Logging {
	return Logging{}
}

func (Logging) Check(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx, next docseal.Checker) (*docseal.CheckResult, error) {
	start := time.Now()
	res, err := next.Check(ctx, db, tx)
	var msg string
	if res != nil {
		msg = res.Log
	}
	logResult(ctx, tx, time.Since(start), msg, err, true)
	return res, err
}

func (Logging) Deliver(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx, next docseal.Deliverer) (*docseal.DeliverResult, error) {
	start := time.Now()
	res, err := next.Deliver(ctx, db, tx)
	var msg string
	if res != nil {
		msg = res.Log
	}
	logResult(ctx, tx, time.Since(start), msg, err, false)
	return res, err
}

func logResult(ctx docseal.Context, tx docseal.Tx, took time.Duration, msg string, err error, check bool) {
	logger := docseal.GetLogger(ctx).With("path", docseal.GetPath(tx), "took_us", took.Microseconds())
	switch {
	case err != nil:
		logger.Error(msg, "err", err)
	case check:
		logger.Debug(msg)
	default:
		logger.Info(msg)
	}
}
