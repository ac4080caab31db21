package docsealtest

import "github.com/iov-one/docseal"

// Decorator counts the calls passing through it. A set CheckErr or
// DeliverErr short-circuits the call before the next handler runs.
type Decorator struct {
	CheckErr   error
	DeliverErr error

	checks, delivers int
}

var _ docseal.Decorator = (*Decorator)(nil)

func (d *Decorator) Check(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx, next docseal.Checker) (*docseal.CheckResult, error) {
	d.checks++
	if d.CheckErr != nil {
		return nil, d.CheckErr
	}
	return next.Check(ctx, db, tx)
}

func (d *Decorator) Deliver(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx, next docseal.Deliverer) (*docseal.DeliverResult, error) {
	d.delivers++
	if d.DeliverErr != nil {
		return nil, d.DeliverErr
	}
	return next.Deliver(ctx, db, tx)
}

func (d *Decorator) CheckCallCount() int   { return d.checks }
func (d *Decorator) DeliverCallCount() int { return d.delivers }
func (d *Decorator) CallCount() int        { return d.checks + d.delivers }
