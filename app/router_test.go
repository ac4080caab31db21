package app

import (
	"context"
	"testing"

	"github.com/iov-one/docseal/docsealtest"
	"github.com/iov-one/docseal/docsealtest/assert"
	"github.com/iov-one/docseal/errors"
)

func TestRouter(t *testing.T) {
	var (
		ctx = context.Background()
		r   = NewRouter()

		good = &docsealtest.Handler{}
		bad  = &docsealtest.Handler{
			CheckErr:   errors.ErrState,
			DeliverErr: errors.ErrState,
		}
	)

	r.Handle("document/good", good)
	r.Handle("document/bad", bad)

	assert.Panics(t, func() { r.Handle("document/good", good) })
	assert.Panics(t, func() { r.Handle("l:7", good) })

	goodTx := &docsealtest.Tx{Msg: &docsealtest.Msg{RoutePath: "document/good"}}
	_, err := r.Check(ctx, nil, goodTx)
	assert.Nil(t, err)
	_, err = r.Deliver(ctx, nil, goodTx)
	assert.Nil(t, err)
	assert.Equal(t, 2, good.CallCount())

	badTx := &docsealtest.Tx{Msg: &docsealtest.Msg{RoutePath: "document/bad"}}
	_, err = r.Deliver(ctx, nil, badTx)
	assert.IsErr(t, errors.ErrState, err)

	missingTx := &docsealtest.Tx{Msg: &docsealtest.Msg{RoutePath: "document/missing"}}
	_, err = r.Check(ctx, nil, missingTx)
	assert.IsErr(t, errors.ErrNotFound, err)
	_, err = r.Deliver(ctx, nil, missingTx)
	assert.IsErr(t, errors.ErrNotFound, err)

	assert.Equal(t, 2, good.CallCount())
	assert.Equal(t, 1, bad.CallCount())
	assert.Equal(t, []string{"document/bad", "document/good"}, r.Paths())
}
