package utils

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/tendermint/tendermint/libs/log"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/docsealtest"
	"github.com/iov-one/docseal/docsealtest/assert"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/store"
)

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewTMLogger(log.NewSyncWriter(&buf))
	ctx := docseal.WithLogger(context.Background(), logger)
	db := store.MemStore()
	tx := &docsealtest.Tx{Msg: &docsealtest.Msg{RoutePath: "doc/create"}}

	l := NewLogging()

	h := &docsealtest.Handler{DeliverResult: docseal.DeliverResult{Log: "all good"}}
	_, err := l.Deliver(ctx, db, tx, h)
	assert.Nil(t, err)
	out := buf.String()
	if !strings.Contains(out, "all good") || !strings.Contains(out, "path=doc/create") {
		t.Fatalf("unexpected log output: %s", out)
	}

	buf.Reset()
	h = &docsealtest.Handler{CheckErr: errors.ErrNotFound.New("no such document")}
	_, err = l.Check(ctx, db, tx, h)
	assert.IsErr(t, errors.ErrNotFound, err)
	out = buf.String()
	if !strings.Contains(out, "no such document") {
		t.Fatalf("error not logged: %s", out)
	}
	assert.Equal(t, 1, h.CheckCallCount())
}
