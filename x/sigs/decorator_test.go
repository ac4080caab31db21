package sigs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/crypto"
	"github.com/iov-one/docseal/docsealtest"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/store"
)

func TestDecorator(t *testing.T) {
	const chainID = "sigs-chain"
	key := crypto.GenPrivKeyEd25519()
	signer := key.PublicKey().Condition()

	tx := NewStdTx([]byte("ledger entry"))
	first, err := SignTx(key, tx, chainID, 0)
	require.NoError(t, err)
	second, err := SignTx(key, tx, chainID, 1)
	require.NoError(t, err)

	// Steps run in order against the same store, so nonces are consumed.
	steps := []struct {
		name        string
		allowMissing bool
		tx          docseal.Tx
		sigs        []*StdSignature
		wantErr     *errors.Error
		wantSigners []docseal.Condition
	}{
		{name: "unsigned", tx: tx, wantErr: errors.ErrUnauthorized},
		{name: "signed", tx: tx, sigs: []*StdSignature{first}, wantSigners: []docseal.Condition{signer}},
		{name: "replayed", tx: tx, sigs: []*StdSignature{first}, wantErr: ErrInvalidSequence},
		{name: "unsigned allowed", allowMissing: true, tx: tx},
		{name: "next nonce", allowMissing: true, tx: tx, sigs: []*StdSignature{second}, wantSigners: []docseal.Condition{signer}},
		{name: "not signable", tx: &docsealtest.Tx{Msg: &docsealtest.Msg{RoutePath: "test/mock"}}, wantErr: errors.ErrUnauthorized},
		{name: "not signable allowed", allowMissing: true, tx: &docsealtest.Tx{Msg: &docsealtest.Msg{RoutePath: "test/mock"}}},
	}

	modes := map[string]func(docseal.Decorator, docseal.Context, docseal.KVStore, docseal.Tx, *SigCheckHandler) error{
		"check": func(d docseal.Decorator, ctx docseal.Context, db docseal.KVStore, tx docseal.Tx, h *SigCheckHandler) error {
			_, err := d.Check(ctx, db, tx, h)
			return err
		},
		"deliver": func(d docseal.Decorator, ctx docseal.Context, db docseal.KVStore, tx docseal.Tx, h *SigCheckHandler) error {
			_, err := d.Deliver(ctx, db, tx, h)
			return err
		},
	}
	for mode, run := range modes {
		t.Run(mode, func(t *testing.T) {
			db := store.MemStore()
			ctx := docseal.WithChainID(context.Background(), chainID)
			for _, s := range steps {
				if stx, ok := s.tx.(*StdTx); ok {
					stx.Signatures = s.sigs
				}
				dec := NewDecorator()
				if s.allowMissing {
					dec = dec.AllowMissingSigs()
				}
				h := &SigCheckHandler{}
				err := run(dec, ctx, db, s.tx, h)
				if s.wantErr != nil {
					require.Truef(t, s.wantErr.Is(err), "%s: got %+v", s.name, err)
					continue
				}
				require.NoErrorf(t, err, s.name)
				assert.Equalf(t, s.wantSigners, h.Signers, s.name)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	a := docsealtest.NewCondition()
	ctx := context.WithValue(context.Background(), signersKey{}, []docseal.Condition{a})

	var auth Authenticate
	assert.True(t, auth.HasAddress(ctx, a.Address()))
	assert.False(t, auth.HasAddress(ctx, docsealtest.NewCondition().Address()))
	assert.Empty(t, auth.GetConditions(context.Background()))
}
