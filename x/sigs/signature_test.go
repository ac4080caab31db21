package sigs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/crypto"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/store"
)

func TestSignBytes(t *testing.T) {
	const chainID = "docseal-sign"
	base, err := SignBytes([]byte("contract"), chainID, 4)
	require.NoError(t, err)

	cases := map[string]struct {
		payload []byte
		chainID string
		seq     int64
		wantErr *errors.Error
		same    bool
	}{
		"deterministic":    {payload: []byte("contract"), chainID: chainID, seq: 4, same: true},
		"other payload":    {payload: []byte("contract v2"), chainID: chainID, seq: 4},
		"other chain":      {payload: []byte("contract"), chainID: chainID + "-2", seq: 4},
		"other nonce":      {payload: []byte("contract"), chainID: chainID, seq: 5},
		"negative nonce":   {payload: []byte("contract"), chainID: chainID, seq: -1, wantErr: ErrInvalidSequence},
		"invalid chain id": {payload: []byte("contract"), chainID: "no", seq: 1, wantErr: errors.ErrInput},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := SignBytes(tc.payload, tc.chainID, tc.seq)
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
			if tc.wantErr != nil {
				return
			}
			assert.Len(t, got, 64)
			assert.Equal(t, tc.same, string(got) == string(base))
		})
	}
}

func TestVerifySignature(t *testing.T) {
	const chainID = "docseal-verify"
	db := store.MemStore()
	key := crypto.GenPrivKeyEd25519()
	tx := NewStdTx([]byte("sign document 7"))

	sign := func(seq int64) *StdSignature {
		t.Helper()
		sig, err := SignTx(key, tx, chainID, seq)
		require.NoError(t, err)
		return sig
	}
	forged := *sign(2).Signature
	forged.Ed25519 = append([]byte{1, 2, 3}, forged.Ed25519[3:]...)

	// Steps share the store and run in order.
	steps := []struct {
		name    string
		sig     *StdSignature
		chainID string
		wantErr *errors.Error
	}{
		{name: "nonce must start at zero", sig: sign(1), chainID: chainID, wantErr: ErrInvalidSequence},
		{name: "empty signature", sig: &StdSignature{}, chainID: chainID, wantErr: errors.ErrUnauthorized},
		{name: "nil signature", chainID: chainID, wantErr: errors.ErrUnauthorized},
		{name: "first", sig: sign(0), chainID: chainID},
		{name: "second", sig: sign(1), chainID: chainID},
		{name: "replay", sig: sign(1), chainID: chainID, wantErr: ErrInvalidSequence},
		{name: "nonce gap", sig: sign(9), chainID: chainID, wantErr: ErrInvalidSequence},
		{name: "other chain", sig: sign(2), chainID: "docseal-other", wantErr: errors.ErrUnauthorized},
		{
			name:    "forged",
			sig:     &StdSignature{Pubkey: key.PublicKey(), Signature: &forged, Sequence: 2},
			chainID: chainID,
			wantErr: errors.ErrUnauthorized,
		},
		{name: "third", sig: sign(2), chainID: chainID},
	}
	payload, err := tx.GetSignBytes()
	require.NoError(t, err)
	for _, s := range steps {
		cond, err := VerifySignature(db, s.sig, payload, s.chainID)
		if !s.wantErr.Is(err) {
			t.Fatalf("%s: unexpected error: %+v", s.name, err)
		}
		if s.wantErr == nil {
			assert.Equal(t, key.PublicKey().Condition(), cond, s.name)
		}
	}

	nonce, err := NextNonce(db, key.PublicKey().Address())
	require.NoError(t, err)
	assert.Equal(t, int64(3), nonce)
}

func TestVerifyTxSignatures(t *testing.T) {
	const chainID = "docseal-multi"
	db := store.MemStore()
	alice := crypto.GenPrivKeyEd25519()
	bob := crypto.GenPrivKeyEd25519()
	tx := NewStdTx([]byte("co-signed"))

	sig := func(k *crypto.PrivateKey, signed SignedTx, seq int64) *StdSignature {
		t.Helper()
		s, err := SignTx(k, signed, chainID, seq)
		require.NoError(t, err)
		return s
	}

	signers, err := VerifyTxSignatures(db, tx, chainID)
	require.NoError(t, err)
	assert.Empty(t, signers)

	tx.Signatures = []*StdSignature{sig(alice, NewStdTx([]byte("something else")), 0)}
	_, err = VerifyTxSignatures(db, tx, chainID)
	assert.True(t, errors.ErrUnauthorized.Is(err))

	tx.Signatures = []*StdSignature{sig(alice, tx, 0)}
	signers, err = VerifyTxSignatures(db, tx, chainID)
	require.NoError(t, err)
	assert.Equal(t, []docseal.Condition{alice.PublicKey().Condition()}, signers)

	// alice's nonce 0 is consumed, bob's is not.
	tx.Signatures = []*StdSignature{sig(alice, tx, 0), sig(bob, tx, 0)}
	_, err = VerifyTxSignatures(db, tx, chainID)
	assert.True(t, ErrInvalidSequence.Is(err))

	tx.Signatures = []*StdSignature{sig(alice, tx, 1), sig(bob, tx, 0)}
	signers, err = VerifyTxSignatures(db, tx, chainID)
	require.NoError(t, err)
	require.Len(t, signers, 2)
	assert.Equal(t, alice.PublicKey().Condition(), signers[0])
	assert.Equal(t, bob.PublicKey().Condition(), signers[1])

	assert.Equal(t, [][]byte{
		AccountKey(alice.PublicKey().Address()),
		AccountKey(bob.PublicKey().Address()),
	}, ContentionKeys(tx))
}
