package local

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/docsealtest"
	"github.com/iov-one/docseal/docsealtest/assert"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/seal"
)

func TestSplitCombine(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")

	cases := map[string]struct {
		n, k    int
		pick    []int
		wantErr *errors.Error
	}{
		"one of one":        {n: 1, k: 1, pick: []int{0}},
		"two of three":      {n: 3, k: 2, pick: []int{0, 2}},
		"any two of three":  {n: 3, k: 2, pick: []int{2, 1}},
		"three of five":     {n: 5, k: 3, pick: []int{4, 0, 2}},
		"all of five":       {n: 5, k: 5, pick: []int{0, 1, 2, 3, 4}},
		"threshold too big": {n: 2, k: 3, wantErr: errors.ErrInput},
		"zero threshold":    {n: 2, k: 0, wantErr: errors.ErrInput},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			shares, err := split(secret, tc.n, tc.k)
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
			if tc.wantErr != nil {
				return
			}
			assert.Equal(t, tc.n, len(shares))
			var picked []share
			for _, i := range tc.pick {
				picked = append(picked, shares[i])
			}
			got, err := combine(picked)
			assert.Nil(t, err)
			assert.Equal(t, secret, got)
		})
	}
}

func TestCombineBelowThreshold(t *testing.T) {
	secret := []byte("a secret that needs three shares")
	shares, err := split(secret, 5, 3)
	assert.Nil(t, err)
	got, err := combine(shares[:2])
	assert.Nil(t, err)
	if bytes.Equal(secret, got) {
		t.Fatal("secret recovered with too few shares")
	}

	_, err = combine([]share{shares[0], shares[0]})
	assert.IsErr(t, errors.ErrInput, err)
}

func TestGFInverse(t *testing.T) {
	for a := 1; a < 256; a++ {
		if got := gfMul(byte(a), gfInv(byte(a))); got != 1 {
			t.Fatalf("%d * inv(%d) = %d", a, a, got)
		}
	}
}

// approveIf accepts a proof that equals want.
func approveIf(want []byte) seal.Gate {
	return seal.GateFunc(func(ctx context.Context, identity []byte, requester docseal.Address, proof []byte) error {
		if !bytes.Equal(proof, want) {
			return errors.Wrap(errors.ErrUnauthorized, "bad proof")
		}
		return nil
	})
}

// downServer is unreachable.
type downServer struct {
	ShareServer
}

func (downServer) ReleaseShare(context.Context, *seal.ShareRequest) ([]byte, error) {
	return nil, errors.Wrap(errors.ErrNetwork, "connection refused")
}

func TestCommitteeRoundTrip(t *testing.T) {
	ctx := context.Background()
	identity := docsealtest.SequenceID(7)
	plaintext := []byte("the contract text")
	proof := []byte("valid proof")

	committee, err := NewTestCommittee(3, approveIf(proof))
	assert.Nil(t, err)
	ct, err := committee.Encrypt(ctx, identity, 2, plaintext)
	assert.Nil(t, err)
	assert.Equal(t, int32(2), ct.Threshold)
	assert.Equal(t, 3, len(ct.Shares))

	raw, err := ct.Marshal()
	assert.Nil(t, err)
	decoded, err := seal.Decode(raw)
	assert.Nil(t, err)

	session, err := seal.NewSessionKey(docsealtest.NewKey(), time.Now(), time.Minute)
	assert.Nil(t, err)

	got, err := committee.Decrypt(ctx, decoded, session, proof, 2)
	assert.Nil(t, err)
	assert.Equal(t, plaintext, got)

	_, err = committee.Decrypt(ctx, decoded, session, []byte("forged"), 2)
	assert.IsErr(t, errors.ErrUnauthorized, err)
}

func TestCommitteeFailures(t *testing.T) {
	ctx := context.Background()
	identity := docsealtest.SequenceID(1)
	proof := []byte("proof")
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	cases := map[string]struct {
		down      []int
		threshold int
		session   func() *seal.SessionKey
		proof     []byte
		wantErr   *errors.Error
	}{
		"one server down": {
			down:      []int{0},
			threshold: 2,
			proof:     proof,
		},
		"too many servers down": {
			down:      []int{0, 2},
			threshold: 2,
			proof:     proof,
			wantErr:   errors.ErrNetwork,
		},
		"rejection wins over network errors": {
			down:      []int{1},
			threshold: 2,
			proof:     []byte("other"),
			wantErr:   errors.ErrUnauthorized,
		},
		"expired session": {
			threshold: 2,
			session: func() *seal.SessionKey {
				s, _ := seal.NewSessionKey(docsealtest.NewKey(), now.Add(-time.Hour), time.Minute)
				return s
			},
			proof:   proof,
			wantErr: errors.ErrExpired,
		},
		"threshold above the number of shares": {
			threshold: 4,
			proof:     proof,
			wantErr:   errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			servers := make([]ShareServer, 3)
			for i := range servers {
				s, err := GenerateKeyServer(approveIf(proof))
				assert.Nil(t, err)
				servers[i] = s.WithClock(func() time.Time { return now })
			}
			ct, err := NewCommittee(servers...).Encrypt(ctx, identity, 2, []byte("content"))
			assert.Nil(t, err)

			for _, i := range tc.down {
				servers[i] = downServer{servers[i]}
			}
			committee := NewCommittee(servers...).WithClock(func() time.Time { return now })

			session, err := seal.NewSessionKey(docsealtest.NewKey(), now, time.Minute)
			assert.Nil(t, err)
			if tc.session != nil {
				session = tc.session()
			}

			got, err := committee.Decrypt(ctx, ct, session, tc.proof, tc.threshold)
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
			if tc.wantErr == nil {
				assert.Equal(t, []byte("content"), got)
			}
		})
	}
}

func TestWrongIdentity(t *testing.T) {
	ctx := context.Background()
	committee, err := NewTestCommittee(2, approveIf(nil))
	assert.Nil(t, err)
	ct, err := committee.Encrypt(ctx, docsealtest.SequenceID(1), 1, []byte("content"))
	assert.Nil(t, err)

	// Shares of one identity cannot be unwrapped under another.
	ct.Identity = docsealtest.SequenceID(2)
	session, err := seal.NewSessionKey(docsealtest.NewKey(), time.Now(), time.Minute)
	assert.Nil(t, err)
	_, err = committee.Decrypt(ctx, ct, session, nil, 1)
	assert.IsErr(t, errors.ErrInput, err)
}

func TestEncryptValidation(t *testing.T) {
	ctx := context.Background()
	committee, err := NewTestCommittee(2, approveIf(nil))
	assert.Nil(t, err)

	_, err = committee.Encrypt(ctx, nil, 1, []byte("x"))
	assert.IsErr(t, errors.ErrEmpty, err)
	_, err = committee.Encrypt(ctx, []byte("id"), 3, []byte("x"))
	assert.IsErr(t, errors.ErrInput, err)
}
