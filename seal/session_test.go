package seal

import (
	"testing"
	"time"

	"github.com/iov-one/docseal/docsealtest"
	"github.com/iov-one/docseal/docsealtest/assert"
	"github.com/iov-one/docseal/errors"
)

func TestCertificateVerify(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	alice := docsealtest.NewKey()
	bob := docsealtest.NewKey()

	cases := map[string]struct {
		cert    func() *Certificate
		at      time.Time
		wantErr *errors.Error
	}{
		"valid": {
			cert: func() *Certificate {
				s, _ := NewSessionKey(alice, now, time.Minute)
				return s.Certificate
			},
			at: now.Add(30 * time.Second),
		},
		"expired": {
			cert: func() *Certificate {
				s, _ := NewSessionKey(alice, now, time.Minute)
				return s.Certificate
			},
			at:      now.Add(time.Minute),
			wantErr: errors.ErrExpired,
		},
		"requester swapped": {
			cert: func() *Certificate {
				s, _ := NewSessionKey(alice, now, time.Minute)
				s.Certificate.Requester = bob.PublicKey().Address()
				return s.Certificate
			},
			at:      now,
			wantErr: errors.ErrUnauthorized,
		},
		"key and requester swapped": {
			cert: func() *Certificate {
				s, _ := NewSessionKey(alice, now, time.Minute)
				s.Certificate.Requester = bob.PublicKey().Address()
				s.Certificate.PubKey = bob.PublicKey()
				return s.Certificate
			},
			at:      now,
			wantErr: errors.ErrUnauthorized,
		},
		"expiry extended": {
			cert: func() *Certificate {
				s, _ := NewSessionKey(alice, now, time.Minute)
				s.Certificate.ExpiresAt = s.Certificate.ExpiresAt.Add(time.Hour)
				return s.Certificate
			},
			at:      now,
			wantErr: errors.ErrUnauthorized,
		},
		"missing": {
			cert:    func() *Certificate { return nil },
			at:      now,
			wantErr: errors.ErrUnauthorized,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			err := tc.cert().Verify(tc.at)
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
		})
	}
}

func TestSessionOpen(t *testing.T) {
	now := time.Now()
	s, err := NewSessionKey(docsealtest.NewKey(), now, time.Minute)
	assert.Nil(t, err)
	other, err := NewSessionKey(docsealtest.NewKey(), now, time.Minute)
	assert.Nil(t, err)

	sealed, err := s.Certificate.SealTo([]byte("share"))
	assert.Nil(t, err)
	got, err := s.Open(sealed)
	assert.Nil(t, err)
	assert.Equal(t, []byte("share"), got)

	_, err = other.Open(sealed)
	assert.IsErr(t, errors.ErrInput, err)

	if s.Expired(now) {
		t.Fatal("fresh session expired")
	}
	if !s.Expired(now.Add(2 * time.Minute)) {
		t.Fatal("session did not expire")
	}
}

func TestNewSessionKeyTTL(t *testing.T) {
	_, err := NewSessionKey(docsealtest.NewKey(), time.Now(), 0)
	assert.IsErr(t, errors.ErrInput, err)
}
