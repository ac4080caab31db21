/*
Package local simulates a committee of threshold key servers in process.

Each KeyServer holds a master secret. The data key of every ciphertext is
split into shares and each share is encrypted under a key the server
derives from its master secret and the identity. A server decrypts its
share and seals it to the requester session only after its Gate approved
the proof.
*/
package local

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"io"
	"time"

	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/seal"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	masterSize = 32
	shareInfo  = "docseal/share"
)

// ShareServer is a single member of the committee.
type ShareServer interface {
	// WrapShare encrypts a share for the identity.
	WrapShare(ctx context.Context, identity []byte, index byte, share []byte) (*seal.WrappedShare, error)
	// ReleaseShare returns the share sealed to the session of the request.
	ReleaseShare(ctx context.Context, req *seal.ShareRequest) ([]byte, error)
}

// KeyServer is an in memory ShareServer.
type KeyServer struct {
	master []byte
	gate   seal.Gate
	now    func() time.Time
}

var _ ShareServer = (*KeyServer)(nil)

// NewKeyServer returns a server with given master secret.
func NewKeyServer(master []byte, gate seal.Gate) (*KeyServer, error) {
	if len(master) != masterSize {
		return nil, errors.Wrapf(errors.ErrInput, "master secret must be %d bytes", masterSize)
	}
	if gate == nil {
		return nil, errors.Wrap(errors.ErrEmpty, "gate")
	}
	return &KeyServer{
		master: append([]byte(nil), master...),
		gate:   gate,
		now:    time.Now,
	}, nil
}

// GenerateKeyServer returns a server with a random master secret.
func GenerateKeyServer(gate seal.Gate) (*KeyServer, error) {
	master := make([]byte, masterSize)
	if _, err := rand.Read(master); err != nil {
		return nil, errors.Wrap(errors.ErrState, "no randomness")
	}
	return NewKeyServer(master, gate)
}

// WithClock replaces the clock used to check session expiration.
func (s *KeyServer) WithClock(now func() time.Time) *KeyServer {
	s.now = now
	return s
}

func (s *KeyServer) WrapShare(ctx context.Context, identity []byte, index byte, share []byte) (*seal.WrappedShare, error) {
	key, err := s.identityKey(identity)
	if err != nil {
		return nil, err
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, errors.Wrap(errors.ErrState, "no randomness")
	}
	return &seal.WrappedShare{
		Index: int32(index),
		Nonce: nonce[:],
		Box:   secretbox.Seal(nil, share, &nonce, key),
	}, nil
}

func (s *KeyServer) ReleaseShare(ctx context.Context, req *seal.ShareRequest) ([]byte, error) {
	if req == nil || req.Share == nil {
		return nil, errors.Wrap(errors.ErrEmpty, "share request")
	}
	if err := req.Certificate.Verify(s.now()); err != nil {
		return nil, err
	}
	if err := s.gate.Approve(ctx, req.Identity, req.Certificate.Requester, req.Proof); err != nil {
		return nil, errors.Wrap(err, "proof rejected")
	}

	key, err := s.identityKey(req.Identity)
	if err != nil {
		return nil, err
	}
	var nonce [24]byte
	copy(nonce[:], req.Share.Nonce)
	share, ok := secretbox.Open(nil, req.Share.Box, &nonce, key)
	if !ok {
		return nil, errors.Wrap(errors.ErrInput, "share was not wrapped for this identity")
	}
	return req.Certificate.SealTo(share)
}

// identityKey derives the key wrapping shares of an identity.
func (s *KeyServer) identityKey(identity []byte) (*[32]byte, error) {
	if len(identity) == 0 {
		return nil, errors.Wrap(errors.ErrEmpty, "identity")
	}
	kdf := hkdf.New(sha256.New, s.master, identity, []byte(shareInfo))
	var key [32]byte
	if _, err := io.ReadFull(kdf, key[:]); err != nil {
		return nil, errors.Wrap(errors.ErrState, "derive key")
	}
	return &key, nil
}
