package local

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/seal"
	"golang.org/x/crypto/nacl/secretbox"
)

// Committee encrypts for and decrypts with a fixed set of servers.
type Committee struct {
	servers []ShareServer
	now     func() time.Time
}

var _ seal.Service = (*Committee)(nil)

// NewCommittee returns a committee of given servers. The position of a
// server is its identifier in ciphertexts, so the order must be stable.
func NewCommittee(servers ...ShareServer) *Committee {
	return &Committee{servers: servers, now: time.Now}
}

// NewTestCommittee returns a committee of n fresh servers sharing a gate.
func NewTestCommittee(n int, gate seal.Gate) (*Committee, error) {
	servers := make([]ShareServer, n)
	for i := range servers {
		s, err := GenerateKeyServer(gate)
		if err != nil {
			return nil, err
		}
		servers[i] = s
	}
	return NewCommittee(servers...), nil
}

// WithClock replaces the clock used to check session expiration.
func (c *Committee) WithClock(now func() time.Time) *Committee {
	c.now = now
	return c
}

// Size returns the number of servers.
func (c *Committee) Size() int {
	return len(c.servers)
}

// Encrypt seals the plaintext with a random data key and splits the key
// between all servers.
func (c *Committee) Encrypt(ctx context.Context, identity []byte, threshold int, plaintext []byte) (*seal.Ciphertext, error) {
	if len(identity) == 0 {
		return nil, errors.Wrap(errors.ErrEmpty, "identity")
	}
	if threshold < 1 || threshold > len(c.servers) {
		return nil, errors.Wrapf(errors.ErrInput, "threshold %d with %d servers", threshold, len(c.servers))
	}

	var key [32]byte
	var nonce [24]byte
	if _, err := rand.Read(key[:]); err != nil {
		return nil, errors.Wrap(errors.ErrState, "no randomness")
	}
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, errors.Wrap(errors.ErrState, "no randomness")
	}
	shares, err := split(key[:], len(c.servers), threshold)
	if err != nil {
		return nil, err
	}

	ct := &seal.Ciphertext{
		Identity:  append([]byte(nil), identity...),
		Threshold: int32(threshold),
		Nonce:     nonce[:],
		Sealed:    secretbox.Seal(nil, plaintext, &nonce, &key),
		Shares:    make([]*seal.WrappedShare, len(c.servers)),
	}
	for i, srv := range c.servers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w, err := srv.WrapShare(ctx, identity, shares[i].X, shares[i].Y)
		if err != nil {
			return nil, errors.Wrapf(err, "server %d", i)
		}
		w.Server = int32(i)
		ct.Shares[i] = w
	}
	return ct, nil
}

// Decrypt asks servers for their shares until threshold of them were
// released. A proof rejection is reported over any other failure.
func (c *Committee) Decrypt(ctx context.Context, ct *seal.Ciphertext, session *seal.SessionKey, proof []byte, threshold int) ([]byte, error) {
	if err := ct.Validate(); err != nil {
		return nil, errors.Wrap(err, "ciphertext")
	}
	if threshold < int(ct.Threshold) {
		threshold = int(ct.Threshold)
	}
	if threshold > len(ct.Shares) {
		return nil, errors.Wrapf(errors.ErrInput, "threshold %d with %d shares", threshold, len(ct.Shares))
	}
	if session == nil {
		return nil, errors.Wrap(errors.ErrEmpty, "session")
	}
	if session.Expired(c.now()) {
		return nil, errors.Wrap(errors.ErrExpired, "session")
	}

	var (
		collected []share
		denied    error
		failed    error
	)
	for _, w := range ct.Shares {
		if len(collected) == threshold {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if w.Server < 0 || int(w.Server) >= len(c.servers) {
			failed = errors.Wrapf(errors.ErrInput, "unknown server %d", w.Server)
			continue
		}
		req := &seal.ShareRequest{
			Identity:    ct.Identity,
			Share:       w,
			Certificate: session.Certificate,
			Proof:       proof,
		}
		sealed, err := c.servers[w.Server].ReleaseShare(ctx, req)
		if err != nil {
			if errors.ErrUnauthorized.Is(err) || errors.ErrExpired.Is(err) {
				denied = err
			} else {
				failed = err
			}
			continue
		}
		y, err := session.Open(sealed)
		if err != nil {
			failed = err
			continue
		}
		collected = append(collected, share{X: byte(w.Index), Y: y})
	}

	if len(collected) < threshold {
		switch {
		case denied != nil:
			return nil, denied
		case failed != nil:
			return nil, errors.Wrapf(failed, "%d of %d shares released", len(collected), threshold)
		default:
			return nil, errors.Wrap(errors.ErrNetwork, "not enough key shares")
		}
	}

	raw, err := combine(collected)
	if err != nil {
		return nil, err
	}
	if len(raw) != 32 {
		return nil, errors.Wrap(errors.ErrInput, "data key length")
	}
	var key [32]byte
	var nonce [24]byte
	copy(key[:], raw)
	copy(nonce[:], ct.Nonce)
	plaintext, ok := secretbox.Open(nil, ct.Sealed, &nonce, &key)
	if !ok {
		return nil, errors.Wrap(errors.ErrInput, "corrupted ciphertext")
	}
	return plaintext, nil
}
