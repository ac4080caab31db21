package seal

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/crypto"
	"github.com/iov-one/docseal/errors"
	"golang.org/x/crypto/nacl/box"
)

const sessionChallengePrefix = "docseal/session:"

// SessionKey is a short lived key pair that receives key shares. Its
// certificate, signed by the requester, binds it to the requester for a
// limited time.
type SessionKey struct {
	Certificate *Certificate

	public  *[32]byte
	private *[32]byte
}

// Certificate is the part of a session key sent to the key servers.
type Certificate struct {
	Requester  docseal.Address   `json:"requester"`
	SessionKey []byte            `json:"session_key"`
	ExpiresAt  docseal.UnixTime  `json:"expires_at"`
	PubKey     *crypto.PublicKey `json:"pub_key"`
	Signature  *crypto.Signature `json:"signature"`
}

// NewSessionKey creates a session for the owner of the signer key, valid
// for ttl from now.
func NewSessionKey(signer crypto.Signer, now time.Time, ttl time.Duration) (*SessionKey, error) {
	if ttl <= 0 {
		return nil, errors.Wrap(errors.ErrInput, "session ttl must be positive")
	}
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(errors.ErrState, "cannot generate session key")
	}
	key := signer.PublicKey()
	cert := &Certificate{
		Requester:  key.Address(),
		SessionKey: pub[:],
		ExpiresAt:  docseal.AsUnixTime(now.Add(ttl)),
		PubKey:     key,
	}
	sig, err := signer.Sign(cert.Challenge())
	if err != nil {
		return nil, errors.Wrap(err, "sign session challenge")
	}
	cert.Signature = sig
	return &SessionKey{Certificate: cert, public: pub, private: priv}, nil
}

// Requester returns the address this session is bound to.
func (s *SessionKey) Requester() docseal.Address {
	return s.Certificate.Requester
}

// Expired returns true if the session can no longer be used.
func (s *SessionKey) Expired(now time.Time) bool {
	return s.Certificate.expired(now)
}

// Open decrypts a key share sealed to this session.
func (s *SessionKey) Open(sealed []byte) ([]byte, error) {
	share, ok := box.OpenAnonymous(nil, sealed, s.public, s.private)
	if !ok {
		return nil, errors.Wrap(errors.ErrInput, "share not sealed to this session")
	}
	return share, nil
}

// Challenge returns the bytes the requester signs.
func (c *Certificate) Challenge() []byte {
	buf := make([]byte, 0, len(sessionChallengePrefix)+len(c.Requester)+len(c.SessionKey)+8)
	buf = append(buf, sessionChallengePrefix...)
	buf = append(buf, c.Requester...)
	buf = append(buf, c.SessionKey...)
	var exp [8]byte
	binary.BigEndian.PutUint64(exp[:], uint64(c.ExpiresAt))
	return append(buf, exp[:]...)
}

// Verify ensures the certificate is signed by the requester and not
// expired.
func (c *Certificate) Verify(now time.Time) error {
	if c == nil {
		return errors.Wrap(errors.ErrUnauthorized, "missing session certificate")
	}
	if c.expired(now) {
		return errors.Wrapf(errors.ErrExpired, "session expired at %s", c.ExpiresAt.Time())
	}
	if len(c.SessionKey) != 32 {
		return errors.Wrap(errors.ErrInput, "session key")
	}
	if c.PubKey == nil || !c.PubKey.Address().Equals(c.Requester) {
		return errors.Wrap(errors.ErrUnauthorized, "session not bound to the requester")
	}
	if !c.PubKey.Verify(c.Challenge(), c.Signature) {
		return errors.Wrap(errors.ErrUnauthorized, "invalid session signature")
	}
	return nil
}

// SealTo encrypts a share so that only the holder of the session can read
// it.
func (c *Certificate) SealTo(share []byte) ([]byte, error) {
	var pub [32]byte
	copy(pub[:], c.SessionKey)
	sealed, err := box.SealAnonymous(nil, share, &pub, rand.Reader)
	if err != nil {
		return nil, errors.Wrap(errors.ErrState, "seal share")
	}
	return sealed, nil
}

func (c *Certificate) expired(now time.Time) bool {
	return docseal.AsUnixTime(now) >= c.ExpiresAt
}
