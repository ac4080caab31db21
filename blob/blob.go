/*
Package blob defines the content addressed storage of document bytes.

Blobs are immutable and addressed by the hex encoded SHA-256 of their
content. The ledger only keeps references, the bytes themselves are always
encrypted before they are stored.
*/
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/iov-one/docseal/errors"
)

// Store is a content addressed blob store.
//
// Put is idempotent, storing the same content twice returns the same
// reference. Get returns ErrNotFound for an unknown reference. Failures of
// the storage backend are ErrStorage or ErrNetwork and may be retried.
type Store interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
}

// RefOf returns the reference of given content.
func RefOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ValidateRef returns an ErrInput if ref is not a well formed reference.
func ValidateRef(ref string) error {
	if len(ref) != 2*sha256.Size {
		return errors.Wrapf(errors.ErrInput, "reference length %d", len(ref))
	}
	if _, err := hex.DecodeString(ref); err != nil {
		return errors.Wrap(errors.ErrInput, "reference is not hex encoded")
	}
	return nil
}

// Verify ensures data is the content addressed by ref. Content that does
// not match was corrupted by the storage.
func Verify(ref string, data []byte) error {
	if got := RefOf(data); got != ref {
		return errors.Wrapf(errors.ErrStorage, "content of %s hashes to %s", ref, got)
	}
	return nil
}

// MemStore is a Store keeping all blobs in memory.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	puts  int
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

func (s *MemStore) Put(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.Wrap(errors.ErrEmpty, "blob")
	}
	ref := RefOf(data)
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[ref] = cp
	s.puts++
	return ref, nil
}

func (s *MemStore) Get(ctx context.Context, ref string) ([]byte, error) {
	if err := ValidateRef(ref); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[ref]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "blob %s", ref)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Puts returns how many times Put succeeded.
func (s *MemStore) Puts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puts
}
