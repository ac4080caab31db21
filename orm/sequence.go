package orm

import (
	"encoding/binary"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
)

// Sequence is a counter stored under _s.<bucket>:<name>. Its values are
// encoded big endian, so byte order follows numeric order and sequence ids
// can be range scanned.
type Sequence struct {
	key []byte
}

func NewSequence(bucket, name string) Sequence {
	return Sequence{key: []byte("_s." + bucket + ":" + name)}
}

// NextVal advances the counter and returns the new value encoded.
func (s *Sequence) NextVal(db docseal.KVStore) ([]byte, error) {
	n, err := s.NextInt(db)
	if err != nil {
		return nil, err
	}
	return EncodeSequence(n), nil
}

// NextInt advances the counter and returns the new value. The first value
// is 1.
func (s *Sequence) NextInt(db docseal.KVStore) (int64, error) {
	n, err := s.Latest(db)
	if err != nil {
		return 0, err
	}
	n++
	if err := db.Set(s.key, EncodeSequence(n)); err != nil {
		return 0, errors.Wrap(err, "store sequence")
	}
	return n, nil
}

// Latest is the last value handed out, zero if none was.
func (s *Sequence) Latest(db docseal.ReadOnlyKVStore) (int64, error) {
	raw, err := db.Get(s.key)
	if err != nil {
		return 0, errors.Wrap(err, "load sequence")
	}
	return DecodeSequence(raw), nil
}

// Key is where the counter lives. Transactions creating entities declare
// it as a contention key.
func (s *Sequence) Key() []byte {
	return s.key
}

func EncodeSequence(n int64) []byte {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, uint64(n))
	return raw
}

// DecodeSequence reverses EncodeSequence. Anything but 8 bytes is zero.
func DecodeSequence(raw []byte) int64 {
	if len(raw) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(raw))
}
