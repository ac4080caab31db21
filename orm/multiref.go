package orm

import (
	"bytes"
	"sort"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
)

// MultiRef is an ordered set of byte references, stored as one model.
type MultiRef struct {
	Refs [][]byte
}

var _ Model = (*MultiRef)(nil)

func NewMultiRef(refs ...[]byte) (*MultiRef, error) {
	var m MultiRef
	for _, r := range refs {
		if err := m.Add(r); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

// Add inserts ref at its sorted position. A ref already in the set is
// ErrDuplicate.
func (m *MultiRef) Add(ref []byte) error {
	at, ok := m.search(ref)
	if ok {
		return errors.Wrapf(errors.ErrDuplicate, "ref %X", ref)
	}
	m.Refs = append(m.Refs[:at], append([][]byte{ref}, m.Refs[at:]...)...)
	return nil
}

// Remove drops ref. A ref not in the set is ErrNotFound.
func (m *MultiRef) Remove(ref []byte) error {
	at, ok := m.search(ref)
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "ref %X", ref)
	}
	m.Refs = append(m.Refs[:at], m.Refs[at+1:]...)
	return nil
}

func (m *MultiRef) Has(ref []byte) bool {
	_, ok := m.search(ref)
	return ok
}

// Len is zero for a nil set.
func (m *MultiRef) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Refs)
}

// search returns the position of ref, or where it belongs when missing.
func (m *MultiRef) search(ref []byte) (int, bool) {
	at := sort.Search(len(m.Refs), func(i int) bool { return bytes.Compare(m.Refs[i], ref) >= 0 })
	return at, at < len(m.Refs) && bytes.Equal(m.Refs[at], ref)
}

// Copy shares the ref bytes but not the list.
func (m *MultiRef) Copy() Model {
	return &MultiRef{Refs: append([][]byte(nil), m.Refs...)}
}

// Validate requires a non empty, strictly ascending list.
func (m *MultiRef) Validate() error {
	if len(m.Refs) == 0 {
		return errors.Wrap(errors.ErrEmpty, "refs")
	}
	for i := 1; i < len(m.Refs); i++ {
		if bytes.Compare(m.Refs[i-1], m.Refs[i]) >= 0 {
			return errors.Wrapf(errors.ErrState, "ref %d out of order", i)
		}
	}
	return nil
}

func (m *MultiRef) Marshal() ([]byte, error)   { return docseal.MarshalBinary(m) }
func (m *MultiRef) Unmarshal(raw []byte) error { return docseal.UnmarshalBinary(raw, m) }
