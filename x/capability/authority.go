package capability

import (
	"bytes"

	"github.com/google/uuid"
	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
)

// newID returns random capability ids. Tests replace it to get
// predictable ids.
var newID = func() []byte {
	id := uuid.New()
	return id[:]
}

// Issue creates a new capability bound to given document and stores it
// under the recipient key.
func Issue(db docseal.KVStore, documentID []byte, recipient docseal.Address, now docseal.UnixTime) (*SignerCap, error) {
	c := &SignerCap{
		ID:         newID(),
		DocumentID: documentID,
		Holder:     recipient,
		IssuedAt:   now,
	}
	if err := NewBucket().Put(db, Key(recipient, c.ID), c); err != nil {
		return nil, errors.Wrap(err, "cannot store capability")
	}
	return c, nil
}

// Validate returns true if the capability may be used to sign given
// document.
func Validate(c *SignerCap, documentID []byte) bool {
	return c != nil && bytes.Equal(c.DocumentID, documentID)
}

// Load returns the capability with given id owned by the holder.
func Load(db docseal.ReadOnlyKVStore, holder docseal.Address, capID []byte) (*SignerCap, error) {
	if len(capID) != IDLength {
		return nil, errors.Wrap(ErrCapabilityNotFound, "invalid id")
	}
	var c SignerCap
	switch err := NewBucket().One(db, Key(holder, capID), &c); {
	case err == nil:
		return &c, nil
	case errors.ErrNotFound.Is(err):
		return nil, errors.Wrapf(ErrCapabilityNotFound, "holder %s", holder)
	default:
		return nil, err
	}
}

// List returns a page of capabilities owned by the holder, ordered by their
// id, starting after the given id. The returned cursor must be passed as
// after to get the next page; it is nil when no more capabilities exist.
func List(db docseal.ReadOnlyKVStore, holder docseal.Address, after []byte, limit int) ([]*SignerCap, []byte, error) {
	var from []byte
	if after != nil {
		from = Key(holder, after)
	}
	models, cursor, err := NewBucket().Page(db, holder, from, limit)
	if err != nil {
		return nil, nil, errors.Wrap(err, "page")
	}
	caps := make([]*SignerCap, len(models))
	for i, m := range models {
		var c SignerCap
		if err := c.Unmarshal(m.Value); err != nil {
			return nil, nil, errors.Wrapf(err, "capability %X", m.Key)
		}
		caps[i] = &c
	}
	if cursor != nil {
		cursor = cursor[len(holder):]
	}
	return caps, cursor, nil
}

// Find returns the first capability of the holder bound to given document.
// Capabilities are scanned page by page in id order, so the result is
// deterministic. ErrCapabilityNotFound is returned once all pages are
// exhausted.
func Find(db docseal.ReadOnlyKVStore, holder docseal.Address, documentID []byte, pageSize int) (*SignerCap, error) {
	var after []byte
	for {
		caps, cursor, err := List(db, holder, after, pageSize)
		if err != nil {
			return nil, err
		}
		for _, c := range caps {
			if Validate(c, documentID) {
				return c, nil
			}
		}
		if cursor == nil {
			return nil, errors.Wrapf(ErrCapabilityNotFound, "holder %s, document %X", holder, documentID)
		}
		after = cursor
	}
}

// HeldFor returns true if the holder owns at least one capability for the
// document.
func HeldFor(db docseal.ReadOnlyKVStore, holder docseal.Address, documentID []byte) (bool, error) {
	switch _, err := Find(db, holder, documentID, 0); {
	case err == nil:
		return true, nil
	case ErrCapabilityNotFound.Is(err):
		return false, nil
	default:
		return false, err
	}
}
