package registry

import (
	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/orm"
)

const (
	createdBucket  = "created"
	assignedBucket = "assigned"
)

var (
	created    = orm.NewBucket(createdBucket, &orm.MultiRef{})
	assigned   = orm.NewBucket(assignedBucket, &orm.MultiRef{})
	documentID = orm.NewSequence("docs", orm.SeqID)
)

// NextDocumentID allocates the id of a new document.
func NextDocumentID(db docseal.KVStore) ([]byte, error) {
	return documentID.NextVal(db)
}

// TotalDocuments returns the number of documents ever created.
func TotalDocuments(db docseal.ReadOnlyKVStore) (int64, error) {
	return documentID.Latest(db)
}

// RecordCreation adds the document to the set of documents created by
// given address. Recording the same document twice has no effect.
func RecordCreation(db docseal.KVStore, creator docseal.Address, docID []byte) error {
	return add(db, created, creator, docID)
}

// RecordAssignment adds the document to the set of documents given address
// may sign. Recording the same document twice has no effect.
func RecordAssignment(db docseal.KVStore, signer docseal.Address, docID []byte) error {
	return add(db, assigned, signer, docID)
}

// LookupCreated returns ids of all documents created by given address, in
// ascending order. An unknown address has no documents.
func LookupCreated(db docseal.ReadOnlyKVStore, creator docseal.Address) ([][]byte, error) {
	return lookup(db, created, creator)
}

// LookupAssigned returns ids of all documents given address was assigned
// to, in ascending order. An unknown address has no documents.
func LookupAssigned(db docseal.ReadOnlyKVStore, signer docseal.Address) ([][]byte, error) {
	return lookup(db, assigned, signer)
}

// ContentionKeys returns the database keys a registry update for given
// creator and signers reads and writes.
func ContentionKeys(creator docseal.Address, signers ...docseal.Address) [][]byte {
	keys := [][]byte{CreatedKey(creator)}
	for _, s := range signers {
		keys = append(keys, AssignedKey(s))
	}
	return keys
}

// CreatedKey is the key of the set of documents created by given address.
func CreatedKey(addr docseal.Address) []byte {
	return created.DBKey(addr)
}

// AssignedKey is the key of the set of documents assigned to given address.
func AssignedKey(addr docseal.Address) []byte {
	return assigned.DBKey(addr)
}

// DocumentIDKey is the key of the document id sequence.
func DocumentIDKey() []byte {
	return documentID.Key()
}

func add(db docseal.KVStore, b orm.Bucket, addr docseal.Address, docID []byte) error {
	if err := addr.Validate(); err != nil {
		return errors.Wrap(err, "address")
	}
	if err := orm.ValidateSequence(docID); err != nil {
		return errors.Wrap(err, "document id")
	}
	refs, err := load(db, b, addr)
	if err != nil {
		return err
	}
	switch err := refs.Add(docID); {
	case err == nil:
	case errors.ErrDuplicate.Is(err):
		return nil
	default:
		return err
	}
	if err := b.Put(db, addr, refs); err != nil {
		return errors.Wrapf(err, "%s bucket", b.Name())
	}
	return nil
}

func lookup(db docseal.ReadOnlyKVStore, b orm.Bucket, addr docseal.Address) ([][]byte, error) {
	refs, err := load(db, b, addr)
	if err != nil {
		return nil, err
	}
	if refs.Len() == 0 {
		return [][]byte{}, nil
	}
	return refs.Refs, nil
}

func load(db docseal.ReadOnlyKVStore, b orm.Bucket, addr docseal.Address) (*orm.MultiRef, error) {
	var refs orm.MultiRef
	switch err := b.One(db, addr, &refs); {
	case err == nil:
		return &refs, nil
	case errors.ErrNotFound.Is(err):
		return &refs, nil
	default:
		return nil, errors.Wrapf(err, "%s bucket", b.Name())
	}
}
