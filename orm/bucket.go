package orm

import (
	"fmt"
	"regexp"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
)

// SeqID names the sequence buckets take their ids from.
const SeqID = "id"

var validBucketName = regexp.MustCompile(`^[a-z_]{3,10}$`)

// Bucket stores models of one type under "<name>:" and maintains their
// indexes. Modules wrap it in a typed bucket of their own.
type Bucket struct {
	name    string
	prefix  []byte
	proto   Model
	indexes map[string]*index
}

// NewBucket panics on a name outside [a-z_]{3,10}. Buckets are declared at
// start up, so that is a programming error.
func NewBucket(name string, proto Model) Bucket {
	if !validBucketName.MatchString(name) {
		panic(fmt.Sprintf("orm: invalid bucket name %q", name))
	}
	return Bucket{name: name, prefix: []byte(name + ":"), proto: proto}
}

func (b Bucket) Name() string { return b.name }

// DBKey returns a new slice holding the store key of key.
func (b Bucket) DBKey(key []byte) []byte {
	k := make([]byte, 0, len(b.prefix)+len(key))
	return append(append(k, b.prefix...), key...)
}

// One loads the model stored under key into dest, or fails with
// ErrNotFound.
func (b Bucket) One(db docseal.ReadOnlyKVStore, key []byte, dest Model) error {
	raw, err := db.Get(b.DBKey(key))
	switch {
	case err != nil:
		return errors.Wrapf(err, "get %s", b.name)
	case raw == nil:
		return errors.Wrapf(errors.ErrNotFound, "%s %X", b.name, key)
	}
	return errors.Wrapf(dest.Unmarshal(raw), "decode %T", dest)
}

func (b Bucket) Has(db docseal.ReadOnlyKVStore, key []byte) (bool, error) {
	ok, err := db.Has(b.DBKey(key))
	return ok, errors.Wrapf(err, "has %s", b.name)
}

// Put validates m and stores it under key, moving its index entries.
func (b Bucket) Put(db docseal.KVStore, key []byte, m Model) error {
	if len(key) == 0 {
		return errors.Wrapf(errors.ErrEmpty, "%s key", b.name)
	}
	if err := m.Validate(); err != nil {
		return errors.Wrapf(err, "invalid %T", m)
	}
	raw, err := m.Marshal()
	if err != nil {
		return errors.Wrapf(err, "encode %T", m)
	}
	prev, err := b.load(db, key)
	if err != nil {
		return err
	}
	for _, ix := range b.indexes {
		if err := ix.update(db, key, prev, m); err != nil {
			return err
		}
	}
	return errors.Wrapf(db.Set(b.DBKey(key), raw), "set %s", b.name)
}

// Delete removes the model under key and its index entries. A missing
// model is ErrNotFound.
func (b Bucket) Delete(db docseal.KVStore, key []byte) error {
	prev, err := b.load(db, key)
	if err != nil {
		return err
	}
	if prev == nil {
		return errors.Wrapf(errors.ErrNotFound, "%s %X", b.name, key)
	}
	for _, ix := range b.indexes {
		if err := ix.update(db, key, prev, nil); err != nil {
			return err
		}
	}
	return errors.Wrapf(db.Delete(b.DBKey(key)), "delete %s", b.name)
}

// load returns the current model under key, nil when there is none.
// Without indexes the content is never read and the prototype stands in
// for an existing model.
func (b Bucket) load(db docseal.ReadOnlyKVStore, key []byte) (Model, error) {
	if len(b.indexes) == 0 {
		switch ok, err := b.Has(db, key); {
		case err != nil:
			return nil, err
		case !ok:
			return nil, nil
		}
		return b.proto, nil
	}
	m := b.proto.Copy()
	err := b.One(db, key, m)
	if errors.ErrNotFound.Is(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (b Bucket) Sequence(name string) Sequence {
	return NewSequence(b.name, name)
}

// WithIndex returns a copy of the bucket that also maintains the named
// index. It panics when the name is taken.
func (b Bucket) WithIndex(name string, indexer Indexer, unique bool) Bucket {
	return b.WithMultiKeyIndex(name, single(indexer), unique)
}

func (b Bucket) WithMultiKeyIndex(name string, indexer MultiKeyIndexer, unique bool) Bucket {
	if _, taken := b.indexes[name]; taken {
		panic(fmt.Sprintf("orm: index %q declared twice on %s", name, b.name))
	}
	indexes := map[string]*index{name: newIndex(b.name+"_"+name, indexer, unique)}
	for n, ix := range b.indexes {
		indexes[n] = ix
	}
	b.indexes = indexes
	return b
}

// IndexKeys pages through the keys stored under value in the named index.
// See index.keys for the paging rules.
func (b Bucket) IndexKeys(db docseal.ReadOnlyKVStore, name string, value, after []byte, limit int) ([][]byte, []byte, error) {
	ix, ok := b.indexes[name]
	if !ok {
		return nil, nil, errors.Wrapf(ErrInvalidIndex, "%s has no index %q", b.name, name)
	}
	return ix.keys(db, value, after, limit)
}

// Page lists the models whose key starts with prefix, in key order and
// after the given key when one is set. Returned pairs carry the key
// without the bucket prefix. The cursor is the last key of a full page and
// nil once the prefix is exhausted. A limit of zero or less means all.
func (b Bucket) Page(db docseal.ReadOnlyKVStore, prefix, after []byte, limit int) ([]docseal.Model, []byte, error) {
	from := b.DBKey(prefix)
	to := prefixEnd(from)
	if after != nil {
		from = successor(b.DBKey(after))
	}
	it, err := db.Iterator(from, to)
	if err != nil {
		return nil, nil, errors.Wrap(err, "iterator")
	}
	defer it.Close()

	var page []docseal.Model
	for it.Valid() {
		if limit > 0 && len(page) == limit {
			return page, page[limit-1].Key, nil
		}
		page = append(page, docseal.Pair(it.Key()[len(b.prefix):], it.Value()))
		if err := it.Next(); err != nil {
			return nil, nil, errors.Wrap(err, "iterator")
		}
	}
	return page, nil, nil
}
