package orm

import (
	"bytes"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
)

const (
	idxPrefix = "_x."
	// Chunk lengths go up to 0xFE. 0xFF closes the range of a lookup.
	maxChunk   = 0xFE
	rangeGuard = 0xFF
)

// index keeps one empty store entry per (value, entity key) pair, keyed by
// packNativeIdxKey(name, value, key). Entries of one value are contiguous
// and sorted by entity key.
type index struct {
	name    string
	indexer MultiKeyIndexer
	unique  bool
}

func newIndex(name string, indexer MultiKeyIndexer, unique bool) *index {
	return &index{name: name, indexer: indexer, unique: unique}
}

// update moves the entries of key from the values of prev to the values of
// next. A nil prev is an insert and a nil next a delete.
func (ix *index) update(db docseal.KVStore, key []byte, prev, next Model) error {
	if prev == nil && next == nil {
		return errors.Wrap(errors.ErrHuman, "index update without a model")
	}
	if prev != nil {
		old, err := ix.values(prev)
		if err != nil {
			return err
		}
		for _, v := range old {
			if err := ix.write(db, v, key, false); err != nil {
				return err
			}
		}
	}
	if next == nil {
		return nil
	}
	values, err := ix.values(next)
	if err != nil {
		return err
	}
	for _, v := range values {
		if ix.unique {
			if err := ix.assertUnique(db, v, key); err != nil {
				return err
			}
		}
		if err := ix.write(db, v, key, true); err != nil {
			return err
		}
	}
	return nil
}

func (ix *index) write(db docseal.KVStore, value, key []byte, set bool) error {
	k, err := packNativeIdxKey([][]byte{[]byte(ix.name), value, key})
	if err != nil {
		return errors.Wrapf(err, "index %q", ix.name)
	}
	if set {
		err = db.Set(k, []byte{})
	} else {
		err = db.Delete(k)
	}
	return errors.Wrapf(err, "index %q", ix.name)
}

// values returns the distinct values m is indexed under.
func (ix *index) values(m Model) ([][]byte, error) {
	all, err := ix.indexer(m)
	if err != nil {
		return nil, errors.Wrapf(err, "index %q", ix.name)
	}
	distinct := all[:0:0]
outer:
	for _, v := range all {
		for _, seen := range distinct {
			if bytes.Equal(seen, v) {
				continue outer
			}
		}
		distinct = append(distinct, v)
	}
	return distinct, nil
}

func (ix *index) assertUnique(db docseal.ReadOnlyKVStore, value, key []byte) error {
	// Two are enough to tell whether anyone but key holds the value.
	holders, _, err := ix.keys(db, value, nil, 2)
	if err != nil {
		return err
	}
	for _, h := range holders {
		if !bytes.Equal(h, key) {
			return errors.Wrapf(errors.ErrDuplicate, "index %q value %X", ix.name, value)
		}
	}
	return nil
}

// keys pages through the entity keys indexed under value. Paging starts
// after the given key, or at the first entry when after is nil. The cursor
// of the next page is returned, nil once the last entry was read. A limit
// of zero or less means no limit.
func (ix *index) keys(db docseal.ReadOnlyKVStore, value, after []byte, limit int) ([][]byte, []byte, error) {
	prefix, err := packNativeIdxKey([][]byte{[]byte(ix.name), value})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "index %q", ix.name)
	}
	start := prefix
	if after != nil {
		cursor, err := packNativeIdxKey([][]byte{[]byte(ix.name), value, after})
		if err != nil {
			return nil, nil, errors.Wrapf(err, "index %q", ix.name)
		}
		start = successor(cursor)
	}
	end := append(append([]byte(nil), prefix...), rangeGuard)

	it, err := db.Iterator(start, end)
	if err != nil {
		return nil, nil, errors.Wrap(err, "iterator")
	}
	defer it.Close()

	var page [][]byte
	for ; it.Valid(); err = it.Next() {
		if err != nil {
			return nil, nil, errors.Wrap(err, "iterator")
		}
		if limit > 0 && len(page) == limit {
			return page, page[limit-1], nil
		}
		chunks, err := unpackNativeIdxKey(it.Key())
		if err != nil {
			return nil, nil, err
		}
		page = append(page, chunks[len(chunks)-1])
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "iterator")
	}
	return page, nil, nil
}

// packNativeIdxKey joins chunks behind the index prefix, each preceded by
// its one byte length. "ab", "" and "c" become
//
//	_x.\x02ab\x00\x01c
func packNativeIdxKey(chunks [][]byte) ([]byte, error) {
	n := len(idxPrefix)
	for _, c := range chunks {
		if len(c) > maxChunk {
			return nil, errors.Wrapf(errors.ErrInput, "index chunk of %d bytes, max %d", len(c), maxChunk)
		}
		n += 1 + len(c)
	}
	key := make([]byte, 0, n)
	key = append(key, idxPrefix...)
	for _, c := range chunks {
		key = append(key, byte(len(c)))
		key = append(key, c...)
	}
	return key, nil
}

func unpackNativeIdxKey(key []byte) ([][]byte, error) {
	rest := bytes.TrimPrefix(key, []byte(idxPrefix))
	if len(rest) == len(key) {
		return nil, errors.Wrap(errors.ErrInput, "missing index prefix")
	}
	var chunks [][]byte
	for len(rest) > 0 {
		n := int(rest[0]) + 1
		if n > len(rest) {
			return nil, errors.Wrap(errors.ErrInput, "truncated index key")
		}
		chunks = append(chunks, rest[1:n])
		rest = rest[n:]
	}
	return chunks, nil
}
