package store

import (
	"bytes"

	"github.com/google/btree"
)

// entriesInRange copies the [start, end) range out of the tree. A nil bound
// is open. Copying lets the cache change while an iterator is in use.
func entriesInRange(tree *btree.BTree, start, end []byte) []entry {
	var res []entry
	collect := func(item btree.Item) bool {
		res = append(res, item.(entry))
		return true
	}
	switch {
	case start == nil && end == nil:
		tree.Ascend(collect)
	case start == nil:
		tree.AscendLessThan(entry{key: end}, collect)
	case end == nil:
		tree.AscendGreaterOrEqual(entry{key: start}, collect)
	default:
		tree.AscendRange(entry{key: start}, entry{key: end}, collect)
	}
	return res
}

func reversed(es []entry) []entry {
	for i, j := 0, len(es)-1; i < j; i, j = i+1, j-1 {
		es[i], es[j] = es[j], es[i]
	}
	return es
}

// mergeIter walks cached entries and a parent iterator side by side. On
// equal keys the cached entry wins, and a tombstone hides both.
type mergeIter struct {
	cached    []entry
	pos       int
	parent    Iterator
	ascending bool
}

var _ Iterator = (*mergeIter)(nil)

// head tells which side holds the current key.
type head int

const (
	headNone head = iota
	headCached
	headParent
	headBoth
)

func newMergeIter(cached []entry, parent Iterator, ascending bool) (*mergeIter, error) {
	it := &mergeIter{cached: cached, parent: parent, ascending: ascending}
	if err := it.skipTombstones(); err != nil {
		it.Close()
		return nil, err
	}
	return it, nil
}

func (it *mergeIter) Valid() bool {
	return it.head() != headNone
}

// Next panics when the iterator is exhausted.
func (it *mergeIter) Next() error {
	switch it.head() {
	case headCached:
		it.pos++
	case headParent:
		if err := it.parent.Next(); err != nil {
			return err
		}
	case headBoth:
		it.pos++
		if err := it.parent.Next(); err != nil {
			return err
		}
	default:
		panic("iterator exhausted")
	}
	return it.skipTombstones()
}

func (it *mergeIter) Key() []byte {
	switch it.head() {
	case headCached, headBoth:
		return it.cached[it.pos].key
	case headParent:
		return it.parent.Key()
	default:
		panic("iterator exhausted")
	}
}

func (it *mergeIter) Value() []byte {
	switch it.head() {
	case headCached, headBoth:
		return it.cached[it.pos].value
	case headParent:
		return it.parent.Value()
	default:
		panic("iterator exhausted")
	}
}

func (it *mergeIter) Close() {
	if it.parent != nil {
		it.parent.Close()
	}
	it.cached = nil
}

// skipTombstones moves past deleted cached entries together with the
// parent keys they hide.
func (it *mergeIter) skipTombstones() error {
	for {
		h := it.head()
		if h != headCached && h != headBoth {
			return nil
		}
		if !it.cached[it.pos].deleted {
			return nil
		}
		it.pos++
		if h == headBoth {
			if err := it.parent.Next(); err != nil {
				return err
			}
		}
	}
}

func (it *mergeIter) head() head {
	cached := it.pos < len(it.cached)
	parent := it.parent != nil && it.parent.Valid()
	switch {
	case !cached && !parent:
		return headNone
	case !parent:
		return headCached
	case !cached:
		return headParent
	}
	cmp := bytes.Compare(it.cached[it.pos].key, it.parent.Key())
	if !it.ascending {
		cmp = -cmp
	}
	switch {
	case cmp < 0:
		return headCached
	case cmp > 0:
		return headParent
	default:
		return headBoth
	}
}
