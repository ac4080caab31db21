package store

import (
	"bytes"

	"github.com/google/btree"
)

// BTreeCacheable gives any KVStore a cache wrap backed by a btree.
type BTreeCacheable struct {
	KVStore
}

var _ CacheableKVStore = BTreeCacheable{}

func (b BTreeCacheable) CacheWrap() KVCacheWrap {
	return NewBTreeCacheWrap(b.KVStore, b.NewBatch())
}

// MemStore returns a cache wrap over nothing. Nothing outlives the value,
// which makes it handy in tests.
func MemStore() CacheableKVStore {
	var empty EmptyKVStore
	return NewBTreeCacheWrap(empty, empty.NewBatch())
}

// BTreeCacheWrap keeps uncommitted writes in a btree, in front of a read
// only view of the parent store. Every write is also queued on the batch,
// which Write flushes to the parent.
//
// Deletes are kept as tombstones so that a key removed here hides the
// parent's value.
type BTreeCacheWrap struct {
	tree   *btree.BTree
	parent ReadOnlyKVStore
	batch  Batch
}

var _ KVCacheWrap = BTreeCacheWrap{}

// cacheDegree is small, cache wraps live for a single transaction.
const cacheDegree = 4

func NewBTreeCacheWrap(parent ReadOnlyKVStore, batch Batch) BTreeCacheWrap {
	return BTreeCacheWrap{
		tree:   btree.New(cacheDegree),
		parent: parent,
		batch:  batch,
	}
}

// CacheWrap stacks another cache on top. Writing it back only touches this
// cache, never the parent below.
func (c BTreeCacheWrap) CacheWrap() KVCacheWrap {
	return NewBTreeCacheWrap(c, c.NewBatch())
}

func (c BTreeCacheWrap) NewBatch() Batch {
	return NewNonAtomicBatch(c)
}

// Write flushes the batch to the parent and empties the cache.
func (c BTreeCacheWrap) Write() error {
	err := c.batch.Write()
	c.Discard()
	return err
}

// Discard drops every cached write. The batch is left untouched.
func (c BTreeCacheWrap) Discard() {
	c.tree.Clear(false)
}

func (c BTreeCacheWrap) Set(key, value []byte) error {
	c.tree.ReplaceOrInsert(entry{key: key, value: value})
	return c.batch.Set(key, value)
}

func (c BTreeCacheWrap) Delete(key []byte) error {
	c.tree.ReplaceOrInsert(entry{key: key, deleted: true})
	return c.batch.Delete(key)
}

func (c BTreeCacheWrap) Get(key []byte) ([]byte, error) {
	if e, ok := c.lookup(key); ok {
		if e.deleted {
			return nil, nil
		}
		return e.value, nil
	}
	return c.parent.Get(key)
}

func (c BTreeCacheWrap) Has(key []byte) (bool, error) {
	if e, ok := c.lookup(key); ok {
		return !e.deleted, nil
	}
	return c.parent.Has(key)
}

func (c BTreeCacheWrap) lookup(key []byte) (entry, bool) {
	item := c.tree.Get(entry{key: key})
	if item == nil {
		return entry{}, false
	}
	return item.(entry), true
}

// Iterator merges the cached range with the parent range, ascending.
func (c BTreeCacheWrap) Iterator(start, end []byte) (Iterator, error) {
	under, err := c.parent.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	return newMergeIter(entriesInRange(c.tree, start, end), under, true)
}

// ReverseIterator merges the cached range with the parent range, descending.
func (c BTreeCacheWrap) ReverseIterator(start, end []byte) (Iterator, error) {
	under, err := c.parent.ReverseIterator(start, end)
	if err != nil {
		return nil, err
	}
	return newMergeIter(reversed(entriesInRange(c.tree, start, end)), under, false)
}

// entry is the only item type stored in the btrees of this package.
type entry struct {
	key     []byte
	value   []byte
	deleted bool
}

func (e entry) Less(than btree.Item) bool {
	return bytes.Compare(e.key, than.(entry).key) < 0
}
