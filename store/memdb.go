package store

import (
	"crypto/sha256"
	"sync"

	"github.com/google/btree"
)

// MemDB is an in memory CommitKVStore. It is safe for concurrent use,
// any number of cache wraps can read from it while others are being
// written back. Every Write of a cache wrap is applied atomically.
//
// The hash of a version chains the hash of the previous version with all
// operations written since, which is enough to detect diverging replicas
// in tests.
type MemDB struct {
	mu      sync.RWMutex
	tree    *btree.BTree
	pending []Op
	version int64
	hash    []byte
}

var (
	_ CommitKVStore = (*MemDB)(nil)
	_ KVStore       = (*MemDB)(nil)
)

// NewMemDB returns an empty store at version 0.
func NewMemDB() *MemDB {
	return &MemDB{
		tree: btree.New(8),
	}
}

// Get returns the value at the working state.
func (db *MemDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if res := db.tree.Get(entry{key: key}); res != nil {
		return res.(entry).value, nil
	}
	return nil, nil
}

// Has checks the working state.
func (db *MemDB) Has(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.tree.Has(entry{key: key}), nil
}

// Iterator returns a snapshot of the range in ascending order.
func (db *MemDB) Iterator(start, end []byte) (Iterator, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return NewSliceIterator(toModels(entriesInRange(db.tree, start, end))), nil
}

// ReverseIterator returns a snapshot of the range in descending order.
func (db *MemDB) ReverseIterator(start, end []byte) (Iterator, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return NewSliceIterator(toModels(reversed(entriesInRange(db.tree, start, end)))), nil
}

// Set writes directly to the working state.
func (db *MemDB) Set(key, value []byte) error {
	return db.apply([]Op{SetOp(key, value)})
}

// Delete removes directly from the working state.
func (db *MemDB) Delete(key []byte) error {
	return db.apply([]Op{DelOp(key)})
}

// NewBatch returns a batch that is applied under a single lock.
func (db *MemDB) NewBatch() Batch {
	return &memBatch{db: db}
}

// CacheWrap returns a btree scratch pad over this store.
func (db *MemDB) CacheWrap() KVCacheWrap {
	return NewBTreeCacheWrap(db, db.NewBatch())
}

func (db *MemDB) apply(ops []Op) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, op := range ops {
		// copy, the caller may reuse the slices
		key := append([]byte(nil), op.key...)
		if op.IsSetOp() {
			value := append([]byte(nil), op.value...)
			db.tree.ReplaceOrInsert(entry{key: key, value: value})
		} else {
			db.tree.Delete(entry{key: key})
		}
		db.pending = append(db.pending, op)
	}
	return nil
}

// Commit seals all writes since the last commit into a new version.
func (db *MemDB) Commit() (CommitID, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	h := sha256.New()
	h.Write(db.hash)
	for _, op := range db.pending {
		if op.delete {
			h.Write([]byte{0})
		} else {
			h.Write([]byte{1})
		}
		h.Write(op.key)
		h.Write(op.value)
	}
	db.hash = h.Sum(nil)
	db.pending = nil
	db.version++
	return CommitID{Version: db.version, Hash: db.hash}, nil
}

// LoadLatestVersion is a no-op, there is nothing persisted.
func (db *MemDB) LoadLatestVersion() error {
	return nil
}

// LatestVersion returns the last committed version.
func (db *MemDB) LatestVersion() (CommitID, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return CommitID{Version: db.version, Hash: db.hash}, nil
}

type memBatch struct {
	db  *MemDB
	ops []Op
}

func (b *memBatch) Set(key, value []byte) error {
	b.ops = append(b.ops, SetOp(key, value))
	return nil
}

func (b *memBatch) Delete(key []byte) error {
	b.ops = append(b.ops, DelOp(key))
	return nil
}

func (b *memBatch) Write() error {
	ops := b.ops
	b.ops = nil
	return b.db.apply(ops)
}

func toModels(es []entry) []Model {
	res := make([]Model, 0, len(es))
	for _, e := range es {
		res = append(res, Pair(e.key, e.value))
	}
	return res
}
