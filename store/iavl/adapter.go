package iavl

import (
	"sync"

	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/store"
	"github.com/tendermint/iavl"
	dbm "github.com/tendermint/tendermint/libs/db"
)

// DefaultCacheSize is the number of tree nodes kept in memory.
const DefaultCacheSize = 10000

// CommitStore manages an iavl committed state. The working tree is shared
// by every cache wrap: reads take a shared lock and the write back of a
// cache wrap is applied under an exclusive lock, so it is atomic.
type CommitStore struct {
	mu      sync.RWMutex
	db      dbm.DB
	tree    *iavl.MutableTree
	version int64
	hash    []byte
}

var (
	_ store.CommitKVStore = (*CommitStore)(nil)
	_ store.KVStore       = (*CommitStore)(nil)
)

// NewCommitStore creates a new store with disk backing. Call
// LoadLatestVersion before use.
func NewCommitStore(dir, name string) (*CommitStore, error) {
	db, err := dbm.NewGoLevelDB(name, dir)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrDatabase, "open %s/%s: %s", dir, name, err)
	}
	return newCommitStore(db), nil
}

// NewMemCommitStore creates a store backed by memory, useful for tests
// that want merkle hashes without touching the disk.
func NewMemCommitStore() *CommitStore {
	return newCommitStore(dbm.NewMemDB())
}

func newCommitStore(db dbm.DB) *CommitStore {
	return &CommitStore{
		db:   db,
		tree: iavl.NewMutableTree(db, DefaultCacheSize),
	}
}

// Get returns the value at the working state.
func (s *CommitStore) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, val := s.tree.Get(key)
	return val, nil
}

// Has checks the working state.
func (s *CommitStore) Has(key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Has(key), nil
}

// Set writes directly into the working tree.
func (s *CommitStore) Set(key, value []byte) error {
	return s.apply([]store.Op{store.SetOp(key, value)})
}

// Delete removes directly from the working tree.
func (s *CommitStore) Delete(key []byte) error {
	return s.apply([]store.Op{store.DelOp(key)})
}

// NewBatch returns a batch that is applied under a single lock.
func (s *CommitStore) NewBatch() store.Batch {
	return &batch{parent: s}
}

// CacheWrap gives us a savepoint to perform actions
func (s *CommitStore) CacheWrap() store.KVCacheWrap {
	return store.NewBTreeCacheWrap(s, s.NewBatch())
}

// Iterator returns a snapshot of the range in ascending order.
func (s *CommitStore) Iterator(start, end []byte) (store.Iterator, error) {
	return s.iterate(start, end, true), nil
}

// ReverseIterator returns a snapshot of the range in descending order.
func (s *CommitStore) ReverseIterator(start, end []byte) (store.Iterator, error) {
	return s.iterate(start, end, false), nil
}

func (s *CommitStore) iterate(start, end []byte, ascending bool) store.Iterator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []store.Model
	s.tree.IterateRange(start, end, ascending, func(key []byte, value []byte) bool {
		res = append(res, store.Pair(key, value))
		return false
	})
	return store.NewSliceIterator(res)
}

func (s *CommitStore) apply(ops []store.Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range ops {
		if err := op.Apply(treeWriter{s.tree}); err != nil {
			return err
		}
	}
	return nil
}

// Commit the next version to disk, and returns info
func (s *CommitStore) Commit() (store.CommitID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash, version, err := s.tree.SaveVersion()
	if err != nil {
		return store.CommitID{}, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	s.version, s.hash = version, hash
	return store.CommitID{Version: version, Hash: hash}, nil
}

// LoadLatestVersion loads the latest persisted version.
// If there was a crash during the last commit, it is guaranteed
// to return a stable state, even if older.
func (s *CommitStore) LoadLatestVersion() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	version, err := s.tree.Load()
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	s.version = version
	s.hash = s.tree.Hash()
	return nil
}

// LatestVersion returns info on the latest version saved to disk
func (s *CommitStore) LatestVersion() (store.CommitID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.CommitID{Version: s.version, Hash: s.hash}, nil
}

// Close releases the underlying database.
func (s *CommitStore) Close() {
	s.db.Close()
}

// treeWriter adapts the mutable tree to SetDeleter.
type treeWriter struct {
	tree *iavl.MutableTree
}

func (w treeWriter) Set(key, value []byte) error {
	w.tree.Set(key, value)
	return nil
}

func (w treeWriter) Delete(key []byte) error {
	w.tree.Remove(key)
	return nil
}

type batch struct {
	parent *CommitStore
	ops    []store.Op
}

func (b *batch) Set(key, value []byte) error {
	b.ops = append(b.ops, store.SetOp(key, value))
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.ops = append(b.ops, store.DelOp(key))
	return nil
}

func (b *batch) Write() error {
	ops := b.ops
	b.ops = nil
	return b.parent.apply(ops)
}
