package docseal

// ReadOnlyKVStore is what queries and validation get. A missing key reads
// as a nil value.
type ReadOnlyKVStore interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)

	// Iterator walks [start, end) in ascending key order. A nil bound is
	// open. The range must not be written while the iterator is open.
	Iterator(start, end []byte) (Iterator, error)

	// ReverseIterator walks [start, end) in descending key order.
	ReverseIterator(start, end []byte) (Iterator, error)
}

// SetDeleter is shared by stores and batches.
type SetDeleter interface {
	Set(key, value []byte) error
	Delete(key []byte) error
}

// KVStore is the store handlers write to.
type KVStore interface {
	ReadOnlyKVStore
	SetDeleter
	NewBatch() Batch
}

// Batch queues writes until Write applies them.
type Batch interface {
	SetDeleter
	Write() error
}

// Iterator is a cursor over a key range:
//
//	it, err := db.Iterator(start, end)
//	...
//	defer it.Close()
//	for ; it.Valid(); it.Next() {
//		use(it.Key(), it.Value())
//	}
//
// Next, Key and Value panic once Valid is false. Returned slices must not
// be modified.
type Iterator interface {
	Valid() bool
	Next() error
	Key() []byte
	Value() []byte
	Close()
}

// CacheableKVStore can open a scratch pad on top of itself.
type CacheableKVStore interface {
	KVStore
	CacheWrap() KVCacheWrap
}

// KVCacheWrap holds writes visible to its own reads only. Write pushes
// them to the store below, Discard drops them. Every transaction runs in
// one, so a failed transaction leaves no trace.
type KVCacheWrap interface {
	CacheableKVStore
	Write() error
	Discard()
}

// CommitKVStore is the root store of the ledger. Implementations are safe
// for concurrent use, cache wraps are read and written back in parallel.
type CommitKVStore interface {
	Get(key []byte) ([]byte, error)

	// CacheWrap returns a scratch pad whose Write is applied atomically.
	CacheWrap() KVCacheWrap

	// Commit seals the working state as a new version.
	Commit() (CommitID, error)

	// LoadLatestVersion restores the last committed version. After a
	// crash during a commit it returns an older but consistent state.
	LoadLatestVersion() error

	LatestVersion() (CommitID, error)
}

// CommitID identifies a committed version by its number and root hash.
type CommitID struct {
	Version int64
	Hash    []byte
}

// Model is a key value pair.
type Model struct {
	Key   []byte
	Value []byte
}

func Pair(key, value []byte) Model {
	return Model{Key: key, Value: value}
}
