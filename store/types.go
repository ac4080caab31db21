package store

import "github.com/iov-one/docseal"

// Move references for all storage types into this package
// for shorter names everywhere

type (
	ReadOnlyKVStore  = docseal.ReadOnlyKVStore
	SetDeleter       = docseal.SetDeleter
	KVStore          = docseal.KVStore
	Batch            = docseal.Batch
	Iterator         = docseal.Iterator
	CacheableKVStore = docseal.CacheableKVStore
	KVCacheWrap      = docseal.KVCacheWrap
	CommitKVStore    = docseal.CommitKVStore
	CommitID         = docseal.CommitID
	Model            = docseal.Model
)

// Pair constructs a model from a key-value pair
var Pair = docseal.Pair
