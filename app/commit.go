package app

import (
	"sync"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
)

// CommitStore is the ledger's view of a versioned store. Every operation
// runs on its own cache wrap and Commit seals what was written into a new
// version.
type CommitStore struct {
	db docseal.CommitKVStore
	// guards Commit only. A cache wrap written during a commit lands in
	// the following version.
	mu sync.Mutex
}

func NewCommitStore(db docseal.CommitKVStore) (*CommitStore, error) {
	if err := db.LoadLatestVersion(); err != nil {
		return nil, errors.Wrap(err, "load latest version")
	}
	return &CommitStore{db: db}, nil
}

// CommitInfo is the version and root hash of the last commit.
func (cs *CommitStore) CommitInfo() (docseal.CommitID, error) {
	return cs.db.LatestVersion()
}

func (cs *CommitStore) Commit() (docseal.CommitID, error) {
	cs.mu.Lock()
	id, err := cs.db.Commit()
	cs.mu.Unlock()
	return id, errors.Wrap(err, "commit")
}

func (cs *CommitStore) CacheWrap() docseal.KVCacheWrap {
	return cs.db.CacheWrap()
}

// Keys with the _ds: prefix belong to the ledger itself.
var chainIDKey = []byte("_ds:chainID")

// loadChainID returns an empty string before genesis.
func loadChainID(kv docseal.ReadOnlyKVStore) (string, error) {
	raw, err := kv.Get(chainIDKey)
	if err != nil {
		return "", errors.Wrap(err, "load chain id")
	}
	return string(raw), nil
}

// saveChainID is called once, at genesis.
func saveChainID(kv docseal.KVStore, chainID string) error {
	if !docseal.IsValidChainID(chainID) {
		return errors.Wrapf(errors.ErrInput, "chain id %q", chainID)
	}
	switch set, err := kv.Has(chainIDKey); {
	case err != nil:
		return errors.Wrap(err, "load chain id")
	case set:
		return errors.Wrap(errors.ErrImmutable, "chain id is set at genesis only")
	}
	return errors.Wrap(kv.Set(chainIDKey, []byte(chainID)), "save chain id")
}
