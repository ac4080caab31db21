package docsealtest

import (
	"testing"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/store/iavl"
)

// CommitKVStore opens the on disk store docseald runs on, in a directory
// removed when the test ends. Use store.NewMemDB unless the test depends
// on iavl behaviour.
func CommitKVStore(t testing.TB) docseal.CommitKVStore {
	t.Helper()
	db, err := iavl.NewCommitStore(t.TempDir(), "ledger")
	if err != nil {
		t.Fatalf("open iavl store: %s", err)
	}
	t.Cleanup(db.Close)
	return db
}
