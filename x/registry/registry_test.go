package registry

import (
	"sync"
	"testing"

	"github.com/iov-one/docseal/docsealtest"
	"github.com/iov-one/docseal/docsealtest/assert"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/store"
)

func TestLookupUnknownAddress(t *testing.T) {
	db := store.MemStore()
	addr := docsealtest.NewCondition().Address()

	ids, err := LookupCreated(db, addr)
	assert.Nil(t, err)
	assert.Equal(t, [][]byte{}, ids)

	ids, err = LookupAssigned(db, addr)
	assert.Nil(t, err)
	assert.Equal(t, [][]byte{}, ids)

	total, err := TotalDocuments(db)
	assert.Nil(t, err)
	assert.Equal(t, int64(0), total)
}

func TestRecordIsIdempotent(t *testing.T) {
	db := store.MemStore()
	alice := docsealtest.NewCondition().Address()
	bob := docsealtest.NewCondition().Address()

	assert.Nil(t, RecordCreation(db, alice, docsealtest.SequenceID(2)))
	assert.Nil(t, RecordCreation(db, alice, docsealtest.SequenceID(1)))
	assert.Nil(t, RecordCreation(db, alice, docsealtest.SequenceID(2)))

	for i := 0; i < 3; i++ {
		assert.Nil(t, RecordAssignment(db, bob, docsealtest.SequenceID(1)))
	}

	ids, err := LookupCreated(db, alice)
	assert.Nil(t, err)
	assert.Equal(t, [][]byte{docsealtest.SequenceID(1), docsealtest.SequenceID(2)}, ids)

	ids, err = LookupAssigned(db, bob)
	assert.Nil(t, err)
	assert.Equal(t, [][]byte{docsealtest.SequenceID(1)}, ids)

	// The two sets are independent.
	ids, err = LookupAssigned(db, alice)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(ids))
}

func TestRecordValidatesInput(t *testing.T) {
	cases := map[string]struct {
		addr    []byte
		id      []byte
		wantErr *errors.Error
	}{
		"short address": {
			addr:    []byte("foo"),
			id:      docsealtest.SequenceID(1),
			wantErr: errors.ErrInput,
		},
		"missing id": {
			addr:    docsealtest.NewCondition().Address(),
			wantErr: errors.ErrEmpty,
		},
		"not a sequence": {
			addr:    docsealtest.NewCondition().Address(),
			id:      []byte("abc"),
			wantErr: errors.ErrInput,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			assert.IsErr(t, tc.wantErr, RecordCreation(db, tc.addr, tc.id))
			assert.IsErr(t, tc.wantErr, RecordAssignment(db, tc.addr, tc.id))
		})
	}
}

func TestDocumentIDs(t *testing.T) {
	db := store.MemStore()
	for i := uint64(1); i <= 3; i++ {
		id, err := NextDocumentID(db)
		assert.Nil(t, err)
		assert.Equal(t, docsealtest.SequenceID(i), id)
	}
	total, err := TotalDocuments(db)
	assert.Nil(t, err)
	assert.Equal(t, int64(3), total)
}

func TestConcurrentAssignmentsUnderLock(t *testing.T) {
	// Updates of the same address are serialized by the caller, the way
	// the ledger locks contention keys. No entry may be lost.
	db := store.MemStore()
	addr := docsealtest.NewCondition().Address()
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := uint64(1); i <= 20; i++ {
		wg.Add(1)
		go func(id []byte) {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			if err := RecordAssignment(db, addr, id); err != nil {
				t.Error(err)
			}
		}(docsealtest.SequenceID(i))
	}
	wg.Wait()

	ids, err := LookupAssigned(db, addr)
	assert.Nil(t, err)
	assert.Equal(t, 20, len(ids))
}

func TestContentionKeys(t *testing.T) {
	alice := docsealtest.NewCondition().Address()
	bob := docsealtest.NewCondition().Address()
	keys := ContentionKeys(alice, bob)
	assert.Equal(t, 2, len(keys))
	assert.Equal(t, append([]byte("created:"), alice...), keys[0])
	assert.Equal(t, append([]byte("assigned:"), bob...), keys[1])
}
