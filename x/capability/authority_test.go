package capability

import (
	"encoding/binary"
	"testing"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/docsealtest"
	"github.com/iov-one/docseal/docsealtest/assert"
	"github.com/iov-one/docseal/errors"
	"github.com/iov-one/docseal/store"
)

// sequentialIDs makes capability ids predictable and ordered by issue time.
func sequentialIDs(t testing.TB) {
	t.Helper()
	var n uint64
	orig := newID
	newID = func() []byte {
		n++
		id := make([]byte, IDLength)
		binary.BigEndian.PutUint64(id[8:], n)
		return id
	}
	t.Cleanup(func() { newID = orig })
}

func TestIssueAndLoad(t *testing.T) {
	db := store.MemStore()
	alice := docsealtest.NewCondition().Address()
	bob := docsealtest.NewCondition().Address()
	doc := docsealtest.SequenceID(1)

	c, err := Issue(db, doc, alice, 1000)
	assert.Nil(t, err)
	assert.Equal(t, IDLength, len(c.ID))
	assert.Equal(t, true, Validate(c, doc))
	assert.Equal(t, false, Validate(c, docsealtest.SequenceID(2)))
	assert.Equal(t, false, Validate(nil, doc))

	got, err := Load(db, alice, c.ID)
	assert.Nil(t, err)
	assert.Equal(t, c, got)

	// Possession is bound to the holder key.
	_, err = Load(db, bob, c.ID)
	assert.IsErr(t, ErrCapabilityNotFound, err)
	_, err = Load(db, alice, []byte("short"))
	assert.IsErr(t, ErrCapabilityNotFound, err)
}

func TestIssueIsNeverIdempotent(t *testing.T) {
	db := store.MemStore()
	alice := docsealtest.NewCondition().Address()
	doc := docsealtest.SequenceID(1)

	c1, err := Issue(db, doc, alice, 1)
	assert.Nil(t, err)
	c2, err := Issue(db, doc, alice, 1)
	assert.Nil(t, err)
	if c1.String() == c2.String() {
		t.Fatalf("two capabilities share id %s", c1)
	}

	caps, cursor, err := List(db, alice, nil, 0)
	assert.Nil(t, err)
	assert.Equal(t, 2, len(caps))
	assert.Nil(t, cursor)
}

func TestIssueRejectsInvalidInput(t *testing.T) {
	db := store.MemStore()
	_, err := Issue(db, []byte("bad"), docsealtest.NewCondition().Address(), 1)
	assert.IsErr(t, errors.ErrInput, err)
	_, err = Issue(db, docsealtest.SequenceID(1), docseal.Address("short"), 1)
	assert.IsErr(t, errors.ErrInput, err)
}

func TestListPages(t *testing.T) {
	sequentialIDs(t)
	db := store.MemStore()
	alice := docsealtest.NewCondition().Address()
	bob := docsealtest.NewCondition().Address()

	for i := uint64(1); i <= 5; i++ {
		_, err := Issue(db, docsealtest.SequenceID(i), alice, 1)
		assert.Nil(t, err)
	}
	_, err := Issue(db, docsealtest.SequenceID(9), bob, 1)
	assert.Nil(t, err)

	var (
		docs  [][]byte
		after []byte
		pages int
	)
	for {
		caps, cursor, err := List(db, alice, after, 2)
		assert.Nil(t, err)
		pages++
		for _, c := range caps {
			docs = append(docs, c.DocumentID)
		}
		if cursor == nil {
			break
		}
		assert.Equal(t, IDLength, len(cursor))
		after = cursor
	}
	assert.Equal(t, 3, pages)
	want := [][]byte{
		docsealtest.SequenceID(1),
		docsealtest.SequenceID(2),
		docsealtest.SequenceID(3),
		docsealtest.SequenceID(4),
		docsealtest.SequenceID(5),
	}
	assert.Equal(t, want, docs)

	caps, cursor, err := List(db, docsealtest.NewCondition().Address(), nil, 2)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(caps))
	assert.Nil(t, cursor)
}

func TestFind(t *testing.T) {
	sequentialIDs(t)
	db := store.MemStore()
	alice := docsealtest.NewCondition().Address()

	var issued []*SignerCap
	for i := uint64(1); i <= 7; i++ {
		c, err := Issue(db, docsealtest.SequenceID(i%3), alice, 1)
		assert.Nil(t, err)
		issued = append(issued, c)
	}

	cases := map[string]struct {
		doc      []byte
		pageSize int
		wantID   []byte
		wantErr  *errors.Error
	}{
		"first page": {
			doc:      docsealtest.SequenceID(1),
			pageSize: 2,
			wantID:   issued[0].ID,
		},
		"later page, first match wins": {
			doc:      docsealtest.SequenceID(0),
			pageSize: 1,
			wantID:   issued[2].ID,
		},
		"unlimited page": {
			doc:      docsealtest.SequenceID(2),
			pageSize: 0,
			wantID:   issued[1].ID,
		},
		"exhausted": {
			doc:      docsealtest.SequenceID(42),
			pageSize: 3,
			wantErr:  ErrCapabilityNotFound,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			c, err := Find(db, alice, tc.doc, tc.pageSize)
			if tc.wantErr != nil {
				assert.IsErr(t, tc.wantErr, err)
				return
			}
			assert.Nil(t, err)
			assert.Equal(t, tc.wantID, c.ID)
		})
	}
}

func TestHeldFor(t *testing.T) {
	db := store.MemStore()
	alice := docsealtest.NewCondition().Address()

	held, err := HeldFor(db, alice, docsealtest.SequenceID(1))
	assert.Nil(t, err)
	assert.Equal(t, false, held)

	_, err = Issue(db, docsealtest.SequenceID(1), alice, 1)
	assert.Nil(t, err)

	held, err = HeldFor(db, alice, docsealtest.SequenceID(1))
	assert.Nil(t, err)
	assert.Equal(t, true, held)
}
