package orm

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/iov-one/docseal/docsealtest/assert"
	"github.com/iov-one/docseal/store"
)

func TestSequence(t *testing.T) {
	db := store.MemStore()

	cases := []struct {
		bucket     string
		name       string
		init       int64
		increments int64
	}{
		0: {"aaa", "id", 0, 22},
		1: {"aaa", "other", 0, 11},
		2: {"aaa", "id", 22, 18},
		3: {"bbb", "id", 0, 77},
		4: {"aaa", "other", 11, 248},
	}

	for i, tc := range cases {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			s := NewSequence(tc.bucket, tc.name)
			orig, err := s.Latest(db)
			assert.Nil(t, err)
			assert.Equal(t, tc.init, orig)

			var val int64
			for i := int64(0); i < tc.increments; i++ {
				val, err = s.NextInt(db)
				assert.Nil(t, err)
			}
			assert.Equal(t, tc.init+tc.increments, val)

			// Raw bytes order must follow the numeric order, so that
			// ids can be iterated over.
			next, err := s.NextVal(db)
			assert.Nil(t, err)
			if bytes.Compare(next, EncodeSequence(val)) != 1 {
				t.Fatalf("%X is not greater than %d", next, val)
			}
			assert.Equal(t, val+1, DecodeSequence(next))
		})
	}
}

func TestValidateSequence(t *testing.T) {
	assert.Nil(t, ValidateSequence(EncodeSequence(1)))
	if ValidateSequence(nil) == nil {
		t.Fatal("empty sequence must be rejected")
	}
	if ValidateSequence([]byte{1, 2}) == nil {
		t.Fatal("short sequence must be rejected")
	}
}
