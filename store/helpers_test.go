package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSliceIterator makes sure the basic slice iterator works.
func TestSliceIterator(t *testing.T) {
	const size = 10

	ks := randKeys(size, 8)
	vs := randKeys(size, 40)

	models := make([]Model, size)
	for i := 0; i < size; i++ {
		models[i].Key = ks[i]
		models[i].Value = vs[i]
	}

	i := 0
	for it := NewSliceIterator(models); it.Valid(); require.NoError(t, it.Next()) {
		if i >= size {
			t.Fatalf("iterator step greater than the size: %d >= %d", i, size)
		}
		assert.Equal(t, ks[i], it.Key())
		assert.Equal(t, vs[i], it.Value())
		i++
	}
	assert.Equal(t, size, i)

	it := NewSliceIterator(models)
	if !it.Valid() {
		t.Fatal("iterator expected to be valid")
	}
	it.Close()
	if it.Valid() {
		t.Fatal("closed iterator must be invalid")
	}
	assert.Panics(t, func() { _ = it.Next() })
}

func TestNonAtomicBatch(t *testing.T) {
	db := NewMemDB()
	b := NewNonAtomicBatch(db)
	require.NoError(t, b.Set([]byte("one"), []byte("1")))
	require.NoError(t, b.Set([]byte("two"), []byte("2")))
	require.NoError(t, b.Delete([]byte("one")))

	assert.Equal(t, 3, b.Len())
	assert.True(t, SetOp([]byte("one"), nil).IsSetOp())
	assert.False(t, DelOp([]byte("one")).IsSetOp())
	assert.Equal(t, []byte("one"), DelOp([]byte("one")).Key())

	// nothing is visible before write
	assert.Nil(t, mustGet(t, db, []byte("two")))

	require.NoError(t, b.Write())
	assert.Nil(t, mustGet(t, db, []byte("one")))
	assert.Equal(t, []byte("2"), mustGet(t, db, []byte("two")))
	assert.Equal(t, 0, b.Len())
}
