package pgblob

import (
	"context"
	"os"
	"testing"

	"github.com/iov-one/docseal/blob"
	"github.com/iov-one/docseal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore connects to the database given by DOCSEAL_TEST_DATABASE_URL or
// skips the test.
func testStore(t *testing.T) *Store {
	dsn := os.Getenv("DOCSEAL_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("DOCSEAL_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := NewStore(pool)
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestStore(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	content := []byte(t.Name())
	ref, err := s.Put(ctx, content)
	require.NoError(t, err)
	assert.Equal(t, blob.RefOf(content), ref)

	// Storing the same content again is a no-op.
	again, err := s.Put(ctx, content)
	require.NoError(t, err)
	assert.Equal(t, ref, again)

	got, err := s.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = s.Get(ctx, blob.RefOf([]byte("never stored")))
	assert.True(t, errors.ErrNotFound.Is(err), "%+v", err)
}

func TestConnectInvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), "postgres://%zz")
	assert.True(t, errors.ErrInput.Is(err), "%+v", err)
}
