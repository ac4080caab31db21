// Package pgblob implements a blob.Store on top of Postgres.
package pgblob

import (
	"context"
	"errors"
	"time"

	"github.com/iov-one/docseal/blob"
	derrors "github.com/iov-one/docseal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS blobs (
  ref        TEXT PRIMARY KEY,
  data       BYTEA NOT NULL,
  size       INTEGER NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Connect opens a connection pool to given database.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, derrors.Wrapf(derrors.ErrInput, "database url: %s", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, derrors.Wrap(derrors.ErrStorage, err.Error())
	}
	return pool, nil
}

// Store keeps blobs in the blobs table.
type Store struct {
	DB *pgxpool.Pool
}

var _ blob.Store = (*Store)(nil)

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// Migrate creates the blobs table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.DB.Exec(ctx, schema); err != nil {
		return derrors.Wrapf(derrors.ErrStorage, "migrate: %s", err)
	}
	return nil
}

func (s *Store) Put(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", derrors.Wrap(derrors.ErrEmpty, "blob")
	}
	ref := blob.RefOf(data)
	_, err := s.DB.Exec(ctx, `
INSERT INTO blobs(ref, data, size)
VALUES($1, $2, $3)
ON CONFLICT (ref) DO NOTHING
`, ref, data, len(data))
	if err != nil {
		return "", derrors.Wrapf(derrors.ErrStorage, "insert blob: %s", err)
	}
	return ref, nil
}

func (s *Store) Get(ctx context.Context, ref string) ([]byte, error) {
	if err := blob.ValidateRef(ref); err != nil {
		return nil, err
	}
	var data []byte
	err := s.DB.QueryRow(ctx, `
SELECT data
FROM blobs
WHERE ref=$1
`, ref).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, derrors.Wrapf(derrors.ErrNotFound, "blob %s", ref)
		}
		return nil, derrors.Wrapf(derrors.ErrStorage, "select blob: %s", err)
	}
	if err := blob.Verify(ref, data); err != nil {
		return nil, err
	}
	return data, nil
}
