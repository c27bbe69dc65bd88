package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const defaultSQLTimeout = 5 * time.Second

// SQLStore keeps blobs in the kv_store table, namespaced by owner so several
// shoppers can share one database
type SQLStore struct {
	db      *sql.DB
	owner   string
	timeout time.Duration
}

// NewSQLStore creates a SQLStore for one owner
func NewSQLStore(db *sql.DB, owner string) *SQLStore {
	return &SQLStore{db: db, owner: owner, timeout: defaultSQLTimeout}
}

// Ensure SQLStore implements Store
var _ Store = (*SQLStore)(nil)

// Load selects the blob for key
func (s *SQLStore) Load(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_store WHERE owner = $1 AND key = $2`,
		s.owner, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return value, nil
}

// Save upserts the blob for key
func (s *SQLStore) Save(key string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_store (owner, key, value, updated_at) VALUES ($1, $2, $3, NOW())
		ON CONFLICT (owner, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, s.owner, key, data)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// Delete removes the blob for key
func (s *SQLStore) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_store WHERE owner = $1 AND key = $2`,
		s.owner, key,
	); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
