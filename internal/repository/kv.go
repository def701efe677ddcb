package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"landfilter/internal/model"
	"landfilter/internal/storage"
)

// KVRepository stores filter state snapshots by key. Queries are written
// with ? placeholders and rebound for the driver in use.
type KVRepository struct {
	name string
	db   *sqlx.DB
}

var _ storage.Backend = (*KVRepository)(nil)

func newKVRepository(name string, db *sqlx.DB, schema string) (*KVRepository, error) {
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create %s schema: %w", name, err)
	}
	return &KVRepository{name: name, db: db}, nil
}

// Name returns the backend name used in logs and metrics
func (r *KVRepository) Name() string {
	return r.name
}

// Close closes the database connection
func (r *KVRepository) Close() error {
	return r.db.Close()
}

// Save upserts state under key
func (r *KVRepository) Save(ctx context.Context, key string, state model.FilterState) error {
	if state == nil {
		state = model.FilterState{}
	}
	query := r.db.Rebind(`
		INSERT INTO filter_state (state_key, state, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (state_key) DO UPDATE
		SET state = excluded.state, updated_at = excluded.updated_at
	`)
	if _, err := r.db.ExecContext(ctx, query, key, state); err != nil {
		return fmt.Errorf("failed to save filter state: %w", err)
	}
	return nil
}

// Load returns the state saved under key, or storage.ErrNotFound
func (r *KVRepository) Load(ctx context.Context, key string) (model.FilterState, error) {
	var state model.FilterState
	query := r.db.Rebind(`SELECT state FROM filter_state WHERE state_key = ?`)
	err := r.db.GetContext(ctx, &state, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load filter state: %w", err)
	}
	return state, nil
}

