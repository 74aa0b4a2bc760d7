// Package postgres implements the merge engine's transactional Store on
// PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quartzdata/ordermart/pkg/mart"
)

// mergeRunLockID keys the advisory lock that serializes whole-pipeline runs
// against one database. It must stay stable across releases.
const mergeRunLockID int64 = 0x6f726465726d7274 // "ordermrt"

type Config struct {
	Logger *slog.Logger
	Pool   *pgxpool.Pool
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Pool == nil {
		return errors.New("pool is required")
	}
	return nil
}

type Store struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		log:  cfg.Logger,
		pool: cfg.Pool,
	}, nil
}

var _ mart.Store = (*Store)(nil)

// WithTx runs fn inside a single database transaction. The merge engine is
// single-writer: a transaction-scoped advisory lock serializes concurrent
// runs against the same database and releases on commit or rollback.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx mart.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", mergeRunLockID); err != nil {
		return fmt.Errorf("failed to acquire merge run lock: %w", err)
	}
	s.log.Debug("merge run lock acquired")

	if err := fn(ctx, &Tx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
