// Package store is the domain store (C1): transactional access to
// scenarios, scenes, personas, progress, scene-progress, and the
// conversation log.
package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Store wraps the shared connection pool. Every method either opens its own
// transaction or runs inside one supplied by WithTx, mirroring the
// teacher's tx := client.Tx(ctx); defer tx.Rollback() idiom.
type Store struct {
	db *sql.DB
}

// New builds a Store over a connection pool.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying connection pool, for callers (health checks)
// that need to operate outside the Store's own query methods.
func (s *Store) DB() *sql.DB {
	return s.db
}

// querier is satisfied by both *sql.DB and *sql.Tx, so read helpers can run
// against either depending on whether they're called standalone or from
// inside WithTx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// WithTx runs fn inside a new transaction, committing on success and
// rolling back on any returned error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(tx)
	return err
}
