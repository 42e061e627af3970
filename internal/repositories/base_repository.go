package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"starview/internal/database"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// BaseRepository provides common database operations shared by the
// concrete repositories.
type BaseRepository struct {
	db     *database.Manager
	logger *zap.Logger
}

// NewBaseRepository creates a new base repository.
func NewBaseRepository(db *database.Manager, logger *zap.Logger) *BaseRepository {
	return &BaseRepository{
		db:     db,
		logger: logger,
	}
}

// ExecContext executes a statement through the managed connection.
func (r *BaseRepository) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return r.db.ExecContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (r *BaseRepository) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a query that returns a single row.
func (r *BaseRepository) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return r.db.QueryRowContext(ctx, query, args...)
}

// BeginTx starts a new transaction.
func (r *BaseRepository) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, opts)
}

// WithTransaction executes fn inside a transaction, rolling back on
// error or panic.
func (r *BaseRepository) WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("Failed to rollback transaction",
				zap.Error(rbErr),
				zap.NamedError("cause", err),
			)
		}
		return err
	}

	return tx.Commit()
}

// IsNotFound reports whether err is a "no rows" error.
func (r *BaseRepository) IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation, optionally restricted to a named constraint.
func (r *BaseRepository) IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// GetDB returns the underlying database manager.
func (r *BaseRepository) GetDB() *database.Manager {
	return r.db
}

// GetLogger returns the repository logger.
func (r *BaseRepository) GetLogger() *zap.Logger {
	return r.logger
}
