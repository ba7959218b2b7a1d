package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// ErrTxAttemptsExhausted is returned once a transaction has been retried the
// configured number of times and still hit a serialization conflict.
var ErrTxAttemptsExhausted = errors.New("transaction retry attempts exhausted")

// Transactor runs a function inside a serializable database transaction.
// Repositories stay transaction-agnostic: the function receives an
// SQLExecutor and passes it to whichever repository methods must share the
// transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(exec SQLExecutor) error) error
}

type sqlTransactor struct {
	db          *sql.DB
	maxAttempts int
	backoff     time.Duration
}

// NewSQLTransactor wraps db with a bounded-retry serializable transaction
// runner. Serialization failures and deadlocks are retried up to maxAttempts
// with linear backoff; anything else aborts immediately.
func NewSQLTransactor(db *sql.DB, maxAttempts int, backoff time.Duration) Transactor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &sqlTransactor{db: db, maxAttempts: maxAttempts, backoff: backoff}
}

func (t *sqlTransactor) WithinTx(ctx context.Context, fn func(exec SQLExecutor) error) error {
	var lastErr error

	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		lastErr = t.runOnce(ctx, fn)
		if lastErr == nil {
			return nil
		}
		if !isRetryableTxError(lastErr) {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.backoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("%w: %v", ErrTxAttemptsExhausted, lastErr)
}

func (t *sqlTransactor) runOnce(ctx context.Context, fn func(exec SQLExecutor) error) (err error) {
	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// isRetryableTxError reports whether err is a serialization failure (40001)
// or deadlock (40P01) that a fresh attempt can resolve.
func isRetryableTxError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}
