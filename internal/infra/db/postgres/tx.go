package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/sethvargo/go-retry"

	"learnhub-checkout/internal/domain"
	"learnhub-checkout/internal/domain/ports/repository"
)

var _ repository.TransactionManager = (*TxManager)(nil)

// querier is what pgx.Tx, *pgxpool.Conn and *pgxpool.Pool have in common.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// TxManager runs callbacks in a pgx transaction. A callback that loses a
// serialization race (SQLSTATE 40001 or 40P01) is rerun in a fresh
// transaction, up to maxAttempts times.
type TxManager struct {
	pool        *pgxpool.Pool
	maxAttempts uint64
	backoff     time.Duration
}

func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool, maxAttempts: 3, backoff: 20 * time.Millisecond}
}

func (m *TxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	b := retry.WithMaxRetries(m.maxAttempts-1, retry.NewExponential(m.backoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := m.once(ctx, txOpt, fn)
		if isSerializationFailure(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (m *TxManager) once(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx, err := m.pool.BeginTx(ctx, txOpt)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// getExecutor resolves tx to something that can run SQL. A nil tx means
// "no transaction" and uses the pool.
func getExecutor(pool *pgxpool.Pool, tx repository.Tx) (querier, error) {
	switch v := tx.(type) {
	case nil:
		if pool == nil {
			return nil, domain.ErrInvalidArgument
		}
		return pool, nil
	case pgx.Tx:
		return v, nil
	case *pgxpool.Conn:
		return v, nil
	case *pgxpool.Pool:
		return v, nil
	}
	return nil, domain.ErrInvalidExecContext
}

func execSQL(ctx context.Context, pool *pgxpool.Pool, tx repository.Tx, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	q, err := getExecutor(pool, tx)
	if err != nil {
		return nil, err
	}
	return q.Exec(ctx, sql, args...)
}

func pickRow(ctx context.Context, pool *pgxpool.Pool, tx repository.Tx, sql string, args ...interface{}) (pgx.Row, error) {
	q, err := getExecutor(pool, tx)
	if err != nil {
		return nil, err
	}
	return q.QueryRow(ctx, sql, args...), nil
}

func queryRows(ctx context.Context, pool *pgxpool.Pool, tx repository.Tx, sql string, args ...interface{}) (pgx.Rows, error) {
	q, err := getExecutor(pool, tx)
	if err != nil {
		return nil, err
	}
	return q.Query(ctx, sql, args...)
}
