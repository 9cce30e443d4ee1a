package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an infra-defined transaction handle (pgx.Tx for Postgres).
// Repositories MUST accept NoTX and fall back to the pool.
type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside one database transaction and passes the
// handle through tx. A non-nil error from fn rolls back.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
