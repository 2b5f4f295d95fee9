package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is the infra-defined transaction handle (pgx.Tx for Postgres).
// Repositories accept nil to run on the pool.
type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside a store transaction and commits when fn returns nil.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
