package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// NoTX marks the non-transactional path when calling a repository directly.
var NoTX Tx

// TransactionManager executes a function inside a database transaction, passing
// the underlying transaction handle via `tx`.
//
// The concrete type of `tx` is infra-defined (pgx.Tx for Postgres). Repositories
// must gracefully accept a nil handle and fall back to their pool. Keeping the
// handle opaque here keeps use-case signatures free of driver types while still
// letting repositories issue SELECT ... FOR UPDATE inside a caller's transaction.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
