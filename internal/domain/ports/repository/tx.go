package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes fn inside a database transaction and passes
// the underlying handle as tx. Repositories accept that handle (or NoTX for
// the non-transactional path) and lock rows they read when it is a real tx.
//
// The concrete type of tx is infra-defined (pgx.Tx for Postgres).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}

// UserLocker serializes work on one user's intervals and balance for the
// lifetime of tx.
type UserLocker interface {
	LockUser(ctx context.Context, tx Tx, userID string) error
}
