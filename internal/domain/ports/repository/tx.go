package repository

import (
	"context"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes fn within a database transaction, passing the
// underlying handle via `tx`.
//
// The concrete type of `tx` is infra-defined (pgx.Tx for Postgres, *sql.Tx
// for SQLite). Repositories MUST gracefully accept a nil tx (non-transactional
// path) and reject handles that belong to another backend.
//
// USAGE
// tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
// p, err := payments.FindByID(ctx, tx, id)
// ...
// return payments.Delete(ctx, tx, id)
// })
type TransactionManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
