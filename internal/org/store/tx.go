// Package store provides the transaction runners shared by the persistence
// implementations under its subpackages.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"custodia/pkg/platform/tx"
)

// PgxTx runs a function inside a PostgreSQL transaction. The transaction is
// carried in the context so every store call made by fn joins it.
type PgxTx struct {
	pool *pgxpool.Pool
}

func NewPgxTx(pool *pgxpool.Pool) *PgxTx {
	return &PgxTx{pool: pool}
}

// RunInTx begins a transaction, runs fn with it in the context, and commits.
// Any error from fn rolls the transaction back and is returned unchanged so
// callers keep their domain error codes.
func (r *PgxTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = t.Rollback(ctx) }()

	if err := fn(tx.WithTx(ctx, t)); err != nil {
		return err
	}
	if err := t.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
