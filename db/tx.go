package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type txKey struct{}

// runInTx runs fn in a transaction carried by the context, so repositories
// called from fn join it. Nested calls reuse the outer transaction.
func runInTx(ctx context.Context, db *sqlx.DB, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	if tx := txFromContext(ctx); tx != nil {
		return fn(ctx, tx)
	}

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx), tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func txFromContext(ctx context.Context) *sqlx.Tx {
	tx, _ := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx
}

func executor(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isInvalidTextRepresentation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "22P02"
}
