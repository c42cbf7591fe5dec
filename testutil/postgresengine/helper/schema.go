package helper

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaLockID serializes concurrent schema setup of parallel test binaries.
const schemaLockID = 73017

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the packages and repositories tables and the aggregate views if they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", schemaLockID); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, schemaSQL)

		return err
	})
}
