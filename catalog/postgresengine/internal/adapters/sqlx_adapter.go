package adapters

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// SQLXAdapter implements DBAdapter for sqlx.DB
type SQLXAdapter struct {
	db *sqlx.DB
}

// NewSQLXAdapter creates a new SQLX adapter
func NewSQLXAdapter(db *sqlx.DB) *SQLXAdapter {
	return &SQLXAdapter{db: db}
}

// Query executes a query using the sqlx.DB and returns wrapped rows.
func (s *SQLXAdapter) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows.Rows}, nil
}

// BeginReadSession starts a read-only repeatable read transaction.
func (s *SQLXAdapter) BeginReadSession(ctx context.Context) (ReadSession, error) {
	tx, err := s.db.BeginTxx(ctx, readSessionTxOptions)
	if err != nil {
		return nil, err
	}

	return &sqlxSession{tx: tx}, nil
}

// ArrayScanTarget wraps dest with the lib/pq array scanner.
func (s *SQLXAdapter) ArrayScanTarget(dest *[]string) any {
	return sqlArrayScanTarget(dest)
}

type sqlxSession struct {
	tx *sqlx.Tx
}

func (s *sqlxSession) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := s.tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows.Rows}, nil
}

func (s *sqlxSession) Commit(_ context.Context) error {
	return s.tx.Commit()
}

func (s *sqlxSession) Rollback(_ context.Context) error {
	return s.tx.Rollback()
}
