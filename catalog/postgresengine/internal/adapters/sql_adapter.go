package adapters

import (
	"context"
	"database/sql"
)

// SQLAdapter implements DBAdapter for sql.DB
type SQLAdapter struct {
	db *sql.DB
}

// NewSQLAdapter creates a new SQL adapter
func NewSQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db}
}

func (s *SQLAdapter) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows}, nil
}

func (s *SQLAdapter) BeginReadSession(ctx context.Context) (ReadSession, error) {
	tx, err := s.db.BeginTx(ctx, readSessionTxOptions)
	if err != nil {
		return nil, err
	}

	return &sqlSession{tx: tx}, nil
}

func (s *SQLAdapter) ArrayScanTarget(dest *[]string) any {
	return sqlArrayScanTarget(dest)
}

type sqlSession struct {
	tx *sql.Tx
}

func (s *sqlSession) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := s.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows}, nil
}

func (s *sqlSession) Commit(_ context.Context) error {
	return s.tx.Commit()
}

func (s *sqlSession) Rollback(_ context.Context) error {
	return s.tx.Rollback()
}
