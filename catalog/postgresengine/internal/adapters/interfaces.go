package adapters

import "context"

// DBAdapter defines the interface for database operations needed by the catalog engine.
type DBAdapter interface {
	Query(ctx context.Context, query string, args ...any) (DBRows, error)
	BeginReadSession(ctx context.Context) (ReadSession, error)

	// ArrayScanTarget returns a scan destination that fills dest from a Postgres varchar[] column.
	ArrayScanTarget(dest *[]string) any
}

// ReadSession defines a read-only, snapshot-consistent session spanning multiple queries.
type ReadSession interface {
	Query(ctx context.Context, query string, args ...any) (DBRows, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}
