package adapters

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AntonStoeckl/metapackage-catalog-go/catalog"
)

// pgxReadSessionTxOptions are the pgx equivalent of readSessionTxOptions.
var pgxReadSessionTxOptions = pgx.TxOptions{
	IsoLevel:   pgx.RepeatableRead,
	AccessMode: pgx.ReadOnly,
}

// PGXAdapter implements DBAdapter for pgxpool.Pool.
type PGXAdapter struct {
	pool        *pgxpool.Pool
	replicaPool *pgxpool.Pool // optional replica for eventually consistent reads
}

// NewPGXAdapter creates a new PGX adapter with a primary pool.
func NewPGXAdapter(pool *pgxpool.Pool) *PGXAdapter {
	return &PGXAdapter{pool: pool}
}

// NewPGXAdapterWithReplica creates a new PGX adapter with a primary pool and a replica pool.
func NewPGXAdapterWithReplica(pool *pgxpool.Pool, replica *pgxpool.Pool) *PGXAdapter {
	return &PGXAdapter{pool: pool, replicaPool: replica}
}

// selectPool returns the replica pool if one is configured and the context allows eventual consistency.
func (p *PGXAdapter) selectPool(ctx context.Context) *pgxpool.Pool {
	if p.replicaPool != nil && catalog.GetConsistencyLevel(ctx) == catalog.EventualConsistency {
		return p.replicaPool
	}

	return p.pool
}

// Query executes a query on the pool selected by the consistency level of ctx.
func (p *PGXAdapter) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := p.selectPool(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &pgxRows{rows: rows}, nil
}

// BeginReadSession starts a read-only repeatable read transaction on the pool selected by ctx.
func (p *PGXAdapter) BeginReadSession(ctx context.Context) (ReadSession, error) {
	tx, err := p.selectPool(ctx).BeginTx(ctx, pgxReadSessionTxOptions)
	if err != nil {
		return nil, err
	}

	return &pgxSession{tx: tx}, nil
}

// ArrayScanTarget returns dest unchanged, pgx scans arrays into slices natively.
func (p *PGXAdapter) ArrayScanTarget(dest *[]string) any {
	return dest
}

type pgxSession struct {
	tx pgx.Tx
}

func (s *pgxSession) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := s.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &pgxRows{rows: rows}, nil
}

func (s *pgxSession) Commit(ctx context.Context) error {
	return s.tx.Commit(ctx)
}

func (s *pgxSession) Rollback(ctx context.Context) error {
	return s.tx.Rollback(ctx)
}

// pgxRows wraps pgx.Rows to implement the DBRows interface.
type pgxRows struct {
	rows pgx.Rows
}

// Next advances to the next row.
func (p *pgxRows) Next() bool {
	return p.rows.Next()
}

// Scan copies row values into provided destinations.
func (p *pgxRows) Scan(dest ...any) error {
	return p.rows.Scan(dest...)
}

// Err returns the error, if any, that was encountered during iteration.
func (p *pgxRows) Err() error {
	return p.rows.Err()
}

// Close closes the rows iterator.
func (p *pgxRows) Close() error {
	p.rows.Close()
	return nil
}
