package adapters

import (
	"database/sql"

	"github.com/lib/pq"
)

// readSessionTxOptions are the transaction options of every database/sql based read session.
var readSessionTxOptions = &sql.TxOptions{
	Isolation: sql.LevelRepeatableRead,
	ReadOnly:  true,
}

// sqlArrayScanTarget wraps dest with the lib/pq array scanner, database/sql cannot scan arrays on its own.
func sqlArrayScanTarget(dest *[]string) any {
	return pq.Array(dest)
}

// stdRows wraps standard library sql.Rows to implement the DBRows interface.
type stdRows struct {
	rows *sql.Rows
}

// Next advances to the next row.
func (s *stdRows) Next() bool {
	return s.rows.Next()
}

// Scan copies row values into provided destinations.
func (s *stdRows) Scan(dest ...any) error {
	return s.rows.Scan(dest...)
}

// Err returns the error, if any, that was encountered during iteration.
func (s *stdRows) Err() error {
	return s.rows.Err()
}

// Close closes the rows iterator.
func (s *stdRows) Close() error {
	return s.rows.Close()
}
