package config

import (
	"database/sql"

	_ "github.com/lib/pq" // postgres driver
)

const (
	defaultMaxOpenConnections = 10
	defaultMaxIdleConnections = 2
)

// PostgresSQLDBTestConfig opens a configured *sql.DB for the test database.
// The connection is not verified; callers ping it before use.
func PostgresSQLDBTestConfig() (*sql.DB, error) {
	db, err := sql.Open("postgres", PostgresTestDSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(defaultMaxOpenConnections)
	db.SetMaxIdleConns(defaultMaxIdleConnections)
	db.SetConnMaxLifetime(defaultMaxConnLifetime)
	db.SetConnMaxIdleTime(defaultMaxConnIdleTime)

	return db, nil
}
