// Package config provides PostgreSQL database configuration for catalog testing.
//
// This package contains factory functions for creating database connections
// using the catalog's supported PostgreSQL adapters (pgx.Pool, sql.DB, sqlx.DB)
// against the test database. The DSNs can be overridden by environment variables,
// so the tests can run against any reachable PostgreSQL instance.
package config
