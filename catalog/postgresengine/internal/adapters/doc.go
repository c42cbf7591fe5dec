// Package adapters provide database adapter implementations for the PostgreSQL catalog engine.
//
// This package implements the adapter pattern to support multiple PostgreSQL database libraries:
// pgxpool.Pool, sql.DB (with the lib/pq driver), and sqlx.DB. All adapters provide equivalent
// functionality through a common DBAdapter interface, so the catalog engine works with any of
// the supported connection types.
//
// Besides plain queries the adapters open read sessions: read-only transactions in repeatable read
// isolation, so that several queries of one catalog operation observe the same snapshot.
package adapters
