package postgreswrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/metapackage-catalog-go/catalog/postgresengine"
	"github.com/AntonStoeckl/metapackage-catalog-go/testutil/postgresengine/config"
	"github.com/AntonStoeckl/metapackage-catalog-go/testutil/postgresengine/helper"
)

// Engine type constants
const (
	typePGXPool = "pgx.pool"
	typeSQLDB   = "sql.db"
	typeSQLXDB  = "sqlx.db"
)

const connectTimeout = 3 * time.Second

// Wrapper interface to abstract over different engine types
type Wrapper interface {
	GetCatalog() *postgresengine.Catalog
	GetSeedPool() *pgxpool.Pool
	Close()
}

type baseWrapper struct {
	seedPool *pgxpool.Pool
	store    *postgresengine.Catalog
}

func (w *baseWrapper) GetCatalog() *postgresengine.Catalog {
	return w.store
}

func (w *baseWrapper) GetSeedPool() *pgxpool.Pool {
	return w.seedPool
}

// PGXPoolWrapper wraps pgxpool-based testing
type PGXPoolWrapper struct {
	baseWrapper
	pool *pgxpool.Pool
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

// SQLDBWrapper wraps sql.DB-based testing
type SQLDBWrapper struct {
	baseWrapper
	db *sql.DB
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// SQLXWrapper wraps sqlx.DB-based testing
type SQLXWrapper struct {
	baseWrapper
	db *sqlx.DB
}

func (w *SQLXWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// CreateWrapperWithTestConfig creates the appropriate wrapper based on the environment variable.
// The test is skipped if the test database is not reachable.
func CreateWrapperWithTestConfig(t testing.TB, options ...postgresengine.Option) Wrapper {
	seedPool := ConnectSeedPool(t)

	switch adapterTypeFromEnv() {
	case typePGXPool:
		pool := connectPGXPool(t)

		store, err := postgresengine.NewCatalogFromPGXPool(pool, options...)
		require.NoError(t, err, "error creating the catalog")

		return &PGXPoolWrapper{baseWrapper: baseWrapper{seedPool: seedPool, store: store}, pool: pool}

	case typeSQLDB:
		db, err := config.PostgresSQLDBTestConfig()
		require.NoError(t, err, "error opening the database in test setup")

		store, err := postgresengine.NewCatalogFromSQLDB(db, options...)
		require.NoError(t, err, "error creating the catalog")

		return &SQLDBWrapper{baseWrapper: baseWrapper{seedPool: seedPool, store: store}, db: db}

	case typeSQLXDB:
		db, err := config.PostgresSQLXTestConfig()
		require.NoError(t, err, "error opening the database in test setup")

		store, err := postgresengine.NewCatalogFromSQLX(db, options...)
		require.NoError(t, err, "error creating the catalog")

		return &SQLXWrapper{baseWrapper: baseWrapper{seedPool: seedPool, store: store}, db: db}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", os.Getenv("ADAPTER_TYPE")))
	}
}

// CreateReplicaWrapperWithTestConfig creates a pgx based wrapper whose catalog has a replica pool.
// The test is skipped if the test database or its replica is not reachable.
func CreateReplicaWrapperWithTestConfig(t testing.TB, options ...postgresengine.Option) Wrapper {
	seedPool := ConnectSeedPool(t)
	pool := connectPGXPool(t)

	replicaConfig, err := config.PostgresPGXPoolReplicaConfig()
	require.NoError(t, err, "error creating the replica pool config")

	replica := connectOrSkip(t, replicaConfig)

	store, err := postgresengine.NewCatalogFromPGXPoolWithReplica(pool, replica, options...)
	require.NoError(t, err, "error creating the catalog")

	t.Cleanup(replica.Close)

	return &PGXPoolWrapper{baseWrapper: baseWrapper{seedPool: seedPool, store: store}, pool: pool}
}

// ConnectSeedPool connects the pgx pool used for schema setup and fixture seeding.
// The pool stays open until the test's cleanups, which remove the seeded data, have run.
// The test is skipped if the test database is not reachable.
func ConnectSeedPool(t testing.TB) *pgxpool.Pool {
	seedPool := connectPGXPool(t)
	t.Cleanup(seedPool.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, helper.EnsureSchema(ctx, seedPool), "error creating the catalog schema")

	return seedPool
}

func connectPGXPool(t testing.TB) *pgxpool.Pool {
	poolConfig, err := config.PostgresPGXPoolTestConfig()
	require.NoError(t, err, "error creating the pool config")

	return connectOrSkip(t, poolConfig)
}

func connectOrSkip(t testing.TB, poolConfig *pgxpool.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err, "error creating the DB pool in test setup")

	if pingErr := pool.Ping(ctx); pingErr != nil {
		pool.Close()
		t.Skipf("test database not reachable: %v", pingErr)
	}

	return pool
}

func adapterTypeFromEnv() string {
	adapterType := strings.ToLower(os.Getenv("ADAPTER_TYPE"))
	if adapterType == "" {
		return typePGXPool
	}

	return adapterType
}
