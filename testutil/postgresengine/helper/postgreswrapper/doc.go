// Package postgreswrapper provides test utilities for abstracting over different PostgreSQL database adapters.
//
// This package enables testing of the catalog implementation across multiple database drivers
// (pgx, sql.DB, sqlx.DB) using a common Wrapper interface. The specific adapter type is determined
// by the ADAPTER_TYPE environment variable, allowing the same test suite to run against different
// database implementations. Fixture data is always seeded through a pgx pool.
//
// If the test database is not reachable, the calling test is skipped.
//
// Usage:
//
//	wrapper := CreateWrapperWithTestConfig(t)
//	defer wrapper.Close()
//
//	ns := GivenUniqueNamespace(t)
//	GivenFixturePackagesWereStored(t, ctx, wrapper.GetSeedPool(), ns)
//
//	store := wrapper.GetCatalog()
package postgreswrapper
