// Package postgresengine provides a PostgreSQL implementation of the metapackage catalog reads.
//
// A list of catalog.Filter(s) is composed into one key query over the pre-aggregated relations,
// then the packages of the matching keys are fetched from the packages table within the same
// read-only, repeatable-read session, so both reads see one snapshot.
//
// Key features:
//   - Multiple database adapter support (PGX, SQL, SQLX)
//   - Keyset pagination by metapackage name in both directions
//   - Configurable relation and table names
//   - Optional logging, metrics and tracing, plus replica reads for eventual consistency
//
// Usage examples:
//
//	db, _ := pgxpool.New(context.Background(), dsn)
//	store, _ := postgresengine.NewCatalogFromPGXPool(
//		db,
//		postgresengine.WithLogger(slog.Default()),
//	)
//
//	// the next page of up to 200 metapackages present in debian but missing in fedora
//	packages, _ := store.FetchByFilters(ctx, []catalog.Filter{
//		catalog.NameAfter(lastKeyOfPreviousPage),
//		catalog.InRepository("debian"),
//		catalog.NotInRepository("fedora"),
//	}, 200)
//
//	single, _ := store.FetchByKey(ctx, "firefox")
package postgresengine
