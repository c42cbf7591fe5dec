package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/AntonStoeckl/metapackage-catalog-go/catalog"
	"github.com/AntonStoeckl/metapackage-catalog-go/catalog/postgresengine/internal/adapters"
)

const (
	defaultPackagesTableName     = "packages"
	defaultMaintainersRelation   = "maintainers"
	defaultRepositoriesTableName = "repositories"
	dialectPostgres              = "postgres"
)

const (
	colRepo          = "repo"
	colFamily        = "family"
	colName          = "name"
	colEffName       = "effname"
	colVersion       = "version"
	colOrigVersion   = "origversion"
	colEffVersion    = "effversion"
	colVersionClass  = "versionclass"
	colMaintainers   = "maintainers"
	colCategory      = "category"
	colComment       = "comment"
	colHomepage      = "homepage"
	colLicenses      = "licenses"
	colDownloads     = "downloads"
	colIgnorePackage = "ignorepackage"
	colShadow        = "shadow"
	colIgnoreVersion = "ignoreversion"
)

const (
	logMsgComposeFailed        = "failed to compose metapackage query"
	logMsgBuildQueryFailed     = "failed to build query"
	logMsgBeginSessionFailed   = "failed to begin read session"
	logMsgDBQueryFailed        = "database query execution failed"
	logMsgScanRowFailed        = "failed to scan database row"
	logMsgCommitSessionFailed  = "failed to commit read session"
	logMsgRollbackFailed       = "failed to roll back read session"
	logMsgCloseRowsFailed      = "failed to close database rows"
	logMsgFetchByFilters       = "fetch by filters completed"
	logMsgFetchByKey           = "fetch by key completed"
	logMsgListingCompleted     = "listing completed"
	logMsgSQLExecuted          = "executed sql for: "
	logMsgOperation            = "catalog operation: "
	logAttrError               = "error"
	logAttrQuery               = "query"
	logAttrAction              = "action"
	logAttrKey                 = "key"
	logAttrFilterCount         = "filter_count"
	logAttrKeyCount            = "key_count"
	logAttrPackageCount        = "package_count"
	logAttrRowCount            = "row_count"
	logAttrDurationMS          = "duration_ms"
	logAttrSort                = "sort"
	logActionQueryKeys         = "query_keys"
	logActionQueryPackages     = "query_packages"
	logActionQueryMaintainers  = "query_maintainers"
	logActionQueryRepositories = "query_repositories"
)

// packageColumns is the column list of every package hydration query, in scan order.
var packageColumns = []any{
	colRepo, colFamily,
	colName, colEffName,
	colVersion, colOrigVersion, colEffVersion, colVersionClass,
	colMaintainers, colCategory, colComment, colHomepage, colLicenses, colDownloads,
	colIgnorePackage, colShadow, colIgnoreVersion,
}

// Catalog reads metapackages and their packages from PostgreSQL.
// It composes filter lists into key queries and hydrates the resulting keys into package records.
// A Catalog holds no per-call state and can be shared by concurrent callers.
type Catalog struct {
	db                      adapters.DBAdapter
	composer                QueryComposer
	packagesTableName       string
	maintainersRelationName string
	repositoriesTableName   string
	logger                  Logger
	metricsCollector        MetricsCollector
	tracingCollector        TracingCollector
	contextualLogger        ContextualLogger
}

// packageRow holds the scan targets of one packages row, nullable columns as pointers.
type packageRow struct {
	repo          string
	family        string
	name          string
	effName       string
	version       string
	origVersion   *string
	effVersion    *string
	versionClass  *int16
	maintainers   []string
	category      *string
	comment       *string
	homepage      *string
	licenses      []string
	downloads     []string
	ignorePackage bool
	shadow        bool
	ignoreVersion bool
}

// NewCatalogFromPGXPool creates a new Catalog using a pgx Pool with optional configuration.
func NewCatalogFromPGXPool(db *pgxpool.Pool, options ...Option) (*Catalog, error) {
	if db == nil {
		return nil, catalog.ErrNilDatabaseConnection
	}

	return newCatalog(adapters.NewPGXAdapter(db), options...)
}

// NewCatalogFromPGXPoolWithReplica creates a new Catalog using a primary and a replica pgx Pool.
// Reads go to the replica only for contexts marked with catalog.WithEventualConsistency.
func NewCatalogFromPGXPoolWithReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*Catalog, error) {
	if db == nil || replica == nil {
		return nil, catalog.ErrNilDatabaseConnection
	}

	return newCatalog(adapters.NewPGXAdapterWithReplica(db, replica), options...)
}

// NewCatalogFromSQLDB creates a new Catalog using a sql.DB with optional configuration.
func NewCatalogFromSQLDB(db *sql.DB, options ...Option) (*Catalog, error) {
	if db == nil {
		return nil, catalog.ErrNilDatabaseConnection
	}

	return newCatalog(adapters.NewSQLAdapter(db), options...)
}

// NewCatalogFromSQLX creates a new Catalog using a sqlx.DB with optional configuration.
func NewCatalogFromSQLX(db *sqlx.DB, options ...Option) (*Catalog, error) {
	if db == nil {
		return nil, catalog.ErrNilDatabaseConnection
	}

	return newCatalog(adapters.NewSQLXAdapter(db), options...)
}

func newCatalog(db adapters.DBAdapter, options ...Option) (*Catalog, error) {
	c := &Catalog{
		db:                      db,
		composer:                NewQueryComposer(),
		packagesTableName:       defaultPackagesTableName,
		maintainersRelationName: defaultMaintainersRelation,
		repositoriesTableName:   defaultRepositoriesTableName,
	}

	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Composer returns the QueryComposer the Catalog builds its key queries with.
func (c *Catalog) Composer() QueryComposer {
	return c.composer
}

// FetchByFilters returns the packages of at most limit metapackages matching all filters.
//
// The keys are selected by the composed filter query first, then all packages of exactly those keys
// are fetched within the same read session. The result is grouped by key, in the key order of the
// first query; within a key, packages are ordered by repository and name.
// A limit <= 0 falls back to catalog.DefaultLimit. Filters declaring conflicting sort orders fail
// with catalog.ErrSortOrderConflict before the database is touched.
func (c *Catalog) FetchByFilters(ctx context.Context, filters []catalog.Filter, limit int) (catalog.Packages, error) {
	tracing, ctx := c.startFetchTracing(ctx, operationFetchByFilters, map[string]string{
		spanAttrFilterCount: itoa(len(filters)),
	})
	metrics := c.startFetchMetrics(ctx, operationFetchByFilters)
	start := time.Now()

	composed, composeErr := c.composer.Compose(filters, limit)
	if composeErr != nil {
		c.logError(ctx, logMsgComposeFailed, composeErr, logAttrFilterCount, len(filters))

		if errors.Is(composeErr, catalog.ErrSortOrderConflict) {
			metrics.recordSortConflict()
		}

		metrics.recordError(errorTypeOf(composeErr), time.Since(start))
		tracing.finishError(errorTypeOf(composeErr), time.Since(start))

		return nil, composeErr
	}

	var keys []catalog.MetapackageKey
	var packages catalog.Packages

	sessionErr := c.withReadSession(ctx, func(session adapters.ReadSession) error {
		var err error

		keys, err = c.queryKeys(ctx, session, composed)
		if err != nil || len(keys) == 0 {
			return err
		}

		packages, err = c.queryPackagesOfKeys(ctx, session, keys)

		return err
	})

	duration := time.Since(start)

	if sessionErr != nil {
		errorType := errorTypeOf(sessionErr)
		metrics.recordError(errorType, duration)
		tracing.finishError(errorType, duration)

		return nil, sessionErr
	}

	if packages == nil {
		packages = catalog.Packages{}
	}

	c.logOperation(
		ctx,
		logMsgFetchByFilters,
		logAttrFilterCount, len(filters),
		logAttrSort, composed.Sort.String(),
		logAttrKeyCount, len(keys),
		logAttrPackageCount, len(packages),
		logAttrDurationMS, c.toMilliseconds(duration),
	)

	metrics.recordSuccess(len(keys), len(packages), duration)
	tracing.finishSuccess(len(keys), len(packages), duration)

	return packages, nil
}

// FetchByKey returns all packages of exactly one metapackage, ordered by repository and name.
// It applies no filters and no limit.
func (c *Catalog) FetchByKey(ctx context.Context, key catalog.MetapackageKey) (catalog.Packages, error) {
	tracing, ctx := c.startFetchTracing(ctx, operationFetchByKey, map[string]string{
		spanAttrKey: key,
	})
	metrics := c.startFetchMetrics(ctx, operationFetchByKey)
	start := time.Now()

	selectStmt := goqu.Dialect(dialectPostgres).
		From(c.packagesTableName).
		Select(packageColumns...).
		Where(goqu.C(colEffName).Eq(key)).
		Order(goqu.C(colRepo).Asc(), goqu.C(colName).Asc())

	packages, fetchErr := c.fetchPackages(ctx, c.db.Query, selectStmt)
	duration := time.Since(start)

	if fetchErr != nil {
		errorType := errorTypeOf(fetchErr)
		metrics.recordError(errorType, duration)
		tracing.finishError(errorType, duration)

		return nil, fetchErr
	}

	c.logOperation(
		ctx,
		logMsgFetchByKey,
		logAttrKey, key,
		logAttrPackageCount, len(packages),
		logAttrDurationMS, c.toMilliseconds(duration),
	)

	keyCount := 0
	if len(packages) > 0 {
		keyCount = 1
	}

	metrics.recordSuccess(keyCount, len(packages), duration)
	tracing.finishSuccess(keyCount, len(packages), duration)

	return packages, nil
}

// withReadSession runs fn inside a read session and commits it, or rolls it back if fn fails.
func (c *Catalog) withReadSession(ctx context.Context, fn func(session adapters.ReadSession) error) error {
	session, beginErr := c.db.BeginReadSession(ctx)
	if beginErr != nil {
		c.logError(ctx, logMsgBeginSessionFailed, beginErr)

		return errors.Join(catalog.ErrBeginningSessionFailed, beginErr)
	}

	if fnErr := fn(session); fnErr != nil {
		if rollbackErr := session.Rollback(ctx); rollbackErr != nil {
			c.logWarn(ctx, logMsgRollbackFailed, logAttrError, rollbackErr.Error())
		}

		return fnErr
	}

	if commitErr := session.Commit(ctx); commitErr != nil {
		c.logError(ctx, logMsgCommitSessionFailed, commitErr)

		return errors.Join(catalog.ErrCommittingSessionFailed, commitErr)
	}

	return nil
}

// queryKeys executes the composed key query and returns the keys in query order.
func (c *Catalog) queryKeys(
	ctx context.Context,
	session adapters.ReadSession,
	composed ComposedQuery,
) ([]catalog.MetapackageKey, error) {

	rows, queryErr := c.executeQuery(ctx, session.Query, composed.SQL, composed.Args, logActionQueryKeys)
	if queryErr != nil {
		return nil, errors.Join(catalog.ErrQueryingKeysFailed, queryErr)
	}
	defer c.closeRows(ctx, rows)

	keys := make([]catalog.MetapackageKey, 0, min(composed.Limit, catalog.DefaultLimit))

	for rows.Next() {
		var key catalog.MetapackageKey

		if scanErr := rows.Scan(&key); scanErr != nil {
			c.logError(ctx, logMsgScanRowFailed, scanErr)

			return nil, errors.Join(catalog.ErrScanningDBRowFailed, scanErr)
		}

		keys = append(keys, key)
	}

	if iterErr := rows.Err(); iterErr != nil {
		c.logError(ctx, logMsgDBQueryFailed, iterErr, logAttrQuery, composed.SQL)

		return nil, errors.Join(catalog.ErrQueryingKeysFailed, iterErr)
	}

	return keys, nil
}

// queryPackagesOfKeys fetches all packages of keys and groups them in the order of keys.
// The keys are bound as a single array parameter, so any number of keys fits into one statement.
func (c *Catalog) queryPackagesOfKeys(
	ctx context.Context,
	session adapters.ReadSession,
	keys []catalog.MetapackageKey,
) (catalog.Packages, error) {

	selectStmt := goqu.Dialect(dialectPostgres).
		From(c.packagesTableName).
		Select(packageColumns...).
		Where(goqu.L("? = ANY(?::text[])", goqu.C(colEffName), pq.Array(keys))).
		Order(goqu.C(colEffName).Asc(), goqu.C(colRepo).Asc(), goqu.C(colName).Asc())

	fetched, fetchErr := c.fetchPackages(ctx, session.Query, selectStmt)
	if fetchErr != nil {
		return nil, fetchErr
	}

	return groupByKeyOrder(fetched, keys), nil
}

type queryFunc func(ctx context.Context, query string, args ...any) (adapters.DBRows, error)

// fetchPackages builds selectStmt as a prepared statement, runs it with query and scans all package rows.
func (c *Catalog) fetchPackages(ctx context.Context, query queryFunc, selectStmt *goqu.SelectDataset) (catalog.Packages, error) {
	sqlQuery, args, toSQLErr := selectStmt.Prepared(true).ToSQL()
	if toSQLErr != nil {
		c.logError(ctx, logMsgBuildQueryFailed, toSQLErr)

		return nil, errors.Join(catalog.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := c.executeQuery(ctx, query, sqlQuery, args, logActionQueryPackages)
	if queryErr != nil {
		return nil, errors.Join(catalog.ErrQueryingPackagesFailed, queryErr)
	}
	defer c.closeRows(ctx, rows)

	packages := make(catalog.Packages, 0)

	for rows.Next() {
		pkg, scanErr := c.scanPackage(rows)
		if scanErr != nil {
			c.logError(ctx, logMsgScanRowFailed, scanErr)

			return nil, errors.Join(catalog.ErrScanningDBRowFailed, scanErr)
		}

		packages = append(packages, pkg)
	}

	if iterErr := rows.Err(); iterErr != nil {
		c.logError(ctx, logMsgDBQueryFailed, iterErr, logAttrQuery, sqlQuery)

		return nil, errors.Join(catalog.ErrQueryingPackagesFailed, iterErr)
	}

	return packages, nil
}

// executeQuery runs one query and logs it with its duration.
func (c *Catalog) executeQuery(
	ctx context.Context,
	query queryFunc,
	sqlQuery string,
	args []any,
	action string,
) (adapters.DBRows, error) {

	start := time.Now()
	rows, queryErr := query(ctx, sqlQuery, args...)
	c.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if queryErr != nil {
		c.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)

		return nil, queryErr
	}

	return rows, nil
}

// closeRows safely closes database rows and logs any errors.
func (c *Catalog) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		c.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

// scanPackage scans the current row into a catalog.Package.
func (c *Catalog) scanPackage(rows adapters.DBRows) (catalog.Package, error) {
	row := packageRow{}

	scanErr := rows.Scan(
		&row.repo,
		&row.family,
		&row.name,
		&row.effName,
		&row.version,
		&row.origVersion,
		&row.effVersion,
		&row.versionClass,
		c.db.ArrayScanTarget(&row.maintainers),
		&row.category,
		&row.comment,
		&row.homepage,
		c.db.ArrayScanTarget(&row.licenses),
		c.db.ArrayScanTarget(&row.downloads),
		&row.ignorePackage,
		&row.shadow,
		&row.ignoreVersion,
	)
	if scanErr != nil {
		return catalog.Package{}, scanErr
	}

	return catalog.Package{
		Repo:          row.repo,
		Family:        row.family,
		Name:          row.name,
		EffName:       row.effName,
		Version:       row.version,
		OrigVersion:   derefString(row.origVersion),
		EffVersion:    derefString(row.effVersion),
		VersionClass:  catalog.VersionClassFromStorage(row.versionClass),
		Maintainers:   row.maintainers,
		Category:      derefString(row.category),
		Comment:       derefString(row.comment),
		Homepage:      derefString(row.homepage),
		Licenses:      row.licenses,
		Downloads:     row.downloads,
		Ignore:        row.ignorePackage,
		Shadow:        row.shadow,
		IgnoreVersion: row.ignoreVersion,
	}, nil
}

// groupByKeyOrder reorders packages so the entries of each key follow the order of keys.
// The relative order of entries within one key is kept.
func groupByKeyOrder(packages catalog.Packages, keys []catalog.MetapackageKey) catalog.Packages {
	byKey := make(map[catalog.MetapackageKey]catalog.Packages, len(keys))
	for _, pkg := range packages {
		byKey[pkg.EffName] = append(byKey[pkg.EffName], pkg)
	}

	grouped := make(catalog.Packages, 0, len(packages))
	for _, key := range keys {
		grouped = append(grouped, byKey[key]...)
	}

	return grouped
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
