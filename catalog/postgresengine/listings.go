package postgresengine

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/metapackage-catalog-go/catalog"
	"github.com/AntonStoeckl/metapackage-catalog-go/catalog/postgresengine/internal/adapters"
)

const (
	colMaintainer          = "maintainer"
	colNumPackages         = "num_packages"
	colNumMetapackages     = "num_metapackages"
	colNumPackagesNewest   = "num_packages_newest"
	colNumPackagesOutdated = "num_packages_outdated"
	colNumPackagesIgnored  = "num_packages_ignored"
	colLastUpdate          = "last_update"
)

// FetchMaintainers returns at most limit maintainer summaries ordered by maintainer, skipping the first offset.
// A limit <= 0 falls back to catalog.DefaultLimit, a negative offset is treated as 0.
func (c *Catalog) FetchMaintainers(ctx context.Context, offset, limit int) ([]catalog.MaintainerSummary, error) {
	if limit <= 0 {
		limit = catalog.DefaultLimit
	}

	if offset < 0 {
		offset = 0
	}

	selectStmt := goqu.Dialect(dialectPostgres).
		From(c.maintainersRelationName).
		Select(colMaintainer, colNumPackages, colNumMetapackages).
		Order(goqu.C(colMaintainer).Asc()).
		Limit(uint(limit)).
		Offset(uint(offset))

	maintainers := make([]catalog.MaintainerSummary, 0)

	err := c.runListing(ctx, operationFetchMaintainers, logActionQueryMaintainers, selectStmt, func(rows adapters.DBRows) error {
		var summary catalog.MaintainerSummary
		var numPackages, numMetapackages *int64

		if scanErr := rows.Scan(&summary.Maintainer, &numPackages, &numMetapackages); scanErr != nil {
			return scanErr
		}

		summary.NumPackages = derefInt(numPackages)
		summary.NumMetapackages = derefInt(numMetapackages)
		maintainers = append(maintainers, summary)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return maintainers, nil
}

// CountMaintainers returns the number of rows of the maintainers relation.
func (c *Catalog) CountMaintainers(ctx context.Context) (int, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(c.maintainersRelationName).
		Select(goqu.COUNT(goqu.Star()))

	var count int64

	err := c.runListing(ctx, operationCountMaintainers, logActionQueryMaintainers, selectStmt, func(rows adapters.DBRows) error {
		return rows.Scan(&count)
	})
	if err != nil {
		return 0, err
	}

	return int(count), nil
}

// FetchRepositories returns the summaries of all repositories ordered by name.
func (c *Catalog) FetchRepositories(ctx context.Context) ([]catalog.RepositorySummary, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(c.repositoriesTableName).
		Select(
			colName,
			colNumPackages,
			colNumPackagesNewest,
			colNumPackagesOutdated,
			colNumPackagesIgnored,
			colLastUpdate,
		).
		Order(goqu.C(colName).Asc())

	repositories := make([]catalog.RepositorySummary, 0)

	err := c.runListing(ctx, operationFetchRepos, logActionQueryRepositories, selectStmt, func(rows adapters.DBRows) error {
		var summary catalog.RepositorySummary
		var numPackages, numNewest, numOutdated, numIgnored *int64
		var lastUpdate *time.Time

		scanErr := rows.Scan(&summary.Name, &numPackages, &numNewest, &numOutdated, &numIgnored, &lastUpdate)
		if scanErr != nil {
			return scanErr
		}

		summary.NumPackages = derefInt(numPackages)
		summary.NumNewest = derefInt(numNewest)
		summary.NumOutdated = derefInt(numOutdated)
		summary.NumIgnored = derefInt(numIgnored)

		if lastUpdate != nil {
			summary.LastUpdate = *lastUpdate
		}

		repositories = append(repositories, summary)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return repositories, nil
}

// runListing executes selectStmt outside of a read session and hands every row to scanRow.
func (c *Catalog) runListing(
	ctx context.Context,
	operation string,
	action string,
	selectStmt *goqu.SelectDataset,
	scanRow func(rows adapters.DBRows) error,
) error {

	tracing, ctx := c.startFetchTracing(ctx, operation, nil)
	metrics := c.startFetchMetrics(ctx, operation)
	start := time.Now()

	rowCount, err := c.queryListing(ctx, action, selectStmt, scanRow)
	duration := time.Since(start)

	if err != nil {
		errorType := errorTypeOf(err)
		metrics.recordError(errorType, duration)
		tracing.finishError(errorType, duration)

		return err
	}

	c.logOperation(
		ctx,
		logMsgListingCompleted,
		logAttrAction, action,
		logAttrRowCount, rowCount,
		logAttrDurationMS, c.toMilliseconds(duration),
	)

	metrics.recordListed(duration)
	tracing.finishListed(rowCount, duration)

	return nil
}

func (c *Catalog) queryListing(
	ctx context.Context,
	action string,
	selectStmt *goqu.SelectDataset,
	scanRow func(rows adapters.DBRows) error,
) (int, error) {

	sqlQuery, args, toSQLErr := selectStmt.Prepared(true).ToSQL()
	if toSQLErr != nil {
		c.logError(ctx, logMsgBuildQueryFailed, toSQLErr)

		return 0, errors.Join(catalog.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := c.executeQuery(ctx, c.db.Query, sqlQuery, args, action)
	if queryErr != nil {
		return 0, errors.Join(catalog.ErrQueryingListingFailed, queryErr)
	}
	defer c.closeRows(ctx, rows)

	rowCount := 0

	for rows.Next() {
		if scanErr := scanRow(rows); scanErr != nil {
			c.logError(ctx, logMsgScanRowFailed, scanErr)

			return 0, errors.Join(catalog.ErrScanningDBRowFailed, scanErr)
		}

		rowCount++
	}

	if iterErr := rows.Err(); iterErr != nil {
		c.logError(ctx, logMsgDBQueryFailed, iterErr, logAttrQuery, sqlQuery)

		return 0, errors.Join(catalog.ErrQueryingListingFailed, iterErr)
	}

	return rowCount, nil
}

func derefInt(n *int64) int {
	if n == nil {
		return 0
	}

	return int(*n)
}
