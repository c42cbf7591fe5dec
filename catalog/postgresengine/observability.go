package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/AntonStoeckl/metapackage-catalog-go/catalog"
)

const (
	operationFetchByFilters   = "fetch_by_filters"
	operationFetchByKey       = "fetch_by_key"
	operationFetchMaintainers = "fetch_maintainers"
	operationFetchRepos       = "fetch_repositories"
	operationCountMaintainers = "count_maintainers"

	spanNamePrefix = "catalog."

	metricFetchDuration   = "catalog_fetch_duration_seconds"
	metricKeysMatched     = "catalog_keys_matched"
	metricPackagesFetched = "catalog_packages_fetched"
	metricDatabaseErrors  = "catalog_database_errors_total"
	metricSortConflicts   = "catalog_sort_conflicts_total"

	statusSuccess = "success"
	statusError   = "error"

	labelStatus       = "status"
	labelConflictType = "conflict_type"

	spanAttrOperation    = "operation"
	spanAttrFilterCount  = "filter_count"
	spanAttrKey          = "key"
	spanAttrKeyCount     = "key_count"
	spanAttrPackageCount = "package_count"
	spanAttrRowCount     = "row_count"
	spanAttrErrorType    = "error_type"
	spanAttrDurationMS   = "duration_ms"

	errorTypeCompose       = "compose"
	errorTypeBuildQuery    = "build_query"
	errorTypeBeginSession  = "begin_session"
	errorTypeQueryKeys     = "query_keys"
	errorTypeQueryPackages = "query_packages"
	errorTypeQueryListing  = "query_listing"
	errorTypeScanRow       = "scan_row"
	errorTypeCommit        = "commit_session"
	errorTypeUnknown       = "unknown"
)

// errorTypeOf classifies an error returned by a fetch by the sentinel it carries.
func errorTypeOf(err error) string {
	switch {
	case errors.Is(err, catalog.ErrSortOrderConflict):
		return errorTypeCompose
	case errors.Is(err, catalog.ErrBuildingQueryFailed):
		return errorTypeBuildQuery
	case errors.Is(err, catalog.ErrBeginningSessionFailed):
		return errorTypeBeginSession
	case errors.Is(err, catalog.ErrScanningDBRowFailed):
		return errorTypeScanRow
	case errors.Is(err, catalog.ErrQueryingKeysFailed):
		return errorTypeQueryKeys
	case errors.Is(err, catalog.ErrQueryingPackagesFailed):
		return errorTypeQueryPackages
	case errors.Is(err, catalog.ErrQueryingListingFailed):
		return errorTypeQueryListing
	case errors.Is(err, catalog.ErrCommittingSessionFailed):
		return errorTypeCommit
	default:
		return errorTypeUnknown
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (c *Catalog) toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func (c *Catalog) formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.3f", c.toMilliseconds(d))
}

/***** logging *****/

// logQueryWithDuration logs SQL queries with execution time at debug level.
func (c *Catalog) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	args := []any{logAttrDurationMS, c.toMilliseconds(duration), logAttrQuery, sqlQuery}

	if c.logger != nil {
		c.logger.Debug(logMsgSQLExecuted+action, args...)
	}

	if c.contextualLogger != nil {
		c.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
	}
}

// logOperation logs operational information at info level.
func (c *Catalog) logOperation(ctx context.Context, action string, args ...any) {
	if c.logger != nil {
		c.logger.Info(logMsgOperation+action, args...)
	}

	if c.contextualLogger != nil {
		c.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

// logWarn logs non-critical failures at warn level.
func (c *Catalog) logWarn(ctx context.Context, message string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(message, args...)
	}

	if c.contextualLogger != nil {
		c.contextualLogger.WarnContext(ctx, message, args...)
	}
}

// logError logs error information at error level.
func (c *Catalog) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if c.logger != nil {
		c.logger.Error(message, allArgs...)
	}

	if c.contextualLogger != nil {
		c.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

/***** metrics *****/

// recordDurationMetricsContext records duration metrics, with context if the collector supports it.
func (c *Catalog) recordDurationMetricsContext(
	ctx context.Context,
	metricName string,
	duration time.Duration,
	operation, status string,
) {
	if c.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		labelStatus:       status,
	}

	if contextualCollector, ok := c.metricsCollector.(catalog.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricName, duration, labels)
		return
	}

	c.metricsCollector.RecordDuration(metricName, duration, labels)
}

// recordValueMetricsContext records value metrics, with context if the collector supports it.
func (c *Catalog) recordValueMetricsContext(
	ctx context.Context,
	metricName string,
	value float64,
	operation, status string,
) {
	if c.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		labelStatus:       status,
	}

	if contextualCollector, ok := c.metricsCollector.(catalog.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metricName, value, labels)
		return
	}

	c.metricsCollector.RecordValue(metricName, value, labels)
}

// incrementCounterContext increments a counter, with context if the collector supports it.
func (c *Catalog) incrementCounterContext(ctx context.Context, metricName string, labels map[string]string) {
	if c.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := c.metricsCollector.(catalog.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricName, labels)
		return
	}

	c.metricsCollector.IncrementCounter(metricName, labels)
}

// fetchMetricsObserver encapsulates the metrics collection for one read operation.
type fetchMetricsObserver struct {
	c         *Catalog
	ctx       context.Context
	operation string
}

func (c *Catalog) startFetchMetrics(ctx context.Context, operation string) *fetchMetricsObserver {
	return &fetchMetricsObserver{
		c:         c,
		ctx:       ctx,
		operation: operation,
	}
}

// recordSuccess records duration, matched keys and fetched packages of a successful fetch.
func (fmo *fetchMetricsObserver) recordSuccess(keyCount, packageCount int, duration time.Duration) {
	fmo.c.recordDurationMetricsContext(fmo.ctx, metricFetchDuration, duration, fmo.operation, statusSuccess)
	fmo.c.recordValueMetricsContext(fmo.ctx, metricKeysMatched, float64(keyCount), fmo.operation, statusSuccess)
	fmo.c.recordValueMetricsContext(fmo.ctx, metricPackagesFetched, float64(packageCount), fmo.operation, statusSuccess)
}

// recordListed records the duration of a successful listing.
func (fmo *fetchMetricsObserver) recordListed(duration time.Duration) {
	fmo.c.recordDurationMetricsContext(fmo.ctx, metricFetchDuration, duration, fmo.operation, statusSuccess)
}

// recordError records duration and error count of a failed operation.
func (fmo *fetchMetricsObserver) recordError(errorType string, duration time.Duration) {
	fmo.c.recordDurationMetricsContext(fmo.ctx, metricFetchDuration, duration, fmo.operation, statusError)
	fmo.c.incrementCounterContext(fmo.ctx, metricDatabaseErrors, map[string]string{
		spanAttrOperation: fmo.operation,
		labelStatus:       statusError,
		spanAttrErrorType: errorType,
	})
}

// recordSortConflict counts filter lists rejected for conflicting sort orders.
func (fmo *fetchMetricsObserver) recordSortConflict() {
	fmo.c.incrementCounterContext(fmo.ctx, metricSortConflicts, map[string]string{
		spanAttrOperation: fmo.operation,
		labelConflictType: "sort_order",
	})
}

/***** tracing *****/

// fetchTracingObserver encapsulates the span lifecycle of one read operation.
type fetchTracingObserver struct {
	c    *Catalog
	span SpanContext
}

func (c *Catalog) startFetchTracing(
	ctx context.Context,
	operation string,
	attrs map[string]string,
) (*fetchTracingObserver, context.Context) {

	if c.tracingCollector == nil {
		return &fetchTracingObserver{c: c}, ctx
	}

	spanAttrs := map[string]string{spanAttrOperation: operation}
	for key, value := range attrs {
		spanAttrs[key] = value
	}

	newCtx, span := c.tracingCollector.StartSpan(ctx, spanNamePrefix+operation, spanAttrs)

	return &fetchTracingObserver{c: c, span: span}, newCtx
}

// finishSuccess completes the span of a successful fetch.
func (fto *fetchTracingObserver) finishSuccess(keyCount, packageCount int, duration time.Duration) {
	fto.finish(statusSuccess, map[string]string{
		spanAttrKeyCount:     itoa(keyCount),
		spanAttrPackageCount: itoa(packageCount),
		spanAttrDurationMS:   fto.c.formatDuration(duration),
	})
}

// finishListed completes the span of a successful listing.
func (fto *fetchTracingObserver) finishListed(rowCount int, duration time.Duration) {
	fto.finish(statusSuccess, map[string]string{
		spanAttrRowCount:   itoa(rowCount),
		spanAttrDurationMS: fto.c.formatDuration(duration),
	})
}

// finishError completes the span with error details.
func (fto *fetchTracingObserver) finishError(errorType string, duration time.Duration) {
	fto.finish(statusError, map[string]string{
		spanAttrErrorType:  errorType,
		spanAttrDurationMS: fto.c.formatDuration(duration),
	})
}

func (fto *fetchTracingObserver) finish(status string, attrs map[string]string) {
	if fto.span == nil || fto.c.tracingCollector == nil {
		return
	}

	fto.span.SetStatus(status)
	for key, value := range attrs {
		fto.span.AddAttribute(key, value)
	}

	fto.c.tracingCollector.FinishSpan(fto.span, status, attrs)
}
