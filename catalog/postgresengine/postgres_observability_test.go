package postgresengine_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/metapackage-catalog-go/catalog"
	"github.com/AntonStoeckl/metapackage-catalog-go/catalog/postgresengine"
	. "github.com/AntonStoeckl/metapackage-catalog-go/testutil/postgresengine/helper" //nolint:revive
)

func Test_Observability_SortOrderConflict_IsReported_BeforeAnyDatabaseAccess(t *testing.T) {
	// setup
	logHandler := NewLogHandlerSpy(false)
	metricsCollector := NewMetricsCollectorSpy(true)
	tracingCollector := NewTracingCollectorSpy(true)

	store, err := postgresengine.NewCatalogFromSQLDB(
		lazySQLDB(t),
		postgresengine.WithLogger(slog.New(logHandler)),
		postgresengine.WithMetrics(metricsCollector),
		postgresengine.WithTracing(tracingCollector),
	)
	require.NoError(t, err)

	// act
	packages, fetchErr := store.FetchByFilters(
		context.Background(),
		[]catalog.Filter{catalog.NameAfter("a"), catalog.NameBefore("z")},
		10,
	)

	// assert
	assert.ErrorIs(t, fetchErr, catalog.ErrSortOrderConflict)
	assert.Nil(t, packages)

	assert.True(t, logHandler.HasErrorLogWithMessage("failed to compose metapackage query").
		WithIntAttr("filter_count", 2).
		Assert())
	assert.False(t, logHandler.HasDebugLogWithMessage("executed sql for: query_keys").Assert(),
		"no query must be executed")

	assert.True(t, metricsCollector.HasCounterRecordForMetric("catalog_sort_conflicts_total").
		WithOperation("fetch_by_filters").
		WithLabel("conflict_type", "sort_order").
		WithContext().
		Assert())
	assert.True(t, metricsCollector.HasCounterRecordForMetric("catalog_database_errors_total").
		WithErrorType("compose").
		Assert())
	assert.True(t, metricsCollector.HasDurationRecordForMetric("catalog_fetch_duration_seconds").
		WithOperation("fetch_by_filters").
		WithStatus("error").
		Assert())

	assert.True(t, tracingCollector.HasSpanRecordForName("catalog.fetch_by_filters").
		WithStartAttribute("operation", "fetch_by_filters").
		WithStartAttribute("filter_count", "2").
		WithStatus("error").
		WithEndAttribute("error_type", "compose").
		WithSpanAttribute("error_type", "compose").
		Assert())
}

func Test_Observability_PlainMetricsCollector_IsUsed_WithoutContextSupport(t *testing.T) {
	// setup
	metricsCollector := NewMetricsCollectorSpy(true)

	store, err := postgresengine.NewCatalogFromSQLDB(
		lazySQLDB(t),
		postgresengine.WithMetrics(metricsCollector.WithoutContextSupport()),
	)
	require.NoError(t, err)

	// act
	_, fetchErr := store.FetchByFilters(
		context.Background(),
		[]catalog.Filter{catalog.NameBefore("z"), catalog.NameStartingFrom("a")},
		10,
	)

	// assert
	assert.ErrorIs(t, fetchErr, catalog.ErrSortOrderConflict)
	assert.True(t, metricsCollector.HasCounterRecordForMetric("catalog_sort_conflicts_total").Assert())
	assert.False(t, metricsCollector.HasCounterRecordForMetric("catalog_sort_conflicts_total").WithContext().Assert())
}

func Test_Observability_FailingSession_IsReported_AsBeginSessionError(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logHandler := NewLogHandlerSpy(false)
	contextualLogger := NewContextualLoggerSpy(true)
	metricsCollector := NewMetricsCollectorSpy(true)
	tracingCollector := NewTracingCollectorSpy(true)

	store, err := postgresengine.NewCatalogFromSQLDB(
		lazySQLDB(t),
		postgresengine.WithLogger(slog.New(logHandler)),
		postgresengine.WithContextualLogger(contextualLogger),
		postgresengine.WithMetrics(metricsCollector),
		postgresengine.WithTracing(tracingCollector),
	)
	require.NoError(t, err)

	// act
	packages, fetchErr := store.FetchByFilters(ctx, []catalog.Filter{catalog.InRepository("debian")}, 10)

	// assert
	assert.ErrorIs(t, fetchErr, catalog.ErrBeginningSessionFailed)
	assert.Nil(t, packages)

	assert.True(t, logHandler.HasErrorLogWithMessage("failed to begin read session").WithAttr("error").Assert())
	assert.True(t, contextualLogger.HasRecord("error", "failed to begin read session", nil))

	assert.True(t, metricsCollector.HasCounterRecordForMetric("catalog_database_errors_total").
		WithOperation("fetch_by_filters").
		WithErrorType("begin_session").
		Assert())
	assert.False(t, metricsCollector.HasValueRecordForMetric("catalog_keys_matched").Assert())

	assert.True(t, tracingCollector.HasSpanRecordForName("catalog.fetch_by_filters").
		WithStatus("error").
		WithEndAttribute("error_type", "begin_session").
		Assert())
}

func Test_Observability_FailingListing_IsReported_AsListingError(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	metricsCollector := NewMetricsCollectorSpy(true)
	tracingCollector := NewTracingCollectorSpy(true)

	store, err := postgresengine.NewCatalogFromSQLDB(
		lazySQLDB(t),
		postgresengine.WithMetrics(metricsCollector),
		postgresengine.WithTracing(tracingCollector),
	)
	require.NoError(t, err)

	// act
	maintainers, fetchErr := store.FetchMaintainers(ctx, 0, 10)

	// assert
	assert.ErrorIs(t, fetchErr, catalog.ErrQueryingListingFailed)
	assert.Nil(t, maintainers)
	assert.True(t, metricsCollector.HasCounterRecordForMetric("catalog_database_errors_total").
		WithOperation("fetch_maintainers").
		WithErrorType("query_listing").
		Assert())
	assert.True(t, tracingCollector.HasSpanRecordForName("catalog.fetch_maintainers").
		WithStatus("error").
		Assert())
}

func Test_Observability_WithoutCollectors_NothingPanics(t *testing.T) {
	// setup
	store, err := postgresengine.NewCatalogFromSQLDB(lazySQLDB(t))
	require.NoError(t, err)

	// act
	_, fetchErr := store.FetchByFilters(
		context.Background(),
		[]catalog.Filter{catalog.NameAfter("a"), catalog.NameBefore("z")},
		0,
	)

	// assert
	assert.ErrorIs(t, fetchErr, catalog.ErrSortOrderConflict)
}
