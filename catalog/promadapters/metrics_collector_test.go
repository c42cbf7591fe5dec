package promadapters_test

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/metapackage-catalog-go/catalog/promadapters"
)

func Test_MetricsCollector_IncrementCounter(t *testing.T) {
	// arrange
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(promadapters.WithRegisterer(registry))
	labels := map[string]string{"operation": "fetch_by_key", "status": "error", "error_type": "query_packages"}

	// act
	collector.IncrementCounter("catalog_database_errors_total", labels)
	collector.IncrementCounter("catalog_database_errors_total", labels)

	// assert
	expected := `
# HELP catalog_database_errors_total Metapackage catalog metric catalog_database_errors_total.
# TYPE catalog_database_errors_total counter
catalog_database_errors_total{error_type="query_packages",operation="fetch_by_key",status="error"} 2
`
	err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "catalog_database_errors_total")
	assert.NoError(t, err)
}

func Test_MetricsCollector_RecordValue_SetsTheGauge(t *testing.T) {
	// arrange
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(promadapters.WithRegisterer(registry))
	labels := map[string]string{"operation": "fetch_by_filters", "status": "success"}

	// act
	collector.RecordValue("catalog_keys_matched", 7, labels)
	collector.RecordValue("catalog_keys_matched", 3, labels)

	// assert
	expected := `
# HELP catalog_keys_matched Metapackage catalog metric catalog_keys_matched.
# TYPE catalog_keys_matched gauge
catalog_keys_matched{operation="fetch_by_filters",status="success"} 3
`
	err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "catalog_keys_matched")
	assert.NoError(t, err)
}

func Test_MetricsCollector_RecordDuration_ObservesSeconds(t *testing.T) {
	// arrange
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(
		promadapters.WithRegisterer(registry),
		promadapters.WithDurationBuckets([]float64{0.3, 1}),
	)

	// act
	collector.RecordDuration("catalog_fetch_duration_seconds", 500*time.Millisecond, map[string]string{"operation": "fetch_by_key"})
	collector.RecordDuration("catalog_fetch_duration_seconds", 250*time.Millisecond, map[string]string{"operation": "fetch_by_key"})

	// assert
	expected := `
# HELP catalog_fetch_duration_seconds Metapackage catalog metric catalog_fetch_duration_seconds.
# TYPE catalog_fetch_duration_seconds histogram
catalog_fetch_duration_seconds_bucket{operation="fetch_by_key",le="0.3"} 1
catalog_fetch_duration_seconds_bucket{operation="fetch_by_key",le="1"} 2
catalog_fetch_duration_seconds_bucket{operation="fetch_by_key",le="+Inf"} 2
catalog_fetch_duration_seconds_sum{operation="fetch_by_key"} 0.75
catalog_fetch_duration_seconds_count{operation="fetch_by_key"} 2
`
	err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "catalog_fetch_duration_seconds")
	assert.NoError(t, err)
}

func Test_MetricsCollector_DropsRecordings_WithDifferentLabelNames(t *testing.T) {
	// arrange
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(promadapters.WithRegisterer(registry))

	// act
	collector.IncrementCounter("catalog_sort_conflicts_total", map[string]string{"operation": "fetch_by_filters"})
	collector.IncrementCounter("catalog_sort_conflicts_total", map[string]string{"conflict_type": "sort_order"})

	// assert
	count, err := testutil.GatherAndCount(registry, "catalog_sort_conflicts_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, collector.Dropped())
}

func Test_MetricsCollector_ReusesVectors_AlreadyRegisteredByAnotherCollector(t *testing.T) {
	// arrange
	registry := prometheus.NewRegistry()
	first := promadapters.NewMetricsCollector(promadapters.WithRegisterer(registry))
	second := promadapters.NewMetricsCollector(promadapters.WithRegisterer(registry))
	labels := map[string]string{"operation": "fetch_by_key", "status": "error"}

	// act
	first.IncrementCounter("catalog_database_errors_total", labels)
	second.IncrementCounter("catalog_database_errors_total", labels)

	// assert
	expected := `
# HELP catalog_database_errors_total Metapackage catalog metric catalog_database_errors_total.
# TYPE catalog_database_errors_total counter
catalog_database_errors_total{operation="fetch_by_key",status="error"} 2
`
	err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "catalog_database_errors_total")
	assert.NoError(t, err)
	assert.Zero(t, second.Dropped())
}
