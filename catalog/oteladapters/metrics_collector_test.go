package oteladapters_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AntonStoeckl/metapackage-catalog-go/catalog/oteladapters"
)

func Test_MetricsCollector_RecordDuration_InSeconds(t *testing.T) {
	// arrange
	reader, collector := newMetricsCollector()
	labels := map[string]string{"operation": "fetch_by_key", "status": "success"}

	// act
	collector.RecordDuration("catalog_fetch_duration_seconds", 500*time.Millisecond, labels)
	collector.RecordDurationContext(context.Background(), "catalog_fetch_duration_seconds", 250*time.Millisecond, labels)

	// assert
	data := collectMetric(t, reader, "catalog_fetch_duration_seconds")
	histogram, ok := data.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, histogram.DataPoints, 1)
	assert.Equal(t, "s", data.Unit)
	assert.Equal(t, uint64(2), histogram.DataPoints[0].Count)
	assert.InDelta(t, 0.75, histogram.DataPoints[0].Sum, 1e-9)

	operation, found := histogram.DataPoints[0].Attributes.Value(attribute.Key("operation"))
	assert.True(t, found)
	assert.Equal(t, "fetch_by_key", operation.AsString())
}

func Test_MetricsCollector_IncrementCounter(t *testing.T) {
	// arrange
	reader, collector := newMetricsCollector()
	labels := map[string]string{"operation": "fetch_by_filters", "error_type": "query_keys"}

	// act
	collector.IncrementCounter("catalog_database_errors_total", labels)
	collector.IncrementCounterContext(context.Background(), "catalog_database_errors_total", labels)

	// assert
	data := collectMetric(t, reader, "catalog_database_errors_total")
	sum, ok := data.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.True(t, sum.IsMonotonic)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
}

func Test_MetricsCollector_RecordValue_KeepsTheLastValue(t *testing.T) {
	// arrange
	reader, collector := newMetricsCollector()
	labels := map[string]string{"operation": "fetch_by_filters"}

	// act
	collector.RecordValue("catalog_keys_matched", 200, labels)
	collector.RecordValueContext(context.Background(), "catalog_keys_matched", 17, labels)

	// assert
	data := collectMetric(t, reader, "catalog_keys_matched")
	gauge, ok := data.Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.InDelta(t, 17.0, gauge.DataPoints[0].Value, 1e-9)
}

func Test_MetricsCollector_IsSafeForConcurrentUse(t *testing.T) {
	// arrange
	reader, collector := newMetricsCollector()
	var wg sync.WaitGroup

	// act
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.IncrementCounter("catalog_sort_conflicts_total", map[string]string{"conflict_type": "sort_order"})
		}()
	}
	wg.Wait()

	// assert
	data := collectMetric(t, reader, "catalog_sort_conflicts_total")
	sum, ok := data.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(20), sum.DataPoints[0].Value)
}

func newMetricsCollector() (*sdkmetric.ManualReader, *oteladapters.MetricsCollector) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return reader, oteladapters.NewMetricsCollector(provider.Meter("catalog-test"))
}

func collectMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Metrics {
	t.Helper()

	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &resourceMetrics))

	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if m.Name == name {
				return m
			}
		}
	}

	require.Failf(t, "metric not collected", "no metric named %s", name)

	return metricdata.Metrics{}
}
