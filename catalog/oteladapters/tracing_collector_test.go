package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/metapackage-catalog-go/catalog/oteladapters"
)

func Test_TracingCollector_SuccessfulFetch(t *testing.T) {
	// arrange
	exporter := tracetest.NewInMemoryExporter()
	collector := oteladapters.NewTracingCollector(newTracer(exporter))

	// act
	ctx, spanCtx := collector.StartSpan(
		context.Background(),
		"catalog.fetch_by_filters",
		map[string]string{"operation": "fetch_by_filters", "filter_count": "3"},
	)
	collector.FinishSpan(spanCtx, "success", map[string]string{
		"key_count":     "2",
		"package_count": "5",
		"duration_ms":   "1.250",
	})

	// assert
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	span := spans[0]
	assert.Equal(t, "catalog.fetch_by_filters", span.Name)
	assert.Equal(t, trace.SpanKindClient, span.SpanKind)
	assert.Equal(t, codes.Ok, span.Status.Code)
	assert.Contains(t, span.Attributes, attribute.String("operation", "fetch_by_filters"))
	assert.Contains(t, span.Attributes, attribute.Int64("filter_count", 3))
	assert.Contains(t, span.Attributes, attribute.Int64("key_count", 2))
	assert.Contains(t, span.Attributes, attribute.Int64("package_count", 5))
	assert.Contains(t, span.Attributes, attribute.Float64("duration_ms", 1.25))
}

func Test_TracingCollector_FailedFetch_DescribesTheErrorType(t *testing.T) {
	// arrange
	exporter := tracetest.NewInMemoryExporter()
	collector := oteladapters.NewTracingCollector(newTracer(exporter))

	// act
	_, spanCtx := collector.StartSpan(context.Background(), "catalog.fetch_by_key", nil)
	collector.FinishSpan(spanCtx, "error", map[string]string{"error_type": "query_packages"})

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "catalog read failed: query_packages", spans[0].Status.Description)
	assert.Contains(t, spans[0].Attributes, attribute.String("error_type", "query_packages"))
}

func Test_TracingCollector_NonNumericCount_IsKeptAsString(t *testing.T) {
	// arrange
	exporter := tracetest.NewInMemoryExporter()
	collector := oteladapters.NewTracingCollector(newTracer(exporter))

	// act
	_, spanCtx := collector.StartSpan(context.Background(), "catalog.fetch_maintainers", nil)
	spanCtx.AddAttribute("row_count", "many")
	collector.FinishSpan(spanCtx, "success", nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Contains(t, spans[0].Attributes, attribute.String("row_count", "many"))
}

func Test_TracingCollector_UnknownStatus_IsRecordedAsAttribute(t *testing.T) {
	// arrange
	exporter := tracetest.NewInMemoryExporter()
	collector := oteladapters.NewTracingCollector(newTracer(exporter))

	// act
	_, spanCtx := collector.StartSpan(context.Background(), "catalog.fetch_by_key", nil)
	collector.FinishSpan(spanCtx, "partial", nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assert.Contains(t, spans[0].Attributes, attribute.String("status", "partial"))
}

func Test_TracingCollector_FinishSpan_IgnoresForeignSpanContexts(t *testing.T) {
	// arrange
	exporter := tracetest.NewInMemoryExporter()
	collector := oteladapters.NewTracingCollector(newTracer(exporter))

	// act
	collector.FinishSpan(foreignSpanContext{}, "success", nil)

	// assert
	assert.Empty(t, exporter.GetSpans())
}

func Test_TracingCollector_NestsSpans_UnderTheCallersSpan(t *testing.T) {
	// arrange
	exporter := tracetest.NewInMemoryExporter()
	tracer := newTracer(exporter)
	collector := oteladapters.NewTracingCollector(tracer)
	parentCtx, parent := tracer.Start(context.Background(), "http.request")

	// act
	_, spanCtx := collector.StartSpan(parentCtx, "catalog.fetch_by_key", nil)
	collector.FinishSpan(spanCtx, "success", nil)
	parent.End()

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, parent.SpanContext().TraceID(), spans[0].SpanContext.TraceID())
	assert.Equal(t, parent.SpanContext().SpanID(), spans[0].Parent.SpanID())
}

func newTracer(exporter *tracetest.InMemoryExporter) trace.Tracer {
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	return provider.Tracer("catalog-test")
}

type foreignSpanContext struct{}

func (foreignSpanContext) SetStatus(string) {}

func (foreignSpanContext) AddAttribute(string, string) {}
