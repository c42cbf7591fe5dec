package oteladapters

import (
	"context"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/metapackage-catalog-go/catalog"
)

const (
	statusSuccess     = "success"
	statusError       = "error"
	attrErrorType     = "error_type"
	attrDurationMS    = "duration_ms"
	countAttrSuffix   = "_count"
	fallbackErrorDesc = "catalog read failed"
)

// TracingCollector implements catalog.TracingCollector using the OpenTelemetry tracing API.
// Count attributes (key_count, package_count, ...) are recorded as integers and duration_ms as a float,
// everything else as strings.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a TracingCollector using a tracer from your TracerProvider.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan starts a client span and returns a context carrying it.
func (t *TracingCollector) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, catalog.SpanContext) {

	spanCtx, span := t.tracer.Start(
		ctx,
		name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(toSpanAttributes(attrs)...),
	)

	return spanCtx, &OTelSpanContext{span: span}
}

// FinishSpan adds attrs, sets the status and ends the span.
// SpanContexts not created by this collector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx catalog.SpanContext, status string, attrs map[string]string) {
	otelSpanCtx, ok := spanCtx.(*OTelSpanContext)
	if !ok {
		return
	}

	otelSpanCtx.span.SetAttributes(toSpanAttributes(attrs)...)

	if status == statusError {
		otelSpanCtx.errorType = attrs[attrErrorType]
	}

	otelSpanCtx.SetStatus(status)
	otelSpanCtx.span.End()
}

var _ catalog.TracingCollector = (*TracingCollector)(nil)

// OTelSpanContext implements catalog.SpanContext by wrapping an OpenTelemetry span.
type OTelSpanContext struct {
	span      trace.Span
	errorType string
}

// SetStatus maps "success" to codes.Ok and "error" to codes.Error.
// Any other status is recorded as a "status" attribute.
func (s *OTelSpanContext) SetStatus(status string) {
	switch status {
	case statusSuccess:
		s.span.SetStatus(codes.Ok, "")
	case statusError:
		description := fallbackErrorDesc
		if s.errorType != "" {
			description = fallbackErrorDesc + ": " + s.errorType
		}

		s.span.SetStatus(codes.Error, description)
	default:
		s.span.SetAttributes(attribute.String("status", status))
	}
}

// AddAttribute adds an attribute to the span.
func (s *OTelSpanContext) AddAttribute(key, value string) {
	if key == attrErrorType {
		s.errorType = value
	}

	s.span.SetAttributes(toSpanAttribute(key, value))
}

var _ catalog.SpanContext = (*OTelSpanContext)(nil)

func toSpanAttributes(attrs map[string]string) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for key, value := range attrs {
		kvs = append(kvs, toSpanAttribute(key, value))
	}

	return kvs
}

func toSpanAttribute(key, value string) attribute.KeyValue {
	switch {
	case strings.HasSuffix(key, countAttrSuffix):
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return attribute.Int64(key, n)
		}
	case key == attrDurationMS:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return attribute.Float64(key, f)
		}
	}

	return attribute.String(key, value)
}
