package helper

import (
	"context"
	"maps"
	"sync"

	"github.com/AntonStoeckl/metapackage-catalog-go/catalog/postgresengine"
)

// CatalogSpan is one catalog operation span captured by the TracingCollectorSpy.
// The catalog receives it as its postgresengine.SpanContext, so status and attributes set by the
// catalog while finishing land here directly.
type CatalogSpan struct {
	mu sync.Mutex

	name      string
	opened    map[string]string
	annotated map[string]string
	reported  map[string]string
	outcome   string
	finished  bool
}

// SetStatus records the outcome the catalog set on the span.
func (s *CatalogSpan) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outcome = status
}

// AddAttribute records an attribute the catalog added to the open span.
func (s *CatalogSpan) AddAttribute(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.annotated[key] = value
}

func (s *CatalogSpan) finish(status string, attrs map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return
	}

	s.outcome = status
	s.reported = maps.Clone(attrs)
	s.finished = true
}

// spanView is an immutable snapshot of a CatalogSpan, taken when a matcher chain starts.
type spanView struct {
	name      string
	opened    map[string]string
	annotated map[string]string
	reported  map[string]string
	outcome   string
	finished  bool
}

func (s *CatalogSpan) view() spanView {
	s.mu.Lock()
	defer s.mu.Unlock()

	return spanView{
		name:      s.name,
		opened:    maps.Clone(s.opened),
		annotated: maps.Clone(s.annotated),
		reported:  maps.Clone(s.reported),
		outcome:   s.outcome,
		finished:  s.finished,
	}
}

// TracingCollectorSpy is a postgresengine.TracingCollector capturing the spans of catalog operations.
type TracingCollectorSpy struct {
	mu      sync.Mutex
	spans   []*CatalogSpan
	enabled bool
}

// NewTracingCollectorSpy creates a new TracingCollectorSpy.
// With enabled set to false it hands out no spans, like a collector with tracing switched off.
func NewTracingCollectorSpy(enabled bool) *TracingCollectorSpy {
	return &TracingCollectorSpy{enabled: enabled}
}

// StartSpan implements postgresengine.TracingCollector.
func (s *TracingCollectorSpy) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, postgresengine.SpanContext) {

	if !s.enabled {
		return ctx, nil
	}

	span := &CatalogSpan{
		name:      name,
		opened:    maps.Clone(attrs),
		annotated: make(map[string]string),
	}

	s.mu.Lock()
	s.spans = append(s.spans, span)
	s.mu.Unlock()

	return ctx, span
}

// FinishSpan implements postgresengine.TracingCollector.
// Spans not started by this spy and spans finished before are ignored.
func (s *TracingCollectorSpy) FinishSpan(spanCtx postgresengine.SpanContext, status string, attrs map[string]string) {
	span, ok := spanCtx.(*CatalogSpan)
	if !ok || span == nil {
		return
	}

	span.finish(status, attrs)
}

// GetSpans returns all spans started so far, in start order.
func (s *TracingCollectorSpy) GetSpans() []*CatalogSpan {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*CatalogSpan(nil), s.spans...)
}

// SpanRecordMatcher narrows the captured spans down step by step.
// It matches if at least one span passes every step of the chain.
type SpanRecordMatcher struct {
	views []spanView
}

// HasSpanRecordForName starts a matcher chain over the spans called name, e.g. "catalog.fetch_by_key".
func (s *TracingCollectorSpy) HasSpanRecordForName(name string) *SpanRecordMatcher {
	views := make([]spanView, 0)

	for _, span := range s.GetSpans() {
		if view := span.view(); view.name == name {
			views = append(views, view)
		}
	}

	return &SpanRecordMatcher{views: views}
}

// WithStatus keeps finished spans with the outcome status ("success" or "error").
func (m *SpanRecordMatcher) WithStatus(status string) *SpanRecordMatcher {
	return m.keep(func(view spanView) bool { return view.finished && view.outcome == status })
}

// WithStartAttribute keeps spans started with the attribute key set to value.
func (m *SpanRecordMatcher) WithStartAttribute(key, value string) *SpanRecordMatcher {
	return m.keep(func(view spanView) bool { return hasAttribute(view.opened, key, value) })
}

// WithEndAttribute keeps spans finished with the attribute key set to value.
func (m *SpanRecordMatcher) WithEndAttribute(key, value string) *SpanRecordMatcher {
	return m.keep(func(view spanView) bool { return hasAttribute(view.reported, key, value) })
}

// WithSpanAttribute keeps spans the catalog annotated with key set to value before finishing them.
func (m *SpanRecordMatcher) WithSpanAttribute(key, value string) *SpanRecordMatcher {
	return m.keep(func(view spanView) bool { return hasAttribute(view.annotated, key, value) })
}

func (m *SpanRecordMatcher) keep(accept func(spanView) bool) *SpanRecordMatcher {
	kept := m.views[:0:0]

	for _, view := range m.views {
		if accept(view) {
			kept = append(kept, view)
		}
	}

	m.views = kept

	return m
}

// Assert reports whether any span passed the whole chain.
func (m *SpanRecordMatcher) Assert() bool {
	return len(m.views) > 0
}

func hasAttribute(attrs map[string]string, key, value string) bool {
	got, ok := attrs[key]

	return ok && got == value
}
