package helper

import (
	"context"
	"sync"
	"time"

	"github.com/AntonStoeckl/metapackage-catalog-go/catalog/postgresengine"
)

// MetricsCollectorSpy is a MetricsCollector implementation that captures metrics calls for testing.
// It also implements the contextual variant, so tests can verify which of both the Catalog uses.
type MetricsCollectorSpy struct {
	records     []SpyMetricRecord
	mu          sync.Mutex
	recordCalls bool
}

// SpyMetricKind tells which collector method produced a SpyMetricRecord.
type SpyMetricKind string

const (
	SpyDuration SpyMetricKind = "duration"
	SpyCounter  SpyMetricKind = "counter"
	SpyValue    SpyMetricKind = "value"
)

// SpyMetricRecord represents one recorded metrics call.
type SpyMetricRecord struct {
	Kind        SpyMetricKind
	Metric      string
	Duration    time.Duration
	Value       float64
	Labels      map[string]string
	WithContext bool
}

// NewMetricsCollectorSpy creates a new MetricsCollectorSpy.
// Set recordCalls to true to capture all metrics calls for inspection in tests.
func NewMetricsCollectorSpy(recordCalls bool) *MetricsCollectorSpy {
	return &MetricsCollectorSpy{
		records:     make([]SpyMetricRecord, 0),
		recordCalls: recordCalls,
	}
}

// RecordDuration implements the MetricsCollector interface.
func (s *MetricsCollectorSpy) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	s.record(SpyMetricRecord{Kind: SpyDuration, Metric: metric, Duration: duration, Labels: labels})
}

// IncrementCounter implements the MetricsCollector interface.
func (s *MetricsCollectorSpy) IncrementCounter(metric string, labels map[string]string) {
	s.record(SpyMetricRecord{Kind: SpyCounter, Metric: metric, Labels: labels})
}

// RecordValue implements the MetricsCollector interface.
func (s *MetricsCollectorSpy) RecordValue(metric string, value float64, labels map[string]string) {
	s.record(SpyMetricRecord{Kind: SpyValue, Metric: metric, Value: value, Labels: labels})
}

// RecordDurationContext implements the ContextualMetricsCollector interface.
func (s *MetricsCollectorSpy) RecordDurationContext(
	_ context.Context,
	metric string,
	duration time.Duration,
	labels map[string]string,
) {
	s.record(SpyMetricRecord{Kind: SpyDuration, Metric: metric, Duration: duration, Labels: labels, WithContext: true})
}

// IncrementCounterContext implements the ContextualMetricsCollector interface.
func (s *MetricsCollectorSpy) IncrementCounterContext(_ context.Context, metric string, labels map[string]string) {
	s.record(SpyMetricRecord{Kind: SpyCounter, Metric: metric, Labels: labels, WithContext: true})
}

// RecordValueContext implements the ContextualMetricsCollector interface.
func (s *MetricsCollectorSpy) RecordValueContext(
	_ context.Context,
	metric string,
	value float64,
	labels map[string]string,
) {
	s.record(SpyMetricRecord{Kind: SpyValue, Metric: metric, Value: value, Labels: labels, WithContext: true})
}

func (s *MetricsCollectorSpy) record(record SpyMetricRecord) {
	if !s.recordCalls {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	labelsCopy := make(map[string]string, len(record.Labels))
	for k, v := range record.Labels {
		labelsCopy[k] = v
	}
	record.Labels = labelsCopy

	s.records = append(s.records, record)
}

// WithoutContextSupport returns a view of the spy that implements only the plain MetricsCollector methods.
func (s *MetricsCollectorSpy) WithoutContextSupport() postgresengine.MetricsCollector {
	return plainMetricsCollector{spy: s}
}

type plainMetricsCollector struct {
	spy *MetricsCollectorSpy
}

func (p plainMetricsCollector) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	p.spy.RecordDuration(metric, duration, labels)
}

func (p plainMetricsCollector) IncrementCounter(metric string, labels map[string]string) {
	p.spy.IncrementCounter(metric, labels)
}

func (p plainMetricsCollector) RecordValue(metric string, value float64, labels map[string]string) {
	p.spy.RecordValue(metric, value, labels)
}

// GetRecords returns a copy of all captured records.
func (s *MetricsCollectorSpy) GetRecords() []SpyMetricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]SpyMetricRecord, len(s.records))
	copy(records, s.records)

	return records
}

// Reset clears all captured records.
func (s *MetricsCollectorSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = s.records[:0]
}

// MetricRecordMatcher provides a fluent interface for checking metric records.
// It matches if at least one record satisfies all checks of the chain.
type MetricRecordMatcher struct {
	candidates []SpyMetricRecord
}

// HasDurationRecordForMetric starts a fluent chain to check a duration record.
func (s *MetricsCollectorSpy) HasDurationRecordForMetric(metric string) *MetricRecordMatcher {
	return s.matcherFor(SpyDuration, metric)
}

// HasCounterRecordForMetric starts a fluent chain to check a counter record.
func (s *MetricsCollectorSpy) HasCounterRecordForMetric(metric string) *MetricRecordMatcher {
	return s.matcherFor(SpyCounter, metric)
}

// HasValueRecordForMetric starts a fluent chain to check a value record.
func (s *MetricsCollectorSpy) HasValueRecordForMetric(metric string) *MetricRecordMatcher {
	return s.matcherFor(SpyValue, metric)
}

func (s *MetricsCollectorSpy) matcherFor(kind SpyMetricKind, metric string) *MetricRecordMatcher {
	candidates := make([]SpyMetricRecord, 0)
	for _, record := range s.GetRecords() {
		if record.Kind == kind && record.Metric == metric {
			candidates = append(candidates, record)
		}
	}

	return &MetricRecordMatcher{candidates: candidates}
}

// WithOperation keeps records with the specified operation label.
func (m *MetricRecordMatcher) WithOperation(operation string) *MetricRecordMatcher {
	return m.WithLabel("operation", operation)
}

// WithStatus keeps records with the specified status label.
func (m *MetricRecordMatcher) WithStatus(status string) *MetricRecordMatcher {
	return m.WithLabel("status", status)
}

// WithErrorType keeps records with the specified error_type label.
func (m *MetricRecordMatcher) WithErrorType(errorType string) *MetricRecordMatcher {
	return m.WithLabel("error_type", errorType)
}

// WithValue keeps records with exactly the recorded value.
func (m *MetricRecordMatcher) WithValue(value float64) *MetricRecordMatcher {
	return m.where(func(record SpyMetricRecord) bool { return record.Value == value })
}

// WithContext keeps records made through the contextual collector methods.
func (m *MetricRecordMatcher) WithContext() *MetricRecordMatcher {
	return m.where(func(record SpyMetricRecord) bool { return record.WithContext })
}

// WithLabel keeps records with the specified label.
func (m *MetricRecordMatcher) WithLabel(key, value string) *MetricRecordMatcher {
	return m.where(func(record SpyMetricRecord) bool { return record.Labels[key] == value })
}

func (m *MetricRecordMatcher) where(accept func(SpyMetricRecord) bool) *MetricRecordMatcher {
	kept := make([]SpyMetricRecord, 0, len(m.candidates))
	for _, record := range m.candidates {
		if accept(record) {
			kept = append(kept, record)
		}
	}

	m.candidates = kept

	return m
}

// Assert returns true if all conditions in the fluent chain were met.
func (m *MetricRecordMatcher) Assert() bool {
	return len(m.candidates) > 0
}

// Count returns the number of records satisfying the chain.
func (m *MetricRecordMatcher) Count() int {
	return len(m.candidates)
}
