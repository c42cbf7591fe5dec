package promadapters

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AntonStoeckl/metapackage-catalog-go/catalog"
)

// DefaultDurationBuckets are the histogram buckets, in seconds, used for RecordDuration.
var DefaultDurationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// MetricsCollector implements catalog.MetricsCollector on top of Prometheus vectors:
//   - RecordDuration -> HistogramVec (seconds)
//   - IncrementCounter -> CounterVec
//   - RecordValue -> GaugeVec
//
// A metric name always maps to one vector whose label names are fixed by the first call.
// Calls with a different label set for the same name are dropped and counted in Dropped.
type MetricsCollector struct {
	registerer prometheus.Registerer
	buckets    []float64

	mu         sync.Mutex
	histograms map[string]*prometheus.HistogramVec
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	dropped    int
}

// Option configures a MetricsCollector.
type Option func(*MetricsCollector)

// WithRegisterer registers all metrics on r instead of prometheus.DefaultRegisterer.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(m *MetricsCollector) {
		m.registerer = r
	}
}

// WithDurationBuckets overrides DefaultDurationBuckets.
func WithDurationBuckets(buckets []float64) Option {
	return func(m *MetricsCollector) {
		m.buckets = buckets
	}
}

// NewMetricsCollector creates a MetricsCollector.
func NewMetricsCollector(options ...Option) *MetricsCollector {
	m := &MetricsCollector{
		registerer: prometheus.DefaultRegisterer,
		buckets:    DefaultDurationBuckets,
		histograms: make(map[string]*prometheus.HistogramVec),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}

	for _, option := range options {
		option(m)
	}

	return m
}

// RecordDuration observes duration in seconds.
func (m *MetricsCollector) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	vec, ok := m.histograms[metric]
	if !ok {
		vec = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: metric, Help: helpFor(metric), Buckets: m.buckets},
			labelNames(labels),
		)

		if vec, ok = register(m.registerer, vec); !ok {
			m.dropped++
			return
		}

		m.histograms[metric] = vec
	}

	observer, err := vec.GetMetricWith(labels)
	if err != nil {
		m.dropped++
		return
	}

	observer.Observe(duration.Seconds())
}

// IncrementCounter increments the counter by one.
func (m *MetricsCollector) IncrementCounter(metric string, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	vec, ok := m.counters[metric]
	if !ok {
		vec = prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: metric, Help: helpFor(metric)},
			labelNames(labels),
		)

		if vec, ok = register(m.registerer, vec); !ok {
			m.dropped++
			return
		}

		m.counters[metric] = vec
	}

	counter, err := vec.GetMetricWith(labels)
	if err != nil {
		m.dropped++
		return
	}

	counter.Inc()
}

// RecordValue sets the gauge to value.
func (m *MetricsCollector) RecordValue(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	vec, ok := m.gauges[metric]
	if !ok {
		vec = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: metric, Help: helpFor(metric)},
			labelNames(labels),
		)

		if vec, ok = register(m.registerer, vec); !ok {
			m.dropped++
			return
		}

		m.gauges[metric] = vec
	}

	gauge, err := vec.GetMetricWith(labels)
	if err != nil {
		m.dropped++
		return
	}

	gauge.Set(value)
}

// Dropped returns the number of recordings that could not be mapped onto a registered vector.
func (m *MetricsCollector) Dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.dropped
}

// register registers vec, or returns the already registered collector of the same type.
func register[V prometheus.Collector](registerer prometheus.Registerer, vec V) (V, bool) {
	err := registerer.Register(vec)
	if err == nil {
		return vec, true
	}

	var alreadyRegistered prometheus.AlreadyRegisteredError
	if errors.As(err, &alreadyRegistered) {
		if existing, ok := alreadyRegistered.ExistingCollector.(V); ok {
			return existing, true
		}
	}

	var zero V
	return zero, false
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

func helpFor(metric string) string {
	return "Metapackage catalog metric " + metric + "."
}

var _ catalog.MetricsCollector = (*MetricsCollector)(nil)
