package postgresengine

import (
	"context"
	"time"

	"github.com/AntonStoeckl/metapackage-catalog-go/catalog"
)

// Logger interface for SQL query logging, operational summaries, warnings, and error reporting.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsCollector interface for collecting catalog query durations, result sizes and error counts.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// SpanContext represents an active tracing span that can be finished and updated with attributes.
type SpanContext interface {
	SetStatus(status string)
	AddAttribute(key, value string)
}

// TracingCollector interface for collecting distributed tracing information from catalog reads.
type TracingCollector interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext)
	FinishSpan(spanCtx SpanContext, status string, attrs map[string]string)
}

// ContextualLogger interface for context-aware logging with automatic trace correlation.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// Option defines a functional option for configuring Catalog.
type Option func(*Catalog) error

// WithPackagesTable sets the name of the raw packages table.
func WithPackagesTable(tableName string) Option {
	return func(c *Catalog) error {
		if tableName == "" {
			return catalog.ErrEmptyRelationName
		}

		c.packagesTableName = tableName

		return nil
	}
}

// WithRepoMetapackagesRelation sets the name of the per-key-per-repository aggregate relation.
func WithRepoMetapackagesRelation(name string) Option {
	return withComposerRelation(catalog.RepoMetapackages, name)
}

// WithMaintainerMetapackagesRelation sets the name of the per-key-per-maintainer aggregate relation.
func WithMaintainerMetapackagesRelation(name string) Option {
	return withComposerRelation(catalog.MaintainerMetapackages, name)
}

// WithRepoCountsRelation sets the name of the per-key repository/family count relation.
func WithRepoCountsRelation(name string) Option {
	return withComposerRelation(catalog.MetapackageRepoCounts, name)
}

func withComposerRelation(relation catalog.Relation, name string) Option {
	return func(c *Catalog) error {
		composer, err := c.composer.WithRelationName(relation, name)
		if err != nil {
			return err
		}

		c.composer = composer

		return nil
	}
}

// WithMaintainersRelation sets the name of the per-maintainer aggregate relation used by FetchMaintainers.
func WithMaintainersRelation(name string) Option {
	return func(c *Catalog) error {
		if name == "" {
			return catalog.ErrEmptyRelationName
		}

		c.maintainersRelationName = name

		return nil
	}
}

// WithRepositoriesTable sets the name of the repository summary table used by FetchRepositories.
func WithRepositoriesTable(tableName string) Option {
	return func(c *Catalog) error {
		if tableName == "" {
			return catalog.ErrEmptyRelationName
		}

		c.repositoriesTableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the Catalog.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Info level: Key and package counts, durations (production-safe)
// Warn level: Non-critical issues like rollback or cleanup failures
// Error level: Failures that cause the operation to fail.
func WithLogger(logger Logger) Option {
	return func(c *Catalog) error {
		c.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Catalog.
func WithMetrics(collector MetricsCollector) Option {
	return func(c *Catalog) error {
		c.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Catalog.
func WithTracing(collector TracingCollector) Option {
	return func(c *Catalog) error {
		c.tracingCollector = collector
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Catalog.
// Messages logged through it carry the context of the operation, so trace/span correlation works.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(c *Catalog) error {
		c.contextualLogger = logger
		return nil
	}
}
