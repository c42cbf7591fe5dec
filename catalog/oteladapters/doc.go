// Package oteladapters provides OpenTelemetry implementations of the catalog observability interfaces:
// SlogBridgeLogger and OTelLogger for catalog.ContextualLogger, MetricsCollector for
// catalog.ContextualMetricsCollector and TracingCollector for catalog.TracingCollector.
//
// It is a separate module, so the catalog itself does not depend on OpenTelemetry.
//
//	store, _ := postgresengine.NewCatalogFromPGXPool(
//		db,
//		postgresengine.WithTracing(oteladapters.NewTracingCollector(otel.Tracer("catalog"))),
//		postgresengine.WithMetrics(oteladapters.NewMetricsCollector(otel.Meter("catalog"))),
//		postgresengine.WithContextualLogger(oteladapters.NewSlogBridgeLogger("catalog")),
//	)
package oteladapters
