// Package promadapters provides a Prometheus implementation of catalog.MetricsCollector.
//
// Metrics are registered on first use, with the label names of that first call:
//
//	collector := promadapters.NewMetricsCollector(promadapters.WithRegisterer(registry))
//	store, _ := postgresengine.NewCatalogFromPGXPool(db, postgresengine.WithMetrics(collector))
//
// Expose them with promhttp.HandlerFor(registry, promhttp.HandlerOpts{}) as usual.
package promadapters
