// Package helper provides testing utilities for the PostgreSQL catalog test suite.
//
// It creates the catalog schema in the test database, seeds namespaced package fixtures,
// and contains spies for logging, metrics and tracing that capture what the catalog reports.
package helper
