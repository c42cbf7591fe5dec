package catalog

import "context"

// ConsistencyLevel defines where catalog reads may be served from.
type ConsistencyLevel int

const (
	// StrongConsistency routes reads to the primary database. The aggregate relations are
	// refreshed there first, so this is the default.
	StrongConsistency ConsistencyLevel = iota

	// EventualConsistency allows reads from a replica database when one is configured.
	// Listing pages may then lag behind the latest refresh of the aggregate relations.
	EventualConsistency
)

// contextKey is a private type to prevent context key collisions.
type contextKey string

// ConsistencyLevelKey is the context key used to store consistency level preferences.
const ConsistencyLevelKey contextKey = "catalog.consistency_level"

// WithStrongConsistency returns a context that signals catalog reads must use the primary database.
//
// Example usage:
//
//	ctx = catalog.WithStrongConsistency(ctx)
//	packages, err := store.FetchByKey(ctx, "firefox")
func WithStrongConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, StrongConsistency)
}

// WithEventualConsistency returns a context that signals catalog reads may use a replica database.
//
// Example usage:
//
//	ctx = catalog.WithEventualConsistency(ctx)
//	packages, err := store.FetchByFilters(ctx, filters, 200)
func WithEventualConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, EventualConsistency)
}

// GetConsistencyLevel extracts the consistency level from the context.
// If no consistency level is set, it returns StrongConsistency.
func GetConsistencyLevel(ctx context.Context) ConsistencyLevel {
	if level, ok := ctx.Value(ConsistencyLevelKey).(ConsistencyLevel); ok {
		return level
	}

	return StrongConsistency
}

// String provides a string representation of ConsistencyLevel for logging and debugging.
func (c ConsistencyLevel) String() string {
	switch c {
	case StrongConsistency:
		return "strong"
	case EventualConsistency:
		return "eventual"
	default:
		return "unknown"
	}
}
