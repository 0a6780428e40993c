package cache

// NewSimple creates a new Simple cache with no eviction policy. Stats are
// always enabled for observability. Use WithMetrics() to also export as
// Prometheus metrics.
//
// This is the only cache constructor quakerelay wires up: the subscription
// manager's single-key subscriber-count cache (internal/subscription) never
// needs size- or time-based eviction, so the LRU/TTL/Hybrid strategies this
// package used to offer (and the JSON-configurable Strategy selector that
// picked between them) have no caller and were dropped rather than kept
// unexercised.
func NewSimple[V any](options ...Option[V]) (Cache[V], error) {
	opts := applyOptions(options...)
	return newSimpleCache[V](opts)
}
