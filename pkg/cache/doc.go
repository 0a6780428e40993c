// Package cache provides a generic, thread-safe single-key value cache with
// built-in statistics tracking and optional Prometheus metrics integration.
//
// # Overview
//
// quakerelay uses exactly one cache shape: a Simple cache with no eviction
// policy, used by internal/subscription.Manager to memoize the current
// subscriber count until the next membership change invalidates it. The
// package used to also offer LRU, TTL, and Hybrid eviction strategies
// (inherited from the source framework this module was adapted from), but
// nothing in this service ever needed size- or time-based eviction, so those
// strategies were dropped rather than kept unused - see DESIGN.md.
//
// # Quick Start
//
//	c, err := cache.NewSimple[int]()
//	if err != nil {
//		log.Fatal(err)
//	}
//	c.Set("subscriberCount", 3)
//	value, ok := c.Get("subscriberCount")
//
// # Observability
//
// Statistics are always tracked via atomic counters and available through
// Stats(), independent of whether Prometheus metrics are enabled:
//
//	stats := c.Stats()
//	fmt.Println(stats.Hits(), stats.Misses(), stats.HitRatio())
//
// Prometheus metrics are opt-in via WithMetrics:
//
//	c, err := cache.NewSimple[int](cache.WithMetrics[int](registry, "subscriber_count"))
//
// # Thread Safety
//
// All operations are safe for concurrent use: reads take an RWMutex read
// lock, writes take the write lock, and statistics use atomic operations.
package cache
