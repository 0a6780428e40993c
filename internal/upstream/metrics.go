package upstream

import (
	"github.com/c360/quakerelay/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// subscriberMetrics tracks reconnect volume for a Subscriber
// (SPEC_FULL.md section 4.12).
type subscriberMetrics struct {
	reconnects prometheus.Counter
}

func newSubscriberMetrics(registry *metric.MetricsRegistry) (*subscriberMetrics, error) {
	m := &subscriberMetrics{
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quakerelay",
			Subsystem: "upstream",
			Name:      "reconnects_total",
			Help:      "Total times the upstream subscriber has reconnected after a dropped stream",
		}),
	}

	if err := registry.RegisterCounter("upstream", "reconnects", m.reconnects); err != nil {
		return nil, err
	}
	return m, nil
}
