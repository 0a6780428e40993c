package subscription

import (
	"github.com/c360/quakerelay/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// managerMetrics tracks fan-out volume and current subscriber count for a
// Manager (SPEC_FULL.md section 4.12).
type managerMetrics struct {
	fannedOut   prometheus.Counter
	subscribers prometheus.Gauge
}

func newManagerMetrics(registry *metric.MetricsRegistry) (*managerMetrics, error) {
	m := &managerMetrics{
		fannedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quakerelay",
			Subsystem: "subscription",
			Name:      "packets_fanned_out_total",
			Help:      "Total packets published to a stream for downstream fan-out",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quakerelay",
			Subsystem: "subscription",
			Name:      "subscribers",
			Help:      "Current number of distinct downstream subscribers",
		}),
	}

	if err := registry.RegisterCounter("subscription", "packets_fanned_out", m.fannedOut); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge("subscription", "subscribers", m.subscribers); err != nil {
		return nil, err
	}
	return m, nil
}
