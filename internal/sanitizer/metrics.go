package sanitizer

import (
	"github.com/c360/quakerelay/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// detectorMetrics tracks packets seen and rejected per detector, labeled by
// detector name so a single CounterVec pair covers all three stages of the
// pipeline (SPEC_FULL.md section 4.12).
type detectorMetrics struct {
	received *prometheus.CounterVec
	rejected *prometheus.CounterVec
}

func newDetectorMetrics(registry *metric.MetricsRegistry) (*detectorMetrics, error) {
	m := &detectorMetrics{
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quakerelay",
			Subsystem: "sanitizer",
			Name:      "packets_received_total",
			Help:      "Total packets evaluated by each sanitizer detector",
		}, []string{"detector"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quakerelay",
			Subsystem: "sanitizer",
			Name:      "packets_rejected_total",
			Help:      "Total packets rejected by each sanitizer detector",
		}, []string{"detector"}),
	}

	if err := registry.RegisterCounterVec("sanitizer", "packets_received", m.received); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("sanitizer", "packets_rejected", m.rejected); err != nil {
		return nil, err
	}
	return m, nil
}

// record increments the received counter for detector, and the rejected
// counter too when allowed is false. A nil receiver is a no-op so a detector
// built without a metrics registry stays free of the label lookup.
func (m *detectorMetrics) record(detector string, allowed bool) {
	if m == nil {
		return
	}
	m.received.WithLabelValues(detector).Inc()
	if !allowed {
		m.rejected.WithLabelValues(detector).Inc()
	}
}
