package natsclient

import (
	"github.com/c360/quakerelay/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// connMetrics tracks connection-level Prometheus metrics for a Client:
// publish outcomes, circuit breaker trips, and current connection status.
// This replaces the teacher's jetstreamMetrics (stream/consumer gauges for
// an API this client no longer exposes, see DESIGN.md) with the metrics
// that actually apply to a plain pub/sub mirror publisher.
type connMetrics struct {
	publishes   *prometheus.CounterVec
	circuitOpen prometheus.Counter
	status      prometheus.Gauge
}

// newConnMetrics creates and registers connection metrics with the provided
// registry. Returns nil (not an error) if registry is nil, so WithMetrics
// can be applied unconditionally.
func newConnMetrics(registry *metric.MetricsRegistry) (*connMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &connMetrics{
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quakerelay",
			Subsystem: "nats",
			Name:      "publishes_total",
			Help:      "Total NATS publish attempts, partitioned by outcome.",
		}, []string{"result"}),

		circuitOpen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quakerelay",
			Subsystem: "nats",
			Name:      "circuit_open_total",
			Help:      "Total number of times the circuit breaker has opened.",
		}),

		status: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quakerelay",
			Subsystem: "nats",
			Name:      "connection_status",
			Help:      "Current ConnectionStatus as an integer (0=disconnected .. 4=circuit_open).",
		}),
	}

	if err := registry.RegisterCounterVec("nats", "publishes", m.publishes); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("nats", "circuit_open", m.circuitOpen); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge("nats", "connection_status", m.status); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *connMetrics) recordPublish(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.publishes.WithLabelValues("success").Inc()
	} else {
		m.publishes.WithLabelValues("error").Inc()
	}
}

func (m *connMetrics) recordCircuitOpen() {
	if m == nil {
		return
	}
	m.circuitOpen.Inc()
}

func (m *connMetrics) setStatus(status ConnectionStatus) {
	if m == nil {
		return
	}
	m.status.Set(float64(status))
}
