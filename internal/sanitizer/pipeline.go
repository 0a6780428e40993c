// Package sanitizer implements the three stateful detectors that decide
// whether an incoming packet is late, future-dated, or a duplicate/GPS-slip,
// and the fixed-order pipeline that chains them.
package sanitizer

import (
	"github.com/c360/quakerelay/internal/packet"
	"github.com/c360/quakerelay/metric"
)

// Detector is satisfied by each of the three stateful filters.
type Detector interface {
	Allow(p packet.Packet) bool
}

// Pipeline applies its detectors in a fixed order (expired -> future ->
// duplicate); any rejection short-circuits the rest.
type Pipeline struct {
	detectors []Detector
}

// NewPipeline builds the standard expired -> future -> duplicate chain. If
// registry is non-nil, each detector's Allow calls are counted per
// detector-name label (SPEC_FULL.md section 4.12: packets received/rejected
// per detector).
func NewPipeline(expired *ExpiredDetector, future *FutureDetector, duplicate *DuplicateDetector, registry *metric.MetricsRegistry) (*Pipeline, error) {
	if registry != nil {
		dm, err := newDetectorMetrics(registry)
		if err != nil {
			return nil, err
		}
		expired.metrics = dm
		future.metrics = dm
		duplicate.metrics = dm
	}
	return &Pipeline{detectors: []Detector{expired, future, duplicate}}, nil
}

// Allow runs p through every detector in order, stopping at the first
// rejection.
func (p *Pipeline) Allow(pkt packet.Packet) bool {
	for _, d := range p.detectors {
		if !d.Allow(pkt) {
			return false
		}
	}
	return true
}
