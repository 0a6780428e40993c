package sanitizer

import (
	"log/slog"
	"time"

	"github.com/c360/quakerelay/internal/packet"
)

// FutureDetectorOptions configures a FutureDetector.
type FutureDetectorOptions struct {
	// MaxFutureTime is how far into the future a packet's end time may land
	// before it is rejected. Zero is valid: a zero-latency single-sample
	// packet (endTime == startTime == now) still passes.
	MaxFutureTime time.Duration
	// LogInterval is the batching window for the rejected-channel log line.
	// A negative value disables logging.
	LogInterval time.Duration
}

// DefaultFutureDetectorOptions mirrors the source's defaults.
func DefaultFutureDetectorOptions() FutureDetectorOptions {
	return FutureDetectorOptions{
		MaxFutureTime: 0,
		LogInterval:   time.Hour,
	}
}

// FutureDetector rejects packets whose end time exceeds now + MaxFutureTime.
type FutureDetector struct {
	maxFuture time.Duration
	log       *channelLogBatch
	now       func() time.Time
	metrics   *detectorMetrics
}

// NewFutureDetector constructs a detector. Unlike the expired detector,
// a zero MaxFutureTime is a legal configuration.
func NewFutureDetector(opts FutureDetectorOptions, logger *slog.Logger) (*FutureDetector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &FutureDetector{
		maxFuture: opts.MaxFutureTime,
		log:       newChannelLogBatch(logger, opts.LogInterval, "future-dated data detected for"),
		now:       time.Now,
	}, nil
}

// Allow returns true iff p.EndTime() <= now + MaxFutureTime.
func (d *FutureDetector) Allow(p packet.Packet) bool {
	latest := d.now().Add(d.maxFuture)
	allow := !p.EndTime().After(latest)
	if !allow {
		d.log.record(p.Name())
	}
	d.metrics.record("future", allow)
	return allow
}
