package sanitizer

import (
	"log/slog"
	"time"

	"github.com/c360/quakerelay/errors"
	"github.com/c360/quakerelay/internal/packet"
)

// ExpiredDetectorOptions configures an ExpiredDetector.
type ExpiredDetectorOptions struct {
	// MaxExpiredTime is how far into the past a packet's start time may lag
	// "now" before it is rejected. Must be positive.
	MaxExpiredTime time.Duration
	// LogInterval is the batching window for the rejected-channel log line.
	// A negative value disables logging.
	LogInterval time.Duration
}

// DefaultExpiredDetectorOptions mirrors the source's defaults.
func DefaultExpiredDetectorOptions() ExpiredDetectorOptions {
	return ExpiredDetectorOptions{
		MaxExpiredTime: 5 * time.Minute,
		LogInterval:    time.Hour,
	}
}

// ExpiredDetector rejects packets whose start time precedes now - MaxExpiredTime.
type ExpiredDetector struct {
	maxExpired time.Duration
	log        *channelLogBatch
	now        func() time.Time
	metrics    *detectorMetrics
}

// NewExpiredDetector constructs a detector, failing InvalidConfig if
// MaxExpiredTime is non-positive.
func NewExpiredDetector(opts ExpiredDetectorOptions, logger *slog.Logger) (*ExpiredDetector, error) {
	if opts.MaxExpiredTime <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "ExpiredDetector", "New", "max expired time must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpiredDetector{
		maxExpired: opts.MaxExpiredTime,
		log:        newChannelLogBatch(logger, opts.LogInterval, "expired data detected for"),
		now:        time.Now,
	}, nil
}

// Allow returns true iff p.StartTime >= now - MaxExpiredTime.
func (d *ExpiredDetector) Allow(p packet.Packet) bool {
	earliest := d.now().Add(-d.maxExpired)
	allow := !p.StartTime.Before(earliest)
	if !allow {
		d.log.record(p.Name())
	}
	d.metrics.record("expired", allow)
	return allow
}
