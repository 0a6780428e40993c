package sanitizer

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// channelLogBatch accumulates rejected channel names and flushes them as a
// single informational log line every logInterval of wall time. A negative
// interval disables logging entirely; the set is never added to in that case
// so it cannot grow unbounded.
type channelLogBatch struct {
	mu       sync.Mutex
	enabled  bool
	interval time.Duration
	message  string
	channels map[string]struct{}
	lastLog  time.Time
	logger   *slog.Logger
	now      func() time.Time
}

func newChannelLogBatch(logger *slog.Logger, interval time.Duration, message string) *channelLogBatch {
	return &channelLogBatch{
		enabled:  interval >= 0,
		interval: interval,
		message:  message,
		channels: make(map[string]struct{}),
		logger:   logger,
		now:      time.Now,
	}
}

// record adds name (if non-empty) to the pending set and flushes if the
// interval has elapsed. Never returns an error: any internal failure is
// logged at WARN and the allow/deny decision this accompanies is unaffected.
func (b *channelLogBatch) record(name string) {
	if !b.enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if name != "" {
		b.channels[name] = struct{}{}
	}

	now := b.now()
	if b.lastLog.IsZero() {
		b.lastLog = now
	}
	if now.Sub(b.lastLog) < b.interval {
		return
	}
	if len(b.channels) == 0 {
		b.lastLog = now
		return
	}

	names := make([]string, 0, len(b.channels))
	for ch := range b.channels {
		names = append(names, ch)
	}
	sort.Strings(names)
	b.logger.Info(b.message, "channels", names)

	b.channels = make(map[string]struct{})
	b.lastLog = now
}
