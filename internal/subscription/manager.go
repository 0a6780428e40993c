// Package subscription implements the multi-stream registry: stream
// lifecycle, pending (not-yet-existing-stream) subscriptions, subscribe-to-
// all semantics, and a lazily recomputed subscriber count.
package subscription

import (
	"log/slog"
	"sync"

	"github.com/c360/quakerelay/errors"
	"github.com/c360/quakerelay/internal/packet"
	"github.com/c360/quakerelay/internal/stream"
	"github.com/c360/quakerelay/metric"
	"github.com/c360/quakerelay/pkg/cache"
)

// SubscriberID re-exports stream.SubscriberID so callers need not import
// both packages for the same concept.
type SubscriberID = stream.SubscriberID

const subscriberCountCacheKey = "count"

// Manager is the multi-stream subscription registry. All exported methods
// are safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	streams       map[string]*stream.Stream
	activeSubs    map[SubscriberID]map[string]struct{}
	pendingNamed  map[SubscriberID]map[string]struct{}
	pendingAll    map[SubscriberID]struct{}
	streamOptions stream.Options

	countCache cache.Cache[int]
	logger     *slog.Logger
	metrics    *managerMetrics

	// notify, when set, is invoked after a packet is accepted and fanned out
	// -- the hook the optional NATS mirror attaches to (SPEC_FULL.md section
	// 4.6); the WebSocket bridge does not use it and polls GetPackets instead. Best-effort: panics are not recovered here
	// because the hook itself is expected to handle its own failures.
	notify func(packet.Packet)
}

// New constructs an empty Manager. If registry is non-nil, packets fanned
// out and the current subscriber count are exported as Prometheus metrics
// (SPEC_FULL.md section 4.12).
func New(streamOptions stream.Options, logger *slog.Logger, registry *metric.MetricsRegistry) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	countCache, _ := cache.NewSimple[int]()
	m := &Manager{
		streams:       make(map[string]*stream.Stream),
		activeSubs:    make(map[SubscriberID]map[string]struct{}),
		pendingNamed:  make(map[SubscriberID]map[string]struct{}),
		pendingAll:    make(map[SubscriberID]struct{}),
		streamOptions: streamOptions,
		countCache:    countCache,
		logger:        logger,
	}
	if registry != nil {
		metrics, err := newManagerMetrics(registry)
		if err != nil {
			return nil, err
		}
		m.metrics = metrics
	}
	return m, nil
}

// OnPublish registers the best-effort mirror hook described in
// SPEC_FULL.md section 4.6. A nil fn clears it.
func (m *Manager) OnPublish(fn func(packet.Packet)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify = fn
}

// EnqueuePacket routes an already-sanitized packet to its stream, creating
// the stream (and promoting any pending subscriptions) on first sight.
func (m *Manager) EnqueuePacket(p packet.Packet) error {
	if err := p.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	name := p.Name()
	s, exists := m.streams[name]
	if exists {
		m.mu.Unlock()
		if err := s.SetNextPacket(p); err != nil {
			return errors.Wrap(err, "subscription.Manager", "EnqueuePacket", "forward to existing stream")
		}
		m.afterPublish(p)
		return nil
	}

	s = stream.New(p, m.streamOptions, m.logger)
	m.streams[name] = s
	m.promotePendingAllLocked(name, s)
	m.promotePendingNamedLocked(name, s)
	m.invalidateCountLocked()
	m.mu.Unlock()

	m.afterPublish(p)
	return nil
}

func (m *Manager) afterPublish(p packet.Packet) {
	if m.metrics != nil {
		m.metrics.fannedOut.Inc()
	}

	m.mu.Lock()
	notify := m.notify
	m.mu.Unlock()
	if notify != nil {
		notify(p)
	}
}

func (m *Manager) promotePendingAllLocked(name string, s *stream.Stream) {
	for id := range m.pendingAll {
		if !s.Subscribe(id, true) {
			m.logger.Warn("failed to subscribe pending-all subscriber", "subscriber", id, "stream", name)
			continue
		}
		m.addActiveLocked(id, name)
	}
}

func (m *Manager) promotePendingNamedLocked(name string, s *stream.Stream) {
	for id, names := range m.pendingNamed {
		if _, wanted := names[name]; !wanted {
			continue
		}
		if !s.Subscribe(id, true) {
			m.logger.Warn("failed to subscribe pending subscriber", "subscriber", id, "stream", name)
			continue
		}
		m.addActiveLocked(id, name)
		delete(names, name)
		if len(names) == 0 {
			delete(m.pendingNamed, id)
		}
	}
}

func (m *Manager) addActiveLocked(id SubscriberID, name string) {
	if m.activeSubs[id] == nil {
		m.activeSubs[id] = make(map[string]struct{})
	}
	m.activeSubs[id][name] = struct{}{}
}

// Subscribe attaches id to each requested stream name. Names for streams
// that do not yet exist become pending and are promoted when the stream is
// first published.
func (m *Manager) Subscribe(id SubscriberID, names []string) error {
	if len(names) == 0 {
		return errors.WrapInvalid(ErrEmptySubscription, "subscription.Manager", "Subscribe", "at least one stream name is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range names {
		if s, ok := m.streams[name]; ok {
			if s.Subscribe(id, false) {
				m.addActiveLocked(id, name)
			}
			continue
		}
		if m.pendingNamed[id] == nil {
			m.pendingNamed[id] = make(map[string]struct{})
		}
		m.pendingNamed[id][name] = struct{}{}
	}
	m.invalidateCountLocked()
	return nil
}

// SubscribeToAll attaches id to every current stream and marks it to
// receive every future one. A no-op if id is already subscribed to all.
func (m *Manager) SubscribeToAll(id SubscriberID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, already := m.pendingAll[id]; already {
		return
	}
	for name, s := range m.streams {
		if s.Subscribe(id, false) {
			m.addActiveLocked(id, name)
		}
	}
	m.pendingAll[id] = struct{}{}
	m.invalidateCountLocked()
}

// GetPackets drains one packet per stream id is actively subscribed to.
func (m *Manager) GetPackets(id SubscriberID) []packet.Packet {
	m.mu.Lock()
	type target struct {
		name string
		s    *stream.Stream
	}
	targets := make([]target, 0, len(m.activeSubs[id]))
	for name := range m.activeSubs[id] {
		if s, ok := m.streams[name]; ok {
			targets = append(targets, target{name: name, s: s})
		} else {
			m.logger.Warn("active subscription references missing stream", "subscriber", id, "stream", name)
		}
	}
	m.mu.Unlock()

	var out []packet.Packet
	for _, t := range targets {
		if p, ok := t.s.GetNextPacket(id); ok {
			out = append(out, p)
		}
	}
	return out
}

// UnsubscribeFromAll removes id from every pending and active membership
// structure. Idempotent.
func (m *Manager) UnsubscribeFromAll(id SubscriberID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.pendingNamed, id)
	delete(m.pendingAll, id)
	for _, s := range m.streams {
		s.Unsubscribe(id)
	}
	delete(m.activeSubs, id)
	m.invalidateCountLocked()
}

// SubscriberCount returns the number of distinct subscribers, lazily
// recomputed and cached under a single key via pkg/cache.
func (m *Manager) SubscriberCount() int {
	if n, ok := m.countCache.Get(subscriberCountCacheKey); ok {
		return n
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[SubscriberID]struct{})
	for _, s := range m.streams {
		for _, id := range s.Subscribers() {
			seen[id] = struct{}{}
		}
	}
	var n int
	if len(seen) == 0 {
		n = len(m.pendingNamed) + len(m.pendingAll)
	} else {
		n = len(seen)
	}
	m.countCache.Set(subscriberCountCacheKey, n)
	if m.metrics != nil {
		m.metrics.subscribers.Set(float64(n))
	}
	return n
}

func (m *Manager) invalidateCountLocked() {
	m.countCache.Delete(subscriberCountCacheKey)
}
