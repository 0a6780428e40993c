// Package stream implements single-channel fan-out: one Stream per
// (network, station, channel, location) identifier, holding the most
// recently published packet and a bounded per-subscriber FIFO.
package stream

import (
	"log/slog"
	"sync"

	"github.com/c360/quakerelay/errors"
	"github.com/c360/quakerelay/internal/packet"
	"github.com/c360/quakerelay/pkg/buffer"
)

// SubscriberID is the opaque token a Stream uses to key its per-subscriber
// queues. Minting and lifecycle live in internal/subscription and
// internal/downstream; this package only ever consumes the value.
type SubscriberID string

// Options configures a Stream.
type Options struct {
	// MaxQueueSize is the per-subscriber FIFO capacity. Defaults to 8.
	MaxQueueSize int
}

// Stream is a single channel's fan-out point.
type Stream struct {
	mu             sync.Mutex
	identifier     string
	maxQueueSize   int
	logger         *slog.Logger
	mostRecent     packet.Packet
	haveMostRecent bool
	subscribers    map[SubscriberID]buffer.Buffer[packet.Packet]
}

// New constructs a Stream seeded by an initial packet. Its identifier is
// fixed for the lifetime of the Stream. logger defaults to slog.Default()
// if nil.
func New(initial packet.Packet, opts Options, logger *slog.Logger) *Stream {
	maxQueueSize := opts.MaxQueueSize
	if maxQueueSize <= 0 {
		maxQueueSize = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Stream{
		identifier:   initial.Name(),
		maxQueueSize: maxQueueSize,
		logger:       logger,
		subscribers:  make(map[SubscriberID]buffer.Buffer[packet.Packet]),
	}
	s.mostRecent = initial
	s.haveMostRecent = true
	return s
}

// Identifier returns the stream's fixed channel name.
func (s *Stream) Identifier() string {
	return s.identifier
}

// SetNextPacket replaces the most-recent packet and pushes a copy of it into
// every subscriber's FIFO, evicting the oldest queued packet first if that
// FIFO is already at capacity. p must name this stream.
func (s *Stream) SetNextPacket(p packet.Packet) error {
	if p.Name() != s.identifier {
		return errors.WrapInvalid(packet.ErrStreamIdentifierMismatch, "Stream", "SetNextPacket",
			p.Name()+" does not match stream identifier "+s.identifier)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.mostRecent = p
	s.haveMostRecent = true
	for _, q := range s.subscribers {
		// Buffer.Write with DropOldest already evicts the oldest entry on
		// overflow, so the FIFO's own overflow policy gives us the required
		// "drop oldest, then push" behavior for free.
		_ = q.Write(p)
	}
	return nil
}

// Subscribe adds id as a new subscriber with an empty FIFO, optionally
// seeded with the current most-recent packet. Returns false without error
// if id is already subscribed.
func (s *Stream) Subscribe(id SubscriberID, enqueueLatest bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscribers[id]; exists {
		return false
	}

	q, err := buffer.NewCircularBuffer[packet.Packet](s.maxQueueSize,
		buffer.WithDropCallback[packet.Packet](func(dropped packet.Packet) {
			s.logger.Debug("subscriber queue full, dropped oldest packet",
				"stream", s.identifier, "subscriber", id, "dropped_start", dropped.StartTime)
		}),
	)
	if err != nil {
		return false
	}
	if enqueueLatest && s.haveMostRecent {
		_ = q.Write(s.mostRecent)
	}
	s.subscribers[id] = q
	return true
}

// GetNextPacket pops and returns the head of id's FIFO. It never blocks; the
// second return is false if the FIFO is empty or id is not subscribed.
func (s *Stream) GetNextPacket(id SubscriberID) (packet.Packet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.subscribers[id]
	if !ok {
		var zero packet.Packet
		return zero, false
	}
	return q.Read()
}

// Unsubscribe removes id's FIFO, reporting whether it existed.
func (s *Stream) Unsubscribe(id SubscriberID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, exists := s.subscribers[id]
	if !exists {
		return false
	}
	_ = q.Close()
	delete(s.subscribers, id)
	return true
}

// IsSubscribed reports whether id currently has a FIFO on this stream.
func (s *Stream) IsSubscribed(id SubscriberID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subscribers[id]
	return ok
}

// NumberOfSubscribers returns the current subscriber count.
func (s *Stream) NumberOfSubscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// Subscribers returns a snapshot of the currently subscribed ids.
func (s *Stream) Subscribers() []SubscriberID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]SubscriberID, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	return ids
}
