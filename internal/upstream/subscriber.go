// Package upstream implements the long-lived streaming client that
// consumes the import service's packet stream, with cooperative
// cancellation and a reconnect schedule that resets on any progress.
package upstream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	qerrors "github.com/c360/quakerelay/errors"
	"github.com/c360/quakerelay/internal/packet"
	"github.com/c360/quakerelay/internal/rpcwire"
	"github.com/c360/quakerelay/metric"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrPrematureSubscriberExit is the fatal error surfaced through the error
// channel when the reconnect loop gives up on a non-retryable RPC status.
var ErrPrematureSubscriberExit = errors.New("upstream subscriber exited prematurely")

// DefaultReconnectSchedule mirrors the source's default backoff ladder.
func DefaultReconnectSchedule() []time.Duration {
	return []time.Duration{0, 5 * time.Second, 15 * time.Second}
}

// Config configures a Subscriber.
type Config struct {
	Dial              DialOptions
	ReconnectSchedule []time.Duration // non-negative, ascending
	SubscriptionID    string
}

// Callback is invoked for every packet delivered by the upstream stream,
// already converted to service format. The callback owns the
// queue-into-pipeline policy described in SPEC_FULL.md section 4.7
// (sanitizer pipeline, bounded import queue with DropOldest).
type Callback func(packet.Packet)

// Subscriber is the reconnecting streaming consumer.
type Subscriber struct {
	cfg      Config
	callback Callback
	logger   *slog.Logger
	conn     *grpc.ClientConn

	cancelled atomic.Bool
	mu        sync.Mutex
	cond      *sync.Cond
	cancel    context.CancelFunc

	connected  atomic.Bool
	reconnects atomic.Int64
	metrics    *subscriberMetrics
}

// New validates the reconnect schedule and constructs a Subscriber. If
// registry is non-nil, every reconnect is also counted as a Prometheus
// metric (SPEC_FULL.md section 4.12).
func New(cfg Config, callback Callback, logger *slog.Logger, registry *metric.MetricsRegistry) (*Subscriber, error) {
	if len(cfg.ReconnectSchedule) == 0 {
		cfg.ReconnectSchedule = DefaultReconnectSchedule()
	}
	if !sort.SliceIsSorted(cfg.ReconnectSchedule, func(i, j int) bool {
		return cfg.ReconnectSchedule[i] < cfg.ReconnectSchedule[j]
	}) {
		return nil, qerrors.WrapInvalid(qerrors.ErrInvalidConfig, "upstream.Subscriber", "New", "reconnect schedule must be ascending")
	}
	for _, d := range cfg.ReconnectSchedule {
		if d < 0 {
			return nil, qerrors.WrapInvalid(qerrors.ErrInvalidConfig, "upstream.Subscriber", "New", "reconnect schedule entries must be non-negative")
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Subscriber{cfg: cfg, callback: callback, logger: logger}
	s.cond = sync.NewCond(&s.mu)
	if registry != nil {
		metrics, err := newSubscriberMetrics(registry)
		if err != nil {
			return nil, err
		}
		s.metrics = metrics
	}
	return s, nil
}

// IsConnected reports whether the loop currently believes it has a live
// stream open, for the health endpoint (SPEC_FULL.md section 4.12).
func (s *Subscriber) IsConnected() bool { return s.connected.Load() }

// Start spawns the reconnect loop and returns a channel that receives
// exactly one value: nil on a clean, requested stop, or a fatal error.
func (s *Subscriber) Start(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	conn, err := dial(s.cfg.Dial)
	if err != nil {
		done <- err
		return done
	}
	s.conn = conn

	go func() {
		done <- s.run(ctx)
	}()
	return done
}

// Stop requests cancellation, wakes the reconnect sleeper, and cancels any
// in-flight stream. Idempotent.
func (s *Subscriber) Stop() {
	s.cancelled.Store(true)
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.cond.Broadcast()
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

func (s *Subscriber) run(ctx context.Context) error {
	schedule := s.cfg.ReconnectSchedule
	index := -1

	for {
		if s.cancelled.Load() {
			return nil
		}

		if index >= 0 {
			if !s.sleep(schedule[index]) {
				return nil
			}
			if index < len(schedule)-1 {
				index++
			}
		} else {
			index = 0
		}

		madeProgress, loopErr := s.attempt(ctx)
		if s.cancelled.Load() {
			return nil
		}
		if madeProgress {
			index = -1
		}
		if loopErr != nil {
			s.logger.Error("upstream subscriber terminating", "error", loopErr)
			return qerrors.WrapFatal(ErrPrematureSubscriberExit, "upstream.Subscriber", "run", loopErr.Error())
		}
		s.reconnects.Add(1)
		if s.metrics != nil {
			s.metrics.reconnects.Inc()
		}
	}
}

// sleep waits for d, or returns false early if Stop is called meanwhile.
func (s *Subscriber) sleep(d time.Duration) bool {
	if d <= 0 {
		return !s.cancelled.Load()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	wake := make(chan struct{})
	go func() {
		s.mu.Lock()
		for !s.cancelled.Load() {
			s.cond.Wait()
		}
		s.mu.Unlock()
		close(wake)
	}()
	select {
	case <-timer.C:
		return !s.cancelled.Load()
	case <-wake:
		return false
	}
}

// attempt opens one stream and consumes it until it ends or cancellation is
// requested. Returns whether any packet was successfully received (causing
// the caller to reset the backoff index) and a non-nil error only for a
// fatal (non-retryable) termination.
func (s *Subscriber) attempt(parent context.Context) (madeProgress bool, err error) {
	streamCtx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	stream, openErr := rpcwire.OpenImportSubscribe(streamCtx, s.conn, &rpcwire.SubscriptionRequest{
		SubscriberID: s.cfg.SubscriptionID,
	})
	if openErr != nil {
		return false, s.classifyTerminal(openErr)
	}
	s.connected.Store(true)
	defer s.connected.Store(false)

	for {
		wire, recvErr := stream.Recv()
		if recvErr == nil {
			madeProgress = true
			s.callback(packet.Convert(wire.ToImport()))
			continue
		}
		if recvErr == io.EOF {
			if s.cancelled.Load() {
				return madeProgress, nil
			}
			s.logger.Warn("upstream stream ended without cancellation, reconnecting")
			return madeProgress, nil
		}
		return madeProgress, s.classifyTerminal(recvErr)
	}
}

// classifyTerminal returns nil for transient statuses that should simply
// trigger a reconnect, and the original error for anything else (which the
// caller treats as fatal).
func (s *Subscriber) classifyTerminal(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unavailable, codes.Canceled:
		return nil
	case codes.OK:
		return nil
	default:
		return err
	}
}
