// Package downstream exposes the subscription manager over gRPC: four unary
// RPCs (Subscribe, SubscribeToAll, GetPackets, Unsubscribe) hand-declared in
// internal/rpcwire since generated protobuf stubs are out of scope
// (SPEC_FULL.md section 6). Each call runs on a pooled worker so one slow or
// wedged caller cannot starve the others (SPEC_FULL.md section 4.8),
// grounded on CoolE88's internal/grpc server wrapper (interceptor chain,
// graceful shutdown) adapted to this service's own logging and metrics.
package downstream

import (
	"context"
	"log/slog"
	"net"
	"time"

	qerrors "github.com/c360/quakerelay/errors"
	"github.com/c360/quakerelay/internal/rpcwire"
	"github.com/c360/quakerelay/internal/subscription"
	"github.com/c360/quakerelay/metric"
	"github.com/c360/quakerelay/pkg/worker"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultWorkers   = 8
	defaultQueueSize = 256
	defaultCallTimeout = 5 * time.Second
)

// Options configures a Server.
type Options struct {
	Address     string
	Workers     int
	QueueSize   int
	CallTimeout time.Duration

	// Metrics is optional; when set the RPC worker pool publishes queue
	// depth, utilization, and per-call outcome metrics through it.
	Metrics *metric.MetricsRegistry
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.QueueSize <= 0 {
		o.QueueSize = defaultQueueSize
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = defaultCallTimeout
	}
	return o
}

// call is the unit of work submitted to the pool: an RPC handler closure
// that runs to completion and reports its outcome on done.
type call struct {
	run  func(ctx context.Context)
	done chan struct{}
}

// Server wraps a *grpc.Server exposing the subscription manager's four
// operations, each dispatched through a worker.Pool.
type Server struct {
	opts    Options
	manager *subscription.Manager
	logger  *slog.Logger
	pool    *worker.Pool[call]
	grpc    *grpc.Server
}

// New constructs a Server bound to manager. Call Serve to start accepting
// connections.
func New(opts Options, manager *subscription.Manager, logger *slog.Logger) *Server {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{opts: opts, manager: manager, logger: logger}
	var poolOpts []worker.Option[call]
	if opts.Metrics != nil {
		poolOpts = append(poolOpts, worker.WithMetricsRegistry[call](opts.Metrics, "downstream", "rpc_pool"))
	}
	s.pool = worker.NewPool[call](opts.Workers, opts.QueueSize, s.process, poolOpts...)

	s.grpc = grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	s.grpc.RegisterService(&grpc.ServiceDesc{
		ServiceName: rpcwire.SubscriptionServiceName,
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "Subscribe", Handler: s.handleSubscribe},
			{MethodName: "SubscribeToAll", Handler: s.handleSubscribeToAll},
			{MethodName: "GetPackets", Handler: s.handleGetPackets},
			{MethodName: "Unsubscribe", Handler: s.handleUnsubscribe},
		},
	}, nil)
	return s
}

func (s *Server) process(ctx context.Context, c call) error {
	c.run(ctx)
	close(c.done)
	return nil
}

// submit runs fn on a pooled worker and blocks until it completes, the call
// timeout elapses, or ctx is cancelled — so a caller never waits
// indefinitely even if every worker is busy (SPEC_FULL.md section 4.8/4.11).
func (s *Server) submit(ctx context.Context, fn func(ctx context.Context)) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()

	c := call{run: fn, done: make(chan struct{})}
	if err := s.pool.Submit(c); err != nil {
		return status.Error(codes.ResourceExhausted, "downstream worker pool saturated")
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return status.Error(codes.DeadlineExceeded, "downstream call timed out")
	}
}

func (s *Server) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug("downstream rpc", "method", info.FullMethod, "duration", time.Since(start), "error", err)
	return resp, err
}

// Serve starts the worker pool and blocks serving gRPC connections on
// opts.Address until the listener or server errors.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.pool.Start(ctx); err != nil {
		return qerrors.WrapFatal(err, "downstream.Server", "Serve", "start worker pool")
	}
	lis, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return qerrors.WrapFatal(err, "downstream.Server", "Serve", "listen")
	}
	return s.grpc.Serve(lis)
}

// Shutdown stops accepting new RPCs, drains the worker pool, and stops
// serving. Safe to call once Serve has returned or is in flight.
func (s *Server) Shutdown(timeout time.Duration) {
	stopped := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(timeout):
		s.grpc.Stop()
	}
	_ = s.pool.Stop(timeout)
}

func newSubscriberID() subscription.SubscriberID {
	return subscription.SubscriberID(uuid.NewString())
}
