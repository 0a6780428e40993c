// Package main is the quakerelay entry point: wires the upstream
// subscriber, sanitizer pipeline, subscription manager, downstream gRPC
// service, and the optional NATS mirror and WebSocket bridge together, then
// runs until a shutdown signal arrives (SPEC_FULL.md section 6's process
// surface).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/quakerelay/config"
	"github.com/c360/quakerelay/errors"
	"github.com/c360/quakerelay/health"
	"github.com/c360/quakerelay/internal/bridge"
	"github.com/c360/quakerelay/internal/downstream"
	"github.com/c360/quakerelay/internal/healthz"
	"github.com/c360/quakerelay/internal/mirror"
	"github.com/c360/quakerelay/internal/packet"
	"github.com/c360/quakerelay/internal/sanitizer"
	"github.com/c360/quakerelay/internal/stream"
	"github.com/c360/quakerelay/internal/subscription"
	"github.com/c360/quakerelay/internal/upstream"
	"github.com/c360/quakerelay/metric"
	"github.com/c360/quakerelay/natsclient"
	"github.com/c360/quakerelay/pkg/buffer"
	"github.com/c360/quakerelay/pkg/retry"
	"github.com/c360/quakerelay/pkg/security"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "quakerelay"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("quakerelay failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cliCfg, err := parseFlags(args)
	if err != nil {
		return err
	}
	if cliCfg.ShowHelp {
		return nil
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := setupLogger(cfg.Service.LogLevel, cfg.Service.LogFormat, cfg.Service.Name)
	slog.SetDefault(logger)

	if os.Getenv("OTEL_SERVICE_NAME") == "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.Service.Name)
	}

	logger.Info("starting quakerelay", "version", Version, "config", cliCfg.ConfigPath)

	app, err := buildApplication(cfg, logger)
	if err != nil {
		return err
	}

	return app.run()
}

// application holds every long-lived component, built once by
// buildApplication and torn down by close/run's shutdown path.
type application struct {
	logger    *slog.Logger
	monitor   *health.Monitor
	metrics   *metric.MetricsRegistry
	metricSrv *metric.Server
	healthSrv *healthz.Server

	importQueue buffer.Buffer[packet.Packet]
	pipeline    *sanitizer.Pipeline
	manager     *subscription.Manager
	subscriber  *upstream.Subscriber
	downstream  *downstream.Server
	bridge      *bridge.Bridge
	natsClient  *natsclient.Client
}

func buildApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	a := &application{logger: logger}

	a.monitor = health.NewMonitor()
	a.metrics = metric.NewMetricsRegistry()

	pipeline, err := buildPipeline(cfg.Sanitizer, logger, a.metrics)
	if err != nil {
		return nil, err
	}
	a.pipeline = pipeline

	a.manager, err = subscription.New(stream.Options{}, logger, a.metrics)
	if err != nil {
		return nil, errors.WrapFatal(err, "main", "buildApplication", "create subscription manager")
	}

	queue, err := buffer.NewCircularBuffer[packet.Packet](cfg.Upstream.ImportQueueSize,
		buffer.WithMetrics[packet.Packet](a.metrics, "import_queue"),
		buffer.WithDropCallback[packet.Packet](func(dropped packet.Packet) {
			logger.Warn("import queue full, dropped oldest packet", "stream", dropped.Name(), "start", dropped.StartTime)
		}),
	)
	if err != nil {
		return nil, errors.WrapFatal(err, "main", "buildApplication", "create import queue")
	}
	a.importQueue = queue

	subscriber, err := upstream.New(upstream.Config{
		Dial: upstream.DialOptions{
			Address:           cfg.Upstream.Address,
			ServerCertPEMFile: cfg.Upstream.ServerCertPEMFile,
			BearerToken:       cfg.Upstream.BearerToken,
		},
		ReconnectSchedule: cfg.Upstream.ReconnectSchedule,
		SubscriptionID:    cfg.Upstream.SubscriptionID,
	}, func(p packet.Packet) {
		if !a.pipeline.Allow(p) {
			return
		}
		if err := a.importQueue.Write(p); err != nil {
			logger.Warn("drop packet: import queue write failed", "error", err, "stream", p.Name())
		}
	}, logger, a.metrics)
	if err != nil {
		return nil, err
	}
	a.subscriber = subscriber

	a.downstream = downstream.New(downstream.Options{
		Address:     cfg.Downstream.Address,
		Workers:     cfg.Downstream.Workers,
		QueueSize:   cfg.Downstream.QueueSize,
		CallTimeout: cfg.Downstream.CallTimeout,
		Metrics:     a.metrics,
	}, a.manager, logger)

	if cfg.Mirror.Enabled {
		natsClient, err := natsclient.NewClient(cfg.Mirror.NATSURL)
		if err != nil {
			return nil, errors.WrapFatal(err, "main", "buildApplication", "create NATS client")
		}
		connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		retryConfig := retry.Quick() // 10 attempts, roughly 3.5s of backoff in total; NATS may still be starting up
		if err := retry.Do(connectCtx, retryConfig, func() error {
			if err := natsClient.Connect(connectCtx); err != nil {
				return err
			}
			return natsClient.WaitForConnection(connectCtx)
		}); err != nil {
			return nil, errors.WrapFatal(err, "main", "buildApplication", "connect to NATS")
		}
		a.natsClient = natsClient
		m := mirror.New(mirror.Options{SubjectPrefix: cfg.Mirror.SubjectPrefix}, natsClient, logger)
		a.manager.OnPublish(m.Publish)
	}

	if cfg.Bridge.Enabled {
		a.bridge = bridge.New(bridge.Options{
			Address:      cfg.Bridge.Address,
			Path:         cfg.Bridge.Path,
			PollInterval: cfg.Bridge.PollInterval,
		}, a.manager, logger)
	}

	a.metricSrv = metric.NewServer(cfg.Service.MetricsPort, "/metrics", a.metrics, security.Config{})
	a.healthSrv = healthz.New(cfg.Service.HealthAddress, a.monitor)

	return a, nil
}

func buildPipeline(cfg config.SanitizerConfig, logger *slog.Logger, metrics *metric.MetricsRegistry) (*sanitizer.Pipeline, error) {
	expired, err := sanitizer.NewExpiredDetector(sanitizer.ExpiredDetectorOptions{
		MaxExpiredTime: cfg.MaxExpiredTime,
		LogInterval:    cfg.LogInterval,
	}, logger)
	if err != nil {
		return nil, err
	}

	future, err := sanitizer.NewFutureDetector(sanitizer.FutureDetectorOptions{
		MaxFutureTime: cfg.MaxFutureTime,
		LogInterval:   cfg.LogInterval,
	}, logger)
	if err != nil {
		return nil, err
	}

	duplicate, err := sanitizer.NewDuplicateDetector(sanitizer.DuplicateDetectorOptions{
		BufferSize:     cfg.DuplicateBufferSize,
		BufferDuration: cfg.DuplicateBufferDuration,
	}, logger)
	if err != nil {
		return nil, err
	}

	return sanitizer.NewPipeline(expired, future, duplicate, metrics)
}

// run starts every background component, drains the import queue until
// shutdown, and blocks for SIGINT/SIGTERM (SPEC_FULL.md section 7).
func (a *application) run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := a.subscriber.Start(ctx)

	go a.drainImportQueue(ctx)

	go func() {
		if err := a.downstream.Serve(ctx); err != nil {
			a.logger.Error("downstream server exited", "error", err)
		}
	}()

	if a.bridge != nil {
		go func() {
			if err := a.bridge.Serve(); err != nil {
				a.logger.Error("websocket bridge exited", "error", err)
			}
		}()
	}

	go func() {
		if err := a.metricSrv.Start(); err != nil {
			a.logger.Error("metrics server exited", "error", err)
		}
	}()
	go func() {
		if err := a.healthSrv.Start(); err != nil {
			a.logger.Error("healthz server exited", "error", err)
		}
	}()

	go a.monitorUpstream(ctx)
	go a.sampleSubscriberCount(ctx)

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			a.logger.Error("upstream subscriber exited fatally", "error", err)
			a.shutdown()
			return err
		}
	}

	a.shutdown()
	return nil
}

func (a *application) shutdown() {
	a.subscriber.Stop()
	a.downstream.Shutdown(10 * time.Second)
	if a.bridge != nil {
		_ = a.bridge.Shutdown(5 * time.Second)
	}
	_ = a.metricSrv.Stop()
	_ = a.healthSrv.Stop()
	_ = a.importQueue.Close()
	if a.natsClient != nil {
		_ = a.natsClient.Close(context.Background())
	}
}

// drainImportQueue is the dedicated worker described in SPEC_FULL.md
// section 5: it pulls already-sanitized packets off the bounded import
// queue and forwards them to the subscription manager. The sanitizer
// pipeline runs earlier, in the upstream callback, before a packet ever
// reaches this queue (spec.md's data flow: convert -> sanitize -> enqueue
// -> drain) -- running it here instead would let an unsanitized burst
// occupy queue capacity and evict already-accepted packets, and would move
// the expired/future detectors' now()-relative comparison from arrival
// time to drain time. A short sleep stands in for the blocking wait when
// the queue is empty.
func (a *application) drainImportQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		p, ok := a.importQueue.Read()
		if !ok {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if err := a.manager.EnqueuePacket(p); err != nil {
			a.logger.Warn("enqueue packet failed", "error", err, "stream", p.Name())
		}
	}
}

// sampleSubscriberCount periodically calls SubscriberCount so the
// subscribers gauge stays fresh even during a lull with no new subscribe or
// publish activity to invalidate its cache.
func (a *application) sampleSubscriberCount(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.manager.SubscriberCount()
		}
	}
}

func (a *application) monitorUpstream(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if a.subscriber.IsConnected() {
				a.monitor.UpdateHealthy("upstream", "connected")
			} else {
				a.monitor.UpdateDegraded("upstream", "reconnecting")
			}
		}
	}
}
