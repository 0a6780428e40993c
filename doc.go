// Package quakerelay implements a packet relay and sanitation service for
// real-time seismic telemetry: it subscribes to an upstream gRPC packet
// feed, runs every packet through a sanitation pipeline that drops expired,
// future-dated, and duplicate samples, fans the survivors out to downstream
// gRPC subscribers, and optionally mirrors them onto a NATS subject and a
// WebSocket bridge.
//
// # Architecture
//
//	┌──────────────────┐
//	│ upstream.Subscriber│  dials the upstream feed, reconnects on a
//	│  (reconnect loop) │  configurable backoff schedule
//	└─────────┬─────────┘
//	          │ packet.Packet
//	          ▼
//	┌──────────────────┐
//	│ sanitizer.Pipeline │  expired → future → duplicate, short-circuits
//	│ (3 chained checks) │  on first rejection
//	└─────────┬─────────┘
//	          │ survivors only
//	          ▼
//	┌──────────────────┐
//	│  bounded import   │  pkg/buffer.Buffer[packet.Packet], DropOldest
//	│      queue        │  overflow policy
//	└─────────┬─────────┘
//	          │ drained by a dedicated worker
//	          ▼
//	┌──────────────────┐
//	│ subscription.Manager│  per-stream fan-out to subscribers, lazily
//	│                    │  cached subscriber count
//	└──┬───────────┬─────┘
//	   │           │
//	   ▼           ▼
//	downstream.Server   mirror.Mirror / bridge.Bridge (optional)
//	(gRPC, worker pool)  (NATS subject / WebSocket, best-effort)
//
// # Packages
//
// internal/packet - the wire packet and stream identifier types, including
// Import/Convert for the upstream codec's transport representation.
//
// internal/rpcwire - the gRPC transport codec (hand-declared grpc.ServiceDesc
// and MethodDesc descriptors with a JSON wire format) used by both
// internal/upstream and internal/downstream, standing in for generated
// protobuf stubs (see DESIGN.md).
//
// internal/sanitizer - ExpiredDetector, FutureDetector, and
// DuplicateDetector, chained into a Pipeline in that fixed order.
//
// internal/stream and internal/subscription - per-channel fan-out queues and
// the manager that tracks subscriber membership across every stream.
//
// internal/upstream - the reconnecting gRPC subscriber that feeds packets
// into the import queue via a callback.
//
// internal/downstream - the gRPC service that serves sanitized packets to
// downstream subscribers through a bounded worker pool.
//
// internal/mirror and internal/bridge - optional fan-out paths: mirror
// republishes sanitized packets onto a NATS subject, bridge exposes them
// over a polling WebSocket endpoint.
//
// internal/healthz - the /healthz liveness endpoint reporting upstream
// reconnect status via health.Monitor.
//
// config - INI-based static configuration (service, upstream, downstream,
// sanitizer, and the optional mirror/bridge sections).
//
// pkg/buffer, pkg/worker, pkg/cache - generic concurrency primitives shared
// across the service: the bounded import queue, the downstream worker pool,
// and the subscription manager's subscriber-count cache.
//
// natsclient - the NATS client used by the optional mirror, trimmed to the
// plain pub/sub and JetStream surface this service actually exercises (see
// DESIGN.md for what was dropped and why).
//
// metric, health, errors - ambient observability and error-classification
// stack shared by every component above.
//
// # Binary
//
//	quakerelay /path/to/quakerelay.ini
//
// See cmd/semstreams's --help output and SPEC_FULL.md section 6 for the full
// process surface.
package quakerelay
