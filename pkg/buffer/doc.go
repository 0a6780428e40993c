// Package buffer provides a generic, thread-safe circular FIFO with a fixed
// DropOldest overflow policy, always-on statistics, and optional Prometheus
// metrics integration.
//
// # Overview
//
// quakerelay uses one Buffer per bounded queue in the system: the upstream
// import queue that sits between the RPC read loop and the drain worker, and
// each subscriber's per-stream FIFO inside internal/stream.Stream. Both need
// the same shape — push new data, and if the queue is already full, silently
// drop the oldest entry rather than block the producer or grow without
// bound. That is the only overflow policy this package implements.
//
// # Quick Start
//
//	buf, err := buffer.NewCircularBuffer[int](1000)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer buf.Close()
//
//	err = buf.Write(42)
//	value, ok := buf.Read()
//
// With metrics and a drop callback:
//
//	buf, err := buffer.NewCircularBuffer[packet.Packet](5000,
//		buffer.WithMetrics[packet.Packet](registry, "import_queue"),
//		buffer.WithDropCallback[packet.Packet](func(p packet.Packet) {
//			log.Printf("dropped oldest packet for %s", p.Name())
//		}),
//	)
//
// # Observability
//
// Statistics (buf.Stats()) are always collected using atomic counters and
// require no external dependency; Prometheus metrics are opt-in via
// WithMetrics and mirror the same counters under a component label so a
// dashboard can break down queue depth and drop rate per named buffer.
//
// # Thread Safety
//
// All buffer operations are safe for concurrent use: multiple producers may
// Write concurrently and multiple consumers may Read concurrently. Internal
// state is protected by a mutex; statistics use atomic counters.
//
// # Testing
//
//	go test -race ./pkg/buffer
package buffer
