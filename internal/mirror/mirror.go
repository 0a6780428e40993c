// Package mirror implements the optional NATS mirror (SPEC_FULL.md section
// 4.9): every accepted packet is also published onto a NATS subject for
// downstream observers that don't want pull-mode gRPC/WebSocket semantics.
// Adapted from the teacher's natsclient.Client, used here purely as a
// publisher attached to the subscription manager's notify hook.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	qerrors "github.com/c360/quakerelay/errors"
	"github.com/c360/quakerelay/internal/packet"
	"github.com/c360/quakerelay/internal/rpcwire"
)

// Publisher is the subset of *natsclient.Client the mirror depends on,
// narrowed to keep this package testable without a live NATS connection.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Options configures the mirror.
type Options struct {
	// SubjectPrefix is prepended to each stream's dotted name to form the
	// NATS subject per SPEC_FULL.md section 4.9:
	// "packets.sanitized.<NET>.<STA>.<CHA>.<LOC>".
	SubjectPrefix string
}

func (o Options) withDefaults() Options {
	if o.SubjectPrefix == "" {
		o.SubjectPrefix = "packets.sanitized"
	}
	return o
}

// Mirror publishes accepted packets to NATS.
type Mirror struct {
	opts   Options
	client Publisher
	logger *slog.Logger
}

// New constructs a Mirror bound to an already-connected client.
func New(opts Options, client Publisher, logger *slog.Logger) *Mirror {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{opts: opts, client: client, logger: logger}
}

// Publish is the subscription.Manager notify hook: it marshals p to its
// wire shape and publishes it under a per-stream subject. Best-effort --
// a publish failure is logged, never returned, matching the notify hook's
// fire-and-forget contract (SPEC_FULL.md section 4.6).
func (m *Mirror) Publish(p packet.Packet) {
	data, err := json.Marshal(rpcwire.FromPacket(p))
	if err != nil {
		m.logger.Error("mirror: marshal packet", "error", err, "stream", p.Name())
		return
	}
	subject := fmt.Sprintf("%s.%s", m.opts.SubjectPrefix, p.Name())
	if err := m.client.Publish(context.Background(), subject, data); err != nil {
		m.logger.Warn("mirror: publish failed", "error", qerrors.Wrap(err, "mirror.Mirror", "Publish", "nats publish"), "subject", subject)
	}
}
