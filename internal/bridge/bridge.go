// Package bridge implements the optional WebSocket bridge (SPEC_FULL.md
// section 4.10): a browser-facing transport over the same subscription
// manager the gRPC service uses. Clients send subscribe/subscribe_all/
// unsubscribe as JSON command messages; there is no getPackets command --
// the bridge polls the manager's GetPackets for each client and pushes the
// packets to it as JSON frames.
//
// Adapted from the teacher's output/websocket.Output: HTTP server lifecycle,
// gorilla/websocket upgrade and per-client goroutine, simplified to this
// domain's pull-then-push model (no NATS fan-in, no ack delivery modes --
// the spec names no such requirement for this bridge).
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	qerrors "github.com/c360/quakerelay/errors"
	"github.com/c360/quakerelay/internal/rpcwire"
	"github.com/c360/quakerelay/internal/subscription"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Options configures the bridge's HTTP/WebSocket server.
type Options struct {
	Address      string
	Path         string
	PollInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.Path == "" {
		o.Path = "/ws"
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 200 * time.Millisecond
	}
	return o
}

// command is the JSON control frame a browser client sends to establish or
// tear down its subscription. Field names mirror internal/rpcwire's
// downstream requests so both transports share one vocabulary.
type command struct {
	Action      string   `json:"action"` // "subscribe", "subscribe_all", "unsubscribe"
	StreamNames []string `json:"stream_names,omitempty"`
}

// Bridge is the WebSocket server fronting a subscription.Manager.
type Bridge struct {
	opts    Options
	manager *subscription.Manager
	logger  *slog.Logger
	upgrader websocket.Upgrader
	server  *http.Server
}

// New constructs a Bridge. Call Serve to start accepting connections.
func New(opts Options, manager *subscription.Manager, logger *slog.Logger) *Bridge {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		opts:    opts,
		manager: manager,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Serve blocks serving WebSocket upgrades on opts.Address until the server
// errors or Shutdown is called.
func (b *Bridge) Serve() error {
	mux := http.NewServeMux()
	mux.HandleFunc(b.opts.Path, b.handleUpgrade)
	b.server = &http.Server{Addr: b.opts.Address, Handler: mux}

	err := b.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return qerrors.WrapFatal(err, "bridge.Bridge", "Serve", "http server")
	}
	return nil
}

// Shutdown gracefully stops the HTTP server within timeout.
func (b *Bridge) Shutdown(timeout time.Duration) error {
	if b.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return b.server.Shutdown(ctx)
}

func (b *Bridge) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	id := subscription.SubscriberID(uuid.NewString())
	go b.serveClient(conn, id)
}

// serveClient runs both halves of one client's connection: reading control
// commands and pushing fanned-out packets, until the connection closes.
func (b *Bridge) serveClient(conn *websocket.Conn, id subscription.SubscriberID) {
	defer func() {
		b.manager.UnsubscribeFromAll(id)
		_ = conn.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		b.readCommands(conn, id)
	}()

	b.pushPackets(ctx, conn, id)
	wg.Wait()
}

func (b *Bridge) readCommands(conn *websocket.Conn, id subscription.SubscriberID) {
	for {
		var cmd command
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		switch cmd.Action {
		case "subscribe":
			if len(cmd.StreamNames) == 0 {
				b.writeError(conn, "subscribe requires at least one stream name")
				continue
			}
			if err := b.manager.Subscribe(id, cmd.StreamNames); err != nil {
				b.writeError(conn, err.Error())
			}
		case "subscribe_all":
			b.manager.SubscribeToAll(id)
		case "unsubscribe":
			b.manager.UnsubscribeFromAll(id)
		default:
			b.writeError(conn, fmt.Sprintf("unknown action %q", cmd.Action))
		}
	}
}

func (b *Bridge) writeError(conn *websocket.Conn, message string) {
	_ = conn.WriteJSON(map[string]string{"type": "error", "message": message})
}

// pushPackets polls the subscription manager at PollInterval and forwards
// any drained packets as JSON frames, until ctx is cancelled by the read
// side closing or the connection itself erroring.
func (b *Bridge) pushPackets(ctx context.Context, conn *websocket.Conn, id subscription.SubscriberID) {
	ticker := time.NewTicker(b.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			packets := b.manager.GetPackets(id)
			for _, p := range packets {
				wire := rpcwire.FromPacket(p)
				if err := conn.WriteJSON(wire); err != nil {
					return
				}
			}
		}
	}
}
