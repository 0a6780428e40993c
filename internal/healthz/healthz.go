// Package healthz exposes a /healthz HTTP endpoint reporting process
// liveness and whether the upstream subscriber's reconnect loop is
// currently connected (SPEC_FULL.md section 4.12), adapted from
// metric/handler.go's bare-bones health mux entry into its own small
// server so it can report a richer aggregate via health.Monitor.
package healthz

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/c360/quakerelay/errors"
	"github.com/c360/quakerelay/health"
)

// Server serves the aggregate health.Monitor state at /healthz.
type Server struct {
	addr    string
	monitor *health.Monitor
	server  *http.Server
}

// New constructs a healthz Server bound to monitor.
func New(addr string, monitor *health.Monitor) *Server {
	return &Server{addr: addr, monitor: monitor}
}

// Start begins serving and blocks until the server stops or errors.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handle)
	s.server = &http.Server{Addr: s.addr, Handler: mux}

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return errors.WrapFatal(err, "healthz.Server", "Start", fmt.Sprintf("listen on %s", s.addr))
	}
	return nil
}

// Stop gracefully closes the server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	return s.server.Close()
}

func (s *Server) handle(w http.ResponseWriter, _ *http.Request) {
	status := s.monitor.AggregateHealth("quakerelay")

	w.Header().Set("Content-Type", "application/json")
	if !status.IsHealthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}
