package healthz

import (
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/c360/quakerelay/health"
)

func startTestServer(t *testing.T, monitor *health.Monitor) (string, func()) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := lis.Addr().String()
	lis.Close()

	s := New(addr, monitor)
	go func() { _ = s.Start() }()
	time.Sleep(50 * time.Millisecond)
	return addr, func() { _ = s.Stop() }
}

func TestHealthzReportsHealthy(t *testing.T) {
	monitor := health.NewMonitor()
	monitor.UpdateHealthy("upstream", "connected")
	addr, stop := startTestServer(t, monitor)
	defer stop()

	resp, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var status health.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !status.IsHealthy() {
		t.Fatalf("expected healthy status, got %+v", status)
	}
}

func TestHealthzReportsUnhealthy(t *testing.T) {
	monitor := health.NewMonitor()
	monitor.UpdateUnhealthy("upstream", "disconnected")
	addr, stop := startTestServer(t, monitor)
	defer stop()

	resp, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}
