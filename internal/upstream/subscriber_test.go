package upstream

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/c360/quakerelay/internal/packet"
	"github.com/c360/quakerelay/internal/rpcwire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestNewRejectsDescendingSchedule(t *testing.T) {
	_, err := New(Config{ReconnectSchedule: []time.Duration{5 * time.Second, time.Second}}, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for descending schedule")
	}
}

func TestNewRejectsNegativeEntry(t *testing.T) {
	_, err := New(Config{ReconnectSchedule: []time.Duration{-1}}, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for negative schedule entry")
	}
}

func TestNewAppliesDefaultSchedule(t *testing.T) {
	s, err := New(Config{}, func(packet.Packet) {}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(s.cfg.ReconnectSchedule) == 0 {
		t.Fatal("expected default reconnect schedule to be applied")
	}
}

func TestClassifyTerminalTreatsUnavailableAndCanceledAsRetryable(t *testing.T) {
	s := &Subscriber{}
	for _, code := range []codes.Code{codes.Unavailable, codes.Canceled, codes.OK} {
		if err := s.classifyTerminal(status.Error(code, "x")); err != nil {
			t.Fatalf("code %v: expected nil, got %v", code, err)
		}
	}
	if err := s.classifyTerminal(status.Error(codes.PermissionDenied, "nope")); err == nil {
		t.Fatal("expected non-nil for non-retryable code")
	}
}

func TestStopWakesSleeper(t *testing.T) {
	s, err := New(Config{ReconnectSchedule: []time.Duration{time.Minute}}, func(packet.Packet) {}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	woke := make(chan bool, 1)
	go func() {
		woke <- s.sleep(time.Minute)
	}()
	time.Sleep(20 * time.Millisecond)
	s.Stop()
	select {
	case result := <-woke:
		if result {
			t.Fatal("expected sleep to return false after Stop")
		}
	case <-time.After(time.Second):
		t.Fatal("sleep did not wake up after Stop")
	}
}

// fakeImportServer streams a fixed number of packets, then returns a given
// terminal status, letting tests exercise the reconnect/progress logic
// against a real gRPC connection.
type fakeImportServer struct {
	packetsPerCall int
	terminal       error
	calls          int
}

func (f *fakeImportServer) handle(srv any, stream grpc.ServerStream) error {
	var req rpcwire.SubscriptionRequest
	if err := stream.RecvMsg(&req); err != nil {
		return err
	}
	f.calls++
	for i := 0; i < f.packetsPerCall; i++ {
		wp := rpcwire.WirePacket{
			Network: "NT", Station: "STA", Channel: "CHZ", LocationCode: "--",
			StartTimeSec: int64(i), SamplingRate: 100, NumberOfSamples: 1,
			DataType: "int32", Data: []byte{0, 0, 0, 1},
		}
		if err := stream.SendMsg(&wp); err != nil {
			return err
		}
	}
	return f.terminal
}

func startFakeImportService(t *testing.T, f *fakeImportServer) (addr string, stop func()) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	gs := grpc.NewServer()
	gs.RegisterService(&grpc.ServiceDesc{
		ServiceName: rpcwire.ImportServiceName,
		HandlerType: (*any)(nil),
		Streams: []grpc.StreamDesc{{
			StreamName:    "Subscribe",
			Handler:       f.handle,
			ServerStreams: true,
		}},
	}, nil)
	go gs.Serve(lis)
	return lis.Addr().String(), gs.Stop
}

func TestAttemptDeliversPacketsAndReportsProgress(t *testing.T) {
	fake := &fakeImportServer{packetsPerCall: 3, terminal: status.Error(codes.Unavailable, "restart")}
	addr, stop := startFakeImportService(t, fake)
	defer stop()

	var received int
	s, err := New(Config{Dial: DialOptions{Address: addr}}, func(packet.Packet) { received++ }, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	conn, err := dial(s.cfg.Dial)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	s.conn = conn
	defer conn.Close()

	madeProgress, attemptErr := s.attempt(context.Background())
	if attemptErr != nil {
		t.Fatalf("expected retryable status to classify as nil, got %v", attemptErr)
	}
	if !madeProgress {
		t.Fatal("expected progress to be reported")
	}
	if received != 3 {
		t.Fatalf("expected 3 packets delivered, got %d", received)
	}
}

func TestAttemptReturnsFatalOnUnclassifiedStatus(t *testing.T) {
	fake := &fakeImportServer{packetsPerCall: 0, terminal: status.Error(codes.PermissionDenied, "denied")}
	addr, stop := startFakeImportService(t, fake)
	defer stop()

	s, err := New(Config{Dial: DialOptions{Address: addr}}, func(packet.Packet) {}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	conn, err := dial(s.cfg.Dial)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	s.conn = conn
	defer conn.Close()

	_, attemptErr := s.attempt(context.Background())
	if attemptErr == nil {
		t.Fatal("expected a fatal error for a permission-denied status")
	}
	if status.Code(attemptErr) != codes.PermissionDenied {
		t.Fatalf("expected permission-denied code, got %v", attemptErr)
	}
}

func TestRunExitsCleanlyOnStopDuringBackoff(t *testing.T) {
	fake := &fakeImportServer{packetsPerCall: 0, terminal: status.Error(codes.Unavailable, "down")}
	addr, stop := startFakeImportService(t, fake)
	defer stop()

	s, err := New(Config{
		Dial:              DialOptions{Address: addr},
		ReconnectSchedule: []time.Duration{0, time.Minute},
	}, func(packet.Packet) {}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := s.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	select {
	case runErr := <-done:
		if runErr != nil {
			t.Fatalf("expected clean exit, got %v", runErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not exit after Stop")
	}
}
