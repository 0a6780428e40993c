package downstream

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/c360/quakerelay/internal/packet"
	"github.com/c360/quakerelay/internal/rpcwire"
	"github.com/c360/quakerelay/internal/stream"
	"github.com/c360/quakerelay/internal/subscription"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

func newTestSamplePacket(name string) packet.Packet {
	return packet.Packet{
		StreamID:        packet.StreamID{Network: "NT", Station: "STA", Channel: name, LocationCode: "--"},
		StartTime:       time.Unix(1000, 0).UTC(),
		SamplingRate:    100,
		NumberOfSamples: 1,
		DataType:        packet.DataTypeInt32,
		Data:            []byte{0, 0, 0, 1},
	}
}

func startTestServer(t *testing.T) (*grpc.ClientConn, *subscription.Manager, func()) {
	t.Helper()
	mgr, err := subscription.New(stream.Options{}, nil, nil)
	if err != nil {
		t.Fatalf("subscription.New: %v", err)
	}
	srv := New(Options{Address: "127.0.0.1:0"}, mgr, nil)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		_ = srv.pool.Start(context.Background())
		_ = srv.grpc.Serve(lis)
	}()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn, mgr, func() {
		conn.Close()
		srv.grpc.Stop()
	}
}

func invokeSubscribe(t *testing.T, conn *grpc.ClientConn, req *rpcwire.SubscribeRequest) *rpcwire.SubscribeResponse {
	t.Helper()
	var resp rpcwire.SubscribeResponse
	if err := conn.Invoke(context.Background(), rpcwire.SubscribeFQN, req, &resp, grpc.CallContentSubtype(rpcwire.CodecName)); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	return &resp
}

func TestSubscribeRejectsEmptyNames(t *testing.T) {
	conn, _, stop := startTestServer(t)
	defer stop()

	err := conn.Invoke(context.Background(), rpcwire.SubscribeFQN, &rpcwire.SubscribeRequest{}, &rpcwire.SubscribeResponse{}, grpc.CallContentSubtype(rpcwire.CodecName))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestSubscribeMintsIDAndGetPacketsDrainsFanout(t *testing.T) {
	conn, mgr, stop := startTestServer(t)
	defer stop()

	sub := invokeSubscribe(t, conn, &rpcwire.SubscribeRequest{StreamNames: []string{"NT.STA.CHZ.--"}})
	if sub.SubscriberID == "" {
		t.Fatal("expected a minted subscriber id")
	}

	if err := mgr.EnqueuePacket(newTestSamplePacket("CHZ")); err != nil {
		t.Fatalf("EnqueuePacket: %v", err)
	}

	var getResp rpcwire.GetPacketsResponse
	req := &rpcwire.GetPacketsRequest{SubscriberID: sub.SubscriberID}
	if err := conn.Invoke(context.Background(), rpcwire.GetPacketsFQN, req, &getResp, grpc.CallContentSubtype(rpcwire.CodecName)); err != nil {
		t.Fatalf("GetPackets: %v", err)
	}
	if len(getResp.Packets) != 1 {
		t.Fatalf("expected 1 packet, got %d", len(getResp.Packets))
	}
	if getResp.Packets[0].Channel != "CHZ" {
		t.Fatalf("expected channel CHZ, got %q", getResp.Packets[0].Channel)
	}
}

func TestUnsubscribeThenGetPacketsReturnsEmpty(t *testing.T) {
	conn, mgr, stop := startTestServer(t)
	defer stop()

	sub := invokeSubscribe(t, conn, &rpcwire.SubscribeRequest{StreamNames: []string{"NT.STA.CHZ.--"}})

	var unsubResp rpcwire.UnsubscribeResponse
	unsubReq := &rpcwire.UnsubscribeRequest{SubscriberID: sub.SubscriberID}
	if err := conn.Invoke(context.Background(), rpcwire.UnsubscribeFQN, unsubReq, &unsubResp, grpc.CallContentSubtype(rpcwire.CodecName)); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}

	if err := mgr.EnqueuePacket(newTestSamplePacket("CHZ")); err != nil {
		t.Fatalf("EnqueuePacket: %v", err)
	}

	var getResp rpcwire.GetPacketsResponse
	req := &rpcwire.GetPacketsRequest{SubscriberID: sub.SubscriberID}
	if err := conn.Invoke(context.Background(), rpcwire.GetPacketsFQN, req, &getResp, grpc.CallContentSubtype(rpcwire.CodecName)); err != nil {
		t.Fatalf("GetPackets: %v", err)
	}
	if len(getResp.Packets) != 0 {
		t.Fatalf("expected no packets after unsubscribe, got %d", len(getResp.Packets))
	}
}

func TestSubscribeToAllMintsIDWhenAbsent(t *testing.T) {
	conn, _, stop := startTestServer(t)
	defer stop()

	var resp rpcwire.SubscribeResponse
	req := &rpcwire.SubscribeToAllRequest{}
	if err := conn.Invoke(context.Background(), rpcwire.SubscribeToAllFQN, req, &resp, grpc.CallContentSubtype(rpcwire.CodecName)); err != nil {
		t.Fatalf("SubscribeToAll: %v", err)
	}
	if resp.SubscriberID == "" {
		t.Fatal("expected a minted subscriber id")
	}
}
