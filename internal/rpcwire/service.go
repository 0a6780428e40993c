package rpcwire

import (
	"context"

	"google.golang.org/grpc"
)

// Fully-qualified RPC names, the hand-declared stand-in for what
// protoc-gen-go-grpc would otherwise emit from a .proto file.
const (
	ImportServiceName = "quakerelay.v1.ImportService"
	ImportSubscribeFQN = "/" + ImportServiceName + "/Subscribe"

	SubscriptionServiceName    = "quakerelay.v1.SubscriptionService"
	SubscribeFQN       = "/" + SubscriptionServiceName + "/Subscribe"
	SubscribeToAllFQN  = "/" + SubscriptionServiceName + "/SubscribeToAll"
	GetPacketsFQN      = "/" + SubscriptionServiceName + "/GetPackets"
	UnsubscribeFQN     = "/" + SubscriptionServiceName + "/Unsubscribe"
)

// ImportSubscribeStreamDesc is the server-streaming descriptor for the
// upstream import RPC (consumed by internal/upstream, served by whatever
// external import backend this service dials).
var ImportSubscribeStreamDesc = grpc.StreamDesc{
	StreamName:    "Subscribe",
	ServerStreams: true,
}

// PacketStreamClient is the minimal surface internal/upstream needs from a
// server-streaming gRPC call: repeated Recv of WirePacket until io.EOF or an
// error, plus the embedded stream's Context/CloseSend.
type PacketStreamClient interface {
	grpc.ClientStream
	Recv() (*WirePacket, error)
}

type packetStreamClient struct {
	grpc.ClientStream
}

func (c *packetStreamClient) Recv() (*WirePacket, error) {
	var p WirePacket
	if err := c.ClientStream.RecvMsg(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// OpenImportSubscribe opens the upstream import stream over conn.
func OpenImportSubscribe(ctx context.Context, conn grpc.ClientConnInterface, req *SubscriptionRequest) (PacketStreamClient, error) {
	stream, err := conn.NewStream(ctx, &ImportSubscribeStreamDesc, ImportSubscribeFQN, grpc.CallContentSubtype(CodecName))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &packetStreamClient{ClientStream: stream}, nil
}
