package downstream

import (
	"context"

	"github.com/c360/quakerelay/internal/rpcwire"
	"github.com/c360/quakerelay/internal/subscription"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// decodeInto is the shared request-decoding step every hand-declared
// MethodDesc.Handler performs in place of what protoc-gen-go-grpc would
// otherwise generate.
func decodeInto[T any](dec func(any) error, interceptor grpc.UnaryServerInterceptor, info *grpc.UnaryServerInfo, handle func(context.Context, *T) (any, error)) func(ctx context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		req := new(T)
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return handle(ctx, req)
		}
		return interceptor(ctx, req, info, func(ctx context.Context, req any) (any, error) {
			return handle(ctx, req.(*T))
		})
	}
}

func (s *Server) handleSubscribe(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	info := &grpc.UnaryServerInfo{Server: s, FullMethod: rpcwire.SubscribeFQN}
	step := decodeInto[rpcwire.SubscribeRequest](dec, interceptor, info, s.subscribe)
	return s.runUnary(ctx, step)
}

func (s *Server) handleSubscribeToAll(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	info := &grpc.UnaryServerInfo{Server: s, FullMethod: rpcwire.SubscribeToAllFQN}
	step := decodeInto[rpcwire.SubscribeToAllRequest](dec, interceptor, info, s.subscribeToAll)
	return s.runUnary(ctx, step)
}

func (s *Server) handleGetPackets(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	info := &grpc.UnaryServerInfo{Server: s, FullMethod: rpcwire.GetPacketsFQN}
	step := decodeInto[rpcwire.GetPacketsRequest](dec, interceptor, info, s.getPackets)
	return s.runUnary(ctx, step)
}

func (s *Server) handleUnsubscribe(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	info := &grpc.UnaryServerInfo{Server: s, FullMethod: rpcwire.UnsubscribeFQN}
	step := decodeInto[rpcwire.UnsubscribeRequest](dec, interceptor, info, s.unsubscribe)
	return s.runUnary(ctx, step)
}

// runUnary dispatches a decode-then-handle step through the worker pool,
// recovering its result/error pair across the done channel.
func (s *Server) runUnary(ctx context.Context, step func(ctx context.Context) (any, error)) (any, error) {
	var resp any
	var rpcErr error
	err := s.submit(ctx, func(ctx context.Context) {
		resp, rpcErr = step(ctx)
	})
	if err != nil {
		return nil, err
	}
	return resp, rpcErr
}

func (s *Server) subscribe(ctx context.Context, req *rpcwire.SubscribeRequest) (any, error) {
	if len(req.StreamNames) == 0 {
		return nil, status.Error(codes.InvalidArgument, "subscribe requires at least one stream name")
	}
	id := subscription.SubscriberID(req.SubscriberID)
	if id == "" {
		id = newSubscriberID()
	}
	if err := s.manager.Subscribe(id, req.StreamNames); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return &rpcwire.SubscribeResponse{SubscriberID: string(id)}, nil
}

func (s *Server) subscribeToAll(ctx context.Context, req *rpcwire.SubscribeToAllRequest) (any, error) {
	id := subscription.SubscriberID(req.SubscriberID)
	if id == "" {
		id = newSubscriberID()
	}
	s.manager.SubscribeToAll(id)
	return &rpcwire.SubscribeResponse{SubscriberID: string(id)}, nil
}

func (s *Server) getPackets(ctx context.Context, req *rpcwire.GetPacketsRequest) (any, error) {
	if req.SubscriberID == "" {
		return nil, status.Error(codes.InvalidArgument, "subscriber_id is required")
	}
	packets := s.manager.GetPackets(subscription.SubscriberID(req.SubscriberID))
	resp := &rpcwire.GetPacketsResponse{Packets: make([]rpcwire.WirePacket, len(packets))}
	for i, p := range packets {
		resp.Packets[i] = rpcwire.FromPacket(p)
	}
	return resp, nil
}

func (s *Server) unsubscribe(ctx context.Context, req *rpcwire.UnsubscribeRequest) (any, error) {
	if req.SubscriberID == "" {
		return nil, status.Error(codes.InvalidArgument, "subscriber_id is required")
	}
	s.manager.UnsubscribeFromAll(subscription.SubscriberID(req.SubscriberID))
	return &rpcwire.UnsubscribeResponse{}, nil
}
