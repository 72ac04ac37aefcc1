package rpcproto

import (
	"context"

	"google.golang.org/grpc"
)

// unaryMethod builds a grpc.MethodHandler for one RPC method. It plays
// the role protoc-gen-go-grpc's per-method generated function normally
// plays, generic over request/response type so the six near-identical
// MqttClientControl methods don't need six hand-copied handlers.
func unaryMethod[Req, Resp any](call func(srv any, ctx context.Context, req *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// invokeUnary performs one unary client-side call through cc, mirroring
// what a generated client stub's per-method body does.
func invokeUnary[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *Req, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
