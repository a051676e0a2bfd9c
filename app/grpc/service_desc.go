package grpc

import (
	"context"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	SignUpServiceName = "signup.v1.SignUpService"

	registerMethod = "/" + SignUpServiceName + "/Register"
	verifyMethod   = "/" + SignUpServiceName + "/Verify"
)

// SignUpServiceServer is served over well-known protobuf types so no
// generated code is needed on either side.
type SignUpServiceServer interface {
	Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Verify(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

var SignUpServiceDesc = gogrpc.ServiceDesc{
	ServiceName: SignUpServiceName,
	HandlerType: (*SignUpServiceServer)(nil),
	Methods: []gogrpc.MethodDesc{
		{MethodName: "Register", Handler: registerHandler},
		{MethodName: "Verify", Handler: verifyHandler},
	},
	Streams:  []gogrpc.StreamDesc{},
	Metadata: "signup/v1/signup.proto",
}

func RegisterSignUpServiceServer(registrar gogrpc.ServiceRegistrar, srv SignUpServiceServer) {
	registrar.RegisterService(&SignUpServiceDesc, srv)
}

func registerHandler(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SignUpServiceServer).Register(ctx, in)
	}
	info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: registerMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SignUpServiceServer).Register(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func verifyHandler(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SignUpServiceServer).Verify(ctx, in)
	}
	info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: verifyMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SignUpServiceServer).Verify(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// SignUpServiceClient calls a remote SignUpService.
type SignUpServiceClient struct {
	cc gogrpc.ClientConnInterface
}

func NewSignUpServiceClient(cc gogrpc.ClientConnInterface) *SignUpServiceClient {
	return &SignUpServiceClient{cc: cc}
}

func (c *SignUpServiceClient) Register(ctx context.Context, in *structpb.Struct, opts ...gogrpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, registerMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SignUpServiceClient) Verify(ctx context.Context, in *wrapperspb.StringValue, opts ...gogrpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, verifyMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
