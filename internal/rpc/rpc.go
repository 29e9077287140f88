// Package rpc describes the sehatin.v1.Sehatin gRPC service. Every method
// takes and returns a google.protobuf.Struct; field layout lives in
// internal/convert.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "sehatin.v1.Sehatin"

// Method names.
const (
	MethodSignUp        = "SignUp"
	MethodSignIn        = "SignIn"
	MethodUpdateProfile = "UpdateProfile"
	MethodInsert        = "Insert"
	MethodSelect        = "Select"
)

// FullMethod returns "/sehatin.v1.Sehatin/<method>".
func FullMethod(method string) string { return "/" + ServiceName + "/" + method }

// Handler is the server side of the service.
type Handler interface {
	SignUp(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SignIn(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Insert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Select(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type call func(Handler, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, fn call) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(Handler), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return fn(srv.(Handler), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ServiceDesc is registered with grpc.Server by RegisterHandler.
//
// Messages are structpb.Struct and no .proto file is compiled in, so
// Metadata names a descriptor that is absent from the protobuf registry.
// Server reflection can list the service but cannot describe its methods.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Handler)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodSignUp, Handler.SignUp),
		unary(MethodSignIn, Handler.SignIn),
		unary(MethodUpdateProfile, Handler.UpdateProfile),
		unary(MethodInsert, Handler.Insert),
		unary(MethodSelect, Handler.Select),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sehatin/v1/sehatin.proto",
}

// RegisterHandler attaches h to s.
func RegisterHandler(s grpc.ServiceRegistrar, h Handler) {
	s.RegisterService(&ServiceDesc, h)
}

// Client invokes the service over a connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

// Call performs one unary round trip.
func (c *Client) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
