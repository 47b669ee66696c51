package security

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "catpoint.v1.SecurityService"

// Full method names.
const (
	MethodGetStatus       = "/" + ServiceName + "/GetStatus"
	MethodSetArmingStatus = "/" + ServiceName + "/SetArmingStatus"
	MethodChangeSensor    = "/" + ServiceName + "/ChangeSensor"
	MethodAddSensor       = "/" + ServiceName + "/AddSensor"
	MethodRemoveSensor    = "/" + ServiceName + "/RemoveSensor"
	MethodProcessImage    = "/" + ServiceName + "/ProcessImage"
)

// SecurityServiceServer is the server API of the security service.
// Every method answers with the resulting state snapshot.
type SecurityServiceServer interface {
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	SetArmingStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ChangeSensor(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AddSensor(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RemoveSensor(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	ProcessImage(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error)
}

// ServiceDesc describes the security service for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Same shape as generated service descriptors.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SecurityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary[emptypb.Empty]("GetStatus", SecurityServiceServer.GetStatus),
		unary[structpb.Struct]("SetArmingStatus", SecurityServiceServer.SetArmingStatus),
		unary[structpb.Struct]("ChangeSensor", SecurityServiceServer.ChangeSensor),
		unary[structpb.Struct]("AddSensor", SecurityServiceServer.AddSensor),
		unary[wrapperspb.StringValue]("RemoveSensor", SecurityServiceServer.RemoveSensor),
		unary[wrapperspb.BytesValue]("ProcessImage", SecurityServiceServer.ProcessImage),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catpoint/v1/security.proto",
}

// RegisterSecurityServiceServer registers srv on s.
func RegisterSecurityServiceServer(s grpc.ServiceRegistrar, srv SecurityServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary builds the method descriptor of a unary call taking a Req message.
func unary[Req any](
	name string,
	call func(SecurityServiceServer, context.Context, *Req) (*structpb.Struct, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(
			srv any,
			ctx context.Context,
			dec func(any) error,
			interceptor grpc.UnaryServerInterceptor,
		) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}

			server, _ := srv.(SecurityServiceServer)

			if interceptor == nil {
				return call(server, ctx, in)
			}

			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}

			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				typed, _ := req.(*Req)

				return call(server, ctx, typed)
			})
		},
	}
}

// SecurityServiceClient is the client API of the security service.
type SecurityServiceClient interface {
	GetStatus(ctx context.Context, req *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	SetArmingStatus(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ChangeSensor(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	AddSensor(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	RemoveSensor(ctx context.Context, req *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	ProcessImage(ctx context.Context, req *wrapperspb.BytesValue, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type securityServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSecurityServiceClient creates a client over cc.
func NewSecurityServiceClient(cc grpc.ClientConnInterface) SecurityServiceClient {
	return &securityServiceClient{cc: cc}
}

func (c *securityServiceClient) invoke(
	ctx context.Context,
	method string,
	req any,
	opts []grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *securityServiceClient) GetStatus(
	ctx context.Context,
	req *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetStatus, req, opts)
}

func (c *securityServiceClient) SetArmingStatus(
	ctx context.Context,
	req *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSetArmingStatus, req, opts)
}

func (c *securityServiceClient) ChangeSensor(
	ctx context.Context,
	req *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodChangeSensor, req, opts)
}

func (c *securityServiceClient) AddSensor(
	ctx context.Context,
	req *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodAddSensor, req, opts)
}

func (c *securityServiceClient) RemoveSensor(
	ctx context.Context,
	req *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodRemoveSensor, req, opts)
}

func (c *securityServiceClient) ProcessImage(
	ctx context.Context,
	req *wrapperspb.BytesValue,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodProcessImage, req, opts)
}
