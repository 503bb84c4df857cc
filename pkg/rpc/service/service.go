// Package service describes the apache.rocketmq.v1.MessagingService gRPC
// service in terms of the messages of package protocol.
package service

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/AutoMQ/rocketmq-client/pkg/rpc/protocol"
)

const (
	ServiceName = "apache.rocketmq.v1.MessagingService"

	QueryRouteMethod  = "/" + ServiceName + "/QueryRoute"
	SendMessageMethod = "/" + ServiceName + "/SendMessage"
)

// MessagingServiceClient is the client API for MessagingService.
type MessagingServiceClient interface {
	QueryRoute(ctx context.Context, in *protocol.QueryRouteRequest, opts ...grpc.CallOption) (*protocol.QueryRouteResponse, error)
	SendMessage(ctx context.Context, in *protocol.SendMessageRequest, opts ...grpc.CallOption) (*protocol.SendMessageResponse, error)
}

type messagingServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewMessagingServiceClient returns a client stub issuing calls on cc.
func NewMessagingServiceClient(cc grpc.ClientConnInterface) MessagingServiceClient {
	return &messagingServiceClient{cc: cc}
}

func (c *messagingServiceClient) QueryRoute(ctx context.Context, in *protocol.QueryRouteRequest, opts ...grpc.CallOption) (*protocol.QueryRouteResponse, error) {
	out := new(protocol.QueryRouteResponse)
	err := c.cc.Invoke(ctx, QueryRouteMethod, in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *messagingServiceClient) SendMessage(ctx context.Context, in *protocol.SendMessageRequest, opts ...grpc.CallOption) (*protocol.SendMessageResponse, error) {
	out := new(protocol.SendMessageResponse)
	err := c.cc.Invoke(ctx, SendMessageMethod, in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MessagingServiceServer is the server API for MessagingService.
type MessagingServiceServer interface {
	QueryRoute(context.Context, *protocol.QueryRouteRequest) (*protocol.QueryRouteResponse, error)
	SendMessage(context.Context, *protocol.SendMessageRequest) (*protocol.SendMessageResponse, error)
}

// UnimplementedMessagingServiceServer can be embedded to have forward compatible implementations.
type UnimplementedMessagingServiceServer struct{}

func (UnimplementedMessagingServiceServer) QueryRoute(context.Context, *protocol.QueryRouteRequest) (*protocol.QueryRouteResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method QueryRoute not implemented")
}

func (UnimplementedMessagingServiceServer) SendMessage(context.Context, *protocol.SendMessageRequest) (*protocol.SendMessageResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SendMessage not implemented")
}

// RegisterMessagingServiceServer registers srv on s.
// The server must be created with grpc.ForceServerCodec(codec.New(...)).
func RegisterMessagingServiceServer(s grpc.ServiceRegistrar, srv MessagingServiceServer) {
	s.RegisterService(&_messagingServiceDesc, srv)
}

func queryRouteHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(protocol.QueryRouteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MessagingServiceServer).QueryRoute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: QueryRouteMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MessagingServiceServer).QueryRoute(ctx, req.(*protocol.QueryRouteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func sendMessageHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(protocol.SendMessageRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MessagingServiceServer).SendMessage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: SendMessageMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MessagingServiceServer).SendMessage(ctx, req.(*protocol.SendMessageRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var _messagingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MessagingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "QueryRoute",
			Handler:    queryRouteHandler,
		},
		{
			MethodName: "SendMessage",
			Handler:    sendMessageHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "apache/rocketmq/v1/service.proto",
}
