// Package testutil provides helpers shared by tests.
package testutil

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/AutoMQ/rocketmq-client/pkg/route"
	"github.com/AutoMQ/rocketmq-client/pkg/rpc/codec"
	"github.com/AutoMQ/rocketmq-client/pkg/rpc/codec/format"
	"github.com/AutoMQ/rocketmq-client/pkg/rpc/protocol"
	"github.com/AutoMQ/rocketmq-client/pkg/rpc/service"
	tempurl "github.com/AutoMQ/rocketmq-client/pkg/util/testutil/url"
)

// ServerOptions configures StartServer.
type ServerOptions struct {
	// TLS, if not nil, makes the server speak TLS.
	TLS *tls.Config
	// Format is the wire format. Default to format.Default()
	Format format.Format
}

// StartServer serves srv on a free local address.
// shutdown stops the server and waits for it.
func StartServer(tb testing.TB, srv service.MessagingServiceServer, opts ServerOptions) (addr string, shutdown func()) {
	re := require.New(tb)

	addr = tempurl.AllocAddr(tb)
	listener, err := net.Listen("tcp", addr)
	re.NoError(err)

	serverOpts := []grpc.ServerOption{grpc.ForceServerCodec(codec.New(opts.Format))}
	if opts.TLS != nil {
		serverOpts = append(serverOpts, grpc.Creds(credentials.NewTLS(opts.TLS)))
	}
	s := grpc.NewServer(serverOpts...)
	service.RegisterMessagingServiceServer(s, srv)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Serve(listener)
	}()

	shutdown = func() {
		s.Stop()
		<-done
	}
	return addr, shutdown
}

// ServiceAddress parses addr into a route.ServiceAddress.
func ServiceAddress(tb testing.TB, addr string) route.ServiceAddress {
	sa, err := route.ParseServiceAddress(addr)
	require.NoError(tb, err)
	return sa
}

// MockServer is a MessagingServiceServer answering with fixed responses.
// Calls are recorded with their incoming context.
type MockServer struct {
	service.UnimplementedMessagingServiceServer

	// QueryRouteFunc answers QueryRoute. Default to an empty OK response.
	QueryRouteFunc func(ctx context.Context, req *protocol.QueryRouteRequest) (*protocol.QueryRouteResponse, error)
	// SendMessageFunc answers SendMessage. Default to an OK response echoing the message id.
	SendMessageFunc func(ctx context.Context, req *protocol.SendMessageRequest) (*protocol.SendMessageResponse, error)

	mu       sync.Mutex
	contexts []context.Context
	requests []protocol.WireMessage
}

func (s *MockServer) record(ctx context.Context, req protocol.WireMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts = append(s.contexts, ctx)
	s.requests = append(s.requests, req)
}

// Requests returns the recorded requests.
func (s *MockServer) Requests() []protocol.WireMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.WireMessage(nil), s.requests...)
}

// Contexts returns the recorded incoming contexts.
func (s *MockServer) Contexts() []context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]context.Context(nil), s.contexts...)
}

func (s *MockServer) QueryRoute(ctx context.Context, req *protocol.QueryRouteRequest) (*protocol.QueryRouteResponse, error) {
	s.record(ctx, req)
	if s.QueryRouteFunc != nil {
		return s.QueryRouteFunc(ctx, req)
	}
	return &protocol.QueryRouteResponse{Common: OKCommon()}, nil
}

func (s *MockServer) SendMessage(ctx context.Context, req *protocol.SendMessageRequest) (*protocol.SendMessageResponse, error) {
	s.record(ctx, req)
	if s.SendMessageFunc != nil {
		return s.SendMessageFunc(ctx, req)
	}
	resp := &protocol.SendMessageResponse{Common: OKCommon()}
	if req.Message != nil && req.Message.SystemAttribute != nil {
		resp.MessageID = req.Message.SystemAttribute.MessageID
	}
	return resp, nil
}

// OKCommon is a response header with an OK status.
func OKCommon() *protocol.ResponseCommon {
	return &protocol.ResponseCommon{Status: &protocol.Status{Code: protocol.CodeOK, Message: "OK"}}
}

// RouteResponse builds a route response of n read-write partitions of topic, all hosted by the broker at addr.
func RouteResponse(topic *protocol.Resource, brokerName, addr string, n int) *protocol.QueryRouteResponse {
	host, portStr, _ := net.SplitHostPort(addr)
	port, _ := net.LookupPort("tcp", portStr)
	resp := &protocol.QueryRouteResponse{Common: OKCommon()}
	for i := 0; i < n; i++ {
		resp.Partitions = append(resp.Partitions, &protocol.Partition{
			Topic:      topic,
			ID:         int32(i),
			Permission: protocol.PermissionReadWrite,
			Broker: &protocol.Broker{
				Name: brokerName,
				Endpoints: &protocol.Endpoints{
					Scheme:    protocol.AddressSchemeIPv4,
					Addresses: []*protocol.Address{{Host: host, Port: int32(port)}},
				},
			},
		})
	}
	return resp
}
