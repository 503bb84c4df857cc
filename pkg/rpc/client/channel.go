package client

import (
	"fmt"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/resolver"
	"google.golang.org/grpc/resolver/manual"

	"github.com/AutoMQ/rocketmq-client/pkg/route"
	"github.com/AutoMQ/rocketmq-client/pkg/rpc/codec"
	"github.com/AutoMQ/rocketmq-client/pkg/rpc/codec/format"
)

const _roundRobinServiceConfig = `{"loadBalancingConfig":[{"round_robin":{}}]}`

var channelCounter atomic.Uint64

// ChannelOptions configures a Channel.
type ChannelOptions struct {
	// TLS enables transport security. If nil, the channel is plaintext.
	TLS *TLSOptions
	// Format is the wire format of messages.
	// Default to format.Default()
	Format format.Format
	// Metrics, if not nil, records every call.
	Metrics *Metrics
	// Interceptors are chained after the logging and metrics interceptors.
	Interceptors []grpc.UnaryClientInterceptor
	// DialOptions are appended to the options built from the fields above.
	DialOptions []grpc.DialOption
}

// Channel is a connection to the endpoints of one broker.
// Calls made on a Channel go through the interceptors it was built with.
// It is safe for concurrent use.
type Channel struct {
	endpoints route.ServiceAddress
	conn      *grpc.ClientConn

	lg *zap.Logger
}

// NewChannel builds a channel to endpoints. It does not wait for the connection to be established.
// Endpoints with several IP addresses are balanced in round-robin.
func NewChannel(endpoints route.ServiceAddress, opts ChannelOptions, lg *zap.Logger) (*Channel, error) {
	if endpoints.IsZero() {
		return nil, route.ErrEmptyAddresses
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	logger := lg.With(zap.String("endpoints", endpoints.String()))

	creds := insecure.NewCredentials()
	if opts.TLS != nil {
		config, err := opts.TLS.Config()
		if err != nil {
			return nil, errors.WithMessage(err, "build tls config")
		}
		creds = credentials.NewTLS(config)
	}

	interceptors := []grpc.UnaryClientInterceptor{LogInterceptor(logger)}
	if opts.Metrics != nil {
		interceptors = append(interceptors, opts.Metrics.Interceptor())
	}
	interceptors = append(interceptors, opts.Interceptors...)

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithChainUnaryInterceptor(interceptors...),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(codec.New(opts.Format))),
	}

	target := endpoints.Target()
	addresses := endpoints.Addresses()
	if endpoints.Scheme() != route.DomainName && len(addresses) > 1 {
		r := manual.NewBuilderWithScheme(fmt.Sprintf("rmq-%d", channelCounter.Add(1)))
		state := resolver.State{Addresses: make([]resolver.Address, len(addresses))}
		for i, addr := range addresses {
			state.Addresses[i] = resolver.Address{Addr: addr.String()}
		}
		r.InitialState(state)
		target = r.Scheme() + ":///" + addresses[0].String()
		dialOpts = append(dialOpts,
			grpc.WithResolvers(r),
			grpc.WithAuthority(addresses[0].String()),
			grpc.WithDefaultServiceConfig(_roundRobinServiceConfig),
		)
	}
	dialOpts = append(dialOpts, opts.DialOptions...)

	conn, err := grpc.Dial(target, dialOpts...)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", endpoints)
	}
	logger.Info("channel created", zap.String("target", target), zap.Bool("tls", opts.TLS != nil))
	return &Channel{
		endpoints: endpoints,
		conn:      conn,
		lg:        logger,
	}, nil
}

// Endpoints returns the endpoints the channel is bound to.
func (c *Channel) Endpoints() route.ServiceAddress {
	return c.endpoints
}

// Target returns the dial target.
func (c *Channel) Target() string {
	return c.conn.Target()
}

// State returns the connectivity state. A failed handshake shows as TransientFailure.
func (c *Channel) State() connectivity.State {
	return c.conn.GetState()
}

// Conn returns the underlying connection, for use with generated stubs.
func (c *Channel) Conn() grpc.ClientConnInterface {
	return c.conn
}

// Close tears down the connection. In-flight calls fail with Canceled.
func (c *Channel) Close() error {
	c.lg.Info("channel closed")
	return errors.Wrap(c.conn.Close(), "close channel")
}
