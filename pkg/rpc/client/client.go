package client

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/AutoMQ/rocketmq-client/pkg/rpc/protocol"
	"github.com/AutoMQ/rocketmq-client/pkg/rpc/service"
	"github.com/AutoMQ/rocketmq-client/pkg/util/traceutil"
)

const (
	_defaultTimeout = 3 * time.Second
)

// ErrNilRequest is returned when a call is submitted without a request.
var ErrNilRequest = errors.New("nil request")

// RpcClient issues asynchronous calls to one broker over a Channel.
// Results are delivered through the callbacks of InvocationContext, on the
// workers of a CompletionQueue. It is safe for concurrent use.
type RpcClient struct {
	// Timeout is applied to contexts submitted without a deadline.
	// Default to 3s
	Timeout time.Duration

	channel *Channel
	stub    service.MessagingServiceClient
	cq      *CompletionQueue

	lg *zap.Logger
}

// NewRpcClient creates a client calling through channel and completing on cq.
func NewRpcClient(channel *Channel, cq *CompletionQueue, lg *zap.Logger) *RpcClient {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &RpcClient{
		channel: channel,
		stub:    service.NewMessagingServiceClient(channel.Conn()),
		cq:      cq,
		lg:      lg.With(zap.String("endpoints", channel.Endpoints().String())),
	}
}

// Channel returns the channel of the client.
func (c *RpcClient) Channel() *Channel {
	return c.channel
}

// AsyncQueryRoute submits a route query and returns at once.
// On a nil error, ictx.Callback will be called exactly once.
func (c *RpcClient) AsyncQueryRoute(req *protocol.QueryRouteRequest, ictx *InvocationContext[*protocol.QueryRouteResponse]) error {
	if req == nil {
		return ErrNilRequest
	}
	return asyncInvoke(c, service.QueryRouteMethod, ictx,
		func(ctx context.Context, opts ...grpc.CallOption) (*protocol.QueryRouteResponse, error) {
			return c.stub.QueryRoute(ctx, req, opts...)
		})
}

// AsyncSend submits a send and returns at once.
// On a nil error, ictx.Callback will be called exactly once.
func (c *RpcClient) AsyncSend(req *protocol.SendMessageRequest, ictx *InvocationContext[*protocol.SendMessageResponse]) error {
	if req == nil {
		return ErrNilRequest
	}
	return asyncInvoke(c, service.SendMessageMethod, ictx,
		func(ctx context.Context, opts ...grpc.CallOption) (*protocol.SendMessageResponse, error) {
			return c.stub.SendMessage(ctx, req, opts...)
		})
}

// QueryRoute is the blocking form of AsyncQueryRoute.
// The deadline of ctx, if any, is the deadline of the call.
func (c *RpcClient) QueryRoute(ctx context.Context, req *protocol.QueryRouteRequest, md map[string]string) (*protocol.QueryRouteResponse, error) {
	ictx := newContext[*protocol.QueryRouteResponse](ctx, c, md)
	return wait(ctx, ictx, func() error { return c.AsyncQueryRoute(req, ictx) })
}

// Send is the blocking form of AsyncSend.
// The deadline of ctx, if any, is the deadline of the call.
func (c *RpcClient) Send(ctx context.Context, req *protocol.SendMessageRequest, md map[string]string) (*protocol.SendMessageResponse, error) {
	ictx := newContext[*protocol.SendMessageResponse](ctx, c, md)
	return wait(ctx, ictx, func() error { return c.AsyncSend(req, ictx) })
}

// Pending returns the number of calls of the completion queue not resolved yet.
func (c *RpcClient) Pending() int {
	return c.cq.Pending()
}

// Close closes the channel. Use Pool.Shutdown to drain calls first.
func (c *RpcClient) Close() error {
	return c.channel.Close()
}

func (c *RpcClient) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return _defaultTimeout
}

func newContext[R any](ctx context.Context, c *RpcClient, md map[string]string) *InvocationContext[R] {
	ictx := NewInvocationContext[R](c.timeout())
	if deadline, ok := ctx.Deadline(); ok {
		ictx.Deadline = deadline
	}
	for k, v := range md {
		ictx.Metadata[k] = v
	}
	ictx.TraceID = traceutil.TraceID(ctx)
	return ictx
}

func asyncInvoke[R protocol.Response](c *RpcClient, method string, ictx *InvocationContext[R],
	call func(ctx context.Context, opts ...grpc.CallOption) (R, error)) error {
	if ictx == nil {
		return errors.New("nil invocation context")
	}
	if err := ictx.submit(); err != nil {
		return err
	}
	if ictx.Deadline.IsZero() {
		ictx.Deadline = time.Now().Add(c.timeout())
	}
	md := metadata.New(ictx.Metadata)

	err := c.cq.Submit(method, c.channel.Target(), ictx.Deadline, func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				c.lg.Error("panic in call", zap.String("method", method), zap.Any("panic", r), zap.Stack("stack"))
				var zero R
				ictx.complete(zero, false, nil, nil, errors.Errorf("panic in call %s: %v", method, r))
			}
		}()
		ctx = metadata.NewOutgoingContext(ctx, md)
		if ictx.TraceID != "" {
			ctx = traceutil.SetTraceID(ctx, ictx.TraceID)
		}
		var header, trailer metadata.MD
		resp, err := call(ctx, grpc.Header(&header), grpc.Trailer(&trailer))
		if err == nil {
			err = protocol.CheckStatus(resp)
		}
		ictx.complete(resp, err == nil || isStatusError(err), header, trailer, err)
	})
	if err != nil {
		ictx.rollback()
		c.lg.Warn("failed to submit call", zap.String("method", method), zap.Error(err))
		return err
	}
	return nil
}

// wait submits ictx and blocks until its callback fires or ctx is done.
func wait[R any](ctx context.Context, ictx *InvocationContext[R], submit func() error) (R, error) {
	var zero R
	done := make(chan error, 1)
	ictx.Callback = func(_ *InvocationContext[R], err error) {
		done <- err
	}
	if err := submit(); err != nil {
		return zero, err
	}
	select {
	case err := <-done:
		return ictx.Response, err
	case <-ctx.Done():
		return zero, errors.Wrap(ctx.Err(), "wait for response")
	}
}

func isStatusError(err error) bool {
	var statusErr *protocol.StatusError
	return errors.As(err, &statusErr)
}
