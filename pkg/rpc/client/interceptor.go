package client

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/AutoMQ/rocketmq-client/pkg/auth"
	"github.com/AutoMQ/rocketmq-client/pkg/rpc/protocol"
	"github.com/AutoMQ/rocketmq-client/pkg/util/traceutil"
)

// LogInterceptor logs every call made on a channel.
// Failed calls are logged at warn level, payloads only at debug level.
func LogInterceptor(lg *zap.Logger) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)

		logger := lg.With(zap.String("method", method), zap.String("target", cc.Target()),
			zap.Duration("elapsed", time.Since(start)), zap.Stringer("code", status.Code(err)), traceutil.TraceLogField(ctx))
		if md, ok := metadata.FromOutgoingContext(ctx); ok {
			if ids := md.Get(auth.HeaderRequestID); len(ids) > 0 {
				logger = logger.With(zap.String("request-id", ids[0]))
			}
		}

		if err != nil {
			logger.Warn("rpc failed", zap.Error(err))
			return err
		}
		if logger.Core().Enabled(zap.DebugLevel) {
			logger.Debug("rpc done", zap.Any("request", req), zap.Any("response", reply))
		}
		return nil
	}
}

// Metrics records the number and the latency of calls, by method and result code.
type Metrics struct {
	// Requests counts finished calls.
	// Labels: method, code
	Requests *prometheus.CounterVec
	// Latency tracks call latency in seconds.
	// Labels: method
	Latency *prometheus.HistogramVec
}

// NewMetrics creates the metrics and registers them with reg, if reg is not nil.
// Metrics already registered with reg are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rocketmq",
				Subsystem: "client",
				Name:      "rpc_requests_total",
				Help:      "Total number of finished RPCs.",
			},
			[]string{"method", "code"},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rocketmq",
				Subsystem: "client",
				Name:      "rpc_duration_seconds",
				Help:      "Latency of RPCs in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
			},
			[]string{"method"},
		),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.Requests, err = register(reg, m.Requests); err != nil {
		return nil, err
	}
	if m.Latency, err = register(reg, m.Latency); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, errors.Wrap(err, "register metrics")
}

// Interceptor returns a client interceptor feeding the metrics.
func (m *Metrics) Interceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)
		m.Latency.WithLabelValues(method).Observe(time.Since(start).Seconds())
		m.Requests.WithLabelValues(method, resultCode(reply, err)).Inc()
		return err
	}
}

// resultCode is the gRPC code of a failed call, or the status code in the response header.
func resultCode(reply interface{}, err error) string {
	if err != nil {
		return status.Code(err).String()
	}
	if resp, ok := reply.(protocol.Response); ok {
		if common := resp.GetCommon(); common != nil && common.Status != nil {
			return common.Status.Code.String()
		}
	}
	return protocol.CodeOK.String()
}
