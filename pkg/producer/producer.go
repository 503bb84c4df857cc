// Package producer publishes messages to the writable queues of topics.
package producer

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/AutoMQ/rocketmq-client/pkg/auth"
	"github.com/AutoMQ/rocketmq-client/pkg/config"
	"github.com/AutoMQ/rocketmq-client/pkg/route"
	"github.com/AutoMQ/rocketmq-client/pkg/rpc/client"
	"github.com/AutoMQ/rocketmq-client/pkg/rpc/protocol"
	"github.com/AutoMQ/rocketmq-client/pkg/util/traceutil"
)

var (
	// ErrNoWritableQueue is returned when a topic has no writable queue, even after a route refresh.
	ErrNoWritableQueue = errors.New("no writable queue")
	// ErrShutdown is returned by calls made after Shutdown.
	ErrShutdown = errors.New("producer is shut down")
)

// Clients hands out the client of some endpoints. *client.Pool implements it.
type Clients interface {
	Get(endpoints route.ServiceAddress) (*client.RpcClient, error)
}

// Producer sends messages, choosing a queue per message and failing over to other brokers on errors.
// It is safe for concurrent use.
type Producer struct {
	clients     Clients
	nameServer  route.ServiceAddress
	arn         string
	sign        auth.SignConfig
	faults      *route.FaultTracker
	maxAttempts int
	refreshEach time.Duration
	timeout     time.Duration
	hostname    string

	topics cmap.ConcurrentMap[string, *route.TopicPublishInfo]
	group  singleflight.Group

	startOnce sync.Once
	stopOnce  sync.Once
	stopC     chan struct{}
	wg        sync.WaitGroup
	closed    atomic.Bool

	lg *zap.Logger
}

// New creates a producer from an adjusted and validated configuration.
func New(cfg *config.Config, clients Clients, lg *zap.Logger) (*Producer, error) {
	if lg == nil {
		lg = zap.NewNop()
	}
	nameServer, err := cfg.NameServer()
	if err != nil {
		return nil, errors.WithMessage(err, "parse name server endpoints")
	}
	sign, err := cfg.SignConfig()
	if err != nil {
		return nil, errors.WithMessage(err, "sign config")
	}
	hostname, err := os.Hostname()
	if err != nil {
		lg.Warn("failed to get hostname", zap.Error(err))
	}

	return &Producer{
		clients:     clients,
		nameServer:  nameServer,
		arn:         cfg.Arn,
		sign:        sign,
		faults:      cfg.Fault.Tracker(),
		maxAttempts: cfg.Producer.MaxAttempts,
		refreshEach: cfg.Producer.RouteRefreshInterval.Duration,
		timeout:     cfg.IOTimeout.Duration,
		hostname:    hostname,
		topics:      cmap.New[*route.TopicPublishInfo](),
		stopC:       make(chan struct{}),
		lg:          lg.With(zap.String("name-server", nameServer.String())),
	}, nil
}

// Start starts refreshing the routes of known topics in the background.
// Calling it more than once has no effect.
func (p *Producer) Start() error {
	if p.closed.Load() {
		return ErrShutdown
	}
	p.startOnce.Do(func() {
		if p.refreshEach <= 0 {
			return
		}
		p.wg.Add(1)
		go p.refreshLoop(p.refreshEach)
		p.lg.Info("producer started", zap.Duration("route-refresh-interval", p.refreshEach))
	})
	return nil
}

// Shutdown stops the background refresh and rejects new sends.
// Sends in progress are not interrupted. The client pool is not closed.
func (p *Producer) Shutdown(ctx context.Context) error {
	p.closed.Store(true)
	p.stopOnce.Do(func() {
		close(p.stopC)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.lg.Info("producer shut down")
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "wait for route refresh")
	}
}

// Send publishes msg and blocks until a broker accepts it or every attempt failed.
// Attempts after a failure avoid the broker that failed.
func (p *Producer) Send(ctx context.Context, msg *Message) (*SendResult, error) {
	if p.closed.Load() {
		return nil, ErrShutdown
	}
	if err := msg.validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid message")
	}

	messageID := uuid.NewString()
	if traceutil.TraceID(ctx) == "" {
		ctx = traceutil.SetTraceID(ctx, messageID)
	}
	logger := p.lg.With(zap.String("topic", msg.Topic), zap.String("message-id", messageID), traceutil.TraceLogField(ctx))

	info, refreshed, err := p.publishInfo(ctx, msg.Topic)
	if err != nil {
		return nil, err
	}

	var lastBroker string
	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		mq, ok := info.SelectOneMessageQueueExcluding(lastBroker)
		if !ok && !refreshed {
			// the route may be stale
			refreshed = true
			info, err = p.refresh(ctx, msg.Topic)
			if err != nil {
				return nil, err
			}
			mq, ok = info.SelectOneMessageQueueExcluding(lastBroker)
		}
		if !ok {
			return nil, errors.WithMessagef(ErrNoWritableQueue, "topic %s", msg.Topic)
		}

		resp, err := p.sendTo(ctx, mq, p.sendRequest(msg, messageID, mq, time.Now()))
		if err == nil {
			p.reportSuccess(mq.BrokerName)
			return &SendResult{
				MessageID:     resp.MessageID,
				TransactionID: resp.TransactionID,
				Queue:         mq,
				Attempts:      attempt,
			}, nil
		}

		lastErr = errors.WithMessagef(err, "send to %s", mq)
		lastBroker = mq.BrokerName
		if !retryable(err) {
			logger.Warn("failed to send message", zap.Stringer("queue", mq), zap.Int("attempt", attempt), zap.Error(err))
			break
		}
		isolation := p.reportFailure(mq.BrokerName)
		logger.Warn("failed to send message, retry", zap.Stringer("queue", mq), zap.Int("attempt", attempt),
			zap.Duration("isolation", isolation), zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// Topics returns the topics whose routes are cached.
func (p *Producer) Topics() []string {
	return p.topics.Keys()
}

func (p *Producer) sendTo(ctx context.Context, mq route.MessageQueue, req *protocol.SendMessageRequest) (*protocol.SendMessageResponse, error) {
	c, err := p.clients.Get(mq.Endpoints)
	if err != nil {
		return nil, errors.WithMessage(err, "get broker client")
	}
	md, err := p.metadata()
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, req, md)
}

// metadata returns the headers of one request, signed if credentials are configured.
func (p *Producer) metadata() (map[string]string, error) {
	md := make(map[string]string)
	if p.sign.Provider == nil {
		return md, nil
	}
	if err := auth.Sign(p.sign, md); err != nil {
		return nil, err
	}
	return md, nil
}

func (p *Producer) topic(name string) route.Topic {
	return route.Topic{Arn: p.arn, Name: name}
}

func (p *Producer) reportSuccess(brokerName string) {
	if p.faults != nil {
		p.faults.ReportSuccess(brokerName)
	}
}

func (p *Producer) reportFailure(brokerName string) time.Duration {
	if p.faults == nil {
		return 0
	}
	return p.faults.ReportFailure(brokerName)
}

// retryable tells whether another broker may succeed where this call failed.
func retryable(err error) bool {
	if errors.Is(err, client.ErrShutdown) || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *protocol.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case protocol.CodeUnknown, protocol.CodeDeadlineExceeded, protocol.CodeResourceExhausted,
			protocol.CodeInternal, protocol.CodeUnavailable:
			return true
		default:
			return false
		}
	}
	s, ok := status.FromError(errors.Cause(err))
	if !ok {
		return false
	}
	switch s.Code() {
	case codes.Unknown, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Internal, codes.Unavailable:
		return true
	default:
		return false
	}
}
