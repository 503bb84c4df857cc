package client

import (
	"context"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/AutoMQ/rocketmq-client/pkg/route"
)

// PoolOptions configures a Pool.
type PoolOptions struct {
	Channel ChannelOptions
	// Timeout is the default call timeout of the clients.
	Timeout time.Duration
	// WorkerCapacity bounds the number of calls running at the same time.
	WorkerCapacity int32
}

// Pool caches one RpcClient per broker endpoints. All clients share one CompletionQueue.
// It is safe for concurrent use.
type Pool struct {
	opts PoolOptions
	cq   *CompletionQueue

	mu      sync.Mutex // serializes channel creation
	clients cmap.ConcurrentMap[string, *RpcClient]
	closed  bool

	lg *zap.Logger
}

// NewPool creates an empty pool.
func NewPool(opts PoolOptions, lg *zap.Logger) *Pool {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Pool{
		opts:    opts,
		cq:      NewCompletionQueue(opts.WorkerCapacity, lg),
		clients: cmap.New[*RpcClient](),
		lg:      lg,
	}
}

// Get returns the client of endpoints, creating it on first use.
func (p *Pool) Get(endpoints route.ServiceAddress) (*RpcClient, error) {
	key := endpoints.Key()
	if c, ok := p.clients.Get(key); ok {
		return c, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrShutdown
	}
	if c, ok := p.clients.Get(key); ok {
		return c, nil
	}
	channel, err := NewChannel(endpoints, p.opts.Channel, p.lg)
	if err != nil {
		return nil, err
	}
	c := NewRpcClient(channel, p.cq, p.lg)
	c.Timeout = p.opts.Timeout
	p.clients.Set(key, c)
	return c, nil
}

// Len returns the number of cached clients.
func (p *Pool) Len() int {
	return p.clients.Count()
}

// Pending returns the number of calls not resolved yet, over all clients.
func (p *Pool) Pending() int {
	return p.cq.Pending()
}

// Shutdown stops accepting calls, waits for in-flight calls, then closes every channel.
// Channels are closed even if ctx is done before the calls resolve.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	err := p.cq.Shutdown(ctx)
	for item := range p.clients.IterBuffered() {
		if cerr := item.Val.Close(); cerr != nil {
			p.lg.Warn("failed to close channel", zap.String("endpoints", item.Key), zap.Error(cerr))
		}
		p.clients.Remove(item.Key)
	}
	return errors.WithMessage(err, "shutdown pool")
}
