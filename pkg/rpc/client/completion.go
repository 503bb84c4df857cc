package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/gopkg/util/gopool"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/AutoMQ/rocketmq-client/pkg/util/logutil"
)

const (
	_defaultWorkerCapacity = 64
)

// ErrShutdown is returned when a call is submitted to a completion queue that is shutting down.
var ErrShutdown = errors.New("completion queue is shut down")

// pendingCall is an entry of the pending-calls table.
type pendingCall struct {
	Method   string
	Target   string
	Deadline time.Time

	cancel context.CancelFunc
}

// CompletionQueue runs calls on a bounded worker pool and tracks them until they resolve.
// It is created once and shared by every client of a Pool.
type CompletionQueue struct {
	workers gopool.Pool

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup

	nextID  atomic.Uint64
	pending cmap.ConcurrentMap[uint64, *pendingCall]

	lg *zap.Logger
}

// NewCompletionQueue creates a CompletionQueue running at most capacity calls at the same time.
// A non-positive capacity takes the default.
func NewCompletionQueue(capacity int32, lg *zap.Logger) *CompletionQueue {
	if capacity <= 0 {
		capacity = _defaultWorkerCapacity
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	workers := gopool.NewPool("rocketmq-completion", capacity, gopool.NewConfig())
	workers.SetPanicHandler(logutil.PanicHandler(lg))
	return &CompletionQueue{
		workers: workers,
		pending: cmap.NewWithCustomShardingFunction[uint64, *pendingCall](func(key uint64) uint32 { return uint32(key) }),
		lg:      lg,
	}
}

// Submit schedules call with a context that expires at deadline.
// The call stays in the pending-calls table until it returns; the table entry is
// removed and the context released exactly once.
func (q *CompletionQueue) Submit(method, target string, deadline time.Time, call func(ctx context.Context)) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrShutdown
	}
	q.inflight.Add(1)
	q.mu.Unlock()

	id := q.nextID.Add(1)
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	q.pending.Set(id, &pendingCall{
		Method:   method,
		Target:   target,
		Deadline: deadline,
		cancel:   cancel,
	})

	q.workers.Go(func() {
		defer q.inflight.Done()
		defer q.release(id)
		call(ctx)
	})
	return nil
}

func (q *CompletionQueue) release(id uint64) {
	if pc, ok := q.pending.Pop(id); ok {
		pc.cancel()
	}
}

// Pending returns the number of calls not resolved yet.
func (q *CompletionQueue) Pending() int {
	return q.pending.Count()
}

// Shutdown stops accepting calls and waits for in-flight calls to resolve, or for ctx to be done.
// It can be called several times.
func (q *CompletionQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	first := !q.closed
	q.closed = true
	q.mu.Unlock()
	if first {
		q.lg.Info("completion queue shutting down", zap.Int("pending", q.Pending()))
	}

	done := make(chan struct{})
	go func() {
		q.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "wait for pending calls")
	}
}
