package client

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/grpc/metadata"
)

// ErrContextReused is returned when an InvocationContext is submitted twice.
var ErrContextReused = errors.New("invocation context already submitted")

const (
	_stateNew int32 = iota
	_stateSubmitted
	// _stateCompleting marks a context whose results are being written.
	_stateCompleting
	_stateCompleted
)

// InvocationContext is the state of one asynchronous call.
//
// The caller owns the context until it is submitted. Afterwards Callback is
// called exactly once, on success or failure, and the context must not be
// submitted again.
type InvocationContext[R any] struct {
	// Deadline is the absolute deadline of the call.
	// A zero Deadline is replaced by now plus the client's default timeout on submission.
	Deadline time.Time
	// Metadata is sent as request headers. Keys are lower-cased on the wire.
	Metadata map[string]string
	// Callback receives the context and a nil error on success, or the failure.
	// It may run on any goroutine.
	Callback func(ictx *InvocationContext[R], err error)
	// TraceID, if set, is attached to the logs of the call.
	TraceID string

	// Response is the decoded response. It is set before Callback runs,
	// and is also set on a server-rejected call.
	Response R
	// Header and Trailer are the response metadata.
	Header  metadata.MD
	Trailer metadata.MD

	state atomic.Int32
}

// NewInvocationContext returns a context with a deadline timeout from now and empty metadata.
func NewInvocationContext[R any](timeout time.Duration) *InvocationContext[R] {
	return &InvocationContext[R]{
		Deadline: time.Now().Add(timeout),
		Metadata: make(map[string]string),
	}
}

// Done reports whether the call has completed.
// Once Done returns true, Response, Header and Trailer are safe to read.
func (c *InvocationContext[R]) Done() bool {
	return c.state.Load() == _stateCompleted
}

func (c *InvocationContext[R]) submit() error {
	if !c.state.CompareAndSwap(_stateNew, _stateSubmitted) {
		return ErrContextReused
	}
	return nil
}

// rollback returns a context that could not be scheduled to its caller.
func (c *InvocationContext[R]) rollback() {
	c.state.CompareAndSwap(_stateSubmitted, _stateNew)
}

func (c *InvocationContext[R]) complete(resp R, hasResp bool, header, trailer metadata.MD, err error) {
	if !c.state.CompareAndSwap(_stateSubmitted, _stateCompleting) {
		return
	}
	if hasResp {
		c.Response = resp
	}
	c.Header = header
	c.Trailer = trailer
	c.state.Store(_stateCompleted)
	if c.Callback != nil {
		c.Callback(c, err)
	}
}
