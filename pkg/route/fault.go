package route

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	cmap "github.com/orcaman/concurrent-map/v2"
)

const (
	_defaultInitialIsolation = time.Second
	_defaultMaxIsolation     = time.Minute
	_defaultMultiplier       = 2
)

// FaultPolicy describes how long a broker is kept out of rotation after failures.
type FaultPolicy struct {
	// InitialIsolation is the isolation after the first consecutive failure.
	InitialIsolation time.Duration
	// MaxIsolation caps the isolation.
	MaxIsolation time.Duration
	// Multiplier grows the isolation on each consecutive failure.
	Multiplier float64
}

// DefaultFaultPolicy isolates for 1s, 2s, 4s ... up to 1m.
func DefaultFaultPolicy() FaultPolicy {
	return FaultPolicy{
		InitialIsolation: _defaultInitialIsolation,
		MaxIsolation:     _defaultMaxIsolation,
		Multiplier:       _defaultMultiplier,
	}
}

func (p *FaultPolicy) adjust() {
	if p.InitialIsolation <= 0 {
		p.InitialIsolation = _defaultInitialIsolation
	}
	if p.MaxIsolation < p.InitialIsolation {
		p.MaxIsolation = p.InitialIsolation
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
}

// FaultTracker records broker failures and tells which brokers are isolated.
// It is safe for concurrent use and is meant to be shared by every TopicPublishInfo of a client.
type FaultTracker struct {
	policy FaultPolicy
	now    func() time.Time
	items  cmap.ConcurrentMap[string, *faultItem]
}

type faultItem struct {
	mu       sync.Mutex
	backOff  *backoff.ExponentialBackOff
	failures int
	until    time.Time
}

// FaultTrackerOption configures a FaultTracker.
type FaultTrackerOption func(*FaultTracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) FaultTrackerOption {
	return func(f *FaultTracker) {
		f.now = now
	}
}

// NewFaultTracker creates a FaultTracker. Zero fields of policy take defaults.
func NewFaultTracker(policy FaultPolicy, opts ...FaultTrackerOption) *FaultTracker {
	policy.adjust()
	f := &FaultTracker{
		policy: policy,
		now:    time.Now,
		items:  cmap.New[*faultItem](),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FaultTracker) newItem() *faultItem {
	b := &backoff.ExponentialBackOff{
		InitialInterval: f.policy.InitialIsolation,
		Multiplier:      f.policy.Multiplier,
		MaxInterval:     f.policy.MaxIsolation,
		Stop:            backoff.Stop,
		Clock:           backoff.SystemClock,
	}
	b.Reset()
	return &faultItem{backOff: b}
}

// ReportFailure isolates the broker and returns the isolation applied.
func (f *FaultTracker) ReportFailure(brokerName string) time.Duration {
	item := f.items.Upsert(brokerName, nil, func(exist bool, valueInMap *faultItem, _ *faultItem) *faultItem {
		if exist {
			return valueInMap
		}
		return f.newItem()
	})

	item.mu.Lock()
	defer item.mu.Unlock()
	isolation := item.backOff.NextBackOff()
	item.failures++
	item.until = f.now().Add(isolation)
	return isolation
}

// ReportSuccess re-admits the broker and resets its isolation curve.
func (f *FaultTracker) ReportSuccess(brokerName string) {
	f.items.Remove(brokerName)
}

// Available reports whether the broker is not isolated at this moment.
func (f *FaultTracker) Available(brokerName string) bool {
	item, ok := f.items.Get(brokerName)
	if !ok {
		return true
	}
	item.mu.Lock()
	defer item.mu.Unlock()
	return !f.now().Before(item.until)
}

// IsolatedUntil returns the end of the broker's isolation, if it has failed since its last success.
func (f *FaultTracker) IsolatedUntil(brokerName string) (time.Time, bool) {
	item, ok := f.items.Get(brokerName)
	if !ok {
		return time.Time{}, false
	}
	item.mu.Lock()
	defer item.mu.Unlock()
	return item.until, true
}

// Failures returns the number of consecutive failures of the broker.
func (f *FaultTracker) Failures(brokerName string) int {
	item, ok := f.items.Get(brokerName)
	if !ok {
		return 0
	}
	item.mu.Lock()
	defer item.mu.Unlock()
	return item.failures
}
