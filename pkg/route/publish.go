package route

import (
	"fmt"
	"sync/atomic"
)

// MessageQueue is the target of one publish: a partition and the broker hosting it.
type MessageQueue struct {
	Topic      string
	QueueID    int32
	BrokerName string
	Endpoints  ServiceAddress

	partition Partition
}

// Partition returns the partition the queue was selected from.
func (q MessageQueue) Partition() Partition {
	return q.partition
}

func (q MessageQueue) String() string {
	return fmt.Sprintf("%s@%s#%d", q.Topic, q.BrokerName, q.QueueID)
}

func newMessageQueue(topic string, p Partition) MessageQueue {
	return MessageQueue{
		Topic:      topic,
		QueueID:    p.ID,
		BrokerName: p.Broker.Name,
		Endpoints:  p.Broker.Endpoints,
		partition:  p,
	}
}

// publishSnapshot pairs a route with its writable partitions so both are swapped together.
type publishSnapshot struct {
	route    *TopicRouteData
	writable []Partition
}

// TopicPublishInfo is the selectable view of the writable partitions of a topic.
// It is safe for concurrent use.
type TopicPublishInfo struct {
	topic    string
	snapshot atomic.Pointer[publishSnapshot]
	cursor   atomic.Uint64
	faults   *FaultTracker
}

// PublishInfoOption configures a TopicPublishInfo.
type PublishInfoOption func(*TopicPublishInfo)

// WithFaultTracker makes selection skip brokers isolated by f.
func WithFaultTracker(f *FaultTracker) PublishInfoOption {
	return func(p *TopicPublishInfo) {
		p.faults = f
	}
}

// WithStartIndex makes the first selection start at index i of the writable partitions, modulo their number.
func WithStartIndex(i uint64) PublishInfoOption {
	return func(p *TopicPublishInfo) {
		p.cursor.Store(i)
	}
}

// NewTopicPublishInfo creates a TopicPublishInfo of topic backed by route.
// A nil route is treated as a route without partitions.
func NewTopicPublishInfo(topic string, route *TopicRouteData, opts ...PublishInfoOption) *TopicPublishInfo {
	p := &TopicPublishInfo{topic: topic}
	for _, opt := range opts {
		opt(p)
	}
	p.Update(route)
	return p
}

// Update replaces the route. Concurrent selections see either the old or the new route, never a mix.
func (p *TopicPublishInfo) Update(route *TopicRouteData) {
	p.snapshot.Store(&publishSnapshot{
		route:    route,
		writable: route.writable(),
	})
}

// Topic returns the topic name.
func (p *TopicPublishInfo) Topic() string {
	return p.topic
}

// Route returns the current route snapshot. It may be nil.
func (p *TopicPublishInfo) Route() *TopicRouteData {
	return p.snapshot.Load().route
}

// Writable returns the number of writable partitions.
func (p *TopicPublishInfo) Writable() int {
	return len(p.snapshot.Load().writable)
}

// Usable reports whether there is at least one writable partition.
func (p *TopicPublishInfo) Usable() bool {
	return p.Writable() > 0
}

// SelectOneMessageQueue picks the next writable partition in round-robin order.
// It returns false if there is no writable partition.
func (p *TopicPublishInfo) SelectOneMessageQueue() (MessageQueue, bool) {
	return p.SelectOneMessageQueueExcluding("")
}

// SelectOneMessageQueueExcluding is like SelectOneMessageQueue but also skips partitions of brokerName,
// typically the broker the previous attempt failed on.
// If every writable partition is skipped, the plain round-robin pick is returned.
func (p *TopicPublishInfo) SelectOneMessageQueueExcluding(brokerName string) (MessageQueue, bool) {
	writable := p.snapshot.Load().writable
	n := uint64(len(writable))
	if n == 0 {
		return MessageQueue{}, false
	}

	start := p.cursor.Add(1) - 1
	first := writable[start%n]
	if brokerName == "" && p.faults == nil {
		return newMessageQueue(p.topic, first), true
	}
	for i := uint64(0); i < n; i++ {
		candidate := writable[(start+i)%n]
		if brokerName != "" && candidate.Broker.Name == brokerName {
			continue
		}
		if p.faults != nil && !p.faults.Available(candidate.Broker.Name) {
			continue
		}
		return newMessageQueue(p.topic, candidate), true
	}
	return newMessageQueue(p.topic, first), true
}
