package route

import (
	"github.com/pkg/errors"
)

// TopicRouteData is an immutable snapshot of the partitions of a topic.
// It is replaced as a whole on refresh, never edited in place.
type TopicRouteData struct {
	partitions     []Partition
	commonSettings string
}

type partitionKey struct {
	topic Topic
	id    int32
}

// NewTopicRouteData validates partitions and builds a snapshot.
// Partition ids must be unique per topic, and every broker name must map to a single broker id.
func NewTopicRouteData(partitions []Partition, commonSettings string) (*TopicRouteData, error) {
	seen := make(map[partitionKey]struct{}, len(partitions))
	brokerIDs := make(map[string]int32)
	for _, p := range partitions {
		key := partitionKey{topic: p.Topic, id: p.ID}
		if _, ok := seen[key]; ok {
			return nil, errors.Errorf("duplicate partition %d of topic %s", p.ID, p.Topic)
		}
		seen[key] = struct{}{}

		if id, ok := brokerIDs[p.Broker.Name]; ok && id != p.Broker.ID {
			return nil, errors.Errorf("broker %s has inconsistent ids %d and %d", p.Broker.Name, id, p.Broker.ID)
		}
		brokerIDs[p.Broker.Name] = p.Broker.ID
	}
	return &TopicRouteData{
		partitions:     append([]Partition(nil), partitions...),
		commonSettings: commonSettings,
	}, nil
}

// Partitions returns a copy of all partitions, writable or not, in route order.
func (r *TopicRouteData) Partitions() []Partition {
	if r == nil {
		return nil
	}
	return append([]Partition(nil), r.partitions...)
}

// CommonSettings returns the settings blob echoed by the server, unparsed.
func (r *TopicRouteData) CommonSettings() string {
	if r == nil {
		return ""
	}
	return r.commonSettings
}

// Len returns the number of partitions.
func (r *TopicRouteData) Len() int {
	if r == nil {
		return 0
	}
	return len(r.partitions)
}

// writable returns the partitions that accept writes, in route order.
func (r *TopicRouteData) writable() []Partition {
	if r == nil {
		return nil
	}
	writable := make([]Partition, 0, len(r.partitions))
	for _, p := range r.partitions {
		if p.Permission.Writable() {
			writable = append(writable, p)
		}
	}
	return writable
}
