package route

import (
	"github.com/pkg/errors"

	"github.com/AutoMQ/rocketmq-client/pkg/rpc/protocol"
)

// FromQueryRouteResponse converts a route response of topic into a TopicRouteData.
// The response header is kept, unparsed, as the common settings of the route.
func FromQueryRouteResponse(topic Topic, resp *protocol.QueryRouteResponse) (*TopicRouteData, error) {
	if resp == nil {
		return nil, errors.New("nil route response")
	}
	partitions := make([]Partition, 0, len(resp.Partitions))
	for i, item := range resp.Partitions {
		if item == nil {
			return nil, errors.Errorf("partition #%d is nil", i)
		}
		broker, err := brokerFromWire(item.Broker)
		if err != nil {
			return nil, errors.WithMessagef(err, "partition %d of topic %s", item.ID, topic)
		}
		partitions = append(partitions, Partition{
			Topic:      topic,
			ID:         item.ID,
			Permission: PermissionFromWire(item.Permission),
			Broker:     broker,
		})
	}
	return NewTopicRouteData(partitions, resp.Common.String())
}

func brokerFromWire(b *protocol.Broker) (Broker, error) {
	if b == nil {
		return Broker{}, errors.New("missing broker")
	}
	endpoints, err := endpointsFromWire(b.Endpoints)
	if err != nil {
		return Broker{}, errors.WithMessagef(err, "broker %s", b.Name)
	}
	return Broker{
		Name:      b.Name,
		ID:        b.ID,
		Endpoints: endpoints,
	}, nil
}

func endpointsFromWire(e *protocol.Endpoints) (ServiceAddress, error) {
	if e == nil {
		return ServiceAddress{}, errors.New("missing endpoints")
	}
	addresses := make([]Address, 0, len(e.Addresses))
	for _, a := range e.Addresses {
		if a == nil {
			continue
		}
		addr, err := NewAddress(a.Host, a.Port)
		if err != nil {
			return ServiceAddress{}, err
		}
		addresses = append(addresses, addr)
	}
	return NewServiceAddress(SchemeFromWire(e.Scheme), addresses)
}
