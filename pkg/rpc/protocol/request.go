package protocol

import (
	"github.com/AutoMQ/rocketmq-client/pkg/rpc/codec/format"
)

// QueryRouteRequest asks the name server for the partitions of a topic.
type QueryRouteRequest struct {
	Topic *Resource `json:"topic,omitempty"`
	// Endpoints is the name server endpoints the client is talking to.
	Endpoints *Endpoints `json:"endpoints,omitempty"`
}

func (r *QueryRouteRequest) Marshal(fmt format.Format) ([]byte, error) {
	return marshal(r, fmt)
}

func (r *QueryRouteRequest) Unmarshal(fmt format.Format, data []byte) error {
	return unmarshal(r, fmt, data)
}

// SendMessageRequest publishes one message to a partition.
type SendMessageRequest struct {
	Message   *Message   `json:"message,omitempty"`
	Partition *Partition `json:"partition,omitempty"`
}

func (r *SendMessageRequest) Marshal(fmt format.Format) ([]byte, error) {
	return marshal(r, fmt)
}

func (r *SendMessageRequest) Unmarshal(fmt format.Format, data []byte) error {
	return unmarshal(r, fmt, data)
}
