package producer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/AutoMQ/rocketmq-client/pkg/route"
	"github.com/AutoMQ/rocketmq-client/pkg/rpc/protocol"
)

// Message is a message to publish.
type Message struct {
	Topic string
	Body  []byte
	// Tag is an optional label servers may filter on.
	Tag string
	// Keys index the message for lookups.
	Keys []string
	// Properties are user defined attributes.
	Properties map[string]string
}

func (m *Message) validate() error {
	if m == nil {
		return errors.New("nil message")
	}
	if m.Topic == "" {
		return errors.New("empty topic")
	}
	return nil
}

// SendResult is the outcome of a successful Send.
type SendResult struct {
	MessageID     string
	TransactionID string
	// Queue is the queue the message was written to.
	Queue route.MessageQueue
	// Attempts is the number of tries it took, the successful one included.
	Attempts int
}

func (p *Producer) sendRequest(m *Message, messageID string, mq route.MessageQueue, now time.Time) *protocol.SendMessageRequest {
	var keys []string
	if len(m.Keys) > 0 {
		keys = append(keys, m.Keys...)
	}
	var properties map[string]string
	if len(m.Properties) > 0 {
		properties = make(map[string]string, len(m.Properties))
		for k, v := range m.Properties {
			properties[k] = v
		}
	}
	return &protocol.SendMessageRequest{
		Message: &protocol.Message{
			Topic:          p.topic(m.Topic).Wire(),
			UserAttributes: properties,
			SystemAttribute: &protocol.SystemAttribute{
				Tag:           m.Tag,
				Keys:          keys,
				MessageID:     messageID,
				PartitionID:   mq.QueueID,
				BornTimestamp: now.UnixMilli(),
				BornHost:      p.hostname,
			},
			Body: m.Body,
		},
		Partition: mq.Partition().Wire(),
	}
}
