package route

import (
	"strconv"

	"github.com/AutoMQ/rocketmq-client/pkg/rpc/protocol"
)

// Topic identifies a topic inside a namespace.
type Topic struct {
	Arn  string
	Name string
}

func (t Topic) String() string {
	if t.Arn == "" {
		return t.Name
	}
	return t.Arn + "%" + t.Name
}

// Wire returns the wire form of the topic.
func (t Topic) Wire() *protocol.Resource {
	return &protocol.Resource{Arn: t.Arn, Name: t.Name}
}

// Permission tells whether a partition accepts reads, writes, both, or neither.
type Permission uint8

const (
	None Permission = iota
	Read
	Write
	ReadWrite
)

// PermissionFromWire maps a wire permission to a Permission.
// Unrecognized values are treated as None, so the partition is never selected for writes.
func PermissionFromWire(p protocol.Permission) Permission {
	switch p {
	case protocol.PermissionRead:
		return Read
	case protocol.PermissionWrite:
		return Write
	case protocol.PermissionReadWrite:
		return ReadWrite
	default:
		return None
	}
}

// Wire returns the wire value of the permission.
func (p Permission) Wire() protocol.Permission {
	switch p {
	case Read:
		return protocol.PermissionRead
	case Write:
		return protocol.PermissionWrite
	case ReadWrite:
		return protocol.PermissionReadWrite
	default:
		return protocol.PermissionNone
	}
}

// Writable reports whether messages may be published to the partition.
func (p Permission) Writable() bool {
	return p == Write || p == ReadWrite
}

// Readable reports whether messages may be consumed from the partition.
func (p Permission) Readable() bool {
	return p == Read || p == ReadWrite
}

func (p Permission) String() string {
	switch p {
	case None:
		return "NONE"
	case Read:
		return "READ"
	case Write:
		return "WRITE"
	case ReadWrite:
		return "READ_WRITE"
	default:
		return "Permission(" + strconv.Itoa(int(p)) + ")"
	}
}

// Broker is a message broker process.
type Broker struct {
	Name      string
	ID        int32
	Endpoints ServiceAddress
}

// Partition is one queue of a topic, hosted by exactly one broker.
type Partition struct {
	Topic      Topic
	ID         int32
	Permission Permission
	Broker     Broker
}

// Wire returns the wire form of the partition.
func (p Partition) Wire() *protocol.Partition {
	partition := &protocol.Partition{
		Topic:      p.Topic.Wire(),
		ID:         p.ID,
		Permission: p.Permission.Wire(),
		Broker: &protocol.Broker{
			Name: p.Broker.Name,
			ID:   p.Broker.ID,
		},
	}
	if !p.Broker.Endpoints.IsZero() {
		partition.Broker.Endpoints = p.Broker.Endpoints.Wire()
	}
	return partition
}
