// Package codec adapts protocol messages to gRPC's encoding.Codec.
//
// Codecs are passed to gRPC with grpc.ForceCodec / grpc.ForceServerCodec rather
// than registered globally, so the "proto" subtype used by ProtoBuffer does not
// replace gRPC's default codec for other services in the process.
package codec

import (
	"github.com/pkg/errors"
	"google.golang.org/grpc/encoding"

	"github.com/AutoMQ/rocketmq-client/pkg/rpc/codec/format"
	"github.com/AutoMQ/rocketmq-client/pkg/rpc/protocol"
)

// Codec encodes protocol.WireMessage values with a fixed format.
type Codec struct {
	fmt format.Format
}

var _ encoding.Codec = (*Codec)(nil)

// New returns a codec for fmt. Unknown formats fall back to format.Default().
func New(fmt format.Format) *Codec {
	if !fmt.Valid() {
		fmt = format.Default()
	}
	return &Codec{fmt: fmt}
}

// Format returns the format of the codec.
func (c *Codec) Format() format.Format {
	return c.fmt
}

func (c *Codec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(protocol.WireMessage)
	if !ok {
		return nil, errors.Errorf("codec: cannot marshal %T, not a protocol.WireMessage", v)
	}
	return m.Marshal(c.fmt)
}

func (c *Codec) Unmarshal(data []byte, v interface{}) error {
	m, ok := v.(protocol.WireMessage)
	if !ok {
		return errors.Errorf("codec: cannot unmarshal into %T, not a protocol.WireMessage", v)
	}
	return m.Unmarshal(c.fmt, data)
}

// Name returns the content-subtype of the format.
func (c *Codec) Name() string {
	return c.fmt.ContentSubtype()
}
