package protocol

import (
	"github.com/pkg/errors"

	"github.com/AutoMQ/rocketmq-client/pkg/rpc/codec/format"
)

const (
	_unsupportedFmtErrMsg = "unsupported format: %s"
)

// WireMessage is implemented by every request and response carried on the wire.
type WireMessage interface {
	// Unmarshal decodes data into the message using the specified format.
	// data is expired after the call, so the implementation should copy the data if needed.
	Unmarshal(fmt format.Format, data []byte) error

	// Marshal encodes the message using the specified format.
	// The returned byte slice is not nil when and only when the error is nil.
	Marshal(fmt format.Format) ([]byte, error)
}

type marshaller interface {
	flatBufferMarshaller
	protoBufferMarshaller
	jsonMarshaller
}

type flatBufferMarshaller interface {
	marshalFlatBuffer() ([]byte, error)
}

type protoBufferMarshaller interface {
	marshalProtoBuffer() ([]byte, error)
}

type jsonMarshaller interface {
	marshalJSON() ([]byte, error)
}

func marshal(m marshaller, fmt format.Format) ([]byte, error) {
	switch fmt {
	case format.FlatBuffer():
		return m.marshalFlatBuffer()
	case format.ProtoBuffer():
		return m.marshalProtoBuffer()
	case format.JSON():
		return m.marshalJSON()
	default:
		return nil, errors.Errorf(_unsupportedFmtErrMsg, fmt)
	}
}

type unmarshaler interface {
	flatBufferUnmarshaler
	protoBufferUnmarshaler
	jsonUnmarshaler
}

type flatBufferUnmarshaler interface {
	unmarshalFlatBuffer(data []byte) error
}

type protoBufferUnmarshaler interface {
	unmarshalProtoBuffer(data []byte) error
}

type jsonUnmarshaler interface {
	unmarshalJSON(data []byte) error
}

func unmarshal(m unmarshaler, fmt format.Format, data []byte) error {
	switch fmt {
	case format.FlatBuffer():
		return m.unmarshalFlatBuffer(data)
	case format.ProtoBuffer():
		return m.unmarshalProtoBuffer(data)
	case format.JSON():
		return m.unmarshalJSON(data)
	default:
		return errors.Errorf(_unsupportedFmtErrMsg, fmt)
	}
}
