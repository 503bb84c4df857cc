package format

import (
	"strings"

	"github.com/pkg/errors"
)

const (
	unknown uint8 = iota
	flatBuffer
	protoBuffer
	json
)

var (
	_flatBuffer  = Format{flatBuffer}
	_protoBuffer = Format{protoBuffer}
	_json        = Format{json}
	_unknown     = Format{unknown}
)

// Format is the encoding of messages carried in gRPC frames.
type Format struct {
	code uint8
}

// NewFormat new a format with code
func NewFormat(code uint8) Format {
	switch code {
	case flatBuffer:
		return _flatBuffer
	case protoBuffer:
		return _protoBuffer
	case json:
		return _json
	default:
		return _unknown
	}
}

// Parse returns the format named by s (case-insensitive).
// Accepted names are "flatbuffer", "protobuffer" (or "proto") and "json".
func Parse(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flatbuffer", "flatbuffers":
		return _flatBuffer, nil
	case "protobuffer", "protobuf", "proto":
		return _protoBuffer, nil
	case "json":
		return _json, nil
	default:
		return _unknown, errors.Errorf("unknown format %q", s)
	}
}

// String implements fmt.Stringer
func (f Format) String() string {
	switch f.code {
	case flatBuffer:
		return "FlatBuffer"
	case protoBuffer:
		return "ProtoBuffer"
	case json:
		return "JSON"
	default:
		return "Unknown"
	}
}

// Code returns the format code
func (f Format) Code() uint8 {
	return f.code
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	return f.code != unknown && f.code <= json
}

// ContentSubtype returns the gRPC content-subtype used for the format,
// i.e. the suffix of "application/grpc+<subtype>".
func (f Format) ContentSubtype() string {
	switch f.code {
	case flatBuffer:
		return "flatbuffers"
	case protoBuffer:
		return "proto"
	case json:
		return "json"
	default:
		return ""
	}
}

// FlatBuffer serializes and deserializes messages using "github.com/google/flatbuffers/go"
func FlatBuffer() Format {
	return _flatBuffer
}

// ProtoBuffer serializes and deserializes messages using "google.golang.org/protobuf/encoding/protowire"
func ProtoBuffer() Format {
	return _protoBuffer
}

// JSON serializes and deserializes messages using "encoding/json"
func JSON() Format {
	return _json
}

// Default returns the format used when none is configured.
func Default() Format {
	return _protoBuffer
}
