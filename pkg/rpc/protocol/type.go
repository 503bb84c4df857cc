package protocol

import (
	"fmt"
)

// Permission is the wire value of a partition permission.
type Permission int32

const (
	PermissionNone      Permission = 0
	PermissionRead      Permission = 1
	PermissionWrite     Permission = 2
	PermissionReadWrite Permission = 3
)

func (p Permission) String() string {
	switch p {
	case PermissionNone:
		return "NONE"
	case PermissionRead:
		return "READ"
	case PermissionWrite:
		return "WRITE"
	case PermissionReadWrite:
		return "READ_WRITE"
	default:
		return fmt.Sprintf("Permission(%d)", int32(p))
	}
}

// AddressScheme is the wire value of an endpoints addressing scheme.
type AddressScheme int32

const (
	AddressSchemeIPv4       AddressScheme = 0
	AddressSchemeIPv6       AddressScheme = 1
	AddressSchemeDomainName AddressScheme = 2
)

func (s AddressScheme) String() string {
	switch s {
	case AddressSchemeIPv4:
		return "IPv4"
	case AddressSchemeIPv6:
		return "IPv6"
	case AddressSchemeDomainName:
		return "DOMAIN_NAME"
	default:
		return fmt.Sprintf("AddressScheme(%d)", int32(s))
	}
}

// Code is the status code carried in a response common header.
// Values follow google.rpc.Code.
type Code int32

const (
	CodeOK                 Code = 0
	CodeCancelled          Code = 1
	CodeUnknown            Code = 2
	CodeInvalidArgument    Code = 3
	CodeDeadlineExceeded   Code = 4
	CodeNotFound           Code = 5
	CodePermissionDenied   Code = 7
	CodeResourceExhausted  Code = 8
	CodeFailedPrecondition Code = 9
	CodeInternal           Code = 13
	CodeUnavailable        Code = 14
	CodeUnauthenticated    Code = 16
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeCancelled:
		return "CANCELLED"
	case CodeUnknown:
		return "UNKNOWN"
	case CodeInvalidArgument:
		return "INVALID_ARGUMENT"
	case CodeDeadlineExceeded:
		return "DEADLINE_EXCEEDED"
	case CodeNotFound:
		return "NOT_FOUND"
	case CodePermissionDenied:
		return "PERMISSION_DENIED"
	case CodeResourceExhausted:
		return "RESOURCE_EXHAUSTED"
	case CodeFailedPrecondition:
		return "FAILED_PRECONDITION"
	case CodeInternal:
		return "INTERNAL"
	case CodeUnavailable:
		return "UNAVAILABLE"
	case CodeUnauthenticated:
		return "UNAUTHENTICATED"
	default:
		return fmt.Sprintf("Code(%d)", int32(c))
	}
}

// Resource names a topic (or group) inside a namespace.
type Resource struct {
	Arn  string `json:"arn,omitempty"`
	Name string `json:"name,omitempty"`
}

// Address is a host/port pair.
type Address struct {
	Host string `json:"host,omitempty"`
	Port int32  `json:"port,omitempty"`
}

// Endpoints is a set of equivalent addresses of one service.
type Endpoints struct {
	Scheme    AddressScheme `json:"scheme,omitempty"`
	Addresses []*Address    `json:"addresses,omitempty"`
}

// Broker is a broker process as described by the name server.
type Broker struct {
	Name      string     `json:"name,omitempty"`
	ID        int32      `json:"id,omitempty"`
	Endpoints *Endpoints `json:"endpoints,omitempty"`
}

// Partition is one queue of a topic.
type Partition struct {
	Topic      *Resource  `json:"topic,omitempty"`
	ID         int32      `json:"id,omitempty"`
	Permission Permission `json:"permission,omitempty"`
	Broker     *Broker    `json:"broker,omitempty"`
}

// Status is the result of a request as reported by the server.
type Status struct {
	Code    Code   `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ResponseCommon is the header shared by all responses.
type ResponseCommon struct {
	Status    *Status `json:"status,omitempty"`
	RequestID string  `json:"request_id,omitempty"`
}

// String renders the header in a stable, human-readable form.
func (c *ResponseCommon) String() string {
	if c == nil {
		return ""
	}
	code, message := CodeOK, ""
	if c.Status != nil {
		code, message = c.Status.Code, c.Status.Message
	}
	return fmt.Sprintf("status {code: %s, message: %q}, request_id: %q", code, message, c.RequestID)
}

// SystemAttribute holds the attributes of a message owned by the client runtime.
type SystemAttribute struct {
	Tag           string   `json:"tag,omitempty"`
	Keys          []string `json:"keys,omitempty"`
	MessageID     string   `json:"message_id,omitempty"`
	PartitionID   int32    `json:"partition_id,omitempty"`
	BornTimestamp int64    `json:"born_timestamp,omitempty"`
	BornHost      string   `json:"born_host,omitempty"`
}

// Message is a message to publish.
type Message struct {
	Topic           *Resource         `json:"topic,omitempty"`
	UserAttributes  map[string]string `json:"user_attributes,omitempty"`
	SystemAttribute *SystemAttribute  `json:"system_attribute,omitempty"`
	Body            []byte            `json:"body,omitempty"`
}
