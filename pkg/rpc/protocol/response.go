package protocol

import (
	"fmt"

	"github.com/AutoMQ/rocketmq-client/pkg/rpc/codec/format"
)

// Response is a WireMessage that carries a ResponseCommon header.
type Response interface {
	WireMessage
	GetCommon() *ResponseCommon
}

// StatusError is returned when the server answers with a non-OK status.
type StatusError struct {
	Code      Code
	Message   string
	RequestID string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server status error, code: %s, message: %s, request id: %s", e.Code, e.Message, e.RequestID)
}

// CheckStatus returns a *StatusError if the response header reports a failure.
// A missing header or status is treated as OK.
func CheckStatus(resp Response) error {
	common := resp.GetCommon()
	if common == nil || common.Status == nil || common.Status.Code == CodeOK {
		return nil
	}
	return &StatusError{
		Code:      common.Status.Code,
		Message:   common.Status.Message,
		RequestID: common.RequestID,
	}
}

// QueryRouteResponse lists the partitions of the queried topic.
type QueryRouteResponse struct {
	Common     *ResponseCommon `json:"common,omitempty"`
	Partitions []*Partition    `json:"partitions,omitempty"`
}

func (r *QueryRouteResponse) GetCommon() *ResponseCommon {
	if r == nil {
		return nil
	}
	return r.Common
}

func (r *QueryRouteResponse) Marshal(fmt format.Format) ([]byte, error) {
	return marshal(r, fmt)
}

func (r *QueryRouteResponse) Unmarshal(fmt format.Format, data []byte) error {
	return unmarshal(r, fmt, data)
}

// SendMessageResponse is the result of a SendMessageRequest.
type SendMessageResponse struct {
	Common        *ResponseCommon `json:"common,omitempty"`
	MessageID     string          `json:"message_id,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
}

func (r *SendMessageResponse) GetCommon() *ResponseCommon {
	if r == nil {
		return nil
	}
	return r.Common
}

func (r *SendMessageResponse) Marshal(fmt format.Format) ([]byte, error) {
	return marshal(r, fmt)
}

func (r *SendMessageResponse) Unmarshal(fmt format.Format, data []byte) error {
	return unmarshal(r, fmt, data)
}
