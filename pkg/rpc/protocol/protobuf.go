package protocol

import (
	"sort"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers follow the apache.rocketmq.v1 definitions.

var errWireType = errors.New("protobuf: unexpected wire type")

func pbAppendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func pbAppendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func pbAppendInt32(b []byte, num protowire.Number, v int32) []byte {
	return pbAppendInt64(b, num, int64(v))
}

func pbAppendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

// pbAppendEmbedded appends an embedded message, which is present even if empty.
func pbAppendEmbedded(b []byte, num protowire.Number, inner []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner)
}

// pbReader iterates over the fields of an encoded message.
// The first error stops the iteration and is kept in err.
type pbReader struct {
	b   []byte
	num protowire.Number
	typ protowire.Type
	err error
}

func (r *pbReader) next() bool {
	if r.err != nil || len(r.b) == 0 {
		return false
	}
	num, typ, n := protowire.ConsumeTag(r.b)
	if n < 0 {
		r.err = errors.Wrap(protowire.ParseError(n), "protobuf: consume tag")
		return false
	}
	r.b = r.b[n:]
	r.num, r.typ = num, typ
	return true
}

func (r *pbReader) fail(n int) {
	if r.err == nil {
		r.err = errors.Wrapf(protowire.ParseError(n), "protobuf: field %d", r.num)
	}
}

func (r *pbReader) varint() uint64 {
	if r.typ != protowire.VarintType {
		r.err = errors.Wrapf(errWireType, "field %d", r.num)
		return 0
	}
	v, n := protowire.ConsumeVarint(r.b)
	if n < 0 {
		r.fail(n)
		return 0
	}
	r.b = r.b[n:]
	return v
}

func (r *pbReader) int32() int32 {
	return int32(r.varint())
}

func (r *pbReader) int64() int64 {
	return int64(r.varint())
}

// bytes returns a view into the input; callers copy it when it outlives the call.
func (r *pbReader) bytes() []byte {
	if r.typ != protowire.BytesType {
		r.err = errors.Wrapf(errWireType, "field %d", r.num)
		return nil
	}
	v, n := protowire.ConsumeBytes(r.b)
	if n < 0 {
		r.fail(n)
		return nil
	}
	r.b = r.b[n:]
	return v
}

func (r *pbReader) str() string {
	return string(r.bytes())
}

func (r *pbReader) embedded(consume func([]byte) error) {
	data := r.bytes()
	if r.err != nil {
		return
	}
	if err := consume(data); err != nil {
		r.err = errors.WithMessagef(err, "field %d", r.num)
	}
}

func (r *pbReader) skip() {
	n := protowire.ConsumeFieldValue(r.num, r.typ, r.b)
	if n < 0 {
		r.fail(n)
		return
	}
	r.b = r.b[n:]
}

// Resource: arn = 1, name = 2

func (x *Resource) pbAppend(b []byte) []byte {
	b = pbAppendString(b, 1, x.Arn)
	b = pbAppendString(b, 2, x.Name)
	return b
}

func (x *Resource) pbConsume(b []byte) error {
	r := pbReader{b: b}
	for r.next() {
		switch r.num {
		case 1:
			x.Arn = r.str()
		case 2:
			x.Name = r.str()
		default:
			r.skip()
		}
	}
	return r.err
}

// Address: host = 1, port = 2

func (x *Address) pbAppend(b []byte) []byte {
	b = pbAppendString(b, 1, x.Host)
	b = pbAppendInt32(b, 2, x.Port)
	return b
}

func (x *Address) pbConsume(b []byte) error {
	r := pbReader{b: b}
	for r.next() {
		switch r.num {
		case 1:
			x.Host = r.str()
		case 2:
			x.Port = r.int32()
		default:
			r.skip()
		}
	}
	return r.err
}

// Endpoints: scheme = 1, addresses = 2

func (x *Endpoints) pbAppend(b []byte) []byte {
	b = pbAppendInt32(b, 1, int32(x.Scheme))
	for _, addr := range x.Addresses {
		if addr == nil {
			continue
		}
		b = pbAppendEmbedded(b, 2, addr.pbAppend(nil))
	}
	return b
}

func (x *Endpoints) pbConsume(b []byte) error {
	r := pbReader{b: b}
	for r.next() {
		switch r.num {
		case 1:
			x.Scheme = AddressScheme(r.int32())
		case 2:
			addr := &Address{}
			r.embedded(addr.pbConsume)
			x.Addresses = append(x.Addresses, addr)
		default:
			r.skip()
		}
	}
	return r.err
}

// Broker: name = 1, id = 2, endpoints = 3

func (x *Broker) pbAppend(b []byte) []byte {
	b = pbAppendString(b, 1, x.Name)
	b = pbAppendInt32(b, 2, x.ID)
	if x.Endpoints != nil {
		b = pbAppendEmbedded(b, 3, x.Endpoints.pbAppend(nil))
	}
	return b
}

func (x *Broker) pbConsume(b []byte) error {
	r := pbReader{b: b}
	for r.next() {
		switch r.num {
		case 1:
			x.Name = r.str()
		case 2:
			x.ID = r.int32()
		case 3:
			x.Endpoints = &Endpoints{}
			r.embedded(x.Endpoints.pbConsume)
		default:
			r.skip()
		}
	}
	return r.err
}

// Partition: topic = 1, id = 2, permission = 3, broker = 4

func (x *Partition) pbAppend(b []byte) []byte {
	if x.Topic != nil {
		b = pbAppendEmbedded(b, 1, x.Topic.pbAppend(nil))
	}
	b = pbAppendInt32(b, 2, x.ID)
	b = pbAppendInt32(b, 3, int32(x.Permission))
	if x.Broker != nil {
		b = pbAppendEmbedded(b, 4, x.Broker.pbAppend(nil))
	}
	return b
}

func (x *Partition) pbConsume(b []byte) error {
	r := pbReader{b: b}
	for r.next() {
		switch r.num {
		case 1:
			x.Topic = &Resource{}
			r.embedded(x.Topic.pbConsume)
		case 2:
			x.ID = r.int32()
		case 3:
			x.Permission = Permission(r.int32())
		case 4:
			x.Broker = &Broker{}
			r.embedded(x.Broker.pbConsume)
		default:
			r.skip()
		}
	}
	return r.err
}

// Status: code = 1, message = 2

func (x *Status) pbAppend(b []byte) []byte {
	b = pbAppendInt32(b, 1, int32(x.Code))
	b = pbAppendString(b, 2, x.Message)
	return b
}

func (x *Status) pbConsume(b []byte) error {
	r := pbReader{b: b}
	for r.next() {
		switch r.num {
		case 1:
			x.Code = Code(r.int32())
		case 2:
			x.Message = r.str()
		default:
			r.skip()
		}
	}
	return r.err
}

// ResponseCommon: status = 1, request_id = 2

func (x *ResponseCommon) pbAppend(b []byte) []byte {
	if x.Status != nil {
		b = pbAppendEmbedded(b, 1, x.Status.pbAppend(nil))
	}
	b = pbAppendString(b, 2, x.RequestID)
	return b
}

func (x *ResponseCommon) pbConsume(b []byte) error {
	r := pbReader{b: b}
	for r.next() {
		switch r.num {
		case 1:
			x.Status = &Status{}
			r.embedded(x.Status.pbConsume)
		case 2:
			x.RequestID = r.str()
		default:
			r.skip()
		}
	}
	return r.err
}

// SystemAttribute: tag = 1, keys = 2, message_id = 3, partition_id = 4,
// born_timestamp = 5, born_host = 6

func (x *SystemAttribute) pbAppend(b []byte) []byte {
	b = pbAppendString(b, 1, x.Tag)
	for _, key := range x.Keys {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, key)
	}
	b = pbAppendString(b, 3, x.MessageID)
	b = pbAppendInt32(b, 4, x.PartitionID)
	b = pbAppendInt64(b, 5, x.BornTimestamp)
	b = pbAppendString(b, 6, x.BornHost)
	return b
}

func (x *SystemAttribute) pbConsume(b []byte) error {
	r := pbReader{b: b}
	for r.next() {
		switch r.num {
		case 1:
			x.Tag = r.str()
		case 2:
			x.Keys = append(x.Keys, r.str())
		case 3:
			x.MessageID = r.str()
		case 4:
			x.PartitionID = r.int32()
		case 5:
			x.BornTimestamp = r.int64()
		case 6:
			x.BornHost = r.str()
		default:
			r.skip()
		}
	}
	return r.err
}

// Message: topic = 1, user_attribute = 2 (map), system_attribute = 3, body = 4

func (x *Message) pbAppend(b []byte) []byte {
	if x.Topic != nil {
		b = pbAppendEmbedded(b, 1, x.Topic.pbAppend(nil))
	}
	for _, k := range sortedKeys(x.UserAttributes) {
		var entry []byte
		entry = pbAppendString(entry, 1, k)
		entry = pbAppendString(entry, 2, x.UserAttributes[k])
		b = pbAppendEmbedded(b, 2, entry)
	}
	if x.SystemAttribute != nil {
		b = pbAppendEmbedded(b, 3, x.SystemAttribute.pbAppend(nil))
	}
	b = pbAppendBytes(b, 4, x.Body)
	return b
}

func (x *Message) pbConsume(b []byte) error {
	r := pbReader{b: b}
	for r.next() {
		switch r.num {
		case 1:
			x.Topic = &Resource{}
			r.embedded(x.Topic.pbConsume)
		case 2:
			r.embedded(func(data []byte) error {
				var k, v string
				er := pbReader{b: data}
				for er.next() {
					switch er.num {
					case 1:
						k = er.str()
					case 2:
						v = er.str()
					default:
						er.skip()
					}
				}
				if er.err != nil {
					return er.err
				}
				if x.UserAttributes == nil {
					x.UserAttributes = make(map[string]string)
				}
				x.UserAttributes[k] = v
				return nil
			})
		case 3:
			x.SystemAttribute = &SystemAttribute{}
			r.embedded(x.SystemAttribute.pbConsume)
		case 4:
			x.Body = append([]byte(nil), r.bytes()...)
		default:
			r.skip()
		}
	}
	return r.err
}

// QueryRouteRequest: topic = 1, endpoints = 2

func (r *QueryRouteRequest) marshalProtoBuffer() ([]byte, error) {
	b := make([]byte, 0, 64)
	if r.Topic != nil {
		b = pbAppendEmbedded(b, 1, r.Topic.pbAppend(nil))
	}
	if r.Endpoints != nil {
		b = pbAppendEmbedded(b, 2, r.Endpoints.pbAppend(nil))
	}
	return b, nil
}

func (r *QueryRouteRequest) unmarshalProtoBuffer(data []byte) error {
	*r = QueryRouteRequest{}
	rd := pbReader{b: data}
	for rd.next() {
		switch rd.num {
		case 1:
			r.Topic = &Resource{}
			rd.embedded(r.Topic.pbConsume)
		case 2:
			r.Endpoints = &Endpoints{}
			rd.embedded(r.Endpoints.pbConsume)
		default:
			rd.skip()
		}
	}
	return errors.WithMessage(rd.err, "unmarshal QueryRouteRequest")
}

// QueryRouteResponse: common = 1, partitions = 2

func (r *QueryRouteResponse) marshalProtoBuffer() ([]byte, error) {
	b := make([]byte, 0, 256)
	if r.Common != nil {
		b = pbAppendEmbedded(b, 1, r.Common.pbAppend(nil))
	}
	for _, p := range r.Partitions {
		if p == nil {
			continue
		}
		b = pbAppendEmbedded(b, 2, p.pbAppend(nil))
	}
	return b, nil
}

func (r *QueryRouteResponse) unmarshalProtoBuffer(data []byte) error {
	*r = QueryRouteResponse{}
	rd := pbReader{b: data}
	for rd.next() {
		switch rd.num {
		case 1:
			r.Common = &ResponseCommon{}
			rd.embedded(r.Common.pbConsume)
		case 2:
			p := &Partition{}
			rd.embedded(p.pbConsume)
			r.Partitions = append(r.Partitions, p)
		default:
			rd.skip()
		}
	}
	return errors.WithMessage(rd.err, "unmarshal QueryRouteResponse")
}

// SendMessageRequest: message = 1, partition = 2

func (r *SendMessageRequest) marshalProtoBuffer() ([]byte, error) {
	b := make([]byte, 0, 256)
	if r.Message != nil {
		b = pbAppendEmbedded(b, 1, r.Message.pbAppend(nil))
	}
	if r.Partition != nil {
		b = pbAppendEmbedded(b, 2, r.Partition.pbAppend(nil))
	}
	return b, nil
}

func (r *SendMessageRequest) unmarshalProtoBuffer(data []byte) error {
	*r = SendMessageRequest{}
	rd := pbReader{b: data}
	for rd.next() {
		switch rd.num {
		case 1:
			r.Message = &Message{}
			rd.embedded(r.Message.pbConsume)
		case 2:
			r.Partition = &Partition{}
			rd.embedded(r.Partition.pbConsume)
		default:
			rd.skip()
		}
	}
	return errors.WithMessage(rd.err, "unmarshal SendMessageRequest")
}

// SendMessageResponse: common = 1, message_id = 2, transaction_id = 3

func (r *SendMessageResponse) marshalProtoBuffer() ([]byte, error) {
	b := make([]byte, 0, 64)
	if r.Common != nil {
		b = pbAppendEmbedded(b, 1, r.Common.pbAppend(nil))
	}
	b = pbAppendString(b, 2, r.MessageID)
	b = pbAppendString(b, 3, r.TransactionID)
	return b, nil
}

func (r *SendMessageResponse) unmarshalProtoBuffer(data []byte) error {
	*r = SendMessageResponse{}
	rd := pbReader{b: data}
	for rd.next() {
		switch rd.num {
		case 1:
			r.Common = &ResponseCommon{}
			rd.embedded(r.Common.pbConsume)
		case 2:
			r.MessageID = rd.str()
		case 3:
			r.TransactionID = rd.str()
		default:
			rd.skip()
		}
	}
	return errors.WithMessage(rd.err, "unmarshal SendMessageResponse")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
