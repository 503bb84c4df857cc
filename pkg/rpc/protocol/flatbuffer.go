package protocol

import (
	"sync"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/pkg/errors"
)

// Tables are laid out by hand with the flatbuffers builder API; field slots are
// numbered in declaration order of the Go structs.

var _builderPool = sync.Pool{New: func() interface{} {
	return flatbuffers.NewBuilder(1024)
}}

// fbMarshal builds a root table with build and returns a copy of the finished buffer.
func fbMarshal(build func(b *flatbuffers.Builder) flatbuffers.UOffsetT) []byte {
	b := _builderPool.Get().(*flatbuffers.Builder)
	defer func() {
		b.Reset()
		_builderPool.Put(b)
	}()

	b.Finish(build(b))
	finished := b.FinishedBytes()
	out := make([]byte, len(finished))
	copy(out, finished)
	return out
}

// fbUnmarshal runs read on the root table of data.
// Malformed input makes the accessors index out of range, which is reported as an error.
func fbUnmarshal(data []byte, read func(t fbTable)) (err error) {
	if len(data) < flatbuffers.SizeUOffsetT {
		return errors.Errorf("flatbuffer: buffer too short (%d bytes)", len(data))
	}
	defer func() {
		if e := recover(); e != nil {
			err = errors.Errorf("flatbuffer: malformed buffer: %v", e)
		}
	}()
	t := fbTable{}
	t.Bytes = data
	t.Pos = flatbuffers.GetUOffsetT(data)
	read(t)
	return nil
}

func fbVector(b *flatbuffers.Builder, offsets []flatbuffers.UOffsetT) flatbuffers.UOffsetT {
	b.StartVector(flatbuffers.SizeUOffsetT, len(offsets), flatbuffers.SizeUOffsetT)
	for i := len(offsets) - 1; i >= 0; i-- {
		b.PrependUOffsetT(offsets[i])
	}
	return b.EndVector(len(offsets))
}

func fbStringVector(b *flatbuffers.Builder, ss []string) flatbuffers.UOffsetT {
	offsets := make([]flatbuffers.UOffsetT, len(ss))
	for i, s := range ss {
		offsets[i] = b.CreateString(s)
	}
	return fbVector(b, offsets)
}

// fbTable is a read-only view of one table.
type fbTable struct {
	flatbuffers.Table
}

func fbSlot(i int) flatbuffers.VOffsetT {
	return flatbuffers.VOffsetT(4 + 2*i)
}

func (t fbTable) offset(i int) flatbuffers.UOffsetT {
	return flatbuffers.UOffsetT(t.Offset(fbSlot(i)))
}

func (t fbTable) str(i int) string {
	o := t.offset(i)
	if o == 0 {
		return ""
	}
	return string(t.ByteVector(o + t.Pos))
}

func (t fbTable) bytes(i int) []byte {
	o := t.offset(i)
	if o == 0 {
		return nil
	}
	return append([]byte(nil), t.ByteVector(o+t.Pos)...)
}

func (t fbTable) int32(i int) int32 {
	return t.GetInt32Slot(fbSlot(i), 0)
}

func (t fbTable) int64(i int) int64 {
	return t.GetInt64Slot(fbSlot(i), 0)
}

func (t fbTable) table(i int) (fbTable, bool) {
	o := t.offset(i)
	if o == 0 {
		return fbTable{}, false
	}
	sub := fbTable{}
	sub.Bytes = t.Bytes
	sub.Pos = t.Indirect(o + t.Pos)
	return sub, true
}

func (t fbTable) vectorLen(i int) int {
	o := t.offset(i)
	if o == 0 {
		return 0
	}
	return t.VectorLen(o)
}

func (t fbTable) tableAt(i, j int) fbTable {
	x := t.Vector(t.offset(i)) + flatbuffers.UOffsetT(j)*flatbuffers.SizeUOffsetT
	sub := fbTable{}
	sub.Bytes = t.Bytes
	sub.Pos = t.Indirect(x)
	return sub
}

func (t fbTable) strAt(i, j int) string {
	x := t.Vector(t.offset(i)) + flatbuffers.UOffsetT(j)*flatbuffers.SizeUOffsetT
	return string(t.ByteVector(x))
}

// Resource

func (x *Resource) fbBuild(b *flatbuffers.Builder) flatbuffers.UOffsetT {
	arn := b.CreateString(x.Arn)
	name := b.CreateString(x.Name)
	b.StartObject(2)
	b.PrependUOffsetTSlot(0, arn, 0)
	b.PrependUOffsetTSlot(1, name, 0)
	return b.EndObject()
}

func (x *Resource) fbRead(t fbTable) {
	x.Arn = t.str(0)
	x.Name = t.str(1)
}

// Address

func (x *Address) fbBuild(b *flatbuffers.Builder) flatbuffers.UOffsetT {
	host := b.CreateString(x.Host)
	b.StartObject(2)
	b.PrependUOffsetTSlot(0, host, 0)
	b.PrependInt32Slot(1, x.Port, 0)
	return b.EndObject()
}

func (x *Address) fbRead(t fbTable) {
	x.Host = t.str(0)
	x.Port = t.int32(1)
}

// Endpoints

func (x *Endpoints) fbBuild(b *flatbuffers.Builder) flatbuffers.UOffsetT {
	var addresses flatbuffers.UOffsetT
	if len(x.Addresses) > 0 {
		offsets := make([]flatbuffers.UOffsetT, 0, len(x.Addresses))
		for _, addr := range x.Addresses {
			if addr != nil {
				offsets = append(offsets, addr.fbBuild(b))
			}
		}
		addresses = fbVector(b, offsets)
	}
	b.StartObject(2)
	b.PrependInt32Slot(0, int32(x.Scheme), 0)
	b.PrependUOffsetTSlot(1, addresses, 0)
	return b.EndObject()
}

func (x *Endpoints) fbRead(t fbTable) {
	x.Scheme = AddressScheme(t.int32(0))
	n := t.vectorLen(1)
	if n == 0 {
		return
	}
	x.Addresses = make([]*Address, n)
	for j := 0; j < n; j++ {
		addr := &Address{}
		addr.fbRead(t.tableAt(1, j))
		x.Addresses[j] = addr
	}
}

// Broker

func (x *Broker) fbBuild(b *flatbuffers.Builder) flatbuffers.UOffsetT {
	name := b.CreateString(x.Name)
	var endpoints flatbuffers.UOffsetT
	if x.Endpoints != nil {
		endpoints = x.Endpoints.fbBuild(b)
	}
	b.StartObject(3)
	b.PrependUOffsetTSlot(0, name, 0)
	b.PrependInt32Slot(1, x.ID, 0)
	b.PrependUOffsetTSlot(2, endpoints, 0)
	return b.EndObject()
}

func (x *Broker) fbRead(t fbTable) {
	x.Name = t.str(0)
	x.ID = t.int32(1)
	if sub, ok := t.table(2); ok {
		x.Endpoints = &Endpoints{}
		x.Endpoints.fbRead(sub)
	}
}

// Partition

func (x *Partition) fbBuild(b *flatbuffers.Builder) flatbuffers.UOffsetT {
	var topic, broker flatbuffers.UOffsetT
	if x.Topic != nil {
		topic = x.Topic.fbBuild(b)
	}
	if x.Broker != nil {
		broker = x.Broker.fbBuild(b)
	}
	b.StartObject(4)
	b.PrependUOffsetTSlot(0, topic, 0)
	b.PrependInt32Slot(1, x.ID, 0)
	b.PrependInt32Slot(2, int32(x.Permission), 0)
	b.PrependUOffsetTSlot(3, broker, 0)
	return b.EndObject()
}

func (x *Partition) fbRead(t fbTable) {
	if sub, ok := t.table(0); ok {
		x.Topic = &Resource{}
		x.Topic.fbRead(sub)
	}
	x.ID = t.int32(1)
	x.Permission = Permission(t.int32(2))
	if sub, ok := t.table(3); ok {
		x.Broker = &Broker{}
		x.Broker.fbRead(sub)
	}
}

// Status

func (x *Status) fbBuild(b *flatbuffers.Builder) flatbuffers.UOffsetT {
	message := b.CreateString(x.Message)
	b.StartObject(2)
	b.PrependInt32Slot(0, int32(x.Code), 0)
	b.PrependUOffsetTSlot(1, message, 0)
	return b.EndObject()
}

func (x *Status) fbRead(t fbTable) {
	x.Code = Code(t.int32(0))
	x.Message = t.str(1)
}

// ResponseCommon

func (x *ResponseCommon) fbBuild(b *flatbuffers.Builder) flatbuffers.UOffsetT {
	var status flatbuffers.UOffsetT
	if x.Status != nil {
		status = x.Status.fbBuild(b)
	}
	requestID := b.CreateString(x.RequestID)
	b.StartObject(2)
	b.PrependUOffsetTSlot(0, status, 0)
	b.PrependUOffsetTSlot(1, requestID, 0)
	return b.EndObject()
}

func (x *ResponseCommon) fbRead(t fbTable) {
	if sub, ok := t.table(0); ok {
		x.Status = &Status{}
		x.Status.fbRead(sub)
	}
	x.RequestID = t.str(1)
}

// SystemAttribute

func (x *SystemAttribute) fbBuild(b *flatbuffers.Builder) flatbuffers.UOffsetT {
	tag := b.CreateString(x.Tag)
	var keys flatbuffers.UOffsetT
	if len(x.Keys) > 0 {
		keys = fbStringVector(b, x.Keys)
	}
	messageID := b.CreateString(x.MessageID)
	bornHost := b.CreateString(x.BornHost)
	b.StartObject(6)
	b.PrependUOffsetTSlot(0, tag, 0)
	b.PrependUOffsetTSlot(1, keys, 0)
	b.PrependUOffsetTSlot(2, messageID, 0)
	b.PrependInt32Slot(3, x.PartitionID, 0)
	b.PrependInt64Slot(4, x.BornTimestamp, 0)
	b.PrependUOffsetTSlot(5, bornHost, 0)
	return b.EndObject()
}

func (x *SystemAttribute) fbRead(t fbTable) {
	x.Tag = t.str(0)
	if n := t.vectorLen(1); n > 0 {
		x.Keys = make([]string, n)
		for j := 0; j < n; j++ {
			x.Keys[j] = t.strAt(1, j)
		}
	}
	x.MessageID = t.str(2)
	x.PartitionID = t.int32(3)
	x.BornTimestamp = t.int64(4)
	x.BornHost = t.str(5)
}

// Message; user attributes are a vector of (key, value) tables sorted by key.

func (x *Message) fbBuild(b *flatbuffers.Builder) flatbuffers.UOffsetT {
	var topic, attributes, system, body flatbuffers.UOffsetT
	if x.Topic != nil {
		topic = x.Topic.fbBuild(b)
	}
	if len(x.UserAttributes) > 0 {
		keys := sortedKeys(x.UserAttributes)
		offsets := make([]flatbuffers.UOffsetT, len(keys))
		for i, k := range keys {
			key := b.CreateString(k)
			value := b.CreateString(x.UserAttributes[k])
			b.StartObject(2)
			b.PrependUOffsetTSlot(0, key, 0)
			b.PrependUOffsetTSlot(1, value, 0)
			offsets[i] = b.EndObject()
		}
		attributes = fbVector(b, offsets)
	}
	if x.SystemAttribute != nil {
		system = x.SystemAttribute.fbBuild(b)
	}
	if len(x.Body) > 0 {
		body = b.CreateByteVector(x.Body)
	}
	b.StartObject(4)
	b.PrependUOffsetTSlot(0, topic, 0)
	b.PrependUOffsetTSlot(1, attributes, 0)
	b.PrependUOffsetTSlot(2, system, 0)
	b.PrependUOffsetTSlot(3, body, 0)
	return b.EndObject()
}

func (x *Message) fbRead(t fbTable) {
	if sub, ok := t.table(0); ok {
		x.Topic = &Resource{}
		x.Topic.fbRead(sub)
	}
	if n := t.vectorLen(1); n > 0 {
		x.UserAttributes = make(map[string]string, n)
		for j := 0; j < n; j++ {
			entry := t.tableAt(1, j)
			x.UserAttributes[entry.str(0)] = entry.str(1)
		}
	}
	if sub, ok := t.table(2); ok {
		x.SystemAttribute = &SystemAttribute{}
		x.SystemAttribute.fbRead(sub)
	}
	x.Body = t.bytes(3)
}

// QueryRouteRequest

func (r *QueryRouteRequest) marshalFlatBuffer() ([]byte, error) {
	return fbMarshal(func(b *flatbuffers.Builder) flatbuffers.UOffsetT {
		var topic, endpoints flatbuffers.UOffsetT
		if r.Topic != nil {
			topic = r.Topic.fbBuild(b)
		}
		if r.Endpoints != nil {
			endpoints = r.Endpoints.fbBuild(b)
		}
		b.StartObject(2)
		b.PrependUOffsetTSlot(0, topic, 0)
		b.PrependUOffsetTSlot(1, endpoints, 0)
		return b.EndObject()
	}), nil
}

func (r *QueryRouteRequest) unmarshalFlatBuffer(data []byte) error {
	*r = QueryRouteRequest{}
	err := fbUnmarshal(data, func(t fbTable) {
		if sub, ok := t.table(0); ok {
			r.Topic = &Resource{}
			r.Topic.fbRead(sub)
		}
		if sub, ok := t.table(1); ok {
			r.Endpoints = &Endpoints{}
			r.Endpoints.fbRead(sub)
		}
	})
	return errors.WithMessage(err, "unmarshal QueryRouteRequest")
}

// QueryRouteResponse

func (r *QueryRouteResponse) marshalFlatBuffer() ([]byte, error) {
	return fbMarshal(func(b *flatbuffers.Builder) flatbuffers.UOffsetT {
		var common, partitions flatbuffers.UOffsetT
		if r.Common != nil {
			common = r.Common.fbBuild(b)
		}
		if len(r.Partitions) > 0 {
			offsets := make([]flatbuffers.UOffsetT, 0, len(r.Partitions))
			for _, p := range r.Partitions {
				if p != nil {
					offsets = append(offsets, p.fbBuild(b))
				}
			}
			partitions = fbVector(b, offsets)
		}
		b.StartObject(2)
		b.PrependUOffsetTSlot(0, common, 0)
		b.PrependUOffsetTSlot(1, partitions, 0)
		return b.EndObject()
	}), nil
}

func (r *QueryRouteResponse) unmarshalFlatBuffer(data []byte) error {
	*r = QueryRouteResponse{}
	err := fbUnmarshal(data, func(t fbTable) {
		if sub, ok := t.table(0); ok {
			r.Common = &ResponseCommon{}
			r.Common.fbRead(sub)
		}
		if n := t.vectorLen(1); n > 0 {
			r.Partitions = make([]*Partition, n)
			for j := 0; j < n; j++ {
				p := &Partition{}
				p.fbRead(t.tableAt(1, j))
				r.Partitions[j] = p
			}
		}
	})
	return errors.WithMessage(err, "unmarshal QueryRouteResponse")
}

// SendMessageRequest

func (r *SendMessageRequest) marshalFlatBuffer() ([]byte, error) {
	return fbMarshal(func(b *flatbuffers.Builder) flatbuffers.UOffsetT {
		var message, partition flatbuffers.UOffsetT
		if r.Message != nil {
			message = r.Message.fbBuild(b)
		}
		if r.Partition != nil {
			partition = r.Partition.fbBuild(b)
		}
		b.StartObject(2)
		b.PrependUOffsetTSlot(0, message, 0)
		b.PrependUOffsetTSlot(1, partition, 0)
		return b.EndObject()
	}), nil
}

func (r *SendMessageRequest) unmarshalFlatBuffer(data []byte) error {
	*r = SendMessageRequest{}
	err := fbUnmarshal(data, func(t fbTable) {
		if sub, ok := t.table(0); ok {
			r.Message = &Message{}
			r.Message.fbRead(sub)
		}
		if sub, ok := t.table(1); ok {
			r.Partition = &Partition{}
			r.Partition.fbRead(sub)
		}
	})
	return errors.WithMessage(err, "unmarshal SendMessageRequest")
}

// SendMessageResponse

func (r *SendMessageResponse) marshalFlatBuffer() ([]byte, error) {
	return fbMarshal(func(b *flatbuffers.Builder) flatbuffers.UOffsetT {
		var common flatbuffers.UOffsetT
		if r.Common != nil {
			common = r.Common.fbBuild(b)
		}
		messageID := b.CreateString(r.MessageID)
		transactionID := b.CreateString(r.TransactionID)
		b.StartObject(3)
		b.PrependUOffsetTSlot(0, common, 0)
		b.PrependUOffsetTSlot(1, messageID, 0)
		b.PrependUOffsetTSlot(2, transactionID, 0)
		return b.EndObject()
	}), nil
}

func (r *SendMessageResponse) unmarshalFlatBuffer(data []byte) error {
	*r = SendMessageResponse{}
	err := fbUnmarshal(data, func(t fbTable) {
		if sub, ok := t.table(0); ok {
			r.Common = &ResponseCommon{}
			r.Common.fbRead(sub)
		}
		r.MessageID = t.str(1)
		r.TransactionID = t.str(2)
	})
	return errors.WithMessage(err, "unmarshal SendMessageResponse")
}
