package protocol

import (
	"encoding/json"

	"github.com/pkg/errors"
)

func marshalJSON(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshal json")
	}
	return data, nil
}

func unmarshalJSON(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "unmarshal json")
	}
	return nil
}

func (r *QueryRouteRequest) marshalJSON() ([]byte, error) {
	return marshalJSON(r)
}

func (r *QueryRouteRequest) unmarshalJSON(data []byte) error {
	*r = QueryRouteRequest{}
	return unmarshalJSON(data, r)
}

func (r *QueryRouteResponse) marshalJSON() ([]byte, error) {
	return marshalJSON(r)
}

func (r *QueryRouteResponse) unmarshalJSON(data []byte) error {
	*r = QueryRouteResponse{}
	return unmarshalJSON(data, r)
}

func (r *SendMessageRequest) marshalJSON() ([]byte, error) {
	return marshalJSON(r)
}

func (r *SendMessageRequest) unmarshalJSON(data []byte) error {
	*r = SendMessageRequest{}
	return unmarshalJSON(data, r)
}

func (r *SendMessageResponse) marshalJSON() ([]byte, error) {
	return marshalJSON(r)
}

func (r *SendMessageResponse) unmarshalJSON(data []byte) error {
	*r = SendMessageResponse{}
	return unmarshalJSON(data, r)
}
