package converter

import (
	"encoding/json"

	"github.com/hirepipe/interviewflow/backend/payload"
)

// Converter serializes and deserializes workflow inputs and results.
type Converter interface {
	To(v interface{}) (payload.Payload, error)
	From(data payload.Payload, vptr interface{}) error
}

type jsonConverter struct{}

func (jc *jsonConverter) To(v interface{}) (payload.Payload, error) {
	return json.Marshal(v)
}

func (jc *jsonConverter) From(data payload.Payload, vptr interface{}) error {
	return json.Unmarshal(data, vptr)
}

var DefaultConverter Converter = &jsonConverter{}
