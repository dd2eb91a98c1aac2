package history

import (
	"github.com/hirepipe/interviewflow/backend/payload"
)

type SignalReceivedAttributes struct {
	Name string          `json:"name,omitempty"`
	Arg  payload.Payload `json:"arg,omitempty"`
}
