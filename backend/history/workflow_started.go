package history

import (
	"github.com/hirepipe/interviewflow/backend/payload"
)

type ExecutionStartedAttributes struct {
	Name string `json:"name,omitempty"`

	Input payload.Payload `json:"input,omitempty"`
}
