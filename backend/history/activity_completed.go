package history

import (
	"github.com/hirepipe/interviewflow/backend/payload"
)

type ActivityCompletedAttributes struct {
	Result payload.Payload `json:"result,omitempty"`

	// Attempts is the number of executions it took to produce the result.
	Attempts int `json:"attempts,omitempty"`
}
