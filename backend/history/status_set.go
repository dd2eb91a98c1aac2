package history

import (
	"github.com/hirepipe/interviewflow/backend/payload"
)

// StatusSetAttributes records that the workflow published a custom status
// snapshot. The snapshot itself lives in the status side channel; the history
// event only keeps the decision replayable.
type StatusSetAttributes struct {
	Status string `json:"status,omitempty"`

	Fields payload.Payload `json:"fields,omitempty"`
}
