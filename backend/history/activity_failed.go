package history

import (
	"github.com/hirepipe/interviewflow/internal/workflowerrors"
)

type ActivityFailedAttributes struct {
	Error *workflowerrors.Error `json:"error,omitempty"`

	// Attempts is the number of executions performed before giving up.
	Attempts int `json:"attempts,omitempty"`
}
