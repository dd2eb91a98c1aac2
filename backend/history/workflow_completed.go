package history

import (
	"github.com/hirepipe/interviewflow/backend/payload"
	"github.com/hirepipe/interviewflow/internal/workflowerrors"
)

type ExecutionCompletedAttributes struct {
	Result payload.Payload       `json:"result,omitempty"`
	Error  *workflowerrors.Error `json:"error,omitempty"`
}
