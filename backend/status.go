package backend

import (
	"time"

	"github.com/hirepipe/interviewflow/backend/payload"
	"github.com/hirepipe/interviewflow/core"
	"github.com/hirepipe/interviewflow/internal/workflowerrors"
)

// StatusSnapshot is one entry in an instance's custom status history. It is
// observability data, kept outside the replay log; only the most recent
// snapshot has to be queryable at any time.
type StatusSnapshot struct {
	InstanceID string `json:"instance_id"`

	// Seq orders snapshots within one instance.
	Seq int64 `json:"seq"`

	Status string `json:"status"`

	// Fields are state-specific extra fields, e.g. the confirmation time or
	// the final outcome and score.
	Fields map[string]any `json:"fields,omitempty"`

	// Region is the deployment metadata stamped on every snapshot.
	Region string `json:"region,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// InstanceStatus is the externally observable state of a workflow instance.
type InstanceStatus struct {
	Instance *core.WorkflowInstance `json:"instance"`

	State core.WorkflowInstanceState `json:"state"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Result and Error are set once the instance is finished.
	Result payload.Payload       `json:"result,omitempty"`
	Error  *workflowerrors.Error `json:"error,omitempty"`

	// LastStatus is the most recent custom status snapshot, if any.
	LastStatus *StatusSnapshot `json:"last_status,omitempty"`
}
