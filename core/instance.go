package core

type WorkflowInstance struct {
	// InstanceID is the ID of the workflow instance. It doubles as the
	// idempotency key for starting the instance.
	InstanceID string `json:"instance_id,omitempty"`

	// ExecutionID is the ID of the current execution of the workflow instance.
	ExecutionID string `json:"execution_id,omitempty"`
}

func NewWorkflowInstance(instanceID, executionID string) *WorkflowInstance {
	return &WorkflowInstance{
		InstanceID:  instanceID,
		ExecutionID: executionID,
	}
}
