package core

// WorkflowInstanceState is the R/O lifecycle state of a workflow instance.
type WorkflowInstanceState int

const (
	WorkflowInstanceStateActive WorkflowInstanceState = iota
	WorkflowInstanceStateFinished
)

func (s WorkflowInstanceState) String() string {
	switch s {
	case WorkflowInstanceStateActive:
		return "active"
	case WorkflowInstanceStateFinished:
		return "finished"
	default:
		return "unknown"
	}
}
