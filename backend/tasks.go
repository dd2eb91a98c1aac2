package backend

import (
	"github.com/hirepipe/interviewflow/backend/history"
	"github.com/hirepipe/interviewflow/core"
)

// WorkflowTask represents work for one workflow execution slice.
type WorkflowTask struct {
	// ID is an identifier for this task. It's set by the backend
	ID string

	// WorkflowInstance is the workflow instance that this task is for
	WorkflowInstance *core.WorkflowInstance

	WorkflowInstanceState core.WorkflowInstanceState

	// LastSequenceID is the sequence ID of the newest event in the workflow
	// instance's history. It is the version the eventual CompleteWorkflowTask
	// call is checked against.
	LastSequenceID int64

	// NewEvents are new events since the last task execution
	NewEvents []*history.Event
}

// ActivityTask represents one activity execution attempt.
type ActivityTask struct {
	ID string

	WorkflowInstance *core.WorkflowInstance

	Event *history.Event

	// Attempt is the 1-based attempt number of this execution.
	Attempt int
}
