package workflow

import (
	"github.com/hirepipe/interviewflow/core"
	"github.com/hirepipe/interviewflow/internal/workflowstate"
)

// Context carries the deterministic interpreter state for one workflow
// execution slice. Workflow code must only interact with the outside world
// through the primitives in this package.
type Context struct {
	state *workflowstate.WfState
}

// NewContext is used by the executor to hand the interpreter state to the
// workflow function.
func NewContext(state *workflowstate.WfState) *Context {
	return &Context{state: state}
}

// Instance returns the workflow instance the current execution belongs to.
func Instance(ctx *Context) *core.WorkflowInstance {
	return ctx.state.Instance()
}
