package workflow

import "errors"

// errSuspended is returned by primitives that are waiting for a resolution
// which is not in the history yet. It travels up through the workflow
// function to the executor, which parks the instance until new events arrive.
var errSuspended = errors.New("workflow suspended")

// Suspended reports whether err signals a parked, not failed, execution.
// Workflow code that inspects errors before handling a failure must let
// suspensions propagate.
func Suspended(err error) bool {
	return errors.Is(err, errSuspended)
}

// ErrTimedOut is returned by WaitForEvent when the timeout timer fired before
// a matching event arrived.
var ErrTimedOut = errors.New("wait timed out")
