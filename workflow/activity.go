package workflow

import (
	"fmt"

	"github.com/hirepipe/interviewflow/internal/command"
	"github.com/hirepipe/interviewflow/internal/workflowerrors"
)

// ExecuteActivity schedules the named activity and returns its result. On the
// first reach the activity is scheduled and the execution suspends; once the
// recorded outcome is in the history, replay returns it without re-executing
// the activity.
func ExecuteActivity[TResult any](ctx *Context, name string, input any, opts ...ActivityOption) (TResult, error) {
	var zero TResult

	s := ctx.state
	scheduleEventID := s.NextScheduleEventID()

	if r, ok := s.ActivityResolution(scheduleEventID); ok {
		if r.Err != nil {
			return zero, workflowerrors.ToError(r.Err)
		}

		var result TResult
		if len(r.Result) > 0 {
			if err := s.Converter().From(r.Result, &result); err != nil {
				return zero, fmt.Errorf("converting activity result: %w", err)
			}
		}

		return result, nil
	}

	if !s.Scheduled(scheduleEventID) {
		inputPayload, err := s.Converter().To(input)
		if err != nil {
			return zero, fmt.Errorf("converting activity input: %w", err)
		}

		options := applyActivityOptions(opts)

		s.AddCommand(command.ScheduleActivity(scheduleEventID, name, inputPayload, options.RetryPolicy))
	}

	return zero, errSuspended
}
