package workflow

import (
	"fmt"
	"time"

	"github.com/hirepipe/interviewflow/internal/command"
)

// WaitForEvent blocks the workflow until an external event with the given
// name arrives, or until timeout elapses. When both an event and the timeout
// are recorded in the history, the one that happened first wins; the decision
// is stable under replay. Events arriving before the wait are buffered and
// consumed in arrival order. A timeout of zero or less waits indefinitely.
func WaitForEvent[T any](ctx *Context, name string, timeout time.Duration) (T, error) {
	var zero T

	s := ctx.state

	var timerID int64
	var timerFired bool
	var timerOrder int
	if timeout > 0 {
		timerID = s.NextScheduleEventID()

		if r, ok := s.TimerResolution(timerID); ok {
			timerFired = true
			timerOrder = r.Order
		}
	}

	if sig, ok := s.PeekSignal(name); ok {
		if !timerFired || sig.Order < timerOrder {
			s.ConsumeSignal(name)

			var result T
			if len(sig.Arg) > 0 {
				if err := s.Converter().From(sig.Arg, &result); err != nil {
					return zero, fmt.Errorf("converting event payload: %w", err)
				}
			}

			return result, nil
		}
	}

	if timerFired {
		s.ConsumeTimer(timerID)
		return zero, ErrTimedOut
	}

	if timeout > 0 && !s.Scheduled(timerID) {
		s.AddCommand(command.ScheduleTimer(timerID, s.Now().Add(timeout)))
	}

	return zero, errSuspended
}
