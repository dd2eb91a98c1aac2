package workflow

import (
	"time"

	"github.com/hirepipe/interviewflow/internal/command"
)

// Sleep suspends the workflow for the given duration.
func Sleep(ctx *Context, d time.Duration) error {
	s := ctx.state
	scheduleEventID := s.NextScheduleEventID()

	if _, ok := s.TimerResolution(scheduleEventID); ok {
		s.ConsumeTimer(scheduleEventID)
		return nil
	}

	if !s.Scheduled(scheduleEventID) {
		s.AddCommand(command.ScheduleTimer(scheduleEventID, s.Now().Add(d)))
	}

	return errSuspended
}

// Now returns the deterministic workflow time, the timestamp of the current
// workflow task. It does not advance while the workflow function runs.
func Now(ctx *Context) time.Time {
	return ctx.state.Now()
}
