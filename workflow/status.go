package workflow

import (
	"github.com/hirepipe/interviewflow/internal/command"
)

// SetStatus publishes a custom status for the current instance. Statuses are
// observability data kept outside the replay decision path; during replay a
// recorded status is skipped instead of being published again.
func SetStatus(ctx *Context, status string, fields map[string]any) {
	s := ctx.state
	scheduleEventID := s.NextScheduleEventID()

	if s.StatusRecorded(scheduleEventID) {
		return
	}

	s.AddCommand(command.SetStatus(scheduleEventID, status, fields))
}
