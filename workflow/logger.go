package workflow

import (
	"log/slog"

	"github.com/hirepipe/interviewflow/internal/log"
)

// Logger returns a logger scoped to the current instance. Log lines emitted
// during replay are tagged, so downstream consumers can drop duplicates.
func Logger(ctx *Context) *slog.Logger {
	s := ctx.state

	return s.Logger().With(
		slog.String(log.InstanceIDKey, s.Instance().InstanceID),
		slog.Bool(log.IsReplayingKey, s.Replaying()),
	)
}
