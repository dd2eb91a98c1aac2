package notify

import (
	"context"
	"log/slog"

	"github.com/hirepipe/interviewflow/backend"
	"github.com/hirepipe/interviewflow/internal/log"
)

// Notifier receives custom status snapshots after they have been committed.
// Delivery is best effort; a failed notification is never retried and never
// affects workflow progress.
type Notifier interface {
	StatusChanged(ctx context.Context, snapshot *backend.StatusSnapshot) error
}

type logNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier publishes status changes to the given logger.
func NewLogNotifier(logger *slog.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) StatusChanged(ctx context.Context, snapshot *backend.StatusSnapshot) error {
	n.logger.InfoContext(ctx, "Workflow status changed",
		slog.String(log.InstanceIDKey, snapshot.InstanceID),
		slog.String(log.StatusKey, snapshot.Status),
		slog.String(log.RegionKey, snapshot.Region),
		slog.Int64(log.SeqIDKey, snapshot.Seq),
	)

	return nil
}
