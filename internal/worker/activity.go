package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/hirepipe/interviewflow/backend"
	"github.com/hirepipe/interviewflow/backend/history"
	"github.com/hirepipe/interviewflow/backend/metrics"
	"github.com/hirepipe/interviewflow/internal/activity"
	"github.com/hirepipe/interviewflow/internal/log"
	"github.com/hirepipe/interviewflow/internal/metrickeys"
	"github.com/hirepipe/interviewflow/internal/workflowerrors"
	"github.com/hirepipe/interviewflow/registry"
)

func NewActivityWorker(
	b backend.Backend,
	r *registry.Registry,
	clock clock.Clock,
	options WorkerOptions,
) *Worker[backend.ActivityTask, history.Event] {
	return NewWorker[backend.ActivityTask, history.Event](b, NewActivityTaskWorker(b, r, clock), &options)
}

func NewActivityTaskWorker(b backend.Backend, r *registry.Registry, clock clock.Clock) *ActivityTaskWorker {
	return &ActivityTaskWorker{
		backend:          b,
		activityExecutor: activity.NewExecutor(b.Logger(), b.Tracer(), b.Converter(), r),
		logger:           b.Logger(),
		clock:            clock,
	}
}

type ActivityTaskWorker struct {
	backend          backend.Backend
	activityExecutor activity.Executor
	logger           *slog.Logger
	clock            clock.Clock
}

func (atw *ActivityTaskWorker) Get(ctx context.Context) (*backend.ActivityTask, error) {
	return atw.backend.GetActivityTask(ctx)
}

func (atw *ActivityTaskWorker) Extend(ctx context.Context, t *backend.ActivityTask) error {
	return atw.backend.ExtendActivityTask(ctx, t)
}

// Execute runs the activity and turns its outcome into the history event to
// deliver to the owning workflow instance. When the activity fails with a
// retryable error and attempts remain, the task is released for another
// attempt instead and no event is produced.
func (atw *ActivityTaskWorker) Execute(
	ctx context.Context, t *backend.ActivityTask,
) (*history.Event, error) {
	a := t.Event.Attributes.(*history.ActivityScheduledAttributes)
	ametrics := atw.backend.Metrics().WithTags(metrics.Tags{metrickeys.ActivityName: a.Name})

	// Record how long this task was in the queue
	timeInQueue := atw.clock.Since(t.Event.Timestamp)
	ametrics.Distribution(metrickeys.ActivityTaskDelay, metrics.Tags{}, float64(timeInQueue/time.Millisecond))

	timer := metrics.Timer(ametrics, metrickeys.ActivityTaskProcessed, metrics.Tags{})
	defer timer.Stop()

	result, err := atw.activityExecutor.ExecuteActivity(ctx, t)
	if err != nil {
		if workflowerrors.CanRetry(err) && t.Attempt < a.RetryPolicy.MaxAttempts {
			return nil, atw.retryTask(ctx, t, a, err)
		}

		return history.NewPendingEvent(
			atw.clock.Now(),
			history.EventType_ActivityFailed,
			&history.ActivityFailedAttributes{
				Error:    workflowerrors.FromError(err),
				Attempts: t.Attempt,
			},
			history.ScheduleEventID(t.Event.ScheduleEventID),
		), nil
	}

	return history.NewPendingEvent(
		atw.clock.Now(),
		history.EventType_ActivityCompleted,
		&history.ActivityCompletedAttributes{
			Result:   result,
			Attempts: t.Attempt,
		},
		history.ScheduleEventID(t.Event.ScheduleEventID),
	), nil
}

func (atw *ActivityTaskWorker) Complete(
	ctx context.Context, event *history.Event, t *backend.ActivityTask,
) error {
	if event == nil {
		// Task was released for a retry, nothing to deliver
		return nil
	}

	if err := atw.backend.CompleteActivityTask(ctx, t, event); err != nil {
		return fmt.Errorf("completing activity task: %w", err)
	}

	return nil
}

func (atw *ActivityTaskWorker) retryTask(
	ctx context.Context, t *backend.ActivityTask, a *history.ActivityScheduledAttributes, cause error,
) error {
	visibleAt := atw.clock.Now().Add(a.RetryPolicy.Backoff)

	atw.logger.DebugContext(ctx, "Retrying activity task",
		slog.String(log.InstanceIDKey, t.WorkflowInstance.InstanceID),
		slog.String(log.ActivityNameKey, a.Name),
		slog.Int(log.AttemptKey, t.Attempt),
		slog.Time("visible_at", visibleAt),
		"error", cause)

	if err := atw.backend.RetryActivityTask(ctx, t, visibleAt); err != nil {
		return fmt.Errorf("scheduling activity retry: %w", err)
	}

	atw.backend.Metrics().Counter(metrickeys.ActivityTaskRetried,
		metrics.Tags{metrickeys.ActivityName: a.Name}, 1)

	return nil
}
