package backend

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/hirepipe/interviewflow/backend/converter"
	"github.com/hirepipe/interviewflow/backend/history"
	"github.com/hirepipe/interviewflow/backend/metrics"
	"github.com/hirepipe/interviewflow/core"
)

var (
	ErrInstanceNotFound      = errors.New("workflow instance not found")
	ErrInstanceAlreadyExists = errors.New("workflow instance already exists")
	ErrInstanceNotFinished   = errors.New("workflow instance is not finished")

	// ErrVersionConflict is returned from CompleteWorkflowTask when the
	// instance history changed since the task was read. The caller must
	// reload and retry its decision.
	ErrVersionConflict = errors.New("workflow instance version conflict")
)

const TracerName = "interviewflow"

type Backend interface {
	// CreateWorkflowInstance creates a new workflow instance with the given
	// start event as its first pending event. If an instance with the same
	// instance ID already exists, ErrInstanceAlreadyExists is returned and
	// nothing is written; this is the registry's idempotency guarantee.
	CreateWorkflowInstance(ctx context.Context, instance *core.WorkflowInstance, event *history.Event) error

	// GetWorkflowInstance returns the status of the given workflow instance,
	// including the most recent custom status snapshot.
	GetWorkflowInstance(ctx context.Context, instanceID string) (*InstanceStatus, error)

	// ListWorkflowInstances returns up to count instance statuses created
	// before the instance identified by after (or the newest ones if after
	// is empty), in reverse creation order.
	ListWorkflowInstances(ctx context.Context, after string, count int) ([]*InstanceStatus, error)

	// GetWorkflowInstanceState returns the state of the given workflow instance
	GetWorkflowInstanceState(ctx context.Context, instance *core.WorkflowInstance) (core.WorkflowInstanceState, error)

	// GetWorkflowInstanceHistory returns the workflow history for the given instance. When lastSequenceID
	// is given, only events after that event are returned. Otherwise the full history is returned.
	GetWorkflowInstanceHistory(ctx context.Context, instance *core.WorkflowInstance, lastSequenceID *int64) ([]*history.Event, error)

	// GetStatusHistory returns the ordered custom status snapshots for the
	// given instance.
	GetStatusHistory(ctx context.Context, instanceID string) ([]*StatusSnapshot, error)

	// SignalWorkflow delivers an external event to a running workflow
	// instance. If the given instance does not exist, it returns
	// ErrInstanceNotFound. Delivering a signal to a finished instance or to
	// an instance not waiting for it is not an error; the event is simply
	// discarded when the next workflow task executes.
	SignalWorkflow(ctx context.Context, instanceID string, event *history.Event) error

	// GetWorkflowTask returns a pending workflow task or nil if there is no
	// instance with due events. A due event is a pending event whose
	// VisibleAt is unset or in the past; timers become due this way. The
	// instance is locked for this backend's worker until the task is
	// completed or the lock expires.
	GetWorkflowTask(ctx context.Context) (*WorkflowTask, error)

	// ExtendWorkflowTask extends the lock of a workflow task
	ExtendWorkflowTask(ctx context.Context, task *WorkflowTask) error

	// CompleteWorkflowTask checkpoints a workflow task retrieved using
	// GetWorkflowTask: executed events are appended to the history, activity
	// events are enqueued as activity tasks, timer events become delayed
	// pending events and status events are appended to the status side
	// channel. The append is optimistic-concurrency-controlled against
	// task.LastSequenceID; ErrVersionConflict signals a concurrent writer.
	CompleteWorkflowTask(
		ctx context.Context, task *WorkflowTask, state core.WorkflowInstanceState,
		executedEvents, activityEvents, timerEvents []*history.Event, statusEvents []*StatusSnapshot) error

	// GetActivityTask returns a pending activity task or nil if there are no due activities
	GetActivityTask(ctx context.Context) (*ActivityTask, error)

	// ExtendActivityTask extends the lock of an activity task
	ExtendActivityTask(ctx context.Context, task *ActivityTask) error

	// RetryActivityTask releases a locked activity task for another attempt,
	// delayed until visibleAt. The persisted attempt counter is incremented.
	RetryActivityTask(ctx context.Context, task *ActivityTask, visibleAt time.Time) error

	// CompleteActivityTask completes an activity task retrieved using
	// GetActivityTask and delivers the result event to the owning workflow
	// instance.
	CompleteActivityTask(ctx context.Context, task *ActivityTask, result *history.Event) error

	// GetStats returns stats about the backend
	GetStats(ctx context.Context) (*Stats, error)

	// Logger returns the configured logger for the backend
	Logger() *slog.Logger

	// Tracer returns the configured tracer for the backend
	Tracer() trace.Tracer

	// Metrics returns the configured metrics client for the backend
	Metrics() metrics.Client

	// Converter returns the configured payload converter for the backend
	Converter() converter.Converter

	// Options returns the configured options for the backend
	Options() *Options

	// Close closes any underlying resources
	Close() error
}
