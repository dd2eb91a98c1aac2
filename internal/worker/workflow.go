package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/hirepipe/interviewflow/backend"
	"github.com/hirepipe/interviewflow/backend/history"
	"github.com/hirepipe/interviewflow/backend/metrics"
	"github.com/hirepipe/interviewflow/core"
	"github.com/hirepipe/interviewflow/internal/log"
	"github.com/hirepipe/interviewflow/internal/metrickeys"
	"github.com/hirepipe/interviewflow/notify"
	"github.com/hirepipe/interviewflow/registry"
	"github.com/hirepipe/interviewflow/workflow/executor"
)

type WorkflowWorkerOptions struct {
	WorkerOptions

	WorkflowExecutorCache     executor.ExecutorCache
	WorkflowExecutorCacheSize int
	WorkflowExecutorCacheTTL  time.Duration

	// Notifier receives committed status snapshots. Optional.
	Notifier notify.Notifier
}

func NewWorkflowWorker(
	b backend.Backend,
	r *registry.Registry,
	options WorkflowWorkerOptions,
) *Worker[backend.WorkflowTask, executor.ExecutionResult] {
	tw := NewWorkflowTaskWorker(b, r, options.WorkflowExecutorCache, options.Notifier)

	return NewWorker[backend.WorkflowTask, executor.ExecutionResult](b, tw, &options.WorkerOptions)
}

func NewWorkflowTaskWorker(
	b backend.Backend, r *registry.Registry, cache executor.ExecutorCache, notifier notify.Notifier,
) *WorkflowTaskWorker {
	return &WorkflowTaskWorker{
		backend:  b,
		registry: r,
		cache:    cache,
		notifier: notifier,
		logger:   b.Logger(),
		clock:    b.Options().Clock,
	}
}

type WorkflowTaskWorker struct {
	backend  backend.Backend
	registry *registry.Registry
	cache    executor.ExecutorCache
	notifier notify.Notifier
	logger   *slog.Logger
	clock    clock.Clock
}

func (wtw *WorkflowTaskWorker) Get(ctx context.Context) (*backend.WorkflowTask, error) {
	t, err := wtw.backend.GetWorkflowTask(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, context.DeadlineExceeded
		}

		return nil, err
	}

	return t, nil
}

func (wtw *WorkflowTaskWorker) Extend(ctx context.Context, t *backend.WorkflowTask) error {
	return wtw.backend.ExtendWorkflowTask(ctx, t)
}

func (wtw *WorkflowTaskWorker) Execute(
	ctx context.Context, t *backend.WorkflowTask,
) (*executor.ExecutionResult, error) {
	// Record how long this task was in the queue
	firstEvent := firstNewEvent(t)
	if firstEvent != nil {
		timeInQueue := wtw.clock.Since(firstEvent.Timestamp)
		wtw.backend.Metrics().Distribution(
			metrickeys.WorkflowTaskDelay, metrics.Tags{}, float64(timeInQueue/time.Millisecond))
	}

	timer := metrics.Timer(wtw.backend.Metrics(), metrickeys.WorkflowTaskProcessed, metrics.Tags{})
	defer timer.Stop()

	e, err := wtw.getExecutor(ctx, t)
	if err != nil {
		return nil, err
	}

	result, err := e.ExecuteTask(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("executing workflow task: %w", err)
	}

	return result, nil
}

func (wtw *WorkflowTaskWorker) Complete(
	ctx context.Context, result *executor.ExecutionResult, t *backend.WorkflowTask,
) error {
	state := result.State

	if err := wtw.backend.CompleteWorkflowTask(
		ctx, t, state, result.Executed, result.ActivityEvents, result.TimerEvents, result.StatusEvents,
	); err != nil {
		if errors.Is(err, backend.ErrVersionConflict) {
			// Another worker has advanced this instance in the meantime. The
			// cached executor state is stale and must not be reused.
			wtw.logger.WarnContext(ctx, "Could not complete workflow task, dropping cached state",
				slog.String(log.InstanceIDKey, t.WorkflowInstance.InstanceID))

			if eerr := wtw.cache.Evict(ctx, t.WorkflowInstance); eerr != nil {
				wtw.logger.ErrorContext(ctx, "error evicting workflow executor", "error", eerr)
			}

			return nil
		}

		wtw.logger.ErrorContext(ctx, "could not complete workflow task", "error", err)
		return fmt.Errorf("completing workflow task: %w", err)
	}

	if state == core.WorkflowInstanceStateFinished {
		wtw.backend.Metrics().Counter(metrickeys.WorkflowInstanceFinished, metrics.Tags{}, 1)

		// The instance will not receive any more tasks, release the executor
		if err := wtw.cache.Evict(ctx, t.WorkflowInstance); err != nil {
			wtw.logger.ErrorContext(ctx, "error evicting workflow executor", "error", err)
		}
	}

	// Publish status snapshots committed with this task. Failures are logged
	// and otherwise ignored, the snapshots remain queryable from the store.
	if wtw.notifier != nil {
		for _, snapshot := range result.StatusEvents {
			if err := wtw.notifier.StatusChanged(ctx, snapshot); err != nil {
				wtw.logger.ErrorContext(ctx, "could not publish status change",
					slog.String(log.InstanceIDKey, snapshot.InstanceID),
					slog.String(log.StatusKey, snapshot.Status),
					"error", err)
				continue
			}

			wtw.backend.Metrics().Counter(metrickeys.StatusPublished,
				metrics.Tags{metrickeys.Region: snapshot.Region}, 1)
		}
	}

	return nil
}

func (wtw *WorkflowTaskWorker) getExecutor(
	ctx context.Context, t *backend.WorkflowTask,
) (executor.WorkflowExecutor, error) {
	e, ok, err := wtw.cache.Get(ctx, t.WorkflowInstance)
	if err != nil {
		wtw.logger.ErrorContext(ctx, "could not get cached workflow executor", "error", err)
		ok = false
	}

	if !ok {
		e, err = executor.NewExecutor(
			wtw.logger,
			wtw.backend.Tracer(),
			wtw.registry,
			wtw.backend.Converter(),
			wtw.backend,
			t.WorkflowInstance,
			wtw.clock,
		)
		if err != nil {
			return nil, fmt.Errorf("creating workflow executor: %w", err)
		}
	}

	// Cache executor for subsequent tasks of this instance
	if err := wtw.cache.Store(ctx, t.WorkflowInstance, e); err != nil {
		wtw.logger.ErrorContext(ctx, "error storing workflow executor in cache", "error", err)
	}

	return e, nil
}

func firstNewEvent(t *backend.WorkflowTask) *history.Event {
	if len(t.NewEvents) == 0 {
		return nil
	}

	return t.NewEvents[0]
}
