package worker

import (
	"context"

	"github.com/hirepipe/interviewflow/backend"
	internal "github.com/hirepipe/interviewflow/internal/worker"
	"github.com/hirepipe/interviewflow/registry"
	"github.com/hirepipe/interviewflow/workflow/executor"
	"github.com/hirepipe/interviewflow/workflow/executor/cache"
)

type Worker struct {
	backend backend.Backend

	registry *registry.Registry

	cache executor.ExecutorCache

	workers []worker
}

type worker interface {
	Start(context.Context) error
	WaitForCompletion() error
}

// New creates a worker that processes workflow and activity tasks for the
// workflows and activities registered with r.
func New(b backend.Backend, r *registry.Registry, options *Options) *Worker {
	if options == nil {
		options = &DefaultOptions
	}

	c := options.WorkflowExecutorCache
	if c == nil {
		c = cache.NewWorkflowExecutorLRUCache(
			b.Metrics(), options.WorkflowExecutorCacheSize, options.WorkflowExecutorCacheTTL)
	}

	workflowWorker := internal.NewWorkflowWorker(b, r, internal.WorkflowWorkerOptions{
		WorkerOptions: internal.WorkerOptions{
			Pollers:           options.WorkflowPollers,
			PollingInterval:   options.WorkflowPollingInterval,
			MaxParallelTasks:  options.MaxParallelWorkflowTasks,
			HeartbeatInterval: options.WorkflowHeartbeatInterval,
		},
		WorkflowExecutorCache:     c,
		WorkflowExecutorCacheSize: options.WorkflowExecutorCacheSize,
		WorkflowExecutorCacheTTL:  options.WorkflowExecutorCacheTTL,
		Notifier:                  options.StatusNotifier,
	})

	activityWorker := internal.NewActivityWorker(b, r, b.Options().Clock, internal.WorkerOptions{
		Pollers:           options.ActivityPollers,
		PollingInterval:   options.ActivityPollingInterval,
		MaxParallelTasks:  options.MaxParallelActivityTasks,
		HeartbeatInterval: options.ActivityHeartbeatInterval,
	})

	return &Worker{
		backend:  b,
		registry: r,
		cache:    c,
		workers:  []worker{workflowWorker, activityWorker},
	}
}

// Start starts the worker.
//
// To stop the worker, cancel the context passed to Start. To wait for
// completion of the active tasks, call WaitForCompletion.
func (w *Worker) Start(ctx context.Context) error {
	w.cache.StartEviction(ctx)

	for _, worker := range w.workers {
		if err := worker.Start(ctx); err != nil {
			return err
		}
	}

	return nil
}

// WaitForCompletion waits for all active tasks to complete.
func (w *Worker) WaitForCompletion() error {
	for _, worker := range w.workers {
		if err := worker.WaitForCompletion(); err != nil {
			return err
		}
	}

	return nil
}
