package activity

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hirepipe/interviewflow/backend"
	"github.com/hirepipe/interviewflow/backend/converter"
	"github.com/hirepipe/interviewflow/backend/history"
	"github.com/hirepipe/interviewflow/backend/payload"
	"github.com/hirepipe/interviewflow/internal/log"
	"github.com/hirepipe/interviewflow/internal/workflowerrors"
	"github.com/hirepipe/interviewflow/registry"
)

type Executor struct {
	logger *slog.Logger
	tracer trace.Tracer
	cv     converter.Converter
	r      *registry.Registry
}

func NewExecutor(logger *slog.Logger, tracer trace.Tracer, cv converter.Converter, r *registry.Registry) Executor {
	return Executor{
		logger: logger,
		tracer: tracer,
		cv:     cv,
		r:      r,
	}
}

// ExecuteActivity runs one activity attempt. Panics in activity code are
// turned into errors so the worker keeps running.
func (e *Executor) ExecuteActivity(ctx context.Context, task *backend.ActivityTask) (payload.Payload, error) {
	a := task.Event.Attributes.(*history.ActivityScheduledAttributes)

	fn, err := e.r.GetActivity(a.Name)
	if err != nil {
		return nil, err
	}

	as := NewActivityState(task.Event.ID, task.Attempt, task.WorkflowInstance, e.logger)
	activityCtx := WithActivityState(ctx, as)

	activityCtx, span := e.tracer.Start(activityCtx, "ActivityTaskExecution", trace.WithAttributes(
		attribute.String("activity", a.Name),
		attribute.String(log.InstanceIDKey, task.WorkflowInstance.InstanceID),
		attribute.String(log.ActivityIDKey, task.ID),
		attribute.Int(log.AttemptKey, task.Attempt),
	))
	defer span.End()

	return e.execute(activityCtx, fn, a.Input)
}

func (e *Executor) execute(ctx context.Context, fn registry.ActivityFunc, input payload.Payload) (result payload.Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = workflowerrors.NewPanicError(fmt.Sprintf("activity panic: %v", r))
		}
	}()

	return fn(ctx, e.cv, input)
}
