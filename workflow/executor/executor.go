package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel/trace"

	"github.com/hirepipe/interviewflow/backend"
	"github.com/hirepipe/interviewflow/backend/converter"
	"github.com/hirepipe/interviewflow/backend/history"
	"github.com/hirepipe/interviewflow/backend/payload"
	"github.com/hirepipe/interviewflow/core"
	"github.com/hirepipe/interviewflow/internal/command"
	"github.com/hirepipe/interviewflow/internal/log"
	"github.com/hirepipe/interviewflow/internal/workflowerrors"
	"github.com/hirepipe/interviewflow/internal/workflowstate"
	"github.com/hirepipe/interviewflow/registry"
	wf "github.com/hirepipe/interviewflow/workflow"
)

type ExecutionResult struct {
	// New state of the workflow instance
	State core.WorkflowInstanceState

	// Events executed during the task execution
	Executed []*history.Event

	// Activities that were scheduled
	ActivityEvents []*history.Event

	// Timers that were scheduled
	TimerEvents []*history.Event

	// Custom status snapshots published during the task execution
	StatusEvents []*backend.StatusSnapshot
}

type WorkflowHistoryProvider interface {
	GetWorkflowInstanceHistory(ctx context.Context, instance *core.WorkflowInstance, lastSequenceID *int64) ([]*history.Event, error)
}

type WorkflowExecutor interface {
	ExecuteTask(ctx context.Context, t *backend.WorkflowTask) (*ExecutionResult, error)

	Close()
}

// executor drives one workflow instance. It keeps the instance's history
// cached between tasks; per task it folds the history plus the new events
// into interpreter state and re-runs the workflow function from the top.
type executor struct {
	registry        *registry.Registry
	historyProvider WorkflowHistoryProvider
	instance        *core.WorkflowInstance
	cv              converter.Converter
	clock           clock.Clock
	logger          *slog.Logger
	tracer          trace.Tracer

	history        []*history.Event
	lastSequenceID int64
}

func NewExecutor(
	logger *slog.Logger,
	tracer trace.Tracer,
	r *registry.Registry,
	cv converter.Converter,
	historyProvider WorkflowHistoryProvider,
	instance *core.WorkflowInstance,
	clock clock.Clock,
) (WorkflowExecutor, error) {
	return &executor{
		registry:        r,
		historyProvider: historyProvider,
		instance:        instance,
		cv:              cv,
		clock:           clock,
		logger: logger.With(
			slog.String(log.InstanceIDKey, instance.InstanceID),
			slog.String(log.ExecutionIDKey, instance.ExecutionID),
		),
		tracer: tracer,
	}, nil
}

func (e *executor) Close() {
	e.history = nil
}

func (e *executor) ExecuteTask(ctx context.Context, t *backend.WorkflowTask) (*ExecutionResult, error) {
	logger := e.logger.With(slog.String(log.TaskIDKey, t.ID))

	logger.Debug("Executing workflow task", slog.Int64(log.TaskLastSequenceIDKey, t.LastSequenceID))

	if t.WorkflowInstanceState == core.WorkflowInstanceStateFinished {
		// This can happen when events are delivered after the workflow
		// finished. They are discarded.
		logger.Warn("Received workflow task for finished workflow instance, discarding events")

		for _, event := range t.NewEvents {
			logger.Debug("Discarded event",
				slog.String(log.EventIDKey, event.ID),
				slog.String(log.EventTypeKey, event.Type.String()),
				slog.Int64(log.ScheduleEventIDKey, event.ScheduleEventID))
		}

		return &ExecutionResult{
			State: core.WorkflowInstanceStateFinished,
		}, nil
	}

	if err := e.catchupOnHistory(ctx, t, logger); err != nil {
		return nil, err
	}

	// Always add a WorkflowTaskStarted event before executing new events
	toExecute := []*history.Event{e.createNewEvent(history.EventType_WorkflowTaskStarted, &history.WorkflowTaskStartedAttributes{})}
	toExecute = append(toExecute, t.NewEvents...)

	state := workflowstate.NewWfState(e.instance, e.cv, e.logger)

	for _, event := range e.history {
		if err := state.ApplyEvent(event); err != nil {
			return nil, fmt.Errorf("applying history event: %w", err)
		}
	}

	state.MarkHistoryEnd()

	for _, event := range toExecute {
		if err := state.ApplyEvent(event); err != nil {
			return nil, fmt.Errorf("applying new event: %w", err)
		}
	}

	result, wfErr := e.runWorkflow(state)

	instanceState := core.WorkflowInstanceStateActive
	finished := !wf.Suspended(wfErr)
	if finished {
		instanceState = core.WorkflowInstanceStateFinished
	}

	// Turn commands produced by this run into events
	commandEvents := make([]*history.Event, 0)
	activityEvents := make([]*history.Event, 0)
	timerEvents := make([]*history.Event, 0)
	statusEvents := make([]*backend.StatusSnapshot, 0)

	for _, c := range state.Commands() {
		switch c.Type {
		case command.Type_ScheduleActivity:
			event := e.createNewEvent(
				history.EventType_ActivityScheduled,
				&history.ActivityScheduledAttributes{
					Name:        c.Name,
					Input:       c.Input,
					RetryPolicy: c.RetryPolicy,
				},
				history.ScheduleEventID(c.ID),
			)

			commandEvents = append(commandEvents, event)
			activityEvents = append(activityEvents, event)

		case command.Type_ScheduleTimer:
			commandEvents = append(commandEvents, e.createNewEvent(
				history.EventType_TimerScheduled,
				&history.TimerScheduledAttributes{At: c.At},
				history.ScheduleEventID(c.ID),
			))

			// The fired event becomes due once its deadline passes
			timerEvents = append(timerEvents, e.createNewEvent(
				history.EventType_TimerFired,
				&history.TimerFiredAttributes{ScheduledAt: e.clock.Now(), At: c.At},
				history.ScheduleEventID(c.ID),
				history.VisibleAt(c.At),
			))

		case command.Type_SetStatus:
			fields, err := e.cv.To(c.Fields)
			if err != nil {
				return nil, fmt.Errorf("converting status fields: %w", err)
			}

			commandEvents = append(commandEvents, e.createNewEvent(
				history.EventType_StatusSet,
				&history.StatusSetAttributes{Status: c.Status, Fields: fields},
				history.ScheduleEventID(c.ID),
			))

			statusEvents = append(statusEvents, &backend.StatusSnapshot{
				InstanceID: e.instance.InstanceID,
				Seq:        int64(state.StatusCount() + len(statusEvents) + 1),
				Status:     c.Status,
				Fields:     c.Fields,
				Timestamp:  e.clock.Now(),
			})
		}
	}

	executedEvents := append(toExecute, commandEvents...)

	if finished {
		executedEvents = append(executedEvents, e.createNewEvent(
			history.EventType_WorkflowExecutionFinished,
			&history.ExecutionCompletedAttributes{
				Result: result,
				Error:  workflowerrors.FromError(wfErr),
			},
		))
	}

	// Set sequence ids for all executed events
	for i := range executedEvents {
		executedEvents[i].SequenceID = e.nextSequenceID()
	}

	e.history = append(e.history, executedEvents...)

	logger.Debug("Finished workflow task",
		slog.Int(log.ExecutedEventsKey, len(executedEvents)),
		slog.Int64(log.TaskLastSequenceIDKey, e.lastSequenceID),
		slog.String(log.WorkflowInstanceStateKey, instanceState.String()),
	)

	return &ExecutionResult{
		State:          instanceState,
		Executed:       executedEvents,
		ActivityEvents: activityEvents,
		TimerEvents:    timerEvents,
		StatusEvents:   statusEvents,
	}, nil
}

// runWorkflow executes the registered workflow function against the
// interpreter state. Panics in workflow code fail the instance instead of
// crashing the worker.
func (e *executor) runWorkflow(state *workflowstate.WfState) (result payload.Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = workflowerrors.NewPanicError(fmt.Sprintf("workflow panic: %v", r))
		}
	}()

	a := state.StartAttributes()
	if a == nil {
		return nil, errors.New("workflow history has no start event")
	}

	fn, err := e.registry.GetWorkflow(a.Name)
	if err != nil {
		return nil, err
	}

	return fn(wf.NewContext(state), e.cv, a.Input)
}

func (e *executor) catchupOnHistory(ctx context.Context, t *backend.WorkflowTask, logger *slog.Logger) error {
	if t.LastSequenceID < e.lastSequenceID {
		return errors.New("task has older history than current state, cannot execute")
	}

	if t.LastSequenceID > e.lastSequenceID {
		logger.Debug("Task has newer history than current state, fetching missing history",
			slog.Int64(log.TaskLastSequenceIDKey, t.LastSequenceID),
			slog.Int64(log.LocalSequenceIDKey, e.lastSequenceID))

		h, err := e.historyProvider.GetWorkflowInstanceHistory(ctx, t.WorkflowInstance, &e.lastSequenceID)
		if err != nil {
			return fmt.Errorf("getting workflow history: %w", err)
		}

		e.history = append(e.history, h...)
		if len(h) > 0 {
			e.lastSequenceID = h[len(h)-1].SequenceID
		}

		if t.LastSequenceID != e.lastSequenceID {
			return errors.New("even after fetching history executor state does not match task")
		}
	}

	return nil
}

func (e *executor) nextSequenceID() int64 {
	e.lastSequenceID++
	return e.lastSequenceID
}

func (e *executor) createNewEvent(eventType history.EventType, attributes interface{}, opts ...history.HistoryEventOption) *history.Event {
	return history.NewPendingEvent(e.clock.Now(), eventType, attributes, opts...)
}
