package test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/hirepipe/interviewflow/backend"
	"github.com/hirepipe/interviewflow/backend/history"
	"github.com/hirepipe/interviewflow/core"
	"github.com/hirepipe/interviewflow/internal/workflowerrors"
)

// BackendTest is a conformance suite run against every store implementation.
func BackendTest(t *testing.T, setup func() backend.Backend, teardown func(b backend.Backend)) {
	tests := []struct {
		name string
		f    func(t *testing.T, ctx context.Context, b backend.Backend)
	}{
		{
			name: "GetWorkflowTask_ReturnsNilWhenNoTask",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				task, err := b.GetWorkflowTask(ctx)
				require.NoError(t, err)
				require.Nil(t, task)
			},
		},
		{
			name: "GetActivityTask_ReturnsNilWhenNoTask",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				task, err := b.GetActivityTask(ctx)
				require.NoError(t, err)
				require.Nil(t, task)
			},
		},
		{
			name: "CreateWorkflowInstance_DoesNotError",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())

				err := b.CreateWorkflowInstance(ctx, instance, startedEvent())
				require.NoError(t, err)
			},
		},
		{
			name: "CreateWorkflowInstance_SameInstanceIDReturnsAlreadyExists",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				instanceID := uuid.NewString()

				err := b.CreateWorkflowInstance(ctx, core.NewWorkflowInstance(instanceID, uuid.NewString()), startedEvent())
				require.NoError(t, err)

				err = b.CreateWorkflowInstance(ctx, core.NewWorkflowInstance(instanceID, uuid.NewString()), startedEvent())
				require.ErrorIs(t, err, backend.ErrInstanceAlreadyExists)
			},
		},
		{
			name: "GetWorkflowInstance_NotFound",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				_, err := b.GetWorkflowInstance(ctx, uuid.NewString())
				require.ErrorIs(t, err, backend.ErrInstanceNotFound)
			},
		},
		{
			name: "GetWorkflowInstance_ReturnsActiveInstance",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
				require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startedEvent()))

				s, err := b.GetWorkflowInstance(ctx, instance.InstanceID)
				require.NoError(t, err)
				require.Equal(t, core.WorkflowInstanceStateActive, s.State)
				require.Equal(t, instance.InstanceID, s.Instance.InstanceID)
				require.Nil(t, s.CompletedAt)
				require.Nil(t, s.LastStatus)
			},
		},
		{
			name: "GetWorkflowTask_ReturnsTask",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
				require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startedEvent()))

				task, err := b.GetWorkflowTask(ctx)
				require.NoError(t, err)
				require.NotNil(t, task)
				require.Equal(t, instance.InstanceID, task.WorkflowInstance.InstanceID)
				require.Len(t, task.NewEvents, 1)
				require.Equal(t, history.EventType_WorkflowExecutionStarted, task.NewEvents[0].Type)
				require.Equal(t, int64(0), task.LastSequenceID)
			},
		},
		{
			name: "GetWorkflowTask_LocksInstance",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
				require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startedEvent()))

				task, err := b.GetWorkflowTask(ctx)
				require.NoError(t, err)
				require.NotNil(t, task)

				// The only instance is locked, so there is no second task
				task, err = b.GetWorkflowTask(ctx)
				require.NoError(t, err)
				require.Nil(t, task)
			},
		},
		{
			name: "CompleteWorkflowTask_AppendsHistory",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
				require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startedEvent()))

				task, err := b.GetWorkflowTask(ctx)
				require.NoError(t, err)
				require.NotNil(t, task)

				executed := sequenced(task.NewEvents, task.LastSequenceID)
				err = b.CompleteWorkflowTask(ctx, task, core.WorkflowInstanceStateActive, executed, nil, nil, nil)
				require.NoError(t, err)

				h, err := b.GetWorkflowInstanceHistory(ctx, instance, nil)
				require.NoError(t, err)
				require.Len(t, h, 1)
				require.Equal(t, history.EventType_WorkflowExecutionStarted, h[0].Type)
				require.Equal(t, int64(1), h[0].SequenceID)

				// All pending events were handled, nothing left to do
				task, err = b.GetWorkflowTask(ctx)
				require.NoError(t, err)
				require.Nil(t, task)
			},
		},
		{
			name: "CompleteWorkflowTask_StaleTaskReturnsVersionConflict",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
				require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startedEvent()))

				task, err := b.GetWorkflowTask(ctx)
				require.NoError(t, err)
				require.NotNil(t, task)

				executed := sequenced(task.NewEvents, task.LastSequenceID)
				require.NoError(t, b.CompleteWorkflowTask(ctx, task, core.WorkflowInstanceStateActive, executed, nil, nil, nil))

				// The history moved on, completing the same task again must fail
				err = b.CompleteWorkflowTask(ctx, task, core.WorkflowInstanceStateActive, executed, nil, nil, nil)
				require.ErrorIs(t, err, backend.ErrVersionConflict)
			},
		},
		{
			name: "CompleteWorkflowTask_FinishedInstanceRecordsResult",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
				require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startedEvent()))

				task, err := b.GetWorkflowTask(ctx)
				require.NoError(t, err)
				require.NotNil(t, task)

				finished := history.NewPendingEvent(time.Now(), history.EventType_WorkflowExecutionFinished, &history.ExecutionCompletedAttributes{
					Result: []byte(`"done"`),
				})

				executed := sequenced(append(task.NewEvents, finished), task.LastSequenceID)
				require.NoError(t, b.CompleteWorkflowTask(ctx, task, core.WorkflowInstanceStateFinished, executed, nil, nil, nil))

				s, err := b.GetWorkflowInstance(ctx, instance.InstanceID)
				require.NoError(t, err)
				require.Equal(t, core.WorkflowInstanceStateFinished, s.State)
				require.NotNil(t, s.CompletedAt)
				require.Equal(t, []byte(`"done"`), []byte(s.Result))
				require.Nil(t, s.Error)

				state, err := b.GetWorkflowInstanceState(ctx, instance)
				require.NoError(t, err)
				require.Equal(t, core.WorkflowInstanceStateFinished, state)
			},
		},
		{
			name: "CompleteWorkflowTask_FailedInstanceRecordsError",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
				require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startedEvent()))

				task, err := b.GetWorkflowTask(ctx)
				require.NoError(t, err)
				require.NotNil(t, task)

				finished := history.NewPendingEvent(time.Now(), history.EventType_WorkflowExecutionFinished, &history.ExecutionCompletedAttributes{
					Error: &workflowerrors.Error{Type: "Error", Message: "something broke"},
				})

				executed := sequenced(append(task.NewEvents, finished), task.LastSequenceID)
				require.NoError(t, b.CompleteWorkflowTask(ctx, task, core.WorkflowInstanceStateFinished, executed, nil, nil, nil))

				s, err := b.GetWorkflowInstance(ctx, instance.InstanceID)
				require.NoError(t, err)
				require.NotNil(t, s.Error)
				require.Equal(t, "something broke", s.Error.Message)
			},
		},
		{
			name: "SignalWorkflow_NonExistentInstanceReturnsNotFound",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				err := b.SignalWorkflow(ctx, uuid.NewString(), signalEvent("test", nil))
				require.ErrorIs(t, err, backend.ErrInstanceNotFound)
			},
		},
		{
			name: "SignalWorkflow_DeliversEvent",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
				require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startedEvent()))

				err := b.SignalWorkflow(ctx, instance.InstanceID, signalEvent("candidate-confirmation", []byte(`{"confirmed":true}`)))
				require.NoError(t, err)

				task, err := b.GetWorkflowTask(ctx)
				require.NoError(t, err)
				require.NotNil(t, task)
				require.Len(t, task.NewEvents, 2)
				require.Equal(t, history.EventType_SignalReceived, task.NewEvents[1].Type)

				a := task.NewEvents[1].Attributes.(*history.SignalReceivedAttributes)
				require.Equal(t, "candidate-confirmation", a.Name)
			},
		},
		{
			name: "CompleteWorkflowTask_FutureTimerIsNotDue",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
				require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startedEvent()))

				task, err := b.GetWorkflowTask(ctx)
				require.NoError(t, err)
				require.NotNil(t, task)

				timerEvent := history.NewPendingEvent(
					time.Now(),
					history.EventType_TimerFired,
					&history.TimerFiredAttributes{At: time.Now().Add(2 * time.Hour)},
					history.ScheduleEventID(1),
					history.VisibleAt(time.Now().Add(2*time.Hour)),
				)

				executed := sequenced(task.NewEvents, task.LastSequenceID)
				require.NoError(t, b.CompleteWorkflowTask(
					ctx, task, core.WorkflowInstanceStateActive, executed, nil, []*history.Event{timerEvent}, nil))

				// The timer is not due yet, so there is no task
				task, err = b.GetWorkflowTask(ctx)
				require.NoError(t, err)
				require.Nil(t, task)
			},
		},
		{
			name: "CompleteWorkflowTask_ElapsedTimerBecomesDue",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
				require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startedEvent()))

				task, err := b.GetWorkflowTask(ctx)
				require.NoError(t, err)
				require.NotNil(t, task)

				timerEvent := history.NewPendingEvent(
					time.Now(),
					history.EventType_TimerFired,
					&history.TimerFiredAttributes{At: time.Now().Add(-time.Second)},
					history.ScheduleEventID(1),
					history.VisibleAt(time.Now().Add(-time.Second)),
				)

				executed := sequenced(task.NewEvents, task.LastSequenceID)
				require.NoError(t, b.CompleteWorkflowTask(
					ctx, task, core.WorkflowInstanceStateActive, executed, nil, []*history.Event{timerEvent}, nil))

				task, err = b.GetWorkflowTask(ctx)
				require.NoError(t, err)
				require.NotNil(t, task)
				require.Len(t, task.NewEvents, 1)
				require.Equal(t, history.EventType_TimerFired, task.NewEvents[0].Type)
			},
		},
		{
			name: "ActivityTask_ScheduleLockRetryComplete",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
				require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startedEvent()))

				task, err := b.GetWorkflowTask(ctx)
				require.NoError(t, err)
				require.NotNil(t, task)

				activityEvent := history.NewPendingEvent(
					time.Now(),
					history.EventType_ActivityScheduled,
					&history.ActivityScheduledAttributes{Name: "send-calendar-invitation"},
					history.ScheduleEventID(1),
				)

				executed := sequenced(task.NewEvents, task.LastSequenceID)
				require.NoError(t, b.CompleteWorkflowTask(
					ctx, task, core.WorkflowInstanceStateActive, executed, []*history.Event{activityEvent}, nil, nil))

				at, err := b.GetActivityTask(ctx)
				require.NoError(t, err)
				require.NotNil(t, at)
				require.Equal(t, 1, at.Attempt)
				require.Equal(t, instance.InstanceID, at.WorkflowInstance.InstanceID)

				a := at.Event.Attributes.(*history.ActivityScheduledAttributes)
				require.Equal(t, "send-calendar-invitation", a.Name)

				// The task is locked, there is no second one
				second, err := b.GetActivityTask(ctx)
				require.NoError(t, err)
				require.Nil(t, second)

				// Release for a delayed retry
				require.NoError(t, b.RetryActivityTask(ctx, at, time.Now().Add(time.Hour)))

				// The backoff has not elapsed yet
				second, err = b.GetActivityTask(ctx)
				require.NoError(t, err)
				require.Nil(t, second)
			},
		},
		{
			name: "ActivityTask_RetryIncrementsAttempt",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
				require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startedEvent()))

				task, err := b.GetWorkflowTask(ctx)
				require.NoError(t, err)
				require.NotNil(t, task)

				activityEvent := history.NewPendingEvent(
					time.Now(),
					history.EventType_ActivityScheduled,
					&history.ActivityScheduledAttributes{Name: "send-reminder-email"},
					history.ScheduleEventID(1),
				)

				executed := sequenced(task.NewEvents, task.LastSequenceID)
				require.NoError(t, b.CompleteWorkflowTask(
					ctx, task, core.WorkflowInstanceStateActive, executed, []*history.Event{activityEvent}, nil, nil))

				at, err := b.GetActivityTask(ctx)
				require.NoError(t, err)
				require.NotNil(t, at)
				require.Equal(t, 1, at.Attempt)

				// Immediately due retry
				require.NoError(t, b.RetryActivityTask(ctx, at, time.Now().Add(-time.Second)))

				at, err = b.GetActivityTask(ctx)
				require.NoError(t, err)
				require.NotNil(t, at)
				require.Equal(t, 2, at.Attempt)

				// Complete and verify the result is delivered to the instance
				result := history.NewPendingEvent(
					time.Now(),
					history.EventType_ActivityCompleted,
					&history.ActivityCompletedAttributes{Result: []byte(`true`), Attempts: 2},
					history.ScheduleEventID(at.Event.ScheduleEventID),
				)
				require.NoError(t, b.CompleteActivityTask(ctx, at, result))

				wt, err := b.GetWorkflowTask(ctx)
				require.NoError(t, err)
				require.NotNil(t, wt)
				require.Len(t, wt.NewEvents, 1)
				require.Equal(t, history.EventType_ActivityCompleted, wt.NewEvents[0].Type)
			},
		},
		{
			name: "StatusSnapshots_LastAndHistory",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
				require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startedEvent()))

				task, err := b.GetWorkflowTask(ctx)
				require.NoError(t, err)
				require.NotNil(t, task)

				snapshots := []*backend.StatusSnapshot{
					{InstanceID: instance.InstanceID, Seq: 1, Status: "Started", Timestamp: time.Now()},
					{InstanceID: instance.InstanceID, Seq: 2, Status: "AwaitingConfirmation", Fields: map[string]any{"candidate": "jo@example.com"}, Timestamp: time.Now()},
				}

				executed := sequenced(task.NewEvents, task.LastSequenceID)
				require.NoError(t, b.CompleteWorkflowTask(
					ctx, task, core.WorkflowInstanceStateActive, executed, nil, nil, snapshots))

				s, err := b.GetWorkflowInstance(ctx, instance.InstanceID)
				require.NoError(t, err)
				require.NotNil(t, s.LastStatus)
				require.Equal(t, "AwaitingConfirmation", s.LastStatus.Status)
				require.Equal(t, "jo@example.com", s.LastStatus.Fields["candidate"])

				h, err := b.GetStatusHistory(ctx, instance.InstanceID)
				require.NoError(t, err)
				require.Len(t, h, 2)
				require.Equal(t, "Started", h[0].Status)
				require.Equal(t, "AwaitingConfirmation", h[1].Status)
			},
		},
		{
			name: "ListWorkflowInstances_NewestFirst",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				first := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
				second := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
				require.NoError(t, b.CreateWorkflowInstance(ctx, first, startedEvent()))
				require.NoError(t, b.CreateWorkflowInstance(ctx, second, startedEvent()))

				instances, err := b.ListWorkflowInstances(ctx, "", 10)
				require.NoError(t, err)
				require.GreaterOrEqual(t, len(instances), 2)
				require.Equal(t, second.InstanceID, instances[0].Instance.InstanceID)
				require.Equal(t, first.InstanceID, instances[1].Instance.InstanceID)

				// Pagination continues after the given instance
				instances, err = b.ListWorkflowInstances(ctx, second.InstanceID, 1)
				require.NoError(t, err)
				require.Len(t, instances, 1)
				require.Equal(t, first.InstanceID, instances[0].Instance.InstanceID)
			},
		},
		{
			name: "GetStats_CountsWork",
			f: func(t *testing.T, ctx context.Context, b backend.Backend) {
				instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
				require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startedEvent()))

				s, err := b.GetStats(ctx)
				require.NoError(t, err)
				require.GreaterOrEqual(t, s.ActiveWorkflowInstances, int64(1))
				require.GreaterOrEqual(t, s.PendingWorkflowTasks, int64(1))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := setup()
			ctx := context.Background()

			t.Cleanup(func() {
				if teardown != nil {
					teardown(b)
				}

				b.Close()
			})

			tt.f(t, ctx, b)
		})
	}
}

func startedEvent() *history.Event {
	return history.NewPendingEvent(time.Now(), history.EventType_WorkflowExecutionStarted, &history.ExecutionStartedAttributes{
		Name: "interview",
	})
}

func signalEvent(name string, arg []byte) *history.Event {
	return history.NewPendingEvent(time.Now(), history.EventType_SignalReceived, &history.SignalReceivedAttributes{
		Name: name,
		Arg:  arg,
	})
}

// sequenced assigns sequence ids to executed events the way the executor does
// before they are appended to the history.
func sequenced(events []*history.Event, lastSequenceID int64) []*history.Event {
	for i, e := range events {
		e.SequenceID = lastSequenceID + int64(i) + 1
	}

	return events
}
