package executor_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/hirepipe/interviewflow/backend"
	"github.com/hirepipe/interviewflow/backend/converter"
	"github.com/hirepipe/interviewflow/backend/history"
	"github.com/hirepipe/interviewflow/core"
	"github.com/hirepipe/interviewflow/registry"
	wf "github.com/hirepipe/interviewflow/workflow"
	"github.com/hirepipe/interviewflow/workflow/executor"
)

type testHistoryProvider struct {
	history []*history.Event
}

func (p *testHistoryProvider) GetWorkflowInstanceHistory(
	ctx context.Context, instance *core.WorkflowInstance, lastSequenceID *int64,
) ([]*history.Event, error) {
	return p.history, nil
}

// echoWait schedules one activity, then races an external event against a
// one hour timeout.
func echoWait(ctx *wf.Context, input string) (string, error) {
	echoed, err := wf.ExecuteActivity[string](ctx, "Echo", input)
	if err != nil {
		return "", err
	}

	arg, err := wf.WaitForEvent[string](ctx, "go", time.Hour)
	if err != nil {
		if errors.Is(err, wf.ErrTimedOut) {
			return echoed + ":timeout", nil
		}

		return "", err
	}

	return echoed + ":event:" + arg, nil
}

type fixture struct {
	t        *testing.T
	clock    *clock.Mock
	cv       converter.Converter
	registry *registry.Registry
	instance *core.WorkflowInstance
	provider *testHistoryProvider
}

func newFixture(t *testing.T) *fixture {
	mc := clock.NewMock()
	mc.Set(time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC))

	r := registry.New()
	require.NoError(t, registry.RegisterWorkflow(r, "echoWait", echoWait))

	return &fixture{
		t:        t,
		clock:    mc,
		cv:       converter.DefaultConverter,
		registry: r,
		instance: core.NewWorkflowInstance("instance-1", "execution-1"),
		provider: &testHistoryProvider{},
	}
}

func (f *fixture) newExecutor() executor.WorkflowExecutor {
	e, err := executor.NewExecutor(
		slog.Default(),
		noop.NewTracerProvider().Tracer("test"),
		f.registry,
		f.cv,
		f.provider,
		f.instance,
		f.clock,
	)
	require.NoError(f.t, err)
	return e
}

func (f *fixture) startedEvent(input string) *history.Event {
	in, err := f.cv.To(input)
	require.NoError(f.t, err)

	return history.NewPendingEvent(f.clock.Now(), history.EventType_WorkflowExecutionStarted,
		&history.ExecutionStartedAttributes{Name: "echoWait", Input: in})
}

func (f *fixture) activityCompleted(scheduleEventID int64, result string) *history.Event {
	r, err := f.cv.To(result)
	require.NoError(f.t, err)

	return history.NewPendingEvent(f.clock.Now(), history.EventType_ActivityCompleted,
		&history.ActivityCompletedAttributes{Result: r, Attempts: 1},
		history.ScheduleEventID(scheduleEventID))
}

func (f *fixture) signal(name, arg string) *history.Event {
	a, err := f.cv.To(arg)
	require.NoError(f.t, err)

	return history.NewPendingEvent(f.clock.Now(), history.EventType_SignalReceived,
		&history.SignalReceivedAttributes{Name: name, Arg: a})
}

func (f *fixture) timerFired(scheduleEventID int64, at time.Time) *history.Event {
	return history.NewPendingEvent(f.clock.Now(), history.EventType_TimerFired,
		&history.TimerFiredAttributes{ScheduledAt: f.clock.Now(), At: at},
		history.ScheduleEventID(scheduleEventID))
}

func (f *fixture) task(lastSequenceID int64, newEvents ...*history.Event) *backend.WorkflowTask {
	return &backend.WorkflowTask{
		ID:                    fmt.Sprintf("task-%d", lastSequenceID),
		WorkflowInstance:      f.instance,
		WorkflowInstanceState: core.WorkflowInstanceStateActive,
		LastSequenceID:        lastSequenceID,
		NewEvents:             newEvents,
	}
}

// runTask executes the task and appends the executed events to the provider,
// mirroring what the store does on checkpoint.
func (f *fixture) runTask(e executor.WorkflowExecutor, t *backend.WorkflowTask) *executor.ExecutionResult {
	result, err := e.ExecuteTask(context.Background(), t)
	require.NoError(f.t, err)

	f.provider.history = append(f.provider.history, result.Executed...)

	return result
}

func lastSeq(f *fixture) int64 {
	if len(f.provider.history) == 0 {
		return 0
	}
	return f.provider.history[len(f.provider.history)-1].SequenceID
}

func Test_Executor_SchedulesFirstActivity(t *testing.T) {
	f := newFixture(t)
	e := f.newExecutor()

	result := f.runTask(e, f.task(0, f.startedEvent("hi")))

	require.Equal(t, core.WorkflowInstanceStateActive, result.State)
	require.Len(t, result.ActivityEvents, 1)

	a := result.ActivityEvents[0].Attributes.(*history.ActivityScheduledAttributes)
	require.Equal(t, "Echo", a.Name)
	require.EqualValues(t, 1, result.ActivityEvents[0].ScheduleEventID)

	// TaskStarted, ExecutionStarted, ActivityScheduled
	require.Len(t, result.Executed, 3)
	require.EqualValues(t, 1, result.Executed[0].SequenceID)
	require.EqualValues(t, 3, result.Executed[2].SequenceID)
}

func Test_Executor_ResumesAfterActivityCompletion(t *testing.T) {
	f := newFixture(t)
	e := f.newExecutor()

	f.runTask(e, f.task(0, f.startedEvent("hi")))

	result := f.runTask(e, f.task(lastSeq(f), f.activityCompleted(1, "hi")))

	require.Equal(t, core.WorkflowInstanceStateActive, result.State)
	require.Empty(t, result.ActivityEvents)

	// The event wait schedules its timeout timer
	require.Len(t, result.TimerEvents, 1)
	require.Equal(t, f.clock.Now().Add(time.Hour),
		result.TimerEvents[0].Attributes.(*history.TimerFiredAttributes).At)
}

// A fresh executor must reach the same decisions from the persisted history
// alone.
func Test_Executor_ReplayIsDeterministic(t *testing.T) {
	f := newFixture(t)

	e := f.newExecutor()
	f.runTask(e, f.task(0, f.startedEvent("hi")))
	first := f.runTask(e, f.task(lastSeq(f), f.activityCompleted(1, "hi")))

	// New executor, no in-memory state; history comes from the provider
	replayed, err := f.newExecutor().ExecuteTask(context.Background(),
		f.task(lastSeq(f), f.signal("go", "now")))
	require.NoError(t, err)

	require.Equal(t, core.WorkflowInstanceStateFinished, replayed.State)

	// No activity or timer is scheduled again during replay
	require.Empty(t, replayed.ActivityEvents)
	require.Empty(t, replayed.TimerEvents)
	require.Empty(t, first.ActivityEvents)

	finished := replayed.Executed[len(replayed.Executed)-1]
	require.Equal(t, history.EventType_WorkflowExecutionFinished, finished.Type)

	var r string
	require.NoError(t, f.cv.From(finished.Attributes.(*history.ExecutionCompletedAttributes).Result, &r))
	require.Equal(t, "hi:event:now", r)
}

func Test_Executor_EventBeatsTimeout(t *testing.T) {
	f := newFixture(t)
	e := f.newExecutor()

	f.runTask(e, f.task(0, f.startedEvent("hi")))
	f.runTask(e, f.task(lastSeq(f), f.activityCompleted(1, "hi")))

	// Both the signal and the timer arrive in one task, signal first
	result := f.runTask(e, f.task(lastSeq(f),
		f.signal("go", "now"),
		f.timerFired(2, f.clock.Now().Add(time.Hour))))

	require.Equal(t, core.WorkflowInstanceStateFinished, result.State)

	finished := result.Executed[len(result.Executed)-1]
	var r string
	require.NoError(t, f.cv.From(finished.Attributes.(*history.ExecutionCompletedAttributes).Result, &r))
	require.Equal(t, "hi:event:now", r)
}

func Test_Executor_TimeoutBeatsLateEvent(t *testing.T) {
	f := newFixture(t)
	e := f.newExecutor()

	f.runTask(e, f.task(0, f.startedEvent("hi")))
	f.runTask(e, f.task(lastSeq(f), f.activityCompleted(1, "hi")))

	// Timer fires before the signal arrives
	result := f.runTask(e, f.task(lastSeq(f),
		f.timerFired(2, f.clock.Now().Add(time.Hour)),
		f.signal("go", "too late")))

	require.Equal(t, core.WorkflowInstanceStateFinished, result.State)

	finished := result.Executed[len(result.Executed)-1]
	var r string
	require.NoError(t, f.cv.From(finished.Attributes.(*history.ExecutionCompletedAttributes).Result, &r))
	require.Equal(t, "hi:timeout", r)
}

func Test_Executor_DiscardsEventsForFinishedInstance(t *testing.T) {
	f := newFixture(t)
	e := f.newExecutor()

	task := f.task(0, f.signal("go", "late"))
	task.WorkflowInstanceState = core.WorkflowInstanceStateFinished

	result, err := e.ExecuteTask(context.Background(), task)
	require.NoError(t, err)

	require.Equal(t, core.WorkflowInstanceStateFinished, result.State)
	require.Empty(t, result.Executed)
	require.Empty(t, result.ActivityEvents)
}

func Test_Executor_WorkflowPanicFailsInstance(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, registry.RegisterWorkflow(f.registry, "panicky",
		func(ctx *wf.Context, input string) (string, error) {
			panic("boom")
		}))

	in, err := f.cv.To("x")
	require.NoError(t, err)
	started := history.NewPendingEvent(f.clock.Now(), history.EventType_WorkflowExecutionStarted,
		&history.ExecutionStartedAttributes{Name: "panicky", Input: in})

	e := f.newExecutor()
	result := f.runTask(e, f.task(0, started))

	require.Equal(t, core.WorkflowInstanceStateFinished, result.State)

	finished := result.Executed[len(result.Executed)-1]
	a := finished.Attributes.(*history.ExecutionCompletedAttributes)
	require.NotNil(t, a.Error)
	require.Contains(t, a.Error.Message, "boom")
}

func Test_Executor_UnknownWorkflowFails(t *testing.T) {
	f := newFixture(t)

	in, err := f.cv.To("x")
	require.NoError(t, err)
	started := history.NewPendingEvent(f.clock.Now(), history.EventType_WorkflowExecutionStarted,
		&history.ExecutionStartedAttributes{Name: "not-registered", Input: in})

	e := f.newExecutor()
	result := f.runTask(e, f.task(0, started))

	require.Equal(t, core.WorkflowInstanceStateFinished, result.State)

	a := result.Executed[len(result.Executed)-1].Attributes.(*history.ExecutionCompletedAttributes)
	require.NotNil(t, a.Error)
}
