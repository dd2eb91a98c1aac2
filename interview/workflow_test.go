package interview_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/hirepipe/interviewflow/backend"
	"github.com/hirepipe/interviewflow/backend/sqlite"
	"github.com/hirepipe/interviewflow/client"
	"github.com/hirepipe/interviewflow/core"
	"github.com/hirepipe/interviewflow/interview"
	internal "github.com/hirepipe/interviewflow/internal/worker"
	"github.com/hirepipe/interviewflow/registry"
	"github.com/hirepipe/interviewflow/workflow/executor/cache"
)

// env drives workflow and activity tasks synchronously against an in-memory
// store so tests control time with a mock clock.
type env struct {
	t     *testing.T
	clock *clock.Mock
	b     backend.Backend
	c     *client.Client
	wtw   *internal.WorkflowTaskWorker
	atw   *internal.ActivityTaskWorker
}

func newEnv(t *testing.T, register func(r *registry.Registry)) *env {
	mc := clock.NewMock()
	mc.Set(time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC))

	b := sqlite.NewInMemoryBackend(sqlite.WithBackendOptions(
		backend.WithClock(mc),
		backend.WithStickyTimeout(0),
	))
	t.Cleanup(func() {
		require.NoError(t, b.Close())
	})

	r := registry.New()
	if register != nil {
		register(r)
	} else {
		require.NoError(t, interview.Register(r, interview.NewActivities(slog.Default())))
	}

	executorCache := cache.NewWorkflowExecutorLRUCache(b.Metrics(), 32, time.Minute)

	return &env{
		t:     t,
		clock: mc,
		b:     b,
		c:     client.New(b),
		wtw:   internal.NewWorkflowTaskWorker(b, r, executorCache, nil),
		atw:   internal.NewActivityTaskWorker(b, r, mc),
	}
}

// step executes a single due workflow or activity task. Returns false when
// nothing is due.
func (e *env) step(ctx context.Context) bool {
	if t, err := e.b.GetWorkflowTask(ctx); err == nil && t != nil {
		result, err := e.wtw.Execute(ctx, t)
		require.NoError(e.t, err)
		require.NoError(e.t, e.wtw.Complete(ctx, result, t))
		return true
	}

	if t, err := e.b.GetActivityTask(ctx); err == nil && t != nil {
		event, err := e.atw.Execute(ctx, t)
		require.NoError(e.t, err)
		require.NoError(e.t, e.atw.Complete(ctx, event, t))
		return true
	}

	return false
}

func (e *env) drain(ctx context.Context) int {
	steps := 0
	for e.step(ctx) {
		steps++
		require.Less(e.t, steps, 100, "task loop did not settle")
	}
	return steps
}

func (e *env) start(ctx context.Context, instanceID string) *core.WorkflowInstance {
	wfi, created, err := e.c.StartOrGet(ctx, instanceID, interview.WorkflowName, interview.Input{
		InterviewID:      instanceID,
		CandidateEmail:   "jo@example.com",
		InterviewerEmail: "sam@example.com",
		ScheduledTime:    e.clock.Now().Add(time.Hour),
	})
	require.NoError(e.t, err)
	require.True(e.t, created)
	return wfi
}

func (e *env) statuses(ctx context.Context, instanceID string) []string {
	snapshots, err := e.c.GetStatusHistory(ctx, instanceID)
	require.NoError(e.t, err)

	statuses := make([]string, len(snapshots))
	for i, s := range snapshots {
		statuses[i] = s.Status
	}
	return statuses
}

func Test_Interview_HappyPath(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	wfi := e.start(ctx, "interview-1")
	e.drain(ctx)

	s, err := e.c.GetInstance(ctx, wfi.InstanceID)
	require.NoError(t, err)
	require.Equal(t, core.WorkflowInstanceStateActive, s.State)
	require.NotNil(t, s.LastStatus)
	require.Equal(t, interview.StatusAwaitingConfirmation, s.LastStatus.Status)

	require.NoError(t, e.c.Raise(ctx, wfi.InstanceID, interview.EventCandidateConfirmation,
		interview.ConfirmationEvent{
			InterviewID:      wfi.InstanceID,
			Confirmed:        true,
			ConfirmationTime: e.clock.Now(),
		}))
	e.drain(ctx)

	s, err = e.c.GetInstance(ctx, wfi.InstanceID)
	require.NoError(t, err)
	require.Equal(t, interview.StatusInProgress, s.LastStatus.Status)

	require.NoError(t, e.c.Raise(ctx, wfi.InstanceID, interview.EventInterviewCompleted,
		interview.Result{
			InterviewID: wfi.InstanceID,
			Feedback:    "excellent work on system design",
			Responses: []interview.QuestionResponse{
				{Question: "Design a cache", Answer: "LRU with TTL", Quality: 4},
				{Question: "Concurrency", Answer: "Solid", Quality: 5},
				{Question: "Debugging", Answer: "Good", Quality: 4},
			},
			CompletionTime: e.clock.Now(),
		}))
	e.drain(ctx)

	s, err = e.c.GetInstance(ctx, wfi.InstanceID)
	require.NoError(t, err)
	require.Equal(t, core.WorkflowInstanceStateFinished, s.State)

	result, err := client.GetWorkflowResult[string](ctx, e.c, wfi, time.Second)
	require.NoError(t, err)
	require.Equal(t, "Interview completed successfully. Result: Passed", result)

	require.Equal(t, []string{
		interview.StatusStarted,
		interview.StatusAwaitingConfirmation,
		interview.StatusConfirmed,
		interview.StatusInProgress,
		interview.StatusCompleted,
	}, e.statuses(ctx, wfi.InstanceID))

	last, err := e.c.GetInstance(ctx, wfi.InstanceID)
	require.NoError(t, err)
	require.EqualValues(t, 4, last.LastStatus.Fields["Score"])
}

func Test_Interview_IdempotentStart(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	wfi := e.start(ctx, "interview-dup")
	e.drain(ctx)

	again, created, err := e.c.StartOrGet(ctx, "interview-dup", interview.WorkflowName, interview.Input{
		InterviewID: "interview-dup",
	})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, wfi.InstanceID, again.InstanceID)

	// No new work was scheduled by the duplicate start
	require.Zero(t, e.drain(ctx))

	instances, err := e.c.ListInstances(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, instances, 1)
}

func Test_Interview_TwoStageConfirmationTimeout(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	wfi := e.start(ctx, "interview-silent")
	e.drain(ctx)

	// First window elapses, a reminder goes out and a second wait begins
	e.clock.Add(2 * time.Hour)
	e.drain(ctx)

	s, err := e.c.GetInstance(ctx, wfi.InstanceID)
	require.NoError(t, err)
	require.Equal(t, core.WorkflowInstanceStateActive, s.State)
	require.Equal(t, interview.StatusReminderSent, s.LastStatus.Status)

	// Second window elapses without a response
	e.clock.Add(time.Hour)
	e.drain(ctx)

	s, err = e.c.GetInstance(ctx, wfi.InstanceID)
	require.NoError(t, err)
	require.Equal(t, core.WorkflowInstanceStateFinished, s.State)

	result, err := client.GetWorkflowResult[string](ctx, e.c, wfi, time.Second)
	require.NoError(t, err)
	require.Equal(t, interview.ResultCancelled, result)

	statuses := e.statuses(ctx, wfi.InstanceID)
	require.Contains(t, statuses, interview.StatusReminderSent)
	require.NotContains(t, statuses, interview.StatusConfirmed)
	require.NotContains(t, statuses, interview.StatusOverdue)
}

func Test_Interview_ReminderThenConfirmation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	wfi := e.start(ctx, "interview-late-yes")
	e.drain(ctx)

	e.clock.Add(2 * time.Hour)
	e.drain(ctx)

	// Candidate confirms within the post-reminder window
	e.clock.Add(30 * time.Minute)
	require.NoError(t, e.c.Raise(ctx, wfi.InstanceID, interview.EventCandidateConfirmation,
		interview.ConfirmationEvent{InterviewID: wfi.InstanceID, Confirmed: true, ConfirmationTime: e.clock.Now()}))
	e.drain(ctx)

	s, err := e.c.GetInstance(ctx, wfi.InstanceID)
	require.NoError(t, err)
	require.Equal(t, core.WorkflowInstanceStateActive, s.State)
	require.Equal(t, interview.StatusInProgress, s.LastStatus.Status)
}

func Test_Interview_Overdue(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	wfi := e.start(ctx, "interview-overdue")
	e.drain(ctx)

	require.NoError(t, e.c.Raise(ctx, wfi.InstanceID, interview.EventCandidateConfirmation,
		interview.ConfirmationEvent{InterviewID: wfi.InstanceID, Confirmed: true, ConfirmationTime: e.clock.Now()}))
	e.drain(ctx)

	e.clock.Add(3 * time.Hour)
	e.drain(ctx)

	s, err := e.c.GetInstance(ctx, wfi.InstanceID)
	require.NoError(t, err)
	require.Equal(t, core.WorkflowInstanceStateFinished, s.State)

	result, err := client.GetWorkflowResult[string](ctx, e.c, wfi, time.Second)
	require.NoError(t, err)
	require.Equal(t, interview.ResultIncomplete, result)

	statuses := e.statuses(ctx, wfi.InstanceID)
	require.Contains(t, statuses, interview.StatusOverdue)
	require.NotContains(t, statuses, interview.StatusCompleted)
}

func Test_Interview_LateEventAfterFinishIsDiscarded(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	wfi := e.start(ctx, "interview-late-event")
	e.drain(ctx)

	e.clock.Add(2 * time.Hour)
	e.drain(ctx)
	e.clock.Add(time.Hour)
	e.drain(ctx)

	s, err := e.c.GetInstance(ctx, wfi.InstanceID)
	require.NoError(t, err)
	require.Equal(t, core.WorkflowInstanceStateFinished, s.State)
	statusesBefore := e.statuses(ctx, wfi.InstanceID)

	// The confirmation arrives after the workflow already gave up
	require.NoError(t, e.c.Raise(ctx, wfi.InstanceID, interview.EventCandidateConfirmation,
		interview.ConfirmationEvent{InterviewID: wfi.InstanceID, Confirmed: true, ConfirmationTime: e.clock.Now()}))
	e.drain(ctx)

	s, err = e.c.GetInstance(ctx, wfi.InstanceID)
	require.NoError(t, err)
	require.Equal(t, core.WorkflowInstanceStateFinished, s.State)
	require.Equal(t, statusesBefore, e.statuses(ctx, wfi.InstanceID))
}

func Test_Interview_RaiseUnknownInstance(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	err := e.c.Raise(ctx, "no-such-interview", interview.EventCandidateConfirmation,
		interview.ConfirmationEvent{})
	require.ErrorIs(t, err, backend.ErrInstanceNotFound)
}

func Test_Interview_CalendarRetryExhaustion(t *testing.T) {
	ctx := context.Background()

	attempts := 0
	failures := 0

	e := newEnv(t, func(r *registry.Registry) {
		require.NoError(t, registry.RegisterWorkflow(r, interview.WorkflowName, interview.Workflow))

		require.NoError(t, registry.RegisterActivity(r, interview.ActivitySendCalendarInvitation,
			func(ctx context.Context, input interview.CalendarInput) (interview.CalendarResult, error) {
				attempts++
				return interview.CalendarResult{}, errors.New("smtp unavailable")
			}))

		require.NoError(t, registry.RegisterActivity(r, interview.ActivityHandleWorkflowFailure,
			func(ctx context.Context, input interview.FailureInput) (struct{}, error) {
				failures++
				return struct{}{}, nil
			}))
	})

	wfi := e.start(ctx, "interview-broken-smtp")
	e.drain(ctx)
	require.Equal(t, 1, attempts)

	// Fixed 30s backoff between attempts
	e.clock.Add(30 * time.Second)
	e.drain(ctx)
	require.Equal(t, 2, attempts)

	e.clock.Add(30 * time.Second)
	e.drain(ctx)

	require.Equal(t, 3, attempts)
	require.Equal(t, 1, failures)

	s, err := e.c.GetInstance(ctx, wfi.InstanceID)
	require.NoError(t, err)
	require.Equal(t, core.WorkflowInstanceStateFinished, s.State)
	require.Equal(t, interview.StatusFailed, s.LastStatus.Status)
	require.Contains(t, s.LastStatus.Fields["Error"], "smtp unavailable")

	_, err = client.GetWorkflowResult[string](ctx, e.c, wfi, time.Second)
	require.ErrorContains(t, err, "smtp unavailable")
}
