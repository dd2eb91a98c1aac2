package workflowstate

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hirepipe/interviewflow/backend/converter"
	"github.com/hirepipe/interviewflow/backend/history"
	"github.com/hirepipe/interviewflow/core"
)

func newState(t *testing.T) *WfState {
	t.Helper()
	return NewWfState(core.NewWorkflowInstance("i", "e"), converter.DefaultConverter, slog.Default())
}

func apply(t *testing.T, s *WfState, events ...*history.Event) {
	t.Helper()
	for _, e := range events {
		require.NoError(t, s.ApplyEvent(e))
	}
}

func Test_WfState_ScheduleEventIDsAreSequential(t *testing.T) {
	s := newState(t)

	require.EqualValues(t, 1, s.NextScheduleEventID())
	require.EqualValues(t, 2, s.NextScheduleEventID())
	require.EqualValues(t, 3, s.NextScheduleEventID())
}

func Test_WfState_TaskStartedSetsNow(t *testing.T) {
	s := newState(t)

	at := time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC)
	apply(t, s, history.NewPendingEvent(at, history.EventType_WorkflowTaskStarted,
		&history.WorkflowTaskStartedAttributes{}))

	require.Equal(t, at, s.Now())
}

func Test_WfState_SignalsConsumedInArrivalOrder(t *testing.T) {
	s := newState(t)

	now := time.Now()
	apply(t, s,
		history.NewPendingEvent(now, history.EventType_SignalReceived,
			&history.SignalReceivedAttributes{Name: "go", Arg: []byte(`"first"`)}),
		history.NewPendingEvent(now, history.EventType_SignalReceived,
			&history.SignalReceivedAttributes{Name: "go", Arg: []byte(`"second"`)}),
	)

	sig, ok := s.PeekSignal("go")
	require.True(t, ok)
	require.Equal(t, `"first"`, string(sig.Arg))

	s.ConsumeSignal("go")

	sig, ok = s.PeekSignal("go")
	require.True(t, ok)
	require.Equal(t, `"second"`, string(sig.Arg))

	s.ConsumeSignal("go")

	_, ok = s.PeekSignal("go")
	require.False(t, ok)
}

func Test_WfState_OrderDecidesSignalTimerRace(t *testing.T) {
	s := newState(t)

	now := time.Now()
	apply(t, s,
		history.NewPendingEvent(now, history.EventType_SignalReceived,
			&history.SignalReceivedAttributes{Name: "go", Arg: []byte(`"x"`)}),
		history.NewPendingEvent(now, history.EventType_TimerFired,
			&history.TimerFiredAttributes{ScheduledAt: now, At: now},
			history.ScheduleEventID(1)),
	)

	sig, ok := s.PeekSignal("go")
	require.True(t, ok)

	timer, ok := s.TimerResolution(1)
	require.True(t, ok)

	// The signal arrived first
	require.Less(t, sig.Order, timer.Order)
}

func Test_WfState_ReplayFlagFlipsOnFreshResolution(t *testing.T) {
	s := newState(t)

	now := time.Now()

	// Recorded history: one completed activity
	apply(t, s, history.NewPendingEvent(now, history.EventType_ActivityCompleted,
		&history.ActivityCompletedAttributes{Result: []byte(`"a"`), Attempts: 1},
		history.ScheduleEventID(1)))

	s.MarkHistoryEnd()

	// New event for this task
	apply(t, s, history.NewPendingEvent(now, history.EventType_ActivityCompleted,
		&history.ActivityCompletedAttributes{Result: []byte(`"b"`), Attempts: 1},
		history.ScheduleEventID(2)))

	require.True(t, s.Replaying())

	_, ok := s.ActivityResolution(1)
	require.True(t, ok)
	require.True(t, s.Replaying(), "consuming a recorded resolution stays in replay")

	_, ok = s.ActivityResolution(2)
	require.True(t, ok)
	require.False(t, s.Replaying(), "consuming a fresh resolution leaves replay")
}

func Test_WfState_EmptyHistoryIsNotReplaying(t *testing.T) {
	s := newState(t)

	s.MarkHistoryEnd()

	require.False(t, s.Replaying())
}

func Test_WfState_StatusTracking(t *testing.T) {
	s := newState(t)

	now := time.Now()
	apply(t, s,
		history.NewPendingEvent(now, history.EventType_StatusSet,
			&history.StatusSetAttributes{Status: "Started"},
			history.ScheduleEventID(1)),
		history.NewPendingEvent(now, history.EventType_StatusSet,
			&history.StatusSetAttributes{Status: "AwaitingConfirmation"},
			history.ScheduleEventID(2)),
	)

	require.Equal(t, 2, s.StatusCount())
	require.True(t, s.StatusRecorded(1))
	require.True(t, s.StatusRecorded(2))
	require.False(t, s.StatusRecorded(3))
}

func Test_WfState_UnknownEventTypeIsAnError(t *testing.T) {
	s := newState(t)

	err := s.ApplyEvent(&history.Event{Type: history.EventType(99)})
	require.Error(t, err)
}
