package workflowstate

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hirepipe/interviewflow/backend/converter"
	"github.com/hirepipe/interviewflow/backend/history"
	"github.com/hirepipe/interviewflow/backend/payload"
	"github.com/hirepipe/interviewflow/core"
	"github.com/hirepipe/interviewflow/internal/command"
	"github.com/hirepipe/interviewflow/internal/workflowerrors"
)

// ActivityResolution is the recorded terminal outcome of one activity.
type ActivityResolution struct {
	Result   payload.Payload
	Err      *workflowerrors.Error
	Attempts int

	// Order is the position of the resolving event in the instance's overall
	// resolution order. Races between events and timers are decided by it.
	Order int
}

// TimerResolution records that a timer fired.
type TimerResolution struct {
	At    time.Time
	Order int
}

// SignalResolution is one buffered external event delivery.
type SignalResolution struct {
	Arg   payload.Payload
	Order int
}

// WfState is the deterministic interpreter state for a single execution slice
// of one workflow instance. It is built by applying the instance's full
// history plus the new events of the current task, then consulted by the
// workflow primitives while the workflow function runs from the top.
type WfState struct {
	instance  *core.WorkflowInstance
	converter converter.Converter
	logger    *slog.Logger

	startAttributes *history.ExecutionStartedAttributes

	// now is the timestamp of the latest workflow task start. All
	// deterministic time in the workflow derives from it.
	now time.Time

	order        int
	historyOrder int

	scheduled         map[int64]history.EventType
	activityResults   map[int64]*ActivityResolution
	timersFired       map[int64]*TimerResolution
	signals           map[string][]*SignalResolution
	signalsConsumed   map[string]int
	statusSet         map[int64]bool
	statusCount       int
	replaying         bool
	nextScheduleEventID int64

	commands []*command.Command
}

func NewWfState(instance *core.WorkflowInstance, cv converter.Converter, logger *slog.Logger) *WfState {
	return &WfState{
		instance:        instance,
		converter:       cv,
		logger:          logger,
		scheduled:       map[int64]history.EventType{},
		activityResults: map[int64]*ActivityResolution{},
		timersFired:     map[int64]*TimerResolution{},
		signals:         map[string][]*SignalResolution{},
		signalsConsumed: map[string]int{},
		statusSet:       map[int64]bool{},
	}
}

func (s *WfState) Instance() *core.WorkflowInstance {
	return s.instance
}

func (s *WfState) Converter() converter.Converter {
	return s.converter
}

func (s *WfState) Logger() *slog.Logger {
	return s.logger
}

func (s *WfState) StartAttributes() *history.ExecutionStartedAttributes {
	return s.startAttributes
}

func (s *WfState) Now() time.Time {
	return s.now
}

// ApplyEvent folds one history event into the interpreter state.
func (s *WfState) ApplyEvent(event *history.Event) error {
	switch event.Type {
	case history.EventType_WorkflowExecutionStarted:
		s.startAttributes = event.Attributes.(*history.ExecutionStartedAttributes)

	case history.EventType_WorkflowTaskStarted:
		s.now = event.Timestamp

	case history.EventType_ActivityScheduled, history.EventType_TimerScheduled:
		s.scheduled[event.ScheduleEventID] = event.Type

	case history.EventType_StatusSet:
		s.statusSet[event.ScheduleEventID] = true
		s.statusCount++

	case history.EventType_ActivityCompleted:
		a := event.Attributes.(*history.ActivityCompletedAttributes)
		s.order++
		s.activityResults[event.ScheduleEventID] = &ActivityResolution{
			Result:   a.Result,
			Attempts: a.Attempts,
			Order:    s.order,
		}

	case history.EventType_ActivityFailed:
		a := event.Attributes.(*history.ActivityFailedAttributes)
		s.order++
		s.activityResults[event.ScheduleEventID] = &ActivityResolution{
			Err:      a.Error,
			Attempts: a.Attempts,
			Order:    s.order,
		}

	case history.EventType_TimerFired:
		a := event.Attributes.(*history.TimerFiredAttributes)
		s.order++
		s.timersFired[event.ScheduleEventID] = &TimerResolution{
			At:    a.At,
			Order: s.order,
		}

	case history.EventType_SignalReceived:
		a := event.Attributes.(*history.SignalReceivedAttributes)
		s.order++
		s.signals[a.Name] = append(s.signals[a.Name], &SignalResolution{
			Arg:   a.Arg,
			Order: s.order,
		})

	case history.EventType_WorkflowExecutionFinished:
		// Terminal, nothing to track

	default:
		return fmt.Errorf("unknown event type %s", event.Type)
	}

	return nil
}

// MarkHistoryEnd records the boundary between prior history and the events of
// the current task. Resolutions beyond it are fresh progress, not replay.
func (s *WfState) MarkHistoryEnd() {
	s.historyOrder = s.order
	s.replaying = s.historyOrder > 0
}

func (s *WfState) Replaying() bool {
	return s.replaying
}

func (s *WfState) consumed(order int) {
	if order > s.historyOrder {
		s.replaying = false
	}
}

// NextScheduleEventID allocates the id for the next schedule event. Ids are
// assigned in primitive call order, which is what makes replay line up with
// the recorded history.
func (s *WfState) NextScheduleEventID() int64 {
	s.nextScheduleEventID++
	return s.nextScheduleEventID
}

func (s *WfState) Scheduled(scheduleEventID int64) bool {
	_, ok := s.scheduled[scheduleEventID]
	return ok
}

func (s *WfState) ActivityResolution(scheduleEventID int64) (*ActivityResolution, bool) {
	r, ok := s.activityResults[scheduleEventID]
	if ok {
		s.consumed(r.Order)
	}
	return r, ok
}

func (s *WfState) TimerResolution(scheduleEventID int64) (*TimerResolution, bool) {
	r, ok := s.timersFired[scheduleEventID]
	return r, ok
}

// PeekSignal returns the first unconsumed delivery for the given event name.
func (s *WfState) PeekSignal(name string) (*SignalResolution, bool) {
	i := s.signalsConsumed[name]
	buffered := s.signals[name]
	if i >= len(buffered) {
		return nil, false
	}

	return buffered[i], true
}

// ConsumeSignal marks the first unconsumed delivery for name as handled.
func (s *WfState) ConsumeSignal(name string) {
	i := s.signalsConsumed[name]
	if i < len(s.signals[name]) {
		s.consumed(s.signals[name][i].Order)
		s.signalsConsumed[name] = i + 1
	}
}

// ConsumeTimer marks a timer resolution as fresh progress when it resolved
// beyond the prior history.
func (s *WfState) ConsumeTimer(scheduleEventID int64) {
	if r, ok := s.timersFired[scheduleEventID]; ok {
		s.consumed(r.Order)
	}
}

func (s *WfState) StatusRecorded(scheduleEventID int64) bool {
	return s.statusSet[scheduleEventID]
}

// StatusCount is the number of status snapshots already recorded in history.
func (s *WfState) StatusCount() int {
	return s.statusCount
}

func (s *WfState) AddCommand(cmd *command.Command) {
	s.commands = append(s.commands, cmd)
}

func (s *WfState) Commands() []*command.Command {
	return s.commands
}
