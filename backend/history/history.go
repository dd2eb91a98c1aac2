package history

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

type EventType uint

const (
	_ EventType = iota

	EventType_WorkflowExecutionStarted
	EventType_WorkflowExecutionFinished

	EventType_WorkflowTaskStarted

	EventType_ActivityScheduled
	EventType_ActivityCompleted
	EventType_ActivityFailed

	EventType_TimerScheduled
	EventType_TimerFired

	EventType_SignalReceived

	EventType_StatusSet
)

func (et EventType) String() string {
	switch et {
	case EventType_WorkflowExecutionStarted:
		return "WorkflowExecutionStarted"
	case EventType_WorkflowExecutionFinished:
		return "WorkflowExecutionFinished"

	case EventType_WorkflowTaskStarted:
		return "WorkflowTaskStarted"

	case EventType_ActivityScheduled:
		return "ActivityScheduled"
	case EventType_ActivityCompleted:
		return "ActivityCompleted"
	case EventType_ActivityFailed:
		return "ActivityFailed"

	case EventType_TimerScheduled:
		return "TimerScheduled"
	case EventType_TimerFired:
		return "TimerFired"

	case EventType_SignalReceived:
		return "SignalReceived"

	case EventType_StatusSet:
		return "StatusSet"
	default:
		return "Unknown"
	}
}

type Event struct {
	// ID is a unique identifier for this event
	ID string `json:"id,omitempty"`

	Type EventType `json:"type,omitempty"`

	Timestamp time.Time `json:"timestamp,omitempty"`

	// SequenceID is the position of this event in the instance's history.
	// Assigned when the event is appended to the history.
	SequenceID int64 `json:"sequence_id,omitempty"`

	// ScheduleEventID correlates events belonging together. The schedule and
	// the completion/failure event of one activity share the same
	// ScheduleEventID, as do the schedule and fired event of one timer.
	ScheduleEventID int64 `json:"schedule_event_id,omitempty"`

	// Attributes are event type specific attributes
	Attributes interface{} `json:"attr,omitempty"`

	// VisibleAt delays delivery of a pending event. Timers are pending
	// TimerFired events with VisibleAt set to their deadline.
	VisibleAt *time.Time `json:"visible_at,omitempty"`
}

func (e *Event) String() string {
	return strconv.Itoa(int(e.Type))
}

type HistoryEventOption func(e *Event)

func ScheduleEventID(scheduleEventID int64) HistoryEventOption {
	return func(e *Event) {
		e.ScheduleEventID = scheduleEventID
	}
}

func VisibleAt(visibleAt time.Time) HistoryEventOption {
	return func(e *Event) {
		e.VisibleAt = &visibleAt
	}
}

// NewPendingEvent creates a history event which has not been assigned a
// sequence ID yet.
func NewPendingEvent(timestamp time.Time, eventType EventType, attributes interface{}, opts ...HistoryEventOption) *Event {
	e := &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Timestamp:  timestamp,
		Attributes: attributes,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}
