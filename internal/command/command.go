package command

import (
	"time"

	"github.com/hirepipe/interviewflow/backend/history"
	"github.com/hirepipe/interviewflow/backend/payload"
)

type Type int

const (
	Type_ScheduleActivity Type = iota
	Type_ScheduleTimer
	Type_SetStatus
)

func (t Type) String() string {
	switch t {
	case Type_ScheduleActivity:
		return "ScheduleActivity"
	case Type_ScheduleTimer:
		return "ScheduleTimer"
	case Type_SetStatus:
		return "SetStatus"
	default:
		return "Unknown"
	}
}

// Command is a side effect produced by one workflow execution slice. Commands
// are turned into history events when the workflow task is completed.
type Command struct {
	// ID is the schedule event id assigned when the producing primitive was
	// first reached.
	ID int64

	Type Type

	// ScheduleActivity
	Name        string
	Input       payload.Payload
	RetryPolicy history.RetryPolicy

	// ScheduleTimer
	At time.Time

	// SetStatus
	Status string
	Fields map[string]any
}

func ScheduleActivity(id int64, name string, input payload.Payload, retryPolicy history.RetryPolicy) *Command {
	return &Command{
		ID:          id,
		Type:        Type_ScheduleActivity,
		Name:        name,
		Input:       input,
		RetryPolicy: retryPolicy,
	}
}

func ScheduleTimer(id int64, at time.Time) *Command {
	return &Command{
		ID:   id,
		Type: Type_ScheduleTimer,
		At:   at,
	}
}

func SetStatus(id int64, status string, fields map[string]any) *Command {
	return &Command{
		ID:     id,
		Type:   Type_SetStatus,
		Status: status,
		Fields: fields,
	}
}
