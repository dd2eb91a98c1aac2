package log

const (
	NamespaceKey = "interviewflow"

	InstanceIDKey  = NamespaceKey + ".instance.id"
	ExecutionIDKey = NamespaceKey + ".execution.id"

	WorkflowNameKey = NamespaceKey + ".workflow.name"

	ActivityIDKey   = NamespaceKey + ".activity.id"
	ActivityNameKey = NamespaceKey + ".activity.name"

	SignalNameKey = NamespaceKey + ".signal.name"
	StatusKey     = NamespaceKey + ".status"
	RegionKey     = NamespaceKey + ".region"

	SeqIDKey       = NamespaceKey + ".seq_id"
	IsReplayingKey = NamespaceKey + ".is_replaying"

	EventTypeKey       = NamespaceKey + ".event.type"
	EventIDKey         = NamespaceKey + ".event.id"
	ScheduleEventIDKey = NamespaceKey + ".event.schedule_event_id"

	TaskIDKey                    = NamespaceKey + ".task.id"
	TaskLastSequenceIDKey        = NamespaceKey + ".task.last_sequence_id"
	LocalSequenceIDKey           = NamespaceKey + ".task.local_sequence_id"
	ExecutedEventsKey            = NamespaceKey + ".task.executed_events"
	NewEventsKey                 = NamespaceKey + ".task.new_events"
	WorkflowInstanceStateKey     = NamespaceKey + ".task.instance_state"

	AttemptKey  = NamespaceKey + ".attempt"
	DurationKey = NamespaceKey + ".duration_ms"

	// NowKey is the time at which a timer was scheduled
	NowKey = NamespaceKey + ".timer.now"
	// AtKey is the time at which a timer is scheduled to fire
	AtKey = NamespaceKey + ".timer.at"
)
