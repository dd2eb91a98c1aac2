package metrickeys

const (
	Prefix = "interviewflow."

	// Workflows
	WorkflowInstanceCreated  = Prefix + "workflow.created"
	WorkflowInstanceFinished = Prefix + "workflow.finished"

	WorkflowTaskProcessed = Prefix + "workflow.task.processed"
	WorkflowTaskDelay     = Prefix + "workflow.task.time_in_queue"

	WorkflowInstanceCacheSize     = Prefix + "workflow.cache.size"
	WorkflowInstanceCacheEviction = Prefix + "workflow.cache.eviction"

	// Activities
	ActivityTaskProcessed = Prefix + "activity.task.processed"
	ActivityTaskDelay     = Prefix + "activity.task.time_in_queue"
	ActivityTaskRetried   = Prefix + "activity.task.retried"

	// Signals
	SignalDelivered = Prefix + "signal.delivered"

	// Status push
	StatusPublished = Prefix + "status.published"
)

// Tag names
const (
	Backend = "backend"

	// Reason for evicting an entry from the workflow instance cache
	EvictionReason = "reason"

	ActivityName = "activity"
	SignalName   = "signal"
	Region       = "region"
)
