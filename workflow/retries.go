package workflow

import (
	"github.com/hirepipe/interviewflow/backend/history"
)

// RetryPolicy controls automatic retries of a failed activity. Retries happen
// on the activity queue; only the terminal outcome enters the history.
type RetryPolicy = history.RetryPolicy

// DefaultRetryPolicy executes an activity once, without retries.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 1,
}

type activityOptions struct {
	RetryPolicy RetryPolicy
}

type ActivityOption func(*activityOptions)

func WithRetryPolicy(policy RetryPolicy) ActivityOption {
	return func(o *activityOptions) {
		o.RetryPolicy = policy
	}
}

func applyActivityOptions(opts []ActivityOption) activityOptions {
	options := activityOptions{
		RetryPolicy: DefaultRetryPolicy,
	}

	for _, opt := range opts {
		opt(&options)
	}

	return options
}
