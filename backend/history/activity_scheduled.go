package history

import (
	"time"

	"github.com/hirepipe/interviewflow/backend/payload"
)

// RetryPolicy controls how an activity is retried on transient failure.
// The backoff interval is fixed between attempts.
type RetryPolicy struct {
	MaxAttempts int           `json:"max_attempts,omitempty"`
	Backoff     time.Duration `json:"backoff,omitempty"`
}

type ActivityScheduledAttributes struct {
	Name string `json:"name,omitempty"`

	Input payload.Payload `json:"input,omitempty"`

	RetryPolicy RetryPolicy `json:"retry_policy,omitempty"`
}
