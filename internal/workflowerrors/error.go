package workflowerrors

import (
	"encoding/json"
	"errors"
)

// Error is a serializable workflow or activity error. It is what gets
// persisted in the history when a step fails, and what workflow code
// observes when a recorded failure is replayed.
type Error struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`

	// Permanent failures are not retried, regardless of the retry policy.
	Permanent  bool   `json:"permanent,omitempty"`
	Cause      *Error `json:"cause,omitempty"`
	Stacktrace string `json:"stacktrace,omitempty"`
}

var _ error = (*Error)(nil)

func (we *Error) Error() string {
	return we.Message
}

func (we *Error) Unwrap() error {
	if we == nil || we.Cause == nil {
		return nil
	}

	return we.Cause
}

func (we *Error) Stack() string {
	return we.Stacktrace
}

func (we *Error) MarshalBinary() ([]byte, error) {
	return json.Marshal(we)
}

// FromError wraps the given error into an Error which can be persisted and
// restored.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	// Already a workflow error, do not wrap again
	if e, ok := err.(*Error); ok {
		return e
	}

	e := &Error{
		Type:    getErrorType(err),
		Message: err.Error(),
	}

	if stackTracer, ok := err.(interface{ Stack() string }); ok {
		e.Stacktrace = stackTracer.Stack()
	}

	if cause := errors.Unwrap(err); cause != nil {
		e.Cause = FromError(cause)
	}

	return e
}

// ToError converts a persisted Error back into a regular error. Known error
// types get concrete representations, everything else stays an *Error.
func ToError(err *Error) error {
	if err == nil {
		return nil
	}

	e := *err

	switch err.Type {
	case getErrorType(&PanicError{}):
		return &PanicError{message: e.Message, stacktrace: e.Stacktrace}

	default:
		return &e
	}
}

// NewPermanentError marks the given error as non-retryable.
func NewPermanentError(err error) *Error {
	e := FromError(err)
	e.Permanent = true
	return e
}

// CanRetry returns true if the given error is retryable.
func CanRetry(err error) bool {
	var we *Error
	if errors.As(err, &we) {
		return !we.Permanent
	}

	// Retry errors by default
	return true
}
