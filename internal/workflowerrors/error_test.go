package workflowerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_FromError_Nil(t *testing.T) {
	require.Nil(t, FromError(nil))
}

func Test_FromError_WrapsCauseChain(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := fmt.Errorf("sending invitation: %w", cause)

	e := FromError(wrapped)
	require.Equal(t, "sending invitation: connection refused", e.Message)
	require.NotNil(t, e.Cause)
	require.Equal(t, "connection refused", e.Cause.Message)
}

func Test_FromError_DoesNotDoubleWrap(t *testing.T) {
	e := FromError(errors.New("boom"))
	require.Same(t, e, FromError(e))
}

func Test_ToError_RoundTrip(t *testing.T) {
	e := FromError(errors.New("boom"))

	restored := ToError(e)
	require.EqualError(t, restored, "boom")
}

func Test_ToError_RestoresPanicError(t *testing.T) {
	e := FromError(NewPanicError("workflow panic: boom"))

	restored := ToError(e)

	var pe *PanicError
	require.ErrorAs(t, restored, &pe)
	require.Equal(t, "workflow panic: boom", pe.Error())
	require.NotEmpty(t, pe.Stack())
}

func Test_CanRetry(t *testing.T) {
	require.True(t, CanRetry(errors.New("transient")))
	require.True(t, CanRetry(FromError(errors.New("transient"))))
	require.False(t, CanRetry(NewPermanentError(errors.New("bad input"))))

	// Permanence survives wrapping
	require.False(t, CanRetry(fmt.Errorf("running activity: %w",
		NewPermanentError(errors.New("bad input")))))
}

func Test_PanicErrorHasStack(t *testing.T) {
	err := NewPanicError("boom")

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	require.NotEmpty(t, pe.Stack())
}
