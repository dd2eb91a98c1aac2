package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hirepipe/interviewflow/backend"
)

func Test_LogNotifier_StatusChanged(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := n.StatusChanged(context.Background(), &backend.StatusSnapshot{
		InstanceID: "interview-42",
		Seq:        3,
		Status:     "AwaitingConfirmation",
		Region:     "eu-west-1",
	})
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "interview-42")
	require.Contains(t, out, "AwaitingConfirmation")
	require.Contains(t, out, "eu-west-1")
}
