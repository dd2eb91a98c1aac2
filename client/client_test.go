package client_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hirepipe/interviewflow/backend"
	"github.com/hirepipe/interviewflow/backend/sqlite"
	"github.com/hirepipe/interviewflow/client"
	"github.com/hirepipe/interviewflow/core"
)

func newBackend(t *testing.T) backend.Backend {
	b := sqlite.NewInMemoryBackend()
	t.Cleanup(func() {
		require.NoError(t, b.Close())
	})
	return b
}

func Test_Client_StartOrGet(t *testing.T) {
	ctx := context.Background()
	c := client.New(newBackend(t))

	wfi, created, err := c.StartOrGet(ctx, "instance-1", "some-workflow", "input")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "instance-1", wfi.InstanceID)
	require.NotEmpty(t, wfi.ExecutionID)

	status, err := c.GetInstance(ctx, "instance-1")
	require.NoError(t, err)
	require.Equal(t, core.WorkflowInstanceStateActive, status.State)
}

func Test_Client_StartOrGet_Idempotent(t *testing.T) {
	ctx := context.Background()
	c := client.New(newBackend(t))

	first, created, err := c.StartOrGet(ctx, "instance-dup", "some-workflow", "input")
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := c.StartOrGet(ctx, "instance-dup", "some-workflow", "other input")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.InstanceID, second.InstanceID)
	require.Equal(t, first.ExecutionID, second.ExecutionID)

	instances, err := c.ListInstances(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, instances, 1)
}

func Test_Client_GetInstance_NotFound(t *testing.T) {
	c := client.New(newBackend(t))

	_, err := c.GetInstance(context.Background(), "missing")
	require.ErrorIs(t, err, backend.ErrInstanceNotFound)
}

func Test_Client_Raise(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	c := client.New(b)

	_, _, err := c.StartOrGet(ctx, "instance-signal", "some-workflow", nil)
	require.NoError(t, err)

	require.NoError(t, c.Raise(ctx, "instance-signal", "some-event", "payload"))

	// The started and signal events are delivered with the next task
	task, err := b.GetWorkflowTask(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)
	require.Len(t, task.NewEvents, 2)
}

func Test_Client_Raise_UnknownInstance(t *testing.T) {
	c := client.New(newBackend(t))

	err := c.Raise(context.Background(), "missing", "some-event", nil)
	require.ErrorIs(t, err, backend.ErrInstanceNotFound)
}

func Test_Client_GetWorkflowResult_Timeout(t *testing.T) {
	ctx := context.Background()
	c := client.New(newBackend(t))

	wfi, _, err := c.StartOrGet(ctx, "instance-slow", "some-workflow", nil)
	require.NoError(t, err)

	// Nothing is processing tasks, the instance never finishes
	_, err = client.GetWorkflowResult[string](ctx, c, wfi, 100*time.Millisecond)
	require.ErrorContains(t, err, "did not finish")
}

func Test_Client_GetStatusHistory_Empty(t *testing.T) {
	ctx := context.Background()
	c := client.New(newBackend(t))

	_, _, err := c.StartOrGet(ctx, "instance-fresh", "some-workflow", nil)
	require.NoError(t, err)

	snapshots, err := c.GetStatusHistory(ctx, "instance-fresh")
	require.NoError(t, err)
	require.Empty(t, snapshots)
}
