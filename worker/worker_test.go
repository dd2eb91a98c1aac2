package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hirepipe/interviewflow/backend/sqlite"
	"github.com/hirepipe/interviewflow/client"
	"github.com/hirepipe/interviewflow/registry"
	"github.com/hirepipe/interviewflow/worker"
	"github.com/hirepipe/interviewflow/workflow"
)

func Test_Worker_RunsWorkflowToCompletion(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := sqlite.NewInMemoryBackend()
	defer b.Close()

	r := registry.New()

	require.NoError(t, registry.RegisterWorkflow(r, "greet",
		func(ctx *workflow.Context, name string) (string, error) {
			return workflow.ExecuteActivity[string](ctx, "Format", name)
		}))

	require.NoError(t, registry.RegisterActivity(r, "Format",
		func(ctx context.Context, name string) (string, error) {
			return "hello " + name, nil
		}))

	options := worker.DefaultOptions
	options.WorkflowPollingInterval = 5 * time.Millisecond
	options.ActivityPollingInterval = 5 * time.Millisecond

	w := worker.New(b, r, &options)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))

	c := client.New(b)

	wfi, created, err := c.StartOrGet(ctx, uuid.NewString(), "greet", "jo")
	require.NoError(t, err)
	require.True(t, created)

	result, err := client.GetWorkflowResult[string](ctx, c, wfi, 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, "hello jo", result)

	cancel()
	require.NoError(t, w.WaitForCompletion())
}

func Test_Worker_StartAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := sqlite.NewInMemoryBackend()
	defer b.Close()

	options := worker.DefaultOptions
	options.WorkflowPollingInterval = 5 * time.Millisecond
	options.ActivityPollingInterval = 5 * time.Millisecond

	w := worker.New(b, registry.New(), &options)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))

	cancel()
	require.NoError(t, w.WaitForCompletion())
}
