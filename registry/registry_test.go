package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hirepipe/interviewflow/backend/converter"
	"github.com/hirepipe/interviewflow/registry"
	"github.com/hirepipe/interviewflow/workflow"
)

func Test_Registry_RegisterAndGetActivity(t *testing.T) {
	r := registry.New()

	require.NoError(t, registry.RegisterActivity(r, "Upper",
		func(ctx context.Context, in string) (string, error) {
			return in + "!", nil
		}))

	fn, err := r.GetActivity("Upper")
	require.NoError(t, err)

	cv := converter.DefaultConverter
	in, err := cv.To("hi")
	require.NoError(t, err)

	out, err := fn(context.Background(), cv, in)
	require.NoError(t, err)

	var result string
	require.NoError(t, cv.From(out, &result))
	require.Equal(t, "hi!", result)
}

func Test_Registry_DuplicateActivity(t *testing.T) {
	r := registry.New()

	fn := func(ctx context.Context, in string) (string, error) { return in, nil }

	require.NoError(t, registry.RegisterActivity(r, "Echo", fn))
	require.Error(t, registry.RegisterActivity(r, "Echo", fn))
}

func Test_Registry_DuplicateWorkflow(t *testing.T) {
	r := registry.New()

	fn := func(ctx *workflow.Context, in string) (string, error) { return in, nil }

	require.NoError(t, registry.RegisterWorkflow(r, "wf", fn))
	require.Error(t, registry.RegisterWorkflow(r, "wf", fn))
}

func Test_Registry_NotRegistered(t *testing.T) {
	r := registry.New()

	_, err := r.GetWorkflow("missing")
	require.Error(t, err)

	_, err = r.GetActivity("missing")
	require.Error(t, err)
}

func Test_Registry_ActivityErrorPassesThrough(t *testing.T) {
	r := registry.New()

	sentinel := errors.New("boom")
	require.NoError(t, registry.RegisterActivity(r, "Fails",
		func(ctx context.Context, in string) (string, error) {
			return "", sentinel
		}))

	fn, err := r.GetActivity("Fails")
	require.NoError(t, err)

	_, err = fn(context.Background(), converter.DefaultConverter, []byte(`"x"`))
	require.ErrorIs(t, err, sentinel)
}

func Test_Registry_NilInput(t *testing.T) {
	r := registry.New()

	require.NoError(t, registry.RegisterActivity(r, "NoInput",
		func(ctx context.Context, in struct{}) (string, error) {
			return "ok", nil
		}))

	fn, err := r.GetActivity("NoInput")
	require.NoError(t, err)

	out, err := fn(context.Background(), converter.DefaultConverter, nil)
	require.NoError(t, err)

	var result string
	require.NoError(t, converter.DefaultConverter.From(out, &result))
	require.Equal(t, "ok", result)
}
