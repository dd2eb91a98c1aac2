package web_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/hirepipe/interviewflow/backend"
	"github.com/hirepipe/interviewflow/backend/sqlite"
	"github.com/hirepipe/interviewflow/client"
	"github.com/hirepipe/interviewflow/interview"
	internal "github.com/hirepipe/interviewflow/internal/worker"
	"github.com/hirepipe/interviewflow/registry"
	"github.com/hirepipe/interviewflow/web"
	"github.com/hirepipe/interviewflow/workflow/executor/cache"
)

type env struct {
	t     *testing.T
	mux   *http.ServeMux
	clock *clock.Mock
	b     backend.Backend
	wtw   *internal.WorkflowTaskWorker
	atw   *internal.ActivityTaskWorker
}

func newEnv(t *testing.T) *env {
	mc := clock.NewMock()
	mc.Set(time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC))

	b := sqlite.NewInMemoryBackend(sqlite.WithBackendOptions(
		backend.WithClock(mc),
		backend.WithStickyTimeout(0),
	))
	t.Cleanup(func() {
		require.NoError(t, b.Close())
	})

	r := registry.New()
	require.NoError(t, interview.Register(r, interview.NewActivities(slog.Default())))

	c := client.New(b)
	executorCache := cache.NewWorkflowExecutorLRUCache(b.Metrics(), 32, time.Minute)

	return &env{
		t:     t,
		mux:   web.NewServer(c, mc, slog.Default()).NewServeMux(),
		clock: mc,
		b:     b,
		wtw:   internal.NewWorkflowTaskWorker(b, r, executorCache, nil),
		atw:   internal.NewActivityTaskWorker(b, r, mc),
	}
}

func (e *env) drain() {
	ctx := context.Background()
	for i := 0; ; i++ {
		require.Less(e.t, i, 100, "task loop did not settle")

		if t, err := e.b.GetWorkflowTask(ctx); err == nil && t != nil {
			result, err := e.wtw.Execute(ctx, t)
			require.NoError(e.t, err)
			require.NoError(e.t, e.wtw.Complete(ctx, result, t))
			continue
		}

		if t, err := e.b.GetActivityTask(ctx); err == nil && t != nil {
			event, err := e.atw.Execute(ctx, t)
			require.NoError(e.t, err)
			require.NoError(e.t, e.atw.Complete(ctx, event, t))
			continue
		}

		return
	}
}

func (e *env) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader("{}"))
	}

	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	return w
}

func Test_StartInterview(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/api/interviews",
		`{"candidateEmail":"jo@example.com","idempotencyKey":"web-1"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp web.StartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "web-1", resp.InstanceID)
	require.Equal(t, "/api/interviews/web-1", resp.StatusQueryURI)
}

func Test_StartInterview_Duplicate(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/api/interviews", `{"idempotencyKey":"web-dup"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = e.do(http.MethodPost, "/api/interviews", `{"idempotencyKey":"web-dup"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp web.StartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "web-dup", resp.InstanceID)
	require.Equal(t, "Interview already started", resp.Message)
}

func Test_StartInterview_GeneratesInstanceID(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/api/interviews", `{}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp web.StartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.InstanceID)
}

func Test_StartInterview_BadBody(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/api/interviews", `{not json`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func Test_GetInterview(t *testing.T) {
	e := newEnv(t)

	e.do(http.MethodPost, "/api/interviews", `{"idempotencyKey":"web-get"}`)
	e.drain()

	w := e.do(http.MethodGet, "/api/interviews/web-get", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp web.InstanceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "web-get", resp.InstanceID)
	require.Equal(t, "active", resp.State)
	require.NotNil(t, resp.LastStatus)
	require.Equal(t, interview.StatusAwaitingConfirmation, resp.LastStatus.Status)
	require.NotEmpty(t, resp.StatusHistory)
	require.Empty(t, resp.History)

	// Include the replay log on request
	w = e.do(http.MethodGet, "/api/interviews/web-get?history=1", "")
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.History)
}

func Test_GetInterview_NotFound(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/api/interviews/missing", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func Test_FullLifecycleOverHTTP(t *testing.T) {
	e := newEnv(t)

	e.do(http.MethodPost, "/api/interviews", `{"idempotencyKey":"web-full","candidateEmail":"jo@example.com"}`)
	e.drain()

	w := e.do(http.MethodPost, "/api/interviews/web-full/confirmation", `{"confirmed":true}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	e.drain()

	w = e.do(http.MethodPost, "/api/interviews/web-full/completed",
		`{"feedback":"excellent problem solving","responses":[{"question":"q","answer":"a","quality":5}]}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	e.drain()

	w = e.do(http.MethodGet, "/api/interviews/web-full", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp web.InstanceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "finished", resp.State)
	require.Equal(t, interview.StatusCompleted, resp.LastStatus.Status)
	require.Contains(t, string(resp.Result), "Passed")
}

func Test_Confirmation_NotFound(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/api/interviews/missing/confirmation", `{}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func Test_ListInterviews(t *testing.T) {
	e := newEnv(t)

	e.do(http.MethodPost, "/api/interviews", `{"idempotencyKey":"web-list-1"}`)
	e.do(http.MethodPost, "/api/interviews", `{"idempotencyKey":"web-list-2"}`)
	e.drain()

	w := e.do(http.MethodGet, "/api/interviews", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp web.ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Instances, 2)

	// Newest first
	require.Equal(t, "web-list-2", resp.Instances[0].InstanceID)

	w = e.do(http.MethodGet, "/api/interviews?count=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Instances, 1)
}
