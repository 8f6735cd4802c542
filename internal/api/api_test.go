package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/executor"
	"github.com/oychao1988/content-hub-sub001/internal/publishpool"
	"github.com/oychao1988/content-hub-sub001/internal/result"
	"github.com/oychao1988/content-hub-sub001/internal/scheduler"
	"github.com/oychao1988/content-hub-sub001/internal/tasks"
	"github.com/oychao1988/content-hub-sub001/internal/webhook"
)

// --- Stubs ---

type stubTasks struct {
	submitted tasks.SubmitRequest
	err       error
}

func (s *stubTasks) Submit(_ context.Context, req tasks.SubmitRequest) (*domain.Task, error) {
	s.submitted = req
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Task{TaskID: "t-1", Status: domain.TaskStatusPending, Priority: 5}, nil
}

func (s *stubTasks) Get(_ context.Context, id string) (*domain.Task, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Task{TaskID: id, Status: domain.TaskStatusProcessing}, nil
}

func (s *stubTasks) Retry(_ context.Context, id string) (*domain.Task, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Task{TaskID: id, Status: domain.TaskStatusPending, RetryCount: 1}, nil
}

func (s *stubTasks) Cancel(_ context.Context, id string) (*domain.Task, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Task{TaskID: id, Status: domain.TaskStatusCancelled}, nil
}

type stubWebhook struct {
	body      []byte
	signature string
	source    string
	resp      *webhook.Response
	err       error
}

func (s *stubWebhook) HandleRaw(_ context.Context, body []byte, signature, source string) (*webhook.Response, error) {
	s.body, s.signature, s.source = body, signature, source
	return s.resp, s.err
}

type stubScheduler struct {
	exec *domain.TaskExecution
	err  error
}

func (s *stubScheduler) ExecuteNow(_ context.Context, id int64) (*domain.TaskExecution, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.exec.ScheduledTaskID = id
	return s.exec, nil
}

type stubPool struct {
	err error
}

func (s *stubPool) PublishNow(_ context.Context, id int64) (*publishpool.Outcome, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &publishpool.Outcome{EntryID: id, Result: publishpool.ResultPublished}, nil
}

func (s *stubPool) Stats(context.Context) (domain.PoolStats, error) {
	if s.err != nil {
		return domain.PoolStats{}, s.err
	}
	return domain.PoolStats{Pending: 3, Published: 7, Failed: 1}, nil
}

type stubExecutors map[string]executor.Info

func (s stubExecutors) List() map[string]executor.Info { return s }

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
	Error *ErrorDetail    `json:"error"`
}

func newServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewHandler(cfg).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string, header http.Header) (int, envelope) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

// --- Task Tests ---

func TestSubmitTask(t *testing.T) {
	st := &stubTasks{}
	srv := newServer(t, Config{Tasks: st})

	status, env := do(t, srv, http.MethodPost, "/api/v1/tasks",
		`{"account_id": 7, "topic": "Go generics", "priority": 8, "auto_approve": true}`, nil)

	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, int64(7), st.submitted.AccountID)
	assert.Equal(t, 8, st.submitted.Priority)
	assert.True(t, st.submitted.AutoApprove)

	var got SubmitTaskResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "t-1", got.TaskID)
	assert.Equal(t, domain.TaskStatusPending, got.Status)
}

func TestSubmitTask_InvalidBody(t *testing.T) {
	srv := newServer(t, Config{Tasks: &stubTasks{}})

	status, env := do(t, srv, http.MethodPost, "/api/v1/tasks", `{not json`, nil)

	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeBadRequest, env.Error.Code)
}

func TestTaskEndpoints_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		err    error
		status int
		code   ErrorCode
	}{
		{"validation", http.MethodPost, "/api/v1/tasks", fmt.Errorf("%w: topic", tasks.ErrValidation), http.StatusBadRequest, ErrCodeBadRequest},
		{"not found", http.MethodGet, "/api/v1/tasks/x", fmt.Errorf("%w: x", tasks.ErrNotFound), http.StatusNotFound, ErrCodeNotFound},
		{"retry exhausted", http.MethodPost, "/api/v1/tasks/x/retry", result.ErrRetryExhausted, http.StatusUnprocessableEntity, ErrCodeInvalidState},
		{"cancel finished", http.MethodPost, "/api/v1/tasks/x/cancel", tasks.ErrInvalidTransition, http.StatusUnprocessableEntity, ErrCodeInvalidState},
		{"internal", http.MethodGet, "/api/v1/tasks/x", errors.New("db down"), http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, Config{Tasks: &stubTasks{err: tt.err}})

			status, env := do(t, srv, tt.method, tt.path, `{"account_id": 1, "topic": "x"}`, nil)

			assert.Equal(t, tt.status, status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestTaskEndpoints_Success(t *testing.T) {
	srv := newServer(t, Config{Tasks: &stubTasks{}})

	tests := []struct {
		method string
		path   string
		status domain.TaskStatus
	}{
		{http.MethodGet, "/api/v1/tasks/abc", domain.TaskStatusProcessing},
		{http.MethodPost, "/api/v1/tasks/abc/retry", domain.TaskStatusPending},
		{http.MethodPost, "/api/v1/tasks/abc/cancel", domain.TaskStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			status, env := do(t, srv, tt.method, tt.path, "", nil)
			require.Equal(t, http.StatusOK, status)

			var task domain.Task
			require.NoError(t, json.Unmarshal(env.Data, &task))
			assert.Equal(t, "abc", task.TaskID)
			assert.Equal(t, tt.status, task.Status)
		})
	}
}

// --- Webhook Tests ---

func TestGenerationWebhook(t *testing.T) {
	wh := &stubWebhook{resp: &webhook.Response{Success: true, TaskID: "t-1", Event: webhook.EventCompleted}}
	srv := newServer(t, Config{Webhook: wh})

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/webhooks/generation",
		strings.NewReader(`{"event":"completed","taskId":"t-1"}`))
	require.NoError(t, err)
	req.Header.Set(webhook.SignatureHeader, "sig")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got webhook.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.True(t, got.Success)
	assert.Equal(t, "t-1", got.TaskID)

	assert.Equal(t, "sig", wh.signature)
	assert.Equal(t, result.SourceWebhook, wh.source)
	assert.JSONEq(t, `{"event":"completed","taskId":"t-1"}`, string(wh.body))
}

func TestGenerationWebhook_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"bad signature", webhook.ErrInvalidSignature, http.StatusUnauthorized},
		{"bad event", fmt.Errorf("%w: unknown event", webhook.ErrInvalidEvent), http.StatusBadRequest},
		{"unknown task", fmt.Errorf("%w: t-9", webhook.ErrTaskNotFound), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, Config{Webhook: &stubWebhook{err: tt.err}})

			status, _ := do(t, srv, http.MethodPost, "/api/v1/webhooks/generation", `{}`, nil)
			assert.Equal(t, tt.status, status)
		})
	}
}

// --- Schedule and Pool Tests ---

func TestExecuteScheduledTask(t *testing.T) {
	sch := &stubScheduler{exec: &domain.TaskExecution{
		TaskType:  executor.TypePublishPoolScanner,
		Trigger:   domain.TriggerManual,
		Status:    domain.ExecutionStatusFailed,
		ErrorCode: executor.CodeInternal,
		Duration:  1500 * time.Millisecond,
	}}
	srv := newServer(t, Config{Scheduler: sch})

	status, env := do(t, srv, http.MethodPost, "/api/v1/scheduled-tasks/12/execute", "", nil)

	require.Equal(t, http.StatusOK, status)
	var got ExecutionResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, int64(12), got.ScheduledTaskID)
	assert.False(t, got.Success)
	assert.Equal(t, executor.CodeInternal, got.ErrorCode)
	assert.Equal(t, int64(1500), got.DurationMS)
}

func TestExecuteScheduledTask_Errors(t *testing.T) {
	srv := newServer(t, Config{Scheduler: &stubScheduler{err: fmt.Errorf("%w: 3", scheduler.ErrNotFound)}})

	status, _ := do(t, srv, http.MethodPost, "/api/v1/scheduled-tasks/3/execute", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, srv, http.MethodPost, "/api/v1/scheduled-tasks/abc/execute", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPublishPoolEntry(t *testing.T) {
	srv := newServer(t, Config{Pool: &stubPool{}})

	status, env := do(t, srv, http.MethodPost, "/api/v1/publish-pool/5/publish", "", nil)

	require.Equal(t, http.StatusOK, status)
	var got publishpool.Outcome
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, int64(5), got.EntryID)
	assert.Equal(t, publishpool.ResultPublished, got.Result)
}

func TestPublishPoolEntry_NotPending(t *testing.T) {
	srv := newServer(t, Config{Pool: &stubPool{err: publishpool.ErrNotPending}})

	status, env := do(t, srv, http.MethodPost, "/api/v1/publish-pool/5/publish", "", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeInvalidState, env.Error.Code)
}

func TestPoolStats(t *testing.T) {
	srv := newServer(t, Config{Pool: &stubPool{}})

	status, env := do(t, srv, http.MethodGet, "/api/v1/publish-pool/stats", "", nil)

	require.Equal(t, http.StatusOK, status)
	var got domain.PoolStats
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, domain.PoolStats{Pending: 3, Published: 7, Failed: 1}, got)
}

// --- Misc Tests ---

func TestListExecutors_Sorted(t *testing.T) {
	srv := newServer(t, Config{Executors: stubExecutors{
		"workflow":   {Type: "workflow", Description: "steps"},
		"publishing": {Type: "publishing"},
	}})

	status, env := do(t, srv, http.MethodGet, "/api/v1/executors", "", nil)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, env.Total)
	var got []ExecutorResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "publishing", got[0].Type)
	assert.Equal(t, "workflow", got[1].Type)
}

func TestHealthz(t *testing.T) {
	srv := newServer(t, Config{})
	status, _ := do(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)

	down := newServer(t, Config{Health: func(context.Context) error { return errors.New("db down") }})
	status, env := do(t, down, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeUnavailable, env.Error.Code)
}

func TestRoutes_OnlyConfigured(t *testing.T) {
	srv := newServer(t, Config{})

	resp, err := http.Post(srv.URL+"/api/v1/tasks", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// --- Middleware Tests ---

func TestRecovery(t *testing.T) {
	h := Recovery(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLogging_CapturesStatus(t *testing.T) {
	var captured int
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	spy := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)
			captured = rw.status
		})
	}

	rec := httptest.NewRecorder()
	Chain(Logging(discardLogger()), spy)(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, http.StatusTeapot, captured)
}
