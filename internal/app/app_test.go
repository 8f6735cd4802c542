package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oychao1988/content-hub-sub001/internal/config"
	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/executor"
	"github.com/oychao1988/content-hub-sub001/internal/lock"
	"github.com/oychao1988/content-hub-sub001/internal/result"
	"github.com/oychao1988/content-hub-sub001/internal/tasks"
	"github.com/oychao1988/content-hub-sub001/internal/webhook"
)

func testConfig() *config.Config {
	return &config.Config{
		Log:        config.LogConfig{Format: "text", Level: "error"},
		HTTP:       config.HTTPConfig{Addr: "127.0.0.1:0", MetricsAddr: "127.0.0.1:0"},
		Generator:  config.GeneratorConfig{Binary: "content-generator", CreateTimeout: time.Second, QueryTimeout: time.Second},
		PublishAPI: config.PublishAPIConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second},
		Tasks:      config.TasksConfig{Timeout: time.Hour},
		Worker: config.WorkerConfig{Count: 2, QueueSize: 4, PollInterval: time.Second,
			PollBatch: 4, SubmitTimeout: time.Second, StopTimeout: time.Second},
		Poller:    config.PollerConfig{Interval: time.Second, Concurrency: 2},
		Scheduler: config.SchedulerConfig{TickInterval: time.Second, Overlap: "allow", LockTTL: time.Minute},
		Pool:      config.PoolConfig{BatchSize: 10, MaxRetries: 3},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMemoryApp(t *testing.T, workers bool) *App {
	t.Helper()
	a, err := New(context.Background(), testConfig(), quietLogger(), Options{Memory: true, Workers: workers})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNew_Memory(t *testing.T) {
	a := newMemoryApp(t, false)

	assert.Nil(t, a.Workers)
	assert.Nil(t, a.MQ)
	assert.NoError(t, a.Health(context.Background()))
	assert.ElementsMatch(t, []string{
		executor.TypeContentGeneration,
		executor.TypeAddToPool,
		executor.TypePublishing,
		executor.TypePublishPoolScanner,
		executor.TypeWorkflow,
	}, a.Registry.Types())
}

func TestNew_WithWorkers(t *testing.T) {
	a := newMemoryApp(t, true)

	require.NotNil(t, a.Workers)
	assert.Equal(t, 8, a.Workers.Capacity())
}

func TestAPIHandler_SubmitWithoutWorkers(t *testing.T) {
	a := newMemoryApp(t, false)
	srv := httptest.NewServer(a.APIHandler(nil))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/tasks", "application/json",
		strings.NewReader(`{"account_id": 1, "topic": "release notes"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Data struct {
			TaskID string `json:"task_id"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	// Без воркеров задача ждёт в хранилище
	task, err := a.Store.GetTask(context.Background(), body.Data.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, task.Status)

	// Ручной запуск недоступен без планировщика
	resp2, err := http.Post(srv.URL+"/api/v1/scheduled-tasks/1/execute", "application/json", nil)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestSubmitToPublishPool_AutoApprove(t *testing.T) {
	a := newMemoryApp(t, false)
	ctx := context.Background()

	task, err := a.Tasks.Submit(ctx, tasks.SubmitRequest{
		AccountID:   1,
		Topic:       "release notes",
		AutoApprove: true,
	})
	require.NoError(t, err)
	_, err = a.Results.Submitted(ctx, task.TaskID)
	require.NoError(t, err)

	resp, err := a.Webhook.Handle(ctx, webhook.Event{
		Event:  webhook.EventCompleted,
		TaskID: task.TaskID,
		Result: map[string]any{"content": "Version 2 ships today."},
	}, result.SourceWebhook)
	require.NoError(t, err)
	require.True(t, resp.Success)

	got, err := a.Store.GetTask(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	require.NotNil(t, got.ContentID)

	content, err := a.Store.GetContent(ctx, *got.ContentID)
	require.NoError(t, err)
	assert.Equal(t, "Version 2 ships today.", content.Body)
	assert.Equal(t, domain.ReviewStatusApproved, content.ReviewStatus)

	entry, err := a.Store.FindActiveEntry(ctx, content.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PoolStatusPending, entry.Status)
}

func TestNewScheduler_ExecuteNowThroughAPI(t *testing.T) {
	a := newMemoryApp(t, false)
	ctx := context.Background()

	sch, err := a.NewScheduler(ctx)
	require.NoError(t, err)

	st := &domain.ScheduledTask{
		Name:     "scan",
		TaskType: executor.TypePublishPoolScanner,
		Params:   map[string]any{"batch_size": 5},
	}
	require.NoError(t, a.Store.CreateScheduledTask(ctx, st))

	srv := httptest.NewServer(a.APIHandler(sch))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/scheduled-tasks/1/execute", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			Success bool `json:"success"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Data.Success, "empty pool scan succeeds")

	execs, err := a.Store.ListExecutions(ctx, st.ID, 10)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, domain.TriggerManual, execs[0].Trigger)
}

func TestLocker_MemoryWithoutRedis(t *testing.T) {
	a := newMemoryApp(t, false)

	l, err := a.Locker(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &lock.MemoryLocker{}, l)
}

func TestServe_StopsOnCancel(t *testing.T) {
	a := newMemoryApp(t, false)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, "127.0.0.1:0", a.MetricsHandler()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRunWorkers_RequiresPool(t *testing.T) {
	a := newMemoryApp(t, false)
	assert.Error(t, a.RunWorkers(context.Background()))
}
