package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/result"
	"github.com/oychao1988/content-hub-sub001/internal/store/memory"
)

type stubQueue struct {
	submitted []string
	err       error
}

func (q *stubQueue) Submit(taskID string) error {
	if q.err != nil {
		return q.err
	}
	q.submitted = append(q.submitted, taskID)
	return nil
}

func newService(t *testing.T, q *stubQueue) (*Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	h := result.New(result.Config{Store: st, TaskTimeout: time.Minute})
	return New(Config{Store: st, Queue: q, Results: h, CallbackBaseURL: "https://hub.example.com/"}), st
}

func TestSubmit_Defaults(t *testing.T) {
	q := &stubQueue{}
	svc, st := newService(t, q)

	task, err := svc.Submit(context.Background(), SubmitRequest{AccountID: 7, Topic: "  Go generics  "})
	require.NoError(t, err)

	assert.NotEmpty(t, task.TaskID)
	assert.Equal(t, "Go generics", task.Topic)
	assert.Equal(t, domain.TaskStatusPending, task.Status)
	assert.Equal(t, 5, task.Priority)
	assert.Equal(t, 3, task.MaxRetries)
	assert.Equal(t, "https://hub.example.com/api/v1/webhooks/generation", task.CallbackURL)
	require.NotNil(t, task.TimeoutAt)
	assert.Equal(t, []string{task.TaskID}, q.submitted)

	stored, err := st.GetTask(context.Background(), task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, stored.Status)
}

func TestSubmit_ExplicitZeroRetries(t *testing.T) {
	svc, _ := newService(t, &stubQueue{})
	zero := 0

	task, err := svc.Submit(context.Background(), SubmitRequest{AccountID: 1, Topic: "x", Priority: 9, MaxRetries: &zero})
	require.NoError(t, err)
	assert.Equal(t, 9, task.Priority)
	assert.Equal(t, 0, task.MaxRetries)
}

func TestSubmit_Validation(t *testing.T) {
	svc, _ := newService(t, &stubQueue{})

	tests := []struct {
		name string
		req  SubmitRequest
	}{
		{"missing topic", SubmitRequest{AccountID: 1, Topic: "   "}},
		{"missing account", SubmitRequest{Topic: "x"}},
		{"priority out of range", SubmitRequest{AccountID: 1, Topic: "x", Priority: 11}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestSubmit_QueueFullLeavesPending(t *testing.T) {
	svc, st := newService(t, &stubQueue{err: errors.New("worker queue full")})

	task, err := svc.Submit(context.Background(), SubmitRequest{AccountID: 1, Topic: "x"})
	require.NoError(t, err)

	pending, err := st.ListPendingTasks(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, task.TaskID, pending[0].TaskID)
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newService(t, &stubQueue{})

	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRetryAndCancel(t *testing.T) {
	q := &stubQueue{}
	svc, st := newService(t, q)
	ctx := context.Background()

	task, err := svc.Submit(ctx, SubmitRequest{AccountID: 1, Topic: "x"})
	require.NoError(t, err)

	// pending нельзя повторить
	_, err = svc.Retry(ctx, task.TaskID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, _ := st.GetTask(ctx, task.TaskID)
	stored.MarkFailed(time.Now(), "boom")
	require.NoError(t, st.UpdateTask(ctx, stored))

	retried, err := svc.Retry(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, retried.Status)
	assert.Equal(t, 1, retried.RetryCount)
	assert.Len(t, q.submitted, 2)

	cancelled, err := svc.Cancel(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCancelled, cancelled.Status)

	_, err = svc.Cancel(ctx, task.TaskID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
