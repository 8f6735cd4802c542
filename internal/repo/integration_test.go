package repo

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/store"
)

// testDatabaseEnv — DSN тестовой БД. Без него интеграционные тесты пропускаются.
const testDatabaseEnv = "CONTENTHUB_TEST_DATABASE_URL"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv(testDatabaseEnv)
	if dsn == "" {
		t.Skipf("%s not set", testDatabaseEnv)
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, dsn, 4)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool, MigrateUp, nil))
	_, err = pool.Exec(ctx, `TRUNCATE task_executions, scheduled_tasks, publish_pool, contents, tasks RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return NewStore(pool)
}

func TestIntegration_TaskRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := &domain.Task{
		TaskID:     uuid.NewString(),
		AccountID:  1,
		Topic:      "topic",
		Status:     domain.TaskStatusPending,
		Priority:   5,
		MaxRetries: 3,
	}
	require.NoError(t, s.CreateTask(ctx, task))
	assert.NotZero(t, task.ID)

	err := s.CreateTask(ctx, task)
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	task.Status = domain.TaskStatusCompleted
	task.Result = map[string]any{"content": "body"}
	require.NoError(t, s.UpdateTask(ctx, task))

	got, err := s.GetTask(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	assert.Equal(t, "body", got.Result["content"])

	_, err = s.GetTask(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestIntegration_PendingOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, p := range []int{1, 9, 5} {
		require.NoError(t, s.CreateTask(ctx, &domain.Task{
			TaskID: uuid.NewString(), AccountID: 1, Topic: "t",
			Status: domain.TaskStatusPending, Priority: p, MaxRetries: 3,
		}))
	}

	tasks, err := s.ListPendingTasks(ctx, 2)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, 9, tasks[0].Priority)
	assert.Equal(t, 5, tasks[1].Priority)
}

func TestIntegration_PoolClaimIsExclusive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	content := &domain.Content{AccountID: 1, Title: "t", Body: "b",
		ReviewStatus: domain.ReviewStatusApproved, PublishStatus: domain.PublishStatusQueued}
	require.NoError(t, s.CreateContent(ctx, content))

	entry := &domain.PublishPoolEntry{ContentID: content.ID, Priority: 5,
		Status: domain.PoolStatusPending, MaxRetries: 3}
	require.NoError(t, s.AddPoolEntry(ctx, entry))

	dup := &domain.PublishPoolEntry{ContentID: content.ID, Status: domain.PoolStatusPending}
	assert.ErrorIs(t, s.AddPoolEntry(ctx, dup), store.ErrAlreadyExists)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		claimed  int
		conflict int
	)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ClaimPoolEntry(ctx, entry.ID, time.Now())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				claimed++
			case errors.Is(err, store.ErrConflict):
				conflict++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, claimed)
	assert.Equal(t, 4, conflict)

	_, err := s.ClaimPoolEntry(ctx, 999999, time.Now())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestIntegration_EligibleOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	add := func(priority int, scheduled *time.Time) int64 {
		c := &domain.Content{AccountID: 1, Title: "t", Body: "b", ReviewStatus: domain.ReviewStatusApproved}
		require.NoError(t, s.CreateContent(ctx, c))
		e := &domain.PublishPoolEntry{ContentID: c.ID, Priority: priority, ScheduledAt: scheduled,
			Status: domain.PoolStatusPending, MaxRetries: 3}
		require.NoError(t, s.AddPoolEntry(ctx, e))
		return e.ID
	}

	low := add(1, nil)
	highScheduled := add(9, &past)
	highNow := add(9, nil)
	add(10, &future)

	entries, err := s.ListEligibleEntries(ctx, now, 10)
	require.NoError(t, err)

	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	assert.Equal(t, []int64{highNow, highScheduled, low}, ids)
}

func TestIntegration_ScheduleAndExecutions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	st := &domain.ScheduledTask{
		Name: "scan", TaskType: "publish_pool_scanner",
		Interval: 5, IntervalUnit: domain.IntervalMinutes,
		Params: map[string]any{"batch_size": 10}, IsActive: true,
	}
	require.NoError(t, s.CreateScheduledTask(ctx, st))
	require.NoError(t, s.CreateScheduledTask(ctx, &domain.ScheduledTask{Name: "manual", TaskType: "workflow", IsActive: true}))

	active, err := s.ListActiveScheduledTasks(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, st.ID, active[0].ID)

	next := time.Now().UTC().Add(5 * time.Minute).Truncate(time.Microsecond)
	st.NextRunAt = &next
	st.Name = "renamed"
	require.NoError(t, s.UpdateScheduleState(ctx, st))

	got, err := s.GetScheduledTask(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "scan", got.Name, "only schedule state is saved")
	require.NotNil(t, got.NextRunAt)
	assert.True(t, next.Equal(*got.NextRunAt))

	for i := range 3 {
		require.NoError(t, s.CreateExecution(ctx, &domain.TaskExecution{
			ScheduledTaskID: st.ID, TaskType: st.TaskType, Trigger: domain.TriggerSchedule,
			Status: domain.ExecutionStatusSuccess, StartedAt: time.Now(), FinishedAt: time.Now(),
			Duration: time.Duration(i) * time.Second,
		}))
	}
	execs, err := s.ListExecutions(ctx, st.ID, 2)
	require.NoError(t, err)
	require.Len(t, execs, 2)
	assert.Equal(t, 2*time.Second, execs[0].Duration)
}
