package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/generator"
	"github.com/oychao1988/content-hub-sub001/internal/result"
	"github.com/oychao1988/content-hub-sub001/internal/store/memory"
)

// fakeGenerator записывает вызовы Create.
type fakeGenerator struct {
	mu      sync.Mutex
	created []string
	err     error
	block   chan struct{}
	calls   atomic.Int32
}

func (g *fakeGenerator) Create(ctx context.Context, req generator.CreateRequest) (*generator.CreateResponse, error) {
	g.calls.Add(1)
	if g.block != nil {
		<-g.block
	}
	if g.err != nil {
		return nil, g.err
	}
	g.mu.Lock()
	g.created = append(g.created, req.TaskID)
	g.mu.Unlock()
	return &generator.CreateResponse{Success: true, TaskID: req.TaskID, Status: generator.StatusSubmitted}, nil
}

func (g *fakeGenerator) Status(context.Context, string) (*generator.StatusResponse, error) {
	return nil, errors.New("not implemented")
}

func (g *fakeGenerator) Result(context.Context, string) (map[string]any, error) {
	return nil, errors.New("not implemented")
}

func (g *fakeGenerator) createdIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.created...)
}

func newTestPool(t *testing.T, gen *fakeGenerator, cfg Config) (*Pool, *memory.Store) {
	t.Helper()
	st := memory.New()
	cfg.Tasks = st
	cfg.Generator = gen
	cfg.Results = result.New(result.Config{Store: st})
	return NewPool(cfg), st
}

func createTask(t *testing.T, st *memory.Store, id string, status domain.TaskStatus) {
	t.Helper()
	err := st.CreateTask(context.Background(), &domain.Task{
		TaskID:     id,
		Topic:      "topic " + id,
		Status:     status,
		Priority:   5,
		MaxRetries: 3,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
}

func getTask(t *testing.T, st *memory.Store, id string) *domain.Task {
	t.Helper()
	task, err := st.GetTask(context.Background(), id)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	return task
}

// --- Submit Tests ---

func TestPool_Submit_OverflowFailsWithoutBlocking(t *testing.T) {
	p, _ := newTestPool(t, &fakeGenerator{}, Config{Workers: 2, QueueSize: 2})

	for i := 0; i < p.Capacity(); i++ {
		if err := p.Submit(fmt.Sprintf("task-%d", i)); err != nil {
			t.Fatalf("submit %d: unexpected error: %v", i, err)
		}
	}

	done := make(chan error, 1)
	go func() { done <- p.Submit("overflow") }()

	select {
	case err := <-done:
		if !errors.Is(err, ErrQueueFull) {
			t.Errorf("expected ErrQueueFull, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on full queues")
	}
}

func TestPool_Submit_RoundRobin(t *testing.T) {
	p, _ := newTestPool(t, &fakeGenerator{}, Config{Workers: 3, QueueSize: 5})

	for i := 0; i < 6; i++ {
		if err := p.Submit(fmt.Sprintf("task-%d", i)); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	for _, s := range p.Stats() {
		if s.QueueLen != 2 {
			t.Errorf("worker %d: expected 2 queued, got %d", s.ID, s.QueueLen)
		}
	}
}

func TestPool_Submit_FallsThroughToNextWorker(t *testing.T) {
	p, _ := newTestPool(t, &fakeGenerator{}, Config{Workers: 2, QueueSize: 1})

	// Заполняем очередь первого воркера напрямую
	p.workers[0].enqueue("direct")

	if err := p.Submit("a"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := len(p.workers[1].queue); got != 1 {
		t.Errorf("expected task in second worker queue, got len %d", got)
	}
}

func TestPool_Submit_Duplicate(t *testing.T) {
	p, _ := newTestPool(t, &fakeGenerator{}, Config{Workers: 1, QueueSize: 5})

	if err := p.Submit("same"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := p.Submit("same"); !errors.Is(err, ErrAlreadyQueued) {
		t.Errorf("expected ErrAlreadyQueued, got %v", err)
	}
}

func TestPool_Submit_AfterStop(t *testing.T) {
	p, _ := newTestPool(t, &fakeGenerator{}, Config{Workers: 1, PollInterval: 10 * time.Millisecond})
	p.Start(context.Background())
	p.Stop()

	if err := p.Submit("late"); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("expected ErrPoolStopped, got %v", err)
	}
}

// --- processTask Tests ---

func TestWorker_ProcessTask_Submits(t *testing.T) {
	gen := &fakeGenerator{}
	p, st := newTestPool(t, gen, Config{Workers: 1})
	createTask(t, st, "t1", domain.TaskStatusPending)

	p.workers[0].processTask(context.Background(), "t1")

	task := getTask(t, st, "t1")
	if task.Status != domain.TaskStatusSubmitted {
		t.Errorf("expected submitted, got %s", task.Status)
	}
	if task.SubmittedAt == nil || task.TimeoutAt == nil {
		t.Error("expected submitted_at and timeout_at to be set")
	}
	if ids := gen.createdIDs(); len(ids) != 1 || ids[0] != "t1" {
		t.Errorf("expected generator call for t1, got %v", ids)
	}
}

func TestWorker_ProcessTask_SkipsNonPending(t *testing.T) {
	statuses := []domain.TaskStatus{
		domain.TaskStatusSubmitted,
		domain.TaskStatusProcessing,
		domain.TaskStatusCompleted,
		domain.TaskStatusCancelled,
	}

	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			gen := &fakeGenerator{}
			p, st := newTestPool(t, gen, Config{Workers: 1})
			createTask(t, st, "t1", status)

			p.workers[0].processTask(context.Background(), "t1")

			if gen.calls.Load() != 0 {
				t.Errorf("generator should not be called for %s task", status)
			}
			if got := getTask(t, st, "t1").Status; got != status {
				t.Errorf("status changed: %s -> %s", status, got)
			}
		})
	}
}

func TestWorker_ProcessTask_GeneratorErrorRetries(t *testing.T) {
	gen := &fakeGenerator{err: generator.ErrTimeout}
	p, st := newTestPool(t, gen, Config{Workers: 1})
	createTask(t, st, "t1", domain.TaskStatusPending)

	p.workers[0].processTask(context.Background(), "t1")

	task := getTask(t, st, "t1")
	if task.Status != domain.TaskStatusPending {
		t.Errorf("expected pending after failed submission, got %s", task.Status)
	}
	if task.RetryCount != 1 {
		t.Errorf("expected retry_count 1, got %d", task.RetryCount)
	}
	if task.ErrorMessage == "" {
		t.Error("expected error message to be recorded")
	}
	if p.workers[0].failed.Load() != 1 {
		t.Errorf("expected failed counter 1, got %d", p.workers[0].failed.Load())
	}
}

func TestWorker_ProcessTask_UnknownTask(t *testing.T) {
	gen := &fakeGenerator{}
	p, _ := newTestPool(t, gen, Config{Workers: 1})

	p.workers[0].processTask(context.Background(), "missing")

	if gen.calls.Load() != 0 {
		t.Error("generator should not be called for unknown task")
	}
}

// --- poll Tests ---

func TestWorker_Poll_PriorityOrderAndCapacity(t *testing.T) {
	p, st := newTestPool(t, &fakeGenerator{}, Config{Workers: 1, QueueSize: 2, PollBatch: 10})
	ctx := context.Background()

	base := time.Now()
	for i, prio := range []int{1, 9, 5} {
		err := st.CreateTask(ctx, &domain.Task{
			TaskID:     fmt.Sprintf("p%d", prio),
			Status:     domain.TaskStatusPending,
			Priority:   prio,
			MaxRetries: 3,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("create task: %v", err)
		}
	}

	w := p.workers[0]
	if n := w.poll(ctx); n != 2 {
		t.Fatalf("expected 2 queued, got %d", n)
	}
	if first := <-w.queue; first != "p9" {
		t.Errorf("expected p9 first, got %s", first)
	}
	if second := <-w.queue; second != "p5" {
		t.Errorf("expected p5 second, got %s", second)
	}
}

func TestWorker_Poll_SkipsClaimed(t *testing.T) {
	p, st := newTestPool(t, &fakeGenerator{}, Config{Workers: 2, QueueSize: 5})
	createTask(t, st, "t1", domain.TaskStatusPending)

	if err := p.Submit("t1"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if n := p.workers[1].poll(context.Background()); n != 0 {
		t.Errorf("already queued task should not be polled again, got %d", n)
	}
}

// --- Lifecycle Tests ---

func TestPool_StartStop_DrainsStore(t *testing.T) {
	gen := &fakeGenerator{}
	p, st := newTestPool(t, gen, Config{Workers: 2, PollInterval: 10 * time.Millisecond})
	for i := 0; i < 5; i++ {
		createTask(t, st, fmt.Sprintf("t%d", i), domain.TaskStatusPending)
	}

	p.Start(context.Background())
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		pending, _ := st.ListPendingTasks(context.Background(), 10)
		if len(pending) == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	for i := 0; i < 5; i++ {
		if got := getTask(t, st, fmt.Sprintf("t%d", i)).Status; got != domain.TaskStatusSubmitted {
			t.Errorf("t%d: expected submitted, got %s", i, got)
		}
	}
	if calls := gen.calls.Load(); calls != 5 {
		t.Errorf("expected 5 generator calls, got %d", calls)
	}
}

func TestPool_Stop_BoundedWait(t *testing.T) {
	gen := &fakeGenerator{block: make(chan struct{})}
	defer close(gen.block)

	p, st := newTestPool(t, gen, Config{
		Workers:      1,
		PollInterval: 10 * time.Millisecond,
		StopTimeout:  50 * time.Millisecond,
	})
	createTask(t, st, "t1", domain.TaskStatusPending)

	p.Start(context.Background())

	// Ждём, пока воркер застрянет в вызове генератора
	deadline := time.Now().Add(time.Second)
	for gen.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if gen.calls.Load() == 0 {
		t.Fatal("generator was not called")
	}

	start := time.Now()
	p.Stop()
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Stop took %v, expected bounded wait", elapsed)
	}
}

// unsavedResults не может записать успешную отправку.
type unsavedResults struct {
	Results
}

func (unsavedResults) Submitted(context.Context, string) (*result.Outcome, error) {
	return nil, errors.New("connection reset")
}

func TestWorker_UnsavedSubmissionBacksOff(t *testing.T) {
	gen := &fakeGenerator{}
	st := memory.New()
	p := NewPool(Config{
		Workers:      1,
		PollInterval: 100 * time.Millisecond,
		Tasks:        st,
		Generator:    gen,
		Results:      unsavedResults{Results: result.New(result.Config{Store: st})},
	})
	createTask(t, st, "t1", domain.TaskStatusPending)

	if p.workers[0].processTask(context.Background(), "t1") {
		t.Fatal("expected unsaved submission to be reported")
	}
	gen.calls.Store(0)

	p.Start(context.Background())
	time.Sleep(250 * time.Millisecond)
	p.Stop()

	if got := getTask(t, st, "t1").Status; got != domain.TaskStatusPending {
		t.Errorf("expected task to stay pending, got %s", got)
	}
	// Одна отправка на интервал опроса, а не цикл без пауз
	if calls := gen.calls.Load(); calls > 4 {
		t.Errorf("expected at most 4 generator calls, got %d", calls)
	}
}
