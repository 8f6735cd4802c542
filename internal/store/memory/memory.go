// Package memory — реализация store.Store в памяти.
//
// Все методы возвращают копии записей, поэтому вызывающий код работает
// с ними так же, как с записями из БД: изменения видны только после Update.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/store"
)

// Store — потокобезопасное хранилище в памяти.
type Store struct {
	mu sync.RWMutex

	tasks      map[string]*domain.Task
	contents   map[int64]*domain.Content
	entries    map[int64]*domain.PublishPoolEntry
	scheduled  map[int64]*domain.ScheduledTask
	executions []*domain.TaskExecution

	nextTaskID      int64
	nextContentID   int64
	nextEntryID     int64
	nextScheduledID int64
	nextExecutionID int64

	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{
		tasks:     make(map[string]*domain.Task),
		contents:  make(map[int64]*domain.Content),
		entries:   make(map[int64]*domain.PublishPoolEntry),
		scheduled: make(map[int64]*domain.ScheduledTask),
		now:       time.Now,
	}
}

// --- Tasks ---

func (s *Store) CreateTask(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.TaskID]; ok {
		return fmt.Errorf("task %s: %w", task.TaskID, store.ErrAlreadyExists)
	}
	s.nextTaskID++
	task.ID = s.nextTaskID
	now := s.now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	s.tasks[task.TaskID] = task.Clone()
	return nil
}

func (s *Store) GetTask(_ context.Context, taskID string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return task.Clone(), nil
}

func (s *Store) UpdateTask(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.TaskID]; !ok {
		return store.ErrNotFound
	}
	task.UpdatedAt = s.now()
	s.tasks[task.TaskID] = task.Clone()
	return nil
}

func (s *Store) ListPendingTasks(_ context.Context, limit int) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Task
	for _, t := range s.tasks {
		if t.Status == domain.TaskStatusPending {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListInFlightTasks(_ context.Context) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Task
	for _, t := range s.tasks {
		if t.Status.IsInFlight() {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- Contents ---

func (s *Store) CreateContent(_ context.Context, content *domain.Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextContentID++
	content.ID = s.nextContentID
	now := s.now()
	if content.CreatedAt.IsZero() {
		content.CreatedAt = now
	}
	content.UpdatedAt = now
	c := *content
	s.contents[c.ID] = &c
	return nil
}

func (s *Store) GetContent(_ context.Context, id int64) (*domain.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *Store) GetContentByTask(_ context.Context, taskID string) (*domain.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.Content
	for _, c := range s.contents {
		if c.TaskID == taskID && (found == nil || c.ID < found.ID) {
			found = c
		}
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	out := *found
	return &out, nil
}

func (s *Store) UpdateContent(_ context.Context, content *domain.Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contents[content.ID]; !ok {
		return store.ErrNotFound
	}
	content.UpdatedAt = s.now()
	c := *content
	s.contents[c.ID] = &c
	return nil
}

// ContentCount возвращает количество записей контента.
func (s *Store) ContentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contents)
}

// --- Publish pool ---

func (s *Store) AddPoolEntry(_ context.Context, entry *domain.PublishPoolEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEntryID++
	entry.ID = s.nextEntryID
	now := s.now()
	if entry.AddedAt.IsZero() {
		entry.AddedAt = now
	}
	entry.UpdatedAt = now
	s.entries[entry.ID] = cloneEntry(entry)
	return nil
}

func (s *Store) GetPoolEntry(_ context.Context, id int64) (*domain.PublishPoolEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneEntry(e), nil
}

func (s *Store) UpdatePoolEntry(_ context.Context, entry *domain.PublishPoolEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[entry.ID]; !ok {
		return store.ErrNotFound
	}
	entry.UpdatedAt = s.now()
	s.entries[entry.ID] = cloneEntry(entry)
	return nil
}

func (s *Store) ClaimPoolEntry(_ context.Context, id int64, now time.Time) (*domain.PublishPoolEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if e.Status != domain.PoolStatusPending {
		return nil, store.ErrConflict
	}
	e.Status = domain.PoolStatusPublishing
	e.UpdatedAt = now
	return cloneEntry(e), nil
}

func (s *Store) ListEligibleEntries(_ context.Context, now time.Time, limit int) ([]*domain.PublishPoolEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.PublishPoolEntry
	for _, e := range s.entries {
		if e.IsEligible(now) {
			out = append(out, cloneEntry(e))
		}
	}
	SortEntries(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) FindActiveEntry(_ context.Context, contentID int64) (*domain.PublishPoolEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ContentID == contentID && e.Status.IsActive() {
			return cloneEntry(e), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) PoolStats(_ context.Context) (domain.PoolStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats domain.PoolStats
	for _, e := range s.entries {
		switch e.Status {
		case domain.PoolStatusPending:
			stats.Pending++
		case domain.PoolStatusPublishing:
			stats.Publishing++
		case domain.PoolStatusPublished:
			stats.Published++
		case domain.PoolStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// SortEntries упорядочивает записи пула:
// priority DESC, scheduled_at ASC (NULL первыми), added_at ASC.
func SortEntries(entries []*domain.PublishPoolEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		switch {
		case a.ScheduledAt == nil && b.ScheduledAt != nil:
			return true
		case a.ScheduledAt != nil && b.ScheduledAt == nil:
			return false
		case a.ScheduledAt != nil && !a.ScheduledAt.Equal(*b.ScheduledAt):
			return a.ScheduledAt.Before(*b.ScheduledAt)
		}
		if !a.AddedAt.Equal(b.AddedAt) {
			return a.AddedAt.Before(b.AddedAt)
		}
		return a.ID < b.ID
	})
}

func cloneEntry(e *domain.PublishPoolEntry) *domain.PublishPoolEntry {
	c := *e
	if e.ScheduledAt != nil {
		t := *e.ScheduledAt
		c.ScheduledAt = &t
	}
	if e.PublishedAt != nil {
		t := *e.PublishedAt
		c.PublishedAt = &t
	}
	return &c
}

// --- Scheduled tasks ---

func (s *Store) CreateScheduledTask(_ context.Context, st *domain.ScheduledTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextScheduledID++
	st.ID = s.nextScheduledID
	now := s.now()
	if st.CreatedAt.IsZero() {
		st.CreatedAt = now
	}
	st.UpdatedAt = now
	s.scheduled[st.ID] = cloneScheduled(st)
	return nil
}

func (s *Store) GetScheduledTask(_ context.Context, id int64) (*domain.ScheduledTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.scheduled[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneScheduled(st), nil
}

func (s *Store) ListActiveScheduledTasks(_ context.Context) ([]*domain.ScheduledTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.ScheduledTask
	for _, st := range s.scheduled {
		if st.IsActive && !st.IsManual() {
			out = append(out, cloneScheduled(st))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateScheduleState(_ context.Context, st *domain.ScheduledTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.scheduled[st.ID]
	if !ok {
		return store.ErrNotFound
	}
	upd := cloneScheduled(cur)
	next := cloneScheduled(st)
	upd.NextRunAt = next.NextRunAt
	upd.LastRunAt = next.LastRunAt
	upd.UpdatedAt = s.now()
	s.scheduled[st.ID] = upd
	return nil
}

func cloneScheduled(st *domain.ScheduledTask) *domain.ScheduledTask {
	c := *st
	c.Params = domain.CloneMap(st.Params)
	if st.NextRunAt != nil {
		t := *st.NextRunAt
		c.NextRunAt = &t
	}
	if st.LastRunAt != nil {
		t := *st.LastRunAt
		c.LastRunAt = &t
	}
	return &c
}

// --- Executions ---

func (s *Store) CreateExecution(_ context.Context, exec *domain.TaskExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextExecutionID++
	exec.ID = s.nextExecutionID
	c := *exec
	c.Result = domain.CloneMap(exec.Result)
	s.executions = append(s.executions, &c)
	return nil
}

func (s *Store) ListExecutions(_ context.Context, scheduledTaskID int64, limit int) ([]*domain.TaskExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.TaskExecution
	for i := len(s.executions) - 1; i >= 0; i-- {
		e := s.executions[i]
		if e.ScheduledTaskID != scheduledTaskID {
			continue
		}
		c := *e
		c.Result = domain.CloneMap(e.Result)
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
