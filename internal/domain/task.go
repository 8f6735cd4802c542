package domain

import (
	"time"
)

// Task — задача генерации контента во внешнем процессе.
//
// Task создаётся вызовом Submit, затем изменяется воркером (отправка),
// поллером или webhook'ом (результат). Финальные статусы: completed,
// failed/timeout после исчерпания попыток, cancelled.
type Task struct {
	// ID — внутренний идентификатор записи.
	ID int64 `json:"id"`

	// TaskID — внешний идентификатор, передаётся генератору и приходит в webhook.
	TaskID string `json:"task_id"`

	// AccountID — аккаунт, для которого генерируется контент.
	AccountID int64 `json:"account_id"`

	// Параметры генерации.
	Topic        string `json:"topic"`
	Category     string `json:"category,omitempty"`
	Requirements string `json:"requirements,omitempty"`
	Tone         string `json:"tone,omitempty"`

	// Status — текущий статус задачи.
	Status TaskStatus `json:"status"`

	// Priority — приоритет 1–10, больше = раньше.
	Priority int `json:"priority"`

	// RetryCount — количество выполненных повторов. Всегда <= MaxRetries.
	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	// AutoApprove — одобрить контент и поставить в пул публикаций сразу после генерации.
	AutoApprove bool `json:"auto_approve"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// TimeoutAt — после этого момента поллер переводит задачу в timeout.
	TimeoutAt *time.Time `json:"timeout_at,omitempty"`

	// Result — ответ генератора как есть.
	Result map[string]any `json:"result,omitempty"`

	// Progress — последний снимок прогресса из progress-событий.
	Progress map[string]any `json:"progress,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`

	// CallbackURL — адрес webhook, если настроен push-канал.
	CallbackURL string `json:"callback_url,omitempty"`

	// ContentID — созданный Content после completed.
	ContentID *int64 `json:"content_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsFinished возвращает true, если задача в финальном статусе.
func (t *Task) IsFinished() bool {
	return t.Status.IsTerminal()
}

// CanRetry проверяет, остались ли попытки.
func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
}

// IsTimedOut проверяет, истёк ли дедлайн задачи.
func (t *Task) IsTimedOut(now time.Time) bool {
	return t.TimeoutAt != nil && now.After(*t.TimeoutAt)
}

// MarkSubmitted переводит задачу в submitted.
// Дедлайн отсчитывается от момента отправки.
func (t *Task) MarkSubmitted(now time.Time, timeout time.Duration) {
	t.Status = TaskStatusSubmitted
	t.SubmittedAt = &now
	if timeout > 0 {
		deadline := now.Add(timeout)
		t.TimeoutAt = &deadline
	}
	t.ErrorMessage = ""
}

// MarkStarted фиксирует первое появление задачи в работе.
// Если задача была submitted, она становится processing.
func (t *Task) MarkStarted(now time.Time) {
	if t.StartedAt == nil {
		t.StartedAt = &now
	}
	if t.Status == TaskStatusSubmitted {
		t.Status = TaskStatusProcessing
	}
}

// MarkCompleted переводит задачу в completed и привязывает Content.
func (t *Task) MarkCompleted(now time.Time, contentID int64, result map[string]any) {
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.ContentID = &contentID
	t.Result = result
	t.ErrorMessage = ""
}

// MarkFailed переводит задачу в failed с ошибкой.
func (t *Task) MarkFailed(now time.Time, msg string) {
	t.Status = TaskStatusFailed
	t.CompletedAt = &now
	t.ErrorMessage = msg
}

// MarkTimeout переводит задачу в timeout.
func (t *Task) MarkTimeout(now time.Time, msg string) {
	t.Status = TaskStatusTimeout
	t.CompletedAt = &now
	t.ErrorMessage = msg
}

// MarkCancelled переводит задачу в cancelled.
func (t *Task) MarkCancelled(now time.Time) {
	t.Status = TaskStatusCancelled
	t.CompletedAt = &now
}

// ResetForRetry возвращает задачу в pending для следующей попытки.
// Очищает временные метки и выставляет новый дедлайн.
// Ошибка последней попытки сохраняется в ErrorMessage.
func (t *Task) ResetForRetry(now time.Time, timeout time.Duration) bool {
	if !t.CanRetry() {
		return false
	}
	t.Status = TaskStatusPending
	t.RetryCount++
	t.SubmittedAt = nil
	t.StartedAt = nil
	t.CompletedAt = nil
	t.TimeoutAt = nil
	if timeout > 0 {
		deadline := now.Add(timeout)
		t.TimeoutAt = &deadline
	}
	return true
}

// Clone возвращает глубокую копию задачи.
func (t *Task) Clone() *Task {
	c := *t
	c.SubmittedAt = cloneTime(t.SubmittedAt)
	c.StartedAt = cloneTime(t.StartedAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.TimeoutAt = cloneTime(t.TimeoutAt)
	c.Result = CloneMap(t.Result)
	c.Progress = CloneMap(t.Progress)
	if t.ContentID != nil {
		id := *t.ContentID
		c.ContentID = &id
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// CloneMap копирует map рекурсивно (вложенные map и slice).
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
