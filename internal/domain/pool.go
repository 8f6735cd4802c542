package domain

import (
	"time"
)

// PublishPoolEntry — запись в пуле публикаций.
//
// Выборка: status = pending и (ScheduledAt == nil или ScheduledAt <= now),
// порядок: Priority DESC, ScheduledAt ASC, AddedAt ASC.
type PublishPoolEntry struct {
	ID int64 `json:"id"`

	ContentID int64 `json:"content_id"`

	// Priority — больше = раньше.
	Priority int `json:"priority"`

	// ScheduledAt — не публиковать раньше. nil = готово сейчас.
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`

	Status PoolStatus `json:"status"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	LastError string `json:"last_error,omitempty"`

	// ExternalID — log_id или media_id из ответа API публикации.
	ExternalID string `json:"external_id,omitempty"`

	AddedAt     time.Time  `json:"added_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsEligible проверяет, можно ли брать запись в автоматическую публикацию.
func (e *PublishPoolEntry) IsEligible(now time.Time) bool {
	if e.Status != PoolStatusPending {
		return false
	}
	return e.ScheduledAt == nil || !e.ScheduledAt.After(now)
}

// RetriesExhausted возвращает true, если попытки закончились.
func (e *PublishPoolEntry) RetriesExhausted() bool {
	return e.RetryCount >= e.MaxRetries
}

// MarkPublished переводит запись в published.
func (e *PublishPoolEntry) MarkPublished(now time.Time, externalID string) {
	e.Status = PoolStatusPublished
	e.ExternalID = externalID
	e.PublishedAt = &now
	e.LastError = ""
	e.UpdatedAt = now
}

// MarkFailed фиксирует неудачную попытку. Если попытки остались,
// запись возвращается в pending до следующего скана.
// Возвращает true, если запись снова в pending.
func (e *PublishPoolEntry) MarkFailed(now time.Time, msg string) bool {
	e.Status = PoolStatusFailed
	e.LastError = msg
	e.UpdatedAt = now
	if e.RetryCount < e.MaxRetries {
		e.RetryCount++
	}
	if e.RetryCount < e.MaxRetries {
		e.Status = PoolStatusPending
		return true
	}
	return false
}

// PoolStats — счётчики пула по статусам.
type PoolStats struct {
	Pending    int `json:"pending"`
	Publishing int `json:"publishing"`
	Published  int `json:"published"`
	Failed     int `json:"failed"`
}
