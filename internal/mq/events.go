package mq

import (
	"context"
	"log/slog"
	"time"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
)

// MessagePublisher публикует сообщение.
type MessagePublisher interface {
	Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error
}

// TaskEventPayload — событие изменения задачи генерации.
type TaskEventPayload struct {
	Event        string            `json:"event"`
	TaskID       string            `json:"task_id"`
	AccountID    int64             `json:"account_id"`
	Status       domain.TaskStatus `json:"status"`
	RetryCount   int               `json:"retry_count"`
	MaxRetries   int               `json:"max_retries"`
	ContentID    *int64            `json:"content_id,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// ContentPublishedPayload — событие успешной публикации.
type ContentPublishedPayload struct {
	EntryID     int64      `json:"entry_id"`
	ContentID   int64      `json:"content_id"`
	AccountID   int64      `json:"account_id"`
	ExternalID  string     `json:"external_id,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// EventNotifier публикует доменные события в ExchangeEvents.
//
// Ошибка публикации только логируется: состояние уже сохранено,
// подписчики событий не участвуют в обработке задач.
type EventNotifier struct {
	pub    MessagePublisher
	logger *slog.Logger
}

// NewEventNotifier создаёт EventNotifier.
func NewEventNotifier(pub MessagePublisher, logger *slog.Logger) *EventNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventNotifier{pub: pub, logger: logger}
}

// NotifyTask публикует событие задачи (task.completed, task.failed, ...).
func (n *EventNotifier) NotifyTask(ctx context.Context, event string, task *domain.Task) {
	payload := TaskEventPayload{
		Event:        event,
		TaskID:       task.TaskID,
		AccountID:    task.AccountID,
		Status:       task.Status,
		RetryCount:   task.RetryCount,
		MaxRetries:   task.MaxRetries,
		ContentID:    task.ContentID,
		ErrorMessage: task.ErrorMessage,
	}
	n.publish(ctx, RoutingKey(event), NewMessage(MessageTypeTaskEvent, payload))
}

// NotifyPublished публикует content.published.
func (n *EventNotifier) NotifyPublished(ctx context.Context, entry *domain.PublishPoolEntry, content *domain.Content) {
	payload := ContentPublishedPayload{
		EntryID:     entry.ID,
		ContentID:   content.ID,
		AccountID:   content.AccountID,
		ExternalID:  entry.ExternalID,
		PublishedAt: entry.PublishedAt,
	}
	n.publish(ctx, RoutingKeyContentPublished, NewMessage(MessageTypeContentPublished, payload))
}

func (n *EventNotifier) publish(ctx context.Context, key RoutingKey, msg *Message) {
	if err := n.pub.Publish(ctx, ExchangeEvents, key, msg); err != nil {
		n.logger.Warn("failed to publish domain event",
			"routing_key", key,
			"message_id", msg.ID,
			"error", err,
		)
	}
}
