package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/oychao1988/content-hub-sub001/internal/result"
	"github.com/oychao1988/content-hub-sub001/internal/webhook"
)

const generatorConsumerTag = "content-hub.generator-events"

// EventReceiver применяет событие генератора.
type EventReceiver interface {
	Handle(ctx context.Context, ev webhook.Event, source string) (*webhook.Response, error)
}

// disposition — чем закончилась обработка доставки.
type disposition int

const (
	dispositionAck        disposition = iota
	dispositionRequeue                // временная ошибка, вернуть в очередь
	dispositionDeadLetter             // повтор не поможет, уходит в dlq.generator
)

func (d disposition) String() string {
	switch d {
	case dispositionAck:
		return "ack"
	case dispositionRequeue:
		return "requeue"
	case dispositionDeadLetter:
		return "dead_letter"
	default:
		return "unknown"
	}
}

// classify сопоставляет ошибку Handle с решением по доставке.
func classify(err error) disposition {
	switch {
	case err == nil:
		return dispositionAck
	case errors.Is(err, webhook.ErrInvalidEvent), errors.Is(err, webhook.ErrTaskNotFound):
		return dispositionDeadLetter
	default:
		return dispositionRequeue
	}
}

// GeneratorConsumer читает очередь generator.events и применяет события
// через тот же путь, что и HTTP webhook. Идемпотентность обеспечивает
// Result Handler: события для завершённых задач пропускаются.
type GeneratorConsumer struct {
	conn     *Connection
	rcv      EventReceiver
	logger   *slog.Logger
	prefetch int
}

// NewGeneratorConsumer создаёт потребителя событий генератора.
func NewGeneratorConsumer(conn *Connection, rcv EventReceiver, logger *slog.Logger, prefetch int) *GeneratorConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	if prefetch <= 0 {
		prefetch = 1
	}
	return &GeneratorConsumer{
		conn:     conn,
		rcv:      rcv,
		logger:   logger.With("queue", string(QueueGeneratorEvents)),
		prefetch: prefetch,
	}
}

// Run потребляет события до отмены ctx. После разрыва соединения
// подписка восстанавливается, когда Connection переподключится.
func (c *GeneratorConsumer) Run(ctx context.Context) error {
	for {
		reconnected := c.conn.Reconnected()
		deliveries, err := c.subscribe(ctx)
		if err != nil {
			c.logger.Error("failed to subscribe", "error", err)
		} else {
			c.logger.Info("generator consumer subscribed")
			for d := range deliveries {
				c.settle(ctx, d)
			}
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("delivery stream closed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-reconnected:
		}
	}
}

// subscribe выставляет prefetch и начинает потребление с ручным ack.
// Поток доставок закрывается при отмене ctx или потере канала.
func (c *GeneratorConsumer) subscribe(ctx context.Context) (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := ch.ConsumeWithContext(ctx, string(QueueGeneratorEvents), generatorConsumerTag,
		false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", QueueGeneratorEvents, err)
	}
	return deliveries, nil
}

// settle обрабатывает одну доставку и подтверждает её.
func (c *GeneratorConsumer) settle(ctx context.Context, d amqp.Delivery) disposition {
	ev, err := decodeGeneratorEvent(d.Body)
	if err != nil {
		c.logger.Error("undecodable generator event", "error", err, "body", string(d.Body))
		c.finish(d, dispositionDeadLetter)
		return dispositionDeadLetter
	}

	_, err = c.rcv.Handle(ctx, ev, result.SourceMQ)
	disp := classify(err)
	switch disp {
	case dispositionDeadLetter:
		c.logger.Error("generator event rejected", "task_id", ev.TaskID, "event", ev.Event, "error", err)
	case dispositionRequeue:
		c.logger.Warn("generator event failed, requeueing", "task_id", ev.TaskID, "event", ev.Event, "error", err)
	default:
		c.logger.Debug("generator event applied", "task_id", ev.TaskID, "event", ev.Event)
	}
	c.finish(d, disp)
	return disp
}

func (c *GeneratorConsumer) finish(d amqp.Delivery, disp disposition) {
	var err error
	switch disp {
	case dispositionAck:
		err = d.Ack(false)
	case dispositionDeadLetter:
		err = d.Reject(false)
	default:
		err = d.Nack(false, true)
	}
	if err != nil {
		c.logger.Warn("failed to settle delivery", "disposition", disp.String(), "error", err)
	}
}

// decodeGeneratorEvent принимает как конверт Message с payload-событием,
// так и событие без конверта ({"event": ..., "taskId": ...}).
func decodeGeneratorEvent(body []byte) (webhook.Event, error) {
	var env struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return webhook.Event{}, fmt.Errorf("unmarshal generator event: %w", err)
	}
	src := body
	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		src = env.Payload
	}

	var ev webhook.Event
	if err := json.Unmarshal(src, &ev); err != nil {
		return webhook.Event{}, fmt.Errorf("unmarshal generator event: %w", err)
	}
	return ev, nil
}
