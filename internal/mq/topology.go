package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	// ExchangeEvents — доменные события (topic), слушают внешние подписчики.
	ExchangeEvents Exchange = "contenthub.events"

	// ExchangeGenerator — события внешнего генератора.
	ExchangeGenerator Exchange = "contenthub.generator"

	ExchangeDLQ Exchange = "contenthub.dlq"
)

// Queues — имена очередей.
const (
	QueueGeneratorEvents Queue = "generator.events"
	QueueDLQGenerator    Queue = "dlq.generator"
)

// Routing keys.
const (
	RoutingKeyTaskCompleted    RoutingKey = "task.completed"
	RoutingKeyTaskFailed       RoutingKey = "task.failed"
	RoutingKeyTaskRetried      RoutingKey = "task.retried"
	RoutingKeyTaskTimeout      RoutingKey = "task.timeout"
	RoutingKeyTaskCancelled    RoutingKey = "task.cancelled"
	RoutingKeyContentPublished RoutingKey = "content.published"

	RoutingKeyGeneratorEvent RoutingKey = "event"
	RoutingKeyDLQGenerator   RoutingKey = "generator"
)

// SetupTopology объявляет exchanges, queues и bindings. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeEvents, "topic"},
		{ExchangeGenerator, "direct"},
		{ExchangeDLQ, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}
	return nil
}

func declareQueues(ch *amqp.Channel) error {
	// Необрабатываемые события генератора уходят в DLQ
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQGenerator),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		{QueueGeneratorEvents, dlqArgs},
		{QueueDLQGenerator, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}
	return nil
}

func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueGeneratorEvents, RoutingKeyGeneratorEvent, ExchangeGenerator},
		{QueueDLQGenerator, RoutingKeyDLQGenerator, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}
