// Package mq — RabbitMQ: доменные события и события генератора.
//
// Структура:
//   - connection.go — соединение с переподключением
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — публикация сообщений
//   - events.go     — EventNotifier: task.* и content.published
//   - generator.go  — потребитель generator.events (альтернатива HTTP webhook)
//
// Exchanges:
//   - contenthub.events    — доменные события (topic)
//   - contenthub.generator — события генератора → generator.events
//   - contenthub.dlq       — dead letter queue
package mq
