// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go          — Handler с DI (сервисы, receiver, logger)
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — middleware (logging, recovery)
//   - response.go         — унифицированные JSON-ответы и обработка ошибок
//   - dto.go              — Data Transfer Objects (request/response)
//   - task_handler.go     — обработчики для /tasks
//   - webhook_handler.go  — приём событий генератора
//   - schedule_handler.go — ручной запуск ScheduledTask
//   - pool_handler.go     — ручная публикация из пула
//
// API тонкий: вся логика живёт в сервисах, обработчики только
// разбирают запрос и отображают ошибки в HTTP статусы.
package api
