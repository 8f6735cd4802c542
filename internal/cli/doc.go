// Package cli содержит cobra-команды процесса contenthub.
//
// # Команды
//
//   - worker    — пул воркеров, поллер статусов, потребитель RabbitMQ, /metrics
//   - scheduler — планировщик ScheduledTask, /metrics
//   - api       — HTTP API (webhook, задачи, ручные запуски)
//   - migrate   — миграции БД (up, down, status, version)
//   - executors — список зарегистрированных executor'ов
//
// Каждая команда создаётся фабричной функцией (NewWorkerCmd и т.д.),
// принимающей Env — замыкания для ленивой загрузки конфигурации
// и сборки App после парсинга PersistentFlags.
//
// # Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
package cli
