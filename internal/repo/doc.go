// Package repo — реализация store.Store на PostgreSQL (pgx/v5).
//
// Структура:
//   - db.go            — пул соединений
//   - store.go         — Store, объединяющий репозитории
//   - task_repo.go     — задачи генерации
//   - content_repo.go  — контент
//   - pool_repo.go     — пул публикаций, захват записи условным UPDATE
//   - schedule_repo.go — ScheduledTask и история запусков
//   - migrate.go       — goose миграции из migrations/ (встроены в бинарник)
//
// Ошибки pgx переводятся в store.ErrNotFound, store.ErrAlreadyExists
// и store.ErrConflict.
package repo
