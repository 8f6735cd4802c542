package worker

import "errors"

// Ошибки воркера.
var (
	// ErrQueueFull — все очереди заполнены.
	ErrQueueFull = errors.New("worker queue full")

	// ErrPoolStopped — пул остановлен или не запущен.
	ErrPoolStopped = errors.New("worker pool stopped")

	// ErrAlreadyQueued — задача уже в очереди или обрабатывается.
	ErrAlreadyQueued = errors.New("task already queued")
)
