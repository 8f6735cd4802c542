package domain

// TaskStatus — статус задачи генерации контента.
//
// Жизненный цикл:
//
//	pending → submitted → processing → completed
//	                                 ↘ failed  (retry → обратно в pending, пока retry_count < max_retries)
//	                                 ↘ timeout (retry → обратно в pending, пока retry_count < max_retries)
//	(любой нефинальный) → cancelled
type TaskStatus string

const (
	// TaskStatusPending — задача создана и ждёт отправки во внешний генератор.
	TaskStatusPending TaskStatus = "pending"

	// TaskStatusSubmitted — задача передана генератору.
	TaskStatusSubmitted TaskStatus = "submitted"

	// TaskStatusProcessing — генератор сообщил о ходе выполнения.
	TaskStatusProcessing TaskStatus = "processing"

	// TaskStatusCompleted — генератор вернул результат, создан Content.
	TaskStatusCompleted TaskStatus = "completed"

	// TaskStatusFailed — задача завершилась с ошибкой.
	TaskStatusFailed TaskStatus = "failed"

	// TaskStatusTimeout — истёк timeout_at.
	TaskStatusTimeout TaskStatus = "timeout"

	// TaskStatusCancelled — задача отменена оператором.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsTerminal возвращает true, если статус финальный.
//
// Webhook и поллер не изменяют задачи в финальном статусе.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusTimeout, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// IsInFlight возвращает true, если задача находится во внешнем генераторе.
func (s TaskStatus) IsInFlight() bool {
	return s == TaskStatusSubmitted || s == TaskStatusProcessing
}

// Valid проверяет, что статус известен.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusSubmitted, TaskStatusProcessing,
		TaskStatusCompleted, TaskStatusFailed, TaskStatusTimeout, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// PoolStatus — статус записи в пуле публикаций.
//
// Жизненный цикл:
//
//	pending → publishing → published
//	                     ↘ failed (→ pending, пока retry_count < max_retries)
type PoolStatus string

const (
	// PoolStatusPending — запись ждёт публикации.
	PoolStatusPending PoolStatus = "pending"

	// PoolStatusPublishing — запись захвачена публикатором.
	PoolStatusPublishing PoolStatus = "publishing"

	// PoolStatusPublished — контент опубликован.
	PoolStatusPublished PoolStatus = "published"

	// PoolStatusFailed — публикация не удалась, попытки исчерпаны.
	PoolStatusFailed PoolStatus = "failed"
)

// IsActive возвращает true, если запись ещё может быть опубликована.
func (s PoolStatus) IsActive() bool {
	return s == PoolStatusPending || s == PoolStatusPublishing
}

// ReviewStatus — статус модерации контента.
type ReviewStatus string

const (
	ReviewStatusDraft    ReviewStatus = "draft"
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
)

// PublishStatus — статус публикации контента.
type PublishStatus string

const (
	PublishStatusDraft     PublishStatus = "draft"
	PublishStatusQueued    PublishStatus = "queued"
	PublishStatusPublished PublishStatus = "published"
	PublishStatusFailed    PublishStatus = "failed"
)

// ExecutionStatus — итог запуска ScheduledTask.
type ExecutionStatus string

const (
	// ExecutionStatusSuccess — executor вернул success.
	ExecutionStatusSuccess ExecutionStatus = "success"

	// ExecutionStatusFailed — executor вернул ошибку, упал или не найден.
	ExecutionStatusFailed ExecutionStatus = "failed"

	// ExecutionStatusSkipped — запуск пропущен политикой перекрытия.
	ExecutionStatusSkipped ExecutionStatus = "skipped"
)
