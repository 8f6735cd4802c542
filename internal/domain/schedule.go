package domain

import (
	"time"
)

// IntervalUnit — единица измерения интервала ScheduledTask.
type IntervalUnit string

const (
	IntervalSeconds IntervalUnit = "seconds"
	IntervalMinutes IntervalUnit = "minutes"
	IntervalHours   IntervalUnit = "hours"
	IntervalDays    IntervalUnit = "days"
)

// Duration возвращает длительность n единиц. Для неизвестной единицы возвращает 0.
func (u IntervalUnit) Duration(n int) time.Duration {
	switch u {
	case IntervalSeconds:
		return time.Duration(n) * time.Second
	case IntervalMinutes, "":
		return time.Duration(n) * time.Minute
	case IntervalHours:
		return time.Duration(n) * time.Hour
	case IntervalDays:
		return time.Duration(n) * 24 * time.Hour
	default:
		return 0
	}
}

// ScheduledTask — определение периодической задачи (не запуск).
//
// Триггер — одно из:
// - CronExpression: "0 9 * * *" (каждый день в 9:00)
// - Interval + IntervalUnit: каждые N единиц
// - ничего: только ручной запуск
//
// Scheduler проверяет NextRunAt и вызывает executor типа TaskType.
type ScheduledTask struct {
	// ID — идентификатор определения.
	ID int64 `json:"id"`

	// Name — имя для операторов и логов.
	Name string `json:"name"`

	Description string `json:"description,omitempty"`

	// TaskType — ключ executor'а в Registry.
	TaskType string `json:"task_type"`

	// CronExpression — cron-выражение из 5 полей.
	// Если задано, Interval игнорируется.
	CronExpression string `json:"cron_expression,omitempty"`

	// Interval — количество единиц IntervalUnit между запусками.
	Interval     int          `json:"interval,omitempty"`
	IntervalUnit IntervalUnit `json:"interval_unit,omitempty"`

	// Timezone — часовой пояс для cron. По умолчанию UTC.
	Timezone string `json:"timezone,omitempty"`

	// Params — параметры executor'а.
	Params map[string]any `json:"params,omitempty"`

	// IsActive — неактивные задачи scheduler пропускает (ручной запуск разрешён).
	IsActive bool `json:"is_active"`

	// NextRunAt — время следующего запуска.
	NextRunAt *time.Time `json:"next_run_at,omitempty"`

	// LastRunAt — время последнего запуска.
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsCron возвращает true, если задача использует cron-выражение.
func (s *ScheduledTask) IsCron() bool {
	return s.CronExpression != ""
}

// IsInterval возвращает true, если задача использует интервал.
func (s *ScheduledTask) IsInterval() bool {
	return s.CronExpression == "" && s.Interval > 0
}

// IsManual возвращает true, если у задачи нет триггера.
func (s *ScheduledTask) IsManual() bool {
	return !s.IsCron() && !s.IsInterval()
}

// IsDue проверяет, пора ли запускать.
func (s *ScheduledTask) IsDue(now time.Time) bool {
	if !s.IsActive || s.IsManual() {
		return false
	}
	if s.NextRunAt == nil {
		return false
	}
	return !now.Before(*s.NextRunAt)
}

// RecordRun записывает время запуска и следующий запуск.
// nextRun == nil означает, что следующего запуска нет (ручная задача).
func (s *ScheduledTask) RecordRun(now time.Time, nextRun *time.Time) {
	s.LastRunAt = &now
	s.NextRunAt = nextRun
	s.UpdatedAt = now
}

// TaskExecution — одна запись истории запусков ScheduledTask.
// Пишется один раз после завершения запуска и больше не изменяется.
type TaskExecution struct {
	ID int64 `json:"id"`

	ScheduledTaskID int64  `json:"scheduled_task_id"`
	TaskType        string `json:"task_type"`

	// Trigger — "schedule" или "manual".
	Trigger string `json:"trigger"`

	Status ExecutionStatus `json:"status"`

	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`

	// Message — сообщение executor'а.
	Message string `json:"message,omitempty"`

	// Result — снимок ExecutionResult.Data.
	Result map[string]any `json:"result,omitempty"`

	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)
