package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
)

// ScheduleRepo — репозиторий ScheduledTask и истории запусков.
type ScheduleRepo struct {
	pool *pgxpool.Pool
}

// NewScheduleRepo создаёт новый ScheduleRepo.
func NewScheduleRepo(pool *pgxpool.Pool) *ScheduleRepo {
	return &ScheduleRepo{pool: pool}
}

const scheduledColumns = `
	id, name, description, task_type, cron_expression, interval_value, interval_unit,
	timezone, params, is_active, next_run_at, last_run_at, created_at, updated_at`

// CreateScheduledTask создаёт определение задачи.
func (r *ScheduleRepo) CreateScheduledTask(ctx context.Context, st *domain.ScheduledTask) error {
	paramsJSON, err := marshalJSON(st.Params)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if st.CreatedAt.IsZero() {
		st.CreatedAt = now
	}
	st.UpdatedAt = now

	query := `
		INSERT INTO scheduled_tasks (
			name, description, task_type, cron_expression, interval_value, interval_unit,
			timezone, params, is_active, next_run_at, last_run_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	err = r.pool.QueryRow(ctx, query,
		st.Name,
		st.Description,
		st.TaskType,
		st.CronExpression,
		st.Interval,
		st.IntervalUnit,
		st.Timezone,
		paramsJSON,
		st.IsActive,
		st.NextRunAt,
		st.LastRunAt,
		st.CreatedAt,
		st.UpdatedAt,
	).Scan(&st.ID)
	return mapErr("insert scheduled task", err)
}

// GetScheduledTask возвращает определение по ID.
func (r *ScheduleRepo) GetScheduledTask(ctx context.Context, id int64) (*domain.ScheduledTask, error) {
	query := `SELECT ` + scheduledColumns + ` FROM scheduled_tasks WHERE id = $1`
	return scanScheduled(r.pool.QueryRow(ctx, query, id))
}

// ListActiveScheduledTasks возвращает активные задачи с cron или интервалом.
func (r *ScheduleRepo) ListActiveScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error) {
	query := `
		SELECT ` + scheduledColumns + `
		FROM scheduled_tasks
		WHERE is_active AND (cron_expression <> '' OR interval_value > 0)
		ORDER BY id ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, mapErr("list scheduled tasks", err)
	}
	defer rows.Close()

	var out []*domain.ScheduledTask
	for rows.Next() {
		st, err := scanScheduled(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, mapErr("list scheduled tasks", rows.Err())
}

// UpdateScheduleState сохраняет только next_run_at и last_run_at.
func (r *ScheduleRepo) UpdateScheduleState(ctx context.Context, st *domain.ScheduledTask) error {
	st.UpdatedAt = time.Now().UTC()
	tag, err := r.pool.Exec(ctx, `
		UPDATE scheduled_tasks
		SET next_run_at = $2, last_run_at = $3, updated_at = $4
		WHERE id = $1
	`, st.ID, st.NextRunAt, st.LastRunAt, st.UpdatedAt)
	if err != nil {
		return mapErr("update schedule state", err)
	}
	return requireRow(tag)
}

// CreateExecution добавляет запись истории запуска.
func (r *ScheduleRepo) CreateExecution(ctx context.Context, exec *domain.TaskExecution) error {
	resultJSON, err := marshalJSON(exec.Result)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO task_executions (
			scheduled_task_id, task_type, trigger_source, status, started_at, finished_at,
			duration_ms, message, result, error_code, error_message
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err = r.pool.QueryRow(ctx, query,
		exec.ScheduledTaskID,
		exec.TaskType,
		exec.Trigger,
		exec.Status,
		exec.StartedAt,
		exec.FinishedAt,
		exec.Duration.Milliseconds(),
		exec.Message,
		resultJSON,
		exec.ErrorCode,
		exec.ErrorMessage,
	).Scan(&exec.ID)
	return mapErr("insert execution", err)
}

// ListExecutions возвращает историю запусков, новые первыми.
func (r *ScheduleRepo) ListExecutions(ctx context.Context, scheduledTaskID int64, limit int) ([]*domain.TaskExecution, error) {
	query := `
		SELECT id, scheduled_task_id, task_type, trigger_source, status, started_at, finished_at,
		       duration_ms, message, result, error_code, error_message
		FROM task_executions
		WHERE scheduled_task_id = $1
		ORDER BY id DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, scheduledTaskID, limitOrAll(limit))
	if err != nil {
		return nil, mapErr("list executions", err)
	}
	defer rows.Close()

	var out []*domain.TaskExecution
	for rows.Next() {
		var exec domain.TaskExecution
		var durationMS int64
		var resultJSON []byte
		err := rows.Scan(
			&exec.ID,
			&exec.ScheduledTaskID,
			&exec.TaskType,
			&exec.Trigger,
			&exec.Status,
			&exec.StartedAt,
			&exec.FinishedAt,
			&durationMS,
			&exec.Message,
			&resultJSON,
			&exec.ErrorCode,
			&exec.ErrorMessage,
		)
		if err != nil {
			return nil, mapErr("scan execution", err)
		}
		exec.Duration = time.Duration(durationMS) * time.Millisecond
		if exec.Result, err = unmarshalJSON(resultJSON); err != nil {
			return nil, fmt.Errorf("execution %d result: %w", exec.ID, err)
		}
		out = append(out, &exec)
	}
	return out, mapErr("list executions", rows.Err())
}

func scanScheduled(row pgx.Row) (*domain.ScheduledTask, error) {
	var st domain.ScheduledTask
	var paramsJSON []byte
	err := row.Scan(
		&st.ID,
		&st.Name,
		&st.Description,
		&st.TaskType,
		&st.CronExpression,
		&st.Interval,
		&st.IntervalUnit,
		&st.Timezone,
		&paramsJSON,
		&st.IsActive,
		&st.NextRunAt,
		&st.LastRunAt,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr("scan scheduled task", err)
	}
	if st.Params, err = unmarshalJSON(paramsJSON); err != nil {
		return nil, fmt.Errorf("scheduled task %d params: %w", st.ID, err)
	}
	return &st, nil
}
