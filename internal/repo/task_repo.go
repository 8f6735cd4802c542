package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
)

// TaskRepo — репозиторий задач генерации.
type TaskRepo struct {
	pool *pgxpool.Pool
}

// NewTaskRepo создаёт новый TaskRepo.
func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

const taskColumns = `
	id, task_id, account_id, topic, category, requirements, tone, status,
	priority, retry_count, max_retries, auto_approve,
	submitted_at, started_at, completed_at, timeout_at,
	result, progress, error_message, callback_url, content_id,
	created_at, updated_at`

// CreateTask создаёт задачу и заполняет ID и временные метки.
func (r *TaskRepo) CreateTask(ctx context.Context, task *domain.Task) error {
	resultJSON, err := marshalJSON(task.Result)
	if err != nil {
		return err
	}
	progressJSON, err := marshalJSON(task.Progress)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	query := `
		INSERT INTO tasks (
			task_id, account_id, topic, category, requirements, tone, status,
			priority, retry_count, max_retries, auto_approve,
			submitted_at, started_at, completed_at, timeout_at,
			result, progress, error_message, callback_url, content_id,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22)
		RETURNING id
	`
	err = r.pool.QueryRow(ctx, query,
		task.TaskID,
		task.AccountID,
		task.Topic,
		task.Category,
		task.Requirements,
		task.Tone,
		task.Status,
		task.Priority,
		task.RetryCount,
		task.MaxRetries,
		task.AutoApprove,
		task.SubmittedAt,
		task.StartedAt,
		task.CompletedAt,
		task.TimeoutAt,
		resultJSON,
		progressJSON,
		task.ErrorMessage,
		task.CallbackURL,
		task.ContentID,
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.ID)
	return mapErr("insert task", err)
}

// GetTask возвращает задачу по task_id.
func (r *TaskRepo) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE task_id = $1`
	return scanTask(r.pool.QueryRow(ctx, query, taskID))
}

// UpdateTask сохраняет изменяемые поля задачи.
func (r *TaskRepo) UpdateTask(ctx context.Context, task *domain.Task) error {
	resultJSON, err := marshalJSON(task.Result)
	if err != nil {
		return err
	}
	progressJSON, err := marshalJSON(task.Progress)
	if err != nil {
		return err
	}
	task.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE tasks
		SET status = $2, priority = $3, retry_count = $4, max_retries = $5,
		    submitted_at = $6, started_at = $7, completed_at = $8, timeout_at = $9,
		    result = $10, progress = $11, error_message = $12, content_id = $13,
		    updated_at = $14
		WHERE task_id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		task.TaskID,
		task.Status,
		task.Priority,
		task.RetryCount,
		task.MaxRetries,
		task.SubmittedAt,
		task.StartedAt,
		task.CompletedAt,
		task.TimeoutAt,
		resultJSON,
		progressJSON,
		task.ErrorMessage,
		task.ContentID,
		task.UpdatedAt,
	)
	if err != nil {
		return mapErr("update task", err)
	}
	return requireRow(tag)
}

// ListPendingTasks возвращает pending задачи по priority DESC, created_at ASC.
func (r *TaskRepo) ListPendingTasks(ctx context.Context, limit int) ([]*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE status = 'pending'
		ORDER BY priority DESC, created_at ASC, id ASC
		LIMIT $1
	`
	return r.queryTasks(ctx, "list pending tasks", query, limitOrAll(limit))
}

// ListInFlightTasks возвращает submitted и processing задачи.
func (r *TaskRepo) ListInFlightTasks(ctx context.Context) ([]*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE status IN ('submitted', 'processing')
		ORDER BY id ASC
	`
	return r.queryTasks(ctx, "list in-flight tasks", query)
}

func (r *TaskRepo) queryTasks(ctx context.Context, op, query string, args ...any) ([]*domain.Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, mapErr(op, rows.Err())
}

// --- Helpers ---

func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	var resultJSON, progressJSON []byte

	err := row.Scan(
		&task.ID,
		&task.TaskID,
		&task.AccountID,
		&task.Topic,
		&task.Category,
		&task.Requirements,
		&task.Tone,
		&task.Status,
		&task.Priority,
		&task.RetryCount,
		&task.MaxRetries,
		&task.AutoApprove,
		&task.SubmittedAt,
		&task.StartedAt,
		&task.CompletedAt,
		&task.TimeoutAt,
		&resultJSON,
		&progressJSON,
		&task.ErrorMessage,
		&task.CallbackURL,
		&task.ContentID,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr("scan task", err)
	}

	if task.Result, err = unmarshalJSON(resultJSON); err != nil {
		return nil, fmt.Errorf("task %s result: %w", task.TaskID, err)
	}
	if task.Progress, err = unmarshalJSON(progressJSON); err != nil {
		return nil, fmt.Errorf("task %s progress: %w", task.TaskID, err)
	}
	return &task, nil
}

// limitOrAll переводит limit <= 0 в NULL: LIMIT NULL означает без ограничения.
func limitOrAll(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}
