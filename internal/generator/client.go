package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Таймауты по умолчанию.
const (
	defaultCreateTimeout = 30 * time.Second
	defaultQueryTimeout  = 10 * time.Second

	waitDelay = 500 * time.Millisecond
)

// Ошибки клиента генератора.
var (
	// ErrTimeout — процесс не завершился за отведённое время.
	ErrTimeout = errors.New("generator call timed out")

	// ErrProcessFailed — процесс завершился с ненулевым кодом.
	ErrProcessFailed = errors.New("generator process failed")

	// ErrInvalidOutput — stdout не является ожидаемым JSON.
	ErrInvalidOutput = errors.New("generator returned invalid output")

	// ErrRejected — процесс ответил success=false.
	ErrRejected = errors.New("generator rejected request")
)

// Нормализованные статусы генератора.
const (
	StatusPending    = "pending"
	StatusSubmitted  = "submitted"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Client — операции внешнего генератора.
type Client interface {
	Create(ctx context.Context, req CreateRequest) (*CreateResponse, error)
	Status(ctx context.Context, taskID string) (*StatusResponse, error)
	Result(ctx context.Context, taskID string) (map[string]any, error)
}

// CreateRequest — параметры задачи генерации.
type CreateRequest struct {
	TaskID       string
	AccountID    int64
	Topic        string
	Category     string
	Requirements string
	Tone         string
	CallbackURL  string
}

// CreateResponse — ответ на create.
type CreateResponse struct {
	Success bool           `json:"success"`
	TaskID  string         `json:"task_id"`
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Error   string         `json:"error"`
	Raw     map[string]any `json:"-"`
}

// StatusResponse — ответ на status.
type StatusResponse struct {
	TaskID   string `json:"task_id"`
	Status   string `json:"status"`
	Progress any    `json:"progress"`
	Error    string `json:"error"`
}

// ProgressMap возвращает прогресс как map. Число оборачивается в {"percent": n}.
func (r *StatusResponse) ProgressMap() map[string]any {
	switch p := r.Progress.(type) {
	case map[string]any:
		return p
	case nil:
		return nil
	default:
		return map[string]any{"percent": p}
	}
}

// Runner запускает процесс и возвращает stdout и stderr.
type Runner interface {
	Run(ctx context.Context, name string, args []string) (stdout, stderr []byte, err error)
}

// ExecRunner — Runner через os/exec.
type ExecRunner struct{}

// Run запускает процесс. Процесс убивается при отмене ctx.
func (ExecRunner) Run(ctx context.Context, name string, args []string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	// Дочерние процессы могут держать stdout открытым после kill
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Config — конфигурация CLI-клиента.
type Config struct {
	// Binary — исполняемый файл генератора.
	Binary string

	// BaseArgs — аргументы перед командой (например, путь к скрипту).
	BaseArgs []string

	// CreateTimeout — таймаут create. По умолчанию 30s.
	CreateTimeout time.Duration

	// QueryTimeout — таймаут status и result. По умолчанию 10s.
	QueryTimeout time.Duration

	// Runner — запуск процесса. По умолчанию ExecRunner.
	Runner Runner

	Logger *slog.Logger
}

// CLI — Client, вызывающий генератор как подпроцесс.
type CLI struct {
	binary        string
	baseArgs      []string
	createTimeout time.Duration
	queryTimeout  time.Duration
	runner        Runner
	logger        *slog.Logger
}

var _ Client = (*CLI)(nil)

// NewCLI создаёт CLI-клиента.
func NewCLI(cfg Config) *CLI {
	if cfg.CreateTimeout == 0 {
		cfg.CreateTimeout = defaultCreateTimeout
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = defaultQueryTimeout
	}
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &CLI{
		binary:        cfg.Binary,
		baseArgs:      cfg.BaseArgs,
		createTimeout: cfg.CreateTimeout,
		queryTimeout:  cfg.QueryTimeout,
		runner:        cfg.Runner,
		logger:        cfg.Logger,
	}
}

// Create отправляет задачу генератору и не ждёт её завершения.
func (c *CLI) Create(ctx context.Context, req CreateRequest) (*CreateResponse, error) {
	args := []string{"create", "--task-id", req.TaskID, "--topic", req.Topic}
	if req.Category != "" {
		args = append(args, "--category", req.Category)
	}
	if req.Requirements != "" {
		args = append(args, "--requirements", req.Requirements)
	}
	if req.Tone != "" {
		args = append(args, "--tone", req.Tone)
	}
	if req.CallbackURL != "" {
		args = append(args, "--callback-url", req.CallbackURL)
	}

	raw, err := c.call(ctx, c.createTimeout, args)
	if err != nil {
		return nil, err
	}

	var resp CreateResponse
	if err := decodeInto(raw, &resp); err != nil {
		return nil, err
	}
	resp.Raw = raw
	if resp.TaskID == "" {
		resp.TaskID = req.TaskID
	}
	if _, ok := raw["success"]; ok && !resp.Success {
		msg := firstNonEmpty(resp.Error, resp.Message, "no reason given")
		return nil, fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	resp.Success = true
	return &resp, nil
}

// Status возвращает текущий статус задачи во внешнем процессе.
func (c *CLI) Status(ctx context.Context, taskID string) (*StatusResponse, error) {
	raw, err := c.call(ctx, c.queryTimeout, []string{"status", "--task-id", taskID})
	if err != nil {
		return nil, err
	}

	var resp StatusResponse
	if err := decodeInto(raw, &resp); err != nil {
		return nil, err
	}
	if resp.Status == "" {
		return nil, fmt.Errorf("%w: missing status field", ErrInvalidOutput)
	}
	resp.Status = NormalizeStatus(resp.Status)
	if resp.TaskID == "" {
		resp.TaskID = taskID
	}
	return &resp, nil
}

// Result возвращает полный результат завершённой задачи.
func (c *CLI) Result(ctx context.Context, taskID string) (map[string]any, error) {
	return c.call(ctx, c.queryTimeout, []string{"result", "--task-id", taskID})
}

// call запускает генератор с таймаутом и разбирает JSON со stdout.
func (c *CLI) call(ctx context.Context, timeout time.Duration, args []string) (map[string]any, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	full := make([]string, 0, len(c.baseArgs)+len(args)+1)
	full = append(full, c.baseArgs...)
	full = append(full, args...)
	full = append(full, "--json")

	start := time.Now()
	stdout, stderr, err := c.runner.Run(callCtx, c.binary, full)
	c.logger.Debug("generator call finished",
		"command", args[0],
		"duration", time.Since(start),
		"error", err,
	)

	if callCtx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, args[0], timeout)
	}
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrProcessFailed, args[0], msg)
	}

	var out map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(stdout), &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidOutput, args[0], err)
	}
	return out, nil
}

// NormalizeStatus приводит статус генератора к одному из Status*.
func NormalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "queued":
		return StatusPending
	case "submitted", "accepted":
		return StatusSubmitted
	case "processing", "running", "in_progress", "generating":
		return StatusProcessing
	case "completed", "complete", "success", "succeeded", "done":
		return StatusCompleted
	case "failed", "failure", "error", "cancelled":
		return StatusFailed
	default:
		return strings.ToLower(strings.TrimSpace(s))
	}
}

func decodeInto(raw map[string]any, v any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
