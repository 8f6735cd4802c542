package executor

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// Коды ошибок Result.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeContentNotFound = "CONTENT_NOT_FOUND"
	CodeExternalService = "EXTERNAL_SERVICE_ERROR"
	CodeInternal        = "INTERNAL_ERROR"
	CodeUnknownExecutor = "UNKNOWN_EXECUTOR"
	CodeStepFailed      = "STEP_FAILED"
)

// Executor — исполнитель задачи определённого типа.
type Executor interface {
	// Type возвращает стабильный ключ типа.
	Type() string

	// ValidateParams проверяет параметры без побочных эффектов.
	ValidateParams(params map[string]any) error

	// Execute выполняет задачу. Ожидаемые ошибки кодируются в Result.
	Execute(ctx context.Context, taskID string, params map[string]any) *Result
}

// Describer — исполнитель с описанием для списка типов.
type Describer interface {
	Description() string
}

// Result — итог выполнения.
type Result struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	ErrorCode string         `json:"error_code,omitempty"`
	Duration  time.Duration  `json:"duration"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Succeed создаёт успешный Result.
func Succeed(message string, data map[string]any) *Result {
	return &Result{Success: true, Message: message, Data: data}
}

// Fail создаёт неуспешный Result.
func Fail(code, message string) *Result {
	return &Result{Success: false, Message: message, ErrorCode: code}
}

// Run проверяет параметры и выполняет исполнитель.
// Паника внутри Execute превращается в Result с CodeInternal.
func Run(ctx context.Context, exec Executor, taskID string, params map[string]any) (res *Result) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res = Fail(CodeInternal, fmt.Sprintf("executor %s panicked: %v", exec.Type(), r))
			res.Metadata = map[string]any{"stack": string(debug.Stack())}
		}
		if res == nil {
			res = Fail(CodeInternal, fmt.Sprintf("executor %s returned no result", exec.Type()))
		}
		res.Duration = time.Since(start)
	}()

	if params == nil {
		params = map[string]any{}
	}
	if err := exec.ValidateParams(params); err != nil {
		return Fail(CodeValidation, err.Error())
	}
	return exec.Execute(ctx, taskID, params)
}
