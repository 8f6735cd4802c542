package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oychao1988/content-hub-sub001/internal/engine"
)

// TypeWorkflow — тип исполнителя цепочки шагов.
const TypeWorkflow = "workflow"

// stepsParam — ключ списка шагов в params.
const stepsParam = "steps"

// Workflow выполняет шаги строго последовательно.
//
// Контекст заполняется params задачи (кроме steps) и после каждого
// успешного шага дополняется его Result.Data. Строки вида ${name}
// в параметрах шага заменяются значениями из контекста. Первый шаг
// с неизвестным типом или неуспешным результатом останавливает цепочку.
type Workflow struct {
	registry *Registry
	logger   *slog.Logger
}

// NewWorkflow создаёт исполнитель. Шаги ищутся в registry.
func NewWorkflow(registry *Registry, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{registry: registry, logger: logger}
}

// Type возвращает тип исполнителя.
func (e *Workflow) Type() string { return TypeWorkflow }

// Description возвращает описание для списка исполнителей.
func (e *Workflow) Description() string {
	return "runs executor steps sequentially with a shared context"
}

// ValidateParams проверяет структуру списка шагов.
// Типы шагов проверяются при выполнении.
func (e *Workflow) ValidateParams(params map[string]any) error {
	_, err := engine.ParseSteps(params[stepsParam])
	return err
}

// Execute выполняет шаги по порядку.
func (e *Workflow) Execute(ctx context.Context, taskID string, params map[string]any) *Result {
	steps, err := engine.ParseSteps(params[stepsParam])
	if err != nil {
		return Fail(CodeValidation, err.Error())
	}

	seed := make(map[string]any, len(params))
	for k, v := range params {
		if k != stepsParam {
			seed[k] = v
		}
	}
	wctx := engine.NewContext(seed)

	completed := make([]map[string]any, 0, len(steps))
	logger := e.logger.With("task_id", taskID)

	for i, step := range steps {
		index := i + 1

		if err := ctx.Err(); err != nil {
			return e.abort(index, step, CodeInternal, fmt.Sprintf("workflow cancelled: %v", err), completed)
		}

		exec := e.registry.Get(step.Type)
		if exec == nil {
			return e.abort(index, step, CodeUnknownExecutor,
				fmt.Sprintf("%v: %s", ErrUnknownExecutor, step.Type), completed)
		}

		resolved, unresolved := engine.ResolveParams(step.Params, wctx)
		for _, name := range unresolved {
			logger.Warn("unresolved workflow variable",
				"step", index,
				"step_name", step.Name,
				"variable", name,
			)
		}

		logger.Debug("workflow step started", "step", index, "step_name", step.Name, "type", step.Type)
		res := Run(ctx, exec, taskID, resolved)
		if !res.Success {
			logger.Warn("workflow step failed",
				"step", index,
				"step_name", step.Name,
				"error_code", res.ErrorCode,
				"error", res.Message,
			)
			code := CodeStepFailed
			if res.ErrorCode == CodeUnknownExecutor {
				code = CodeUnknownExecutor
			}
			return e.abort(index, step, code, res.Message, completed)
		}

		wctx.Merge(res.Data)
		completed = append(completed, stepSummary(index, step, res))
	}

	return Succeed(
		fmt.Sprintf("workflow completed: %d steps", len(steps)),
		map[string]any{
			"total_steps": len(steps),
			"context":     wctx.Snapshot(),
			"steps":       completed,
		},
	)
}

// abort формирует итог прерванной цепочки. index начинается с 1.
func (e *Workflow) abort(index int, step engine.StepDef, code, msg string, completed []map[string]any) *Result {
	res := Fail(code, fmt.Sprintf("step %d (%s) failed: %s", index, step.Name, msg))
	res.Data = map[string]any{
		"failed_step":      index,
		"failed_step_name": step.Name,
		"error":            msg,
		"completed_steps":  completed,
	}
	return res
}

func stepSummary(index int, step engine.StepDef, res *Result) map[string]any {
	return map[string]any{
		"step":        index,
		"name":        step.Name,
		"type":        step.Type,
		"message":     res.Message,
		"duration_ms": res.Duration.Milliseconds(),
	}
}
