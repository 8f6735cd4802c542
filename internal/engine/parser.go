package engine

import (
	"encoding/json"
	"fmt"
)

// StepDef — описание одного шага workflow.
type StepDef struct {
	// Name — имя шага для отчёта. По умолчанию "step_N".
	Name string `json:"name,omitempty"`

	// Type — тип executor'а.
	Type string `json:"type"`

	// Params — параметры шага, могут содержать ${name}.
	Params map[string]any `json:"params,omitempty"`
}

// ParseSteps разбирает значение параметра "steps".
//
// Принимает []any из JSON, []StepDef или []map[string]any.
// Проверяет:
// - Наличие шагов
// - Наличие типа у каждого шага
// - Что params — объект
func ParseSteps(raw any) ([]StepDef, error) {
	if raw == nil {
		return nil, ErrEmptySteps
	}

	var steps []StepDef
	switch v := raw.(type) {
	case []StepDef:
		steps = append(steps, v...)
	case []map[string]any:
		for i, m := range v {
			step, err := stepFromMap(i+1, m)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
		}
	case []any:
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, NewValidationError(i+1, "steps",
					fmt.Sprintf("step must be an object, got %T", item), ErrInvalidStep)
			}
			step, err := stepFromMap(i+1, m)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
		}
	default:
		// Нормализуем через JSON: параметры могли прийти из БД или из API
		data, err := json.Marshal(v)
		if err != nil {
			return nil, NewValidationError(0, "steps", "steps are not serializable", ErrInvalidStep)
		}
		if err := json.Unmarshal(data, &steps); err != nil {
			return nil, NewValidationError(0, "steps",
				fmt.Sprintf("steps must be a list of objects: %v", err), ErrInvalidStep)
		}
	}

	if len(steps) == 0 {
		return nil, ErrEmptySteps
	}

	for i := range steps {
		if err := ValidateStep(i+1, &steps[i]); err != nil {
			return nil, err
		}
	}
	return steps, nil
}

// stepFromMap собирает StepDef без JSON, сохраняя типы значений в params.
func stepFromMap(index int, m map[string]any) (StepDef, error) {
	var step StepDef
	if v, ok := m["type"]; ok {
		s, ok := v.(string)
		if !ok {
			return step, NewValidationError(index, "type", "step type must be a string", ErrInvalidStep)
		}
		step.Type = s
	}
	if v, ok := m["name"].(string); ok {
		step.Name = v
	}
	switch p := m["params"].(type) {
	case nil:
	case map[string]any:
		step.Params = p
	default:
		return step, NewValidationError(index, "params",
			fmt.Sprintf("params must be an object, got %T", p), ErrInvalidStep)
	}
	return step, nil
}

// ValidateStep валидирует один шаг. index начинается с 1.
func ValidateStep(index int, step *StepDef) error {
	if step.Type == "" {
		return NewValidationError(index, "type", "step has empty type", ErrEmptyStepType)
	}
	if step.Name == "" {
		step.Name = fmt.Sprintf("step_%d", index)
	}
	return nil
}
