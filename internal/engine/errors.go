package engine

import (
	"errors"
	"strconv"
)

// Ошибки разбора workflow.
var (
	// ErrEmptySteps — workflow не содержит шагов.
	ErrEmptySteps = errors.New("workflow has no steps")

	// ErrEmptyStepType — шаг не имеет типа.
	ErrEmptyStepType = errors.New("step has empty type")

	// ErrInvalidStep — шаг не удалось разобрать.
	ErrInvalidStep = errors.New("invalid step definition")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	StepIndex int    // номер шага (с 1), 0 — весь список
	Field     string // поле, вызвавшее ошибку
	Message   string // описание ошибки
	Err       error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.StepIndex > 0 {
		return "step " + strconv.Itoa(e.StepIndex) + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(stepIndex int, field, message string, err error) *ValidationError {
	return &ValidationError{
		StepIndex: stepIndex,
		Field:     field,
		Message:   message,
		Err:       err,
	}
}
