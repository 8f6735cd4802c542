package engine

import (
	"errors"
	"testing"
)

func TestParseSteps_Empty(t *testing.T) {
	for _, raw := range []any{nil, []any{}} {
		if _, err := ParseSteps(raw); !errors.Is(err, ErrEmptySteps) {
			t.Errorf("expected ErrEmptySteps for %v, got %v", raw, err)
		}
	}
}

func TestParseSteps_Valid(t *testing.T) {
	raw := []any{
		map[string]any{"type": "add_to_pool", "params": map[string]any{"content_id": 42}},
		map[string]any{"type": "publishing", "name": "drain"},
	}

	steps, err := ParseSteps(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].Name != "step_1" {
		t.Errorf("expected default name step_1, got %s", steps[0].Name)
	}
	// Тип int сохраняется без JSON-нормализации
	if steps[0].Params["content_id"] != 42 {
		t.Errorf("expected int 42, got %#v", steps[0].Params["content_id"])
	}
	if steps[1].Name != "drain" {
		t.Errorf("expected name drain, got %s", steps[1].Name)
	}
}

func TestParseSteps_EmptyType(t *testing.T) {
	raw := []any{map[string]any{"type": "publishing"}, map[string]any{"params": map[string]any{}}}

	_, err := ParseSteps(raw)
	if !errors.Is(err, ErrEmptyStepType) {
		t.Fatalf("expected ErrEmptyStepType, got %v", err)
	}

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatal("expected ValidationError")
	}
	if vErr.StepIndex != 2 {
		t.Errorf("expected step index 2, got %d", vErr.StepIndex)
	}
}

func TestParseSteps_InvalidShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"not an object", []any{"publishing"}},
		{"params not an object", []any{map[string]any{"type": "x", "params": []any{1}}}},
		{"type not a string", []any{map[string]any{"type": 5}}},
		{"not a list", "publishing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSteps(tt.raw); !errors.Is(err, ErrInvalidStep) {
				t.Errorf("expected ErrInvalidStep, got %v", err)
			}
		})
	}
}

func TestParseSteps_JSONShape(t *testing.T) {
	raw := []map[string]string{{"type": "publishing"}}

	steps, err := ParseSteps(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if steps[0].Type != "publishing" {
		t.Errorf("unexpected type %s", steps[0].Type)
	}
}
