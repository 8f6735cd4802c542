package engine

import (
	"reflect"
	"testing"
)

func TestNewContext(t *testing.T) {
	// С nil seed
	ctx := NewContext(nil)
	if ctx.Snapshot() == nil {
		t.Error("snapshot should not be nil")
	}

	// Seed копируется
	seed := map[string]any{"key": "value"}
	ctx = NewContext(seed)
	seed["key"] = "changed"
	if v, _ := ctx.Get("key"); v != "value" {
		t.Errorf("context must not share seed map, got %v", v)
	}
}

func TestContext_Merge(t *testing.T) {
	ctx := NewContext(map[string]any{"a": 1, "b": 2})
	ctx.Merge(map[string]any{"b": 3, "c": 4})

	want := map[string]any{"a": 1, "b": 3, "c": 4}
	if got := ctx.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("Snapshot() = %v, want %v", got, want)
	}
}

func TestContext_Get_Path(t *testing.T) {
	ctx := NewContext(map[string]any{
		"post":     map[string]any{"id": 7},
		"post.raw": "exact",
	})

	if v, ok := ctx.Get("post.id"); !ok || v != 7 {
		t.Errorf("expected 7, got %v (%v)", v, ok)
	}
	if v, _ := ctx.Get("post.raw"); v != "exact" {
		t.Errorf("exact key must win, got %v", v)
	}
	if _, ok := ctx.Get("post.missing"); ok {
		t.Error("missing path must not resolve")
	}
}

func TestParseVariable(t *testing.T) {
	tests := []struct {
		in   string
		name string
		ok   bool
	}{
		{"${content_id}", "content_id", true},
		{"${post.id}", "post.id", true},
		{"prefix ${content_id}", "", false},
		{"${content_id} suffix", "", false},
		{"$content_id", "", false},
		{"${}", "", false},
		{"{{ .Inputs.x }}", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, ok := ParseVariable(tt.in)
			if ok != tt.ok || name != tt.name {
				t.Errorf("ParseVariable(%q) = %q, %v; want %q, %v", tt.in, name, ok, tt.name, tt.ok)
			}
		})
	}
}

func TestResolveParams_KeepsType(t *testing.T) {
	ctx := NewContext(map[string]any{"content_id": 42})

	resolved, unresolved := ResolveParams(map[string]any{"content_id": "${content_id}"}, ctx)

	if resolved["content_id"] != 42 {
		t.Errorf("expected int 42, got %#v", resolved["content_id"])
	}
	if len(unresolved) != 0 {
		t.Errorf("unexpected unresolved: %v", unresolved)
	}
}

func TestResolveParams_Unresolved(t *testing.T) {
	ctx := NewContext(nil)

	resolved, unresolved := ResolveParams(map[string]any{"x": "${missing}"}, ctx)

	if resolved["x"] != "${missing}" {
		t.Errorf("unresolved token must pass through, got %v", resolved["x"])
	}
	if !reflect.DeepEqual(unresolved, []string{"missing"}) {
		t.Errorf("unexpected unresolved list: %v", unresolved)
	}
}

func TestResolveValue_Nested(t *testing.T) {
	ctx := NewContext(map[string]any{"id": 5, "tag": "go"})

	params := map[string]any{
		"outer": map[string]any{
			"inner": []any{"${id}", "literal", map[string]any{"t": "${tag}"}},
		},
		"labels":  []string{"${tag}", "x"},
		"headers": map[string]string{"X-Id": "${id}"},
		"count":   3,
		"enabled": true,
	}

	got := ResolveValue(params, ctx, nil).(map[string]any)

	inner := got["outer"].(map[string]any)["inner"].([]any)
	if inner[0] != 5 || inner[1] != "literal" {
		t.Errorf("unexpected inner list: %v", inner)
	}
	if inner[2].(map[string]any)["t"] != "go" {
		t.Errorf("nested map not resolved: %v", inner[2])
	}
	if labels := got["labels"].([]any); labels[0] != "go" || labels[1] != "x" {
		t.Errorf("unexpected labels: %v", labels)
	}
	if got["headers"].(map[string]any)["X-Id"] != 5 {
		t.Errorf("unexpected headers: %v", got["headers"])
	}
	if got["count"] != 3 || got["enabled"] != true {
		t.Error("scalars must pass through unchanged")
	}
}

func TestResolveValue_DoesNotMutateInput(t *testing.T) {
	ctx := NewContext(map[string]any{"id": 1})
	params := map[string]any{"id": "${id}"}

	ResolveValue(params, ctx, nil)

	if params["id"] != "${id}" {
		t.Error("input params must not be modified")
	}
}
