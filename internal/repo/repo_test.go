package repo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oychao1988/content-hub-sub001/internal/store"
)

func TestMapErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, store.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), store.ErrNotFound},
		{"unique", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "tasks_task_id_key"}, store.ErrAlreadyExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapErr("op", tt.err)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("mapErr() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapErr_KeepsOtherErrors(t *testing.T) {
	base := &pgconn.PgError{Code: "23503"}
	got := mapErr("insert pool entry", base)

	if errors.Is(got, store.ErrAlreadyExists) || errors.Is(got, store.ErrNotFound) {
		t.Fatalf("foreign key error mapped to store error: %v", got)
	}
	var pgErr *pgconn.PgError
	if !errors.As(got, &pgErr) {
		t.Errorf("original error lost: %v", got)
	}
}

func TestLimitOrAll(t *testing.T) {
	if limitOrAll(0) != nil || limitOrAll(-1) != nil {
		t.Error("non-positive limit should be NULL")
	}
	if got := limitOrAll(10); got == nil || *got != 10 {
		t.Errorf("limitOrAll(10) = %v", got)
	}
}

func TestJSONHelpers(t *testing.T) {
	data, err := marshalJSON(nil)
	if err != nil || data != nil {
		t.Fatalf("nil map should be NULL, got %q, %v", data, err)
	}

	data, err = marshalJSON(map[string]any{"content": "text", "n": 2})
	if err != nil {
		t.Fatal(err)
	}
	m, err := unmarshalJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	if m["content"] != "text" || m["n"] != float64(2) {
		t.Errorf("unexpected map: %v", m)
	}

	if m, err := unmarshalJSON(nil); err != nil || m != nil {
		t.Errorf("NULL should give nil map, got %v, %v", m, err)
	}
	if _, err := unmarshalJSON([]byte("{")); err == nil {
		t.Error("expected error for broken json")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir(migrationsDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Fatal("no migrations embedded")
	}
}
