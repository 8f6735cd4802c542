package generator

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner запоминает аргументы и возвращает заданный вывод.
type fakeRunner struct {
	name   string
	args   []string
	stdout string
	stderr string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, args []string) ([]byte, []byte, error) {
	f.name = name
	f.args = args
	return []byte(f.stdout), []byte(f.stderr), f.err
}

func TestCLI_Create_Args(t *testing.T) {
	runner := &fakeRunner{stdout: `{"success": true, "task_id": "t-1", "status": "submitted"}`}
	c := NewCLI(Config{Binary: "python3", BaseArgs: []string{"gen.py"}, Runner: runner})

	resp, err := c.Create(context.Background(), CreateRequest{
		TaskID:      "t-1",
		Topic:       "Go generics",
		Tone:        "friendly",
		CallbackURL: "https://hub.local/api/v1/webhooks/generation",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "t-1", resp.TaskID)

	assert.Equal(t, "python3", runner.name)
	assert.Equal(t, []string{
		"gen.py", "create",
		"--task-id", "t-1",
		"--topic", "Go generics",
		"--tone", "friendly",
		"--callback-url", "https://hub.local/api/v1/webhooks/generation",
		"--json",
	}, runner.args)
}

func TestCLI_Create_Rejected(t *testing.T) {
	runner := &fakeRunner{stdout: `{"success": false, "error": "quota exceeded"}`}
	c := NewCLI(Config{Binary: "gen", Runner: runner})

	_, err := c.Create(context.Background(), CreateRequest{TaskID: "t", Topic: "x"})
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestCLI_ProcessFailed(t *testing.T) {
	runner := &fakeRunner{stderr: "boom: model unavailable\n", err: errors.New("exit status 2")}
	c := NewCLI(Config{Binary: "gen", Runner: runner})

	_, err := c.Status(context.Background(), "t")
	assert.ErrorIs(t, err, ErrProcessFailed)
	assert.Contains(t, err.Error(), "model unavailable")
}

func TestCLI_InvalidOutput(t *testing.T) {
	c := NewCLI(Config{Binary: "gen", Runner: &fakeRunner{stdout: "not json"}})

	_, err := c.Result(context.Background(), "t")
	assert.ErrorIs(t, err, ErrInvalidOutput)

	c = NewCLI(Config{Binary: "gen", Runner: &fakeRunner{stdout: `{"task_id": "t"}`}})
	_, err = c.Status(context.Background(), "t")
	assert.ErrorIs(t, err, ErrInvalidOutput, "status without status field")
}

func TestCLI_Status_Normalized(t *testing.T) {
	runner := &fakeRunner{stdout: `{"status": "RUNNING", "progress": 40}`}
	c := NewCLI(Config{Binary: "gen", Runner: runner})

	resp, err := c.Status(context.Background(), "t-9")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, resp.Status)
	assert.Equal(t, "t-9", resp.TaskID)
	assert.Equal(t, map[string]any{"percent": float64(40)}, resp.ProgressMap())
	assert.Equal(t, []string{"status", "--task-id", "t-9", "--json"}, runner.args)
}

func TestNormalizeStatus(t *testing.T) {
	tests := map[string]string{
		"queued":      StatusPending,
		"in_progress": StatusProcessing,
		"Succeeded":   StatusCompleted,
		"error":       StatusFailed,
		"weird":       "weird",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeStatus(in), in)
	}
}

func TestExecRunner_RealProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}

	// sh -c передаёт остальные аргументы как $0 $1 ..., скрипт их игнорирует
	c := NewCLI(Config{
		Binary:   "sh",
		BaseArgs: []string{"-c", `echo '{"content": "hello world", "title": "t"}'`},
	})

	out, err := c.Result(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, "hello world", out["content"])
}

func TestExecRunner_Timeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}

	c := NewCLI(Config{
		Binary:       "sh",
		BaseArgs:     []string{"-c", "exec sleep 5"},
		QueryTimeout: 100 * time.Millisecond,
	})

	start := time.Now()
	_, err := c.Status(context.Background(), "t-1")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 3*time.Second)
}
