package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 3, cfg.Worker.Count)
	assert.Equal(t, 100, cfg.Worker.QueueSize)
	assert.Equal(t, 30*time.Second, cfg.Poller.Interval)
	assert.Equal(t, "allow", cfg.Scheduler.Overlap)
	assert.Equal(t, 30*time.Minute, cfg.Tasks.Timeout)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "contenthub.yaml")
	yaml := `
worker:
  count: 8
  poll_interval: 2s
scheduler:
  overlap: skip
generator:
  binary: /usr/local/bin/gen
  args: ["run", "--json"]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("CONTENTHUB_WORKER_COUNT", "5")
	t.Setenv("CONTENTHUB_REDIS_ADDR", "localhost:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Worker.Count, "env overrides file")
	assert.Equal(t, 2*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, "skip", cfg.Scheduler.Overlap)
	assert.Equal(t, "/usr/local/bin/gen", cfg.Generator.Binary)
	assert.Equal(t, []string{"run", "--json"}, cfg.Generator.Args)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CONTENTHUB_LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CONTENTHUB_LOG_LEVEL") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"overlap", "CONTENTHUB_SCHEDULER_OVERLAP", "queue"},
		{"log format", "CONTENTHUB_LOG_FORMAT", "xml"},
		{"workers", "CONTENTHUB_WORKER_COUNT", "0"},
		{"publish url", "CONTENTHUB_PUBLISH_API_BASE_URL", "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("/nonexistent/contenthub.yaml")
	assert.Error(t, err)
}
