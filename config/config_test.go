package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, BackendExec, cfg.GitBackend)
	assert.Equal(t, "git", cfg.GitPath)
	assert.Equal(t, 500, cfg.MaxCommits)
	assert.Equal(t, 600*time.Second, cfg.CloneTimeout)
	assert.Equal(t, 300*time.Second, cfg.MaterializeTimeout)
	assert.Equal(t, 300*time.Second, cfg.CommandTimeout)
	assert.Equal(t, 4, cfg.MaxConcurrentScans)
	assert.Equal(t, 24*time.Hour, cfg.JobTTL)
	assert.Empty(t, cfg.ExcludeGlobs)
	assert.False(t, cfg.SQSEnabled)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SECRETSCAN_MAX_COMMITS", "25")
	t.Setenv("SECRETSCAN_GIT_BACKEND", "GoGit")
	t.Setenv("SECRETSCAN_COMMAND_TIMEOUT", "45s")
	t.Setenv("SECRETSCAN_EXCLUDE_GLOBS", "vendor/**, **/*.min.js")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.MaxCommits)
	assert.Equal(t, BackendGoGit, cfg.GitBackend)
	assert.Equal(t, 45*time.Second, cfg.CommandTimeout)
	assert.Equal(t, []string{"vendor/**", "**/*.min.js"}, cfg.ExcludeGlobs)
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SECRETSCAN_HTTP_ADDR=:9999\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("SECRETSCAN_HTTP_ADDR") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
}

func TestLoadJSONFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "scanner.json")
	body := `{"max_concurrent_scans": 2, "exclude_globs": ["testdata/**"], "job_ttl": "1h"}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv(FileEnv, path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MaxConcurrentScans)
	assert.Equal(t, []string{"testdata/**"}, cfg.ExcludeGlobs)
	assert.Equal(t, time.Hour, cfg.JobTTL)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"SECRETSCAN_GIT_BACKEND": "svn"}},
		{"zero commits", map[string]string{"SECRETSCAN_MAX_COMMITS": "0"}},
		{"sqs without queue", map[string]string{"SECRETSCAN_SQS_ENABLED": "true"}},
		{"zero janitor interval", map[string]string{"SECRETSCAN_JANITOR_INTERVAL": "0s"}},
		{"negative job ttl", map[string]string{"SECRETSCAN_JOB_TTL": "-1h"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
