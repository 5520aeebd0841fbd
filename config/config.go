package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces every environment override, e.g. SECRETSCAN_MAX_COMMITS.
const EnvPrefix = "SECRETSCAN_"

// FileEnv names the variable holding an optional JSON config file path.
const FileEnv = EnvPrefix + "CONFIG"

// Backend names accepted by GitBackend.
const (
	BackendExec  = "exec"
	BackendGoGit = "gogit"
)

type Config struct {
	HTTPAddr           string        // Address the API listens on.
	LogPath            string        // Rotating JSON log file; empty disables it.
	LogLevel           string        // zap level name.
	GitBackend         string        // "exec" (git CLI) or "gogit".
	GitPath            string        // git binary used by the exec backend.
	ScratchDir         string        // Parent of per-job clone dirs; empty uses os.TempDir.
	MaxCommits         int           // Hard cap on commits scanned per job.
	CloneTimeout       time.Duration // Mirror clone.
	MaterializeTimeout time.Duration // Working copy from the mirror.
	CommandTimeout     time.Duration // Per-commit diff, log, fetch, branch.
	MaxConcurrentScans int           // Jobs executing at once.
	JobTTL             time.Duration // Finished jobs older than this are evicted.
	JanitorInterval    time.Duration // How often eviction runs.
	ExcludeGlobs       []string      // doublestar patterns skipped by the current-file pass.
	SQSEnabled         bool          // Consume scan requests from SQS.
	SQSQueueURL        string        // Queue polled when SQSEnabled.
}

func defaults() map[string]any {
	return map[string]any{
		"http_addr":            ":8000",
		"log_path":             "",
		"log_level":            "info",
		"git_backend":          BackendExec,
		"git_path":             "git",
		"scratch_dir":          "",
		"max_commits":          500,
		"clone_timeout":        "600s",
		"materialize_timeout":  "300s",
		"command_timeout":      "300s",
		"max_concurrent_scans": 4,
		"job_ttl":              "24h",
		"janitor_interval":     "10m",
		"exclude_globs":        "",
		"sqs_enabled":          false,
		"sqs_queue_url":        "",
	}
}

// Load reads .env files, then layers defaults, an optional JSON file named
// by SECRETSCAN_CONFIG and SECRETSCAN_* environment variables.
func Load() (Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}
	if path := os.Getenv(FileEnv); path != "" {
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			if key == "config" {
				return "", nil
			}
			return key, value
		},
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	cfg := Config{
		HTTPAddr:           k.String("http_addr"),
		LogPath:            k.String("log_path"),
		LogLevel:           k.String("log_level"),
		GitBackend:         strings.ToLower(k.String("git_backend")),
		GitPath:            k.String("git_path"),
		ScratchDir:         k.String("scratch_dir"),
		MaxCommits:         k.Int("max_commits"),
		CloneTimeout:       k.Duration("clone_timeout"),
		MaterializeTimeout: k.Duration("materialize_timeout"),
		CommandTimeout:     k.Duration("command_timeout"),
		MaxConcurrentScans: k.Int("max_concurrent_scans"),
		JobTTL:             k.Duration("job_ttl"),
		JanitorInterval:    k.Duration("janitor_interval"),
		ExcludeGlobs:       k.Strings("exclude_globs"),
		SQSEnabled:         k.Bool("sqs_enabled"),
		SQSQueueURL:        k.String("sqs_queue_url"),
	}
	if len(cfg.ExcludeGlobs) == 0 {
		cfg.ExcludeGlobs = splitList(k.String("exclude_globs"))
	}
	return cfg, cfg.Validate()
}

// Validate reports settings the service cannot run with.
func (c Config) Validate() error {
	switch c.GitBackend {
	case BackendExec, BackendGoGit:
	default:
		return fmt.Errorf("unknown git_backend %q (want %q or %q)", c.GitBackend, BackendExec, BackendGoGit)
	}
	if c.MaxCommits <= 0 {
		return fmt.Errorf("max_commits must be positive, got %d", c.MaxCommits)
	}
	if c.MaxConcurrentScans <= 0 {
		return fmt.Errorf("max_concurrent_scans must be positive, got %d", c.MaxConcurrentScans)
	}
	if c.CloneTimeout <= 0 || c.MaterializeTimeout <= 0 || c.CommandTimeout <= 0 {
		return fmt.Errorf("git timeouts must be positive")
	}
	if c.JobTTL <= 0 {
		return fmt.Errorf("job_ttl must be positive, got %s", c.JobTTL)
	}
	if c.JanitorInterval <= 0 {
		return fmt.Errorf("janitor_interval must be positive, got %s", c.JanitorInterval)
	}
	if c.SQSEnabled && c.SQSQueueURL == "" {
		return fmt.Errorf("sqs_enabled requires sqs_queue_url")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
