package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"panelsmith/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("PANELSMITH_API_BIND", "")
	t.Setenv("PANELSMITH_NTFY_TOPIC", "")

	missing := filepath.Join(t.TempDir(), "absent.toml")
	cfg, resolved, exists, err := config.Load(missing)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved != missing {
		t.Fatalf("resolved path = %q, want %q", resolved, missing)
	}
	if cfg.Canvas.Width != 1200 || cfg.Canvas.Height != 1600 {
		t.Fatalf("canvas defaults = %dx%d, want 1200x1600", cfg.Canvas.Width, cfg.Canvas.Height)
	}
	if cfg.API.Bind != "127.0.0.1:8750" {
		t.Fatalf("bind default = %q", cfg.API.Bind)
	}
	if cfg.Sessions.TTLMinutes != 120 {
		t.Fatalf("session ttl default = %d", cfg.Sessions.TTLMinutes)
	}
	if cfg.Export.DefaultFormat != "pdf" {
		t.Fatalf("export default = %q", cfg.Export.DefaultFormat)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("logging defaults = %q/%q", cfg.Logging.Format, cfg.Logging.Level)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	path := writeConfig(t, `
[canvas]
width = 800
height = 1000

[workflow]
worker_count = 4

[export]
default_format = "CBZ"

[logging]
format = "json"
level = "debug"
`)

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Canvas.Width != 800 || cfg.Canvas.Height != 1000 {
		t.Fatalf("canvas override = %dx%d", cfg.Canvas.Width, cfg.Canvas.Height)
	}
	if cfg.Canvas.Gutter != 10 {
		t.Fatalf("untouched gutter = %d, want default 10", cfg.Canvas.Gutter)
	}
	if cfg.Workflow.WorkerCount != 4 {
		t.Fatalf("worker count = %d", cfg.Workflow.WorkerCount)
	}
	if cfg.Export.DefaultFormat != "cbz" {
		t.Fatalf("export format not lowercased: %q", cfg.Export.DefaultFormat)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging override = %q/%q", cfg.Logging.Format, cfg.Logging.Level)
	}
}

func TestLoadExpandsPaths(t *testing.T) {
	path := writeConfig(t, `
[paths]
staging_dir = "~/panelsmith-test/staging"
`)

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("home dir: %v", err)
	}
	want := filepath.Join(home, "panelsmith-test", "staging")
	if cfg.Paths.StagingDir != want {
		t.Fatalf("staging dir = %q, want %q", cfg.Paths.StagingDir, want)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		phrase  string
	}{
		{
			name:    "unsupported export format",
			content: "[export]\ndefault_format = \"docx\"\n",
			phrase:  "default_format",
		},
		{
			name:    "zero worker count",
			content: "[workflow]\nworker_count = 0\n",
			phrase:  "worker_count",
		},
		{
			name:    "margin exceeds width",
			content: "[canvas]\nwidth = 30\nmargin = 20\n",
			phrase:  "usable width",
		},
		{
			name:    "panels per page out of range",
			content: "[layout]\npanels_per_page = 0\n",
			phrase:  "panels_per_page",
		},
		{
			name:    "unsupported synthesis size",
			content: "[synthesis]\nsize = \"99x99\"\n",
			phrase:  "synthesis.size",
		},
		{
			name:    "unsupported synthesis quality",
			content: "[synthesis]\nquality = \"ultra\"\n",
			phrase:  "synthesis.quality",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.phrase) {
				t.Fatalf("error %q does not mention %q", err, tc.phrase)
			}
		})
	}
}

func TestBindEnvFallback(t *testing.T) {
	t.Setenv("PANELSMITH_API_BIND", "0.0.0.0:9100")

	missing := filepath.Join(t.TempDir(), "absent.toml")
	cfg, _, _, err := config.Load(missing)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Bind != "0.0.0.0:9100" {
		t.Fatalf("bind = %q, want env fallback", cfg.API.Bind)
	}

	path := writeConfig(t, "[api]\nbind = \"127.0.0.1:9200\"\n")
	cfg, _, _, err = config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Bind != "127.0.0.1:9200" {
		t.Fatalf("bind = %q, want file value over env", cfg.API.Bind)
	}
}

func TestNtfyTopicEnvFallback(t *testing.T) {
	t.Setenv("PANELSMITH_NTFY_TOPIC", "panelsmith-ci")

	missing := filepath.Join(t.TempDir(), "absent.toml")
	cfg, _, _, err := config.Load(missing)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "panelsmith-ci" {
		t.Fatalf("ntfy topic = %q, want env fallback", cfg.Notifications.NtfyTopic)
	}
}

func TestJobPathHelpers(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StagingDir = "/tmp/panelsmith-staging"

	if got := cfg.JobDatabasePath(); got != "/tmp/panelsmith-staging/jobs.db" {
		t.Fatalf("JobDatabasePath = %q", got)
	}
	if got := cfg.JobStagingDir("tok123"); got != "/tmp/panelsmith-staging/jobs/tok123" {
		t.Fatalf("JobStagingDir = %q", got)
	}
	if got := cfg.JobStagingRoot(); got != "/tmp/panelsmith-staging/jobs" {
		t.Fatalf("JobStagingRoot = %q", got)
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("PANELSMITH_API_BIND", "")
	t.Setenv("PANELSMITH_NTFY_TOPIC", "")

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Canvas.Width != 1200 {
		t.Fatalf("sample should keep defaults, canvas width = %d", cfg.Canvas.Width)
	}
}
