// Package config loads, validates, and provides access to panelsmith
// configuration from TOML files with sensible defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir   string `toml:"staging_dir"`
	ArtifactsDir string `toml:"artifacts_dir"`
	LogDir       string `toml:"log_dir"`
}

// API contains configuration for the HTTP surface.
type API struct {
	Bind string `toml:"bind"`
}

// Canvas contains page geometry in pixels.
type Canvas struct {
	Width       int `toml:"width"`
	Height      int `toml:"height"`
	Margin      int `toml:"margin"`
	Gutter      int `toml:"gutter"`
	BorderWidth int `toml:"border_width"`
}

// Layout contains page composition limits.
type Layout struct {
	PanelsPerPage         int `toml:"panels_per_page"`
	MaxCharactersPerPanel int `toml:"max_characters_per_panel"`
}

// Sessions contains credential session settings.
type Sessions struct {
	TTLMinutes int `toml:"ttl_minutes"`
}

// Workflow contains worker pool and retention timing.
type Workflow struct {
	WorkerCount          int `toml:"worker_count"`
	QueuePollSeconds     int `toml:"queue_poll_seconds"`
	RetentionHours       int `toml:"retention_hours"`
	SweepIntervalMinutes int `toml:"sweep_interval_minutes"`
}

// Analysis contains connection settings for the story analysis collaborator.
// Credentials are not configured here; every job carries the key attached to
// its session.
type Analysis struct {
	BaseURL          string `toml:"base_url"`
	Model            string `toml:"model"`
	Referer          string `toml:"referer"`
	Title            string `toml:"title"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	RetryMaxAttempts int    `toml:"retry_max_attempts"`
}

// Synthesis contains connection settings for the image synthesis collaborator.
type Synthesis struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Size           string `toml:"size"`
	Quality        string `toml:"quality"`
	Style          string `toml:"style"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Export contains artifact encoding settings.
type Export struct {
	DefaultFormat string `toml:"default_format"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	OnCompletion   bool   `toml:"on_completion"`
	OnFailure      bool   `toml:"on_failure"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for panelsmith.
//
// Sections by subsystem:
//   - Paths: staging workspace, artifact output, and log directories
//   - API: HTTP bind address
//   - Canvas/Layout: page geometry and composition limits
//   - Sessions: credential session TTL
//   - Workflow: worker pool sizing, poll cadence, job retention
//   - Analysis/Synthesis: collaborator endpoints, models, timeouts
//   - Export: default artifact format
//   - Notifications: ntfy push settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	Canvas        Canvas        `toml:"canvas"`
	Layout        Layout        `toml:"layout"`
	Sessions      Sessions      `toml:"sessions"`
	Workflow      Workflow      `toml:"workflow"`
	Analysis      Analysis      `toml:"analysis"`
	Synthesis     Synthesis     `toml:"synthesis"`
	Export        Export        `toml:"export"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/panelsmith/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. Environment files (.env,
// .env.local) are loaded first so env fallbacks observe them.
func Load(path string) (*Config, string, bool, error) {
	_ = godotenv.Load(".env.local", ".env")

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("panelsmith.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// ArtifactsDir is created on a best-effort basis so the daemon can start when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.ArtifactsDir) != "" {
		_ = os.MkdirAll(c.Paths.ArtifactsDir, 0o755)
	}
	return nil
}

// JobDatabasePath returns the SQLite path backing the job store.
func (c *Config) JobDatabasePath() string {
	return filepath.Join(c.Paths.StagingDir, "jobs.db")
}

// JobStagingDir returns the scratch directory for a single job's intermediate
// assets.
func (c *Config) JobStagingDir(jobToken string) string {
	return filepath.Join(c.Paths.StagingDir, "jobs", jobToken)
}

// JobStagingRoot returns the directory holding all per-job staging directories.
func (c *Config) JobStagingRoot() string {
	return filepath.Join(c.Paths.StagingDir, "jobs")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
