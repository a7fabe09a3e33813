package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeAnalysis()
	c.normalizeSynthesis()
	c.normalizeExport()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.ArtifactsDir, err = expandPath(c.Paths.ArtifactsDir); err != nil {
		return fmt.Errorf("paths.artifacts_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		if value, ok := os.LookupEnv("PANELSMITH_API_BIND"); ok {
			c.API.Bind = strings.TrimSpace(value)
		}
	}
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
}

func (c *Config) normalizeAnalysis() {
	c.Analysis.BaseURL = strings.TrimSpace(c.Analysis.BaseURL)
	if c.Analysis.BaseURL == "" {
		c.Analysis.BaseURL = defaultAnalysisBaseURL
	}
	c.Analysis.Model = strings.TrimSpace(c.Analysis.Model)
	if c.Analysis.Model == "" {
		c.Analysis.Model = defaultAnalysisModel
	}
	c.Analysis.Referer = strings.TrimSpace(c.Analysis.Referer)
	if c.Analysis.Referer == "" {
		c.Analysis.Referer = defaultAnalysisReferer
	}
	c.Analysis.Title = strings.TrimSpace(c.Analysis.Title)
	if c.Analysis.Title == "" {
		c.Analysis.Title = defaultAnalysisTitle
	}
	if c.Analysis.TimeoutSeconds <= 0 {
		c.Analysis.TimeoutSeconds = defaultAnalysisTimeoutSeconds
	}
	if c.Analysis.RetryMaxAttempts <= 0 {
		c.Analysis.RetryMaxAttempts = defaultAnalysisRetryAttempts
	}
}

func (c *Config) normalizeSynthesis() {
	c.Synthesis.BaseURL = strings.TrimSpace(c.Synthesis.BaseURL)
	c.Synthesis.Model = strings.TrimSpace(c.Synthesis.Model)
	if c.Synthesis.Model == "" {
		c.Synthesis.Model = defaultSynthesisModel
	}
	c.Synthesis.Size = strings.TrimSpace(c.Synthesis.Size)
	if c.Synthesis.Size == "" {
		c.Synthesis.Size = defaultSynthesisSize
	}
	c.Synthesis.Quality = strings.ToLower(strings.TrimSpace(c.Synthesis.Quality))
	if c.Synthesis.Quality == "" {
		c.Synthesis.Quality = defaultSynthesisQuality
	}
	c.Synthesis.Style = strings.ToLower(strings.TrimSpace(c.Synthesis.Style))
	if c.Synthesis.Style == "" {
		c.Synthesis.Style = defaultSynthesisStyle
	}
	if c.Synthesis.TimeoutSeconds <= 0 {
		c.Synthesis.TimeoutSeconds = defaultSynthesisTimeoutSeconds
	}
}

func (c *Config) normalizeExport() {
	c.Export.DefaultFormat = strings.ToLower(strings.TrimSpace(c.Export.DefaultFormat))
	if c.Export.DefaultFormat == "" {
		c.Export.DefaultFormat = defaultExportFormat
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("PANELSMITH_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
