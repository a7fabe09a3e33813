package config

import (
	"errors"
	"fmt"
	"strings"
)

var allowedExportFormats = map[string]struct{}{
	"pdf": {},
	"png": {},
	"cbz": {},
}

var allowedSynthesisSizes = map[string]struct{}{
	"1024x1024": {},
	"1536x1024": {},
	"1024x1536": {},
	"1792x1024": {},
	"1024x1792": {},
	"auto":      {},
}

// Quality names differ by model family: standard/hd for dall-e, the rest for
// gpt-image-1.
var allowedSynthesisQualities = map[string]struct{}{
	"standard": {},
	"hd":       {},
	"low":      {},
	"medium":   {},
	"high":     {},
	"auto":     {},
}

var allowedSynthesisStyles = map[string]struct{}{
	"natural": {},
	"vivid":   {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCanvas(); err != nil {
		return err
	}
	if err := c.validateLayout(); err != nil {
		return err
	}
	if err := c.validateSessions(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateSynthesis(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCanvas() error {
	if err := ensurePositiveMap(map[string]int{
		"canvas.width":  c.Canvas.Width,
		"canvas.height": c.Canvas.Height,
	}); err != nil {
		return err
	}
	if c.Canvas.Margin < 0 || c.Canvas.Gutter < 0 || c.Canvas.BorderWidth < 0 {
		return errors.New("canvas.margin, canvas.gutter, and canvas.border_width must be >= 0")
	}
	if 2*c.Canvas.Margin >= c.Canvas.Width {
		return errors.New("canvas.margin leaves no usable width")
	}
	if 2*c.Canvas.Margin >= c.Canvas.Height {
		return errors.New("canvas.margin leaves no usable height")
	}
	return nil
}

func (c *Config) validateLayout() error {
	if c.Layout.PanelsPerPage < 1 || c.Layout.PanelsPerPage > 12 {
		return errors.New("layout.panels_per_page must be between 1 and 12")
	}
	if c.Layout.MaxCharactersPerPanel < 1 {
		return errors.New("layout.max_characters_per_panel must be >= 1")
	}
	return nil
}

func (c *Config) validateSessions() error {
	if c.Sessions.TTLMinutes <= 0 {
		return errors.New("sessions.ttl_minutes must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.worker_count":           c.Workflow.WorkerCount,
		"workflow.queue_poll_seconds":     c.Workflow.QueuePollSeconds,
		"workflow.retention_hours":        c.Workflow.RetentionHours,
		"workflow.sweep_interval_minutes": c.Workflow.SweepIntervalMinutes,
	})
}

func (c *Config) validateSynthesis() error {
	if _, ok := allowedSynthesisSizes[c.Synthesis.Size]; !ok {
		return fmt.Errorf("synthesis.size %q is not supported", c.Synthesis.Size)
	}
	if _, ok := allowedSynthesisQualities[c.Synthesis.Quality]; !ok {
		return fmt.Errorf("synthesis.quality %q is not supported", c.Synthesis.Quality)
	}
	if _, ok := allowedSynthesisStyles[c.Synthesis.Style]; !ok {
		return fmt.Errorf("synthesis.style %q is not supported (natural, vivid)", c.Synthesis.Style)
	}
	return nil
}

func (c *Config) validateExport() error {
	if _, ok := allowedExportFormats[c.Export.DefaultFormat]; !ok {
		return fmt.Errorf("export.default_format %q is not supported (pdf, png, cbz)", c.Export.DefaultFormat)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if strings.TrimSpace(c.Notifications.NtfyTopic) == "" {
		return nil
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
