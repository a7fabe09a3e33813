package testsupport

import (
	"path/filepath"
	"testing"

	"panelsmith/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.ArtifactsDir = filepath.Join(base, "artifacts")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Workflow.QueuePollSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCanvas overrides the page geometry on the test config. Small canvases
// keep compositing tests fast.
func WithCanvas(width, height, margin, gutter int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Canvas.Width = width
		b.cfg.Canvas.Height = height
		b.cfg.Canvas.Margin = margin
		b.cfg.Canvas.Gutter = gutter
	}
}

// WithWorkerCount sets the workflow worker pool size on the test config.
func WithWorkerCount(count int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.WorkerCount = count
	}
}

// WithExportFormat sets the default artifact format on the test config.
func WithExportFormat(format string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Export.DefaultFormat = format
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
