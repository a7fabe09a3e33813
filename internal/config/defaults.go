package config

const (
	defaultStagingDir   = "~/.local/share/panelsmith/staging"
	defaultArtifactsDir = "~/panelsmith/artifacts"
	defaultLogDir       = "~/.local/share/panelsmith/logs"

	defaultAPIBind = "127.0.0.1:8750"

	defaultCanvasWidth  = 1200
	defaultCanvasHeight = 1600
	defaultCanvasMargin = 20
	defaultCanvasGutter = 10
	defaultBorderWidth  = 3

	defaultPanelsPerPage         = 4
	defaultMaxCharactersPerPanel = 3

	defaultSessionTTLMinutes = 120

	defaultWorkerCount          = 2
	defaultQueuePollSeconds     = 2
	defaultRetentionHours       = 2
	defaultSweepIntervalMinutes = 10

	defaultAnalysisBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultAnalysisModel          = "anthropic/claude-sonnet-4.5"
	defaultAnalysisReferer        = "https://github.com/panelsmith/panelsmith"
	defaultAnalysisTitle          = "Panelsmith Story Analysis"
	defaultAnalysisTimeoutSeconds = 120
	defaultAnalysisRetryAttempts  = 3

	defaultSynthesisModel          = "gpt-image-1"
	defaultSynthesisSize           = "1024x1024"
	defaultSynthesisQuality        = "standard"
	defaultSynthesisStyle          = "natural"
	defaultSynthesisTimeoutSeconds = 180

	defaultExportFormat = "pdf"

	defaultNotifyRequestTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir:   defaultStagingDir,
			ArtifactsDir: defaultArtifactsDir,
			LogDir:       defaultLogDir,
		},
		Canvas: Canvas{
			Width:       defaultCanvasWidth,
			Height:      defaultCanvasHeight,
			Margin:      defaultCanvasMargin,
			Gutter:      defaultCanvasGutter,
			BorderWidth: defaultBorderWidth,
		},
		Layout: Layout{
			PanelsPerPage:         defaultPanelsPerPage,
			MaxCharactersPerPanel: defaultMaxCharactersPerPanel,
		},
		Sessions: Sessions{
			TTLMinutes: defaultSessionTTLMinutes,
		},
		Workflow: Workflow{
			WorkerCount:          defaultWorkerCount,
			QueuePollSeconds:     defaultQueuePollSeconds,
			RetentionHours:       defaultRetentionHours,
			SweepIntervalMinutes: defaultSweepIntervalMinutes,
		},
		Analysis: Analysis{
			BaseURL:          defaultAnalysisBaseURL,
			Model:            defaultAnalysisModel,
			Referer:          defaultAnalysisReferer,
			Title:            defaultAnalysisTitle,
			TimeoutSeconds:   defaultAnalysisTimeoutSeconds,
			RetryMaxAttempts: defaultAnalysisRetryAttempts,
		},
		Synthesis: Synthesis{
			Model:          defaultSynthesisModel,
			Size:           defaultSynthesisSize,
			Quality:        defaultSynthesisQuality,
			Style:          defaultSynthesisStyle,
			TimeoutSeconds: defaultSynthesisTimeoutSeconds,
		},
		Export: Export{
			DefaultFormat: defaultExportFormat,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			OnCompletion:   true,
			OnFailure:      true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
