package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"panelsmith/internal/analysis"
	"panelsmith/internal/config"
	"panelsmith/internal/job"
	"panelsmith/internal/logging"
	"panelsmith/internal/notifications"
	"panelsmith/internal/pipeline"
	"panelsmith/internal/session"
	"panelsmith/internal/synthesis"
)

// AbandonedMessage is recorded on jobs left processing by a dead daemon run.
const AbandonedMessage = "processing interrupted by daemon restart; submit the story again"

const defaultHeartbeatInterval = 15 * time.Second

// JobRunner executes one claimed job to a terminal state.
type JobRunner interface {
	Run(ctx context.Context, claimed *job.Job) error
}

// RunnerFactory builds a per-job runner from the credentials resolved at
// claim time. Each job gets its own collaborator clients so credential
// lifetime is bound to the job, never to the daemon.
type RunnerFactory func(creds session.Credentials) (JobRunner, error)

// Manager coordinates job processing across a bounded worker pool.
type Manager struct {
	cfg      *config.Config
	store    *job.Store
	sessions *session.Store
	logger   *slog.Logger
	notifier notifications.Service
	factory  RunnerFactory

	workerCount       int
	pollInterval      time.Duration
	heartbeatInterval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	active  map[string]context.CancelFunc
	lastErr error
}

// NewManager constructs a workflow manager with production collaborators.
func NewManager(cfg *config.Config, store *job.Store, sessions *session.Store, logger *slog.Logger) *Manager {
	return NewManagerWithDependencies(cfg, store, sessions, logger, notifications.NewService(cfg), defaultRunnerFactory(cfg, store, logger))
}

// NewManagerWithDependencies constructs a workflow manager with an injected
// notifier and runner factory (used in tests).
func NewManagerWithDependencies(cfg *config.Config, store *job.Store, sessions *session.Store, logger *slog.Logger, notifier notifications.Service, factory RunnerFactory) *Manager {
	workerCount := cfg.Workflow.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
	}
	pollInterval := time.Duration(cfg.Workflow.QueuePollSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Manager{
		cfg:               cfg,
		store:             store,
		sessions:          sessions,
		logger:            logging.NewComponentLogger(logger, "workflow"),
		notifier:          notifier,
		factory:           factory,
		workerCount:       workerCount,
		pollInterval:      pollInterval,
		heartbeatInterval: defaultHeartbeatInterval,
		active:            make(map[string]context.CancelFunc),
	}
}

// defaultRunnerFactory wires the analysis and synthesis clients a pipeline
// run needs, keyed with the job's session credentials.
func defaultRunnerFactory(cfg *config.Config, store *job.Store, logger *slog.Logger) RunnerFactory {
	return func(creds session.Credentials) (JobRunner, error) {
		analyzer := analysis.NewAnalyzer(
			analysis.NewClient(analysis.Config{
				APIKey:         creds.AnalysisKey,
				BaseURL:        cfg.Analysis.BaseURL,
				Model:          cfg.Analysis.Model,
				Referer:        cfg.Analysis.Referer,
				Title:          cfg.Analysis.Title,
				TimeoutSeconds: cfg.Analysis.TimeoutSeconds,
			}, analysis.WithRetryMaxAttempts(cfg.Analysis.RetryMaxAttempts)),
			analysis.AnalyzerOptions{
				PanelsPerPage:         cfg.Layout.PanelsPerPage,
				MaxCharactersPerPanel: cfg.Layout.MaxCharactersPerPanel,
			},
		)
		generator, err := synthesis.NewClient(synthesis.Config{
			APIKey:         creds.SynthesisKey,
			BaseURL:        cfg.Synthesis.BaseURL,
			Model:          cfg.Synthesis.Model,
			Size:           cfg.Synthesis.Size,
			Quality:        cfg.Synthesis.Quality,
			Style:          cfg.Synthesis.Style,
			TimeoutSeconds: cfg.Synthesis.TimeoutSeconds,
		})
		if err != nil {
			return nil, err
		}
		return pipeline.New(cfg, store, logger, analyzer, generator), nil
	}
}

// Health is a point-in-time snapshot of the worker pool.
type Health struct {
	Running bool
	Workers int
	Active  int
	LastErr string
}

// Health reports the pool state for diagnostics.
func (m *Manager) Health() Health {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := Health{
		Running: m.running,
		Workers: m.workerCount,
		Active:  len(m.active),
	}
	if m.lastErr != nil {
		snapshot.LastErr = m.lastErr.Error()
	}
	return snapshot
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
