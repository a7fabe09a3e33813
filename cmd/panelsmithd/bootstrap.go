package main

import (
	"fmt"
	"time"

	"log/slog"

	"panelsmith/internal/config"
	"panelsmith/internal/daemon"
	"panelsmith/internal/job"
	"panelsmith/internal/logging"
	"panelsmith/internal/preflight"
	"panelsmith/internal/session"
	"panelsmith/internal/workflow"
)

// buildDaemon wires the stores and worker pool behind the daemon. Preflight
// problems are reported but do not block startup; the API surfaces them on
// /health so operators can fix them while the daemon keeps serving.
func buildDaemon(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	for _, result := range preflight.RunAll(cfg) {
		if !result.Passed {
			logger.Warn("preflight check failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail))
		}
	}

	store, err := job.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}

	sessions := session.NewStore(sessionTTL(cfg), logger)
	manager := workflow.NewManager(cfg, store, sessions, logger)

	d, err := daemon.New(cfg, store, sessions, manager, logger)
	if err != nil {
		store.Close() //nolint:errcheck
		return nil, fmt.Errorf("create daemon: %w", err)
	}
	return d, nil
}

func sessionTTL(cfg *config.Config) time.Duration {
	minutes := cfg.Sessions.TTLMinutes
	if minutes <= 0 {
		minutes = 120
	}
	return time.Duration(minutes) * time.Minute
}
