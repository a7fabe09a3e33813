package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"panelsmith/internal/job"
	"panelsmith/internal/logging"
	"panelsmith/internal/services"
)

// Start recovers abandoned jobs and launches the worker pool.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.mu.Unlock()

	// Any job still marked processing belongs to a dead run. It fails with a
	// descriptive message rather than silently restarting mid-pipeline.
	if count, err := m.store.FailAbandoned(runCtx, AbandonedMessage); err != nil {
		m.logger.Warn("abandoned job recovery failed; stale rows may remain", logging.Error(err))
	} else if count > 0 {
		m.logger.Info("failed jobs abandoned by previous run", logging.Int64("count", count))
	}

	m.wg.Add(m.workerCount)
	for ordinal := 1; ordinal <= m.workerCount; ordinal++ {
		go m.runWorker(runCtx, ordinal)
	}
	m.logger.Info("workflow started", logging.Int("workers", m.workerCount))
	return nil
}

// Stop terminates background processing and waits for workers to drain.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("workflow stopped")
}

func (m *Manager) runWorker(ctx context.Context, ordinal int) {
	defer m.wg.Done()
	workerCtx := services.WithWorker(ctx, ordinal)
	logger := logging.WithContext(workerCtx, m.logger)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		claimed, err := m.claimNext(workerCtx)
		if err != nil {
			m.handleClaimError(workerCtx, logger, err)
			continue
		}
		if claimed == nil {
			m.waitForWork(ctx)
			continue
		}
		m.processJob(workerCtx, claimed)
	}
}

// claimNext takes the oldest pending job. The status-guarded update in
// MarkProcessing keeps two pollers from winning the same row; the loser sees
// nil and polls again.
func (m *Manager) claimNext(ctx context.Context) (*job.Job, error) {
	next, err := m.store.NextPending(ctx)
	if err != nil || next == nil {
		return nil, err
	}
	won, err := m.store.MarkProcessing(ctx, next.Token)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, nil
	}
	next.Status = job.StatusProcessing
	return next, nil
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	m.setLastError(err)
	logger.Error("failed to fetch next job", logging.Error(err))
	m.waitForWork(ctx)
}

func (m *Manager) waitForWork(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}
