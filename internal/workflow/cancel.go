package workflow

import (
	"context"
	"fmt"

	"panelsmith/internal/job"
	"panelsmith/internal/logging"
	"panelsmith/internal/services"
)

// Cancel marks a job failed on the user's behalf and interrupts its runner
// when one is active. Terminal jobs are left untouched and reported as a
// state conflict.
func (m *Manager) Cancel(ctx context.Context, token string) error {
	current, err := m.store.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if current == nil {
		return services.Wrap(services.ErrNotFound, "workflow", "cancel job", "unknown job token", nil)
	}
	if current.IsTerminal() {
		return services.Wrap(services.ErrState, "workflow", "cancel job", fmt.Sprintf("job is already %s", current.Status), nil)
	}

	// Terminal state is written before the runner is interrupted so the
	// pipeline's context guard sees a cancelled context and stays silent.
	update := job.Update{}.WithStatus(job.StatusFailed).WithErrorMessage(job.UserCancelMessage)
	if err := m.store.Update(ctx, token, update); err != nil {
		return fmt.Errorf("persist cancellation: %w", err)
	}
	m.interrupt(token)
	logging.WithContext(services.WithJobToken(ctx, token), m.logger).Info("job cancelled")
	return nil
}

func (m *Manager) trackJob(token string, cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[token] = cancel
}

func (m *Manager) untrackJob(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, token)
}

func (m *Manager) interrupt(token string) {
	m.mu.Lock()
	cancel := m.active[token]
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
