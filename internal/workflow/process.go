package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"panelsmith/internal/job"
	"panelsmith/internal/logging"
	"panelsmith/internal/notifications"
	"panelsmith/internal/services"
	"panelsmith/internal/session"
)

func (m *Manager) processJob(parent context.Context, claimed *job.Job) {
	ctx := services.WithJobToken(parent, claimed.Token)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	ctx, cancelJob := context.WithCancel(ctx)
	m.trackJob(claimed.Token, cancelJob)
	defer func() {
		cancelJob()
		m.untrackJob(claimed.Token)
	}()

	logger := logging.WithContext(ctx, m.logger)

	creds, ok := m.resolveCredentials(ctx, logger, claimed)
	if !ok {
		return
	}

	runner, err := m.factory(creds)
	if err != nil {
		logger.Error("job collaborators unavailable", logging.Error(err))
		m.failJob(ctx, claimed.Token, err.Error())
		return
	}

	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeatLoop(hbCtx, &hbWG, claimed.Token)

	start := time.Now()
	logger.Info("job claimed", logging.Int("payload_bytes", len(claimed.InputPayload)))
	runErr := runner.Run(ctx, claimed)
	hbCancel()
	hbWG.Wait()

	switch {
	case runErr == nil:
		logger.Info("job finished", logging.Duration("job_duration", time.Since(start)))
		m.notifyOutcome(ctx, claimed.Token)
	case ctx.Err() != nil:
		logger.Debug("job interrupted", logging.Error(runErr))
	default:
		m.setLastError(runErr)
		logger.Error("job failed", logging.Error(runErr), logging.Duration("job_duration", time.Since(start)))
		m.notifyOutcome(ctx, claimed.Token)
	}
}

// resolveCredentials snapshots the session bundle at claim time. The worker
// keeps its own copy so later session expiry or deletion cannot strand the
// running job.
func (m *Manager) resolveCredentials(ctx context.Context, logger *slog.Logger, claimed *job.Job) (session.Credentials, bool) {
	sess := m.sessions.Get(claimed.SessionToken)
	if sess == nil {
		logger.Warn("session expired before processing started")
		m.failJob(ctx, claimed.Token, "session expired before processing started; create a new session and resubmit")
		return session.Credentials{}, false
	}
	if !sess.HasCredentials() {
		logger.Warn("session has no credentials attached")
		m.failJob(ctx, claimed.Token, "session has no credentials attached; attach keys and resubmit")
		return session.Credentials{}, false
	}
	return sess.Credentials, true
}

func (m *Manager) failJob(ctx context.Context, token, message string) {
	update := job.Update{}.WithStatus(job.StatusFailed).WithErrorMessage(message)
	if err := m.store.Update(ctx, token, update); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logging.WithContext(ctx, m.logger).Error("failed to persist job failure", logging.Error(err))
		m.setLastError(err)
		return
	}
	m.notifyOutcome(ctx, token)
}

// heartbeatLoop refreshes the liveness column while a runner owns the job.
func (m *Manager) heartbeatLoop(ctx context.Context, wg *sync.WaitGroup, token string) {
	defer wg.Done()
	ticker := time.NewTicker(m.heartbeatInterval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, m.logger)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.store.UpdateHeartbeat(ctx, token); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Warn("heartbeat update failed", logging.Error(err))
			}
		}
	}
}

// notifyOutcome reloads the terminal row and publishes the matching event.
// Delivery problems are logged and dropped; notifications never affect job
// state.
func (m *Manager) notifyOutcome(ctx context.Context, token string) {
	if m.notifier == nil {
		return
	}
	logger := logging.WithContext(ctx, m.logger)
	current, err := m.store.GetByToken(ctx, token)
	if err != nil || current == nil {
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Debug("job reload for notification failed", logging.Error(err))
		}
		return
	}

	var notifyErr error
	switch current.Status {
	case job.StatusCompleted:
		payload := notifications.Payload{"job": shortToken(token), "format": current.OutputFormat}
		if result, err := current.Result(); err == nil && result != nil {
			payload["pages"] = result.Pages
			payload["panels"] = result.Panels
			payload["format"] = result.Format
		}
		notifyErr = m.notifier.Publish(ctx, notifications.EventJobCompleted, payload)
	case job.StatusFailed:
		notifyErr = m.notifier.Publish(ctx, notifications.EventJobFailed, notifications.Payload{
			"job":   shortToken(token),
			"error": current.ErrorMessage,
		})
	default:
		return
	}
	if notifyErr != nil && !errors.Is(notifyErr, context.Canceled) {
		logger.Debug("notification delivery failed", logging.Error(notifyErr))
	}
}

// shortToken keeps pushes correlatable without exposing the full capability
// token.
func shortToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}
