package janitor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"panelsmith/internal/config"
	"panelsmith/internal/job"
	"panelsmith/internal/logging"
	"panelsmith/internal/session"
)

// Janitor periodically evicts expired sessions, reaps old job rows, and
// removes the on-disk leavings of reaped and orphaned jobs.
type Janitor struct {
	cfg      *config.Config
	jobs     *job.Store
	sessions *session.Store
	logger   *slog.Logger
	now      func() time.Time

	interval  time.Duration
	retention time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a janitor from the workflow retention settings.
func New(cfg *config.Config, jobs *job.Store, sessions *session.Store, logger *slog.Logger) *Janitor {
	return NewWithClock(cfg, jobs, sessions, logger, time.Now)
}

// NewWithClock creates a janitor whose notion of time is supplied by the
// caller. Tests use this to exercise retention without sleeping.
func NewWithClock(cfg *config.Config, jobs *job.Store, sessions *session.Store, logger *slog.Logger, now func() time.Time) *Janitor {
	if now == nil {
		now = time.Now
	}
	interval := time.Duration(cfg.Workflow.SweepIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	retention := time.Duration(cfg.Workflow.RetentionHours) * time.Hour
	if retention <= 0 {
		retention = 2 * time.Hour
	}
	return &Janitor{
		cfg:       cfg,
		jobs:      jobs,
		sessions:  sessions,
		logger:    logging.NewComponentLogger(logger, "janitor"),
		now:       now,
		interval:  interval,
		retention: retention,
	}
}

// Start launches the sweep loop. The first sweep runs immediately so a
// restart clears leftovers without waiting a full interval.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return errors.New("janitor already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.running = true
	j.mu.Unlock()

	j.wg.Add(1)
	go j.run(runCtx)
	return nil
}

// Stop terminates the sweep loop and waits for it to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	cancel := j.cancel
	j.running = false
	j.cancel = nil
	j.mu.Unlock()

	cancel()
	j.wg.Wait()
}

func (j *Janitor) run(ctx context.Context) {
	defer j.wg.Done()
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

// Summary counts the work done by a single sweep.
type Summary struct {
	SessionsReaped int
	JobsReaped     int
	DirsRemoved    int
	Problems       int
}

// SweepOnce runs one full sweep immediately and reports what it did.
func (j *Janitor) SweepOnce(ctx context.Context) Summary {
	return j.sweep(ctx)
}

func (j *Janitor) sweep(ctx context.Context) Summary {
	var summary Summary
	now := j.now()

	if j.sessions != nil {
		summary.SessionsReaped = j.sessions.Sweep(now)
	}

	reaped, err := j.jobs.Sweep(ctx, now.Add(-j.retention))
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			j.logger.Warn("job retention sweep failed", logging.Error(err))
		}
		summary.Problems++
	}
	summary.JobsReaped = len(reaped)

	for _, token := range reaped {
		removed, problems := j.removeJobDirs(token)
		summary.DirsRemoved += removed
		summary.Problems += problems
	}

	removed, problems := j.sweepOrphanedStaging(ctx)
	summary.DirsRemoved += removed
	summary.Problems += problems

	if summary.SessionsReaped > 0 || summary.JobsReaped > 0 || summary.DirsRemoved > 0 || summary.Problems > 0 {
		j.logger.Info("sweep completed",
			logging.Int("sessions_reaped", summary.SessionsReaped),
			logging.Int("jobs_reaped", summary.JobsReaped),
			logging.Int("dirs_removed", summary.DirsRemoved),
			logging.Int("problems", summary.Problems),
		)
	}
	return summary
}

// removeJobDirs deletes the staging and artifact directories of a reaped job.
func (j *Janitor) removeJobDirs(token string) (removed, problems int) {
	for _, dir := range []string{
		j.cfg.JobStagingDir(token),
		filepath.Join(j.cfg.Paths.ArtifactsDir, token),
	} {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			j.logger.Warn("failed to remove job directory",
				logging.String(logging.FieldJobToken, token),
				logging.String("dir", dir),
				logging.Error(err))
			problems++
			continue
		}
		removed++
	}
	return removed, problems
}

// sweepOrphanedStaging removes staging directories whose job row no longer
// exists. Only names that parse as job tokens are considered, so stray files
// in the staging tree are left alone.
func (j *Janitor) sweepOrphanedStaging(ctx context.Context) (removed, problems int) {
	root := j.cfg.JobStagingRoot()
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, 0
		}
		j.logger.Warn("failed to scan staging root", logging.Error(err))
		return 0, 1
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		token := entry.Name()
		if _, err := uuid.Parse(token); err != nil {
			continue
		}
		current, err := j.jobs.GetByToken(ctx, token)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				j.logger.Warn("orphan check failed",
					logging.String(logging.FieldJobToken, token),
					logging.Error(err))
			}
			problems++
			continue
		}
		if current != nil {
			continue
		}
		dir := filepath.Join(root, token)
		if err := os.RemoveAll(dir); err != nil {
			j.logger.Warn("failed to remove orphaned staging",
				logging.String(logging.FieldJobToken, token),
				logging.String("dir", dir),
				logging.Error(err))
			problems++
			continue
		}
		removed++
	}
	return removed, problems
}
