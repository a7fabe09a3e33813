package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"panelsmith/internal/api"
	"panelsmith/internal/config"
	"panelsmith/internal/janitor"
	"panelsmith/internal/job"
	"panelsmith/internal/logging"
	"panelsmith/internal/session"
	"panelsmith/internal/workflow"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *job.Store
	sessions *session.Store
	workflow *workflow.Manager
	janitor  *janitor.Janitor
	api      *api.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New constructs a daemon around initialized dependencies. The janitor and
// API server are owned by the daemon itself.
func New(cfg *config.Config, store *job.Store, sessions *session.Store, wf *workflow.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || sessions == nil || wf == nil {
		return nil, errors.New("daemon requires config, stores, and workflow manager")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "panelsmithd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		sessions: sessions,
		workflow: wf,
		janitor:  janitor.New(cfg, store, sessions, logger),
		api:      api.NewServer(cfg, sessions, store, wf, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches workers, janitor, and the
// API listener. On any failure everything already started is unwound.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another panelsmith daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if err := d.workflow.Start(d.ctx); err != nil {
		d.unwind()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.janitor.Start(d.ctx); err != nil {
		d.workflow.Stop()
		d.unwind()
		return fmt.Errorf("start janitor: %w", err)
	}
	if err := d.api.Start(d.ctx); err != nil {
		d.janitor.Stop()
		d.workflow.Stop()
		d.unwind()
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.Addr()))
	return nil
}

// Stop halts background processing and releases the instance lock. The API
// goes down first so no new work arrives while workers drain.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.Stop()
	d.janitor.Stop()
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases all resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon services are up.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// APIAddr returns the bound API address, or empty before Start.
func (d *Daemon) APIAddr() string {
	return d.api.Addr()
}

// unwind releases the lock and clears the run context after a failed start.
func (d *Daemon) unwind() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ctx = nil
}
