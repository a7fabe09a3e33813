package workflow_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"panelsmith/internal/job"
	"panelsmith/internal/notifications"
	"panelsmith/internal/services"
	"panelsmith/internal/session"
	"panelsmith/internal/testsupport"
	"panelsmith/internal/workflow"
)

type stubNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (s *stubNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *stubNotifier) recorded() []notifications.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notifications.Event(nil), s.events...)
}

// runnerScript builds scripted runners that stand in for the pipeline
// orchestrator: each writes the terminal state itself, exactly like the real
// runner, or blocks until its context is cancelled.
type runnerScript struct {
	store   *job.Store
	started chan string
	block   bool
	failure string

	mu    sync.Mutex
	creds []session.Credentials
}

func (s *runnerScript) factory() workflow.RunnerFactory {
	return func(creds session.Credentials) (workflow.JobRunner, error) {
		s.mu.Lock()
		s.creds = append(s.creds, creds)
		s.mu.Unlock()
		return &scriptedRunner{script: s}, nil
	}
}

func (s *runnerScript) credentials() []session.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]session.Credentials(nil), s.creds...)
}

type scriptedRunner struct {
	script *runnerScript
}

func (r *scriptedRunner) Run(ctx context.Context, claimed *job.Job) error {
	s := r.script
	if s.started != nil {
		select {
		case s.started <- claimed.Token:
		default:
		}
	}
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.failure != "" {
		update := job.Update{}.WithStatus(job.StatusFailed).WithErrorMessage(s.failure)
		if err := s.store.Update(ctx, claimed.Token, update); err != nil {
			return err
		}
		return errors.New(s.failure)
	}
	update := job.Update{}.WithStatus(job.StatusCompleted).WithProgress(100).WithStageLabel("Completed")
	return s.store.Update(ctx, claimed.Token, update)
}

func newManagerHarness(t *testing.T, script *runnerScript) (*workflow.Manager, *job.Store, *session.Store, *stubNotifier) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithWorkerCount(2))
	store := testsupport.MustOpenStore(t, cfg)
	script.store = store
	sessions := session.NewStore(time.Hour, nil)
	notifier := &stubNotifier{}
	mgr := workflow.NewManagerWithDependencies(cfg, store, sessions, nil, notifier, script.factory())
	return mgr, store, sessions, notifier
}

func attachedSession(t *testing.T, sessions *session.Store) (*session.Session, session.Credentials) {
	t.Helper()
	sess := sessions.Create()
	creds := session.Credentials{AnalysisKey: "sk-or-analysis-unit", SynthesisKey: "sk-synthesis-unit"}
	if err := sessions.Attach(sess.Token, creds); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	return sess, creds
}

func waitForStatus(t *testing.T, store *job.Store, token string, want job.Status) *job.Job {
	t.Helper()
	ctx := context.Background()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for status %s", want)
		default:
		}
		current, err := store.GetByToken(ctx, token)
		if err != nil {
			t.Fatalf("GetByToken failed: %v", err)
		}
		if current != nil && current.Status == want {
			return current
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func waitForEvent(t *testing.T, notifier *stubNotifier, want notifications.Event) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s notification", want)
		default:
		}
		for _, event := range notifier.recorded() {
			if event == want {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestManagerProcessesJobWithClaimTimeCredentials(t *testing.T) {
	script := &runnerScript{}
	mgr, store, sessions, notifier := newManagerHarness(t, script)

	sess, creds := attachedSession(t, sessions)
	created := testsupport.NewJob(t, store, sess.Token, "a quiet harbor town", job.Options{})

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	waitForStatus(t, store, created.Token, job.StatusCompleted)
	waitForEvent(t, notifier, notifications.EventJobCompleted)

	resolved := script.credentials()
	if len(resolved) != 1 {
		t.Fatalf("runner factory invoked %d times, want 1", len(resolved))
	}
	if resolved[0] != creds {
		t.Fatalf("runner received credentials %#v, want the attached bundle", resolved[0])
	}

	// The worker owns a snapshot; dropping the session after completion must
	// not matter.
	sessions.Delete(sess.Token)
}

func TestManagerFailsJobWhenSessionExpired(t *testing.T) {
	script := &runnerScript{}
	mgr, store, _, notifier := newManagerHarness(t, script)

	created := testsupport.NewJob(t, store, "session-that-never-existed", "payload", job.Options{})

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	failed := waitForStatus(t, store, created.Token, job.StatusFailed)
	if !strings.Contains(failed.ErrorMessage, "session expired before processing started") {
		t.Fatalf("error message = %q", failed.ErrorMessage)
	}
	waitForEvent(t, notifier, notifications.EventJobFailed)

	if resolved := script.credentials(); len(resolved) != 0 {
		t.Fatalf("runner factory should not run without a session, invoked %d times", len(resolved))
	}
}

func TestManagerStartFailsAbandonedJobs(t *testing.T) {
	script := &runnerScript{}
	mgr, store, _, _ := newManagerHarness(t, script)

	ctx := context.Background()
	abandoned := testsupport.NewJob(t, store, "session-1", "interrupted payload", job.Options{})
	if _, err := store.MarkProcessing(ctx, abandoned.Token); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	recovered, err := store.GetByToken(ctx, abandoned.Token)
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if recovered.Status != job.StatusFailed {
		t.Fatalf("status = %s, want failed", recovered.Status)
	}
	if recovered.ErrorMessage != workflow.AbandonedMessage {
		t.Fatalf("error message = %q", recovered.ErrorMessage)
	}
}

func TestManagerCancelInterruptsRunningJob(t *testing.T) {
	script := &runnerScript{block: true, started: make(chan string, 1)}
	mgr, store, sessions, notifier := newManagerHarness(t, script)

	sess, _ := attachedSession(t, sessions)
	created := testsupport.NewJob(t, store, sess.Token, "payload", job.Options{})

	ctx := context.Background()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	select {
	case <-script.started:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for runner to start")
	}

	if err := mgr.Cancel(ctx, created.Token); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	cancelled := waitForStatus(t, store, created.Token, job.StatusFailed)
	if cancelled.ErrorMessage != job.UserCancelMessage {
		t.Fatalf("error message = %q, want %q", cancelled.ErrorMessage, job.UserCancelMessage)
	}

	if err := mgr.Cancel(ctx, created.Token); !errors.Is(err, services.ErrState) {
		t.Fatalf("second cancel = %v, want state error", err)
	}

	mgr.Stop()
	if events := notifier.recorded(); len(events) != 0 {
		t.Fatalf("user cancellation should not notify, got %v", events)
	}
}

func TestManagerCancelPendingJob(t *testing.T) {
	script := &runnerScript{}
	mgr, store, _, _ := newManagerHarness(t, script)

	ctx := context.Background()
	created := testsupport.NewJob(t, store, "session-1", "payload", job.Options{})

	if err := mgr.Cancel(ctx, created.Token); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	after, err := store.GetByToken(ctx, created.Token)
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if after.Status != job.StatusFailed || after.ErrorMessage != job.UserCancelMessage {
		t.Fatalf("unexpected state after cancel: %#v", after)
	}
}

func TestManagerCancelUnknownJob(t *testing.T) {
	script := &runnerScript{}
	mgr, _, _, _ := newManagerHarness(t, script)

	if err := mgr.Cancel(context.Background(), "no-such-token"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("Cancel = %v, want not-found error", err)
	}
}

func TestManagerStartTwiceFails(t *testing.T) {
	script := &runnerScript{}
	mgr, _, _, _ := newManagerHarness(t, script)

	ctx := context.Background()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	if err := mgr.Start(ctx); err == nil {
		t.Fatal("second Start should fail while running")
	}

	health := mgr.Health()
	if !health.Running || health.Workers != 2 {
		t.Fatalf("unexpected health snapshot: %#v", health)
	}
}
