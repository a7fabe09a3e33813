package job_test

import (
	"context"
	"testing"
	"time"

	"panelsmith/internal/job"
	"panelsmith/internal/testsupport"
)

func TestOpenInitializesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	created, err := store.Create(ctx, "session-1", "Once upon a time", job.Options{
		ChapterSelector: "all",
		OutputFormat:    "pdf",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Token == "" {
		t.Fatal("expected token to be assigned")
	}
	if created.Status != job.StatusPending {
		t.Fatalf("status = %s, want pending", created.Status)
	}
	if created.Progress != 0 {
		t.Fatalf("progress = %d, want 0", created.Progress)
	}
	if created.StageLabel != job.QueuedLabel {
		t.Fatalf("stage label = %q, want %q", created.StageLabel, job.QueuedLabel)
	}

	fetched, err := store.GetByToken(ctx, created.Token)
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if fetched == nil || fetched.InputPayload != "Once upon a time" {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}
}

func TestGetByTokenMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	fetched, err := store.GetByToken(context.Background(), "no-such-token")
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if fetched != nil {
		t.Fatalf("expected nil for missing job, got %#v", fetched)
	}
}

func TestUpdateAppliesPartialMerge(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	created := testsupport.NewJob(t, store, "session-1", "payload", job.Options{ChapterSelector: "1-3"})

	if err := store.Update(ctx, created.Token, job.Update{}.WithProgress(42).WithStageLabel("Drawing panels")); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	after, err := store.GetByToken(ctx, created.Token)
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if after.Progress != 42 || after.StageLabel != "Drawing panels" {
		t.Fatalf("merge missed fields: progress=%d stage=%q", after.Progress, after.StageLabel)
	}
	if after.Status != job.StatusPending {
		t.Fatalf("status changed unexpectedly: %s", after.Status)
	}
	if after.ChapterSelector != "1-3" {
		t.Fatalf("selector changed unexpectedly: %q", after.ChapterSelector)
	}

	if err := store.Update(ctx, created.Token, job.Update{}.WithStatus(job.StatusFailed).WithErrorMessage("boom")); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	final, err := store.GetByToken(ctx, created.Token)
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if final.Status != job.StatusFailed || final.ErrorMessage != "boom" {
		t.Fatalf("second merge missed fields: %#v", final)
	}
	if final.Progress != 42 {
		t.Fatalf("progress should survive unrelated update, got %d", final.Progress)
	}
}

func TestUpdateMissingJobIsNoOp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	err := store.Update(context.Background(), "vanished", job.Update{}.WithProgress(10))
	if err != nil {
		t.Fatalf("update of missing job should be silent, got %v", err)
	}
}

func TestSweepReapsByAgeRegardlessOfStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewJob(t, store, "session-1", "one", job.Options{})
	second := testsupport.NewJob(t, store, "session-1", "two", job.Options{})
	if err := store.Update(ctx, second.Token, job.Update{}.WithStatus(job.StatusCompleted)); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	reaped, err := store.Sweep(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(reaped) != 2 {
		t.Fatalf("reaped %d jobs, want 2", len(reaped))
	}
	seen := map[string]bool{}
	for _, token := range reaped {
		seen[token] = true
	}
	if !seen[first.Token] || !seen[second.Token] {
		t.Fatalf("reaped tokens %v missing created jobs", reaped)
	}

	remaining, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected empty store after sweep, got %d jobs", len(remaining))
	}
}

func TestSweepKeepsYoungJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewJob(t, store, "session-1", "young", job.Options{})

	reaped, err := store.Sweep(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(reaped) != 0 {
		t.Fatalf("reaped %d jobs, want 0", len(reaped))
	}
}

func TestMarkProcessingClaimsAtomically(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	created := testsupport.NewJob(t, store, "session-1", "payload", job.Options{})

	claimed, err := store.MarkProcessing(ctx, created.Token)
	if err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if !claimed {
		t.Fatal("expected first claim to win")
	}

	claimedAgain, err := store.MarkProcessing(ctx, created.Token)
	if err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if claimedAgain {
		t.Fatal("second claim should lose")
	}

	after, err := store.GetByToken(ctx, created.Token)
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if after.Status != job.StatusProcessing {
		t.Fatalf("status = %s, want processing", after.Status)
	}
	if after.LastHeartbeat == nil {
		t.Fatal("claim should record a heartbeat")
	}
}

func TestNextPendingReturnsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewJob(t, store, "session-1", "first", job.Options{})
	testsupport.NewJob(t, store, "session-1", "second", job.Options{})

	next, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if next == nil || next.Token != first.Token {
		t.Fatalf("expected oldest pending job, got %#v", next)
	}

	if _, err := store.MarkProcessing(ctx, first.Token); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	next, err = store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if next == nil || next.InputPayload != "second" {
		t.Fatalf("expected second job after claim, got %#v", next)
	}
}

func TestFailAbandonedMarksProcessingJobsFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	created := testsupport.NewJob(t, store, "session-1", "payload", job.Options{})
	if _, err := store.MarkProcessing(ctx, created.Token); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	update := job.Update{}.WithProgress(55).WithStageLabel("Drawing panels")
	if err := store.Update(ctx, created.Token, update); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.FailAbandoned(ctx, "processing interrupted by daemon restart")
	if err != nil {
		t.Fatalf("FailAbandoned failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("failed %d jobs, want 1", count)
	}

	after, err := store.GetByToken(ctx, created.Token)
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if after.Status != job.StatusFailed {
		t.Fatalf("status = %s, want failed", after.Status)
	}
	if after.ErrorMessage != "processing interrupted by daemon restart" {
		t.Fatalf("error message = %q", after.ErrorMessage)
	}
	if after.Progress != 55 || after.StageLabel != "Drawing panels" {
		t.Fatalf("abandoned job should keep its last progress, got %#v", after)
	}
	if after.LastHeartbeat != nil {
		t.Fatal("heartbeat should be cleared")
	}
}

func TestFailAbandonedLeavesOtherStatusesAlone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	pending := testsupport.NewJob(t, store, "session-1", "pending payload", job.Options{})
	completed := testsupport.NewJob(t, store, "session-1", "completed payload", job.Options{})
	if _, err := store.MarkProcessing(ctx, completed.Token); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	done := job.Update{}.WithStatus(job.StatusCompleted).WithProgress(100)
	if err := store.Update(ctx, completed.Token, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.FailAbandoned(ctx, "processing interrupted by daemon restart")
	if err != nil {
		t.Fatalf("FailAbandoned failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed %d jobs, want 0", count)
	}

	for _, tc := range []struct {
		token string
		want  job.Status
	}{
		{pending.Token, job.StatusPending},
		{completed.Token, job.StatusCompleted},
	} {
		after, err := store.GetByToken(ctx, tc.token)
		if err != nil {
			t.Fatalf("GetByToken failed: %v", err)
		}
		if after.Status != tc.want {
			t.Fatalf("status = %s, want %s", after.Status, tc.want)
		}
	}
}

func TestStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewJob(t, store, "session-1", "a", job.Options{})
	done := testsupport.NewJob(t, store, "session-1", "b", job.Options{})
	failed := testsupport.NewJob(t, store, "session-1", "c", job.Options{})
	if err := store.Update(ctx, done.Token, job.Update{}.WithStatus(job.StatusCompleted)); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := store.Update(ctx, failed.Token, job.Update{}.WithStatus(job.StatusFailed).WithErrorMessage("x")); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[job.StatusPending] != 1 || stats[job.StatusCompleted] != 1 || stats[job.StatusFailed] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 3 || health.Pending != 1 || health.Completed != 1 || health.Failed != 1 {
		t.Fatalf("unexpected health: %#v", health)
	}
}

func TestCheckHealthReportsSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("unexpected health: %#v", health)
	}
	if len(health.MissingColumns) != 0 {
		t.Fatalf("missing columns: %v", health.MissingColumns)
	}
	if !health.IntegrityCheck {
		t.Fatal("integrity check should pass on a fresh database")
	}
}

func TestResultRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	created := testsupport.NewJob(t, store, "session-1", "payload", job.Options{})

	encoded, err := job.Result{
		ArtifactPath:     "/tmp/story.pdf",
		Format:           "pdf",
		Pages:            4,
		Panels:           14,
		Characters:       3,
		EstimatedCostUSD: 0.62,
	}.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	update := job.Update{}.WithStatus(job.StatusCompleted).WithProgress(100).WithResultJSON(encoded)
	if err := store.Update(ctx, created.Token, update); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	after, err := store.GetByToken(ctx, created.Token)
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	result, err := after.Result()
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	if result == nil || result.Pages != 4 || result.Format != "pdf" || result.EstimatedCostUSD != 0.62 {
		t.Fatalf("unexpected result: %#v", result)
	}
}
