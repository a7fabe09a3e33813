package services_test

import (
	"context"
	"testing"

	"panelsmith/internal/services"
)

func TestContextRoundTrips(t *testing.T) {
	ctx := context.Background()

	if _, ok := services.JobTokenFromContext(ctx); ok {
		t.Fatal("expected no job token on fresh context")
	}

	ctx = services.WithJobToken(ctx, "job-123")
	ctx = services.WithStage(ctx, "analyze")
	ctx = services.WithWorker(ctx, 3)
	ctx = services.WithRequestID(ctx, "req-9")

	if token, ok := services.JobTokenFromContext(ctx); !ok || token != "job-123" {
		t.Fatalf("expected job token, got %q ok=%v", token, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "analyze" {
		t.Fatalf("expected stage, got %q ok=%v", stage, ok)
	}
	if worker, ok := services.WorkerFromContext(ctx); !ok || worker != 3 {
		t.Fatalf("expected worker 3, got %d ok=%v", worker, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-9" {
		t.Fatalf("expected request id, got %q ok=%v", rid, ok)
	}
}

func TestEmptyValuesAreIgnored(t *testing.T) {
	ctx := services.WithJobToken(context.Background(), "")
	if _, ok := services.JobTokenFromContext(ctx); ok {
		t.Fatal("expected empty job token to be dropped")
	}
	ctx = services.WithStage(context.Background(), "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected empty stage to be dropped")
	}
}
