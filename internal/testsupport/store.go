package testsupport

import (
	"context"
	"testing"

	"panelsmith/internal/config"
	"panelsmith/internal/job"
)

// MustOpenStore opens a job.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *job.Store {
	t.Helper()

	store, err := job.Open(cfg)
	if err != nil {
		t.Fatalf("job.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob creates a pending job for tests using the provided store.
func NewJob(t testing.TB, store *job.Store, sessionToken, payload string, opts job.Options) *job.Job {
	t.Helper()

	if opts.OutputFormat == "" {
		opts.OutputFormat = "pdf"
	}
	created, err := store.Create(context.Background(), sessionToken, payload, opts)
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return created
}
