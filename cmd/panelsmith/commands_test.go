package main

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"panelsmith/internal/api"
	"panelsmith/internal/logging"
	"panelsmith/internal/session"
	"panelsmith/internal/testsupport"
	"panelsmith/internal/workflow"
)

// startTestDaemon serves the real API router over httptest so CLI commands
// exercise the same wire format the daemon speaks.
func startTestDaemon(t *testing.T) string {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	sessions := session.NewStore(2*time.Hour, logging.NewNop())
	manager := workflow.NewManagerWithDependencies(cfg, store, sessions, logging.NewNop(), nil, nil)

	server := api.NewServer(cfg, sessions, store, manager, logging.NewNop())
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestSessionCreateAndSubmitFlow(t *testing.T) {
	server := startTestDaemon(t)

	out, err := runCLI(t, []string{"session", "create", "--analysis-key", "sk-test", "--synthesis-key", "sk-test2"}, server)
	if err != nil {
		t.Fatalf("session create: %v", err)
	}
	requireContains(t, out, "Session:")
	requireContains(t, out, "Credentials: yes")

	token := ""
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, "Session:"); ok {
			token = strings.TrimSpace(rest)
		}
	}
	if token == "" {
		t.Fatalf("no session token in output:\n%s", out)
	}

	story := filepath.Join(t.TempDir(), "story.txt")
	if err := os.WriteFile(story, []byte("Once upon a time, a story was told."), 0o644); err != nil {
		t.Fatalf("write story: %v", err)
	}

	out, err = runCLI(t, []string{"submit", story, "--session", token, "--chapters", "all", "--format", "pdf"}, server)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	requireContains(t, out, "Job queued:")
}

func TestSubmitRejectsBadSelector(t *testing.T) {
	server := startTestDaemon(t)

	out, err := runCLI(t, []string{"session", "create", "--analysis-key", "sk-a", "--synthesis-key", "sk-b"}, server)
	if err != nil {
		t.Fatalf("session create: %v", err)
	}
	token := ""
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, "Session:"); ok {
			token = strings.TrimSpace(rest)
		}
	}

	story := filepath.Join(t.TempDir(), "story.txt")
	if err := os.WriteFile(story, []byte("text"), 0o644); err != nil {
		t.Fatalf("write story: %v", err)
	}

	if _, err := runCLI(t, []string{"submit", story, "--session", token, "--chapters", "3-x"}, server); err == nil {
		t.Fatal("expected malformed selector to be rejected")
	}
}

func TestStatusUnknownJob(t *testing.T) {
	server := startTestDaemon(t)

	if _, err := runCLI(t, []string{"status", "no-such-job"}, server); err == nil {
		t.Fatal("expected unknown job error")
	}
}

func TestQueueEmpty(t *testing.T) {
	server := startTestDaemon(t)

	out, err := runCLI(t, []string{"queue"}, server)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	requireContains(t, out, "Queue is empty.")
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
}
