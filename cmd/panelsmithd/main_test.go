package main

import (
	"testing"
	"time"

	"panelsmith/internal/logging"
	"panelsmith/internal/testsupport"
)

func TestBuildDaemonWiresDependencies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	d, err := buildDaemon(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("buildDaemon failed: %v", err)
	}
	defer d.Close()

	if d.Running() {
		t.Fatal("daemon should not be running before Start")
	}
}

func TestSessionTTL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Sessions.TTLMinutes = 30
	if got := sessionTTL(cfg); got != 30*time.Minute {
		t.Fatalf("expected 30m TTL, got %s", got)
	}

	cfg.Sessions.TTLMinutes = 0
	if got := sessionTTL(cfg); got != 120*time.Minute {
		t.Fatalf("expected default 2h TTL, got %s", got)
	}
}
