package main

import (
	"bytes"
	"strings"
	"testing"
)

// runCLI executes the command tree with the given args and returns captured
// stdout. The server argument, when non-empty, is injected as --server so
// commands talk to a test HTTP server instead of a real daemon.
func runCLI(t *testing.T, args []string, server string) (string, error) {
	t.Helper()

	if server != "" {
		args = append([]string{"--server", server}, args...)
	}

	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stdout)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}
