// Package daemon coordinates the long-running panelsmith process.
//
// It wires the session store, job store, workflow manager, janitor, and
// HTTP API into a single lifecycle with flock-based locking to prevent
// multiple instances from sharing one staging tree. Start order matters:
// workers come up first so abandoned jobs are failed before the API
// accepts new submissions, the janitor follows, and the API listener is
// bound last.
//
// Keep orchestration logic here: pipeline behavior lives in its own
// packages while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon
