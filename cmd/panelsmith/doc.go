// Package main hosts the panelsmith CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the daemon: session creation, story submission, progress
// watching, artifact downloads, queue inspection, and configuration
// scaffolding. It centralizes configuration resolution and server discovery
// so subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
