// Package logging centralizes slog construction for the daemon and CLI.
//
// It provides a human-oriented console handler (timestamp, level, component
// prefix, flattened key=value attrs) and a JSON handler for machine ingestion,
// both level-gated from config. Context helpers stamp job tokens, stage names,
// worker ordinals, and correlation IDs onto log lines so a single job can be
// traced across the workflow pool and the HTTP surface.
//
// Obtain loggers through NewFromConfig in binaries and NewNop in tests.
package logging
