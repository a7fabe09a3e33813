// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job tokens, stage names, worker ordinals, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (validation vs not-found vs external vs state) uniform
//     across the HTTP surface and the orchestrator.
//
// Use these helpers when wiring new stage logic so operational behaviour stays
// consistent across the pipeline.
package services
