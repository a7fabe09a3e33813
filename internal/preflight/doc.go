// Package preflight provides readiness checks for the filesystem paths
// and collaborator endpoints the daemon depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs failures; the API
//     /health endpoint re-runs them so operators can spot a degraded
//     path without restarting.
//   - The CLI "panelsmith config validate" command uses individual
//     check functions to probe a configuration before the daemon ever
//     starts.
//
// API keys live in client sessions, never in config, so the daemon-side
// checks are credential-free. CheckAnalysis needs a key and only runs
// from the CLI with one taken from the environment.
package preflight
