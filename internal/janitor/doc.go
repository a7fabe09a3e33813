// Package janitor enforces the transient-storage contract in the background.
//
// A single loop sweeps on a fixed interval: expired credential sessions are
// evicted, job rows older than the retention window are reaped regardless of
// status, and the staging and artifact directories belonging to reaped or
// orphaned jobs are removed from disk. Sweeps never fail the daemon; every
// problem is logged, counted, and skipped.
package janitor
