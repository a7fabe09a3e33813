// Package workflow drains the job queue with a bounded worker pool.
//
// The Manager polls for pending jobs, claims them atomically, and hands each
// claim to a per-job pipeline runner built from the credentials resolved at
// claim time. A heartbeat goroutine refreshes the job's liveness column while
// the runner works, and user cancellation interrupts the runner through a
// per-job context tracked by the manager.
//
// Interrupted work is never resumed: jobs left processing by an earlier
// daemon run are failed with a descriptive message during Start, and clients
// resubmit. Terminal outcomes are pushed through the notifications service.
package workflow
