// Package pipeline drives one job from raw story text to a finished comic
// artifact.
//
// The Orchestrator executes a fixed sequence of stages, each owning a slice
// of the job's 0-100 progress range:
//
//	normalize  0-5    clean and annotate the input text
//	analyze    5-10   story analysis and chapter selection
//	sheets     10-35  character reference sheets
//	breakdown  35-50  per-chapter page and panel planning
//	panels     50-90  panel image synthesis
//	compose    90-97  page composition
//	export     97-100 artifact packaging
//
// Within a stage that iterates N sub-items, sub-item i reports
// start + (i/N)*(end-start); the stage reports its end value when it
// finishes. Progress writes are additionally clamped so the stored value
// never decreases.
//
// # Failure Policy
//
// Execution is fail fast with no stage retry: the first collaborator error
// marks the job failed and the collaborator's own message is persisted
// verbatim as the job's error. Out-of-range chapter selections fail the same
// way with a message naming the selection and the available chapters.
// Partial staging output stays on disk for the janitor to reap.
//
// # Cancellation
//
// The orchestrator goroutine is the only writer of its job's status and
// progress. Cancellation is delivered through the run context: in-flight
// collaborator calls abort, and once any stage returns a context error the
// orchestrator stops without writing, leaving the terminal state recorded by
// the canceller untouched.
package pipeline
