package pipeline

import (
	"context"
	"fmt"

	"panelsmith/internal/job"
)

// progressTracker serializes a job's progress writes. Values below the last
// written percent are clamped up, so the stored progress never decreases even
// if span arithmetic or a resumed job would produce a lower number. Every
// write checks the context first; after cancellation nothing reaches the
// store.
type progressTracker struct {
	store     *job.Store
	token     string
	last      int
	lastLabel string
}

func newProgressTracker(store *job.Store, token string, current int) *progressTracker {
	return &progressTracker{store: store, token: token, last: current}
}

// enter records the start of a stage: its label and its span floor.
func (t *progressTracker) enter(ctx context.Context, stage Stage) error {
	return t.write(ctx, stage.Start, stage.Label)
}

// step records progress for the 0-based sub-item index out of total.
func (t *progressTracker) step(ctx context.Context, stage Stage, index, total int) error {
	return t.write(ctx, stage.Progress(index, total), stage.Label)
}

// complete records the stage's span ceiling.
func (t *progressTracker) complete(ctx context.Context, stage Stage) error {
	return t.write(ctx, stage.End, stage.Label)
}

func (t *progressTracker) write(ctx context.Context, percent int, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if percent < t.last {
		percent = t.last
	}
	if percent == t.last && label == t.lastLabel {
		return nil
	}
	update := job.Update{}.WithProgress(percent).WithStageLabel(label)
	if err := t.store.Update(ctx, t.token, update); err != nil {
		return fmt.Errorf("record progress: %w", err)
	}
	t.last = percent
	t.lastLabel = label
	return nil
}
