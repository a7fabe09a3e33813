package pipeline_test

import (
	"testing"

	"panelsmith/internal/pipeline"
)

func TestStagesCoverFullRangeInOrder(t *testing.T) {
	stages := pipeline.Stages()
	if len(stages) == 0 {
		t.Fatal("no stages defined")
	}
	if stages[0].Start != 0 {
		t.Fatalf("first stage starts at %d, want 0", stages[0].Start)
	}
	if stages[len(stages)-1].End != 100 {
		t.Fatalf("last stage ends at %d, want 100", stages[len(stages)-1].End)
	}
	for i, stage := range stages {
		if stage.End <= stage.Start {
			t.Fatalf("stage %s has empty span %d-%d", stage.Name, stage.Start, stage.End)
		}
		if i > 0 && stage.Start != stages[i-1].End {
			t.Fatalf("stage %s starts at %d but %s ends at %d",
				stage.Name, stage.Start, stages[i-1].Name, stages[i-1].End)
		}
	}
}

func TestStageProgress(t *testing.T) {
	cases := []struct {
		name  string
		stage pipeline.Stage
		index int
		total int
		want  int
	}{
		{name: "first sheet", stage: pipeline.StageSheets, index: 0, total: 4, want: 10},
		{name: "mid sheets", stage: pipeline.StageSheets, index: 2, total: 4, want: 22},
		{name: "last sheet stays below end", stage: pipeline.StageSheets, index: 3, total: 4, want: 28},
		{name: "panel three of eight", stage: pipeline.StagePanels, index: 3, total: 8, want: 65},
		{name: "zero total reports start", stage: pipeline.StagePanels, index: 0, total: 0, want: 50},
		{name: "negative index clamps to start", stage: pipeline.StageBreakdown, index: -2, total: 3, want: 35},
		{name: "index past total clamps to end", stage: pipeline.StageCompose, index: 9, total: 2, want: 97},
		{name: "single item", stage: pipeline.StageAnalyze, index: 0, total: 1, want: 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.stage.Progress(tc.index, tc.total); got != tc.want {
				t.Fatalf("Progress(%d, %d) = %d, want %d", tc.index, tc.total, got, tc.want)
			}
		})
	}
}

func TestStageProgressNonDecreasing(t *testing.T) {
	for _, total := range []int{1, 3, 7, 40, 113} {
		last := -1
		for index := 0; index < total; index++ {
			got := pipeline.StagePanels.Progress(index, total)
			if got < last {
				t.Fatalf("total %d: progress at index %d dropped from %d to %d", total, index, last, got)
			}
			if got >= pipeline.StagePanels.End {
				t.Fatalf("total %d: progress at index %d reached span end early: %d", total, index, got)
			}
			last = got
		}
	}
}
