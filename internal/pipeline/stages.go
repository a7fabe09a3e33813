package pipeline

// Stage is one step of the fixed pipeline. Start and End bound the slice of
// the job's progress range the stage owns.
type Stage struct {
	Name  string
	Label string
	Start int
	End   int
}

var (
	StageNormalize = Stage{Name: "normalize", Label: "Normalizing input", Start: 0, End: 5}
	StageAnalyze   = Stage{Name: "analyze", Label: "Analyzing story", Start: 5, End: 10}
	StageSheets    = Stage{Name: "sheets", Label: "Drawing character sheets", Start: 10, End: 35}
	StageBreakdown = Stage{Name: "breakdown", Label: "Planning pages", Start: 35, End: 50}
	StagePanels    = Stage{Name: "panels", Label: "Drawing panels", Start: 50, End: 90}
	StageCompose   = Stage{Name: "compose", Label: "Composing pages", Start: 90, End: 97}
	StageExport    = Stage{Name: "export", Label: "Packaging artifact", Start: 97, End: 100}
)

// Stages returns the pipeline stages in execution order.
func Stages() []Stage {
	return []Stage{
		StageNormalize,
		StageAnalyze,
		StageSheets,
		StageBreakdown,
		StagePanels,
		StageCompose,
		StageExport,
	}
}

// Progress reports the percent value for the 0-based sub-item index out of
// total within this stage's span. Integer division keeps the sequence
// non-decreasing and strictly below End until the stage completes.
func (s Stage) Progress(index, total int) int {
	if total <= 0 {
		return s.Start
	}
	if index < 0 {
		index = 0
	}
	if index > total {
		index = total
	}
	return s.Start + index*(s.End-s.Start)/total
}
