package preflight

import (
	"panelsmith/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// minStagingFree is the free-space floor for the staging filesystem. A job
// stages every rendered panel as a PNG before compose, so a nearly full disk
// fails mid-pipeline with the job half written.
const minStagingFree = 256 << 20

// RunAll executes every check that works without credentials. Connectivity
// checks for the analysis and synthesis services need an API key and are
// left to the CLI.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
	}

	if cfg.Paths.ArtifactsDir != "" {
		results = append(results, CheckDirectoryAccess("Artifacts directory", cfg.Paths.ArtifactsDir))
	}

	results = append(results,
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckFreeSpace("Staging free space", cfg.Paths.StagingDir, minStagingFree),
		CheckAnalysisConfig(cfg.Analysis),
		CheckSynthesisConfig(cfg.Synthesis),
		CheckNotifications(cfg.Notifications),
	)

	return results
}

// Healthy reports whether every result passed.
func Healthy(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
