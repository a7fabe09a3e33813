package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"panelsmith/internal/compose"
	"panelsmith/internal/config"
	"panelsmith/internal/export"
	"panelsmith/internal/job"
	"panelsmith/internal/logging"
	"panelsmith/internal/services"
	"panelsmith/internal/story"
	"panelsmith/internal/synthesis"
)

// Staging subdirectories inside a job's scratch directory.
const (
	sheetsDirName = "character_sheets"
	panelsDirName = "panels"
	pagesDirName  = "pages"
)

// CompletedLabel is the stage label carried by finished jobs.
const CompletedLabel = "Completed"

// Analyzer produces the typed story documents the pipeline consumes.
type Analyzer interface {
	Analyze(ctx context.Context, text, styleHint string) (*story.Analysis, error)
	BreakdownChapter(ctx context.Context, chapter story.Chapter, paragraphs []string, doc *story.Analysis) (*story.ChapterBreakdown, error)
}

// ImageGenerator renders prompts into PNG bytes and tracks spend.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
	Images() int
	TotalCost() float64
}

// PageCompositor assembles panel images onto a page canvas.
type PageCompositor interface {
	ComposePage(page story.PageBreakdown, panelFiles []string, outputPath string) error
}

// ArtifactEncoder packages composed pages into the output artifact.
type ArtifactEncoder interface {
	Encode(ctx context.Context, pages []string, format export.Format, outputDir string) (string, error)
}

// Orchestrator runs the stage sequence for a single claimed job. The
// analyzer and generator carry the job's session credentials, so a fresh
// orchestrator is built per job.
type Orchestrator struct {
	cfg        *config.Config
	store      *job.Store
	logger     *slog.Logger
	analyzer   Analyzer
	generator  ImageGenerator
	compositor PageCompositor
	encoder    ArtifactEncoder
}

// New constructs an orchestrator with the default local collaborators built
// from configuration.
func New(cfg *config.Config, store *job.Store, logger *slog.Logger, analyzer Analyzer, generator ImageGenerator) *Orchestrator {
	return NewWithDependencies(cfg, store, logger, analyzer, generator,
		compose.FromConfig(cfg, logger), export.NewEncoder(logger))
}

// NewWithDependencies allows injecting every collaborator (used in tests).
func NewWithDependencies(
	cfg *config.Config,
	store *job.Store,
	logger *slog.Logger,
	analyzer Analyzer,
	generator ImageGenerator,
	compositor PageCompositor,
	encoder ArtifactEncoder,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		store:      store,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		analyzer:   analyzer,
		generator:  generator,
		compositor: compositor,
		encoder:    encoder,
	}
}

// runState accumulates the intermediate products of one job run.
type runState struct {
	job     *job.Job
	tracker *progressTracker
	logger  *slog.Logger

	stagingDir string
	sheetsDir  string
	panelsDir  string
	pagesDir   string

	format     export.Format
	selector   story.Selector
	normalized story.Normalized
	doc        *story.Analysis
	selected   []story.Chapter
	templates  *synthesis.Templates
	characters []string
	breakdowns []*story.ChapterBreakdown

	totalPanels  int
	panelFiles   map[int]string
	pageFiles    []string
	artifactPath string
}

// Run drives the claimed job through every stage and records the terminal
// state. A context error aborts without any further writes; any other error
// marks the job failed with the failure's message.
func (o *Orchestrator) Run(ctx context.Context, claimed *job.Job) error {
	if claimed == nil {
		return errors.New("job is required")
	}
	logger := logging.WithContext(ctx, o.logger)
	rs := &runState{
		job:        claimed,
		tracker:    newProgressTracker(o.store, claimed.Token, claimed.Progress),
		logger:     logger,
		panelFiles: make(map[int]string),
	}

	start := time.Now()
	logger.Info("pipeline started",
		logging.String("output_format", claimed.OutputFormat),
		logging.String("chapter_selector", claimed.ChapterSelector))

	if err := o.execute(ctx, rs); err != nil {
		if ctx.Err() != nil {
			logger.Debug("pipeline halted", logging.Error(ctx.Err()))
			return err
		}
		message := failureMessage(err)
		logger.Error("pipeline failed",
			logging.Error(err),
			logging.String("error_message", message))
		update := job.Update{}.WithStatus(job.StatusFailed).WithErrorMessage(message)
		if updateErr := o.store.Update(ctx, claimed.Token, update); updateErr != nil {
			logger.Error("failed to persist pipeline failure", logging.Error(updateErr))
		}
		return err
	}

	logger.Info("pipeline completed",
		logging.String("artifact_path", rs.artifactPath),
		logging.Int("pages", len(rs.pageFiles)),
		logging.Int("panels", rs.totalPanels),
		logging.Int("images", o.generator.Images()),
		logging.Float64("estimated_cost_usd", o.generator.TotalCost()),
		logging.Duration("pipeline_duration", time.Since(start)))
	return nil
}

func (o *Orchestrator) execute(ctx context.Context, rs *runState) error {
	steps := []struct {
		stage Stage
		run   func(context.Context, *runState) error
	}{
		{StageNormalize, o.runNormalize},
		{StageAnalyze, o.runAnalyze},
		{StageSheets, o.runSheets},
		{StageBreakdown, o.runBreakdown},
		{StagePanels, o.runPanels},
		{StageCompose, o.runCompose},
		{StageExport, o.runExport},
	}
	for _, step := range steps {
		stageCtx := services.WithStage(ctx, step.stage.Name)
		rs.logger = logging.WithContext(stageCtx, o.logger)
		if err := rs.tracker.enter(stageCtx, step.stage); err != nil {
			return err
		}
		if err := step.run(stageCtx, rs); err != nil {
			return err
		}
		if err := rs.tracker.complete(stageCtx, step.stage); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return o.finish(ctx, rs)
}

func (o *Orchestrator) runNormalize(ctx context.Context, rs *runState) error {
	format, err := export.ParseFormat(rs.job.OutputFormat)
	if err != nil {
		return userFailure(StageNormalize.Name, err.Error())
	}
	rs.format = format

	selector, err := story.ParseSelector(rs.job.ChapterSelector)
	if err != nil {
		return userFailure(StageNormalize.Name, err.Error())
	}
	rs.selector = selector

	normalized := story.Normalize(rs.job.InputPayload)
	if strings.TrimSpace(normalized.Text) == "" {
		return userFailure(StageNormalize.Name, "story text is empty")
	}
	rs.normalized = normalized

	rs.stagingDir = o.cfg.JobStagingDir(rs.job.Token)
	rs.sheetsDir = filepath.Join(rs.stagingDir, sheetsDirName)
	rs.panelsDir = filepath.Join(rs.stagingDir, panelsDirName)
	rs.pagesDir = filepath.Join(rs.stagingDir, pagesDirName)
	for _, dir := range []string{rs.sheetsDir, rs.panelsDir, rs.pagesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return internalFailure(StageNormalize.Name, fmt.Errorf("create staging directory: %w", err))
		}
	}

	rs.logger.Info("input normalized",
		logging.Int("paragraphs", normalized.Metadata.ParagraphCount),
		logging.Int("words", normalized.Metadata.WordCount),
		logging.String("point_of_view", normalized.PointOfView))
	return nil
}

func (o *Orchestrator) runAnalyze(ctx context.Context, rs *runState) error {
	doc, err := o.analyzer.Analyze(ctx, rs.normalized.Text, rs.job.Style)
	if err != nil {
		return externalFailure(StageAnalyze.Name, err)
	}
	rs.doc = doc

	selected := rs.selector.Filter(doc.Chapters)
	if len(selected) == 0 {
		low, high := doc.ChapterRange()
		return userFailure(StageAnalyze.Name, fmt.Sprintf(
			"chapter selection %q matches no chapters; the story has chapters %d-%d",
			rs.job.ChapterSelector, low, high))
	}
	rs.selected = selected
	rs.templates = synthesis.BuildTemplates(doc)
	rs.characters = rs.templates.Characters()

	rs.logger.Info("story analyzed",
		logging.Int("chapters", len(doc.Chapters)),
		logging.Int("chapters_selected", len(selected)),
		logging.Int("characters", len(rs.characters)),
		logging.String("art_style", rs.templates.ArtStyle()))
	return nil
}

func (o *Orchestrator) runSheets(ctx context.Context, rs *runState) error {
	for i, name := range rs.characters {
		if err := rs.tracker.step(ctx, StageSheets, i, len(rs.characters)); err != nil {
			return err
		}
		prompts, err := rs.templates.SheetPrompts(name)
		if err != nil {
			return internalFailure(StageSheets.Name, err)
		}
		dir := filepath.Join(rs.sheetsDir, synthesis.SanitizeFilename(name))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return internalFailure(StageSheets.Name, fmt.Errorf("create sheet directory: %w", err))
		}
		for _, sheet := range prompts {
			data, err := o.generator.Generate(ctx, sheet.Prompt)
			if err != nil {
				return externalFailure(StageSheets.Name, err)
			}
			file := filepath.Join(dir, fmt.Sprintf("%s_%s.png",
				synthesis.SanitizeFilename(name), synthesis.SanitizeFilename(sheet.Angle)))
			if err := os.WriteFile(file, data, 0o644); err != nil {
				return internalFailure(StageSheets.Name, fmt.Errorf("write character sheet: %w", err))
			}
		}
		rs.logger.Debug("character sheets drawn",
			logging.String("character", name),
			logging.Int("views", len(prompts)))
	}
	return nil
}

func (o *Orchestrator) runBreakdown(ctx context.Context, rs *runState) error {
	next := 1
	for i, chapter := range rs.selected {
		if err := rs.tracker.step(ctx, StageBreakdown, i, len(rs.selected)); err != nil {
			return err
		}
		breakdown, err := o.analyzer.BreakdownChapter(ctx, chapter, rs.normalized.Paragraphs, rs.doc)
		if err != nil {
			return externalFailure(StageBreakdown.Name, err)
		}
		next = breakdown.NumberPanels(next)
		rs.breakdowns = append(rs.breakdowns, breakdown)
		rs.logger.Debug("chapter planned",
			logging.Int("chapter", breakdown.ChapterNumber),
			logging.Int("pages", len(breakdown.Pages)),
			logging.Int("panels", breakdown.PanelCount()))
	}
	rs.totalPanels = next - 1
	return nil
}

func (o *Orchestrator) runPanels(ctx context.Context, rs *runState) error {
	index := 0
	for _, breakdown := range rs.breakdowns {
		for _, page := range breakdown.Pages {
			for _, panel := range page.Panels {
				if err := rs.tracker.step(ctx, StagePanels, index, rs.totalPanels); err != nil {
					return err
				}
				data, err := o.generator.Generate(ctx, rs.templates.PanelPrompt(panel))
				if err != nil {
					return externalFailure(StagePanels.Name, err)
				}
				file := filepath.Join(rs.panelsDir, fmt.Sprintf("panel_%03d.png", panel.GlobalNumber))
				if err := os.WriteFile(file, data, 0o644); err != nil {
					return internalFailure(StagePanels.Name, fmt.Errorf("write panel image: %w", err))
				}
				rs.panelFiles[panel.GlobalNumber] = file
				index++
			}
		}
	}
	return nil
}

func (o *Orchestrator) runCompose(ctx context.Context, rs *runState) error {
	totalPages := 0
	for _, breakdown := range rs.breakdowns {
		totalPages += len(breakdown.Pages)
	}

	index := 0
	for _, breakdown := range rs.breakdowns {
		for _, page := range breakdown.Pages {
			if err := rs.tracker.step(ctx, StageCompose, index, totalPages); err != nil {
				return err
			}
			files := make([]string, 0, len(page.Panels))
			for _, panel := range page.Panels {
				file, ok := rs.panelFiles[panel.GlobalNumber]
				if !ok {
					return internalFailure(StageCompose.Name,
						fmt.Errorf("panel %d has no rendered image", panel.GlobalNumber))
				}
				files = append(files, file)
			}
			outputPath := filepath.Join(rs.pagesDir,
				fmt.Sprintf("chapter_%d_page_%d.png", breakdown.ChapterNumber, page.PageNumber))
			if err := o.compositor.ComposePage(page, files, outputPath); err != nil {
				return internalFailure(StageCompose.Name, err)
			}
			rs.pageFiles = append(rs.pageFiles, outputPath)
			index++
		}
	}
	return nil
}

func (o *Orchestrator) runExport(ctx context.Context, rs *runState) error {
	artifactDir := filepath.Join(o.cfg.Paths.ArtifactsDir, rs.job.Token)
	path, err := o.encoder.Encode(ctx, rs.pageFiles, rs.format, artifactDir)
	if err != nil {
		return internalFailure(StageExport.Name, err)
	}
	rs.artifactPath = path
	return nil
}

func (o *Orchestrator) finish(ctx context.Context, rs *runState) error {
	result := job.Result{
		ArtifactPath:     rs.artifactPath,
		Format:           string(rs.format),
		Pages:            len(rs.pageFiles),
		Panels:           rs.totalPanels,
		Characters:       len(rs.characters),
		EstimatedCostUSD: o.generator.TotalCost(),
	}
	encoded, err := result.Encode()
	if err != nil {
		return internalFailure(StageExport.Name, err)
	}
	update := job.Update{}.
		WithStatus(job.StatusCompleted).
		WithProgress(100).
		WithStageLabel(CompletedLabel).
		WithResultJSON(encoded)
	if err := o.store.Update(ctx, rs.job.Token, update); err != nil {
		return internalFailure(StageExport.Name, fmt.Errorf("persist completion: %w", err))
	}
	return nil
}
