package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"panelsmith/internal/job"
	"panelsmith/internal/pipeline"
	"panelsmith/internal/services"
	"panelsmith/internal/story"
	"panelsmith/internal/testsupport"
)

func panelBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	fill := color.RGBA{R: 90, G: 120, B: 200, A: 255}
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.SetRGBA(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode panel bytes: %v", err)
	}
	return buf.Bytes()
}

type fakeAnalyzer struct {
	doc          *story.Analysis
	analyzeErr   error
	breakdownErr error
	breakdowns   map[int]*story.ChapterBreakdown

	styleHints []string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, text, styleHint string) (*story.Analysis, error) {
	f.styleHints = append(f.styleHints, styleHint)
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return f.doc, nil
}

func (f *fakeAnalyzer) BreakdownChapter(ctx context.Context, chapter story.Chapter, paragraphs []string, doc *story.Analysis) (*story.ChapterBreakdown, error) {
	if f.breakdownErr != nil {
		return nil, f.breakdownErr
	}
	breakdown, ok := f.breakdowns[chapter.Number]
	if !ok {
		return nil, fmt.Errorf("no breakdown prepared for chapter %d", chapter.Number)
	}
	return breakdown, nil
}

// fakeGenerator returns a fixed PNG and records the job's stored progress at
// every call so tests can assert ordering across a whole run.
type fakeGenerator struct {
	t     *testing.T
	store *job.Store
	token string
	png   []byte

	failAt int
	err    error
	cancel context.CancelFunc

	mu       sync.Mutex
	prompts  []string
	observed []int
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.store != nil {
		current, err := f.store.GetByToken(ctx, f.token)
		if err == nil && current != nil {
			f.observed = append(f.observed, current.Progress)
		}
	}
	call := len(f.prompts)
	if f.failAt > 0 && call == f.failAt {
		if f.cancel != nil {
			f.cancel()
			return nil, ctx.Err()
		}
		return nil, f.err
	}
	return f.png, nil
}

func (f *fakeGenerator) Images() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeGenerator) TotalCost() float64 {
	return float64(f.Images()) * 0.04
}

func analysisDoc() *story.Analysis {
	return &story.Analysis{
		Chapters: []story.Chapter{
			{Number: 1, Title: "The Harbor", Summary: "Mara finds the boat.", StartParagraph: 0, EndParagraph: 1},
			{Number: 2, Title: "The Storm", Summary: "The storm arrives.", StartParagraph: 1, EndParagraph: 2},
		},
		Characters: []story.Character{{
			Name:             "Mara",
			Role:             "protagonist",
			Age:              "early 30s",
			Gender:           "female",
			PhysicalFeatures: "short black hair",
			Clothing:         "oilskin coat",
		}},
		Style: story.StyleSpec{ArtStyle: "noir comic"},
	}
}

func chapterBreakdown(chapter int, panelsPerPage ...int) *story.ChapterBreakdown {
	breakdown := &story.ChapterBreakdown{ChapterNumber: chapter, ChapterTitle: fmt.Sprintf("Chapter %d", chapter)}
	for pageIdx, count := range panelsPerPage {
		layoutName := "three-grid"
		if count == 1 {
			layoutName = "splash"
		}
		page := story.PageBreakdown{PageNumber: pageIdx + 1, Layout: layoutName}
		for p := 0; p < count; p++ {
			page.Panels = append(page.Panels, story.Panel{
				Number:      p + 1,
				Description: fmt.Sprintf("chapter %d page %d moment %d", chapter, pageIdx+1, p+1),
				Characters:  []string{"Mara"},
				CameraAngle: "medium-shot",
			})
		}
		breakdown.Pages = append(breakdown.Pages, page)
	}
	return breakdown
}

const storyPayload = "Mara walked to the harbor at dawn.\n\nBy noon the storm had swallowed the horizon."

func TestRunCompletesJob(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithCanvas(240, 330, 20, 10))
	store := testsupport.MustOpenStore(t, cfg)
	created := testsupport.NewJob(t, store, "session-1", storyPayload, job.Options{OutputFormat: "pdf"})
	if ok, err := store.MarkProcessing(ctx, created.Token); err != nil || !ok {
		t.Fatalf("MarkProcessing: ok=%v err=%v", ok, err)
	}

	analyzer := &fakeAnalyzer{
		doc: analysisDoc(),
		breakdowns: map[int]*story.ChapterBreakdown{
			1: chapterBreakdown(1, 2),
			2: chapterBreakdown(2, 1),
		},
	}
	generator := &fakeGenerator{t: t, store: store, token: created.Token, png: panelBytes(t)}

	orch := pipeline.New(cfg, store, nil, analyzer, generator)
	if err := orch.Run(ctx, created); err != nil {
		t.Fatalf("Run: %v", err)
	}

	reloaded, err := store.GetByToken(ctx, created.Token)
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if reloaded.Status != job.StatusCompleted {
		t.Fatalf("status = %s, want completed (error: %s)", reloaded.Status, reloaded.ErrorMessage)
	}
	if reloaded.Progress != 100 {
		t.Fatalf("progress = %d, want 100", reloaded.Progress)
	}
	if reloaded.StageLabel != pipeline.CompletedLabel {
		t.Fatalf("stage label = %q", reloaded.StageLabel)
	}
	if reloaded.ErrorMessage != "" {
		t.Fatalf("unexpected error message %q", reloaded.ErrorMessage)
	}

	result, err := reloaded.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if result == nil {
		t.Fatal("completed job has no result")
	}
	if result.Pages != 2 || result.Panels != 3 || result.Characters != 1 {
		t.Fatalf("result counts = pages %d panels %d characters %d", result.Pages, result.Panels, result.Characters)
	}
	if result.Format != "pdf" {
		t.Fatalf("result format = %q", result.Format)
	}
	// 3 sheet views for one character plus 3 panels.
	if generator.Images() != 6 {
		t.Fatalf("generated images = %d, want 6", generator.Images())
	}
	if result.EstimatedCostUSD != generator.TotalCost() {
		t.Fatalf("cost = %v, want %v", result.EstimatedCostUSD, generator.TotalCost())
	}
	if filepath.Base(result.ArtifactPath) != "comic.pdf" {
		t.Fatalf("artifact path = %s", result.ArtifactPath)
	}
	if _, err := os.Stat(result.ArtifactPath); err != nil {
		t.Fatalf("stat artifact: %v", err)
	}

	staging := cfg.JobStagingDir(created.Token)
	for _, rel := range []string{
		"character_sheets/Mara/Mara_front.png",
		"character_sheets/Mara/Mara_34.png",
		"character_sheets/Mara/Mara_profile.png",
		"panels/panel_001.png",
		"panels/panel_002.png",
		"panels/panel_003.png",
		"pages/chapter_1_page_1.png",
		"pages/chapter_2_page_1.png",
	} {
		if _, err := os.Stat(filepath.Join(staging, rel)); err != nil {
			t.Fatalf("stat staging file %s: %v", rel, err)
		}
	}

	last := -1
	for i, observed := range generator.observed {
		if observed < last {
			t.Fatalf("progress regressed at generator call %d: %d -> %d", i+1, last, observed)
		}
		last = observed
	}

	sheetPrompt := generator.prompts[0]
	if !strings.Contains(sheetPrompt, "character reference sheet") || !strings.Contains(sheetPrompt, "Mara") {
		t.Fatalf("sheet prompt = %q", sheetPrompt)
	}
	panelPrompt := generator.prompts[3]
	if !strings.Contains(panelPrompt, "chapter 1 page 1 moment 1") {
		t.Fatalf("panel prompt = %q", panelPrompt)
	}
}

func TestRunPNGArtifactIsPageDirectory(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithCanvas(240, 330, 20, 10))
	store := testsupport.MustOpenStore(t, cfg)
	created := testsupport.NewJob(t, store, "session-1", storyPayload, job.Options{OutputFormat: "png", ChapterSelector: "1"})
	if _, err := store.MarkProcessing(ctx, created.Token); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}

	analyzer := &fakeAnalyzer{
		doc:        analysisDoc(),
		breakdowns: map[int]*story.ChapterBreakdown{1: chapterBreakdown(1, 1)},
	}
	generator := &fakeGenerator{t: t, png: panelBytes(t)}

	orch := pipeline.New(cfg, store, nil, analyzer, generator)
	if err := orch.Run(ctx, created); err != nil {
		t.Fatalf("Run: %v", err)
	}

	reloaded, err := store.GetByToken(ctx, created.Token)
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	result, err := reloaded.Result()
	if err != nil || result == nil {
		t.Fatalf("Result: %v (result=%v)", err, result)
	}
	if result.Format != "png" {
		t.Fatalf("result format = %q", result.Format)
	}
	if _, err := os.Stat(filepath.Join(result.ArtifactPath, "page_001.png")); err != nil {
		t.Fatalf("stat page set: %v", err)
	}
}

func TestRunFailsOnEmptySelection(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithCanvas(240, 330, 20, 10))
	store := testsupport.MustOpenStore(t, cfg)
	created := testsupport.NewJob(t, store, "session-1", storyPayload, job.Options{OutputFormat: "pdf", ChapterSelector: "9"})
	if _, err := store.MarkProcessing(ctx, created.Token); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}

	analyzer := &fakeAnalyzer{doc: analysisDoc()}
	generator := &fakeGenerator{t: t, png: panelBytes(t)}

	orch := pipeline.New(cfg, store, nil, analyzer, generator)
	err := orch.Run(ctx, created)
	if err == nil {
		t.Fatal("expected run to fail")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error class = %v", err)
	}

	reloaded, getErr := store.GetByToken(ctx, created.Token)
	if getErr != nil {
		t.Fatalf("GetByToken: %v", getErr)
	}
	if reloaded.Status != job.StatusFailed {
		t.Fatalf("status = %s, want failed", reloaded.Status)
	}
	if !strings.Contains(reloaded.ErrorMessage, `chapter selection "9"`) || !strings.Contains(reloaded.ErrorMessage, "chapters 1-2") {
		t.Fatalf("error message = %q", reloaded.ErrorMessage)
	}
	if reloaded.ResultJSON != "" {
		t.Fatalf("failed job has result %q", reloaded.ResultJSON)
	}
	if reloaded.Progress != pipeline.StageAnalyze.Start {
		t.Fatalf("progress = %d, want %d", reloaded.Progress, pipeline.StageAnalyze.Start)
	}
	if generator.Images() != 0 {
		t.Fatalf("images generated before failure: %d", generator.Images())
	}
}

func TestRunPreservesCollaboratorMessage(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithCanvas(240, 330, 20, 10))
	store := testsupport.MustOpenStore(t, cfg)
	created := testsupport.NewJob(t, store, "session-1", storyPayload, job.Options{OutputFormat: "pdf"})
	if _, err := store.MarkProcessing(ctx, created.Token); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}

	analyzer := &fakeAnalyzer{analyzeErr: errors.New("analysis request: http 503: upstream melted")}
	generator := &fakeGenerator{t: t, png: panelBytes(t)}

	orch := pipeline.New(cfg, store, nil, analyzer, generator)
	err := orch.Run(ctx, created)
	if err == nil {
		t.Fatal("expected run to fail")
	}
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("error class = %v", err)
	}

	reloaded, getErr := store.GetByToken(ctx, created.Token)
	if getErr != nil {
		t.Fatalf("GetByToken: %v", getErr)
	}
	if reloaded.Status != job.StatusFailed {
		t.Fatalf("status = %s, want failed", reloaded.Status)
	}
	if reloaded.ErrorMessage != "analysis request: http 503: upstream melted" {
		t.Fatalf("error message = %q, want the collaborator's text unchanged", reloaded.ErrorMessage)
	}
}

func TestRunFailsOnEmptyInput(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithCanvas(240, 330, 20, 10))
	store := testsupport.MustOpenStore(t, cfg)
	created := testsupport.NewJob(t, store, "session-1", "   \n\n\t ", job.Options{OutputFormat: "pdf"})
	if _, err := store.MarkProcessing(ctx, created.Token); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}

	orch := pipeline.New(cfg, store, nil, &fakeAnalyzer{}, &fakeGenerator{t: t})
	err := orch.Run(ctx, created)
	if err == nil {
		t.Fatal("expected run to fail")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error class = %v", err)
	}

	reloaded, getErr := store.GetByToken(ctx, created.Token)
	if getErr != nil {
		t.Fatalf("GetByToken: %v", getErr)
	}
	if reloaded.Status != job.StatusFailed || reloaded.ErrorMessage != "story text is empty" {
		t.Fatalf("job = %s / %q", reloaded.Status, reloaded.ErrorMessage)
	}
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithCanvas(240, 330, 20, 10))
	store := testsupport.MustOpenStore(t, cfg)
	created := testsupport.NewJob(t, store, "session-1", storyPayload, job.Options{OutputFormat: "epub"})
	if _, err := store.MarkProcessing(ctx, created.Token); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}

	orch := pipeline.New(cfg, store, nil, &fakeAnalyzer{}, &fakeGenerator{t: t})
	err := orch.Run(ctx, created)
	if err == nil {
		t.Fatal("expected run to fail")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error class = %v", err)
	}

	reloaded, getErr := store.GetByToken(ctx, created.Token)
	if getErr != nil {
		t.Fatalf("GetByToken: %v", getErr)
	}
	if reloaded.Status != job.StatusFailed || !strings.Contains(reloaded.ErrorMessage, "not supported") {
		t.Fatalf("job = %s / %q", reloaded.Status, reloaded.ErrorMessage)
	}
}

func TestRunStopsWritingAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := testsupport.NewConfig(t, testsupport.WithCanvas(240, 330, 20, 10))
	store := testsupport.MustOpenStore(t, cfg)
	created := testsupport.NewJob(t, store, "session-1", storyPayload, job.Options{OutputFormat: "pdf", ChapterSelector: "all"})
	if _, err := store.MarkProcessing(ctx, created.Token); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}

	analyzer := &fakeAnalyzer{
		doc: analysisDoc(),
		breakdowns: map[int]*story.ChapterBreakdown{
			1: chapterBreakdown(1, 2),
			2: chapterBreakdown(2, 1),
		},
	}
	// Calls 1-3 draw Mara's sheets; call 4 is the first panel and triggers
	// cancellation mid-stage.
	generator := &fakeGenerator{t: t, png: panelBytes(t), failAt: 4, cancel: cancel}

	orch := pipeline.New(cfg, store, nil, analyzer, generator)
	err := orch.Run(ctx, created)
	if err == nil {
		t.Fatal("expected run to abort")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled in chain", err)
	}

	reloaded, getErr := store.GetByToken(context.Background(), created.Token)
	if getErr != nil {
		t.Fatalf("GetByToken: %v", getErr)
	}
	if reloaded.Status != job.StatusProcessing {
		t.Fatalf("status = %s; the orchestrator must not write a terminal state after cancellation", reloaded.Status)
	}
	if reloaded.ErrorMessage != "" {
		t.Fatalf("error message written after cancellation: %q", reloaded.ErrorMessage)
	}
	if reloaded.Progress != pipeline.StagePanels.Start {
		t.Fatalf("progress = %d, want %d (last write before cancellation)", reloaded.Progress, pipeline.StagePanels.Start)
	}
}
