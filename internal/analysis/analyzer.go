package analysis

import (
	"context"
	"fmt"
	"strings"

	"panelsmith/internal/story"
)

const (
	defaultMaxChapters           = 50
	defaultPanelsPerPage         = 4
	defaultMaxCharactersPerPanel = 3
)

// AnalyzerOptions bound the documents the collaborator is asked to produce.
// Zero values fall back to repository defaults.
type AnalyzerOptions struct {
	MaxChapters           int
	PanelsPerPage         int
	MaxCharactersPerPanel int
}

// Analyzer drives story analysis and chapter breakdown through a chat client
// and validates the returned documents at the boundary.
type Analyzer struct {
	client *Client
	opts   AnalyzerOptions
}

// NewAnalyzer wraps a client with prompt construction and payload validation.
func NewAnalyzer(client *Client, opts AnalyzerOptions) *Analyzer {
	if opts.MaxChapters <= 0 {
		opts.MaxChapters = defaultMaxChapters
	}
	if opts.PanelsPerPage <= 0 {
		opts.PanelsPerPage = defaultPanelsPerPage
	}
	if opts.MaxCharactersPerPanel <= 0 {
		opts.MaxCharactersPerPanel = defaultMaxCharactersPerPanel
	}
	return &Analyzer{client: client, opts: opts}
}

// Analyze extracts chapters, characters, environments, and style from
// normalized story text. The optional style hint overrides inference.
func (a *Analyzer) Analyze(ctx context.Context, text, styleHint string) (*story.Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("analyze story: empty story text")
	}
	prompt := buildAnalysisPrompt(text, styleHint, a.opts.MaxChapters)
	content, err := a.client.CompleteJSON(ctx, analysisSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("analyze story: %w", err)
	}
	var doc story.Analysis
	if err := DecodeDocument(content, &doc); err != nil {
		return nil, fmt.Errorf("analyze story: parse payload: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("analyze story: invalid document: %w", err)
	}
	return &doc, nil
}

// BreakdownChapter plans pages and panels for one chapter. The chapter's
// source text is sliced out of the normalized paragraphs by the paragraph
// window the analysis reported.
func (a *Analyzer) BreakdownChapter(ctx context.Context, chapter story.Chapter, paragraphs []string, doc *story.Analysis) (*story.ChapterBreakdown, error) {
	if doc == nil {
		return nil, fmt.Errorf("breakdown chapter %d: analysis document required", chapter.Number)
	}
	chapterText := chapterText(chapter, paragraphs)
	prompt := buildBreakdownPrompt(chapter, chapterText, doc, a.opts.PanelsPerPage, a.opts.MaxCharactersPerPanel)
	content, err := a.client.CompleteJSON(ctx, breakdownSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("breakdown chapter %d: %w", chapter.Number, err)
	}
	var breakdown story.ChapterBreakdown
	if err := DecodeDocument(content, &breakdown); err != nil {
		return nil, fmt.Errorf("breakdown chapter %d: parse payload: %w", chapter.Number, err)
	}
	breakdown.ChapterNumber = chapter.Number
	breakdown.ChapterTitle = chapter.Title
	if breakdown.ChapterTitle == "" {
		breakdown.ChapterTitle = fmt.Sprintf("Chapter %d", chapter.Number)
	}
	if err := breakdown.Validate(); err != nil {
		return nil, fmt.Errorf("breakdown chapter %d: invalid document: %w", chapter.Number, err)
	}
	return &breakdown, nil
}

// chapterText slices the chapter's paragraph window out of the normalized
// paragraphs. The end index is exclusive; out-of-range windows are clamped
// rather than rejected since the indices come from an untrusted collaborator.
func chapterText(chapter story.Chapter, paragraphs []string) string {
	start := chapter.StartParagraph
	end := chapter.EndParagraph
	if start < 0 {
		start = 0
	}
	if end <= 0 || end > len(paragraphs) {
		end = len(paragraphs)
	}
	if start >= end {
		return ""
	}
	return strings.Join(paragraphs[start:end], "\n\n")
}
