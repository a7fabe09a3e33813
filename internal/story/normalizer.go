package story

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	spaceRuns      = regexp.MustCompile(` +`)
	trailingSpaces = regexp.MustCompile(` +\n`)
	newlineRuns    = regexp.MustCompile(`\n{3,}`)

	chapterMarker = regexp.MustCompile(`(?i)^(chapter|ch\.?)\s*([0-9]+|one|two|three|four|five|six|seven|eight|nine|ten)`)
	sceneBreak    = regexp.MustCompile(`^[-*#]{3,}$`)

	doubleQuoted = regexp.MustCompile(`"[^"]+"`)
	singleQuoted = regexp.MustCompile(`'[^']+'`)

	firstPersonWords  = regexp.MustCompile(`(?i)\b(i|me|my|mine|we|us|our)\b`)
	secondPersonWords = regexp.MustCompile(`(?i)\b(you|your|yours)\b`)
	thirdPersonWords  = regexp.MustCompile(`(?i)\b(he|she|they|him|her|them|his|hers|their)\b`)
)

var quoteFolding = strings.NewReplacer(
	"“", `"`, // left double quotation mark
	"”", `"`, // right double quotation mark
	"‘", "'", // left single quotation mark
	"’", "'", // right single quotation mark
	"«", `"`, // left guillemet
	"»", `"`, // right guillemet
)

// Structure records detected chapter markers and scene breaks as paragraph
// indices into the normalized text.
type Structure struct {
	ChapterMarkers []int
	SceneBreaks    []int
	HasChapters    bool
}

// Metadata summarizes the normalized story.
type Metadata struct {
	WordCount      int
	ParagraphCount int
	CharacterCount int
	HasChapters    bool
	ChapterCount   int
	SceneCount     int
}

// Normalized is the cleaned story text with annotations and structure hints.
// Text carries per-paragraph [DIALOGUE]/[MIXED]/[NARRATION] prefixes so the
// analysis collaborator can distinguish speech from narration.
type Normalized struct {
	Text        string
	Paragraphs  []string
	Structure   Structure
	Metadata    Metadata
	PointOfView string
}

// Normalize cleans raw story text: Unicode NFC, line ending and whitespace
// cleanup, quote folding, paragraph splitting, structure detection, and
// dialogue annotation.
func Normalize(raw string) Normalized {
	text := norm.NFC.String(raw)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = cleanWhitespace(text)
	text = quoteFolding.Replace(text)

	paragraphs := splitParagraphs(text)
	structure := detectStructure(paragraphs)
	annotated := annotateDialogue(paragraphs)

	return Normalized{
		Text:       strings.Join(annotated, "\n\n"),
		Paragraphs: annotated,
		Structure:  structure,
		Metadata: Metadata{
			WordCount:      len(strings.Fields(text)),
			ParagraphCount: len(paragraphs),
			CharacterCount: utf8.RuneCountInString(text),
			HasChapters:    structure.HasChapters,
			ChapterCount:   len(structure.ChapterMarkers),
			SceneCount:     len(structure.SceneBreaks) + 1,
		},
		PointOfView: DetectPointOfView(text),
	}
}

func cleanWhitespace(text string) string {
	text = spaceRuns.ReplaceAllString(text, " ")
	text = trailingSpaces.ReplaceAllString(text, "\n")
	text = newlineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, part := range strings.Split(text, "\n\n") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}

func detectStructure(paragraphs []string) Structure {
	structure := Structure{}
	for i, paragraph := range paragraphs {
		if chapterMarker.MatchString(paragraph) {
			structure.ChapterMarkers = append(structure.ChapterMarkers, i)
			structure.HasChapters = true
		}
		if sceneBreak.MatchString(paragraph) {
			structure.SceneBreaks = append(structure.SceneBreaks, i)
		}
	}
	return structure
}

// annotateDialogue prefixes each paragraph with its content class. A
// paragraph is DIALOGUE when quoted speech dominates it, MIXED when speech
// and narration share it, and NARRATION otherwise.
func annotateDialogue(paragraphs []string) []string {
	annotated := make([]string, 0, len(paragraphs))
	for _, paragraph := range paragraphs {
		if !doubleQuoted.MatchString(paragraph) && !singleQuoted.MatchString(paragraph) {
			annotated = append(annotated, "[NARRATION] "+paragraph)
			continue
		}
		stripped := strings.Trim(paragraph, `"'`)
		if float64(len(stripped)) < float64(len(paragraph))*0.8 {
			annotated = append(annotated, "[DIALOGUE] "+paragraph)
		} else {
			annotated = append(annotated, "[MIXED] "+paragraph)
		}
	}
	return annotated
}

// DetectPointOfView classifies the narration as "first", "second", "third",
// or "unknown" from pronoun frequency.
func DetectPointOfView(text string) string {
	first := len(firstPersonWords.FindAllString(text, -1))
	second := len(secondPersonWords.FindAllString(text, -1))
	third := len(thirdPersonWords.FindAllString(text, -1))

	total := first + second + third
	if total == 0 {
		return "unknown"
	}
	switch {
	case float64(first)/float64(total) > 0.4:
		return "first"
	case float64(second)/float64(total) > 0.3:
		return "second"
	default:
		return "third"
	}
}
