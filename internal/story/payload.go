// Package story defines the typed payloads exchanged with the analysis
// collaborator, the chapter selector grammar, and the input normalizer that
// prepares raw story text for analysis.
package story

import (
	"fmt"
	"strings"
)

// StyleSpec captures the visual direction inferred or requested for a story.
type StyleSpec struct {
	ArtStyle     string `json:"art_style"`
	ColorPalette string `json:"color_palette"`
	Mood         string `json:"mood"`
	Era          string `json:"era"`
}

// Chapter is one logical unit of the analyzed story. Paragraph indices refer
// to the normalized text and bound the chapter's source material.
type Chapter struct {
	Number         int    `json:"number"`
	Title          string `json:"title"`
	Summary        string `json:"summary"`
	StartParagraph int    `json:"start_paragraph"`
	EndParagraph   int    `json:"end_paragraph"`
}

// Character is a visual description of one recurring figure.
type Character struct {
	Name             string `json:"name"`
	Role             string `json:"role"`
	Age              string `json:"age"`
	Gender           string `json:"gender"`
	PhysicalFeatures string `json:"physical_features"`
	Clothing         string `json:"clothing"`
	Accessories      string `json:"accessories"`
	Personality      string `json:"personality"`
}

// Environment is a recurring location.
type Environment struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Recurring   bool   `json:"recurring"`
}

// Analysis is the structured result of story analysis.
type Analysis struct {
	Chapters     []Chapter     `json:"chapters"`
	Characters   []Character   `json:"characters"`
	Environments []Environment `json:"environments"`
	Style        StyleSpec     `json:"style"`
}

// Validate checks the shape of a decoded analysis document. The collaborator
// is untrusted; a payload that fails here is reported as a collaborator
// failure naming the offending field.
func (a *Analysis) Validate() error {
	if a == nil {
		return fmt.Errorf("analysis document is empty")
	}
	if len(a.Chapters) == 0 {
		return fmt.Errorf("analysis contains no chapters")
	}
	seen := make(map[int]struct{}, len(a.Chapters))
	for i, chapter := range a.Chapters {
		if chapter.Number <= 0 {
			return fmt.Errorf("chapters[%d] has non-positive number %d", i, chapter.Number)
		}
		if _, dup := seen[chapter.Number]; dup {
			return fmt.Errorf("duplicate chapter number %d", chapter.Number)
		}
		seen[chapter.Number] = struct{}{}
	}
	for i, character := range a.Characters {
		if strings.TrimSpace(character.Name) == "" {
			return fmt.Errorf("characters[%d] has an empty name", i)
		}
	}
	return nil
}

// ChapterRange returns the lowest and highest chapter numbers present.
func (a *Analysis) ChapterRange() (low, high int) {
	for i, chapter := range a.Chapters {
		if i == 0 || chapter.Number < low {
			low = chapter.Number
		}
		if chapter.Number > high {
			high = chapter.Number
		}
	}
	return low, high
}

// DialogueLine is one spoken line inside a panel.
type DialogueLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Emotion string `json:"emotion"`
}

// Panel describes a single drawable moment.
type Panel struct {
	Number       int            `json:"panel_num"`
	GlobalNumber int            `json:"global_panel_num"`
	Description  string         `json:"description"`
	Dialogue     []DialogueLine `json:"dialogue"`
	Narration    string         `json:"narration"`
	Characters   []string       `json:"characters"`
	CameraAngle  string         `json:"camera_angle"`
	Environment  string         `json:"environment"`
	KeyMoment    bool           `json:"key_moment"`
}

// PageBreakdown is one comic page with its layout identifier and panels.
type PageBreakdown struct {
	PageNumber int     `json:"page_number"`
	Layout     string  `json:"layout"`
	Panels     []Panel `json:"panels"`
}

// ChapterBreakdown is the panel plan for one chapter.
type ChapterBreakdown struct {
	ChapterNumber int             `json:"chapter_number"`
	ChapterTitle  string          `json:"chapter_title"`
	Pages         []PageBreakdown `json:"pages"`
}

// Validate checks the shape of a decoded breakdown document.
func (b *ChapterBreakdown) Validate() error {
	if b == nil || len(b.Pages) == 0 {
		return fmt.Errorf("chapter breakdown contains no pages")
	}
	for i, page := range b.Pages {
		if page.PageNumber <= 0 {
			return fmt.Errorf("pages[%d] has non-positive page number %d", i, page.PageNumber)
		}
		if len(page.Panels) == 0 {
			return fmt.Errorf("page %d has no panels", page.PageNumber)
		}
		for j, panel := range page.Panels {
			if strings.TrimSpace(panel.Description) == "" {
				return fmt.Errorf("page %d panel %d has an empty description", page.PageNumber, j+1)
			}
		}
	}
	return nil
}

// PanelCount returns the total number of panels across all pages.
func (b *ChapterBreakdown) PanelCount() int {
	total := 0
	for _, page := range b.Pages {
		total += len(page.Panels)
	}
	return total
}

// NumberPanels assigns global panel numbers in reading order, continuing from
// the provided counter, and returns the next free number. Breakdowns from
// separate chapters share one numbering sequence.
func (b *ChapterBreakdown) NumberPanels(next int) int {
	if next < 1 {
		next = 1
	}
	for i := range b.Pages {
		for j := range b.Pages[i].Panels {
			b.Pages[i].Panels[j].GlobalNumber = next
			next++
		}
	}
	return next
}
