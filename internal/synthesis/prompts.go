package synthesis

import (
	"fmt"
	"strings"

	"panelsmith/internal/story"
)

// Base prompt field order: style, name, age, gender, physical features,
// clothing, accessories. Empty fields are dropped rather than left as bare
// commas.
const (
	fallbackArtStyle = "comic book art"
	fallbackAge      = "adult"
	fallbackClothing = "casual clothing"

	sheetAction = "character reference sheet, neutral expression, clean background"
)

// SheetAngles are the views generated for every character reference sheet.
var SheetAngles = []string{"front", "3/4", "profile"}

var angleDescriptions = map[string]string{
	"front":    "facing forward, front view",
	"3/4":      "three-quarter view, slight angle",
	"profile":  "side profile, 90 degree angle",
	"back":     "back view, facing away",
	"overhead": "overhead view, bird's eye",
}

var shotDescriptions = map[string]string{
	"extreme-close-up": "extreme close-up shot, face detail",
	"close-up":         "close-up shot, head and shoulders",
	"medium-shot":      "medium shot, waist up",
	"full-body":        "full body shot, head to toe",
	"long-shot":        "long shot, full figure with environment",
}

// Templates holds the per-character base prompts for one job.
type Templates struct {
	artStyle string
	base     map[string]string
	order    []string
}

// SheetPrompt is one reference sheet view ready for generation.
type SheetPrompt struct {
	Character string
	Angle     string
	Prompt    string
}

// BuildTemplates derives a base prompt for every character in the analysis
// document.
func BuildTemplates(doc *story.Analysis) *Templates {
	templates := &Templates{
		artStyle: fallbackArtStyle,
		base:     make(map[string]string),
	}
	if doc == nil {
		return templates
	}
	if style := strings.TrimSpace(doc.Style.ArtStyle); style != "" {
		templates.artStyle = style
	}
	for _, character := range doc.Characters {
		name := strings.TrimSpace(character.Name)
		if name == "" {
			continue
		}
		templates.base[name] = characterBasePrompt(character, templates.artStyle)
		templates.order = append(templates.order, name)
	}
	return templates
}

func characterBasePrompt(character story.Character, artStyle string) string {
	age := strings.TrimSpace(character.Age)
	if age == "" {
		age = fallbackAge
	}
	clothing := strings.TrimSpace(character.Clothing)
	if clothing == "" {
		clothing = fallbackClothing
	}
	parts := []string{
		artStyle,
		character.Name,
		age,
		strings.TrimSpace(character.Gender),
		strings.TrimSpace(character.PhysicalFeatures),
		clothing,
		strings.TrimSpace(character.Accessories),
	}
	return joinNonEmpty(parts)
}

// Characters returns the character names in analysis order.
func (t *Templates) Characters() []string {
	return t.order
}

// BasePrompt returns the base prompt for a character.
func (t *Templates) BasePrompt(name string) (string, bool) {
	prompt, ok := t.base[name]
	return prompt, ok
}

// ArtStyle returns the art style shared by every prompt of this job.
func (t *Templates) ArtStyle() string {
	return t.artStyle
}

// SheetPrompts returns the reference sheet views for one character: full-body
// shots at each sheet angle with a neutral expression.
func (t *Templates) SheetPrompts(name string) ([]SheetPrompt, error) {
	base, ok := t.base[name]
	if !ok {
		return nil, fmt.Errorf("no template for character %q", name)
	}
	prompts := make([]SheetPrompt, 0, len(SheetAngles))
	for _, angle := range SheetAngles {
		prompts = append(prompts, SheetPrompt{
			Character: name,
			Angle:     angle,
			Prompt: strings.Join([]string{
				base,
				angleDescription(angle),
				shotDescription("full-body"),
				sheetAction,
			}, ", "),
		})
	}
	return prompts, nil
}

// PanelPrompt builds the complete, sanitized prompt for one panel: art style,
// visual description, the base prompts of the characters in frame, and the
// camera angle.
func (t *Templates) PanelPrompt(panel story.Panel) string {
	description := strings.TrimSpace(panel.Description)

	var inFrame []string
	for _, name := range panel.Characters {
		if base, ok := t.base[strings.TrimSpace(name)]; ok {
			inFrame = append(inFrame, base)
		}
	}
	if len(inFrame) > 0 {
		description += ". Characters: " + strings.Join(inFrame, ", ")
	}

	camera := strings.TrimSpace(panel.CameraAngle)
	if camera == "" {
		camera = "medium-shot"
	}
	description += ", " + camera

	prompt := t.artStyle + ", " + description
	prompt = strings.Join(strings.Fields(prompt), " ")
	return SanitizePrompt(prompt)
}

func angleDescription(angle string) string {
	if desc, ok := angleDescriptions[angle]; ok {
		return desc
	}
	return "front view"
}

func shotDescription(shot string) string {
	if desc, ok := shotDescriptions[shot]; ok {
		return desc
	}
	return "medium shot"
}

func joinNonEmpty(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, ", ")
}
