package analysis

import (
	"fmt"
	"strings"

	"panelsmith/internal/story"
)

// analysisSystemPrompt captures the standing instructions sent with every
// story analysis request. Update this text centrally so every call stays in
// sync.
const analysisSystemPrompt = `You are a comic adaptation planner. You read prose and extract the structure needed to draw it as a comic book. You must respond ONLY with a single JSON object and no additional text.`

// breakdownSystemPrompt captures the standing instructions sent with every
// chapter breakdown request.
const breakdownSystemPrompt = `You are a comic storyboard artist. You turn chapter prose into concrete pages and panels that an illustrator can draw. You must respond ONLY with a single JSON object and no additional text.`

const analysisPromptTemplate = `Analyze this story and extract its structure for comic book generation.

Story:
%s

Provide a JSON response with the following structure:

{
  "chapters": [
    {
      "number": 1,
      "title": "Chapter title or description",
      "summary": "Brief summary of events",
      "start_paragraph": 0,
      "end_paragraph": 10
    }
  ],
  "characters": [
    {
      "name": "Character Name",
      "role": "protagonist/antagonist/supporting",
      "age": "age range (e.g., 'mid-30s', 'teenage', 'elderly')",
      "gender": "male/female/non-binary",
      "physical_features": "Detailed physical description (hair color, eye color, height, build, distinctive features)",
      "clothing": "Typical clothing style and items",
      "accessories": "Recurring props or accessories (glasses, weapon, jewelry, etc.)",
      "personality": "Brief personality description (optional, for context)"
    }
  ],
  "environments": [
    {
      "name": "Location name",
      "description": "Visual description of the environment",
      "recurring": true
    }
  ],
  "style": {
    "art_style": "Comic art style (e.g., 'noir comic', 'manga', 'superhero comic', 'European BD', 'webtoon')",
    "color_palette": "Color scheme (e.g., 'high contrast black and white', 'muted earth tones', 'vibrant colors')",
    "mood": "Overall mood/tone (e.g., 'dark and gritty', 'lighthearted', 'epic')",
    "era": "Time period if relevant (e.g., '1940s', 'futuristic', 'medieval')"
  }
}

Instructions:
- Break the story into logical chapters/scenes (%d max)
- Extract ALL named characters with detailed visual descriptions
- Include recurring locations and environments
%s
- Focus on VISUAL details that can be drawn (not personality traits unless they affect appearance)
- For characters, be extremely specific about visual features (exact hair length, eye color, clothing items)
- Use paragraph indices from the story text for chapter boundaries; paragraphs are separated by blank lines and end_paragraph is exclusive

Return ONLY the JSON, no additional text.`

const breakdownPromptTemplate = `Break down this chapter into comic book panels for visual storytelling.

Chapter: %s
Summary: %s

Text:
%s

Known Characters: %s
Art Style: %s

Provide a JSON response with the following structure:

{
  "pages": [
    {
      "page_number": 1,
      "layout": "three-grid",
      "panels": [
        {
          "panel_num": 1,
          "description": "Visual description of what to draw (setting, action, characters, mood)",
          "dialogue": [
            {
              "speaker": "Character Name",
              "text": "What they say",
              "emotion": "happy/sad/angry/neutral"
            }
          ],
          "narration": "Optional narration text",
          "characters": ["Character1", "Character2"],
          "camera_angle": "close-up/medium-shot/long-shot",
          "environment": "location name if applicable",
          "key_moment": false
        }
      ]
    }
  ]
}

Instructions:
- Aim for ~%d panels per page
- ONLY use characters from the Known Characters list
- Limit to %d characters per panel maximum
- Be VERY specific in visual descriptions (what we see, not what we feel)
- Separate dialogue from narration
- Indicate camera angles for cinematic flow
- Mark key dramatic moments with key_moment: true
- Choose layouts: "three-grid", "four-grid", "splash" (for dramatic moments), or "vertical-stack"
- For action scenes: more panels with varied angles
- For dialogue: fewer, larger panels
- Make sure EVERY line of dialogue and important action is captured

Visual Description Guidelines:
- Include: lighting, expressions, body language, background details
- Example: "Detective Sarah stands in the rain-soaked alley, her green eyes narrowed, hand on her holster. Neon signs reflect in puddles behind her."

Return ONLY the JSON, no additional text.`

func buildAnalysisPrompt(text, styleHint string, maxChapters int) string {
	styleInstruction := "- Infer an appropriate art style from the story genre and tone"
	if strings.TrimSpace(styleHint) != "" {
		styleInstruction = fmt.Sprintf("- Use the following art style: %s", strings.TrimSpace(styleHint))
	}
	return fmt.Sprintf(analysisPromptTemplate, text, maxChapters, styleInstruction)
}

func buildBreakdownPrompt(chapter story.Chapter, chapterText string, doc *story.Analysis, panelsPerPage, maxCharactersPerPanel int) string {
	names := make([]string, 0, len(doc.Characters))
	for _, character := range doc.Characters {
		names = append(names, character.Name)
	}
	artStyle := strings.TrimSpace(doc.Style.ArtStyle)
	if artStyle == "" {
		artStyle = "comic book"
	}
	return fmt.Sprintf(
		breakdownPromptTemplate,
		chapter.Title,
		chapter.Summary,
		chapterText,
		strings.Join(names, ", "),
		artStyle,
		panelsPerPage,
		maxCharactersPerPanel,
	)
}
