package story

import (
	"fmt"
	"strconv"
	"strings"

	"panelsmith/internal/services"
)

// Selector restricts processing to a subset of analyzed chapters. The
// accepted grammar is "all", "N", or "N-M" (inclusive, 1-indexed).
type Selector struct {
	All   bool
	Start int
	End   int
}

// ParseSelector validates and parses a chapter selector. An empty value
// selects all chapters. Malformed input is a validation error so submissions
// fail before any work is queued.
func ParseSelector(value string) (Selector, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" || trimmed == "all" {
		return Selector{All: true}, nil
	}

	invalid := func() (Selector, error) {
		return Selector{}, services.Wrap(
			services.ErrValidation,
			"story",
			"parse selector",
			fmt.Sprintf("invalid chapter selector %q (expected \"all\", \"N\", or \"N-M\")", value),
			nil,
		)
	}

	if start, end, ok := strings.Cut(trimmed, "-"); ok {
		low, err := strconv.Atoi(strings.TrimSpace(start))
		if err != nil || low < 1 {
			return invalid()
		}
		high, err := strconv.Atoi(strings.TrimSpace(end))
		if err != nil || high < 1 {
			return invalid()
		}
		if low > high {
			return Selector{}, services.Wrap(
				services.ErrValidation,
				"story",
				"parse selector",
				fmt.Sprintf("chapter selector %q is a descending range", value),
				nil,
			)
		}
		return Selector{Start: low, End: high}, nil
	}

	number, err := strconv.Atoi(trimmed)
	if err != nil || number < 1 {
		return invalid()
	}
	return Selector{Start: number, End: number}, nil
}

// Matches reports whether the chapter ordinal is selected.
func (s Selector) Matches(number int) bool {
	if s.All {
		return true
	}
	return number >= s.Start && number <= s.End
}

// Filter returns the chapters whose numbers the selector matches, preserving
// order.
func (s Selector) Filter(chapters []Chapter) []Chapter {
	if s.All {
		return chapters
	}
	var selected []Chapter
	for _, chapter := range chapters {
		if s.Matches(chapter.Number) {
			selected = append(selected, chapter)
		}
	}
	return selected
}

// Describe renders the selector for error messages and logs.
func (s Selector) Describe() string {
	switch {
	case s.All:
		return "all chapters"
	case s.Start == s.End:
		return fmt.Sprintf("chapter %d", s.Start)
	default:
		return fmt.Sprintf("chapters %d-%d", s.Start, s.End)
	}
}
