package synthesis

import (
	"regexp"
	"strings"
)

type promptRewrite struct {
	pattern     *regexp.Regexp
	replacement string
}

// Ordered rewrites that soften phrasing the image service's content policy
// rejects. Compound phrases must run before their component words ("dead
// body" before "body"), so this is a slice, not a map.
var promptRewrites = []promptRewrite{
	// Bodies and violence aftermath.
	{regexp.MustCompile(`(?i)\bcovered body\b`), "covered figure on the ground"},
	{regexp.MustCompile(`(?i)\bdead body\b`), "figure on the ground"},
	{regexp.MustCompile(`(?i)\bcorpse\b`), "figure"},
	{regexp.MustCompile(`(?i)\bbody\b`), "scene"},
	{regexp.MustCompile(`(?i)\bpulling back the sheet\b`), "examining the scene"},
	{regexp.MustCompile(`(?i)\bexamines the body\b`), "examines the scene"},
	{regexp.MustCompile(`(?i)\bexamining the body\b`), "examining the scene"},

	// Blood and gore.
	{regexp.MustCompile(`(?i)\bblood\b`), "dark stains"},
	{regexp.MustCompile(`(?i)\bbleeding\b`), "injured"},
	{regexp.MustCompile(`(?i)\bwounded\b`), "hurt"},
	{regexp.MustCompile(`(?i)\bgore\b`), ""},

	// Weapons in threatening contexts.
	{regexp.MustCompile(`(?i)\bpointing (?:a )?gun\b`), "holding weapon at side"},
	{regexp.MustCompile(`(?i)\baiming (?:a )?gun\b`), "holding weapon"},
	{regexp.MustCompile(`(?i)\bfiring (?:a )?gun\b`), "in action"},
	{regexp.MustCompile(`(?i)\bshooting\b`), "in conflict"},
	{regexp.MustCompile(`(?i)\bwielding (?:a )?weapon\b`), "holding weapon"},

	// Direct violence.
	{regexp.MustCompile(`(?i)\bkilling\b`), "confronting"},
	{regexp.MustCompile(`(?i)\bmurder\b`), "crime"},
	{regexp.MustCompile(`(?i)\battacking\b`), "confronting"},
	{regexp.MustCompile(`(?i)\bstabbing\b`), "in conflict"},
	{regexp.MustCompile(`(?i)\bbeating\b`), "fighting"},
}

// SanitizePrompt softens phrasing that the image service tends to reject.
// Scene meaning is preserved as far as possible; the alternative is a hard
// content policy error that fails the whole job.
func SanitizePrompt(prompt string) string {
	sanitized := prompt
	for _, rewrite := range promptRewrites {
		sanitized = rewrite.pattern.ReplaceAllString(sanitized, rewrite.replacement)
	}
	return strings.Join(strings.Fields(sanitized), " ")
}

var filenameAllowed = regexp.MustCompile(`[^a-zA-Z0-9 _-]+`)

// SanitizeFilename strips characters unsafe for filenames from a character
// name and folds spaces to underscores.
func SanitizeFilename(name string) string {
	cleaned := filenameAllowed.ReplaceAllString(name, "")
	cleaned = strings.TrimSpace(cleaned)
	return strings.ReplaceAll(cleaned, " ", "_")
}
