// Package synthesis generates panel and character sheet images through the
// OpenAI Images API.
//
// This package is used by:
//   - Sheets stage: character reference sheets (front, three-quarter, profile)
//   - Panels stage: one image per planned panel
//
// # Prompt Construction
//
// Character base prompts are built once per job from the analysis document
// and reused for every view and panel so a character stays visually
// consistent. Panel prompts append the base prompts of the characters in
// frame plus the camera angle. Every prompt passes through a sanitizer that
// softens phrasing the image service's content policy tends to reject.
//
// # Cost Tracking
//
// Each generated image carries a fixed cost estimate by size and quality.
// The client accumulates the total so the job result can report estimated
// spend.
//
// # Retry Behaviour
//
// Rate-limited calls (HTTP 429) retry with exponential backoff up to 3
// times. The SDK's internal retry is disabled; this client owns backoff.
package synthesis
