// Package analysis provides the chat-completion client used to turn
// normalized prose into typed story documents.
//
// This package is used by:
//   - Analyze stage: extract chapters, characters, environments, and style
//   - Breakdown stage: plan pages and panels for each selected chapter
//   - Preflight: verify the configured endpoint accepts the session key
//
// # Request Shape
//
// The client targets an OpenAI-compatible chat completions endpoint in JSON
// mode. Prompts instruct the model to answer with a single JSON document;
// DecodeDocument tolerates the usual formatting slop (code fences, prose
// around the payload) before giving up.
//
// # Configuration
//
// Requires api_key and model, optionally base_url, referer, title, timeout.
// The api key always comes from the job's session, never from config.
//
// # Entry Points
//
// NewClient: construct a transport client from Config.
// Client.CompleteJSON: send system/user prompts, receive a JSON payload.
// Client.HealthCheck: verify the key and model answer a trivial request.
// NewAnalyzer: wrap a client with prompt construction and payload validation.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default),
// honoring Retry-After when present. Context cancellation aborts retries
// immediately.
package analysis
