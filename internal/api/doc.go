// Package api implements the daemon's HTTP surface and the wire-format
// types shared with the CLI client.
//
// # Endpoints
//
// All routes live under /api/v1. Sessions: POST /sessions mints a token,
// POST /sessions/{token}/credentials attaches collaborator keys. Jobs:
// POST /jobs submits a story, GET /jobs lists the queue, GET /jobs/{token}
// polls status, GET /jobs/{token}/artifact streams the finished artifact,
// POST /jobs/{token}/cancel interrupts a job. GET /health aggregates
// workflow, store, and preflight state.
//
// # Errors
//
// Failures are returned as {"error": {"code", "message"}}. Codes map to
// HTTP statuses: validation 400, not_found 404, missing_credentials,
// not_completed, and already_terminal 409, external 502, internal 500.
// Classification follows the sentinel markers in internal/services.
//
// # Design Notes
//
// DTOs use camelCase JSON tags and RFC3339 millisecond timestamps so
// non-Go consumers can render them directly. Tokens are capabilities:
// anyone holding a job token may poll, cancel, or download it, which is
// why they are UUIDs and never logged in full by other components.
package api
