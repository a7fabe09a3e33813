package api

import (
	"errors"
	"net/http"

	"panelsmith/internal/services"
)

// Error codes carried in rejection payloads.
const (
	CodeValidation         = "validation"
	CodeNotFound           = "not_found"
	CodeMissingCredentials = "missing_credentials"
	CodeNotCompleted       = "not_completed"
	CodeAlreadyTerminal    = "already_terminal"
	CodeExternal           = "external"
	CodeInternal           = "internal"
)

// statusForCode maps an error code to its HTTP status.
func statusForCode(code string) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMissingCredentials, CodeNotCompleted, CodeAlreadyTerminal:
		return http.StatusConflict
	case CodeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// classify derives an error code from the sentinel markers in
// internal/services. State errors default to already_terminal; handlers
// that mean not_completed or missing_credentials write those codes
// directly because the distinction is contextual, not intrinsic.
func classify(err error) string {
	switch {
	case errors.Is(err, services.ErrValidation):
		return CodeValidation
	case errors.Is(err, services.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, services.ErrState):
		return CodeAlreadyTerminal
	case errors.Is(err, services.ErrExternal):
		return CodeExternal
	default:
		return CodeInternal
	}
}
