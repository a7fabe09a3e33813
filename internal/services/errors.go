package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks caller mistakes caught before orchestration starts:
	// malformed chapter selectors, unsupported output formats, missing
	// credentials, empty input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks lookups of unknown or expired session and job tokens.
	ErrNotFound = errors.New("not found")
	// ErrExternal marks collaborator failures (analysis, synthesis, encoding).
	// The underlying message is preserved verbatim for diagnostics.
	ErrExternal = errors.New("external service error")
	// ErrState marks operations against a job whose status forbids them, such
	// as cancelling a terminal job or fetching an unfinished artifact.
	ErrState = errors.New("state error")
	// ErrConfiguration marks unusable daemon configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternal
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// UserFacing reports whether the error should be attributed to caller input
// rather than to the service itself.
func UserFacing(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrState)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
