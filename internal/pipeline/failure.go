package pipeline

import (
	"errors"
	"fmt"

	"panelsmith/internal/services"
)

// failure pairs the classified error returned to the worker with the plain
// message persisted on the job row. Collaborator messages pass through
// unchanged so the job's error reads exactly as the collaborator reported it.
type failure struct {
	classified error
	message    string
}

func (f *failure) Error() string { return f.classified.Error() }

func (f *failure) Unwrap() error { return f.classified }

// externalFailure classifies a collaborator error, keeping its message
// verbatim for the job row.
func externalFailure(stage string, err error) error {
	return &failure{
		classified: services.Wrap(services.ErrExternal, "pipeline", stage, "", err),
		message:    err.Error(),
	}
}

// userFailure classifies an input problem surfaced mid-run, such as a chapter
// selection that matches nothing.
func userFailure(stage, message string) error {
	return &failure{
		classified: services.Wrap(services.ErrValidation, "pipeline", stage, message, nil),
		message:    message,
	}
}

// internalFailure classifies a local fault (staging I/O, composition) without
// assigning it to a collaborator.
func internalFailure(stage string, err error) error {
	return &failure{
		classified: fmt.Errorf("pipeline: %s: %w", stage, err),
		message:    err.Error(),
	}
}

// failureMessage extracts the text to persist as the job's error.
func failureMessage(err error) string {
	var f *failure
	if errors.As(err, &f) {
		return f.message
	}
	return err.Error()
}
