package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAPIKey is returned when the API key is missing.
	ErrNoAPIKey = errors.New("backend: API key required")

	// ErrNoModel is returned when a model name is empty.
	ErrNoModel = errors.New("backend: model required")

	// ErrMissingFile is returned when a request lacks the audio or image part.
	ErrMissingFile = errors.New("backend: audio or image file is missing")

	// ErrImageTooLarge is returned for images over the size cap.
	ErrImageTooLarge = errors.New("backend: image file size exceeds 10 MB")

	// ErrEmptyReply is returned when the vision model returns no choices.
	ErrEmptyReply = errors.New("backend: empty model reply")
)

// APIError represents an error response from the model API.
type APIError struct {
	StatusCode int
	Message    string
	Step       string // transcribe, describe or speak
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend [%s]: API error %d: %s", e.Step, e.StatusCode, e.Message)
}

// IsUnauthorized returns true if this is an authentication error (HTTP 401).
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

// StepError wraps an error with the pipeline step that produced it.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("backend [%s]: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with step context.
func WrapError(step string, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{Step: step, Err: err}
}
