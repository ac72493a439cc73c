package pipeline

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sells-group/rulebook-cli/internal/model"
	"github.com/sells-group/rulebook-cli/internal/resilience"
)

// ValidationError reports missing or malformed request parameters.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// UpstreamError reports a failed call to the search or language-model
// provider. The stage call fails as a whole.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s provider failed: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// FetchError reports a failed page or document fetch. Batch stages log it
// and skip the item; Extract surfaces it.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PreconditionError reports a stage invoked before the field it depends on
// was populated by an earlier stage.
type PreconditionError struct {
	Missing string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s is not set", e.Missing)
}

// NotFoundError reports that no record exists for a key.
type NotFoundError struct {
	Key model.Key
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no tournament record for %s %d", e.Key.Season, e.Key.Year)
}

// ParseError reports model output that is not valid JSON of the expected
// shape. No partial result is kept.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse model output: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// HTTPStatus maps an error to the status code the HTTP boundary returns.
func HTTPStatus(err error) int {
	var (
		ve *ValidationError
		pe *PreconditionError
		ne *NotFoundError
		ue *UpstreamError
		xe *ParseError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve), errors.As(err, &pe):
		return http.StatusBadRequest
	case errors.As(err, &ne):
		return http.StatusNotFound
	case errors.As(err, &ue), errors.As(err, &xe):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a caller may retry the stage that returned err.
// Client-side and parse failures never are; everything else defers to
// resilience.IsTransient.
func Retryable(err error) bool {
	var (
		ve *ValidationError
		pe *PreconditionError
		ne *NotFoundError
		xe *ParseError
	)
	if errors.As(err, &ve) || errors.As(err, &pe) || errors.As(err, &ne) || errors.As(err, &xe) {
		return false
	}
	return resilience.IsTransient(err)
}
