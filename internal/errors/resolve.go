package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"
)

// ValidationError reports citation fields required for an OpenURL request
// that were absent. It routes resolution to the next tier.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("openurl: missing required fields: %s", strings.Join(e.Missing, ", "))
}

// NewValidationError creates a ValidationError for the given missing fields
func NewValidationError(missing ...string) *ValidationError {
	return &ValidationError{Missing: missing}
}

// IsValidationError checks if error is a ValidationError
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return stdErrors.As(err, &valErr)
}

// ExtractionError reports a malformed nested metadata field. The field is
// treated as absent.
type ExtractionError struct {
	Field  string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %s", e.Field, e.Reason)
}

// NewExtractionError creates an ExtractionError
func NewExtractionError(field, reason string) *ExtractionError {
	return &ExtractionError{Field: field, Reason: reason}
}

// IsExtractionError checks if error is an ExtractionError
func IsExtractionError(err error) bool {
	var extErr *ExtractionError
	return stdErrors.As(err, &extErr)
}

// ResolveTransportError wraps any failure talking to the link resolver:
// timeouts, network errors, bad status codes, malformed bodies.
type ResolveTransportError struct {
	URL string
	Err error
}

func (e *ResolveTransportError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.URL, e.Err)
}

func (e *ResolveTransportError) Unwrap() error {
	return e.Err
}

// NewResolveTransportError wraps err as a ResolveTransportError
func NewResolveTransportError(url string, err error) *ResolveTransportError {
	return &ResolveTransportError{URL: url, Err: err}
}

// IsResolveTransportError checks if error is a ResolveTransportError
func IsResolveTransportError(err error) bool {
	var tErr *ResolveTransportError
	return stdErrors.As(err, &tErr)
}
