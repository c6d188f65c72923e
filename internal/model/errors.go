package model

import "fmt"

// Error codes surfaced to API callers.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeScraperError    = "SCRAPER_ERROR"
	CodeInternalError   = "INTERNAL_ERROR"
)

// ValidationError reports a malformed or cross-platform-mismatched URL.
// Raised before any network activity and never retried.
type ValidationError struct {
	Platform Platform
	Message  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Message)
}

// NewValidationError builds a ValidationError for the given platform.
func NewValidationError(platform Platform, format string, args ...any) *ValidationError {
	return &ValidationError{Platform: platform, Message: fmt.Sprintf(format, args...)}
}

// ScraperError reports an exhausted fetch or an unrecoverable parse
// condition. Cause is the classification of the last failure.
type ScraperError struct {
	Platform Platform
	Cause    string
	Err      error
}

func (e *ScraperError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scraper (%s, %s): %v", e.Platform, e.Cause, e.Err)
	}
	return fmt.Sprintf("scraper (%s, %s)", e.Platform, e.Cause)
}

func (e *ScraperError) Unwrap() error { return e.Err }

// InternalError wraps any unexpected condition caught at the pipeline
// boundary, including recovered panics.
type InternalError struct {
	Platform Platform
	Err      error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal (%s): %v", e.Platform, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

// APIError is the wire form of a pipeline failure.
type APIError struct {
	Code    string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}
