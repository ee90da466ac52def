package providers

import "fmt"

// ProviderError wraps a failure from a concrete backend with enough context
// to log which provider and operation broke.
type ProviderError struct {
	// Provider is the tag of the backend that failed.
	Provider string

	// Op names the failed operation (e.g. "transcribe", "chat", "stream").
	Op string

	// Message describes the failure.
	Message string

	// StatusCode is the HTTP status, when the failure came from a response.
	StatusCode int

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Op, e.Message)
}

// Unwrap implements error unwrapping.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a ProviderError.
func NewProviderError(provider, op, message string, statusCode int, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Op:         op,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}
