package scriptgen

import "fmt"

// ValidationError is returned when the request is rejected before any upstream call.
type ValidationError struct {
	Message string
	Field   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// APICallError represents a failed or timed-out call to the language model.
type APICallError struct {
	Message string
	Cause   error
}

func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("script generation failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("script generation failed: %s", e.Message)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}
