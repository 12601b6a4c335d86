package publish

import "fmt"

// Error represents a failed upload to the media host.
type Error struct {
	Host    string
	Key     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("publish to %s failed for %s: %s: %v", e.Host, e.Key, e.Message, e.Cause)
	}
	return fmt.Sprintf("publish to %s failed for %s: %s", e.Host, e.Key, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
