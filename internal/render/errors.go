package render

import "fmt"

// Error represents a failed render: a non-zero exit, a timeout, or a failure to start.
type Error struct {
	Message  string
	Stderr   string
	ExitCode int
	TimedOut bool
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("render error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ArtifactNotFoundError is returned when the render command succeeded but left no usable video.
type ArtifactNotFoundError struct {
	JobID string
	Dir   string
	// Rejected lists candidates that matched by name but failed content verification.
	Rejected []string
}

func (e *ArtifactNotFoundError) Error() string {
	if len(e.Rejected) > 0 {
		return fmt.Sprintf("no video artifact for job %s in %s (%d candidates were not video files)", e.JobID, e.Dir, len(e.Rejected))
	}
	return fmt.Sprintf("no video artifact for job %s in %s", e.JobID, e.Dir)
}

// InvalidJobIDError is returned when a job ID cannot be used as a file name.
type InvalidJobIDError struct {
	JobID string
}

func (e *InvalidJobIDError) Error() string {
	return fmt.Sprintf("invalid job id %q: must match %s", e.JobID, jobIDPattern.String())
}
