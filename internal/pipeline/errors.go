package pipeline

import (
	"errors"
	"fmt"

	"github.com/jonathan/mathmotion/internal/db"
	"github.com/jonathan/mathmotion/internal/publish"
	"github.com/jonathan/mathmotion/internal/render"
	"github.com/jonathan/mathmotion/internal/scriptgen"
	"github.com/jonathan/mathmotion/internal/types"
)

// Kind classifies a pipeline failure for callers that need to map it to a response.
type Kind string

// Kind values
const (
	KindInvalidRequest   Kind = "InvalidRequest"
	KindGenerationFailed Kind = "GenerationFailed"
	KindRenderFailed     Kind = "RenderFailed"
	KindArtifactNotFound Kind = "ArtifactNotFound"
	KindPublishFailed    Kind = "PublishFailed"
	KindNotFound         Kind = "NotFound"
	KindConflict         Kind = "Conflict"
	KindInternal         Kind = "Internal"
)

// Error is a classified pipeline failure. Message is safe to show to users; Details carries tool output.
type Error struct {
	Kind    Kind
	Message string
	Details string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Classify maps a stage error to a pipeline Error. A nil err yields nil.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var (
		pErr        *Error
		validErr    *scriptgen.ValidationError
		apiErr      *scriptgen.APICallError
		jobIDErr    *render.InvalidJobIDError
		renderErr   *render.Error
		notFoundErr *render.ArtifactNotFoundError
		publishErr  *publish.Error
		transErr    *db.TransitionError
	)
	switch {
	case errors.As(err, &pErr):
		return pErr
	case errors.As(err, &validErr):
		return &Error{Kind: KindInvalidRequest, Message: capitalize(validErr.Message), Cause: err}
	case errors.As(err, &apiErr):
		return &Error{Kind: KindGenerationFailed, Message: "Failed to generate script", Details: apiErr.Message, Cause: err}
	case errors.As(err, &jobIDErr):
		return &Error{Kind: KindInvalidRequest, Message: "Invalid job id", Details: jobIDErr.Error(), Cause: err}
	case errors.As(err, &renderErr):
		msg := "Failed to render video"
		if renderErr.TimedOut {
			msg = "Rendering timed out"
		}
		return &Error{Kind: KindRenderFailed, Message: msg, Details: renderErr.Stderr, Cause: err}
	case errors.As(err, &notFoundErr):
		return &Error{Kind: KindArtifactNotFound, Message: "Video file not found after rendering", Cause: err}
	case errors.As(err, &publishErr):
		return &Error{Kind: KindPublishFailed, Message: "Failed to upload video", Details: publishErr.Message, Cause: err}
	case errors.As(err, &transErr):
		return &Error{Kind: KindConflict, Message: conflictMessage(transErr.From), Cause: err}
	case errors.Is(err, db.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: "Video not found", Cause: err}
	default:
		return &Error{Kind: KindInternal, Message: "Internal error", Cause: err}
	}
}

func conflictMessage(from types.VideoStatus) string {
	if from.Terminal() {
		return fmt.Sprintf("Video is already %s", from)
	}
	return fmt.Sprintf("Video is %s and cannot be rendered again yet", from)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}
