package server

import (
	"net/http"

	"github.com/jonathan/mathmotion/internal/pipeline"
)

// FailureResponse is the body of every failed /generate and /render call.
type FailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
	VideoID string `json:"videoId,omitempty"`
}

// HTTPStatus returns the HTTP status for a pipeline failure kind.
func HTTPStatus(kind pipeline.Kind) int {
	switch kind {
	case pipeline.KindInvalidRequest:
		return http.StatusBadRequest
	case pipeline.KindGenerationFailed:
		return http.StatusBadGateway
	case pipeline.KindNotFound:
		return http.StatusNotFound
	case pipeline.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// failure classifies err and builds its response body.
func failure(err error, videoID string) (int, FailureResponse) {
	perr := pipeline.Classify(err)
	body := FailureResponse{Error: perr.Message, VideoID: videoID}
	if perr.Details != "" {
		body.Details = perr.Details
	}
	return HTTPStatus(perr.Kind), body
}
