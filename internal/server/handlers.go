package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/mathmotion/internal/db"
	"github.com/jonathan/mathmotion/internal/logger"
	"github.com/jonathan/mathmotion/internal/pipeline"
	"github.com/jonathan/mathmotion/internal/render"
	"github.com/jonathan/mathmotion/internal/schemas"
	"github.com/jonathan/mathmotion/internal/types"
)

const (
	maxBodyBytes  = 1 << 20
	healthTimeout = 10 * time.Second
)

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	Prompt  string          `json:"prompt"`
	Options json.RawMessage `json:"options,omitempty"`
}

// GenerateResponse is returned by POST /generate.
type GenerateResponse struct {
	Success bool   `json:"success"`
	VideoID string `json:"videoId"`
	Script  string `json:"script"`
	// ManimCode repeats Script under its legacy field name.
	ManimCode string          `json:"manimCode"`
	Title     string          `json:"title"`
	Prompt    string          `json:"prompt"`
	Options   json.RawMessage `json:"options"`
	Model     string          `json:"model,omitempty"`
	Message   string          `json:"message"`
}

// RenderRequest is the body of POST /render and POST /render/stream.
type RenderRequest struct {
	Script    string `json:"script,omitempty"`
	ManimCode string `json:"manimCode,omitempty"`
	JobID     string `json:"jobId,omitempty"`
	Title     string `json:"title,omitempty"`
	Prompt    string `json:"prompt,omitempty"`
}

func (r RenderRequest) code() string {
	if r.Script != "" {
		return r.Script
	}
	return r.ManimCode
}

// RenderResponse is returned by a successful POST /render.
type RenderResponse struct {
	Success bool `json:"success"`
	pipeline.Result
	Message string `json:"message"`
}

// ListResponse is returned by GET /videos.
type ListResponse struct {
	Videos []types.VideoRecord `json:"videos"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string               `json:"status"`
	Database string               `json:"database"`
	Tools    []render.CheckResult `json:"tools,omitempty"`
}

// handleGenerate writes a script for a prompt and records it as PENDING. It never renders.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readValidated(w, r, schemas.GenerateRequest)
	if !ok {
		return
	}

	var req GenerateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, FailureResponse{Error: "Invalid request body"})
		return
	}
	genReq := types.GenerationRequest{Prompt: req.Prompt}
	if len(req.Options) > 0 {
		if err := json.Unmarshal(req.Options, &genReq.Options); err != nil {
			s.jsonResponse(w, http.StatusBadRequest, FailureResponse{Error: "Invalid options"})
			return
		}
	} else {
		req.Options = json.RawMessage(`{}`)
	}

	result, err := s.pipeline.Generate(r.Context(), genReq)
	if err != nil {
		status, resp := failure(err, "")
		s.jsonResponse(w, status, resp)
		return
	}

	script := result.Script
	s.jsonResponse(w, http.StatusOK, GenerateResponse{
		Success:   true,
		VideoID:   result.VideoID,
		Script:    script.Code,
		ManimCode: script.Code,
		Title:     script.Title,
		Prompt:    req.Prompt,
		Options:   req.Options,
		Model:     script.Model,
		Message:   "Script generated successfully",
	})
}

// handleRender runs render and publish synchronously and answers with the final outcome.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	in, ok := s.renderInput(w, r)
	if !ok {
		return
	}

	res, err := s.pipeline.Render(r.Context(), in)
	if err != nil {
		status, resp := failure(err, in.JobID)
		s.jsonResponse(w, status, resp)
		return
	}
	s.jsonResponse(w, http.StatusOK, RenderResponse{Success: true, Result: *res, Message: "Video generated successfully"})
}

// handleRenderStream runs the same job as handleRender and streams progress as SSE.
func (s *Server) handleRenderStream(w http.ResponseWriter, r *http.Request) {
	in, ok := s.renderInput(w, r)
	if !ok {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	log := logger.FromContext(r.Context(), s.log)
	in.OnProgress = func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent(EventStep, event); err != nil {
			log.Debug("dropping progress event", "step", event.Step, "error", err)
		}
	}

	res, err := s.pipeline.Render(r.Context(), in)
	if err != nil {
		_, resp := failure(err, in.JobID)
		_ = sse.WriteEvent(EventError, resp)
		return
	}
	_ = sse.WriteEvent(EventComplete, RenderResponse{Success: true, Result: *res, Message: "Video generated successfully"})
}

// renderInput reads and validates a render body. A missing job id is assigned here so failures can name it.
func (s *Server) renderInput(w http.ResponseWriter, r *http.Request) (pipeline.RenderInput, bool) {
	body, ok := s.readValidated(w, r, schemas.RenderRequest)
	if !ok {
		return pipeline.RenderInput{}, false
	}

	var req RenderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, FailureResponse{Error: "Invalid request body"})
		return pipeline.RenderInput{}, false
	}
	if req.JobID == "" {
		req.JobID = uuid.NewString()
	}
	return pipeline.RenderInput{
		Script: req.code(),
		JobID:  req.JobID,
		Title:  req.Title,
		Prompt: req.Prompt,
	}, true
}

// readValidated reads the body and checks it against the named schema, answering 400 on failure.
func (s *Server) readValidated(w http.ResponseWriter, r *http.Request, schema string) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.jsonResponse(w, http.StatusBadRequest, FailureResponse{Error: "Invalid request body", Details: err.Error()})
		return nil, false
	}

	if err := schemas.ValidateRequest(schema, body); err != nil {
		var verr *schemas.ValidationError
		if errors.As(err, &verr) {
			s.jsonResponse(w, http.StatusBadRequest, FailureResponse{Error: "Invalid request", Details: verr.Errors})
			return nil, false
		}
		logger.FromContext(r.Context(), s.log).Error("schema unavailable", "schema", schema, "error", err)
		s.jsonResponse(w, http.StatusInternalServerError, FailureResponse{Error: "Internal error"})
		return nil, false
	}
	return body, true
}

// handleGetVideo returns the full record.
func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	video, ok := s.lookupVideo(w, r, "Failed to fetch video")
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, video)
}

// handleVideoStatus returns the polling view of a record.
func (s *Server) handleVideoStatus(w http.ResponseWriter, r *http.Request) {
	video, ok := s.lookupVideo(w, r, "Failed to fetch video status")
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, video.StatusView())
}

func (s *Server) lookupVideo(w http.ResponseWriter, r *http.Request, failMsg string) (*types.VideoRecord, bool) {
	id := r.PathValue("id")
	if render.ValidateJobID(id) != nil {
		s.errorResponse(w, http.StatusNotFound, "Video not found")
		return nil, false
	}

	video, err := s.store.GetVideo(r.Context(), id)
	if err != nil {
		s.requestLog(r).Error("get video failed", "id", id, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, failMsg)
		return nil, false
	}
	if video == nil {
		s.errorResponse(w, http.StatusNotFound, "Video not found")
		return nil, false
	}
	return video, true
}

// handleListVideos lists records newest first, optionally filtered by status.
func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter db.ListFilter

	if raw := q.Get("status"); raw != "" {
		status := types.VideoStatus(raw)
		if !status.Valid() {
			s.errorResponse(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		filter.Status = &status
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.errorResponse(w, http.StatusBadRequest, "Invalid "+name)
			return
		}
		*dst = n
	}

	filter = filter.Normalized()
	videos, err := s.store.ListVideos(r.Context(), filter)
	if err != nil {
		s.requestLog(r).Error("list videos failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to list videos")
		return
	}
	if videos == nil {
		videos = []types.VideoRecord{}
	}
	s.jsonResponse(w, http.StatusOK, ListResponse{Videos: videos, Limit: filter.Limit, Offset: filter.Offset})
}

// handleHealth reports database reachability and render tool availability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Database: "ok"}
	if err := s.store.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = err.Error()
	}
	if s.tools != nil {
		resp.Tools = s.tools.Check(ctx)
		for _, t := range resp.Tools {
			if !t.OK {
				resp.Status = "degraded"
			}
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	s.jsonResponse(w, status, resp)
}
