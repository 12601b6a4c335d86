// Package pipeline orchestrates video generation: script, render, publish, and status tracking.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/mathmotion/internal/db"
	"github.com/jonathan/mathmotion/internal/logger"
	"github.com/jonathan/mathmotion/internal/publish"
	"github.com/jonathan/mathmotion/internal/render"
	"github.com/jonathan/mathmotion/internal/scriptgen"
	"github.com/jonathan/mathmotion/internal/types"
)

// Progress steps
const (
	StepGenerate = "generate"
	StepRecord   = "record"
	StepRender   = "render"
	StepPublish  = "publish"
	StepComplete = "complete"
	StepFailed   = "failed"
)

// ProgressEvent represents a progress update during a run
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	VideoID string `json:"videoId,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Generator writes scripts from prompts.
type Generator interface {
	Generate(ctx context.Context, req types.GenerationRequest) (*scriptgen.Script, error)
}

// Renderer turns scripts into local video files.
type Renderer interface {
	Workspace(jobID string) (render.Workspace, error)
	Render(ctx context.Context, jobID, script string) (*render.Artifact, error)
}

// Tracker persists video records and enforces their status transitions.
type Tracker interface {
	CreateVideo(ctx context.Context, input db.NewVideo) (*types.VideoRecord, error)
	GetVideo(ctx context.Context, id string) (*types.VideoRecord, error)
	MarkGenerating(ctx context.Context, id, script string) error
	MarkCompleted(ctx context.Context, id string, c db.Completion) error
	MarkFailed(ctx context.Context, id, message string) error
}

// Cleaner removes job scratch files.
type Cleaner interface {
	Remove(paths ...string) render.Report
}

// Deps are the collaborators a Pipeline is built from.
type Deps struct {
	Generator Generator
	Renderer  Renderer
	Publisher publish.Publisher
	Tracker   Tracker
	Cleaner   Cleaner
	Logger    *slog.Logger
	// PublishTimeout bounds one upload. Zero uses publish.DefaultTimeout.
	PublishTimeout time.Duration
}

// Pipeline runs generation and render jobs.
type Pipeline struct {
	generator Generator
	renderer  Renderer
	publisher publish.Publisher
	tracker   Tracker
	cleaner   Cleaner
	log       *slog.Logger

	publishTimeout time.Duration
}

// New returns a Pipeline. A nil Cleaner or Logger and a zero PublishTimeout get defaults.
func New(deps Deps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	if deps.Cleaner == nil {
		deps.Cleaner = render.NewCleaner(deps.Logger)
	}
	if deps.PublishTimeout <= 0 {
		deps.PublishTimeout = publish.DefaultTimeout
	}
	return &Pipeline{
		generator:      deps.Generator,
		renderer:       deps.Renderer,
		publisher:      deps.Publisher,
		tracker:        deps.Tracker,
		cleaner:        deps.Cleaner,
		log:            deps.Logger,
		publishTimeout: deps.PublishTimeout,
	}
}

// GenerateResult is a generated script and the PENDING record created for it.
type GenerateResult struct {
	Script  *scriptgen.Script
	VideoID string
}

// Generate produces a script and records it as PENDING. Nothing is recorded when generation fails.
func (p *Pipeline) Generate(ctx context.Context, req types.GenerationRequest) (*GenerateResult, error) {
	script, err := p.generator.Generate(ctx, req)
	if err != nil {
		logger.FromContext(ctx, p.log).Warn("script generation failed", "error", err)
		return nil, Classify(err)
	}

	id := uuid.NewString()
	if _, err := p.tracker.CreateVideo(ctx, db.NewVideo{
		ID:      id,
		Title:   script.Title,
		Prompt:  req.Prompt,
		Options: req.Options,
	}); err != nil {
		return nil, &Error{Kind: KindInternal, Message: "Failed to save video record", Cause: err}
	}

	logger.FromContext(logger.WithJobID(ctx, id), p.log).Info("script generated", "model", script.Model, "chars", len(script.Code))
	return &GenerateResult{Script: script, VideoID: id}, nil
}

// RenderInput describes one render job.
type RenderInput struct {
	Script string
	// JobID selects an existing PENDING record or names a new one. Empty means a fresh ID.
	JobID      string
	Title      string
	Prompt     string
	OnProgress ProgressCallback
}

// Result is the outcome of a successful render job.
type Result struct {
	VideoID      string   `json:"videoId"`
	VideoURL     string   `json:"videoUrl"`
	ThumbnailURL string   `json:"thumbnailUrl"`
	Duration     *float64 `json:"duration"`
}

// Render moves a record through GENERATING to COMPLETED or FAILED.
// Once rendering starts the job runs to completion even if ctx is canceled.
// Only the render and publish timeouts stop it.
func (p *Pipeline) Render(ctx context.Context, in RenderInput) (*Result, error) {
	if strings.TrimSpace(in.Script) == "" {
		return nil, &Error{Kind: KindInvalidRequest, Message: "Manim code is required"}
	}
	if in.JobID == "" {
		in.JobID = uuid.NewString()
	}
	if err := render.ValidateJobID(in.JobID); err != nil {
		return nil, Classify(err)
	}

	ctx = logger.WithJobID(ctx, in.JobID)
	log := logger.FromContext(ctx, p.log)
	emit := func(step, msg string, content any) {
		if in.OnProgress != nil {
			in.OnProgress(ProgressEvent{Step: step, Message: msg, VideoID: in.JobID, Content: content})
		}
	}

	status, err := p.ensureRecord(ctx, in)
	if err != nil {
		return nil, err
	}
	if !types.CanTransition(status, types.VideoStatusGenerating) {
		return nil, Classify(&db.TransitionError{ID: in.JobID, From: status, To: types.VideoStatusGenerating})
	}
	if err := p.tracker.MarkGenerating(ctx, in.JobID, in.Script); err != nil {
		return nil, Classify(err)
	}
	emit(StepRecord, "Video marked as generating", nil)

	// The job outlives the request once the record is GENERATING.
	jobCtx := context.WithoutCancel(ctx)

	ws, err := p.renderer.Workspace(in.JobID)
	if err != nil {
		return nil, p.fail(jobCtx, in.JobID, Classify(err), emit)
	}
	defer p.cleaner.Remove(ws.Paths()...)

	emit(StepRender, "Rendering animation", nil)
	artifact, err := p.renderer.Render(jobCtx, in.JobID, in.Script)
	if err != nil {
		return nil, p.fail(jobCtx, in.JobID, Classify(err), emit)
	}

	emit(StepPublish, "Uploading video", map[string]any{"size": artifact.Size})
	published, err := p.publish(jobCtx, in.JobID, artifact)
	if err != nil {
		return nil, p.fail(jobCtx, in.JobID, Classify(err), emit)
	}

	completion := db.Completion{
		VideoURL:     published.URL,
		ThumbnailURL: published.ThumbnailURL,
		Duration:     published.Duration,
	}
	if err := p.tracker.MarkCompleted(jobCtx, in.JobID, completion); err != nil {
		log.Error("failed to mark video completed", "error", err)
		return nil, p.fail(jobCtx, in.JobID, &Error{Kind: KindInternal, Message: "Failed to update video status", Cause: err}, emit)
	}

	res := &Result{
		VideoID:      in.JobID,
		VideoURL:     published.URL,
		ThumbnailURL: published.ThumbnailURL,
		Duration:     published.Duration,
	}
	log.Info("video completed", "url", res.VideoURL)
	emit(StepComplete, "Video generated successfully", res)
	return res, nil
}

// Run generates a script for req and renders it under the new record's ID.
func (p *Pipeline) Run(ctx context.Context, req types.GenerationRequest, onProgress ProgressCallback) (*GenerateResult, *Result, error) {
	if onProgress != nil {
		onProgress(ProgressEvent{Step: StepGenerate, Message: "Generating script"})
	}
	gen, err := p.Generate(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	res, err := p.Render(ctx, RenderInput{
		Script:     gen.Script.Code,
		JobID:      gen.VideoID,
		Title:      gen.Script.Title,
		Prompt:     req.Prompt,
		OnProgress: onProgress,
	})
	return gen, res, err
}

func (p *Pipeline) publish(ctx context.Context, jobID string, artifact *render.Artifact) (*publish.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()
	published, err := p.publisher.Publish(ctx, jobID, artifact)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, &publish.Error{Host: p.publisher.Name(), Key: jobID, Message: fmt.Sprintf("upload timed out after %s", p.publishTimeout), Cause: err}
	}
	return published, err
}

// ensureRecord creates the record when the job ID is new and returns its current status.
func (p *Pipeline) ensureRecord(ctx context.Context, in RenderInput) (types.VideoStatus, error) {
	existing, err := p.tracker.GetVideo(ctx, in.JobID)
	if err != nil {
		return "", &Error{Kind: KindInternal, Message: "Failed to load video record", Cause: err}
	}
	if existing != nil {
		return existing.Status, nil
	}

	title := in.Title
	if title == "" {
		title = "Untitled animation"
	}
	prompt := in.Prompt
	if prompt == "" {
		prompt = title
	}
	_, err = p.tracker.CreateVideo(ctx, db.NewVideo{ID: in.JobID, Title: title, Prompt: prompt})
	if err != nil && !errors.Is(err, db.ErrDuplicateID) {
		return "", &Error{Kind: KindInternal, Message: "Failed to save video record", Cause: err}
	}
	// A concurrent creator may have won; MarkGenerating arbitrates from here.
	return types.VideoStatusPending, nil
}

// fail records the failure and returns perr. A failed status write is logged, not returned.
func (p *Pipeline) fail(ctx context.Context, id string, perr *Error, emit func(string, string, any)) error {
	log := logger.FromContext(ctx, p.log)
	log.Warn("video failed", "kind", perr.Kind, "error", perr.Cause)

	reason := perr.Message
	if perr.Cause != nil {
		reason = fmt.Sprintf("%s: %v", perr.Message, perr.Cause)
	}
	if err := p.tracker.MarkFailed(ctx, id, reason); err != nil {
		log.Error("failed to mark video failed", "error", err)
	}
	emit(StepFailed, perr.Message, map[string]string{"kind": string(perr.Kind), "details": perr.Details})
	return perr
}
