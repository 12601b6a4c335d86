package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonathan/mathmotion/internal/db"
	"github.com/jonathan/mathmotion/internal/publish"
	"github.com/jonathan/mathmotion/internal/render"
	"github.com/jonathan/mathmotion/internal/scriptgen"
	"github.com/jonathan/mathmotion/internal/types"
)

type fakeGenerator struct {
	err error
}

func (f *fakeGenerator) Generate(_ context.Context, req types.GenerationRequest) (*scriptgen.Script, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &scriptgen.Script{Code: "from manim import *", Title: req.Title(), Prompt: req.Prompt, Options: req.Options, Model: "fake"}, nil
}

type fakeRenderer struct {
	mu       sync.Mutex
	err      error
	delay    time.Duration
	rendered []string
	ctxErr   error
}

func (f *fakeRenderer) Workspace(jobID string) (render.Workspace, error) {
	return render.NewWorkspace("/work", jobID)
}

func (f *fakeRenderer) Render(ctx context.Context, jobID, _ string) (*render.Artifact, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxErr = ctx.Err()
	f.rendered = append(f.rendered, jobID)
	if f.err != nil {
		return nil, f.err
	}
	d := 12.0
	return &render.Artifact{JobID: jobID, Path: "/work/media/" + jobID + "/" + jobID + ".mp4", Size: 1024, Duration: &d}, nil
}

type fakePublisher struct {
	err error
	// hang blocks Publish until its context ends.
	hang bool
}

func (f *fakePublisher) Name() string { return "fake" }

func (f *fakePublisher) Publish(ctx context.Context, jobID string, a *render.Artifact) (*publish.Result, error) {
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	url := "https://media.example/mathmotion/videos/" + jobID + ".mp4"
	return &publish.Result{Key: "mathmotion/videos/" + jobID, URL: url, ThumbnailURL: "https://media.example/mathmotion/videos/" + jobID + ".jpg", Duration: a.Duration}, nil
}

type recordingCleaner struct {
	mu    sync.Mutex
	calls [][]string
}

func (c *recordingCleaner) Remove(paths ...string) render.Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, paths)
	return render.Report{Removed: paths}
}

// memTracker is an in-memory Tracker enforcing the same transitions as the database.
type memTracker struct {
	mu        sync.Mutex
	videos    map[string]*types.VideoRecord
	createErr error
}

func newMemTracker() *memTracker {
	return &memTracker{videos: make(map[string]*types.VideoRecord)}
}

func (m *memTracker) CreateVideo(_ context.Context, in db.NewVideo) (*types.VideoRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	if _, ok := m.videos[in.ID]; ok {
		return nil, db.ErrDuplicateID
	}
	now := time.Now()
	v := &types.VideoRecord{ID: in.ID, Title: in.Title, Prompt: in.Prompt, Options: in.Options, Script: in.Script,
		Status: types.VideoStatusPending, CreatedAt: now, UpdatedAt: now}
	m.videos[in.ID] = v
	cp := *v
	return &cp, nil
}

func (m *memTracker) GetVideo(_ context.Context, id string) (*types.VideoRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (m *memTracker) transition(id string, to types.VideoStatus, apply func(*types.VideoRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return db.ErrNotFound
	}
	if !types.CanTransition(v.Status, to) {
		return &db.TransitionError{ID: id, From: v.Status, To: to}
	}
	v.Status = to
	v.UpdatedAt = time.Now()
	apply(v)
	return nil
}

func (m *memTracker) MarkGenerating(_ context.Context, id, script string) error {
	return m.transition(id, types.VideoStatusGenerating, func(v *types.VideoRecord) { v.Script = &script })
}

func (m *memTracker) MarkCompleted(_ context.Context, id string, c db.Completion) error {
	return m.transition(id, types.VideoStatusCompleted, func(v *types.VideoRecord) {
		v.VideoURL = &c.VideoURL
		v.ThumbnailURL = &c.ThumbnailURL
		v.Duration = c.Duration
	})
}

func (m *memTracker) MarkFailed(_ context.Context, id, message string) error {
	return m.transition(id, types.VideoStatusFailed, func(v *types.VideoRecord) { v.ErrorMessage = &message })
}

func (m *memTracker) status(id string) types.VideoStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.videos[id]; ok {
		return v.Status
	}
	return ""
}

var errBoom = errors.New("boom")
