// Package render runs the animation tool on a generated script and locates the resulting video.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonathan/mathmotion/internal/llm"
	"github.com/jonathan/mathmotion/internal/logger"
)

const (
	// DefaultCommand is the animation tool binary.
	DefaultCommand = "manim"
	// DefaultTimeout is the hard limit on one render.
	DefaultTimeout = 120 * time.Second
	// DefaultGrace is how long to wait for output pipes after the process group is killed.
	DefaultGrace = 5 * time.Second

	maxCapturedOutput = 64 << 10
)

// DefaultArgs renders at low quality into the job's media directory.
var DefaultArgs = []string{"render", "-ql", "--media_dir", "{media_dir}", "-o", "{job_id}", "{script}"}

// Config controls how the render command is run.
type Config struct {
	Command string
	// Args may contain the placeholders {script}, {media_dir} and {job_id}.
	Args        []string
	Timeout     time.Duration
	Grace       time.Duration
	WorkDir     string
	FFprobePath string
}

// Artifact is a rendered video on local disk.
type Artifact struct {
	JobID       string
	Path        string
	Size        int64
	ContentType string
	Extension   string
	ModTime     time.Time
	// Duration is nil when ffprobe is disabled or failed.
	Duration *float64
	Stdout   string
	Stderr   string
}

// Invoker runs renders. It is safe for concurrent use with distinct job IDs.
type Invoker struct {
	cfg Config
	log *slog.Logger
}

// NewInvoker fills zero fields of cfg with defaults.
func NewInvoker(cfg Config, log *slog.Logger) *Invoker {
	if cfg.Command == "" {
		cfg.Command = DefaultCommand
	}
	if len(cfg.Args) == 0 {
		cfg.Args = DefaultArgs
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Join(os.TempDir(), "mathmotion")
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Invoker{cfg: cfg, log: log}
}

// Config returns the effective configuration.
func (i *Invoker) Config() Config {
	return i.cfg
}

// Workspace returns the scratch locations for jobID.
func (i *Invoker) Workspace(jobID string) (Workspace, error) {
	return NewWorkspace(i.cfg.WorkDir, jobID)
}

// Render writes script to the job's scratch file, runs the render command, and returns the newest matching video.
// The scratch script is removed before Render returns; the media directory is left for the caller to clean up.
func (i *Invoker) Render(ctx context.Context, jobID, script string) (*Artifact, error) {
	ws, err := i.Workspace(jobID)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(logger.WithJobID(ctx, jobID), i.log)

	defer func() {
		if err := os.Remove(ws.ScriptPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("could not delete scratch script", "path", ws.ScriptPath, "error", err)
		}
	}()

	// Fenced answers cannot be parsed by the interpreter.
	if err := ws.prepare(llm.CleanCodeBlock(script)); err != nil {
		return nil, &Error{Message: "failed to prepare workspace", Cause: err}
	}

	stdout, stderr, err := i.run(ctx, ws, log)
	if err != nil {
		return nil, err
	}

	artifact, err := FindArtifact(ws.MediaDir, jobID)
	if err != nil {
		log.Warn("render produced no artifact", "media_dir", ws.MediaDir, "error", err)
		return nil, err
	}
	artifact.Stdout = stdout
	artifact.Stderr = stderr

	if i.cfg.FFprobePath != "" {
		if d, err := i.measure(ctx, artifact.Path); err != nil {
			log.Warn("duration measurement failed", "path", artifact.Path, "error", err)
		} else {
			artifact.Duration = &d
		}
	}

	log.Info("render complete", "artifact", artifact.Path, "size", artifact.Size)
	return artifact, nil
}

// measure reads the artifact's length, bounded by the tool check limit or the render timeout, whichever is shorter.
func (i *Invoker) measure(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, min(checkTimeout, i.cfg.Timeout))
	defer cancel()
	return ProbeDuration(ctx, i.cfg.FFprobePath, path)
}

func (i *Invoker) run(ctx context.Context, ws Workspace, log *slog.Logger) (string, string, error) {
	runCtx, cancel := context.WithTimeout(ctx, i.cfg.Timeout)
	defer cancel()

	args := expandArgs(i.cfg.Args, ws)
	cmd := exec.CommandContext(runCtx, i.cfg.Command, args...)
	cmd.Dir = filepath.Dir(ws.ScriptPath)
	cmd.WaitDelay = i.cfg.Grace
	killProcessGroup(cmd)

	stdout := &tailBuffer{limit: maxCapturedOutput}
	stderr := &tailBuffer{limit: maxCapturedOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	log.Info("starting render", "command", i.cfg.Command, "args", args, "timeout", i.cfg.Timeout)
	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if runErr == nil {
		log.Debug("render command finished", "elapsed", elapsed)
		return stdout.String(), stderr.String(), nil
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		log.Warn("render timed out", "timeout", i.cfg.Timeout)
		return "", "", &Error{
			Message:  fmt.Sprintf("render timed out after %s", i.cfg.Timeout),
			Stderr:   stderr.String(),
			ExitCode: -1,
			TimedOut: true,
			Cause:    runErr,
		}
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	log.Warn("render command failed", "exit_code", exitCode, "elapsed", elapsed)
	return "", "", &Error{
		Message:  fmt.Sprintf("render command exited with code %d", exitCode),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
		Cause:    runErr,
	}
}

func expandArgs(tmpl []string, ws Workspace) []string {
	r := strings.NewReplacer(
		"{script}", ws.ScriptPath,
		"{media_dir}", ws.MediaDir,
		"{job_id}", ws.JobID,
	)
	out := make([]string, len(tmpl))
	for i, a := range tmpl {
		out[i] = r.Replace(a)
	}
	return out
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	t.buf.Write(p)
	if over := t.buf.Len() - t.limit; over > 0 {
		t.buf.Next(over)
		t.truncated = true
	}
	return n, nil
}

func (t *tailBuffer) String() string {
	if t.truncated {
		return "...(truncated)\n" + t.buf.String()
	}
	return t.buf.String()
}
