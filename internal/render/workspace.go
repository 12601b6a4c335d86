package render

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var jobIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateJobID checks that id is safe to embed in file names.
func ValidateJobID(id string) error {
	if !jobIDPattern.MatchString(id) {
		return &InvalidJobIDError{JobID: id}
	}
	return nil
}

// Workspace holds the per-job scratch locations. No two jobs share a path.
type Workspace struct {
	JobID      string
	ScriptPath string
	MediaDir   string
}

// Paths returns every location owned by the job, for cleanup.
func (w Workspace) Paths() []string {
	return []string{w.ScriptPath, w.MediaDir}
}

// NewWorkspace lays out the job's files under root without creating them.
func NewWorkspace(root, jobID string) (Workspace, error) {
	if err := ValidateJobID(jobID); err != nil {
		return Workspace{}, err
	}
	return Workspace{
		JobID:      jobID,
		ScriptPath: filepath.Join(root, "scripts", jobID+".py"),
		MediaDir:   filepath.Join(root, "media", jobID),
	}, nil
}

func (w Workspace) prepare(code string) error {
	if err := os.MkdirAll(filepath.Dir(w.ScriptPath), 0o755); err != nil {
		return fmt.Errorf("failed to create script directory: %w", err)
	}
	if err := os.MkdirAll(w.MediaDir, 0o755); err != nil {
		return fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(w.ScriptPath, []byte(code), 0o644); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}
	return nil
}
