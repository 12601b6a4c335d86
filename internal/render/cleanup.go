package render

import (
	"errors"
	"log/slog"
	"os"

	"github.com/jonathan/mathmotion/internal/logger"
)

// Report records what a cleanup pass did. Callers may ignore it.
type Report struct {
	Removed []string
	Missing []string
	Failed  map[string]error
}

// OK reports whether every path is gone.
func (r Report) OK() bool {
	return len(r.Failed) == 0
}

// Cleaner removes job scratch files. Failures are logged and never returned as errors.
type Cleaner struct {
	log *slog.Logger
}

// NewCleaner returns a Cleaner that logs to log.
func NewCleaner(log *slog.Logger) *Cleaner {
	if log == nil {
		log = logger.Discard()
	}
	return &Cleaner{log: log}
}

// Remove deletes each path recursively. Removing a path twice is harmless.
func (c *Cleaner) Remove(paths ...string) Report {
	report := Report{}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Lstat(p); errors.Is(err, os.ErrNotExist) {
			report.Missing = append(report.Missing, p)
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			if report.Failed == nil {
				report.Failed = make(map[string]error)
			}
			report.Failed[p] = err
			c.log.Warn("could not delete temporary file", "path", p, "error", err)
			continue
		}
		report.Removed = append(report.Removed, p)
	}
	return report
}
