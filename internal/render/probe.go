package render

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ProbeDuration reads a video's length in seconds with ffprobe.
func ProbeDuration(ctx context.Context, ffprobe, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, ffprobe, args...)
	killProcessGroup(cmd)
	cmd.WaitDelay = time.Second
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	dur, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	if dur < 0 {
		return 0, fmt.Errorf("negative duration %v", dur)
	}
	return dur, nil
}
