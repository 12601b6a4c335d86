package render

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CheckResult describes whether a required tool is usable.
type CheckResult struct {
	Tool    string `json:"tool"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

const checkTimeout = 15 * time.Second

// Check verifies the render command (and ffprobe, when configured) can be executed.
func (i *Invoker) Check(ctx context.Context) []CheckResult {
	results := []CheckResult{checkTool(ctx, i.cfg.Command, "--version")}
	if i.cfg.FFprobePath != "" {
		results = append(results, checkTool(ctx, i.cfg.FFprobePath, "-version"))
	}
	return results
}

func checkTool(ctx context.Context, tool, versionFlag string) CheckResult {
	res := CheckResult{Tool: tool}
	path, err := exec.LookPath(tool)
	if err != nil {
		res.Error = fmt.Sprintf("%s not found in PATH", tool)
		return res
	}
	res.Path = path

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, versionFlag).CombinedOutput()
	if err != nil {
		res.Error = fmt.Sprintf("%s %s failed: %v", tool, versionFlag, err)
		return res
	}
	res.Version = firstLine(string(out))
	res.OK = true
	return res
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}
