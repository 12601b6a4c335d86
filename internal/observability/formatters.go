// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/mathmotion/internal/pipeline"
	"github.com/jonathan/mathmotion/internal/scriptgen"
	"github.com/jonathan/mathmotion/internal/types"
)

const (
	boxWidth = 60
	// maxScriptLines is how much of a generated script the summary shows
	maxScriptLines = 12
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

//nolint:errcheck // writing to a terminal; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		line = strings.ReplaceAll(line, "\t", "    ")
		if len([]rune(line)) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintScript summarizes a generated script: title, options and the first lines of code.
func (p *Printer) PrintScript(script *scriptgen.Script) {
	if script == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:      %s\n", script.Title))
	if script.Model != "" {
		sb.WriteString(fmt.Sprintf("Model:      %s\n", script.Model))
	}
	opts := script.Options
	sb.WriteString(fmt.Sprintf("Topic:      %s\n", opts.Topic))
	sb.WriteString(fmt.Sprintf("Complexity: %s\n", opts.Complexity))
	sb.WriteString(fmt.Sprintf("Duration:   %d min\n", opts.Duration))
	sb.WriteString(fmt.Sprintf("Style:      %s\n", opts.Style))
	sb.WriteString(fmt.Sprintf("Narration:  %s\n", opts.Narration))
	sb.WriteString("\n")

	lines := strings.Split(strings.TrimRight(script.Code, "\n"), "\n")
	count := min(len(lines), maxScriptLines)
	for _, line := range lines[:count] {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	if len(lines) > maxScriptLines {
		sb.WriteString(fmt.Sprintf("... and %d more lines\n", len(lines)-maxScriptLines))
	}

	p.printBox("GENERATED SCRIPT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintResult outputs the published locations of a rendered video.
func (p *Printer) PrintResult(result *pipeline.Result) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Video ID:  %s\n", result.VideoID))
	sb.WriteString(fmt.Sprintf("Video:     %s\n", result.VideoURL))
	sb.WriteString(fmt.Sprintf("Thumbnail: %s", result.ThumbnailURL))
	if result.Duration != nil {
		sb.WriteString(fmt.Sprintf("\nDuration:  %s", formatSeconds(*result.Duration)))
	}

	p.printBox("PUBLISHED VIDEO", sb.String())
}

// PrintVideo outputs a stored video record.
func (p *Printer) PrintVideo(video *types.VideoRecord) {
	if video == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ID:      %s\n", video.ID))
	sb.WriteString(fmt.Sprintf("Title:   %s\n", video.Title))
	sb.WriteString(fmt.Sprintf("Status:  %s\n", video.Status))
	if video.VideoURL != nil {
		sb.WriteString(fmt.Sprintf("Video:   %s\n", *video.VideoURL))
	}
	if video.Duration != nil {
		sb.WriteString(fmt.Sprintf("Length:  %s\n", formatSeconds(*video.Duration)))
	}
	if video.ErrorMessage != nil && *video.ErrorMessage != "" {
		sb.WriteString(fmt.Sprintf("Error:   %s\n", *video.ErrorMessage))
	}
	sb.WriteString(fmt.Sprintf("Updated: %s", video.UpdatedAt.Format(time.RFC3339)))

	p.printBox("VIDEO", sb.String())
}

func formatSeconds(s float64) string {
	d := time.Duration(s * float64(time.Second)).Round(100 * time.Millisecond)
	return d.String()
}
