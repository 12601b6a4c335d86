package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/mathmotion/internal/pipeline"
)

var renderCmd = &cobra.Command{
	Use:   "render <script.py>...",
	Short: "Render and publish one or more Manim scripts",
	Long: `Renders each script file, uploads the video and marks its record COMPLETED or FAILED.
Files are rendered concurrently under distinct job ids; one failure does not stop the others.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRender,
}

var (
	renderConcurrency int
	renderJobID       string
	renderOutput      string
)

func init() {
	renderCmd.Flags().IntVarP(&renderConcurrency, "concurrency", "c", 2, "Maximum renders running at once")
	renderCmd.Flags().StringVar(&renderJobID, "job-id", "", "Job id for a single script (e.g. the id printed by 'generate')")
	renderCmd.Flags().StringVarP(&renderOutput, "out", "o", "", "Write the results as JSON to this file")
	rootCmd.AddCommand(renderCmd)
}

// renderReport is one line of render output.
type renderReport struct {
	File    string           `json:"file"`
	Success bool             `json:"success"`
	Result  *pipeline.Result `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
	Details string           `json:"details,omitempty"`
}

func runRender(cmd *cobra.Command, args []string) error {
	inputs, err := renderInputs(args, renderJobID)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	items := a.pipeline.RenderAll(ctx, inputs, renderConcurrency)
	reports := buildReports(args, items)

	if renderOutput != "" {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		if err := writeFile(renderOutput, data); err != nil {
			return err
		}
	}
	return printReports(cmd.OutOrStdout(), reports)
}

// renderInputs reads every script and assigns each a distinct job id.
func renderInputs(files []string, jobID string) ([]pipeline.RenderInput, error) {
	if jobID != "" && len(files) > 1 {
		return nil, errors.New("--job-id can only be used with a single script")
	}

	inputs := make([]pipeline.RenderInput, 0, len(files))
	for _, f := range files {
		code, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read script %s: %w", f, err)
		}
		id := jobID
		if id == "" {
			id = uuid.NewString()
		}
		title := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		inputs = append(inputs, pipeline.RenderInput{Script: string(code), JobID: id, Title: title})
	}
	return inputs, nil
}

func buildReports(files []string, items []pipeline.BatchItem) []renderReport {
	reports := make([]renderReport, len(items))
	for i, item := range items {
		reports[i] = renderReport{File: files[i], Success: item.Err == nil, Result: item.Result}
		if item.Err != nil {
			perr := pipeline.Classify(item.Err)
			reports[i].Error = perr.Message
			reports[i].Details = perr.Details
		}
	}
	return reports
}

// printReports writes a line per file and fails if any render failed.
func printReports(out io.Writer, reports []renderReport) error {
	failed := 0
	for _, r := range reports {
		if r.Success {
			_, _ = fmt.Fprintf(out, "✓ %s → %s\n", r.File, r.Result.VideoURL)
			continue
		}
		failed++
		_, _ = fmt.Fprintf(out, "✗ %s: %s\n", r.File, r.Error)
		if r.Details != "" {
			_, _ = fmt.Fprintf(out, "  %s\n", lastLines(r.Details, 5))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d render(s) failed", failed, len(reports))
	}
	return nil
}

// lastLines keeps the tail of tool output, where the error usually is.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n  ")
}
