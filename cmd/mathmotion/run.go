package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/mathmotion/internal/observability"
	"github.com/jonathan/mathmotion/internal/pipeline"
	"github.com/jonathan/mathmotion/internal/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate, render and publish a video end-to-end",
	Long:  "Runs the whole pipeline for one prompt: script generation, rendering, upload and status updates. Progress goes to stderr, the result to stdout as JSON.",
	RunE:  runRun,
}

var (
	runPrompt  string
	runOptions types.GenerationOptions
	runOutput  string
	runVerbose bool
)

func init() {
	runCmd.Flags().StringVarP(&runPrompt, "prompt", "p", "", "What the animation should explain (required)")
	addOptionFlags(runCmd.Flags(), &runOptions)
	runCmd.Flags().StringVarP(&runOutput, "out", "o", "", "Also write the result JSON to this file")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print the generated script and published video to stderr")

	if err := runCmd.MarkFlagRequired("prompt"); err != nil {
		panic(fmt.Sprintf("failed to mark prompt flag as required: %v", err))
	}

	rootCmd.AddCommand(runCmd)
}

// runResult is printed by run.
type runResult struct {
	Success bool             `json:"success"`
	VideoID string           `json:"videoId,omitempty"`
	Title   string           `json:"title,omitempty"`
	Result  *pipeline.Result `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
	Details string           `json:"details,omitempty"`
}

func runRun(cmd *cobra.Command, _ []string) error {
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

	progress := func(e pipeline.ProgressEvent) {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s\n", e.Step, e.Message)
	}
	gen, res, runErr := a.pipeline.Run(ctx, types.GenerationRequest{Prompt: runPrompt, Options: runOptions}, progress)

	if runVerbose {
		printer := observability.NewPrinter(cmd.ErrOrStderr())
		if gen != nil {
			printer.PrintScript(gen.Script)
		}
		printer.PrintResult(res)
	}

	out := runResult{Success: runErr == nil, Result: res}
	if gen != nil {
		out.VideoID = gen.VideoID
		out.Title = gen.Script.Title
	}
	if runErr != nil {
		perr := pipeline.Classify(runErr)
		out.Error = perr.Message
		out.Details = perr.Details
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	if runOutput != "" {
		if err := writeFile(runOutput, data); err != nil {
			return err
		}
	}
	return runErr
}
