package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jonathan/mathmotion/internal/observability"
	"github.com/jonathan/mathmotion/internal/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a Manim script from a prompt",
	Long:  "Asks the LLM for a Manim script and records the video as PENDING. Nothing is rendered; pass the script to 'render' later.",
	RunE:  runGenerate,
}

var (
	generatePrompt  string
	generateOptions types.GenerationOptions
	generateOutput  string
	generateVerbose bool
)

func init() {
	generateCmd.Flags().StringVarP(&generatePrompt, "prompt", "p", "", "What the animation should explain (required)")
	addOptionFlags(generateCmd.Flags(), &generateOptions)
	generateCmd.Flags().StringVarP(&generateOutput, "out", "o", "", "Write the script to this file instead of stdout")
	generateCmd.Flags().BoolVarP(&generateVerbose, "verbose", "v", false, "Print a script summary to stderr")

	if err := generateCmd.MarkFlagRequired("prompt"); err != nil {
		panic(fmt.Sprintf("failed to mark prompt flag as required: %v", err))
	}

	rootCmd.AddCommand(generateCmd)
}

// addOptionFlags binds the generation options shared by generate and run.
func addOptionFlags(fs *pflag.FlagSet, opts *types.GenerationOptions) {
	fs.StringVar(&opts.Topic, "topic", "", "Subject area (default "+types.DefaultTopic+")")
	fs.StringVar(&opts.Complexity, "complexity", "", "Beginner, Intermediate, Advanced or Expert (default "+types.DefaultComplexity+")")
	fs.IntVar(&opts.Duration, "duration", 0, fmt.Sprintf("Target length in minutes, 1-30 (default %d)", types.DefaultDuration))
	fs.StringVar(&opts.Style, "style", "", "Visual style (default "+types.DefaultStyle+")")
	fs.StringVar(&opts.Narration, "narration", "", "Narration style (default "+types.DefaultNarration+")")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
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

	result, err := a.pipeline.Generate(ctx, types.GenerationRequest{Prompt: generatePrompt, Options: generateOptions})
	if err != nil {
		return err
	}

	if generateVerbose {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintScript(result.Script)
	}
	if generateOutput == "" {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.Script.Code)
	} else if err := writeFile(generateOutput, []byte(result.Script.Code)); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "video %s recorded as PENDING (%q)\n", result.VideoID, result.Script.Title)
	return nil
}

// writeFile writes data to path, creating parent directories.
func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", path, err)
	}
	return nil
}
