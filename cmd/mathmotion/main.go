// Package main provides the MathMotion command line: the HTTP API server and one-off pipeline commands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "mathmotion",
	Short: "MathMotion animation generator",
	Long: `MathMotion turns a natural-language prompt into an animated math explainer video:
an LLM writes a Manim script, Manim renders it, and the video is uploaded to a media host.

Configuration comes from an optional TOML file (--config) overridden by environment variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
