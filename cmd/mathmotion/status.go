package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/mathmotion/internal/config"
	"github.com/jonathan/mathmotion/internal/db"
	"github.com/jonathan/mathmotion/internal/observability"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status <video-id>",
	Short: "Show the stored record of a video",
	Long:  "Reads one video record from the database. Only DATABASE_URL is required.",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the status view as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Read(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return &config.MissingError{Vars: []string{"DATABASE_URL"}}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	database, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer database.Close()

	video, err := database.GetVideo(ctx, args[0])
	if err != nil {
		return err
	}
	if video == nil {
		return fmt.Errorf("video %s not found", args[0])
	}

	if statusJSON {
		data, err := json.MarshalIndent(video.StatusView(), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintVideo(video)
	return nil
}
