package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/mathmotion/internal/config"
	"github.com/jonathan/mathmotion/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  `Apply the embedded schema migrations to DATABASE_URL. Only the database URL is required.`,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Read(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return &config.MissingError{Vars: []string{"DATABASE_URL"}}
	}
	if err := db.Migrate(cfg.Database.URL); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
	return nil
}
