package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonathan/mathmotion/internal/db"
	"github.com/jonathan/mathmotion/internal/logger"
	"github.com/jonathan/mathmotion/internal/render"
)

var checkDatabase bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify configuration and render tooling",
	Long: `Check that every required environment variable is set, that the render command and ffprobe
can be executed, and optionally that the database is reachable.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkDatabase, "db", false, "Also ping the database")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, "✓ configuration")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	invoker := render.NewInvoker(cfg.RenderInvokerConfig(), logger.New(cfg.Server.LogLevel))
	failed := printChecks(out, invoker.Check(ctx))

	if checkDatabase {
		if err := pingDatabase(ctx, cfg.Database.URL); err != nil {
			_, _ = fmt.Fprintf(out, "✗ database: %v\n", err)
			failed++
		} else {
			_, _ = fmt.Fprintln(out, "✓ database")
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

// printChecks writes one line per tool and returns how many failed.
func printChecks(out io.Writer, results []render.CheckResult) int {
	failed := 0
	for _, r := range results {
		if r.OK {
			_, _ = fmt.Fprintf(out, "✓ %s: %s\n", r.Tool, r.Version)
			continue
		}
		failed++
		_, _ = fmt.Fprintf(out, "✗ %s: %s\n", r.Tool, r.Error)
	}
	return failed
}

func pingDatabase(ctx context.Context, url string) error {
	database, err := db.Connect(ctx, url)
	if err != nil {
		return err
	}
	defer database.Close()
	return database.Ping(ctx)
}
