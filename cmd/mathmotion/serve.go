package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/mathmotion/internal/config"
	"github.com/jonathan/mathmotion/internal/db"
	"github.com/jonathan/mathmotion/internal/server"
	"github.com/jonathan/mathmotion/internal/server/middleware"
	"github.com/jonathan/mathmotion/internal/server/ratelimit"
)

var (
	servePort    int
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Start an HTTP server exposing /generate, /render, /render/stream, /video/{id}, /video/{id}/status, /videos and /health.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Apply database migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	if serveMigrate {
		if err := db.Migrate(cfg.Database.URL); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(server.Config{
		Port:            cfg.Server.Port,
		WriteTimeout:    writeTimeout(cfg),
		SessionRequired: cfg.Session.Required,
	}, server.Deps{
		Pipeline:    a.pipeline,
		Store:       a.db,
		Tools:       a.invoker,
		Sessions:    middleware.NewSessionVerifier(cfg.Session.Secret, cfg.Session.MaxAge),
		RateLimiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
		Logger:      a.log,
	})
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// writeTimeout leaves room for a full render, its kill grace period, and the upload.
func writeTimeout(cfg *config.Config) time.Duration {
	return max(300*time.Second, cfg.Render.Timeout+cfg.Render.Grace+2*time.Minute)
}
