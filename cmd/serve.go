package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nova-ai/chatboat/internal/api"
	"github.com/nova-ai/chatboat/internal/app"
	"github.com/nova-ai/chatboat/internal/config"
	"github.com/nova-ai/chatboat/internal/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe initializes the application and runs the HTTP server until
// SIGINT/SIGTERM.
func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting chatboat", "version", AppVersion, "env", cfg.Env)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	srv, err := api.NewServer(api.ServerConfig{
		Logger:         logger,
		Pipeline:       a.Pipeline,
		Users:          a.Users,
		Tokens:         a.Tokens,
		Pool:           a.Pool,
		CORSOrigins:    cfg.CORSOrigins,
		IncludeDetails: !cfg.IsProduction(),
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	logger.Info("HTTP server ready",
		"addr", cfg.Addr,
		"chat", "/bot/v1/message, /bot/v1/message/stream",
		"auth", "/api/auth/*",
		"health", "/health, /ready",
	)

	if err := srv.Run(ctx, cfg.Addr); err != nil {
		return fmt.Errorf("running server: %w", err)
	}
	return nil
}
