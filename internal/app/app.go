// Package app provides application initialization and dependency wiring.
//
// App is the container that owns the database pool, stores, upstream AI
// client and the reply pipeline. Setup builds everything in dependency
// order; Close tears it down in reverse.
package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nova-ai/chatboat/internal/auth"
	"github.com/nova-ai/chatboat/internal/bot"
	"github.com/nova-ai/chatboat/internal/config"
	"github.com/nova-ai/chatboat/internal/conversation"
	"github.com/nova-ai/chatboat/internal/gemini"
	"github.com/nova-ai/chatboat/internal/user"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Pool          *pgxpool.Pool
	Conversations *conversation.Store
	Users         *user.Store
	Upstream      gemini.Client
	Pipeline      *bot.Pipeline
	Tokens        *auth.TokenManager

	otelCleanup func()
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Info("database pool closed")
	}

	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}
