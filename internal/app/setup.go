package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/nova-ai/chatboat/db"
	"github.com/nova-ai/chatboat/internal/auth"
	"github.com/nova-ai/chatboat/internal/bot"
	"github.com/nova-ai/chatboat/internal/config"
	"github.com/nova-ai/chatboat/internal/conversation"
	"github.com/nova-ai/chatboat/internal/gemini"
	"github.com/nova-ai/chatboat/internal/user"
)

// Setup builds the application container: tracing, database pool (with
// migrations), stores, upstream client, pipeline and token manager.
// On error, everything built so far is released.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if retErr != nil {
			_ = a.Close()
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	a.Conversations, err = conversation.NewStore(pool, logger.With("component", "conversation_store"))
	if err != nil {
		return nil, fmt.Errorf("creating conversation store: %w", err)
	}

	a.Users, err = user.NewStore(pool, logger.With("component", "user_store"))
	if err != nil {
		return nil, fmt.Errorf("creating user store: %w", err)
	}

	a.Upstream, err = gemini.NewClient(ctx, gemini.Config{
		APIKey:      cfg.GeminiAPIKey,
		Model:       cfg.ModelName,
		Temperature: cfg.Temperature,
		Timeout:     cfg.UpstreamTimeout,
		MaxRetries:  2,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	a.Pipeline, err = bot.New(a.Conversations, a.Upstream, bot.Options{
		WordDelay:           cfg.StreamWordDelay,
		TypingDelay:         cfg.StreamTypingDelay,
		IncludeErrorDetails: !cfg.IsProduction(),
	}, logger.With("component", "pipeline"))
	if err != nil {
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}

	a.Tokens, err = auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token manager: %w", err)
	}

	return a, nil
}

// provideOtelShutdown sets up OTLP HTTP trace export when an endpoint is
// configured. Returns a shutdown func; tracing failures never block startup.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	if cfg.OTLPEndpoint == "" {
		return func() {}
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return func() {}
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	logger.Debug("tracing enabled", "endpoint", cfg.OTLPEndpoint)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and creates a PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
