// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (CHATBOAT_* plus DATABASE_URL)
//  2. Config file (./config.yaml)
//  3. Default values
//
// Secrets (JWT_SECRET, GEMINI_API_KEY, DATABASE_URL) come from the
// environment only and are masked when the config is printed or logged.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var (
	// ErrMissingJWTSecret indicates JWT_SECRET is not set.
	ErrMissingJWTSecret = errors.New("missing JWT secret")

	// ErrWeakJWTSecret indicates JWT_SECRET is too short to sign tokens safely.
	ErrWeakJWTSecret = errors.New("JWT secret must be at least 32 characters")

	// ErrMissingGeminiKey indicates GEMINI_API_KEY is not set.
	ErrMissingGeminiKey = errors.New("missing Gemini API key")
)

// Environment names accepted in Config.Env.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// HTTP server
	Addr        string   `mapstructure:"addr" validate:"required"`
	Env         string   `mapstructure:"env" validate:"oneof=development production"`
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Storage (see storage.go for DSN helpers and DATABASE_URL handling)
	PostgresHost     string `mapstructure:"postgres_host" validate:"required"`
	PostgresPort     int    `mapstructure:"postgres_port" validate:"gte=1,lte=65535"`
	PostgresUser     string `mapstructure:"postgres_user" validate:"required"`
	PostgresPassword string `mapstructure:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" validate:"required"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" validate:"oneof=disable allow prefer require verify-ca verify-full"`

	// Upstream AI
	GeminiAPIKey    string        `mapstructure:"gemini_api_key"` // SENSITIVE: masked in MarshalJSON
	ModelName       string        `mapstructure:"model_name" validate:"required"`
	Temperature     float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	UpstreamTimeout time.Duration `mapstructure:"upstream_timeout" validate:"min=1s,max=5m"`

	// Streaming pace
	StreamWordDelay   time.Duration `mapstructure:"stream_word_delay" validate:"min=0,max=5s"`
	StreamTypingDelay time.Duration `mapstructure:"stream_typing_delay" validate:"min=0,max=10s"`

	// Auth
	JWTSecret string        `mapstructure:"jwt_secret"` // SENSITIVE: masked in MarshalJSON
	JWTTTL    time.Duration `mapstructure:"jwt_ttl" validate:"min=1m"`

	// Logging
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogJSON  bool   `mapstructure:"log_json"`

	// Observability (optional; empty disables tracing)
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env cover everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":4002")
	v.SetDefault("env", EnvDevelopment)
	v.SetDefault("cors_origins", []string{"http://localhost:5173"})

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "chatboat")
	v.SetDefault("postgres_password", "chatboat_dev_password")
	v.SetDefault("postgres_db_name", "chatboat")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("temperature", 0.7)
	v.SetDefault("upstream_timeout", 30*time.Second)

	v.SetDefault("stream_word_delay", 80*time.Millisecond)
	v.SetDefault("stream_typing_delay", 500*time.Millisecond)

	v.SetDefault("jwt_ttl", 7*24*time.Hour)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variables explicitly.
// Secrets are env-only: JWT_SECRET, GEMINI_API_KEY and DATABASE_URL
// (the latter handled in parseDatabaseURL).
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a
	// runtime error.
	mustBind := func(key string, envVars ...string) {
		if err := v.BindEnv(append([]string{key}, envVars...)...); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q: %v", key, err))
		}
	}

	mustBind("addr", "CHATBOAT_ADDR")
	mustBind("env", "CHATBOAT_ENV")
	mustBind("cors_origins", "CHATBOAT_CORS_ORIGINS")

	mustBind("postgres_host", "CHATBOAT_POSTGRES_HOST")
	mustBind("postgres_port", "CHATBOAT_POSTGRES_PORT")
	mustBind("postgres_user", "CHATBOAT_POSTGRES_USER")
	mustBind("postgres_password", "CHATBOAT_POSTGRES_PASSWORD")
	mustBind("postgres_db_name", "CHATBOAT_POSTGRES_DB_NAME")
	mustBind("postgres_ssl_mode", "CHATBOAT_POSTGRES_SSL_MODE")

	mustBind("gemini_api_key", "GEMINI_API_KEY")
	mustBind("model_name", "CHATBOAT_MODEL_NAME")
	mustBind("temperature", "CHATBOAT_TEMPERATURE")
	mustBind("upstream_timeout", "CHATBOAT_UPSTREAM_TIMEOUT")

	mustBind("stream_word_delay", "CHATBOAT_STREAM_WORD_DELAY")
	mustBind("stream_typing_delay", "CHATBOAT_STREAM_TYPING_DELAY")

	mustBind("jwt_secret", "JWT_SECRET")
	mustBind("jwt_ttl", "CHATBOAT_JWT_TTL")

	mustBind("log_level", "CHATBOAT_LOG_LEVEL")
	mustBind("log_json", "CHATBOAT_LOG_JSON")

	mustBind("otlp_endpoint", "CHATBOAT_OTLP_ENDPOINT")
}

// Validate checks the configuration and fails fast on invalid values.
// Field-level constraints use struct tags; secrets get sentinel errors so
// callers can match them with errors.Is().
func (c *Config) Validate() error {
	switch {
	case c.JWTSecret == "":
		return ErrMissingJWTSecret
	case len(c.JWTSecret) < 32:
		return ErrWeakJWTSecret
	}

	if c.GeminiAPIKey == "" {
		return ErrMissingGeminiKey
	}

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
// Error responses include internal details only outside production.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of 8 bytes or
// fewer are fully masked; longer ones keep the first and last 2 characters
// for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field
// masking. When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.GeminiAPIKey = maskSecret(a.GeminiAPIKey)
	a.JWTSecret = maskSecret(a.JWTSecret)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
