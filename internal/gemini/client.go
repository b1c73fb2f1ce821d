// Package gemini implements the upstream completion client backed by
// Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

// EmptyReply is returned when the model answers with no usable text.
// This is a successful completion, not an error.
const EmptyReply = "Sorry, I couldn't generate a response."

// Client generates a completion for a single user message.
type Client interface {
	Complete(ctx context.Context, text string) (string, error)
}

// Config holds the upstream client settings.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32

	// Timeout bounds each Complete call.
	Timeout time.Duration

	// MaxRetries and RetryDelay govern retries on 500/503 API errors.
	MaxRetries int
	RetryDelay time.Duration
}

type sdkClient struct {
	genaiClient   *genai.Client
	contentConfig *genai.GenerateContentConfig
	model         string
	timeout       time.Duration
	maxRetries    int
	retryDelay    time.Duration
	log           *slog.Logger
}

// NewClient creates a Gemini-backed Client.
func NewClient(ctx context.Context, cfg Config, log *slog.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	temp := cfg.Temperature
	logger := log.With("component", "gemini_client")
	logger.Info("gemini client initialized", "model", cfg.Model)

	return &sdkClient{
		genaiClient:   gi,
		contentConfig: &genai.GenerateContentConfig{Temperature: &temp},
		model:         cfg.Model,
		timeout:       cfg.Timeout,
		maxRetries:    cfg.MaxRetries,
		retryDelay:    cfg.RetryDelay,
		log:           logger,
	}, nil
}

// Complete sends the user text to the model and returns its reply.
// API failures surface as errors; a contentless reply becomes EmptyReply.
func (c *sdkClient) Complete(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	resp, err := c.generateWithRetries(ctx, contents)
	if err != nil {
		return "", err
	}
	return c.extractText(ctx, resp), nil
}

func (c *sdkClient) generateWithRetries(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		resp, err := c.genaiClient.Models.GenerateContent(ctx, c.model, contents, c.contentConfig)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var apiErr *genai.APIError
		retriable := errors.As(err, &apiErr) && (apiErr.Code == 500 || apiErr.Code == 503)
		if !retriable || i == c.maxRetries {
			break
		}

		c.log.WarnContext(ctx, "gemini call failed, retrying",
			"attempt", i+1, "code", apiErr.Code, "delay", c.retryDelay)
		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("gemini call failed: %w", lastErr)
}

// extractText pulls the first candidate's text out of a response.
func (c *sdkClient) extractText(ctx context.Context, resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 ||
		resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		c.log.WarnContext(ctx, "gemini response had no candidates")
		return EmptyReply
	}

	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		out += part.Text
	}
	if out == "" {
		return EmptyReply
	}
	return out
}
