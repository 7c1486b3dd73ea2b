package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiConfig holds configuration for the Gemini metered backend.
type GeminiConfig struct {
	APIKey          string
	Model           string
	Timeout         time.Duration
	MaxOutputTokens int
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:          apiKey,
		Model:           "gemini-2.0-flash",
		Timeout:         2 * time.Minute,
		MaxOutputTokens: 4096,
	}
}

// GeminiClient implements Client against the Gemini API via the genai SDK.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	maxOut  int
}

// NewGeminiClient creates a metered Gemini backend.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key missing")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiConfig("").Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultGeminiConfig("").Timeout
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = DefaultGeminiConfig("").MaxOutputTokens
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		maxOut:  cfg.MaxOutputTokens,
	}, nil
}

// Name implements Client.
func (c *GeminiClient) Name() string { return "gemini" }

// Generate implements Client.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (*Response, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	maxOut := req.MaxOutputTokens
	if maxOut <= 0 {
		maxOut = c.maxOut
	}
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxOut),
	}
	if req.Instructions != "" {
		config.SystemInstruction = genai.NewContentFromText(req.Instructions, genai.RoleUser)
	}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(req.Temperature))
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Content), config)
	if err != nil {
		return nil, c.classifyError(err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return nil, &MalformedResponseError{Backend: c.Name(), Reason: "empty completion text"}
	}

	resp := &Response{Text: text, Model: c.model}
	if result.UsageMetadata != nil {
		resp.InputTokens = int(result.UsageMetadata.PromptTokenCount)
		resp.OutputTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}
	return resp, nil
}

func (c *GeminiClient) classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return &RateLimitError{Backend: c.Name()}
		case apiErr.Code >= 500:
			return &TransportError{Backend: c.Name(), Err: err}
		default:
			return &MalformedResponseError{Backend: c.Name(), Reason: apiErr.Error()}
		}
	}
	return &TransportError{Backend: c.Name(), Err: err}
}
